package scanner

import (
	"testing"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func collect(t *testing.T, input string) []csim.Token {
	sc, err := Tokenize(input)
	if err != nil {
		t.Fatal(err)
	}
	sc.SetErrorHandler(func(e error) {
		t.Errorf("unexpected scanner error: %v", e)
	})
	var toks []csim.Token
	for tok := sc.NextToken(); tok.TokType() != EOF; tok = sc.NextToken() {
		t.Logf(" %20s | %10s | @%s", TokenName(tok.TokType()), tok.Lexeme(), tok.Loc())
		toks = append(toks, tok)
	}
	return toks
}

func TestTokenCounts(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.scanner")
	defer teardown()
	//
	inputs := []string{
		"1",
		"x+=12;",
		"#include <stdio.h>\nint main(void) { return 0; }",
		`printf("%d\n", x); // comment`,
		"a /* block\n * comment */ -> b ... c",
		"p->next++",
	}
	counts := []int{1, 4, 10, 7, 5, 4}
	for i, input := range inputs {
		toks := collect(t, input)
		if len(toks) != counts[i] {
			t.Errorf("expected token count for #%d to be %d, is %d", i, counts[i], len(toks))
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.scanner")
	defer teardown()
	//
	toks := collect(t, "int interval _Bool return returned")
	expected := []csim.TokType{Keyword, Ident, Keyword, Keyword, Ident}
	for i, tok := range toks {
		if tok.TokType() != expected[i] {
			t.Errorf("token %q: expected %s, got %s", tok.Lexeme(), TokenName(expected[i]), TokenName(tok.TokType()))
		}
	}
}

func TestConstantValues(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.scanner")
	defer teardown()
	//
	toks := collect(t, `42 0x1F 010 7u 3.5 'a' '\n' "hi\tthere" 1e3`)
	if len(toks) != 9 {
		t.Fatalf("expected 9 tokens, got %d", len(toks))
	}
	ints := []int64{42, 31, 8, 7}
	for i, v := range ints {
		iv, ok := toks[i].Value().(IntValue)
		if !ok || iv.Value != v {
			t.Errorf("expected integer %d, got %v", v, toks[i].Value())
		}
	}
	if !toks[3].Value().(IntValue).Unsigned {
		t.Errorf("expected 7u to be unsigned")
	}
	if toks[4].Value().(float64) != 3.5 {
		t.Errorf("expected 3.5, got %v", toks[4].Value())
	}
	if toks[5].Value().(int64) != 'a' || toks[6].Value().(int64) != '\n' {
		t.Errorf("character constants decoded wrong: %v %v", toks[5].Value(), toks[6].Value())
	}
	if toks[7].Value().(string) != "hi\tthere" {
		t.Errorf("string literal decoded wrong: %q", toks[7].Value())
	}
	if toks[8].TokType() != FloatConst || toks[8].Value().(float64) != 1000 {
		t.Errorf("expected floating constant 1000, got %v", toks[8])
	}
}

func TestLocations(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.scanner")
	defer teardown()
	//
	toks := collect(t, "int x;\n  x = 5;")
	x := toks[3]
	if x.Lexeme() != "x" || x.Loc().Line != 2 || x.Loc().Column != 3 {
		t.Errorf("expected x at 2:3, got %q at %s", x.Lexeme(), x.Loc())
	}
	if x.Loc().Span.From() != 9 || x.Loc().Span.Len() != 1 {
		t.Errorf("expected span (9…10), got %s", x.Loc().Span)
	}
}

func TestUnescape(t *testing.T) {
	cases := map[string]string{
		`plain`:     "plain",
		`a\nb`:      "a\nb",
		`\x41\101`:  "AA",
		`\0`:        "\x00",
		`q\"uote\\`: "q\"uote\\",
	}
	for in, out := range cases {
		s, err := Unescape(in)
		if err != nil || s != out {
			t.Errorf("Unescape(%q) = %q, %v; expected %q", in, s, err, out)
		}
	}
	if _, err := Unescape(`\q`); err == nil {
		t.Errorf("expected error for invalid escape")
	}
}

func TestScannerError(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.scanner")
	defer teardown()
	//
	sc, err := Tokenize("a @ b")
	if err != nil {
		t.Fatal(err)
	}
	var errs []error
	sc.SetErrorHandler(func(e error) { errs = append(errs, e) })
	n := 0
	for tok := sc.NextToken(); tok.TokType() != EOF; tok = sc.NextToken() {
		n++
	}
	if len(errs) == 0 {
		t.Errorf("expected an error for '@'")
	}
	if n != 2 {
		t.Errorf("expected 2 tokens around the error, got %d", n)
	}
}
