package sema

import (
	"testing"

	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/csim/parser"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func analyze(t *testing.T, src string) (*ast.TranslationUnit, *Result, *diag.Bag) {
	t.Helper()
	tu, err := parser.Parse("test.c", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	bag := diag.NewBag()
	return tu, Analyze(tu, bag), bag
}

func codes(ds []*diag.Diagnostic) []diag.Code {
	var cs []diag.Code
	for _, d := range ds {
		cs = append(cs, d.Code)
	}
	return cs
}

func TestCleanProgram(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.sema")
	defer teardown()
	//
	_, r, bag := analyze(t, `
int x = 5;
int y = 3;
int main() {
	int sum = x + y;
	return sum;
}`)
	if bag.Len() != 0 {
		t.Errorf("expected no diagnostics, got %v", bag.All())
	}
	if r.RejectedCount() != 0 {
		t.Errorf("expected nothing to be rejected")
	}
	if sig := r.Functions["main"]; sig == nil || sig.Def == nil {
		t.Errorf("expected main to be defined")
	}
	if r.Functions["printf"] == nil || r.Functions["printf"].Native == nil {
		t.Errorf("expected natives to be pre-declared")
	}
}

func TestRedeclarationRejected(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.sema")
	defer teardown()
	//
	tu, r, bag := analyze(t, `
int main() {
	int a = 1;
	int a = 2;
	int b = a;
	return b;
}`)
	errs := bag.Errors()
	if len(errs) != 1 || errs[0].Code != diag.Redeclared || errs[0].Loc.Line != 4 {
		t.Fatalf("expected one redeclaration error at line 4, got %v", errs)
	}
	body := tu.Functions()[0].Body
	if !r.Rejected(body.Items[1]) {
		t.Errorf("expected second declaration to be rejected")
	}
	if r.Rejected(body.Items[0]) || r.Rejected(body.Items[2]) || r.Rejected(tu.Functions()[0]) {
		t.Errorf("expected siblings and the function not to be rejected")
	}
	second := body.Items[1].(*ast.Declaration).Items[0].Declarator
	if r.Decls[second] != nil {
		t.Errorf("rejected redeclaration must not declare a symbol")
	}
}

func TestSameNameInBlockShadows(t *testing.T) {
	_, _, bag := analyze(t, `
struct a { int a; };
int main() {
	int a = 1;
	{ int a = 2; a = a + 1; }
	return a;
}`)
	if bag.Len() != 0 {
		t.Errorf("expected shadowing and separate tag namespace to be fine, got %v", bag.All())
	}
}

func TestUndeclaredIdentifier(t *testing.T) {
	tu, r, bag := analyze(t, `
int main() {
	int x = 1;
	y = 2;
	x = 3;
	return x;
}`)
	errs := bag.Errors()
	if len(errs) != 1 || errs[0].Code != diag.Undeclared {
		t.Fatalf("expected one undeclared error, got %v", errs)
	}
	body := tu.Functions()[0].Body
	if !r.Rejected(body.Items[1]) || r.Rejected(body.Items[2]) {
		t.Errorf("expected only the offending statement to be rejected")
	}
}

func TestTypeErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.sema")
	defer teardown()
	//
	cases := []struct {
		src  string
		code diag.Code
	}{
		{"struct p { int x; }; int main() { struct p s; int i = s; return 0; }", diag.Incompatible},
		{"int main() { int a[3]; int b[3]; a = b; return 0; }", diag.Incompatible},
		{"int main() { 3 = 4; return 0; }", diag.Incompatible},
		{"int main() { int x; x(); return 0; }", diag.NotCallable},
		{"int f(int a) { return a; } int main() { return f(1, 2); }", diag.ArgumentCount},
		{"struct p { int x; }; int main() { struct p s; s.y = 1; return 0; }", diag.UnknownMember},
		{"int main() { void v; return 0; }", diag.InvalidType},
		{"int main() { unsigned float f; return 0; }", diag.InvalidType},
		{"int main() { struct nope s; return 0; }", diag.Undeclared},
	}
	for _, c := range cases {
		_, _, bag := analyze(t, c.src)
		errs := bag.Errors()
		if len(errs) == 0 || errs[0].Code != c.code {
			t.Errorf("%s: expected error %s, got %v", c.src, c.code, errs)
		}
	}
}

func TestUninitializedWarnsOnce(t *testing.T) {
	_, _, bag := analyze(t, `
int main() {
	int x;
	int y = x + 1;
	int z = x + 2;
	int w;
	w = 7;
	return y + z + w;
}`)
	w := bag.WithCode(diag.Uninitialized)
	if len(w) != 1 || w[0].Loc.Line != 4 {
		t.Errorf("expected exactly one uninitialized warning at line 4, got %v", w)
	}
	if len(bag.Errors()) != 0 {
		t.Errorf("expected no errors, got %v", bag.Errors())
	}
}

func TestAddressOfCountsAsInitialization(t *testing.T) {
	_, _, bag := analyze(t, `
void set(int *p) { *p = 1; }
int main() {
	int x;
	set(&x);
	return x;
}`)
	if len(bag.WithCode(diag.Uninitialized)) != 0 {
		t.Errorf("expected no uninitialized warning, got %v", bag.All())
	}
}

func TestPointerMismatchWarnings(t *testing.T) {
	_, r, bag := analyze(t, `
int main() {
	int x = 1;
	char c = 'a';
	int *p = &c;
	int *q = 0;
	int *z = 5;
	long l = p;
	void *v = &x;
	return 0;
}`)
	w := bag.WithCode(diag.PointerMismatch)
	if len(w) != 3 {
		t.Errorf("expected three pointer mismatch warnings, got %v", w)
	}
	if r.RejectedCount() != 0 {
		t.Errorf("warnings must not reject anything")
	}
}

func TestMissingReturn(t *testing.T) {
	tu, r, bag := analyze(t, `
int f(int a) {
	if (a > 0) {
		return 1;
	}
}
int g(int a) {
	if (a > 0) return 1; else return 2;
}
int h(int a) {
	while (1) { if (a) return a; }
}
int k(int a) {
	switch (a) {
	case 1: return 1;
	default: return 0;
	}
}
int main() { }`)
	w := bag.WithCode(diag.MissingReturn)
	if len(w) != 1 || w[0].Loc.Line != 2 {
		t.Errorf("expected one missing return warning for f, got %v", w)
	}
	fns := tu.Functions()
	if !r.FallsThrough(fns[0]) || r.FallsThrough(fns[1]) || r.FallsThrough(fns[2]) || r.FallsThrough(fns[3]) {
		t.Errorf("wrong fall-through findings")
	}
}

func TestPrototypeThenDefinition(t *testing.T) {
	_, r, bag := analyze(t, `
int fact(int n);
int main() { return fact(5); }
int fact(int n) { if (n <= 1) return 1; return n * fact(n - 1); }
`)
	if bag.Len() != 0 {
		t.Errorf("expected prototype and definition to match, got %v", bag.All())
	}
	if r.Functions["fact"].Def == nil {
		t.Errorf("expected definition to be attached to the prototype's signature")
	}
}

func TestConstantsAndTypes(t *testing.T) {
	tu, r, bag := analyze(t, `
enum color { RED, GREEN = 5, BLUE };
struct point { char c; int x; double d; };
int main() {
	struct point p;
	int n = sizeof(struct point);
	int m = sizeof p.c;
	int arr[] = { 1, 2, 3 };
	switch (n) {
	case BLUE: break;
	}
	return arr[0];
}`)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics %v", bag.All())
	}
	body := tu.Functions()[0].Body
	sz := body.Items[1].(*ast.Declaration).Items[0].Init
	if r.Consts[sz] != 16 {
		t.Errorf("expected sizeof(struct point) = 16, got %d", r.Consts[sz])
	}
	arr := body.Items[3].(*ast.Declaration).Items[0].Declarator
	if sym := r.Decls[arr]; sym == nil || sym.Size != 12 {
		t.Errorf("expected array completed to 3 ints")
	}
	sw := body.Items[4].(*ast.SelectionStatement)
	lbl := sw.Then.(*ast.CompoundStatement).Items[0]
	if r.Consts[lbl] != 6 {
		t.Errorf("expected case BLUE to be 6, got %d", r.Consts[lbl])
	}
}

func TestStatementsOutOfContext(t *testing.T) {
	_, _, bag := analyze(t, `
int main() {
	break;
	return;
}`)
	if len(bag.Errors()) != 1 {
		t.Errorf("expected break outside loop to be an error, got %v", bag.Errors())
	}
	if len(bag.WithCode(diag.MissingReturn)) != 1 {
		t.Errorf("expected return without value to warn")
	}
}
