package parser

import (
	"errors"
	"testing"

	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func mustParse(t *testing.T, src string) *ast.TranslationUnit {
	t.Helper()
	tu, err := Parse("test.c", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return tu
}

func TestParseSimpleDeclarations(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.parser")
	defer teardown()
	//
	tu := mustParse(t, "int x = 5; static unsigned char c, *p;")
	if len(tu.Decls) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(tu.Decls))
	}
	d := tu.Decls[1].(*ast.Declaration)
	if d.Storage != "static" {
		t.Errorf("expected storage class static, got %q", d.Storage)
	}
	if len(d.Specifiers) != 2 || d.Specifiers[0] != "unsigned" || d.Specifiers[1] != "char" {
		t.Errorf("expected specifiers [unsigned char], got %v", d.Specifiers)
	}
	if len(d.Items) != 2 || d.Items[1].Declarator.Indirection() != 1 {
		t.Errorf("expected second item to be a pointer")
	}
}

func TestParseFunction(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.parser")
	defer teardown()
	//
	tu := mustParse(t, `
#include <stdio.h>
int factorial(int n) {
    if (n <= 1) return 1;
    return n * factorial(n - 1);
}
int main(void) { printf("%d\n", factorial(5)); return 0; }
`)
	fns := tu.Functions()
	if len(fns) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fns))
	}
	if fns[0].Name() != "factorial" || len(fns[0].Params()) != 1 {
		t.Errorf("factorial has wrong signature")
	}
	if fns[1].Name() != "main" || len(fns[1].Params()) != 0 {
		t.Errorf("main(void) should have no parameters")
	}
	if fns[0].At.Line != 3 {
		t.Errorf("expected factorial at line 3, got %s", fns[0].At)
	}
	ret := fns[0].Body.Items[1].(*ast.JumpStatement)
	mul := ret.Value.(*ast.Expression)
	if mul.Op != ast.OpMul || mul.Operand(1).(*ast.Expression).Op != ast.OpCall {
		t.Errorf("expected n * call, got %v", mul.Op)
	}
}

func TestParsePrecedence(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.parser")
	defer teardown()
	//
	tu := mustParse(t, "int x = 1 + 2 * 3 - 4;")
	init := tu.Decls[0].(*ast.Declaration).Items[0].Init.(*ast.Expression)
	// ((1 + (2*3)) - 4)
	if init.Op != ast.OpSub {
		t.Fatalf("expected top-level '-', got %s", init.Op)
	}
	add := init.Operand(0).(*ast.Expression)
	if add.Op != ast.OpAdd || add.Operand(1).(*ast.Expression).Op != ast.OpMul {
		t.Errorf("multiplication should bind tighter than addition")
	}
}

func TestParseDeclaratorChains(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.parser")
	defer teardown()
	//
	tu := mustParse(t, "int *a[3]; int m[2][5]; char **argv;")
	a := tu.Decls[0].(*ast.Declaration).Items[0].Declarator
	if a.String() != "pointer→array→identifier(a)" {
		t.Errorf("unexpected chain for *a[3]: %s", a)
	}
	m := tu.Decls[1].(*ast.Declaration).Items[0].Declarator
	dims := m.Dimensions()
	if len(dims) != 2 || dims[0].(*ast.Literal).Int != 2 || dims[1].(*ast.Literal).Int != 5 {
		t.Errorf("expected dimensions [2 5] for m")
	}
	argv := tu.Decls[2].(*ast.Declaration).Items[0].Declarator
	if argv.Indirection() != 2 {
		t.Errorf("expected indirection 2 for argv, got %d", argv.Indirection())
	}
}

func TestParseTypedefNames(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.parser")
	defer teardown()
	//
	tu := mustParse(t, `
typedef struct node { int value; struct node *next; } Node;
typedef Node *NodePtr;
int main(void) {
    Node n;
    NodePtr p = &n;
    int size = sizeof(Node);
    p->value = (int) size;
    return 0;
}`)
	td := tu.Decls[0].(*ast.Typedef)
	su := td.TypeSpec.(*ast.StructUnion)
	if su.Name != "node" || len(su.Members) != 2 {
		t.Errorf("expected struct node with 2 members")
	}
	body := tu.Functions()[0].Body
	if _, ok := body.Items[0].(*ast.Declaration); !ok {
		t.Errorf("expected 'Node n;' to parse as a declaration, got %T", body.Items[0])
	}
	assign := body.Items[3].(*ast.Expression)
	if assign.Operand(0).(*ast.Expression).Op != ast.OpPtrMember {
		t.Errorf("expected p->value on the left side")
	}
	if assign.Operand(1).(*ast.Expression).Op != ast.OpCast {
		t.Errorf("expected a cast on the right side")
	}
}

func TestParseStatements(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.parser")
	defer teardown()
	//
	tu := mustParse(t, `
int main(void) {
    int i, sum = 0;
    for (int j = 0; j < 10; j++) { sum += j; }
    while (sum > 0) sum--;
    do { i = 1; } while (0);
    switch (sum) { case 0: break; default: sum = 1; }
    if (sum) ; else { return 1; }
    return sum ? 0 : 1;
}`)
	items := tu.Functions()[0].Body.Items
	if len(items) != 7 {
		t.Fatalf("expected 7 block items, got %d", len(items))
	}
	loop := items[1].(*ast.IterationStatement)
	if _, ok := loop.Init.(*ast.Declaration); !ok || loop.Keyword != "for" {
		t.Errorf("expected for loop with declaration init")
	}
	sw := items[4].(*ast.SelectionStatement)
	if !sw.IsSwitch() || len(sw.Then.(*ast.CompoundStatement).Items) != 2 {
		t.Errorf("expected switch with two labeled statements")
	}
}

func TestParseInitializerList(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.parser")
	defer teardown()
	//
	tu := mustParse(t, `int a[3] = {1, 2, 3,}; char s[] = "hi" " there";`)
	list := tu.Decls[0].(*ast.Declaration).Items[0].Init.(*ast.Expression)
	if list.Op != ast.OpInitList || len(list.Operands) != 3 {
		t.Errorf("expected initializer list of 3 elements")
	}
	s := tu.Decls[1].(*ast.Declaration).Items[0].Init.(*ast.Literal)
	if s.Str != "hi there" {
		t.Errorf("expected concatenated string literal, got %q", s.Str)
	}
}

func TestParseErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.parser")
	defer teardown()
	//
	inputs := []string{
		"int x = ;",
		"int main(void) { return 0; ",
		"int main(void) { goto end; }",
		"int x = 1 $ 2;",
	}
	for _, input := range inputs {
		_, err := Parse("bad.c", input)
		var perr *Error
		if !errors.As(err, &perr) {
			t.Errorf("expected syntax error for %q, got %v", input, err)
			continue
		}
		t.Logf("%q → %v", input, err)
	}
}
