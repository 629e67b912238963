package ast

import (
	"testing"

	"github.com/npillmayer/csim"
)

func ident(name string) *Declarator {
	return &Declarator{Form: DeclIdent, Ident: &Identifier{Name: name}}
}

func intLit(v int64) *Literal {
	return &Literal{Lit: IntLiteral, Int: v}
}

// int *a[3]
func pointerArray() *Declarator {
	arr := &Declarator{Form: DeclArray, Inner: ident("a"), Size: intLit(3)}
	return &Declarator{Form: DeclPointer, Pointer: &Pointer{}, Inner: arr}
}

func TestDeclaratorChain(t *testing.T) {
	d := pointerArray()
	if d.Name() != "a" {
		t.Errorf("expected declarator name 'a', got %q", d.Name())
	}
	if d.Indirection() != 1 {
		t.Errorf("expected indirection 1, got %d", d.Indirection())
	}
	if dims := d.Dimensions(); len(dims) != 1 || dims[0].(*Literal).Int != 3 {
		t.Errorf("expected dimensions [3], got %v", dims)
	}
	if d.IsFunction() {
		t.Errorf("pointer array is not a function")
	}
	if d.String() != "pointer→array→identifier(a)" {
		t.Errorf("unexpected chain %s", d.String())
	}
}

func TestDimensionsSourceOrder(t *testing.T) {
	// m[2][5]: suffixes wrap left to right, outermost link is [5]
	inner := &Declarator{Form: DeclArray, Inner: ident("m"), Size: intLit(2)}
	d := &Declarator{Form: DeclArray, Inner: inner, Size: intLit(5)}
	dims := d.Dimensions()
	if len(dims) != 2 || dims[0].(*Literal).Int != 2 || dims[1].(*Literal).Int != 5 {
		t.Errorf("expected dimensions [2 5], got %v", dims)
	}
}

func TestFunctionDeclarator(t *testing.T) {
	voidParam := &Declaration{
		Specifiers: []string{"void"},
		Items:      []*InitDeclarator{{Declarator: &Declarator{Form: DeclIdent}}},
	}
	fn := &Declarator{Form: DeclFunction, Inner: ident("f"), ParamList: []*Declaration{voidParam}}
	d := &Declarator{Form: DeclPointer, Pointer: &Pointer{}, Inner: fn}
	if !d.IsFunction() {
		t.Fatalf("expected function declarator")
	}
	if d.Params() != nil {
		t.Errorf("expected (void) to yield no parameters, got %d", len(d.Params()))
	}
	if d.ResultIndirection() != 1 {
		t.Errorf("expected result indirection 1, got %d", d.ResultIndirection())
	}
	if d.Indirection() != 0 {
		t.Errorf("expected object indirection 0, got %d", d.Indirection())
	}
	f := &Function{Specifiers: []string{"void"}, Declarator: d}
	if f.IsVoid() {
		t.Errorf("void* function does not return void")
	}
}

func TestTypedNil(t *testing.T) {
	var c *CompoundStatement
	if !IsNil(c) {
		t.Errorf("typed nil not recognized")
	}
	if IsNil(&Identifier{}) {
		t.Errorf("non-nil node reported as nil")
	}
}

func TestInspectSourceOrder(t *testing.T) {
	// int x = y + 1; return x;
	decl := &Declaration{
		Specifiers: []string{"int"},
		Items: []*InitDeclarator{{
			Declarator: ident("x"),
			Init: &Expression{Op: OpAdd, Operands: []Node{
				&Identifier{Name: "y"}, intLit(1),
			}},
		}},
	}
	ret := &JumpStatement{Keyword: "return", Value: &Identifier{Name: "x"}}
	block := &CompoundStatement{Items: []Node{decl, ret}, At: csim.At(1, 1)}
	var names []string
	Inspect(block, func(n Node) bool {
		if id, ok := n.(*Identifier); ok {
			names = append(names, id.Name)
		}
		return true
	})
	if len(names) != 3 || names[0] != "x" || names[1] != "y" || names[2] != "x" {
		t.Errorf("expected identifiers [x y x], got %v", names)
	}
}

func TestInspectPrune(t *testing.T) {
	sel := &SelectionStatement{
		Keyword: "if",
		Cond:    &Identifier{Name: "c"},
		Then:    &CompoundStatement{Items: []Node{&JumpStatement{Keyword: "break"}}},
	}
	count := 0
	Inspect(sel, func(n Node) bool {
		if n == nil {
			return false
		}
		count++
		_, isBlock := n.(*CompoundStatement)
		return !isBlock
	})
	if count != 3 {
		t.Errorf("expected 3 visited nodes, got %d", count)
	}
}

func TestOperators(t *testing.T) {
	if !OpShlAssign.IsAssignment() || OpEq.IsAssignment() {
		t.Errorf("assignment predicate broken")
	}
	if OpModAssign.Arithmetic() != OpMod {
		t.Errorf("expected %% for %%=, got %s", OpModAssign.Arithmetic())
	}
	if OpPtrMember.String() != "->" {
		t.Errorf("unexpected operator name %s", OpPtrMember)
	}
	if KindTagname.String() != "Tagname" {
		t.Errorf("unexpected kind name %s", KindTagname)
	}
}
