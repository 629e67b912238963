package runtime

import (
	"errors"
	"testing"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestNewSymTab(t *testing.T) {
	symtab := NewSymbolTable()
	if symtab == nil || symtab.Size() != 0 {
		t.Error("no empty symbol table created")
	}
}

func TestInsertAndLookup(t *testing.T) {
	symtab := NewSymbolTable()
	sym := NewSymbol("x", Variable).WithType(ctype.IntType)
	if err := symtab.Insert(sym); err != nil {
		t.Fatal(err)
	}
	if s := symtab.Lookup("x", Ordinary); s != sym {
		t.Error("cannot find stored symbol in table")
	}
	if sym.Size != 4 {
		t.Errorf("expected size 4 for int symbol, got %d", sym.Size)
	}
	if symtab.Lookup("x", TagSpace) != nil {
		t.Error("symbol must not be visible in tag namespace")
	}
}

func TestDuplicateInsertFails(t *testing.T) {
	symtab := NewSymbolTable()
	_ = symtab.Insert(NewSymbol("x", Variable))
	err := symtab.Insert(NewSymbol("x", Variable))
	if !errors.Is(err, ErrRedeclared) {
		t.Errorf("expected ErrRedeclared, got %v", err)
	}
	if symtab.Size() != 1 {
		t.Errorf("failed insert must not change the table, size is %d", symtab.Size())
	}
}

func TestNamespacesAreSeparate(t *testing.T) {
	symtab := NewSymbolTable()
	if err := symtab.Insert(NewSymbol("node", Variable)); err != nil {
		t.Fatal(err)
	}
	tag := &Symbol{Name: "node", Namespace: TagSpace, Kind: Tag}
	if err := symtab.Insert(tag); err != nil {
		t.Errorf("tag and variable should share spelling, got %v", err)
	}
	if symtab.Size() != 2 {
		t.Errorf("expected 2 symbols, got %d", symtab.Size())
	}
}

func TestValues(t *testing.T) {
	symtab := NewSymbolTable()
	_ = symtab.Insert(NewSymbol("x", Variable))
	if err := symtab.SetValue("x", Ordinary, int64(5)); err != nil {
		t.Fatal(err)
	}
	v, err := symtab.GetValue("x", Ordinary)
	if err != nil || v.(int64) != 5 {
		t.Errorf("expected value 5, got %v (%v)", v, err)
	}
	if !symtab.Lookup("x", Ordinary).Initialized {
		t.Errorf("SetValue should mark the symbol initialized")
	}
	if _, err := symtab.GetValue("y", Ordinary); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertionOrderAndRemove(t *testing.T) {
	symtab := NewSymbolTable()
	for _, name := range []string{"c", "a", "b"} {
		_ = symtab.Insert(NewSymbol(name, Variable))
	}
	if symtab.Remove("a", Ordinary) == nil {
		t.Fatal("expected to remove 'a'")
	}
	var names []string
	symtab.Each(func(s *Symbol) { names = append(names, s.Name) })
	if len(names) != 2 || names[0] != "c" || names[1] != "b" {
		t.Errorf("expected [c b], got %v", names)
	}
	if symtab.Remove("a", Ordinary) != nil {
		t.Errorf("removing twice should yield nil")
	}
}

func TestScopeUpsearch(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.runtime")
	defer teardown()
	//
	st := &ScopeTree{}
	global := st.PushNewScope("globals", GlobalScope)
	_ = global.Insert(NewSymbol("x", Variable))
	_ = global.Insert(NewSymbol("y", Variable))
	fn := st.PushNewScope("f", FunctionScope)
	inner := NewSymbol("x", Variable)
	_ = fn.Insert(inner)
	block := st.PushNewScope("block", BlockScope)
	if sym, sc := block.Lookup("x", Ordinary); sym != inner || sc != fn {
		t.Errorf("expected nearest binding of x in function scope, found %v in %v", sym, sc)
	}
	if sym, sc := block.Lookup("y", Ordinary); sym == nil || sc != global {
		t.Errorf("expected y in global scope")
	}
	if sym, sc := block.Lookup("z", Ordinary); sym != nil || sc != nil {
		t.Errorf("expected z not to be found")
	}
	st.PopScope()
	st.PopScope()
	if st.Current() != global {
		t.Errorf("expected global scope as TOS after popping")
	}
}

func TestScopeTypeEnv(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.runtime")
	defer teardown()
	//
	sc := NewScope("globals", GlobalScope, nil)
	if err := sc.DefineConstant("RED", 0, csim.At(1, 1)); err != nil {
		t.Fatal(err)
	}
	err := sc.DefineConstant("RED", 1, csim.At(2, 1))
	var semerr *diag.SemanticError
	if !errors.As(err, &semerr) || semerr.Code != diag.Redeclared {
		t.Errorf("expected redeclaration error, got %v", err)
	}
	td := NewSymbol("uint", Typedef).WithType(ctype.UIntType)
	_ = sc.Insert(td)
	block := NewScope("block", BlockScope, sc)
	if typ, ok := block.LookupTypedef("uint"); !ok || !typ.Unsigned {
		t.Errorf("typedef not found through block scope")
	}
	if v, ok := block.LookupConstant("RED"); !ok || v != 0 {
		t.Errorf("enum constant not found through block scope")
	}
}

func TestNativesDeclared(t *testing.T) {
	rt := NewRuntimeEnvironment(10)
	sym, _ := rt.Globals.Lookup("printf", Ordinary)
	if sym == nil || !sym.Native || !sym.IsFunction() {
		t.Fatalf("printf should be a native function symbol")
	}
	if n, ok := sym.Value.(*Native); !ok || !n.Variadic {
		t.Errorf("printf should carry a variadic native marker")
	}
}
