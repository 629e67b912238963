package runtime

import (
	"errors"
	"fmt"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/csim/diag"
)

// === Scopes ================================================================

// ScopeKind classifies scopes and the frames bound to them.
type ScopeKind int8

// Scope kinds. Heap and data scopes belong to the pseudo-frames of a call
// stack.
const (
	GlobalScope ScopeKind = iota
	FunctionScope // parameter list and outermost block of a function body
	BlockScope
	HeapScope
	DataScope
)

func (k ScopeKind) String() string {
	switch k {
	case GlobalScope:
		return "global"
	case FunctionScope:
		return "function"
	case BlockScope:
		return "block"
	case HeapScope:
		return "heap"
	case DataScope:
		return "data"
	}
	return "?"
}

// Scope is a named scope, which may contain symbol definitions. Scopes link back to a
// parent scope, forming a tree.
type Scope struct {
	Name   string
	Kind   ScopeKind
	Parent *Scope
	symtab *SymbolTable
}

var _ ctype.Env = (*Scope)(nil)

// NewScope creates a new scope.
func NewScope(nm string, kind ScopeKind, parent *Scope) *Scope {
	return &Scope{
		Name:   nm,
		Kind:   kind,
		Parent: parent,
		symtab: NewSymbolTable(),
	}
}

// Prettyfied Stringer.
func (s *Scope) String() string {
	return fmt.Sprintf("<%s scope %s>", s.Kind, s.Name)
}

// Symbols returns the symbol table of a scope.
func (s *Scope) Symbols() *SymbolTable {
	return s.symtab
}

// Insert defines a symbol in the scope. Fails with ErrRedeclared if the
// scope already holds the name in the symbol's namespace.
func (s *Scope) Insert(sym *Symbol) error {
	return s.symtab.Insert(sym)
}

// Lookup finds a symbol. Returns the symbol (or nil) and the scope
// (of a scope-tree-path) the symbol was found in.
func (s *Scope) Lookup(name string, ns Namespace) (*Symbol, *Scope) {
	for sc := s; sc != nil; sc = sc.Parent {
		if sym := sc.symtab.Lookup(name, ns); sym != nil {
			return sym, sc
		}
	}
	return nil, nil
}

// --- Type environment ------------------------------------------------------

// LookupTypedef is part of interface ctype.Env.
func (s *Scope) LookupTypedef(name string) (*ctype.Type, bool) {
	sym, _ := s.Lookup(name, Ordinary)
	if sym == nil || sym.Kind != Typedef {
		return nil, false
	}
	return sym.Type, true
}

// LookupTag is part of interface ctype.Env.
func (s *Scope) LookupTag(name string) (*ctype.Type, bool) {
	sym, _ := s.Lookup(name, TagSpace)
	if sym == nil {
		return nil, false
	}
	return sym.Type, true
}

// LocalTag is part of interface ctype.Env.
func (s *Scope) LocalTag(name string) (*ctype.Type, bool) {
	sym := s.symtab.Lookup(name, TagSpace)
	if sym == nil {
		return nil, false
	}
	return sym.Type, true
}

// DefineTag is part of interface ctype.Env.
func (s *Scope) DefineTag(name string, t *ctype.Type, at csim.Location) error {
	sym := &Symbol{Name: name, Namespace: TagSpace, Kind: Tag, Type: t, Initialized: true, At: at}
	return s.define(sym)
}

// LookupConstant is part of interface ctype.Env.
func (s *Scope) LookupConstant(name string) (int64, bool) {
	sym, _ := s.Lookup(name, Ordinary)
	if sym == nil || sym.Kind != EnumConstant {
		return 0, false
	}
	v, ok := sym.Value.(int64)
	return v, ok
}

// DefineConstant is part of interface ctype.Env.
func (s *Scope) DefineConstant(name string, v int64, at csim.Location) error {
	sym := NewSymbol(name, EnumConstant).WithType(ctype.IntType)
	sym.Value, sym.Initialized, sym.At = v, true, at
	return s.define(sym)
}

// define inserts a symbol and converts a redeclaration into a semantic error.
func (s *Scope) define(sym *Symbol) error {
	if err := s.Insert(sym); err != nil {
		if errors.Is(err, ErrRedeclared) {
			return diag.Semanticf(diag.Redeclared, sym.At, "redeclaration of %s %q", sym.Kind, sym.Name)
		}
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------

// ScopeTree can be treated as a stack during static analysis, thus
// building a tree from scopes which are pushed an popped to/from the stack.
type ScopeTree struct {
	ScopeBase *Scope
	ScopeTOS  *Scope
}

// Current gets the current scope of a stack (TOS).
func (scst *ScopeTree) Current() *Scope {
	if scst.ScopeTOS == nil {
		panic("attempt to access scope from empty stack")
	}
	return scst.ScopeTOS
}

// Globals gets the outermost scope, containing global symbols.
func (scst *ScopeTree) Globals() *Scope {
	if scst.ScopeBase == nil {
		panic("attempt to access global scope from empty stack")
	}
	return scst.ScopeBase
}

// PushNewScope pushes a scope onto the stack of scopes. A scope is constructed,
// including a symbol table for declarations.
func (scst *ScopeTree) PushNewScope(nm string, kind ScopeKind) *Scope {
	scp := scst.ScopeTOS
	newsc := NewScope(nm, kind, scp)
	if scp == nil { // the new scope is the global scope
		scst.ScopeBase = newsc
	}
	scst.ScopeTOS = newsc
	tracer().P("scope", newsc.Name).Debugf("pushing new scope")
	return newsc
}

// PopScope pops the top-most (recent) scope.
func (scst *ScopeTree) PopScope() *Scope {
	if scst.ScopeTOS == nil {
		panic("attempt to pop scope from empty stack")
	}
	sc := scst.ScopeTOS
	tracer().Debugf("popping scope [%s]", sc.Name)
	scst.ScopeTOS = scst.ScopeTOS.Parent
	return sc
}
