package runtime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/ctype"
)

// Symbol table for variables, functions, types and tags. Symbol tables are
// attached to scopes. Scopes are organized in a tree.

// ErrRedeclared is returned when inserting a name twice into one table.
var ErrRedeclared = errors.New("redeclared")

// ErrNotFound is returned when accessing an unknown symbol.
var ErrNotFound = errors.New("symbol not found")

// --- Symbols ---------------------------------------------------------------

// Namespace separates ordinary identifiers from tags and members, so that
// a struct tag and a variable may share spelling.
type Namespace int8

// Namespaces.
const (
	Ordinary Namespace = iota
	TagSpace
	MemberSpace
)

func (ns Namespace) String() string {
	switch ns {
	case Ordinary:
		return "ordinary"
	case TagSpace:
		return "tag"
	case MemberSpace:
		return "member"
	}
	return "?"
}

// SymbolKind classifies symbols.
type SymbolKind int8

// Symbol kinds.
const (
	Variable SymbolKind = iota
	Parameter
	Function
	Typedef
	EnumConstant
	Tag
)

var symbolKindNames = [...]string{"variable", "parameter", "function", "typedef", "enum constant", "tag"}

func (k SymbolKind) String() string {
	if int(k) < len(symbolKindNames) {
		return symbolKindNames[k]
	}
	return "?"
}

// Symbol is the type stored in symbol tables.
//
// For functions, Value holds the *ast.Function or, for native functions,
// a *Native marker. For enumeration constants Value holds an int64.
// Objects have a simulated Address and a Size.
type Symbol struct {
	Name        string
	Namespace   Namespace
	Kind        SymbolKind
	Specifiers  []string           // type specifiers as written
	Indirection int                // pointer indirection
	Dims        []int              // array dimensions, outermost first
	Params      []*ast.Declaration // parameter declarators of functions
	Initialized bool
	Native      bool
	Value       interface{}
	Address     uint64
	Size        int
	Type        *ctype.Type // resolved type; result type for functions
	At          csim.Location
}

// NewSymbol creates a symbol in the ordinary namespace.
func NewSymbol(name string, kind SymbolKind) *Symbol {
	return &Symbol{Name: name, Kind: kind}
}

// WithType sets the resolved type of a symbol together with the facts
// derived from it. Use as
//
//    sym := NewSymbol("x", Variable).WithType(ctype.IntType)
//
func (s *Symbol) WithType(t *ctype.Type) *Symbol {
	s.Type = t
	if t != nil {
		s.Indirection = t.Pointer
		s.Dims = t.Dims
		if s.Kind != Function {
			s.Size = t.Size()
		}
	}
	return s
}

// IsFunction is a predicate.
func (s *Symbol) IsFunction() bool {
	return s.Kind == Function
}

// IsObject is a predicate: does the symbol denote storage?
func (s *Symbol) IsObject() bool {
	return s.Kind == Variable || s.Kind == Parameter
}

// String is a debug Stringer for symbols.
func (s *Symbol) String() string {
	if s.Type != nil {
		return fmt.Sprintf("<%s %s '%s' : %s>", s.Namespace, s.Kind, s.Name, s.Type)
	}
	return fmt.Sprintf("<%s %s '%s' : %s>", s.Namespace, s.Kind, s.Name, strings.Join(s.Specifiers, " "))
}

// === Symbol Tables =========================================================

type symkey struct {
	ns   Namespace
	name string
}

// SymbolTable is a symbol table to store symbols (map-like semantics).
// Iteration follows insertion order.
type SymbolTable struct {
	table map[symkey]*Symbol
	order *arraylist.List
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		table: make(map[symkey]*Symbol),
		order: arraylist.New(),
	}
}

// Insert inserts a pre-created symbol. It fails with ErrRedeclared if the
// name is already present in the symbol's namespace.
func (t *SymbolTable) Insert(sym *Symbol) error {
	key := symkey{sym.Namespace, sym.Name}
	if _, exists := t.table[key]; exists {
		return fmt.Errorf("%w: %s name %q", ErrRedeclared, sym.Namespace, sym.Name)
	}
	t.table[key] = sym
	t.order.Add(sym)
	return nil
}

// Lookup checks for a symbol in the symbol table. Returns a symbol or nil.
func (t *SymbolTable) Lookup(name string, ns Namespace) *Symbol {
	return t.table[symkey{ns, name}]
}

// SetValue sets the value of a symbol.
func (t *SymbolTable) SetValue(name string, ns Namespace, v interface{}) error {
	sym := t.Lookup(name, ns)
	if sym == nil {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	sym.Value = v
	sym.Initialized = true
	return nil
}

// GetValue gets the value of a symbol.
func (t *SymbolTable) GetValue(name string, ns Namespace) (interface{}, error) {
	sym := t.Lookup(name, ns)
	if sym == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return sym.Value, nil
}

// Remove deletes a symbol and returns it, or nil if not present.
func (t *SymbolTable) Remove(name string, ns Namespace) *Symbol {
	key := symkey{ns, name}
	sym, ok := t.table[key]
	if !ok {
		return nil
	}
	delete(t.table, key)
	if i := t.order.IndexOf(sym); i >= 0 {
		t.order.Remove(i)
	}
	return sym
}

// Size counts the symbols in a symbol table.
func (t *SymbolTable) Size() int {
	return len(t.table)
}

// Each iterates over each symbol in the table in insertion order,
// executing a mapper function.
func (t *SymbolTable) Each(mapper func(*Symbol)) {
	t.order.Each(func(_ int, v interface{}) {
		mapper(v.(*Symbol))
	})
}

// Symbols returns the symbols in insertion order.
func (t *SymbolTable) Symbols() []*Symbol {
	syms := make([]*Symbol, 0, t.order.Size())
	t.Each(func(s *Symbol) { syms = append(syms, s) })
	return syms
}
