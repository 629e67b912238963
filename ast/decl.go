package ast

import (
	"strings"

	"github.com/npillmayer/csim"
)

// --- Declarations ----------------------------------------------------------

// Declaration is a declaration of zero or more objects or functions sharing a
// list of specifiers, e.g. `static unsigned int x = 1, *p;`.
//
// Storage class keywords are stripped from Specifiers and kept in Storage.
// For tagged types (struct, union, enum) TypeSpec holds a *StructUnion, *Enum
// or *Tagname, and Specifiers holds the keyword only.
// Parameter declarations have exactly one item, possibly with an abstract
// declarator.
type Declaration struct {
	Storage    string   // "", "static", "extern", "auto", "register"
	Specifiers []string // type specifiers and qualifiers in source order
	TypeSpec   Node     // *StructUnion, *Enum, *Tagname or nil
	Items      []*InitDeclarator
	At         csim.Location
}

func (n *Declaration) Kind() Kind         { return KindDeclaration }
func (n *Declaration) Loc() csim.Location { return n.At }
func (*Declaration) astNode()             {}

// InitDeclarator is a declarator together with an optional initializer.
// Init is an expression, a literal, or an initializer list (an Expression with
// operator OpInitList).
type InitDeclarator struct {
	Declarator *Declarator
	Init       Node
}

// Typedef declares type names, e.g. `typedef struct node *nodeptr;`.
type Typedef struct {
	Specifiers  []string
	TypeSpec    Node // *StructUnion, *Enum, *Tagname or nil
	Declarators []*Declarator
	At          csim.Location
}

func (n *Typedef) Kind() Kind         { return KindTypedef }
func (n *Typedef) Loc() csim.Location { return n.At }
func (*Typedef) astNode()             {}

// Function is a function definition.
type Function struct {
	Storage    string
	Specifiers []string
	TypeSpec   Node
	Declarator *Declarator // chain containing a DeclFunction node
	Body       *CompoundStatement
	At         csim.Location
}

func (n *Function) Kind() Kind         { return KindFunction }
func (n *Function) Loc() csim.Location { return n.At }
func (*Function) astNode()             {}

// Name returns the name of the function.
func (n *Function) Name() string {
	return n.Declarator.Name()
}

// Params returns the parameter declarations of the function.
func (n *Function) Params() []*Declaration {
	return n.Declarator.Params()
}

// IsVoid is a predicate: does the function return void (and not a pointer to void)?
func (n *Function) IsVoid() bool {
	return len(n.Specifiers) == 1 && n.Specifiers[0] == "void" && n.Declarator.ResultIndirection() == 0
}

// --- Declarators -----------------------------------------------------------

// DeclaratorForm is the kind of a declarator chain link.
type DeclaratorForm int8

// Declarator forms.
const (
	DeclIdent DeclaratorForm = iota
	DeclParen
	DeclPointer
	DeclArray
	DeclFunction
)

func (f DeclaratorForm) String() string {
	switch f {
	case DeclIdent:
		return "identifier"
	case DeclParen:
		return "parenthesized"
	case DeclPointer:
		return "pointer"
	case DeclArray:
		return "array"
	case DeclFunction:
		return "function"
	}
	return "?"
}

// Declarator is a link in a declarator chain. The innermost link has form
// DeclIdent and carries the identifier (which is nil for abstract declarators).
type Declarator struct {
	Form      DeclaratorForm
	Inner     *Declarator    // nil for DeclIdent
	Ident     *Identifier    // DeclIdent only
	Pointer   *Pointer       // DeclPointer only
	Size      Node           // DeclArray only, nil for `[]`
	ParamList []*Declaration // DeclFunction only
	Variadic  bool           // DeclFunction only
	At        csim.Location
}

func (n *Declarator) Kind() Kind         { return KindDeclarator }
func (n *Declarator) Loc() csim.Location { return n.At }
func (*Declarator) astNode()             {}

// Identifier returns the identifier at the innermost link, or nil.
func (n *Declarator) Identifier() *Identifier {
	d := n
	for d != nil && d.Form != DeclIdent {
		d = d.Inner
	}
	if d == nil {
		return nil
	}
	return d.Ident
}

// Name returns the declared name, or "" for abstract declarators.
func (n *Declarator) Name() string {
	if id := n.Identifier(); id != nil {
		return id.Name
	}
	return ""
}

// FunctionLink returns the function link closest to the identifier, or nil.
func (n *Declarator) FunctionLink() *Declarator {
	var fn *Declarator
	for d := n; d != nil; d = d.Inner {
		if d.Form == DeclFunction {
			fn = d
		}
	}
	return fn
}

// IsFunction is a predicate: does the declarator declare a function?
func (n *Declarator) IsFunction() bool {
	return n != nil && n.FunctionLink() != nil
}

// Params returns the parameter declarations of a function declarator.
// A single `void` parameter is reported as an empty list.
func (n *Declarator) Params() []*Declaration {
	fn := n.FunctionLink()
	if fn == nil {
		return nil
	}
	if len(fn.ParamList) == 1 {
		p := fn.ParamList[0]
		if len(p.Specifiers) == 1 && p.Specifiers[0] == "void" &&
			(len(p.Items) == 0 || p.Items[0].Declarator.Name() == "" && p.Items[0].Declarator.Indirection() == 0) {
			return nil
		}
	}
	return fn.ParamList
}

// Indirection counts the pointer links of a declarator chain, excluding
// those outside a function link (which belong to the function's result).
func (n *Declarator) Indirection() int {
	cnt := 0
	for d := n; d != nil; d = d.Inner {
		if d.Form == DeclFunction {
			cnt = 0
		} else if d.Form == DeclPointer {
			cnt++
		}
	}
	return cnt
}

// ResultIndirection counts the pointer links applying to the result type of
// a function declarator.
func (n *Declarator) ResultIndirection() int {
	cnt := 0
	for d := n; d != nil && d.Form != DeclFunction; d = d.Inner {
		if d.Form == DeclPointer {
			cnt++
		}
	}
	return cnt
}

// Dimensions returns the array size expressions from outermost to innermost
// dimension, i.e. in source order (`a[3][4]` yields [3, 4]).
// Unspecified sizes (`[]`) are nil entries.
func (n *Declarator) Dimensions() []Node {
	var dims []Node
	for d := n; d != nil && d.Form != DeclFunction; d = d.Inner {
		if d.Form == DeclArray {
			dims = append([]Node{d.Size}, dims...)
		}
	}
	return dims
}

func (n *Declarator) String() string {
	var sb strings.Builder
	for d := n; d != nil; d = d.Inner {
		if sb.Len() > 0 {
			sb.WriteString("→")
		}
		sb.WriteString(d.Form.String())
		if d.Form == DeclIdent && d.Ident != nil {
			sb.WriteString("(" + d.Ident.Name + ")")
		}
	}
	return sb.String()
}

// Pointer is a `*` in a declarator, with optional qualifiers (`* const`).
type Pointer struct {
	Qualifiers []string
	At         csim.Location
}

func (n *Pointer) Kind() Kind         { return KindPointer }
func (n *Pointer) Loc() csim.Location { return n.At }
func (*Pointer) astNode()             {}

// --- Tagged types ----------------------------------------------------------

// Tagname references a struct, union or enum by tag, without a body.
type Tagname struct {
	Keyword string // "struct", "union" or "enum"
	Name    string
	At      csim.Location
}

func (n *Tagname) Kind() Kind         { return KindTagname }
func (n *Tagname) Loc() csim.Location { return n.At }
func (*Tagname) astNode()             {}

// StructUnion is a struct or union specifier with a member list.
// Name is empty for anonymous records.
type StructUnion struct {
	Keyword string // "struct" or "union"
	Name    string
	Members []*Declaration
	At      csim.Location
}

func (n *StructUnion) Kind() Kind         { return KindStructUnion }
func (n *StructUnion) Loc() csim.Location { return n.At }
func (*StructUnion) astNode()             {}

// IsUnion is a predicate.
func (n *StructUnion) IsUnion() bool {
	return n.Keyword == "union"
}

// Enum is an enum specifier with a list of enumerators.
type Enum struct {
	Name        string
	Enumerators []*Enumerator
	At          csim.Location
}

func (n *Enum) Kind() Kind         { return KindEnum }
func (n *Enum) Loc() csim.Location { return n.At }
func (*Enum) astNode()             {}

// Enumerator is a named enum constant with an optional explicit value.
type Enumerator struct {
	Name  string
	Value Node
	At    csim.Location
}

func (n *Enumerator) Kind() Kind         { return KindEnumerator }
func (n *Enumerator) Loc() csim.Location { return n.At }
func (*Enumerator) astNode()             {}
