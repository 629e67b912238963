package ast

import (
	"fmt"

	"github.com/npillmayer/csim"
)

// Kind is the variant tag of a node.
type Kind int8

// Node variants.
const (
	KindTranslationUnit Kind = iota
	KindDeclaration
	KindExpression
	KindLiteral
	KindCompoundStatement
	KindSelectionStatement
	KindIterationStatement
	KindJumpStatement
	KindLabeledStatement
	KindFunction
	KindEnum
	KindEnumerator
	KindStructUnion
	KindTypedef
	KindDeclarator
	KindPointer
	KindIdentifier
	KindTagname
)

var kindNames = [...]string{
	"TranslationUnit", "Declaration", "Expression", "Literal", "CompoundStatement",
	"SelectionStatement", "IterationStatement", "JumpStatement", "LabeledStatement",
	"Function", "Enum", "Enumerator", "StructUnion", "Typedef", "Declarator",
	"Pointer", "Identifier", "Tagname",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Node is the interface all syntax nodes implement.
type Node interface {
	Kind() Kind
	Loc() csim.Location
	astNode()
}

// Every node variant satisfies Node.
var (
	_ Node = (*TranslationUnit)(nil)
	_ Node = (*Declaration)(nil)
	_ Node = (*Expression)(nil)
	_ Node = (*Literal)(nil)
	_ Node = (*CompoundStatement)(nil)
	_ Node = (*SelectionStatement)(nil)
	_ Node = (*IterationStatement)(nil)
	_ Node = (*JumpStatement)(nil)
	_ Node = (*LabeledStatement)(nil)
	_ Node = (*Function)(nil)
	_ Node = (*Enum)(nil)
	_ Node = (*Enumerator)(nil)
	_ Node = (*StructUnion)(nil)
	_ Node = (*Typedef)(nil)
	_ Node = (*Declarator)(nil)
	_ Node = (*Pointer)(nil)
	_ Node = (*Identifier)(nil)
	_ Node = (*Tagname)(nil)
)

// TranslationUnit is the root of a parsed source: a list of external
// declarations (*Declaration, *Function, *Typedef).
type TranslationUnit struct {
	Name  string
	Decls []Node
	At    csim.Location
}

func (n *TranslationUnit) Kind() Kind         { return KindTranslationUnit }
func (n *TranslationUnit) Loc() csim.Location { return n.At }
func (*TranslationUnit) astNode()             {}

// Functions returns all function definitions of a translation unit.
func (n *TranslationUnit) Functions() []*Function {
	var fns []*Function
	for _, d := range n.Decls {
		if f, ok := d.(*Function); ok {
			fns = append(fns, f)
		}
	}
	return fns
}

// Identifier is a name occuring in a declarator or in an expression.
type Identifier struct {
	Name string
	At   csim.Location
}

func (n *Identifier) Kind() Kind         { return KindIdentifier }
func (n *Identifier) Loc() csim.Location { return n.At }
func (*Identifier) astNode()             {}

func (n *Identifier) String() string {
	return n.Name
}

// IsNil is a helper to check interface values holding typed nil pointers.
func IsNil(n Node) bool {
	if n == nil {
		return true
	}
	switch x := n.(type) {
	case *TranslationUnit:
		return x == nil
	case *Declaration:
		return x == nil
	case *Expression:
		return x == nil
	case *Literal:
		return x == nil
	case *CompoundStatement:
		return x == nil
	case *SelectionStatement:
		return x == nil
	case *IterationStatement:
		return x == nil
	case *JumpStatement:
		return x == nil
	case *LabeledStatement:
		return x == nil
	case *Function:
		return x == nil
	case *Enum:
		return x == nil
	case *Enumerator:
		return x == nil
	case *StructUnion:
		return x == nil
	case *Typedef:
		return x == nil
	case *Declarator:
		return x == nil
	case *Pointer:
		return x == nil
	case *Identifier:
		return x == nil
	case *Tagname:
		return x == nil
	}
	return false
}
