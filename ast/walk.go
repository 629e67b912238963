package ast

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children
// of node with the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST in depth-first order, children in source order.
// It starts by calling v.Visit(node); node must not be nil.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}
	switch n := node.(type) {
	case *TranslationUnit:
		walkList(v, n.Decls)
	case *Declaration:
		walkDeclaration(v, n)
	case *Typedef:
		walkNode(v, n.TypeSpec)
		for _, d := range n.Declarators {
			walkNode(v, d)
		}
	case *Function:
		walkNode(v, n.TypeSpec)
		walkNode(v, n.Declarator)
		walkNode(v, n.Body)
	case *Declarator:
		walkNode(v, n.Pointer)
		walkNode(v, n.Ident)
		walkNode(v, n.Inner)
		walkNode(v, n.Size)
		for _, p := range n.ParamList {
			walkNode(v, p)
		}
	case *StructUnion:
		for _, m := range n.Members {
			walkNode(v, m)
		}
	case *Enum:
		for _, e := range n.Enumerators {
			walkNode(v, e)
		}
	case *Enumerator:
		walkNode(v, n.Value)
	case *Expression:
		if n.TypeName != nil {
			walkNode(v, n.TypeName)
		}
		walkList(v, n.Operands)
	case *CompoundStatement:
		walkList(v, n.Items)
	case *SelectionStatement:
		walkNode(v, n.Cond)
		walkNode(v, n.Then)
		walkNode(v, n.Else)
	case *IterationStatement:
		if n.Keyword == "do" {
			walkNode(v, n.Body)
			walkNode(v, n.Cond)
			break
		}
		walkNode(v, n.Init)
		walkNode(v, n.Cond)
		walkNode(v, n.Post)
		walkNode(v, n.Body)
	case *JumpStatement:
		walkNode(v, n.Value)
	case *LabeledStatement:
		walkNode(v, n.Value)
		walkNode(v, n.Stmt)
	case *Literal, *Identifier, *Pointer, *Tagname:
		// leaves
	}
	v.Visit(nil)
}

func walkDeclaration(v Visitor, n *Declaration) {
	walkNode(v, n.TypeSpec)
	for _, item := range n.Items {
		walkNode(v, item.Declarator)
		walkNode(v, item.Init)
	}
}

func walkNode(v Visitor, n Node) {
	if !IsNil(n) {
		Walk(v, n)
	}
}

func walkList(v Visitor, list []Node) {
	for _, n := range list {
		walkNode(v, n)
	}
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses an AST in depth-first order: It starts by calling
// f(node); node must not be nil. If f returns true, Inspect invokes f
// recursively for each of the non-nil children of node, followed by a
// call of f(nil).
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}
