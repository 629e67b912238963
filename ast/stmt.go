package ast

import "github.com/npillmayer/csim"

// CompoundStatement is a block `{ … }`. Items are declarations and statements.
type CompoundStatement struct {
	Items []Node
	At    csim.Location
}

func (n *CompoundStatement) Kind() Kind         { return KindCompoundStatement }
func (n *CompoundStatement) Loc() csim.Location { return n.At }
func (*CompoundStatement) astNode()             {}

// SelectionStatement is an `if` (with optional `else`) or a `switch`.
// For `switch`, Then holds the body and Else is nil.
type SelectionStatement struct {
	Keyword string // "if" or "switch"
	Cond    Node
	Then    Node
	Else    Node
	At      csim.Location
}

func (n *SelectionStatement) Kind() Kind         { return KindSelectionStatement }
func (n *SelectionStatement) Loc() csim.Location { return n.At }
func (*SelectionStatement) astNode()             {}

// IsSwitch is a predicate.
func (n *SelectionStatement) IsSwitch() bool {
	return n.Keyword == "switch"
}

// IterationStatement is a `while`, `do … while` or `for` loop.
// Init is a *Declaration, an expression or nil; Cond and Post may be nil.
type IterationStatement struct {
	Keyword string // "while", "do" or "for"
	Init    Node
	Cond    Node
	Post    Node
	Body    Node
	At      csim.Location
}

func (n *IterationStatement) Kind() Kind         { return KindIterationStatement }
func (n *IterationStatement) Loc() csim.Location { return n.At }
func (*IterationStatement) astNode()             {}

// JumpStatement is `return [expr]`, `break` or `continue`.
type JumpStatement struct {
	Keyword string // "return", "break" or "continue"
	Value   Node
	At      csim.Location
}

func (n *JumpStatement) Kind() Kind         { return KindJumpStatement }
func (n *JumpStatement) Loc() csim.Location { return n.At }
func (*JumpStatement) astNode()             {}

// LabeledStatement is a `case` or `default` label within a switch body,
// attached to the statement following it.
type LabeledStatement struct {
	Keyword string // "case" or "default"
	Value   Node   // case value, nil for default
	Stmt    Node
	At      csim.Location
}

func (n *LabeledStatement) Kind() Kind         { return KindLabeledStatement }
func (n *LabeledStatement) Loc() csim.Location { return n.At }
func (*LabeledStatement) astNode()             {}
