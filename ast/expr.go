package ast

import (
	"fmt"

	"github.com/npillmayer/csim"
)

// Operator is the operator of an Expression node.
type Operator int8

// Operators. Binary operators have two operands, unary ones have one.
// OpCall has the callee as first operand, followed by the arguments.
const (
	OpNone Operator = iota
	// binary arithmetic and bitwise
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpBitAnd
	OpBitOr
	OpBitXor
	// comparison and logical
	OpLt
	OpGt
	OpLe
	OpGe
	OpEq
	OpNe
	OpLogAnd
	OpLogOr
	// assignment
	OpAssign
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
	OpModAssign
	OpShlAssign
	OpShrAssign
	OpAndAssign
	OpOrAssign
	OpXorAssign
	// unary
	OpNeg
	OpPlus
	OpNot
	OpBitNot
	OpDeref
	OpAddrOf
	OpPreInc
	OpPreDec
	OpPostInc
	OpPostDec
	OpSizeofExpr
	OpSizeofType
	OpCast
	// postfix and others
	OpCall
	OpIndex
	OpMember
	OpPtrMember
	OpCond
	OpComma
	OpInitList
)

var opNames = map[Operator]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpShl: "<<", OpShr: ">>",
	OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^", OpLt: "<", OpGt: ">", OpLe: "<=", OpGe: ">=",
	OpEq: "==", OpNe: "!=", OpLogAnd: "&&", OpLogOr: "||", OpAssign: "=", OpAddAssign: "+=",
	OpSubAssign: "-=", OpMulAssign: "*=", OpDivAssign: "/=", OpModAssign: "%=", OpShlAssign: "<<=",
	OpShrAssign: ">>=", OpAndAssign: "&=", OpOrAssign: "|=", OpXorAssign: "^=", OpNeg: "-",
	OpPlus: "+", OpNot: "!", OpBitNot: "~", OpDeref: "*", OpAddrOf: "&", OpPreInc: "++",
	OpPreDec: "--", OpPostInc: "++", OpPostDec: "--", OpSizeofExpr: "sizeof", OpSizeofType: "sizeof",
	OpCast: "cast", OpCall: "call", OpIndex: "[]", OpMember: ".", OpPtrMember: "->", OpCond: "?:",
	OpComma: ",", OpInitList: "{}",
}

func (op Operator) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", op)
}

// IsAssignment is a predicate for simple and compound assignment operators.
func (op Operator) IsAssignment() bool {
	return op >= OpAssign && op <= OpXorAssign
}

// Arithmetic returns the binary operator underlying a compound assignment,
// e.g. OpAdd for OpAddAssign. For other operators it returns OpNone.
func (op Operator) Arithmetic() Operator {
	switch op {
	case OpAddAssign:
		return OpAdd
	case OpSubAssign:
		return OpSub
	case OpMulAssign:
		return OpMul
	case OpDivAssign:
		return OpDiv
	case OpModAssign:
		return OpMod
	case OpShlAssign:
		return OpShl
	case OpShrAssign:
		return OpShr
	case OpAndAssign:
		return OpBitAnd
	case OpOrAssign:
		return OpBitOr
	case OpXorAssign:
		return OpBitXor
	}
	return OpNone
}

// IsComparison is a predicate for relational and equality operators.
func (op Operator) IsComparison() bool {
	return op >= OpLt && op <= OpNe
}

// Expression is an operator applied to operands.
// Casts and sizeof(type) carry the type name as a declaration with a single,
// abstract declarator. Member access carries the member name.
type Expression struct {
	Op       Operator
	Operands []Node
	TypeName *Declaration
	Member   string
	At       csim.Location
}

func (n *Expression) Kind() Kind         { return KindExpression }
func (n *Expression) Loc() csim.Location { return n.At }
func (*Expression) astNode()             {}

// Operand returns the i-th operand or nil.
func (n *Expression) Operand(i int) Node {
	if i < len(n.Operands) {
		return n.Operands[i]
	}
	return nil
}

// LiteralKind distinguishes constants.
type LiteralKind int8

// Literal kinds.
const (
	IntLiteral LiteralKind = iota
	FloatLiteral
	CharLiteral
	StringLiteral
)

// Literal is a constant as it appears in the source. The parser decodes
// the value; its C type is determined by consumers.
type Literal struct {
	Lit      LiteralKind
	Text     string  // lexeme as written
	Int      int64   // IntLiteral, CharLiteral
	Float    float64 // FloatLiteral
	Str      string  // StringLiteral, escapes decoded
	Unsigned bool    // `u` suffix
	Long     bool    // `l` suffix
	At       csim.Location
}

func (n *Literal) Kind() Kind         { return KindLiteral }
func (n *Literal) Loc() csim.Location { return n.At }
func (*Literal) astNode()             {}

func (n *Literal) String() string {
	return n.Text
}
