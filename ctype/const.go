package ctype

import (
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/diag"
)

// EvalConst evaluates an integer constant expression: literals, enumeration
// constants, sizeof(type), casts to integer types and operators on these.
func EvalConst(env Env, n ast.Node) (int64, error) {
	switch x := n.(type) {
	case *ast.Literal:
		if x.Lit == ast.IntLiteral || x.Lit == ast.CharLiteral {
			return x.Int, nil
		}
	case *ast.Identifier:
		if v, ok := env.LookupConstant(x.Name); ok {
			return v, nil
		}
		return 0, diag.Semanticf(diag.InvalidType, x.At, "%q is not an integer constant", x.Name)
	case *ast.Expression:
		return evalConstExpr(env, x)
	}
	return 0, diag.Semanticf(diag.InvalidType, n.Loc(), "not an integer constant expression")
}

func evalConstExpr(env Env, x *ast.Expression) (int64, error) {
	switch x.Op {
	case ast.OpSizeofType:
		t, err := TypeName(env, x.TypeName)
		if err != nil {
			return 0, err
		}
		return int64(t.Size()), nil
	case ast.OpCast:
		t, err := TypeName(env, x.TypeName)
		if err != nil {
			return 0, err
		}
		v, err := EvalConst(env, x.Operand(0))
		if err != nil || !t.IsInteger() {
			return v, err
		}
		v, _ = Truncate(v, t.Size(), t.IsSigned())
		return v, nil
	case ast.OpCond:
		c, err := EvalConst(env, x.Operand(0))
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return EvalConst(env, x.Operand(1))
		}
		return EvalConst(env, x.Operand(2))
	}
	operands := make([]int64, len(x.Operands))
	for i, o := range x.Operands {
		v, err := EvalConst(env, o)
		if err != nil {
			return 0, err
		}
		operands[i] = v
	}
	if len(operands) == 1 {
		a := operands[0]
		switch x.Op {
		case ast.OpNeg:
			return -a, nil
		case ast.OpPlus:
			return a, nil
		case ast.OpBitNot:
			return ^a, nil
		case ast.OpNot:
			return b2i(a == 0), nil
		}
	} else if len(operands) == 2 {
		a, b := operands[0], operands[1]
		switch x.Op {
		case ast.OpAdd:
			return a + b, nil
		case ast.OpSub:
			return a - b, nil
		case ast.OpMul:
			return a * b, nil
		case ast.OpDiv, ast.OpMod:
			if b == 0 {
				return 0, diag.Semanticf(diag.InvalidType, x.At, "division by zero in constant expression")
			}
			if x.Op == ast.OpDiv {
				return a / b, nil
			}
			return a % b, nil
		case ast.OpShl:
			return a << uint64(b), nil
		case ast.OpShr:
			return a >> uint64(b), nil
		case ast.OpBitAnd:
			return a & b, nil
		case ast.OpBitOr:
			return a | b, nil
		case ast.OpBitXor:
			return a ^ b, nil
		case ast.OpLt:
			return b2i(a < b), nil
		case ast.OpGt:
			return b2i(a > b), nil
		case ast.OpLe:
			return b2i(a <= b), nil
		case ast.OpGe:
			return b2i(a >= b), nil
		case ast.OpEq:
			return b2i(a == b), nil
		case ast.OpNe:
			return b2i(a != b), nil
		case ast.OpLogAnd:
			return b2i(a != 0 && b != 0), nil
		case ast.OpLogOr:
			return b2i(a != 0 || b != 0), nil
		}
	}
	return 0, diag.Semanticf(diag.InvalidType, x.At, "operator %s not allowed in constant expression", x.Op)
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
