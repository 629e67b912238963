package sema

import (
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/csim/runtime"
)

// expr checks an expression and records its type.
func (a *Analyzer) expr(n ast.Node) (*ctype.Type, error) {
	t, err := a.exprType(n)
	if err != nil {
		return nil, err
	}
	a.result.Types[n] = t
	return t, nil
}

// rvalue checks an expression used for its value: arrays decay to pointers.
func (a *Analyzer) rvalue(n ast.Node) (*ctype.Type, error) {
	t, err := a.expr(n)
	if err != nil {
		return nil, err
	}
	return t.Decay(), nil
}

func (a *Analyzer) exprType(n ast.Node) (*ctype.Type, error) {
	switch x := n.(type) {
	case *ast.Identifier:
		sym, err := a.ident(x)
		if err != nil {
			return nil, err
		}
		a.checkInitialized(x, sym)
		return sym.Type, nil
	case *ast.Literal:
		return ctype.LiteralType(x), nil
	case *ast.Expression:
		return a.expression(x)
	}
	return nil, diag.Semanticf(diag.Unsupported, n.Loc(), "unexpected %s in expression", n.Kind())
}

// ident resolves an identifier to an object or enumeration constant.
func (a *Analyzer) ident(id *ast.Identifier) (*runtime.Symbol, error) {
	sym, _ := a.scope().Lookup(id.Name, runtime.Ordinary)
	if sym == nil {
		return nil, diag.Semanticf(diag.Undeclared, id.At, "undeclared identifier %q", id.Name)
	}
	switch sym.Kind {
	case runtime.Typedef:
		return nil, diag.Semanticf(diag.InvalidType, id.At, "type name %q used as a value", id.Name)
	case runtime.Function:
		return nil, diag.Semanticf(diag.Unsupported, id.At, "function %q used as a value", id.Name)
	}
	a.result.Uses[id] = sym
	return sym, nil
}

// lvalue checks an expression designating an object. For plain variables it
// returns the variable's symbol.
func (a *Analyzer) lvalue(n ast.Node) (*ctype.Type, *runtime.Symbol, error) {
	switch x := n.(type) {
	case *ast.Identifier:
		sym, err := a.ident(x)
		if err != nil {
			return nil, nil, err
		}
		if !sym.IsObject() {
			return nil, nil, diag.Semanticf(diag.Incompatible, x.At, "%q is not assignable", x.Name)
		}
		a.result.Types[x] = sym.Type
		return sym.Type, sym, nil
	case *ast.Expression:
		switch x.Op {
		case ast.OpDeref, ast.OpIndex, ast.OpMember, ast.OpPtrMember:
			t, err := a.expr(x)
			return t, nil, err
		}
	}
	return nil, nil, diag.Semanticf(diag.Incompatible, n.Loc(), "expression is not assignable")
}

func (a *Analyzer) expression(x *ast.Expression) (*ctype.Type, error) {
	switch {
	case x.Op.IsAssignment():
		return a.assignment(x)
	case x.Op >= ast.OpAdd && x.Op <= ast.OpLogOr:
		return a.binary(x)
	}
	switch x.Op {
	case ast.OpNeg, ast.OpPlus, ast.OpBitNot:
		t, err := a.rvalue(x.Operand(0))
		if err != nil {
			return nil, err
		}
		if !t.IsArithmetic() || x.Op == ast.OpBitNot && !t.IsInteger() {
			return nil, diag.Semanticf(diag.Incompatible, x.At, "invalid operand of type %s to unary %s", t, x.Op)
		}
		return ctype.Promote(t), nil
	case ast.OpNot:
		t, err := a.rvalue(x.Operand(0))
		if err != nil {
			return nil, err
		}
		if !t.IsScalar() {
			return nil, diag.Semanticf(diag.Incompatible, x.At, "invalid operand of type %s to !", t)
		}
		return ctype.IntType, nil
	case ast.OpDeref:
		t, err := a.rvalue(x.Operand(0))
		if err != nil {
			return nil, err
		}
		if !t.IsPointer() || t.IsVoidPointer() {
			return nil, diag.Semanticf(diag.Incompatible, x.At, "cannot dereference a value of type %s", t)
		}
		return t.Elem(), nil
	case ast.OpAddrOf:
		t, sym, err := a.lvalue(x.Operand(0))
		if err != nil {
			return nil, err
		}
		if sym != nil {
			sym.Initialized = true
		}
		return t.PointerTo(), nil
	case ast.OpPreInc, ast.OpPreDec, ast.OpPostInc, ast.OpPostDec:
		t, sym, err := a.lvalue(x.Operand(0))
		if err != nil {
			return nil, err
		}
		if sym != nil {
			a.checkInitialized(x.Operand(0).(*ast.Identifier), sym)
		}
		if !t.IsScalar() || t.IsVoidPointer() {
			return nil, diag.Semanticf(diag.Incompatible, x.At, "cannot apply %s to a value of type %s", x.Op, t)
		}
		return t, nil
	case ast.OpSizeofExpr:
		t, err := a.expr(x.Operand(0))
		if err != nil {
			return nil, err
		}
		return a.sizeof(x, t)
	case ast.OpSizeofType:
		t, err := ctype.TypeName(a.scope(), x.TypeName)
		if err != nil {
			return nil, err
		}
		return a.sizeof(x, t)
	case ast.OpCast:
		return a.cast(x)
	case ast.OpCall:
		return a.call(x)
	case ast.OpIndex:
		return a.index(x)
	case ast.OpMember, ast.OpPtrMember:
		return a.member(x)
	case ast.OpCond:
		return a.conditional(x)
	case ast.OpComma:
		var t *ctype.Type
		for _, o := range x.Operands {
			var err error
			if t, err = a.rvalue(o); err != nil {
				return nil, err
			}
		}
		return t, nil
	case ast.OpInitList:
		return nil, diag.Semanticf(diag.Unsupported, x.At, "initializer list outside of an initialization")
	}
	return nil, diag.Semanticf(diag.Unsupported, x.At, "unsupported operator %s", x.Op)
}

func (a *Analyzer) sizeof(x *ast.Expression, t *ctype.Type) (*ctype.Type, error) {
	if t.IsVoid() || !t.IsComplete() {
		return nil, diag.Semanticf(diag.InvalidType, x.At, "sizeof applied to incomplete type %s", t)
	}
	a.result.Consts[x] = int64(t.Size())
	return ctype.ULongType, nil
}

func (a *Analyzer) cast(x *ast.Expression) (*ctype.Type, error) {
	t, err := ctype.TypeName(a.scope(), x.TypeName)
	if err != nil {
		return nil, err
	}
	st, err := a.rvalue(x.Operand(0))
	if err != nil {
		return nil, err
	}
	switch {
	case t.IsVoid():
	case !t.IsScalar() || !st.IsScalar():
		return nil, diag.Semanticf(diag.Incompatible, x.At, "cannot cast %s to %s", st, t)
	case t.IsPointer() && st.IsFloat(), t.IsFloat() && st.IsPointer():
		return nil, diag.Semanticf(diag.Incompatible, x.At, "cannot cast %s to %s", st, t)
	}
	return t, nil
}

func (a *Analyzer) binary(x *ast.Expression) (*ctype.Type, error) {
	lt, err := a.rvalue(x.Operand(0))
	if err != nil {
		return nil, err
	}
	rt, err := a.rvalue(x.Operand(1))
	if err != nil {
		return nil, err
	}
	invalid := func() (*ctype.Type, error) {
		return nil, diag.Semanticf(diag.Incompatible, x.At, "invalid operands to %s (%s and %s)", x.Op, lt, rt)
	}
	switch x.Op {
	case ast.OpAdd:
		switch {
		case lt.IsPointer() && rt.IsInteger():
			return lt, nil
		case lt.IsInteger() && rt.IsPointer():
			return rt, nil
		}
	case ast.OpSub:
		switch {
		case lt.IsPointer() && rt.IsInteger():
			return lt, nil
		case lt.IsPointer() && rt.IsPointer():
			if !lt.Equal(rt) {
				a.diags.Warn(diag.PointerMismatch, x.At, "subtraction of pointers to different types %s and %s", lt, rt)
			}
			return ctype.LongType, nil
		}
	case ast.OpMod, ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor:
		if !lt.IsInteger() || !rt.IsInteger() {
			return invalid()
		}
	case ast.OpShl, ast.OpShr:
		if !lt.IsInteger() || !rt.IsInteger() {
			return invalid()
		}
		return ctype.Promote(lt), nil
	case ast.OpLogAnd, ast.OpLogOr:
		if !lt.IsScalar() || !rt.IsScalar() {
			return invalid()
		}
		return ctype.IntType, nil
	}
	if x.Op.IsComparison() {
		switch {
		case lt.IsArithmetic() && rt.IsArithmetic():
		case lt.IsPointer() && rt.IsPointer():
			if !lt.PointerCompatible(rt) {
				a.diags.Warn(diag.PointerMismatch, x.At, "comparison of distinct pointer types %s and %s", lt, rt)
			}
		case lt.IsPointer() && rt.IsInteger():
			if !isNullConstant(x.Operand(1)) {
				a.diags.Warn(diag.PointerMismatch, x.At, "comparison between pointer and integer")
			}
		case lt.IsInteger() && rt.IsPointer():
			if !isNullConstant(x.Operand(0)) {
				a.diags.Warn(diag.PointerMismatch, x.At, "comparison between integer and pointer")
			}
		default:
			return invalid()
		}
		return ctype.IntType, nil
	}
	if !lt.IsArithmetic() || !rt.IsArithmetic() {
		return invalid()
	}
	return ctype.Common(lt, rt), nil
}

func (a *Analyzer) assignment(x *ast.Expression) (*ctype.Type, error) {
	lt, sym, err := a.lvalue(x.Operand(0))
	if err != nil {
		return nil, err
	}
	if lt.IsArray() {
		return nil, diag.Semanticf(diag.Incompatible, x.At, "assignment to array of type %s", lt)
	}
	if x.Op != ast.OpAssign && sym != nil {
		a.checkInitialized(x.Operand(0).(*ast.Identifier), sym)
	}
	rt, err := a.rvalue(x.Operand(1))
	if err != nil {
		return nil, err
	}
	if x.Op == ast.OpAssign {
		if err := a.assignable(lt, rt, x.Operand(1), "assignment"); err != nil {
			return nil, err
		}
	} else {
		op := x.Op.Arithmetic()
		switch {
		case lt.IsPointer() && (op == ast.OpAdd || op == ast.OpSub) && rt.IsInteger():
		case !lt.IsArithmetic() || !rt.IsArithmetic():
			return nil, diag.Semanticf(diag.Incompatible, x.At, "invalid operands to %s (%s and %s)", x.Op, lt, rt)
		case (op == ast.OpMod || op >= ast.OpShl && op <= ast.OpBitXor) && (!lt.IsInteger() || !rt.IsInteger()):
			return nil, diag.Semanticf(diag.Incompatible, x.At, "invalid operands to %s (%s and %s)", x.Op, lt, rt)
		}
	}
	if sym != nil {
		sym.Initialized = true
	}
	return lt, nil
}

// assignable checks that a value of type src may be stored into an object of
// type dst. Gross incompatibilities are errors, questionable pointer
// conversions are warnings.
func (a *Analyzer) assignable(dst, src *ctype.Type, srcNode ast.Node, what string) error {
	incompatible := func() error {
		return diag.Semanticf(diag.Incompatible, srcNode.Loc(), "incompatible types in %s: %s from %s", what, dst, src)
	}
	switch {
	case dst.IsRecord():
		if !src.IsRecord() || !dst.Equal(src) {
			return incompatible()
		}
	case dst.IsArray(), dst.IsVoid():
		return incompatible()
	case dst.IsPointer():
		switch {
		case src.IsPointer():
			if !dst.PointerCompatible(src) {
				a.diags.Warn(diag.PointerMismatch, srcNode.Loc(), "%s of %s from incompatible pointer type %s",
					what, dst, src)
			}
		case src.IsInteger():
			if !isNullConstant(srcNode) {
				a.diags.Warn(diag.PointerMismatch, srcNode.Loc(), "%s makes pointer from integer", what)
			}
		default:
			return incompatible()
		}
	case dst.IsArithmetic():
		switch {
		case src.IsArithmetic():
		case src.IsPointer() && dst.IsInteger():
			a.diags.Warn(diag.PointerMismatch, srcNode.Loc(), "%s makes integer from pointer", what)
		default:
			return incompatible()
		}
	}
	return nil
}

// isNullConstant is a predicate: is n the integer constant 0?
func isNullConstant(n ast.Node) bool {
	switch x := n.(type) {
	case *ast.Literal:
		return x.Lit == ast.IntLiteral && x.Int == 0
	case *ast.Expression:
		return x.Op == ast.OpCast && isNullConstant(x.Operand(0))
	}
	return false
}

func (a *Analyzer) call(x *ast.Expression) (*ctype.Type, error) {
	id, ok := x.Operand(0).(*ast.Identifier)
	if !ok {
		return nil, diag.Semanticf(diag.NotCallable, x.At, "called object is not a function")
	}
	sym, _ := a.scope().Lookup(id.Name, runtime.Ordinary)
	if sym == nil {
		return nil, diag.Semanticf(diag.Undeclared, id.At, "call of undeclared function %q", id.Name)
	}
	if !sym.IsFunction() {
		return nil, diag.Semanticf(diag.NotCallable, id.At, "%q is not a function", id.Name)
	}
	a.result.Uses[id] = sym
	sig := a.sigs[sym]
	args := x.Operands[1:]
	if len(args) < sig.Arity() || len(args) > sig.Arity() && !sig.Variadic {
		return nil, diag.Semanticf(diag.ArgumentCount, x.At, "function %q expects %d arguments, called with %d",
			id.Name, sig.Arity(), len(args))
	}
	for i, arg := range args {
		t, err := a.rvalue(arg)
		if err != nil {
			return nil, err
		}
		if i < sig.Arity() {
			if err := a.assignable(sig.Params[i], t, arg, "argument passing"); err != nil {
				return nil, err
			}
		} else if t.IsRecord() {
			return nil, diag.Semanticf(diag.Incompatible, arg.Loc(), "cannot pass %s as variadic argument", t)
		}
	}
	return sig.Result, nil
}

func (a *Analyzer) index(x *ast.Expression) (*ctype.Type, error) {
	bt, err := a.expr(x.Operand(0))
	if err != nil {
		return nil, err
	}
	it, err := a.rvalue(x.Operand(1))
	if err != nil {
		return nil, err
	}
	if !it.IsInteger() {
		return nil, diag.Semanticf(diag.Incompatible, x.At, "array subscript of type %s is not an integer", it)
	}
	if bt.IsArray() {
		return bt.Elem(), nil
	}
	if bt.IsPointer() && !bt.IsVoidPointer() {
		return bt.Elem(), nil
	}
	return nil, diag.Semanticf(diag.Incompatible, x.At, "subscripted value of type %s is neither array nor pointer", bt)
}

func (a *Analyzer) member(x *ast.Expression) (*ctype.Type, error) {
	t, err := a.expr(x.Operand(0))
	if err != nil {
		return nil, err
	}
	if x.Op == ast.OpPtrMember {
		if !t.IsPointer() || t.Pointer != 1 || t.Kind != ctype.Struct && t.Kind != ctype.Union {
			return nil, diag.Semanticf(diag.Incompatible, x.At, "-> applied to %s, which is not a record pointer", t)
		}
		t = t.Elem()
	}
	if !t.IsRecord() {
		return nil, diag.Semanticf(diag.Incompatible, x.At, "member access on %s, which is not a record", t)
	}
	if !t.IsComplete() {
		return nil, diag.Semanticf(diag.InvalidType, x.At, "member access on incomplete type %s", t)
	}
	f, ok := t.Record.Field(x.Member)
	if !ok {
		return nil, diag.Semanticf(diag.UnknownMember, x.At, "%s has no member %q", t, x.Member)
	}
	return f.Type, nil
}

func (a *Analyzer) conditional(x *ast.Expression) (*ctype.Type, error) {
	if err := a.condition(x.Operand(0)); err != nil {
		return nil, err
	}
	t1, err := a.rvalue(x.Operand(1))
	if err != nil {
		return nil, err
	}
	t2, err := a.rvalue(x.Operand(2))
	if err != nil {
		return nil, err
	}
	switch {
	case t1.IsArithmetic() && t2.IsArithmetic():
		return ctype.Common(t1, t2), nil
	case t1.IsPointer() && (t2.IsPointer() || isNullConstant(x.Operand(2))):
		return t1, nil
	case t2.IsPointer() && isNullConstant(x.Operand(1)):
		return t2, nil
	case t1.IsVoid() && t2.IsVoid(), t1.IsRecord() && t1.Equal(t2):
		return t1, nil
	}
	return nil, diag.Semanticf(diag.Incompatible, x.At, "mismatched operands of ?: (%s and %s)", t1, t2)
}
