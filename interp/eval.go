package interp

import (
	"fmt"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/csim/runtime"
)

// rvalue evaluates an expression for its value. Arrays yield the address of
// their first element.
func (x *exec) rvalue(n ast.Node) (value, error) {
	return x.eval(n)
}

func (x *exec) eval(n ast.Node) (value, error) {
	switch e := n.(type) {
	case *ast.Identifier:
		if use := x.res.Uses[e]; use != nil && use.Kind == runtime.EnumConstant {
			c, _ := use.Value.(int64)
			return intValue(c), nil
		}
		sym, err := x.object(e)
		if err != nil {
			return value{}, err
		}
		v, err := x.load(sym.Address, sym.Type)
		return v, located(err, e.At)
	case *ast.Literal:
		return x.literal(e)
	case *ast.Expression:
		v, err := x.expression(e)
		return v, located(err, e.At)
	}
	return value{}, diag.Runtimef(diag.Unsupported, n.Loc(), "cannot evaluate %s", n.Kind())
}

// object finds the storage bound to an identifier in the current frame.
func (x *exec) object(id *ast.Identifier) (*runtime.Symbol, error) {
	sym, _ := x.rt.Stack.Current().Scope.Lookup(id.Name, runtime.Ordinary)
	if sym == nil || !sym.IsObject() {
		return nil, diag.Runtimef(diag.Undeclared, id.At, "%q has no storage here", id.Name)
	}
	return sym, nil
}

func (x *exec) literal(lit *ast.Literal) (value, error) {
	t := ctype.LiteralType(lit)
	switch lit.Lit {
	case ast.FloatLiteral:
		return convert(value{t: ctype.DoubleType, f: lit.Float}, t), nil
	case ast.StringLiteral:
		addr, err := x.stringLiteral(lit)
		return pointerValue(t.Decay(), addr), err
	}
	return value{t: t, i: lit.Int}, nil
}

// stringLiteral places a string literal in the data region, once per
// occurrence in the source.
func (x *exec) stringLiteral(lit *ast.Literal) (uint64, error) {
	if addr, ok := x.literals[lit]; ok {
		return addr, nil
	}
	b := append([]byte(lit.Str), 0)
	addr, err := x.mem.DataAlloc(len(b))
	if err != nil {
		return 0, located(err, lit.At)
	}
	if err := x.mem.WriteBytes(addr, b); err != nil {
		return 0, located(err, lit.At)
	}
	sym := runtime.NewSymbol(fmt.Sprintf("string@%s", lit.At), runtime.Variable).WithType(ctype.LiteralType(lit))
	sym.Address, sym.At, sym.Initialized = addr, lit.At, true
	if err := x.rt.Stack.Data().Scope.Insert(sym); err != nil {
		tracer().Errorf("string literal at %s: %v", lit.At, err)
	}
	x.literals[lit] = addr
	return addr, nil
}

// addrOf evaluates an expression designating an object to the object's
// address.
func (x *exec) addrOf(n ast.Node) (uint64, error) {
	switch e := n.(type) {
	case *ast.Identifier:
		sym, err := x.object(e)
		if err != nil {
			return 0, err
		}
		return sym.Address, nil
	case *ast.Expression:
		switch e.Op {
		case ast.OpDeref:
			p, err := x.rvalue(e.Operand(0))
			if err != nil {
				return 0, err
			}
			return p.addr(), x.check(p.addr(), e.At)
		case ast.OpIndex:
			base, err := x.rvalue(e.Operand(0))
			if err != nil {
				return 0, err
			}
			inx, err := x.rvalue(e.Operand(1))
			if err != nil {
				return 0, err
			}
			if base.addr() == 0 {
				return 0, x.check(0, e.At)
			}
			size := elemSize(base.t)
			if bt := x.res.TypeOf(e.Operand(0)); bt != nil && bt.IsArray() {
				size = int64(bt.Elem().Size())
			}
			return base.addr() + uint64(inx.i*size), nil
		case ast.OpMember:
			rec, err := x.rvalue(e.Operand(0))
			if err != nil {
				return 0, err
			}
			return fieldAddr(rec.addr(), x.res.TypeOf(e.Operand(0)), e.Member)
		case ast.OpPtrMember:
			p, err := x.rvalue(e.Operand(0))
			if err != nil {
				return 0, err
			}
			if err := x.check(p.addr(), e.At); err != nil {
				return 0, err
			}
			return fieldAddr(p.addr(), x.res.TypeOf(e.Operand(0)).Elem(), e.Member)
		}
	}
	return 0, diag.Runtimef(diag.Unsupported, n.Loc(), "expression does not designate an object")
}

func fieldAddr(base uint64, t *ctype.Type, member string) (uint64, error) {
	if t == nil || t.Record == nil {
		return 0, fmt.Errorf("member access %q on non-record", member)
	}
	f, ok := t.Record.Field(member)
	if !ok {
		return 0, fmt.Errorf("%s has no member %q", t, member)
	}
	return base + uint64(f.Offset), nil
}

// elemSize is the size of the objects a pointer of type t points to.
// Pointers to void step by bytes.
func elemSize(t *ctype.Type) int64 {
	if t == nil || !t.IsPointer() {
		return 1
	}
	if n := t.Elem().Size(); n > 0 {
		return int64(n)
	}
	return 1
}

// --- Operators -------------------------------------------------------------

func (x *exec) expression(e *ast.Expression) (value, error) {
	switch {
	case e.Op.IsAssignment():
		return x.assign(e)
	case e.Op == ast.OpLogAnd || e.Op == ast.OpLogOr:
		l, err := x.rvalue(e.Operand(0))
		if err != nil || l.truth() == (e.Op == ast.OpLogOr) {
			return b2v(l.truth()), err
		}
		r, err := x.rvalue(e.Operand(1))
		return b2v(r.truth()), err
	case e.Op >= ast.OpAdd && e.Op <= ast.OpNe:
		l, err := x.rvalue(e.Operand(0))
		if err != nil {
			return value{}, err
		}
		r, err := x.rvalue(e.Operand(1))
		if err != nil {
			return value{}, err
		}
		return x.arith(e.Op, l, r, e.At)
	}
	t := x.res.TypeOf(e)
	switch e.Op {
	case ast.OpNeg, ast.OpPlus, ast.OpBitNot, ast.OpNot:
		v, err := x.rvalue(e.Operand(0))
		if err != nil {
			return value{}, err
		}
		return unary(e.Op, v, t), nil
	case ast.OpDeref, ast.OpIndex, ast.OpMember, ast.OpPtrMember:
		addr, err := x.addrOf(e)
		if err != nil {
			return value{}, err
		}
		return x.load(addr, t)
	case ast.OpAddrOf:
		addr, err := x.addrOf(e.Operand(0))
		return pointerValue(t, addr), err
	case ast.OpPreInc, ast.OpPreDec, ast.OpPostInc, ast.OpPostDec:
		return x.incDec(e)
	case ast.OpSizeofExpr, ast.OpSizeofType:
		return value{t: ctype.ULongType, i: x.res.Consts[e]}, nil
	case ast.OpCast:
		v, err := x.rvalue(e.Operand(0))
		if err != nil || t.IsVoid() {
			return value{t: t}, err
		}
		v = convert(v, t)
		if t.IsInteger() {
			v.i, _ = ctype.Truncate(v.i, t.Size(), t.IsSigned())
		}
		return v, nil
	case ast.OpCall:
		return x.call(e)
	case ast.OpCond:
		c, err := x.rvalue(e.Operand(0))
		if err != nil {
			return value{}, err
		}
		branch := e.Operand(2)
		if c.truth() {
			branch = e.Operand(1)
		}
		v, err := x.rvalue(branch)
		if err != nil || !t.IsScalar() {
			return v, err
		}
		return convert(v, t.Decay()), nil
	case ast.OpComma:
		var v value
		for _, o := range e.Operands {
			var err error
			if v, err = x.rvalue(o); err != nil {
				return value{}, err
			}
		}
		return v, nil
	}
	return value{}, diag.Runtimef(diag.Unsupported, e.At, "operator %s not supported", e.Op)
}

func unary(op ast.Operator, v value, t *ctype.Type) value {
	if op == ast.OpNot {
		return b2v(!v.truth())
	}
	v = convert(v, t)
	switch op {
	case ast.OpNeg:
		if v.isFloat() {
			v.f = -v.f
			return v
		}
		v.i = -v.i
	case ast.OpBitNot:
		v.i = ^v.i
	}
	return wrap(v)
}

// arith applies a binary operator after the usual arithmetic conversions.
// Pointer arithmetic scales by the size of the pointed-to type.
func (x *exec) arith(op ast.Operator, l, r value, at csim.Location) (value, error) {
	lp, rp := l.t.IsPointer(), r.t.IsPointer()
	switch {
	case op == ast.OpAdd && lp:
		return pointerValue(l.t, uint64(l.i+r.i*elemSize(l.t))), nil
	case op == ast.OpAdd && rp:
		return pointerValue(r.t, uint64(r.i+l.i*elemSize(r.t))), nil
	case op == ast.OpSub && lp && rp:
		return value{t: ctype.LongType, i: (l.i - r.i) / elemSize(l.t)}, nil
	case op == ast.OpSub && lp:
		return pointerValue(l.t, uint64(l.i-r.i*elemSize(l.t))), nil
	case op.IsComparison() && (lp || rp):
		return b2v(compare(op, uint64(l.i) < uint64(r.i), l.i == r.i)), nil
	case op == ast.OpShl || op == ast.OpShr:
		t := ctype.Promote(l.t)
		a := convert(l, t).i
		n := uint64(r.i)
		if op == ast.OpShl {
			return wrap(value{t: t, i: a << n}), nil
		}
		if t.Unsigned {
			return value{t: t, i: int64(uint64(a) >> n)}, nil
		}
		return value{t: t, i: a >> n}, nil
	}
	t := ctype.Common(l.t, r.t)
	if t.IsFloat() {
		a, b := convert(l, t).f, convert(r, t).f
		if op.IsComparison() {
			return b2v(compare(op, a < b, a == b)), nil
		}
		var f float64
		switch op {
		case ast.OpAdd:
			f = a + b
		case ast.OpSub:
			f = a - b
		case ast.OpMul:
			f = a * b
		case ast.OpDiv:
			f = a / b
		default:
			return value{}, diag.Runtimef(diag.Unsupported, at, "operator %s on %s", op, t)
		}
		return convert(value{t: ctype.DoubleType, f: f}, t), nil
	}
	a, b := wrap(convert(l, t)).i, wrap(convert(r, t)).i
	if op.IsComparison() {
		if t.Unsigned {
			return b2v(compare(op, uint64(a) < uint64(b), a == b)), nil
		}
		return b2v(compare(op, a < b, a == b)), nil
	}
	var i int64
	switch op {
	case ast.OpAdd:
		i = a + b
	case ast.OpSub:
		i = a - b
	case ast.OpMul:
		i = a * b
	case ast.OpDiv, ast.OpMod:
		if b == 0 {
			return value{}, diag.Runtimef(diag.DivisionByZero, at, "integer division by zero")
		}
		switch {
		case t.Unsigned && op == ast.OpDiv:
			i = int64(uint64(a) / uint64(b))
		case t.Unsigned:
			i = int64(uint64(a) % uint64(b))
		case op == ast.OpDiv:
			i = a / b
		default:
			i = a % b
		}
	case ast.OpBitAnd:
		i = a & b
	case ast.OpBitOr:
		i = a | b
	case ast.OpBitXor:
		i = a ^ b
	default:
		return value{}, diag.Runtimef(diag.Unsupported, at, "operator %s on %s", op, t)
	}
	return wrap(value{t: t, i: i}), nil
}

// compare evaluates a comparison operator, given the outcomes of less-than
// and equality.
func compare(op ast.Operator, less, equal bool) bool {
	switch op {
	case ast.OpLt:
		return less
	case ast.OpGt:
		return !less && !equal
	case ast.OpLe:
		return less || equal
	case ast.OpGe:
		return !less
	case ast.OpEq:
		return equal
	case ast.OpNe:
		return !equal
	}
	return false
}

func (x *exec) assign(e *ast.Expression) (value, error) {
	lhs := e.Operand(0)
	addr, err := x.addrOf(lhs)
	if err != nil {
		return value{}, err
	}
	t := x.res.TypeOf(lhs)
	v, err := x.rvalue(e.Operand(1))
	if err != nil {
		return value{}, err
	}
	if e.Op != ast.OpAssign {
		old, err := x.load(addr, t)
		if err != nil {
			return value{}, err
		}
		if v, err = x.arith(e.Op.Arithmetic(), old, v, e.At); err != nil {
			return value{}, err
		}
	}
	return x.store(addr, t, v, e.At)
}

func (x *exec) incDec(e *ast.Expression) (value, error) {
	addr, err := x.addrOf(e.Operand(0))
	if err != nil {
		return value{}, err
	}
	t := x.res.TypeOf(e.Operand(0))
	old, err := x.load(addr, t)
	if err != nil {
		return value{}, err
	}
	op := ast.OpAdd
	if e.Op == ast.OpPreDec || e.Op == ast.OpPostDec {
		op = ast.OpSub
	}
	v, err := x.arith(op, old, intValue(1), e.At)
	if err != nil {
		return value{}, err
	}
	stored, err := x.store(addr, t, v, e.At)
	if e.Op == ast.OpPostInc || e.Op == ast.OpPostDec {
		return old, err
	}
	return stored, err
}

// call evaluates the arguments from left to right in the caller's frame and
// dispatches to a native or user defined function.
func (x *exec) call(e *ast.Expression) (value, error) {
	id := e.Operand(0).(*ast.Identifier)
	sig := x.res.Functions[id.Name]
	if sig == nil {
		return value{}, diag.Runtimef(diag.Undeclared, id.At, "call of undeclared function %q", id.Name)
	}
	args := make([]value, 0, len(e.Operands)-1)
	for _, a := range e.Operands[1:] {
		v, err := x.rvalue(a)
		if err != nil {
			return value{}, err
		}
		args = append(args, v)
	}
	if sig.Native != nil {
		return x.native(sig, args, e.At)
	}
	if sig.Def == nil {
		return value{}, diag.Runtimef(diag.Undeclared, id.At, "function %q is declared but never defined", id.Name)
	}
	if x.res.Rejected(sig.Def) {
		return value{}, diag.Runtimef(diag.Unsupported, id.At, "function %q has been rejected", id.Name)
	}
	v, _, err := x.invoke(sig, args, e.At)
	return v, err
}
