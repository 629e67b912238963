package interp

import (
	"errors"
	"fmt"
	"math"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/csim/diag"
)

// value is the result of evaluating an expression. Integers and pointers are
// held in i, floating values in f. For records, i holds the address of the
// record object.
type value struct {
	t *ctype.Type
	i int64
	f float64
}

func intValue(i int64) value {
	return value{t: ctype.IntType, i: i}
}

func pointerValue(t *ctype.Type, addr uint64) value {
	return value{t: t, i: int64(addr)}
}

func (v value) addr() uint64 {
	return uint64(v.i)
}

func (v value) isFloat() bool {
	return v.t != nil && v.t.IsFloat()
}

// truth is C's notion of a value being non-zero.
func (v value) truth() bool {
	if v.isFloat() {
		return v.f != 0
	}
	return v.i != 0
}

func (v value) String() string {
	switch {
	case v.t == nil || v.t.IsVoid():
		return "void"
	case v.isFloat():
		return fmt.Sprintf("%g", v.f)
	case v.t.IsPointer():
		return fmt.Sprintf("%#x", v.addr())
	}
	return fmt.Sprintf("%d", v.i)
}

func b2v(b bool) value {
	if b {
		return intValue(1)
	}
	return intValue(0)
}

// convert converts v to type t without narrowing integers; narrowing happens
// when a value is stored.
func convert(v value, t *ctype.Type) value {
	switch {
	case t.IsVoid():
		return value{t: t}
	case t.IsRecord():
		return value{t: t, i: v.i}
	case t.IsFloat():
		f := v.f
		if !v.isFloat() {
			if v.t != nil && v.t.IsInteger() && v.t.Unsigned {
				f = float64(uint64(v.i))
			} else {
				f = float64(v.i)
			}
		}
		if t.Kind == ctype.Float {
			f = float64(float32(f))
		}
		return value{t: t, f: f}
	case t.Kind == ctype.Bool && t.IsInteger():
		return value{t: t, i: b2v(v.truth()).i}
	}
	i := v.i
	if v.isFloat() {
		i = floatToInt(v.f, t)
	}
	return value{t: t, i: i}
}

func floatToInt(f float64, t *ctype.Type) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case t.Unsigned && t.Size() == 8 && f >= math.MaxInt64:
		return int64(uint64(f))
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// wrap reduces an integer result to the width of t if t is unsigned.
// Signed results stay exact until they are stored.
func wrap(v value) value {
	if v.t.IsInteger() && v.t.Unsigned {
		v.i, _ = ctype.Truncate(v.i, v.t.Size(), false)
	}
	return v
}

// narrow converts v to t, truncating integers to the width of t. Truncation
// warns if at is a known location.
func (it *Interpreter) narrow(v value, t *ctype.Type, at csim.Location) value {
	v = convert(v, t)
	if !t.IsInteger() && !t.IsPointer() {
		return v
	}
	i, overflow := ctype.Truncate(v.i, t.Size(), t.IsSigned())
	if overflow && at.IsKnown() {
		it.diags.Warn(diag.Overflow, at, "value %d does not fit into %s, truncated to %d", v.i, t, i)
	}
	v.i = i
	return v
}

// --- Loading and storing ---------------------------------------------------

// load reads an object of type t at addr. Arrays yield the address of their
// first element, records their own address.
func (it *Interpreter) load(addr uint64, t *ctype.Type) (value, error) {
	switch {
	case t.IsArray():
		return pointerValue(t.Decay(), addr), nil
	case t.IsRecord():
		if _, err := it.mem.ReadBytes(addr, t.Size()); err != nil {
			return value{}, err
		}
		return value{t: t, i: int64(addr)}, nil
	case t.IsFloat():
		f, err := it.mem.GetFloat(addr, t.Size())
		return value{t: t, f: f}, err
	case t.IsPointer():
		p, err := it.mem.GetScalar(addr, ctype.PointerSize, false)
		return value{t: t, i: p}, err
	case t.IsInteger():
		i, err := it.mem.GetScalar(addr, t.Size(), t.IsSigned())
		return value{t: t, i: i}, err
	}
	return value{}, fmt.Errorf("cannot load object of type %s", t)
}

// store writes v, converted to t, to the object at addr and returns the
// stored value. Storing a pointer moves the reference held by its slot to
// the new target.
func (it *Interpreter) store(addr uint64, t *ctype.Type, v value, at csim.Location) (value, error) {
	v = convert(v, t)
	switch {
	case t.IsRecord():
		if addr == v.addr() {
			return v, nil
		}
		if err := it.mem.Copy(addr, v.addr(), t.Size()); err != nil {
			return value{}, err
		}
		pointerSlots(t, addr, func(slot uint64) {
			p, _ := it.mem.GetScalar(slot, ctype.PointerSize, false)
			it.mem.MoveReference(slot, uint64(p))
		})
		return value{t: t, i: int64(addr)}, nil
	case t.IsFloat():
		return v, it.mem.SetFloat(addr, v.f, t.Size())
	case t.IsPointer():
		if _, err := it.mem.SetScalar(addr, v.i, ctype.PointerSize, false, at); err != nil {
			return value{}, err
		}
		it.mem.MoveReference(addr, v.addr())
		return v, nil
	case t.IsInteger():
		stored, err := it.mem.SetScalar(addr, v.i, t.Size(), t.IsSigned(), at)
		return value{t: t, i: stored}, err
	}
	return value{}, fmt.Errorf("cannot store to object of type %s", t)
}

// pointerSlots calls f with the address of every pointer contained in an
// object of type t at addr, including pointers inside arrays and records.
func pointerSlots(t *ctype.Type, addr uint64, f func(uint64)) {
	switch {
	case t.IsArray():
		elem := t.Elem()
		if !elem.IsPointer() && !elem.IsArray() && (elem.Kind != ctype.Struct && elem.Kind != ctype.Union) {
			return
		}
		size := uint64(elem.Size())
		for i := 0; i < t.Dims[0]; i++ {
			pointerSlots(elem, addr+uint64(i)*size, f)
		}
	case t.IsPointer():
		f(addr)
	case t.IsRecord():
		if t.Record.IsUnion() {
			return
		}
		for _, fld := range t.Record.Fields {
			pointerSlots(fld.Type, addr+uint64(fld.Offset), f)
		}
	}
}

// located sets the location of a runtime error, if it has none. Other errors
// are turned into runtime errors at loc.
func located(err error, loc csim.Location) error {
	if err == nil {
		return nil
	}
	var rterr *diag.RuntimeError
	if errors.As(err, &rterr) {
		return rterr.At(loc)
	}
	if isJump(err) || errors.Is(err, errStopped) {
		return err
	}
	return diag.Runtimef(diag.Unsupported, loc, "%v", err).Because(err)
}
