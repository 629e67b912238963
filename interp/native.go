package interp

import (
	"fmt"
	"math"
	"strings"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/csim/runtime"
	"github.com/npillmayer/csim/sema"
	"github.com/npillmayer/schuko/gtrace"
)

// nativeFunc implements a built-in function on evaluated arguments.
type nativeFunc func(x *exec, args []value, at csim.Location) (value, error)

var natives map[string]nativeFunc

func init() {
	natives = map[string]nativeFunc{
		"printf":  printf,
		"puts":    puts,
		"putchar": putchar,
		"malloc":  malloc,
		"calloc":  calloc,
		"free":    free,
		"strlen":  strlen,
		"abs":     abs,
	}
}

var voidPtr = &ctype.Type{Kind: ctype.Void, Pointer: 1}

func (x *exec) native(sig *sema.Signature, args []value, at csim.Location) (value, error) {
	f, ok := natives[sig.Name]
	if !ok {
		return value{}, diag.Runtimef(diag.Unsupported, at, "native function %q is not implemented", sig.Name)
	}
	for i, p := range sig.Native.Params {
		if i < len(args) {
			args[i] = convert(args[i], p)
		}
	}
	tracer().Debugf("native %s(%v)", sig.Name, args)
	v, err := f(x, args, at)
	return v, located(err, at)
}

func printf(x *exec, args []value, at csim.Location) (value, error) {
	format, err := x.cstring(args[0].addr(), at)
	if err != nil {
		return value{}, err
	}
	s, err := x.sprintf(format, args[1:], at)
	if err != nil {
		return value{}, err
	}
	return intValue(int64(len(s))), x.write(s, at)
}

func puts(x *exec, args []value, at csim.Location) (value, error) {
	s, err := x.cstring(args[0].addr(), at)
	if err != nil {
		return value{}, err
	}
	return intValue(int64(len(s) + 1)), x.write(s+"\n", at)
}

func putchar(x *exec, args []value, at csim.Location) (value, error) {
	c := byte(args[0].i)
	return intValue(int64(c)), x.write(string([]byte{c}), at)
}

func malloc(x *exec, args []value, at csim.Location) (value, error) {
	return x.heapAlloc(args[0].i, at)
}

func calloc(x *exec, args []value, at csim.Location) (value, error) {
	n, size := uint64(args[0].i), uint64(args[1].i)
	if size != 0 && n > math.MaxInt32/size {
		return x.heapAlloc(-1, at)
	}
	return x.heapAlloc(int64(n*size), at)
}

func free(x *exec, args []value, at csim.Location) (value, error) {
	addr := args[0].addr()
	if err := x.mem.HeapFree(addr); err != nil {
		return value{}, err
	}
	if addr != 0 {
		x.rt.Stack.Heap().Scope.Symbols().Remove(heapName(addr), runtime.Ordinary)
	}
	return value{t: ctype.VoidType}, nil
}

func strlen(x *exec, args []value, at csim.Location) (value, error) {
	s, err := x.cstring(args[0].addr(), at)
	return value{t: ctype.ULongType, i: int64(len(s))}, err
}

func abs(x *exec, args []value, at csim.Location) (value, error) {
	n := int32(args[0].i)
	if n < 0 {
		n = -n
	}
	return intValue(int64(n)), nil
}

// heapAlloc allocates a heap block and lists it in the heap pseudo-frame as
// an array of unsigned char. A negative size cannot be satisfied.
func (x *exec) heapAlloc(size int64, at csim.Location) (value, error) {
	if size < 0 || size > math.MaxInt32 {
		x.diags.Warn(diag.OutOfMemory, at, "cannot allocate %d bytes", size)
		return pointerValue(voidPtr, 0), nil
	}
	addr, err := x.mem.HeapAlloc(int(size), at)
	if err != nil || addr == 0 {
		return pointerValue(voidPtr, 0), err
	}
	t := &ctype.Type{Kind: ctype.Char, Unsigned: true, Dims: []int{int(size)}}
	sym := runtime.NewSymbol(heapName(addr), runtime.Variable).WithType(t)
	sym.Address, sym.At = addr, at
	if err := x.rt.Stack.Heap().Scope.Insert(sym); err != nil {
		return value{}, err
	}
	gtrace.InterpreterTracer.Debugf("malloc(%d) = %#x", size, addr)
	return pointerValue(voidPtr, addr), nil
}

func heapName(addr uint64) string {
	return fmt.Sprintf("heap@%#x", addr)
}

func (x *exec) cstring(addr uint64, at csim.Location) (string, error) {
	if err := x.check(addr, at); err != nil {
		return "", err
	}
	return x.mem.CString(addr)
}

// --- printf ----------------------------------------------------------------

// sprintf formats according to a C format string. Supported are the flags
// "-0+ #", field width, precision, the length modifiers hh, h, l, ll, z and
// the conversions d i u o x X c s f F e E g G p %.
func (x *exec) sprintf(format string, args []value, at csim.Location) (string, error) {
	var sb strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			sb.WriteByte(format[i])
			continue
		}
		start := i
		i++
		span := func(set string) string {
			j := i
			for i < len(format) && strings.IndexByte(set, format[i]) >= 0 {
				i++
			}
			return format[j:i]
		}
		flags := span("-0+ #")
		width := span("0123456789")
		prec := ""
		if i < len(format) && format[i] == '.' {
			i++
			prec = "." + span("0123456789")
		}
		length := span("hlzjt")
		if i >= len(format) {
			sb.WriteString(format[start:])
			break
		}
		verb := format[i]
		if verb == '%' {
			sb.WriteByte('%')
			continue
		}
		if next >= len(args) {
			x.diags.Warn(diag.ArgumentCount, at, "printf: no argument for conversion %s", format[start:i+1])
			sb.WriteString(format[start : i+1])
			continue
		}
		arg := args[next]
		next++
		spec := "%" + flags + width + prec
		switch verb {
		case 'd', 'i':
			fmt.Fprintf(&sb, spec+"d", signedArg(arg, length))
		case 'u':
			fmt.Fprintf(&sb, spec+"d", unsignedArg(arg, length))
		case 'o', 'x', 'X':
			fmt.Fprintf(&sb, spec+string(verb), unsignedArg(arg, length))
		case 'c':
			fmt.Fprintf(&sb, "%"+flags+width+"c", rune(byte(arg.i)))
		case 's':
			s := "(null)"
			if arg.addr() != 0 {
				var err error
				if s, err = x.cstring(arg.addr(), at); err != nil {
					return "", err
				}
			}
			fmt.Fprintf(&sb, spec+"s", s)
		case 'f', 'F', 'e', 'E', 'g', 'G':
			if verb == 'F' {
				verb = 'f'
			}
			f := arg.f
			if !arg.isFloat() {
				f = float64(arg.i)
			}
			fmt.Fprintf(&sb, spec+string(verb), f)
		case 'p':
			p := "(nil)"
			if arg.addr() != 0 {
				p = fmt.Sprintf("%#x", arg.addr())
			}
			fmt.Fprintf(&sb, "%"+flags+width+"s", p)
		default:
			x.diags.Warn(diag.Unsupported, at, "printf: unknown conversion %s", format[start:i+1])
			sb.WriteString(format[start : i+1])
		}
	}
	if next < len(args) {
		x.diags.Warn(diag.ArgumentCount, at, "printf: %d arguments not consumed by format", len(args)-next)
	}
	return sb.String(), nil
}

func signedArg(v value, length string) int64 {
	i := v.i
	if v.isFloat() {
		i = int64(v.f)
	}
	switch length {
	case "hh":
		return int64(int8(i))
	case "h":
		return int64(int16(i))
	case "":
		return int64(int32(i))
	}
	return i
}

func unsignedArg(v value, length string) uint64 {
	i := v.i
	if v.isFloat() {
		i = int64(v.f)
	}
	switch length {
	case "hh":
		return uint64(uint8(i))
	case "h":
		return uint64(uint16(i))
	case "":
		return uint64(uint32(i))
	}
	return uint64(i)
}
