/*
Package ctype resolves C declaration specifiers and declarator chains to
sized types, and computes the layout of structs and unions.

Types are restricted to the form "array of … of (pointer to … of base)":
every pointer link of a declarator must be outside of all its array links.
Pointers to arrays and pointers to functions are not representable and
rejected. Sizes follow the LP64 data model.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package ctype

import (
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'csim.ctype'.
func tracer() tracing.Trace {
	return tracing.Select("csim.ctype")
}

// Kind is the base kind of a type.
type Kind int8

// Base kinds.
const (
	Void Kind = iota
	Bool
	Char
	Short
	Int
	Long
	LongLong
	Float
	Double
	Enum
	Struct
	Union
)

var kindNames = [...]string{"void", "_Bool", "char", "short", "int", "long", "long long",
	"float", "double", "enum", "struct", "union"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// PointerSize is the size of pointers in bytes.
const PointerSize = 8

var kindSizes = [...]int{1, 1, 1, 2, 4, 8, 8, 4, 8, 4, 0, 0}

// Type is a resolved C type. The zero value is void.
type Type struct {
	Kind     Kind
	Unsigned bool
	Tag      string  // tag of struct, union or enum
	Pointer  int     // pointer indirection of the element type
	Dims     []int   // array dimensions, outermost first; -1 for an unknown size
	Record   *Record // struct or union layout
}

// Predefined types.
var (
	VoidType   = &Type{Kind: Void}
	BoolType   = &Type{Kind: Bool, Unsigned: true}
	CharType   = &Type{Kind: Char}
	IntType    = &Type{Kind: Int}
	UIntType   = &Type{Kind: Int, Unsigned: true}
	LongType   = &Type{Kind: Long}
	ULongType  = &Type{Kind: Long, Unsigned: true}
	DoubleType = &Type{Kind: Double}
	FloatType  = &Type{Kind: Float}
)

// Basic returns a scalar type of a base kind.
func Basic(k Kind, unsigned bool) *Type {
	return &Type{Kind: k, Unsigned: unsigned}
}

// Copy returns a shallow copy with its own dimension slice.
func (t *Type) Copy() *Type {
	c := *t
	c.Dims = append([]int(nil), t.Dims...)
	return &c
}

// IsArray is a predicate.
func (t *Type) IsArray() bool {
	return len(t.Dims) > 0
}

// IsPointer is a predicate.
func (t *Type) IsPointer() bool {
	return !t.IsArray() && t.Pointer > 0
}

// IsVoid is a predicate for plain void (not a pointer to void).
func (t *Type) IsVoid() bool {
	return t.Kind == Void && t.Pointer == 0 && !t.IsArray()
}

// IsVoidPointer is a predicate.
func (t *Type) IsVoidPointer() bool {
	return t.Kind == Void && t.Pointer == 1 && !t.IsArray()
}

// IsRecord is a predicate for struct and union objects.
func (t *Type) IsRecord() bool {
	return (t.Kind == Struct || t.Kind == Union) && t.Pointer == 0 && !t.IsArray()
}

// IsInteger is a predicate for integer types, including _Bool and enums.
func (t *Type) IsInteger() bool {
	return t.Pointer == 0 && !t.IsArray() && (t.Kind >= Bool && t.Kind <= LongLong || t.Kind == Enum)
}

// IsFloat is a predicate for float and double.
func (t *Type) IsFloat() bool {
	return t.Pointer == 0 && !t.IsArray() && (t.Kind == Float || t.Kind == Double)
}

// IsArithmetic is a predicate for integer and floating types.
func (t *Type) IsArithmetic() bool {
	return t.IsInteger() || t.IsFloat()
}

// IsScalar is a predicate for arithmetic and pointer types.
func (t *Type) IsScalar() bool {
	return t.IsArithmetic() || t.IsPointer()
}

// IsSigned is a predicate for signed integer and floating types.
func (t *Type) IsSigned() bool {
	if t.IsPointer() {
		return false
	}
	return !t.Unsigned
}

// ElemSize returns the size of the element type, i.e. the type without
// array dimensions.
func (t *Type) ElemSize() int {
	if t.Pointer > 0 {
		return PointerSize
	}
	if t.Kind == Struct || t.Kind == Union {
		if t.Record == nil {
			return 0
		}
		return t.Record.Size
	}
	return kindSizes[t.Kind]
}

// Size returns the size of an object of type t in bytes. Arrays of unknown
// size count as having zero elements.
func (t *Type) Size() int {
	n := t.ElemSize()
	for _, d := range t.Dims {
		if d < 0 {
			return 0
		}
		n *= d
	}
	return n
}

// Align returns the alignment of t: the size of its scalar parts, at most 8.
func (t *Type) Align() int {
	if t.Pointer > 0 {
		return PointerSize
	}
	if t.Kind == Struct || t.Kind == Union {
		if t.Record == nil {
			return 1
		}
		return t.Record.Align
	}
	a := kindSizes[t.Kind]
	if a == 0 {
		return 1
	}
	return a
}

// IsComplete is a predicate: is the size of t known?
func (t *Type) IsComplete() bool {
	if t.Pointer == 0 && (t.Kind == Struct || t.Kind == Union) && (t.Record == nil || !t.Record.Complete) {
		return false
	}
	for _, d := range t.Dims {
		if d < 0 {
			return false
		}
	}
	return true
}

// Elem returns the element type of an array, dropping the outermost
// dimension, or the target type of a pointer.
func (t *Type) Elem() *Type {
	e := t.Copy()
	if t.IsArray() {
		e.Dims = e.Dims[1:]
		if len(e.Dims) == 0 {
			e.Dims = nil
		}
		return e
	}
	if t.Pointer > 0 {
		e.Pointer--
	}
	return e
}

// Decay returns the pointer type an array converts to in value contexts.
// Multi-dimensional arrays decay to a pointer to their innermost element.
func (t *Type) Decay() *Type {
	if !t.IsArray() {
		return t
	}
	d := t.Copy()
	d.Dims = nil
	d.Pointer++
	return d
}

// PointerTo returns the type of the address of an object of type t.
// Arrays yield a pointer to their first element.
func (t *Type) PointerTo() *Type {
	if t.IsArray() {
		return t.Decay()
	}
	p := t.Copy()
	p.Pointer++
	return p
}

// Base returns the base type without pointers and dimensions.
func (t *Type) Base() *Type {
	b := t.Copy()
	b.Pointer, b.Dims = 0, nil
	return b
}

// Equal is a predicate for identical types.
func (t *Type) Equal(other *Type) bool {
	if t.Kind != other.Kind || t.Pointer != other.Pointer || len(t.Dims) != len(other.Dims) {
		return false
	}
	switch t.Kind {
	case Struct, Union:
		if t.Record != other.Record && (t.Tag == "" || t.Tag != other.Tag) {
			return false
		}
	case Enum, Void:
	default:
		if t.Unsigned != other.Unsigned {
			return false
		}
	}
	for i, d := range t.Dims {
		if d != other.Dims[i] && d >= 0 && other.Dims[i] >= 0 {
			return false
		}
	}
	return true
}

// PointerCompatible is a predicate: may a value of pointer type src be
// assigned to a pointer of type t without a warning? void pointers are
// compatible with all object pointers.
func (t *Type) PointerCompatible(src *Type) bool {
	if t.IsVoidPointer() || src.IsVoidPointer() {
		return true
	}
	return t.Equal(src.Decay())
}

func (t *Type) String() string {
	var sb strings.Builder
	if t.Unsigned && t.Kind != Bool {
		sb.WriteString("unsigned ")
	}
	sb.WriteString(t.Kind.String())
	if t.Tag != "" {
		sb.WriteString(" " + t.Tag)
	}
	if t.Pointer > 0 {
		sb.WriteString(" " + strings.Repeat("*", t.Pointer))
	}
	for _, d := range t.Dims {
		if d < 0 {
			sb.WriteString("[]")
		} else {
			fmt.Fprintf(&sb, "[%d]", d)
		}
	}
	return sb.String()
}

// --- Records ---------------------------------------------------------------

// Record is the layout of a struct or union.
type Record struct {
	Keyword  string // "struct" or "union"
	Tag      string
	Fields   []Field
	Size     int
	Align    int
	Complete bool
}

// Field is a member of a record.
type Field struct {
	Name   string
	Type   *Type
	Offset int
}

// NewRecord creates an incomplete record.
func NewRecord(keyword, tag string) *Record {
	return &Record{Keyword: keyword, Tag: tag, Align: 1}
}

// IsUnion is a predicate.
func (r *Record) IsUnion() bool {
	return r.Keyword == "union"
}

// Field returns the member with a given name.
func (r *Record) Field(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AddField appends a member, aligning its offset to the member's alignment.
// Union members all start at offset 0.
func (r *Record) AddField(name string, t *Type) error {
	if _, dup := r.Field(name); dup && name != "" {
		return fmt.Errorf("duplicate member %q in %s %s", name, r.Keyword, r.Tag)
	}
	if !t.IsComplete() {
		return fmt.Errorf("member %q has incomplete type %s", name, t)
	}
	align := t.Align()
	f := Field{Name: name, Type: t}
	if r.IsUnion() {
		if t.Size() > r.Size {
			r.Size = t.Size()
		}
	} else {
		f.Offset = alignUp(r.Size, align)
		r.Size = f.Offset + t.Size()
	}
	if align > r.Align {
		r.Align = align
	}
	r.Fields = append(r.Fields, f)
	return nil
}

// Finish completes a record, padding its size to its alignment.
func (r *Record) Finish() {
	r.Size = alignUp(r.Size, r.Align)
	r.Complete = true
	tracer().Debugf("%s %s: size %d, align %d, %d fields", r.Keyword, r.Tag, r.Size, r.Align, len(r.Fields))
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
