package ctype

import (
	"math"
	"strings"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/diag"
)

// Env provides the bindings type resolution depends on: typedef names,
// tags and enumeration constants. Scopes of package runtime implement it.
type Env interface {
	LookupTypedef(name string) (*Type, bool)
	LookupTag(name string) (*Type, bool)
	LocalTag(name string) (*Type, bool) // innermost scope only
	DefineTag(name string, t *Type, at csim.Location) error
	LookupConstant(name string) (int64, bool)
	DefineConstant(name string, value int64, at csim.Location) error
}

var qualifierWords = map[string]bool{"const": true, "volatile": true, "restrict": true}

// ResolveBase resolves the specifiers of a declaration to its base type.
// Struct, union and enum specifiers with a body define their tag (and
// enumeration constants) in env. The result may be shared; callers copy it
// before deriving from it.
func ResolveBase(env Env, specs []string, typeSpec ast.Node, at csim.Location) (*Type, error) {
	var words []string
	for _, s := range specs {
		if !qualifierWords[s] {
			words = append(words, s)
		}
	}
	if !ast.IsNil(typeSpec) {
		if len(words) != 1 {
			return nil, diag.Semanticf(diag.InvalidType, at, "invalid type specifiers %s", strings.Join(specs, " "))
		}
		switch ts := typeSpec.(type) {
		case *ast.StructUnion:
			return resolveRecord(env, ts)
		case *ast.Enum:
			return resolveEnum(env, ts)
		case *ast.Tagname:
			return resolveTagname(env, ts)
		}
		return nil, diag.Semanticf(diag.InvalidType, at, "unexpected type specifier %s", typeSpec.Kind())
	}
	if len(words) == 1 && !isBasicWord(words[0]) {
		t, ok := env.LookupTypedef(words[0])
		if !ok {
			return nil, diag.Semanticf(diag.Undeclared, at, "unknown type name %q", words[0])
		}
		return t, nil
	}
	kind, unsigned, err := basicKind(words)
	if err != nil {
		return nil, diag.Semanticf(diag.InvalidType, at, "%s: %s", err.Error(), strings.Join(specs, " "))
	}
	return Basic(kind, unsigned), nil
}

var basicWords = map[string]bool{
	"void": true, "_Bool": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
}

func isBasicWord(s string) bool {
	return basicWords[s]
}

type specError string

func (e specError) Error() string { return string(e) }

// basicKind resolves a multiset of basic type keywords.
func basicKind(words []string) (Kind, bool, error) {
	cnt := make(map[string]int, len(words))
	for _, w := range words {
		if !basicWords[w] {
			return Void, false, specError("invalid type specifier combination")
		}
		cnt[w]++
	}
	if len(words) == 0 {
		return Void, false, specError("missing type specifier")
	}
	signed, unsigned := cnt["signed"], cnt["unsigned"]
	if signed+unsigned > 1 || cnt["short"] > 1 || cnt["int"] > 1 || cnt["char"] > 1 || cnt["long"] > 2 {
		return Void, false, specError("duplicate type specifier")
	}
	others := func(allowed ...string) bool {
		n := 0
		for _, a := range allowed {
			n += cnt[a]
		}
		return n != len(words)
	}
	uns := unsigned > 0
	switch {
	case cnt["void"] > 0:
		if others("void") {
			return Void, false, specError("invalid combination with void")
		}
		return Void, false, nil
	case cnt["_Bool"] > 0:
		if others("_Bool") {
			return Void, false, specError("invalid combination with _Bool")
		}
		return Bool, true, nil
	case cnt["float"] > 0:
		if others("float") {
			return Void, false, specError("invalid combination with float")
		}
		return Float, false, nil
	case cnt["double"] > 0:
		if others("double", "long") || cnt["long"] > 1 {
			return Void, false, specError("invalid combination with double")
		}
		return Double, false, nil
	case cnt["char"] > 0:
		if others("char", "signed", "unsigned") {
			return Void, false, specError("invalid combination with char")
		}
		return Char, uns, nil
	case cnt["short"] > 0:
		if others("short", "int", "signed", "unsigned") {
			return Void, false, specError("invalid combination with short")
		}
		return Short, uns, nil
	case cnt["long"] == 2:
		return LongLong, uns, nil
	case cnt["long"] == 1:
		return Long, uns, nil
	}
	return Int, uns, nil
}

func recordKind(keyword string) Kind {
	if keyword == "union" {
		return Union
	}
	return Struct
}

func resolveRecord(env Env, su *ast.StructUnion) (*Type, error) {
	kind := recordKind(su.Keyword)
	var t *Type
	if su.Name != "" {
		if old, ok := env.LocalTag(su.Name); ok {
			if old.Kind != kind || old.Record == nil {
				return nil, diag.Semanticf(diag.Redeclared, su.At, "%s %s redeclared as a different kind of tag", su.Keyword, su.Name)
			}
			if old.Record.Complete {
				return nil, diag.Semanticf(diag.Redeclared, su.At, "redefinition of %s %s", su.Keyword, su.Name)
			}
			t = old
		}
	}
	if t == nil {
		t = &Type{Kind: kind, Tag: su.Name, Record: NewRecord(su.Keyword, su.Name)}
		if su.Name != "" {
			if err := env.DefineTag(su.Name, t, su.At); err != nil {
				return nil, err
			}
		}
	}
	for _, m := range su.Members {
		base, err := ResolveBase(env, m.Specifiers, m.TypeSpec, m.At)
		if err != nil {
			return nil, err
		}
		for _, item := range m.Items {
			d := item.Declarator
			if d.IsFunction() {
				return nil, diag.Semanticf(diag.InvalidType, d.At, "member %q declared as a function", d.Name())
			}
			mt, err := Declare(env, base, d)
			if err != nil {
				return nil, err
			}
			if err := t.Record.AddField(d.Name(), mt); err != nil {
				return nil, diag.Semanticf(diag.InvalidType, d.At, "%s", err.Error())
			}
		}
	}
	t.Record.Finish()
	return t, nil
}

func resolveEnum(env Env, en *ast.Enum) (*Type, error) {
	t := &Type{Kind: Enum, Tag: en.Name}
	if en.Name != "" {
		if err := env.DefineTag(en.Name, t, en.At); err != nil {
			return nil, err
		}
	}
	var next int64
	for _, e := range en.Enumerators {
		if e.Value != nil {
			v, err := EvalConst(env, e.Value)
			if err != nil {
				return nil, err
			}
			next = v
		}
		if err := env.DefineConstant(e.Name, next, e.At); err != nil {
			return nil, err
		}
		next++
	}
	return t, nil
}

func resolveTagname(env Env, tn *ast.Tagname) (*Type, error) {
	t, ok := env.LookupTag(tn.Name)
	if !ok {
		return nil, diag.Semanticf(diag.Undeclared, tn.At, "undeclared %s tag %q", tn.Keyword, tn.Name)
	}
	want := Enum
	if tn.Keyword != "enum" {
		want = recordKind(tn.Keyword)
	}
	if t.Kind != want {
		return nil, diag.Semanticf(diag.InvalidType, tn.At, "%q is not a %s tag", tn.Name, tn.Keyword)
	}
	return t, nil
}

// Declare derives the type of a declarator from a base type. For function
// declarators the result type is returned.
func Declare(env Env, base *Type, d *ast.Declarator) (*Type, error) {
	t := base.Copy()
	var dims []int
	for l := d; l != nil; l = l.Inner {
		switch l.Form {
		case ast.DeclPointer:
			if len(dims) > 0 || base.IsArray() {
				return nil, diag.Semanticf(diag.Unsupported, l.At, "pointers to arrays are not supported")
			}
			t.Pointer++
		case ast.DeclArray:
			n := -1
			if l.Size != nil {
				v, err := EvalConst(env, l.Size)
				if err != nil {
					return nil, err
				}
				if v <= 0 {
					return nil, diag.Semanticf(diag.InvalidType, l.At, "array size must be positive, is %d", v)
				}
				n = int(v)
			}
			dims = append([]int{n}, dims...)
		case ast.DeclFunction:
			if len(dims) > 0 {
				return nil, diag.Semanticf(diag.InvalidType, l.At, "function cannot return an array")
			}
			for in := l.Inner; in != nil; in = in.Inner {
				if in.Form != ast.DeclParen && in.Form != ast.DeclIdent {
					return nil, diag.Semanticf(diag.Unsupported, in.At, "function pointers are not supported")
				}
			}
			return t, nil
		}
	}
	for i := 1; i < len(dims); i++ {
		if dims[i] < 0 {
			return nil, diag.Semanticf(diag.InvalidType, d.At, "array has incomplete element type")
		}
	}
	t.Dims = append(dims, base.Dims...)
	if len(t.Dims) == 0 {
		t.Dims = nil
	}
	return t, nil
}

// TypeName resolves a type name as used by casts and sizeof.
func TypeName(env Env, decl *ast.Declaration) (*Type, error) {
	base, err := ResolveBase(env, decl.Specifiers, decl.TypeSpec, decl.At)
	if err != nil {
		return nil, err
	}
	if len(decl.Items) == 0 {
		return base.Copy(), nil
	}
	return Declare(env, base, decl.Items[0].Declarator)
}

// AdjustParam converts array parameter types to pointers.
func AdjustParam(t *Type) *Type {
	if t.IsArray() {
		return t.Decay()
	}
	return t
}

// --- Literals and conversions ----------------------------------------------

// LiteralType returns the type of a constant.
func LiteralType(lit *ast.Literal) *Type {
	switch lit.Lit {
	case ast.IntLiteral:
		v := lit.Int
		if lit.Unsigned {
			if lit.Long || v < 0 || v > math.MaxUint32 {
				return ULongType
			}
			return UIntType
		}
		if v < 0 {
			return ULongType
		}
		if lit.Long || v > math.MaxInt32 {
			return LongType
		}
		return IntType
	case ast.CharLiteral:
		return IntType
	case ast.FloatLiteral:
		if strings.HasSuffix(lit.Text, "f") || strings.HasSuffix(lit.Text, "F") {
			return FloatType
		}
		return DoubleType
	case ast.StringLiteral:
		return &Type{Kind: Char, Dims: []int{len(lit.Str) + 1}}
	}
	return IntType
}

// Promote applies the integer promotions.
func Promote(t *Type) *Type {
	if t.IsInteger() && (t.Kind < Int || t.Kind == Enum) {
		return IntType
	}
	return t.Base()
}

// Common returns the type of the usual arithmetic conversions of two
// arithmetic operand types.
func Common(a, b *Type) *Type {
	if a.Kind == Double || b.Kind == Double {
		return DoubleType
	}
	if a.Kind == Float || b.Kind == Float {
		return FloatType
	}
	a, b = Promote(a), Promote(b)
	if a.Unsigned == b.Unsigned {
		if a.Size() >= b.Size() {
			return a
		}
		return b
	}
	u, s := a, b
	if s.Unsigned {
		u, s = s, u
	}
	if u.Size() >= s.Size() {
		return u
	}
	return s
}

// Truncate reduces v to an integer of a given width in bytes and signedness,
// two's complement. It reports whether v was outside the representable range.
// For a width of 8 all values are representable.
func Truncate(v int64, width int, signed bool) (int64, bool) {
	if width >= 8 {
		return v, false
	}
	bits := uint(width * 8)
	mask := uint64(1)<<bits - 1
	u := uint64(v) & mask
	var r int64
	if signed && u&(1<<(bits-1)) != 0 {
		r = int64(u | ^mask)
	} else {
		r = int64(u)
	}
	return r, r != v
}
