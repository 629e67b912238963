package sema

import (
	"errors"
	"fmt"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/csim/runtime"
)

// Analyzer is a single-use semantic analysis pass.
type Analyzer struct {
	scopes   runtime.ScopeTree
	result   *Result
	diags    *diag.Bag
	sigs     map[*runtime.Symbol]*Signature
	locals   map[*runtime.Symbol]bool // automatic scalar variables
	reported *treeset.Set             // variables already warned about as uninitialized
	fn       *Signature               // function currently analyzed
	loops    int
	switches int
}

// Analyze checks a translation unit. Diagnostics are added to diags.
func Analyze(tu *ast.TranslationUnit, diags *diag.Bag) *Result {
	a := &Analyzer{
		result:   newResult(),
		diags:    diags,
		sigs:     make(map[*runtime.Symbol]*Signature),
		locals:   make(map[*runtime.Symbol]bool),
		reported: treeset.NewWithStringComparator(),
	}
	globals := a.scopes.PushNewScope("globals", runtime.GlobalScope)
	if err := runtime.DeclareNatives(globals); err != nil {
		panic(err)
	}
	globals.Symbols().Each(func(sym *runtime.Symbol) {
		n := sym.Value.(*runtime.Native)
		sig := &Signature{Name: n.Name, Result: n.Result, Params: n.Params, Variadic: n.Variadic, Native: n}
		a.sigs[sym] = sig
		a.result.Functions[n.Name] = sig
	})
	a.result.Globals = globals
	for _, d := range tu.Decls {
		switch x := d.(type) {
		case *ast.Function:
			a.function(x)
		default:
			a.blockItem(x)
		}
	}
	tracer().Infof("analyzed %s: %d rejected constructs, %d diagnostics",
		tu.Name, a.result.RejectedCount(), diags.Len())
	return a.result
}

func (a *Analyzer) scope() *runtime.Scope {
	return a.scopes.Current()
}

// fail reports err and rejects construct n.
func (a *Analyzer) fail(n ast.Node, err error) {
	a.diags.AddError(err)
	if !a.result.rejected[n] {
		tracer().Debugf("rejecting %s at %s", n.Kind(), n.Loc())
	}
	a.result.rejected[n] = true
}

func (a *Analyzer) insert(sym *runtime.Symbol) error {
	if err := a.scope().Insert(sym); err != nil {
		if !errors.Is(err, runtime.ErrRedeclared) {
			return err
		}
		prev := a.scope().Symbols().Lookup(sym.Name, sym.Namespace)
		return diag.Semanticf(diag.Redeclared, sym.At, "redeclaration of %q, previously declared at %s",
			sym.Name, prev.At)
	}
	return nil
}

func (a *Analyzer) blockItem(n ast.Node) {
	switch x := n.(type) {
	case *ast.Declaration:
		a.declaration(x)
	case *ast.Typedef:
		a.typedef(x)
	default:
		a.statement(n)
	}
}

// --- Declarations ----------------------------------------------------------

func (a *Analyzer) declaration(decl *ast.Declaration) {
	base, err := ctype.ResolveBase(a.scope(), decl.Specifiers, decl.TypeSpec, decl.At)
	if err != nil {
		a.fail(decl, err)
		return
	}
	for _, item := range decl.Items {
		if err := a.declareItem(decl, base, item); err != nil {
			a.fail(decl, err)
		}
	}
}

func (a *Analyzer) declareItem(decl *ast.Declaration, base *ctype.Type, item *ast.InitDeclarator) error {
	d := item.Declarator
	t, err := ctype.Declare(a.scope(), base, d)
	if err != nil {
		return err
	}
	if d.IsFunction() {
		if item.Init != nil {
			return diag.Semanticf(diag.InvalidType, d.At, "function %q is initialized like a variable", d.Name())
		}
		_, err := a.declareFunction(decl.Specifiers, t, d, nil)
		return err
	}
	if t.IsVoid() {
		return diag.Semanticf(diag.InvalidType, d.At, "variable %q declared void", d.Name())
	}
	if item.Init != nil && t.IsArray() && t.Dims[0] < 0 {
		t = completeArray(t, item.Init)
	}
	if !t.IsComplete() {
		return diag.Semanticf(diag.InvalidType, d.At, "variable %q has incomplete type %s", d.Name(), t)
	}
	sym := runtime.NewSymbol(d.Name(), runtime.Variable).WithType(t)
	sym.Specifiers, sym.At = decl.Specifiers, d.At
	static := a.scope().Kind == runtime.GlobalScope || decl.Storage == "static" || decl.Storage == "extern"
	sym.Initialized = static
	if err := a.insert(sym); err != nil {
		return err
	}
	a.result.Decls[d] = sym
	if !static && t.IsScalar() {
		a.locals[sym] = true
	}
	if item.Init == nil {
		return nil
	}
	err = a.initializer(t, item.Init)
	sym.Initialized = true
	return err
}

// completeArray sizes an array of unknown size from its initializer.
func completeArray(t *ctype.Type, init ast.Node) *ctype.Type {
	n := -1
	switch x := init.(type) {
	case *ast.Expression:
		if x.Op == ast.OpInitList {
			n = len(x.Operands)
		}
	case *ast.Literal:
		if x.Lit == ast.StringLiteral && t.Kind == ctype.Char && t.Pointer == 0 {
			n = len(x.Str) + 1
		}
	}
	if n <= 0 {
		return t
	}
	c := t.Copy()
	c.Dims[0] = n
	return c
}

func (a *Analyzer) initializer(t *ctype.Type, init ast.Node) error {
	if list, ok := init.(*ast.Expression); ok && list.Op == ast.OpInitList {
		a.result.Types[list] = t
		switch {
		case t.IsArray():
			if len(list.Operands) > t.Dims[0] {
				return diag.Semanticf(diag.Incompatible, list.At, "too many initializers for %s", t)
			}
			for _, x := range list.Operands {
				if err := a.initializer(t.Elem(), x); err != nil {
					return err
				}
			}
		case t.IsRecord():
			fields := t.Record.Fields
			if t.Record.IsUnion() && len(fields) > 1 {
				fields = fields[:1]
			}
			if len(list.Operands) > len(fields) {
				return diag.Semanticf(diag.Incompatible, list.At, "too many initializers for %s", t)
			}
			for i, x := range list.Operands {
				if err := a.initializer(fields[i].Type, x); err != nil {
					return err
				}
			}
		default:
			if len(list.Operands) != 1 {
				return diag.Semanticf(diag.Incompatible, list.At, "scalar %s needs exactly one initializer", t)
			}
			return a.initializer(t, list.Operands[0])
		}
		return nil
	}
	if t.IsArray() {
		lit, ok := init.(*ast.Literal)
		if ok && lit.Lit == ast.StringLiteral && t.Kind == ctype.Char && t.Pointer == 0 && len(t.Dims) == 1 {
			if len(lit.Str) > t.Dims[0] {
				return diag.Semanticf(diag.Incompatible, lit.At, "string of length %d too long for %s",
					len(lit.Str), t)
			}
			a.result.Types[lit] = ctype.LiteralType(lit)
			return nil
		}
		return diag.Semanticf(diag.Incompatible, init.Loc(), "array %s must be initialized with a list", t)
	}
	rt, err := a.rvalue(init)
	if err != nil {
		return err
	}
	return a.assignable(t, rt, init, "initialization")
}

func (a *Analyzer) typedef(td *ast.Typedef) {
	base, err := ctype.ResolveBase(a.scope(), td.Specifiers, td.TypeSpec, td.At)
	if err != nil {
		a.fail(td, err)
		return
	}
	for _, d := range td.Declarators {
		t, err := ctype.Declare(a.scope(), base, d)
		if err == nil && d.IsFunction() {
			err = diag.Semanticf(diag.Unsupported, d.At, "function types are not supported")
		}
		if err != nil {
			a.fail(td, err)
			continue
		}
		sym := runtime.NewSymbol(d.Name(), runtime.Typedef).WithType(t)
		sym.Specifiers, sym.Initialized, sym.At = td.Specifiers, true, d.At
		if err := a.insert(sym); err != nil {
			a.fail(td, err)
			continue
		}
		a.result.Decls[d] = sym
	}
}

// --- Functions -------------------------------------------------------------

func (a *Analyzer) paramTypes(d *ast.Declarator) ([]*ctype.Type, error) {
	var types []*ctype.Type
	for _, p := range d.Params() {
		t, err := ctype.ResolveBase(a.scope(), p.Specifiers, p.TypeSpec, p.At)
		if err != nil {
			return nil, err
		}
		if len(p.Items) > 0 {
			if t, err = ctype.Declare(a.scope(), t, p.Items[0].Declarator); err != nil {
				return nil, err
			}
		}
		t = ctype.AdjustParam(t)
		if t.IsVoid() {
			return nil, diag.Semanticf(diag.InvalidType, p.At, "parameter of %q declared void", d.Name())
		}
		types = append(types, t)
	}
	return types, nil
}

// declareFunction declares a function prototype or definition. A prototype
// may be followed by other prototypes or the definition of the same function.
func (a *Analyzer) declareFunction(specs []string, result *ctype.Type, d *ast.Declarator,
	def *ast.Function) (*Signature, error) {
	//
	params, err := a.paramTypes(d)
	if err != nil {
		return nil, err
	}
	name := d.Name()
	sig := &Signature{Name: name, Result: result, Params: params, Variadic: d.FunctionLink().Variadic, Def: def}
	if sig.Variadic && def != nil {
		return nil, diag.Semanticf(diag.Unsupported, d.At, "variadic function %q is not supported", name)
	}
	if prev := a.scope().Symbols().Lookup(name, runtime.Ordinary); prev != nil {
		prevSig := a.sigs[prev]
		if prev.IsFunction() && !prev.Native && (prevSig.Def == nil || def == nil) && sameSignature(prevSig, sig) {
			if def != nil {
				prevSig.Def, prev.Value, prev.Initialized = def, def, true
				prev.Params, prev.At = d.Params(), d.At
			}
			a.result.Decls[d] = prev
			return prevSig, nil
		}
		return nil, diag.Semanticf(diag.Redeclared, d.At, "redeclaration of %q, previously declared at %s",
			name, prev.At)
	}
	sym := runtime.NewSymbol(name, runtime.Function).WithType(result)
	sym.Specifiers, sym.Params, sym.At = specs, d.Params(), d.At
	if def != nil {
		sym.Value, sym.Initialized = def, true
	}
	if err := a.insert(sym); err != nil {
		return nil, err
	}
	a.sigs[sym] = sig
	a.result.Functions[name] = sig
	a.result.Decls[d] = sym
	return sig, nil
}

func sameSignature(s1, s2 *Signature) bool {
	if !s1.Result.Equal(s2.Result) || len(s1.Params) != len(s2.Params) || s1.Variadic != s2.Variadic {
		return false
	}
	for i, p := range s1.Params {
		if !p.Equal(s2.Params[i]) {
			return false
		}
	}
	return true
}

func (a *Analyzer) function(fn *ast.Function) {
	base, err := ctype.ResolveBase(a.scope(), fn.Specifiers, fn.TypeSpec, fn.At)
	if err != nil {
		a.fail(fn, err)
		return
	}
	result, err := ctype.Declare(a.scope(), base, fn.Declarator)
	if err != nil {
		a.fail(fn, err)
		return
	}
	if result.IsArray() || result.IsRecord() {
		a.fail(fn, diag.Semanticf(diag.Unsupported, fn.Declarator.At, "function %q returns %s", fn.Name(), result))
		return
	}
	sig, err := a.declareFunction(fn.Specifiers, result, fn.Declarator, fn)
	if err != nil {
		a.fail(fn, err)
		return
	}
	tracer().Debugf("analyzing function %s", fn.Name())
	a.scopes.PushNewScope(fn.Name(), runtime.FunctionScope)
	defer a.scopes.PopScope()
	for i, p := range fn.Params() {
		if len(p.Items) == 0 || p.Items[0].Declarator.Name() == "" {
			a.fail(fn, diag.Semanticf(diag.InvalidType, p.At, "parameter %d of %q has no name", i+1, fn.Name()))
			continue
		}
		d := p.Items[0].Declarator
		sym := runtime.NewSymbol(d.Name(), runtime.Parameter).WithType(sig.Params[i])
		sym.Specifiers, sym.Initialized, sym.At = p.Specifiers, true, d.At
		if err := a.insert(sym); err != nil {
			a.fail(fn, err)
			continue
		}
		a.result.Decls[d] = sym
	}
	a.fn, a.loops, a.switches = sig, 0, 0
	for _, item := range fn.Body.Items {
		a.blockItem(item)
	}
	a.fn = nil
	if !result.IsVoid() && fn.Name() != "main" && canFallThrough(fn.Body) {
		a.diags.Warn(diag.MissingReturn, fn.Declarator.At,
			"control may reach the end of non-void function %q without a return", fn.Name())
		a.result.fallsOff[fn] = true
	}
}

// --- Uninitialized reads ---------------------------------------------------

func (a *Analyzer) checkInitialized(id *ast.Identifier, sym *runtime.Symbol) {
	if sym.Initialized || !a.locals[sym] {
		return
	}
	key := fmt.Sprintf("%s@%d:%d", sym.Name, sym.At.Line, sym.At.Column)
	if a.reported.Contains(key) {
		return
	}
	a.reported.Add(key)
	a.diags.Warn(diag.Uninitialized, id.At, "variable %q is used uninitialized", sym.Name)
}
