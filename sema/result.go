package sema

import (
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/csim/runtime"
)

// Signature is the resolved type of a function.
type Signature struct {
	Name     string
	Result   *ctype.Type
	Params   []*ctype.Type
	Variadic bool
	Def      *ast.Function   // nil for prototypes and native functions
	Native   *runtime.Native // non-nil for native functions
}

// Arity returns the number of declared parameters.
func (sig *Signature) Arity() int {
	return len(sig.Params)
}

// Result holds the findings of an analysis run.
type Result struct {
	Globals   *runtime.Scope                      // the analyzer's global scope
	Types     map[ast.Node]*ctype.Type            // type of every analyzed expression
	Decls     map[*ast.Declarator]*runtime.Symbol // symbols of successfully declared declarators
	Uses      map[*ast.Identifier]*runtime.Symbol // binding of every identifier expression
	Consts    map[ast.Node]int64                  // values of sizeof expressions and case labels
	Functions map[string]*Signature               // signatures of all functions, by name
	rejected  map[ast.Node]bool
	fallsOff  map[*ast.Function]bool
}

func newResult() *Result {
	return &Result{
		Types:     make(map[ast.Node]*ctype.Type),
		Decls:     make(map[*ast.Declarator]*runtime.Symbol),
		Uses:      make(map[*ast.Identifier]*runtime.Symbol),
		Consts:    make(map[ast.Node]int64),
		Functions: make(map[string]*Signature),
		rejected:  make(map[ast.Node]bool),
		fallsOff:  make(map[*ast.Function]bool),
	}
}

// Rejected is a predicate: has node n been rejected because of a semantic
// error? Rejected constructs must not be executed.
func (r *Result) Rejected(n ast.Node) bool {
	return r.rejected[n]
}

// RejectedCount returns the number of rejected constructs.
func (r *Result) RejectedCount() int {
	return len(r.rejected)
}

// FallsThrough is a predicate: may the non-void function fn reach the end of
// its body without a return statement? A missing-return warning has already
// been issued for such functions.
func (r *Result) FallsThrough(fn *ast.Function) bool {
	return r.fallsOff[fn]
}

// TypeOf returns the resolved type of an expression, or nil.
func (r *Result) TypeOf(n ast.Node) *ctype.Type {
	return r.Types[n]
}
