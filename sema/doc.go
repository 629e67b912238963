/*
Package sema implements the semantic analysis of C programs.

The analyzer walks a translation unit once, before it is executed. It
maintains its own tree of scopes, with the native functions pre-declared in
the global scope, and inserts every declared identifier with its resolved
type.

Semantic errors reject the smallest construct enclosing them: the innermost
statement or declaration, or a function definition if the error is located in
its declarator. The interpreter asks Result.Rejected before executing a
construct. Siblings of rejected constructs are analyzed and executed as
usual. Warnings never reject anything.

Resolved types of expressions, the symbols of declarators and identifiers,
and the values of constant expressions are recorded in side tables of the
Result. AST nodes themselves are never changed.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package sema

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'csim.sema'.
func tracer() tracing.Trace {
	return tracing.Select("csim.sema")
}
