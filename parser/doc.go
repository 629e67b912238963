/*
Package parser implements a recursive-descent parser for the C subset
executed by package interp.

The parser turns source text into an *ast.TranslationUnit. It tracks typedef
names per block scope, as C's grammar requires, but performs no further
semantic checks; these are the task of package sema.

Not supported: the preprocessor (lines starting with '#' are skipped),
goto and labels, function pointers, bit-fields, compound literals and
K&R-style function definitions.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package parser

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'csim.parser'.
func tracer() tracing.Trace {
	return tracing.Select("csim.parser")
}
