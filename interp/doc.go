/*
Package interp implements a stepping tree-walking interpreter for a subset of C.

An Interpreter parses a source text, hands it to the semantic analyzer and
then executes it on top of a simulated memory (package memory) and a call
stack of frames (package runtime). All C objects, including locals and
parameters, live in memory cells, so taking the address of any object is
well-defined.

Execution is resumable. The walker runs as a pull iterator and pauses before
every unit of work: a declaration, an expression statement, a jump, a
selection, a loop condition or a function entry. Step executes exactly one
such unit, Run executes units until the program terminates or a step budget
is exhausted.

Usage:

    it := interp.New()
    if _, err := it.Parse(src); err != nil {
        …  // syntax error
    }
    out, err := it.Run(0)
    for _, d := range it.Diagnostics().All() {
        fmt.Println(d)
    }

Snapshots give a read-only view of frames, heap objects and static data,
suitable for visualization.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package interp

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'csim.interp'.
func tracer() tracing.Trace {
	return tracing.Select("csim.interp")
}
