/*
Package crepl/main provides a command line tool (C.REPL) to run a C source
file with the csim interpreter, or to single-step through it.

    crepl [-trace level] [-config file.yaml] [-step] [-yaml] [-budget n] file.c

In stepping mode C.REPL shows a prompt. An empty line executes the next
step. Commands are

    step [n]   execute n steps
    run        continue to the end of the program
    frames     show the call stack with its objects
    heap       show heap blocks
    data       show static data
    print x    show the innermost object named x
    yaml       dump a snapshot as YAML
    out        show program output
    diag       show diagnostics
    quit       leave

A configuration file is a YAML document. Nested keys are flattened with
dots, so

    csim:
      steps: 5000
      stack:
        size: 0x8000

sets keys "csim.steps" and "csim.stack.size".

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package main

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'csim.crepl'
func tracer() tracing.Trace {
	return tracing.Select("csim.crepl")
}
