/*
Package csim is an educational execution engine for a subset of C.

CSim parses and interprets small C programs while modelling C's memory
semantics (stack, heap, data and bss regions, pointer indirection, integer
overflow) precisely enough to visualize them. Execution may be single-stepped.
Package structure is as follows:

■ ast: Package ast defines the immutable syntax tree.

■ scanner, parser: A lexmachine-based tokenizer and a recursive-descent parser
for the supported C subset.

■ ctype: Resolution of type specifier lists to sized C types.

■ runtime: Symbol tables, scopes, frames and the call stack.

■ memory: A byte-addressable memory simulator.

■ sema: The semantic analyzer.

■ interp: The interpreter, orchestrating parse → analyze → execute.

The base package contains data types which are used throughout all the other packages.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package csim
