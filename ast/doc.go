/*
Package ast defines the abstract syntax tree for the supported subset of C.

The tree is built once by a parser and is read-only thereafter. Nodes carry
syntax and a source location only; they never cache derived semantic facts
like sizes or signedness. Those are computed by the consumers (package ctype,
the semantic analyzer, the interpreter).

The set of node variants is closed: every variant implements Node, which is
sealed by an unexported method. Passes dispatch on the variant with type
switches,

    switch n := node.(type) {
    case *ast.Declaration:
        …
    case *ast.Expression:
        …
    }

and Walk/Inspect provide generic traversal in source order, in the spirit
of go/ast.

Declarators

A declarator is a recursive chain. The innermost node carries the
identifier, every enclosing node applies a type constructor to the base type
of the declaration:

    int *a[3];     Pointer → Array[3] → Ident(a)        a: array of 3 pointers to int
    int a[3][4];   Array[4] → Array[3] → Ident(a)       a: array of 3 arrays of 4 ints
    int f(int x);  Function(x) → Ident(f)               f: function returning int

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package ast
