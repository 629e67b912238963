/*
Package runtime implements the runtime of the C interpreter, consisting of
scopes, call frames and symbols (declarations of objects, functions, types
and tags).

For a thorough discussion of an interpreter's runtime environment, refer to
"Language Implementation Patterns" by Terence Parr.

Symbol Table and Scope Tree

This module implements data structures for scope trees and symbol tables
attached to them. Names live in separate namespaces for ordinary
identifiers, tags and members. Scopes implement the type environment of
package ctype.

Call Stack

This module implements a stack of frames. Frames bind active scopes of
functions and blocks; the bottom frame holds the globals. Two pseudo-frames
list heap objects and static data.

Native Functions

Built-in functions are declared like user functions, with a *Native marker
as their value.


----------------------------------------------------------------------

BSD License

Copyright (c) 2017-22, Norbert Pillmayer

All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions
are met:

1. Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright
notice, this list of conditions and the following disclaimer in the
documentation and/or other materials provided with the distribution.

3. Neither the name of this software or the names of its contributors
may be used to endorse or promote products derived from this software
without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
HOLDER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE. */
package runtime

import (
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'csim.runtime'.
func tracer() tracing.Trace {
	return tracing.Select("csim.runtime")
}

// Runtime is a type implementing a runtime environment for an interpreter:
// the global scope and a call stack.
type Runtime struct {
	Globals *Scope
	Stack   *CallStack
}

// NewRuntimeEnvironment constructs a new runtime environment, with the native
// functions pre-declared in its global scope.
func NewRuntimeEnvironment(maxDepth int) *Runtime {
	globals := NewScope("globals", GlobalScope, nil)
	if err := DeclareNatives(globals); err != nil {
		panic(err) // fresh scope
	}
	return &Runtime{
		Globals: globals,
		Stack:   NewCallStack(globals, maxDepth),
	}
}

// --- Native functions ------------------------------------------------------

// Native marks a built-in function and carries its signature.
type Native struct {
	Name     string
	Result   *ctype.Type
	Params   []*ctype.Type
	Variadic bool
}

var charPtr = &ctype.Type{Kind: ctype.Char, Pointer: 1}
var voidPtr = &ctype.Type{Kind: ctype.Void, Pointer: 1}

// Natives lists the built-in functions.
var Natives = []*Native{
	{Name: "printf", Result: ctype.IntType, Params: []*ctype.Type{charPtr}, Variadic: true},
	{Name: "puts", Result: ctype.IntType, Params: []*ctype.Type{charPtr}},
	{Name: "putchar", Result: ctype.IntType, Params: []*ctype.Type{ctype.IntType}},
	{Name: "malloc", Result: voidPtr, Params: []*ctype.Type{ctype.ULongType}},
	{Name: "calloc", Result: voidPtr, Params: []*ctype.Type{ctype.ULongType, ctype.ULongType}},
	{Name: "free", Result: ctype.VoidType, Params: []*ctype.Type{voidPtr}},
	{Name: "strlen", Result: ctype.ULongType, Params: []*ctype.Type{charPtr}},
	{Name: "abs", Result: ctype.IntType, Params: []*ctype.Type{ctype.IntType}},
}

// DeclareNatives inserts symbols for all native functions into a scope.
func DeclareNatives(scope *Scope) error {
	for _, n := range Natives {
		sym := NewSymbol(n.Name, Function).WithType(n.Result)
		sym.Native = true
		sym.Initialized = true
		sym.Value = n
		if err := scope.Insert(sym); err != nil {
			return err
		}
	}
	return nil
}
