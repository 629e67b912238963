package runtime

import (
	"errors"
	"fmt"
)

// This module implements a stack of frames.
// Frames are used by an interpreter to bind active scopes to storage.

// ErrStackOverflow is returned when pushing beyond the maximum depth.
var ErrStackOverflow = errors.New("call stack overflow")

// Frame is a call stack frame, representing an active scope.
type Frame struct {
	Name      string
	Kind      ScopeKind
	Scope     *Scope
	Caller    *Frame // caller or enclosing frame
	StackMark uint64 // stack pointer at frame entry
	Function  string // function this frame belongs to; empty for the global frame
}

func (f *Frame) String() string {
	return fmt.Sprintf("<frame %s (%s) -> %v>", f.Name, f.Kind, f.Scope)
}

// IsRoot is a predicate: Is this a root frame?
func (f *Frame) IsRoot() bool {
	return f.Caller == nil
}

// IsFunction is a predicate: Is this the frame of a function call?
func (f *Frame) IsFunction() bool {
	return f.Kind == FunctionScope
}

// Symbols returns the symbol table of the frame's scope.
func (f *Frame) Symbols() *SymbolTable {
	return f.Scope.Symbols()
}

// ---------------------------------------------------------------------------

// CallStack is a stack of frames. Besides the global frame at its bottom it
// holds two pseudo-frames, one for heap objects and one for static data.
// These do not take part in pushing and popping.
type CallStack struct {
	base, tos *Frame
	heap      *Frame
	data      *Frame
	depth     int // frames above the global frame
	maxDepth  int
}

// NewCallStack creates a call stack with a global frame bound to globals.
// maxDepth limits the number of frames above the global frame; a value
// ≤ 0 means no limit.
func NewCallStack(globals *Scope, maxDepth int) *CallStack {
	global := &Frame{Name: "global", Kind: GlobalScope, Scope: globals}
	return &CallStack{
		base:     global,
		tos:      global,
		heap:     &Frame{Name: "heap", Kind: HeapScope, Scope: NewScope("heap", HeapScope, nil)},
		data:     &Frame{Name: "data", Kind: DataScope, Scope: NewScope("data", DataScope, nil)},
		maxDepth: maxDepth,
	}
}

// Current gets the current frame of a stack (TOS).
func (cs *CallStack) Current() *Frame {
	return cs.tos
}

// Globals gets the outermost frame, containing global symbols.
func (cs *CallStack) Globals() *Frame {
	return cs.base
}

// Heap returns the pseudo-frame of heap objects.
func (cs *CallStack) Heap() *Frame {
	return cs.heap
}

// Data returns the pseudo-frame of static data.
func (cs *CallStack) Data() *Frame {
	return cs.data
}

// Depth returns the number of frames above the global frame.
func (cs *CallStack) Depth() int {
	return cs.depth
}

// Push pushes a new frame as TOS, bound to scope. For block frames the
// function name is inherited from the enclosing frame.
func (cs *CallStack) Push(name string, kind ScopeKind, scope *Scope, mark uint64) (*Frame, error) {
	if cs.maxDepth > 0 && cs.depth >= cs.maxDepth {
		return nil, fmt.Errorf("%w: depth %d exceeded when entering %s", ErrStackOverflow, cs.maxDepth, name)
	}
	f := &Frame{
		Name:      name,
		Kind:      kind,
		Scope:     scope,
		Caller:    cs.tos,
		StackMark: mark,
		Function:  name,
	}
	if kind == BlockScope {
		f.Function = cs.tos.Function
	}
	cs.tos = f
	cs.depth++
	tracer().P("frame", name).Debugf("pushing new %s frame, depth %d", kind, cs.depth)
	return f, nil
}

// Pop pops the top-most frame. Returns the popped frame.
func (cs *CallStack) Pop() *Frame {
	if cs.tos == cs.base {
		panic("attempt to pop the global frame")
	}
	f := cs.tos
	tracer().Debugf("popping frame [%s]", f.Name)
	cs.tos = f.Caller
	cs.depth--
	return f
}

// Frames returns the frames from bottom (global) to top, in push order.
// Pseudo-frames are not included.
func (cs *CallStack) Frames() []*Frame {
	frames := make([]*Frame, cs.depth+1)
	i := cs.depth
	for f := cs.tos; f != nil; f = f.Caller {
		frames[i] = f
		i--
	}
	return frames
}

// FunctionFrames counts the frames of active function calls.
func (cs *CallStack) FunctionFrames() int {
	n := 0
	for f := cs.tos; f != nil; f = f.Caller {
		if f.IsFunction() {
			n++
		}
	}
	return n
}

// FindFrameForScope finds the top-most frame pointing to scope.
func (cs *CallStack) FindFrameForScope(scope *Scope) *Frame {
	switch scope {
	case cs.heap.Scope:
		return cs.heap
	case cs.data.Scope:
		return cs.data
	}
	for f := cs.tos; f != nil; f = f.Caller {
		if f.Scope == scope {
			return f
		}
	}
	return nil
}

// FunctionFrame returns the innermost function frame, or nil.
func (cs *CallStack) FunctionFrame() *Frame {
	for f := cs.tos; f != nil; f = f.Caller {
		if f.IsFunction() {
			return f
		}
	}
	return nil
}
