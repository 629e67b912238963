/*
Package diag collects diagnostics: semantic errors, runtime errors and
warnings, each with a code, a message and a source location.

A Bag accumulates diagnostics in the order they are found. It belongs to a
single interpreter and is not safe for concurrent use.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package diag

import (
	"errors"
	"fmt"

	"github.com/npillmayer/csim"
)

// Kind is the severity class of a diagnostic.
type Kind int8

// Diagnostic kinds.
const (
	Semantic Kind = iota // static error, rejects the enclosing construct
	Runtime              // dynamic error, aborts the run
	Warning              // never aborts
)

func (k Kind) String() string {
	switch k {
	case Semantic:
		return "semantic error"
	case Runtime:
		return "runtime error"
	case Warning:
		return "warning"
	}
	return "unknown"
}

// Code classifies a diagnostic.
type Code string

// Diagnostic codes.
const (
	Redeclared      Code = "redeclared"
	Undeclared      Code = "undeclared"
	Incompatible    Code = "incompatible"
	InvalidType     Code = "invalid-type"
	NotCallable     Code = "not-callable"
	ArgumentCount   Code = "argument-count"
	UnknownMember   Code = "unknown-member"
	Overflow        Code = "overflow"
	Uninitialized   Code = "uninitialized"
	PointerMismatch Code = "pointer-mismatch"
	MissingReturn   Code = "missing-return"
	Unmapped        Code = "unmapped"
	DivisionByZero  Code = "div-zero"
	InvalidDeref    Code = "invalid-deref"
	InvalidRef      Code = "invalid-ref"
	InvalidFree     Code = "invalid-free"
	StackOverflow   Code = "stack-overflow"
	OutOfMemory     Code = "out-of-memory"
	Unsupported     Code = "unsupported"
)

// Diagnostic is a single finding.
type Diagnostic struct {
	Kind    Kind
	Code    Code
	Message string
	Loc     csim.Location
}

func (d *Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", d.Loc, d.Kind, d.Message, d.Code)
}

// New creates a diagnostic with a formatted message.
func New(kind Kind, code Code, at csim.Location, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Kind:    kind,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Loc:     at,
	}
}

// --- Errors ----------------------------------------------------------------

// SemanticError is a static error. It rejects the smallest enclosing
// statement or declaration.
type SemanticError struct {
	*Diagnostic
}

func (e *SemanticError) Error() string {
	return e.Diagnostic.String()
}

// Semanticf creates a semantic error.
func Semanticf(code Code, at csim.Location, format string, args ...interface{}) *SemanticError {
	return &SemanticError{New(Semantic, code, at, format, args...)}
}

// RuntimeError is a dynamic error. It aborts the run.
type RuntimeError struct {
	*Diagnostic
	cause error
}

func (e *RuntimeError) Error() string {
	return e.Diagnostic.String()
}

// Unwrap returns the structural error this runtime error was raised for, if any.
func (e *RuntimeError) Unwrap() error {
	return e.cause
}

// Because records a sentinel cause, to be matched with errors.Is.
func (e *RuntimeError) Because(err error) *RuntimeError {
	e.cause = err
	return e
}

// At sets the location of e if it is still unknown.
func (e *RuntimeError) At(loc csim.Location) *RuntimeError {
	if !e.Loc.IsKnown() {
		e.Loc = loc
	}
	return e
}

// Runtimef creates a runtime error.
func Runtimef(code Code, at csim.Location, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Diagnostic: New(Runtime, code, at, format, args...)}
}

// --- Bag -------------------------------------------------------------------

// Bag collects diagnostics.
type Bag struct {
	items []*Diagnostic
}

// NewBag creates an empty bag.
func NewBag() *Bag {
	return &Bag{}
}

// Add appends a diagnostic. Adding nil is a no-op.
func (b *Bag) Add(d *Diagnostic) {
	if d == nil {
		return
	}
	tracer().Debugf("%s", d)
	b.items = append(b.items, d)
}

// Warn adds a warning.
func (b *Bag) Warn(code Code, at csim.Location, format string, args ...interface{}) *Diagnostic {
	d := New(Warning, code, at, format, args...)
	b.Add(d)
	return d
}

// AddError adds the diagnostic of a SemanticError or RuntimeError. Other
// errors are added as runtime errors without a location.
func (b *Bag) AddError(err error) *Diagnostic {
	var d *Diagnostic
	var semerr *SemanticError
	var rterr *RuntimeError
	switch {
	case errors.As(err, &semerr):
		d = semerr.Diagnostic
	case errors.As(err, &rterr):
		d = rterr.Diagnostic
	default:
		d = New(Runtime, Unsupported, csim.Location{}, "%v", err)
	}
	b.Add(d)
	return d
}

// All returns all diagnostics in the order they were added.
func (b *Bag) All() []*Diagnostic {
	return append([]*Diagnostic(nil), b.items...)
}

// Warnings returns all warnings.
func (b *Bag) Warnings() []*Diagnostic {
	return b.filter(func(d *Diagnostic) bool { return d.Kind == Warning })
}

// Errors returns all semantic and runtime errors.
func (b *Bag) Errors() []*Diagnostic {
	return b.filter(func(d *Diagnostic) bool { return d.Kind != Warning })
}

// Fatal returns the first runtime error, or nil.
func (b *Bag) Fatal() *Diagnostic {
	for _, d := range b.items {
		if d.Kind == Runtime {
			return d
		}
	}
	return nil
}

// WithCode returns all diagnostics of a code.
func (b *Bag) WithCode(code Code) []*Diagnostic {
	return b.filter(func(d *Diagnostic) bool { return d.Code == code })
}

// Drain returns all diagnostics and empties the bag.
func (b *Bag) Drain() []*Diagnostic {
	items := b.items
	b.items = nil
	return items
}

// Len returns the number of diagnostics.
func (b *Bag) Len() int {
	return len(b.items)
}

func (b *Bag) filter(pred func(*Diagnostic) bool) []*Diagnostic {
	var r []*Diagnostic
	for _, d := range b.items {
		if pred(d) {
			r = append(r, d)
		}
	}
	return r
}
