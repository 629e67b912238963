package csim

import "fmt"

// --- A general purpose interface for tokens --------------------------------

// TokType is a category type for a Token. Constants are defined by the scanner.
type TokType int

// Tokens represent input tokens. They are produced by a scanner and
// reflect terminals of the C subset.
//
// An example would be a token for an integer constant:
//
//    TokType = IntConst    // identifier for this kind of tokens
//    Lexeme  = "0x1F"      // lexeme how it appeared in the input stream
//    Value   = 31          // an int64 value
//    Loc     = 3:12        // line 3, column 12
//
type Token interface {
	TokType() TokType
	Lexeme() string
	Value() interface{}
	Loc() Location
}

// --- Spans ------------------------------------------------------------

// Span is a small type for capturing a run of input bytes. A span denotes
// a start position and the position just behind the end.
type Span [2]uint64 // (x…y)

// From returns the start value of a span.
func (s Span) From() uint64 {
	return s[0]
}

// To returns the end value of a span.
func (s Span) To() uint64 {
	return s[1]
}

// Len returns the length of (x…y)
func (s Span) Len() uint64 {
	return s[1] - s[0]
}

func (s Span) IsNull() bool {
	return s == Span{}
}

func (s Span) Extend(other Span) Span {
	if other[0] < s[0] {
		s[0] = other[0]
	}
	if other[1] > s[1] {
		s[1] = other[1]
	}
	return s
}

func (s Span) String() string {
	return fmt.Sprintf("(%d…%d)", s[0], s[1])
}

// --- Locations --------------------------------------------------------

// Location is a source position: 1-based line and column, together with the
// byte span of the construct it belongs to.
type Location struct {
	Line   int
	Column int
	Span   Span
}

// At creates a location for a line and column, without a span.
func At(line, col int) Location {
	return Location{Line: line, Column: col}
}

// IsKnown is a predicate: does the location point into the source?
func (l Location) IsKnown() bool {
	return l.Line > 0
}

// Extend returns a location starting at l and covering the span of other.
func (l Location) Extend(other Location) Location {
	if !l.IsKnown() {
		return other
	}
	l.Span = l.Span.Extend(other.Span)
	return l
}

func (l Location) String() string {
	if !l.IsKnown() {
		return "?:?"
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}
