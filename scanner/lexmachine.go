package scanner

import (
	"fmt"
	"strings"
	"sync"

	"github.com/npillmayer/csim"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// lexmachine adapter

// LMAdapter is a lexmachine adapter to use lexmachine as a scanner.
type LMAdapter struct {
	Lexer    *lexmachine.Lexer
	keywords map[string]bool
}

// NewLMAdapter creates a new lexmachine adapter. It receives an init function
// for adding patterns, a list of punctuators ('[', ';', …) and a list of
// keywords ("if", "for", …). Punctuators are added as escaped patterns after
// init has run. Keywords are not patterns; MakeIdent actions check for them.
//
// NewLMAdapter will return an error if compiling the DFA failed.
func NewLMAdapter(init func(*LMAdapter), punctuators []string, keywords []string) (*LMAdapter, error) {
	adapter := &LMAdapter{
		Lexer:    lexmachine.NewLexer(),
		keywords: make(map[string]bool, len(keywords)),
	}
	for _, kw := range keywords {
		adapter.keywords[kw] = true
	}
	init(adapter)
	for _, p := range punctuators {
		r := "\\" + strings.Join(strings.Split(p, ""), "\\")
		adapter.Lexer.Add([]byte(r), MakeToken(Punct, nil))
	}
	if err := adapter.Lexer.Compile(); err != nil {
		tracer().Errorf("Error compiling DFA: %v", err)
		return nil, err
	}
	return adapter, nil
}

// Scanner creates a scanner for a given input. The scanner will implement the
// Tokenizer interface.
func (lm *LMAdapter) Scanner(input string) (*LMScanner, error) {
	s, err := lm.Lexer.Scanner([]byte(input))
	if err != nil {
		return &LMScanner{}, err
	}
	return &LMScanner{scanner: s, Error: logError}, nil
}

// MakeIdent is an action which produces a keyword token if the match is
// a keyword, and an identifier token otherwise.
func (lm *LMAdapter) MakeIdent() lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		lexeme := string(m.Bytes)
		if lm.keywords[lexeme] {
			return makeToken(Keyword, lexeme, nil, m), nil
		}
		return makeToken(Ident, lexeme, nil, m), nil
	}
}

// LMScanner is a scanner type for lexmachine scanners, implementing the
// Tokenizer interface.
type LMScanner struct {
	scanner *lexmachine.Scanner
	Error   func(error)
	last    csim.Location
}

var _ Tokenizer = (*LMScanner)(nil)

// SetErrorHandler sets an error handler for the scanner.
func (lms *LMScanner) SetErrorHandler(h func(error)) {
	if h == nil {
		lms.Error = logError
		return
	}
	lms.Error = h
}

// NextToken is part of the Tokenizer interface.
// Input which cannot be matched is reported to the error handler and skipped.
func (lms *LMScanner) NextToken() csim.Token {
	tok, err, eof := lms.scanner.Next()
	for err != nil {
		if ui, is := err.(*machines.UnconsumedInput); is {
			lms.Error(unconsumed(ui))
			lms.scanner.TC = ui.FailTC
		} else {
			lms.Error(err)
		}
		tok, err, eof = lms.scanner.Next()
	}
	if eof {
		end := uint64(len(lms.scanner.Text))
		loc := lms.last
		loc.Span = csim.Span{end, end}
		return MakeDefaultToken(EOF, "", loc)
	}
	token := tok.(DefaultToken)
	tracer().Debugf("token %v", token)
	lms.last = token.loc
	return token
}

// --- Actions ---------------------------------------------------------------

// Skip is a pre-defined action which ignores the scanned match.
func Skip(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
	return nil, nil
}

// MakeToken is a pre-defined action which wraps a scanned match into a token.
// If decode is non-nil, it computes the token's value from its lexeme.
func MakeToken(typ csim.TokType, decode func(string) (interface{}, error)) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		lexeme := string(m.Bytes)
		var val interface{}
		if decode != nil {
			v, err := decode(lexeme)
			if err != nil {
				return nil, &Error{Loc: matchLocation(m), Msg: err.Error()}
			}
			val = v
		}
		return makeToken(typ, lexeme, val, m), nil
	}
}

func makeToken(typ csim.TokType, lexeme string, val interface{}, m *machines.Match) DefaultToken {
	t := MakeDefaultToken(typ, lexeme, matchLocation(m))
	t.Val = val
	return t
}

func matchLocation(m *machines.Match) csim.Location {
	return csim.Location{
		Line:   m.StartLine,
		Column: m.StartColumn,
		Span:   csim.Span{uint64(m.TC), uint64(m.TC + len(m.Bytes))},
	}
}

func unconsumed(ui *machines.UnconsumedInput) *Error {
	from, to := ui.StartTC, ui.FailTC
	if to > len(ui.Text) {
		to = len(ui.Text)
	}
	if from > to {
		from = to
	}
	return &Error{
		Loc: csim.Location{
			Line:   ui.StartLine,
			Column: ui.StartColumn,
			Span:   csim.Span{uint64(from), uint64(to)},
		},
		Msg: fmt.Sprintf("unexpected input %q", string(ui.Text[from:to])),
	}
}

// Error is a lexical error.
type Error struct {
	Loc csim.Location
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Msg)
}

// --- C tokenizer -----------------------------------------------------------

var cLexer struct {
	once    sync.Once
	adapter *LMAdapter
	err     error
}

// CLexer returns the lexmachine adapter for C. The DFA is compiled once.
func CLexer() (*LMAdapter, error) {
	cLexer.once.Do(func() {
		cLexer.adapter, cLexer.err = NewLMAdapter(initC, Punctuators, Keywords)
	})
	return cLexer.adapter, cLexer.err
}

func initC(lm *LMAdapter) {
	lexer := lm.Lexer
	lexer.Add([]byte(`( |\t|\n|\r)+`), Skip)
	lexer.Add([]byte(`//[^\n]*`), Skip)
	lexer.Add([]byte(`/\*([^*]|\r|\n|(\*+([^*/]|\r|\n)))*\*+/`), Skip)
	lexer.Add([]byte(`#[^\n]*`), Skip) // preprocessor lines
	lexer.Add([]byte(`([a-z]|[A-Z]|_)([a-z]|[A-Z]|[0-9]|_)*`), lm.MakeIdent())
	lexer.Add([]byte(`[0-9]+[uUlL]*`), MakeToken(IntConst, decodeInt))
	lexer.Add([]byte(`0(x|X)([0-9]|[a-f]|[A-F])+[uUlL]*`), MakeToken(IntConst, decodeInt))
	lexer.Add([]byte(`[0-9]+\.[0-9]*((e|E)(\+|\-)?[0-9]+)?[fFlL]?`), MakeToken(FloatConst, decodeFloat))
	lexer.Add([]byte(`\.[0-9]+((e|E)(\+|\-)?[0-9]+)?[fFlL]?`), MakeToken(FloatConst, decodeFloat))
	lexer.Add([]byte(`[0-9]+(e|E)(\+|\-)?[0-9]+[fFlL]?`), MakeToken(FloatConst, decodeFloat))
	lexer.Add([]byte(`'([^\\']|(\\.))+'`), MakeToken(CharConst, decodeChar))
	lexer.Add([]byte(`"([^\\"]|(\\.))*"`), MakeToken(StringLit, decodeString))
}

// Tokenize creates a C tokenizer for an input.
func Tokenize(input string) (*LMScanner, error) {
	lm, err := CLexer()
	if err != nil {
		return nil, err
	}
	return lm.Scanner(input)
}
