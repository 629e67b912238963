/*
Package scanner defines the tokenizer interface used by the parser and a C
tokenizer built on lexmachine.

The tokenizer recognizes identifiers, keywords, integer, floating, character
and string constants and the C punctuators. Comments and preprocessor lines
are skipped. Keywords are recognized by looking up identifiers, so that the
DFA does not depend on pattern order.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package scanner

import (
	"fmt"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'csim.scanner'.
func tracer() tracing.Trace {
	return tracing.Select("csim.scanner")
}

// Token categories.
const (
	EOF        csim.TokType = -1
	Ident      csim.TokType = 1
	Keyword    csim.TokType = 2
	IntConst   csim.TokType = 3
	FloatConst csim.TokType = 4
	CharConst  csim.TokType = 5
	StringLit  csim.TokType = 6
	Punct      csim.TokType = 7
)

// TokenName returns a readable name for a token category.
func TokenName(t csim.TokType) string {
	switch t {
	case EOF:
		return "end of input"
	case Ident:
		return "identifier"
	case Keyword:
		return "keyword"
	case IntConst:
		return "integer constant"
	case FloatConst:
		return "floating constant"
	case CharConst:
		return "character constant"
	case StringLit:
		return "string literal"
	case Punct:
		return "punctuator"
	}
	return fmt.Sprintf("token(%d)", t)
}

// Tokenizer is a scanner interface.
type Tokenizer interface {
	NextToken() csim.Token
	SetErrorHandler(func(error))
}

// Default error reporting function for scanners
func logError(e error) {
	tracer().Errorf("scanner error: " + e.Error())
}

// --- Default tokens --------------------------------------------------------

// DefaultToken is an unsophisticated token type, used by the C tokenizer.
type DefaultToken struct {
	kind   csim.TokType
	lexeme string
	Val    interface{}
	loc    csim.Location
}

var _ csim.Token = DefaultToken{}

// MakeDefaultToken creates a token without a value.
func MakeDefaultToken(typ csim.TokType, lexeme string, loc csim.Location) DefaultToken {
	return DefaultToken{
		kind:   typ,
		lexeme: lexeme,
		loc:    loc,
	}
}

func (t DefaultToken) TokType() csim.TokType {
	return t.kind
}

func (t DefaultToken) Value() interface{} {
	return t.Val
}

func (t DefaultToken) Lexeme() string {
	return t.lexeme
}

func (t DefaultToken) Loc() csim.Location {
	return t.loc
}

func (t DefaultToken) String() string {
	if t.kind == EOF {
		return "<EOF>"
	}
	return fmt.Sprintf("%s %q @%s", TokenName(t.kind), t.lexeme, t.loc)
}

// IntValue is the value of an integer constant token.
type IntValue struct {
	Value    int64
	Unsigned bool // `u` suffix
	Long     bool // `l` or `ll` suffix
}

// Keywords of the C subset.
var Keywords = []string{
	"auto", "break", "case", "char", "const", "continue", "default", "do",
	"double", "else", "enum", "extern", "float", "for", "goto", "if", "inline",
	"int", "long", "register", "restrict", "return", "short", "signed",
	"sizeof", "static", "struct", "switch", "typedef", "union", "unsigned",
	"void", "volatile", "while", "_Bool",
}

// Punctuators of the C subset.
var Punctuators = []string{
	"...", "<<=", ">>=", "+=", "-=", "*=", "/=", "%=", "&=", "^=", "|=",
	"<<", ">>", "++", "--", "->", "&&", "||", "<=", ">=", "==", "!=",
	";", "{", "}", ",", ":", "=", "(", ")", "[", "]", ".", "&", "!", "~",
	"-", "+", "*", "/", "%", "<", ">", "^", "|", "?",
}
