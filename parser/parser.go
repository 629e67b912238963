package parser

import (
	"fmt"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/scanner"
	"github.com/npillmayer/schuko/gtrace"
)

// Error is a syntax error.
type Error struct {
	Source string
	Loc    csim.Location
	Msg    string
}

func (e *Error) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %s", e.Loc, e.Msg)
	}
	return fmt.Sprintf("%s:%s: %s", e.Source, e.Loc, e.Msg)
}

// bailout is used to unwind the parser on the first syntax error.
type bailout struct{ err *Error }

// Parser holds the state of a single parse. Create one with Parse.
type Parser struct {
	name   string
	toks   []csim.Token
	pos    int
	scopes []map[string]bool // typedef names per block; false marks shadowing
}

// Parse parses a C source text. name is used in error messages only.
func Parse(name, source string) (tu *ast.TranslationUnit, err error) {
	p := &Parser{name: name}
	if err := p.tokenize(source); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			gtrace.SyntaxTracer.Errorf("syntax error: %v", b.err)
			tu, err = nil, b.err
		}
	}()
	tu = p.translationUnit()
	gtrace.SyntaxTracer.Debugf("parsed %q: %d external declarations", name, len(tu.Decls))
	return tu, nil
}

func (p *Parser) tokenize(source string) error {
	sc, err := scanner.Tokenize(source)
	if err != nil {
		return err
	}
	var lexErr error
	sc.SetErrorHandler(func(e error) {
		if lexErr == nil {
			lexErr = e
		}
	})
	for {
		tok := sc.NextToken()
		p.toks = append(p.toks, tok)
		if tok.TokType() == scanner.EOF {
			break
		}
	}
	if lexErr != nil {
		if se, ok := lexErr.(*scanner.Error); ok {
			return &Error{Source: p.name, Loc: se.Loc, Msg: se.Msg}
		}
		return &Error{Source: p.name, Msg: lexErr.Error()}
	}
	tracer().Debugf("%d tokens", len(p.toks))
	return nil
}

// --- Token handling --------------------------------------------------------

func (p *Parser) tok() csim.Token {
	return p.toks[p.pos]
}

func (p *Parser) peek(n int) csim.Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) next() csim.Token {
	t := p.toks[p.pos]
	if t.TokType() != scanner.EOF {
		p.pos++
	}
	return t
}

// is checks if the current token is a punctuator or keyword with a given lexeme.
func (p *Parser) is(lexeme string) bool {
	t := p.tok()
	return (t.TokType() == scanner.Punct || t.TokType() == scanner.Keyword) && t.Lexeme() == lexeme
}

func (p *Parser) isAt(n int, lexeme string) bool {
	t := p.peek(n)
	return (t.TokType() == scanner.Punct || t.TokType() == scanner.Keyword) && t.Lexeme() == lexeme
}

func (p *Parser) accept(lexeme string) bool {
	if p.is(lexeme) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(lexeme string) csim.Token {
	if !p.is(lexeme) {
		p.errorf("expected %q, found %s", lexeme, describe(p.tok()))
	}
	return p.next()
}

func (p *Parser) expectIdent() *ast.Identifier {
	t := p.tok()
	if t.TokType() != scanner.Ident {
		p.errorf("expected identifier, found %s", describe(t))
	}
	p.next()
	return &ast.Identifier{Name: t.Lexeme(), At: t.Loc()}
}

func (p *Parser) errorf(format string, args ...interface{}) {
	panic(bailout{&Error{
		Source: p.name,
		Loc:    p.tok().Loc(),
		Msg:    fmt.Sprintf(format, args...),
	}})
}

func describe(t csim.Token) string {
	if t.TokType() == scanner.EOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Lexeme())
}

// --- Typedef names ---------------------------------------------------------

func (p *Parser) openScope() {
	p.scopes = append(p.scopes, make(map[string]bool))
}

func (p *Parser) closeScope() {
	p.scopes = p.scopes[:len(p.scopes)-1]
}

// declareName records an ordinary name; isType marks typedef names.
func (p *Parser) declareName(name string, isType bool) {
	if name != "" {
		p.scopes[len(p.scopes)-1][name] = isType
	}
}

func (p *Parser) isTypedefName(name string) bool {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if isType, ok := p.scopes[i][name]; ok {
			return isType
		}
	}
	return false
}

// --- Translation unit ------------------------------------------------------

func (p *Parser) translationUnit() *ast.TranslationUnit {
	tu := &ast.TranslationUnit{Name: p.name, At: p.tok().Loc()}
	p.openScope()
	defer p.closeScope()
	for p.tok().TokType() != scanner.EOF {
		if p.accept(";") {
			continue
		}
		tu.Decls = append(tu.Decls, p.externalDeclaration())
	}
	return tu
}

func (p *Parser) externalDeclaration() ast.Node {
	at := p.tok().Loc()
	specs := p.declarationSpecifiers()
	if p.is(";") || specs.storage == "typedef" {
		return p.declarationRest(specs, at)
	}
	d := p.declarator(false)
	if d.IsFunction() && p.is("{") {
		return p.functionDefinition(specs, d, at)
	}
	return p.initDeclaratorsRest(specs, d, at)
}

func (p *Parser) functionDefinition(specs declSpecs, d *ast.Declarator, at csim.Location) *ast.Function {
	if specs.storage == "typedef" {
		p.errorf("function definition declared 'typedef'")
	}
	p.declareName(d.Name(), false)
	fn := &ast.Function{
		Storage:    specs.storage,
		Specifiers: specs.specifiers,
		TypeSpec:   specs.typeSpec,
		Declarator: d,
		At:         at,
	}
	tracer().Debugf("function definition %s", d.Name())
	p.openScope()
	for _, param := range d.Params() {
		for _, item := range param.Items {
			p.declareName(item.Declarator.Name(), false)
		}
	}
	fn.Body = p.compoundStatementInScope()
	p.closeScope()
	return fn
}
