package parser

import (
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/scanner"
)

func (p *Parser) compoundStatement() *ast.CompoundStatement {
	p.openScope()
	defer p.closeScope()
	return p.compoundStatementInScope()
}

// compoundStatementInScope parses a block without opening a typedef scope.
// Function bodies share the scope of their parameters.
func (p *Parser) compoundStatementInScope() *ast.CompoundStatement {
	block := &ast.CompoundStatement{At: p.expect("{").Loc()}
	for !p.is("}") {
		if p.tok().TokType() == scanner.EOF {
			p.errorf("unexpected end of input, block is not closed")
		}
		if p.isDeclarationStart() {
			block.Items = append(block.Items, p.declaration())
		} else {
			block.Items = append(block.Items, p.statement())
		}
	}
	p.next()
	return block
}

// statement parses a statement. Expression statements are represented by
// their expression node; the empty statement is an empty block.
func (p *Parser) statement() ast.Node {
	t := p.tok()
	at := t.Loc()
	if t.TokType() == scanner.Keyword {
		switch t.Lexeme() {
		case "if":
			p.next()
			p.expect("(")
			stmt := &ast.SelectionStatement{Keyword: "if", Cond: p.expression(), At: at}
			p.expect(")")
			stmt.Then = p.statement()
			if p.accept("else") {
				stmt.Else = p.statement()
			}
			return stmt
		case "switch":
			p.next()
			p.expect("(")
			stmt := &ast.SelectionStatement{Keyword: "switch", Cond: p.expression(), At: at}
			p.expect(")")
			stmt.Then = p.statement()
			return stmt
		case "while":
			p.next()
			p.expect("(")
			stmt := &ast.IterationStatement{Keyword: "while", Cond: p.expression(), At: at}
			p.expect(")")
			stmt.Body = p.statement()
			return stmt
		case "do":
			p.next()
			stmt := &ast.IterationStatement{Keyword: "do", Body: p.statement(), At: at}
			p.expect("while")
			p.expect("(")
			stmt.Cond = p.expression()
			p.expect(")")
			p.expect(";")
			return stmt
		case "for":
			return p.forStatement()
		case "return":
			p.next()
			stmt := &ast.JumpStatement{Keyword: "return", At: at}
			if !p.is(";") {
				stmt.Value = p.expression()
			}
			p.expect(";")
			return stmt
		case "break", "continue":
			p.next()
			p.expect(";")
			return &ast.JumpStatement{Keyword: t.Lexeme(), At: at}
		case "case":
			p.next()
			stmt := &ast.LabeledStatement{Keyword: "case", Value: p.conditionalExpression(), At: at}
			p.expect(":")
			stmt.Stmt = p.statement()
			return stmt
		case "default":
			p.next()
			p.expect(":")
			return &ast.LabeledStatement{Keyword: "default", Stmt: p.statement(), At: at}
		case "goto":
			p.errorf("goto is not supported")
		}
	}
	if p.is("{") {
		return p.compoundStatement()
	}
	if p.accept(";") {
		return &ast.CompoundStatement{At: at}
	}
	e := p.expression()
	p.expect(";")
	return e
}

func (p *Parser) forStatement() ast.Node {
	stmt := &ast.IterationStatement{Keyword: "for", At: p.next().Loc()}
	p.expect("(")
	p.openScope()
	defer p.closeScope()
	if p.isDeclarationStart() {
		stmt.Init = p.declaration()
	} else {
		if !p.is(";") {
			stmt.Init = p.expression()
		}
		p.expect(";")
	}
	if !p.is(";") {
		stmt.Cond = p.expression()
	}
	p.expect(";")
	if !p.is(")") {
		stmt.Post = p.expression()
	}
	p.expect(")")
	stmt.Body = p.statement()
	return stmt
}
