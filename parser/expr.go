package parser

import (
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/scanner"
)

var assignOps = map[string]ast.Operator{
	"=": ast.OpAssign, "+=": ast.OpAddAssign, "-=": ast.OpSubAssign, "*=": ast.OpMulAssign,
	"/=": ast.OpDivAssign, "%=": ast.OpModAssign, "<<=": ast.OpShlAssign, ">>=": ast.OpShrAssign,
	"&=": ast.OpAndAssign, "|=": ast.OpOrAssign, "^=": ast.OpXorAssign,
}

type binop struct {
	op   ast.Operator
	prec int
}

var binaryOps = map[string]binop{
	"||": {ast.OpLogOr, 1},
	"&&": {ast.OpLogAnd, 2},
	"|":  {ast.OpBitOr, 3},
	"^":  {ast.OpBitXor, 4},
	"&":  {ast.OpBitAnd, 5},
	"==": {ast.OpEq, 6}, "!=": {ast.OpNe, 6},
	"<": {ast.OpLt, 7}, ">": {ast.OpGt, 7}, "<=": {ast.OpLe, 7}, ">=": {ast.OpGe, 7},
	"<<": {ast.OpShl, 8}, ">>": {ast.OpShr, 8},
	"+": {ast.OpAdd, 9}, "-": {ast.OpSub, 9},
	"*": {ast.OpMul, 10}, "/": {ast.OpDiv, 10}, "%": {ast.OpMod, 10},
}

var unaryOps = map[string]ast.Operator{
	"&": ast.OpAddrOf, "*": ast.OpDeref, "+": ast.OpPlus, "-": ast.OpNeg,
	"~": ast.OpBitNot, "!": ast.OpNot,
}

func (p *Parser) expression() ast.Node {
	e := p.assignmentExpression()
	if !p.is(",") {
		return e
	}
	comma := &ast.Expression{Op: ast.OpComma, Operands: []ast.Node{e}, At: e.Loc()}
	for p.accept(",") {
		comma.Operands = append(comma.Operands, p.assignmentExpression())
	}
	return comma
}

func (p *Parser) assignmentExpression() ast.Node {
	lhs := p.conditionalExpression()
	if t := p.tok(); t.TokType() == scanner.Punct {
		if op, ok := assignOps[t.Lexeme()]; ok {
			p.next()
			rhs := p.assignmentExpression()
			return &ast.Expression{Op: op, Operands: []ast.Node{lhs, rhs}, At: lhs.Loc()}
		}
	}
	return lhs
}

func (p *Parser) conditionalExpression() ast.Node {
	c := p.binaryExpression(1)
	if !p.accept("?") {
		return c
	}
	a := p.expression()
	p.expect(":")
	b := p.conditionalExpression()
	return &ast.Expression{Op: ast.OpCond, Operands: []ast.Node{c, a, b}, At: c.Loc()}
}

// binaryExpression parses binary operators of precedence prec and higher,
// associating to the left.
func (p *Parser) binaryExpression(prec int) ast.Node {
	x := p.castExpression()
	for {
		t := p.tok()
		if t.TokType() != scanner.Punct {
			return x
		}
		b, ok := binaryOps[t.Lexeme()]
		if !ok || b.prec < prec {
			return x
		}
		p.next()
		y := p.binaryExpression(b.prec + 1)
		x = &ast.Expression{Op: b.op, Operands: []ast.Node{x, y}, At: x.Loc()}
	}
}

func (p *Parser) castExpression() ast.Node {
	if p.is("(") && p.isTypeNameStart(1) {
		at := p.next().Loc()
		tn := p.typeName()
		p.expect(")")
		if p.is("{") {
			p.errorf("compound literals are not supported")
		}
		operand := p.castExpression()
		return &ast.Expression{Op: ast.OpCast, TypeName: tn, Operands: []ast.Node{operand}, At: at}
	}
	return p.unaryExpression()
}

func (p *Parser) unaryExpression() ast.Node {
	t := p.tok()
	at := t.Loc()
	switch t.TokType() {
	case scanner.Punct:
		switch t.Lexeme() {
		case "++", "--":
			p.next()
			op := ast.OpPreInc
			if t.Lexeme() == "--" {
				op = ast.OpPreDec
			}
			return &ast.Expression{Op: op, Operands: []ast.Node{p.unaryExpression()}, At: at}
		}
		if op, ok := unaryOps[t.Lexeme()]; ok {
			p.next()
			return &ast.Expression{Op: op, Operands: []ast.Node{p.castExpression()}, At: at}
		}
	case scanner.Keyword:
		if t.Lexeme() == "sizeof" {
			p.next()
			if p.is("(") && p.isTypeNameStart(1) {
				p.next()
				tn := p.typeName()
				p.expect(")")
				return &ast.Expression{Op: ast.OpSizeofType, TypeName: tn, At: at}
			}
			return &ast.Expression{Op: ast.OpSizeofExpr, Operands: []ast.Node{p.unaryExpression()}, At: at}
		}
	}
	return p.postfixExpression()
}

func (p *Parser) postfixExpression() ast.Node {
	x := p.primaryExpression()
	for {
		at := p.tok().Loc()
		switch {
		case p.is("["):
			p.next()
			idx := p.expression()
			p.expect("]")
			x = &ast.Expression{Op: ast.OpIndex, Operands: []ast.Node{x, idx}, At: x.Loc()}
		case p.is("("):
			p.next()
			call := &ast.Expression{Op: ast.OpCall, Operands: []ast.Node{x}, At: x.Loc()}
			for !p.is(")") {
				call.Operands = append(call.Operands, p.assignmentExpression())
				if !p.accept(",") {
					break
				}
			}
			p.expect(")")
			x = call
		case p.is("."), p.is("->"):
			op := ast.OpMember
			if p.next().Lexeme() == "->" {
				op = ast.OpPtrMember
			}
			m := p.expectIdent()
			x = &ast.Expression{Op: op, Operands: []ast.Node{x}, Member: m.Name, At: at}
		case p.is("++"):
			p.next()
			x = &ast.Expression{Op: ast.OpPostInc, Operands: []ast.Node{x}, At: x.Loc()}
		case p.is("--"):
			p.next()
			x = &ast.Expression{Op: ast.OpPostDec, Operands: []ast.Node{x}, At: x.Loc()}
		default:
			return x
		}
	}
}

func (p *Parser) primaryExpression() ast.Node {
	t := p.tok()
	switch t.TokType() {
	case scanner.Ident:
		p.next()
		return &ast.Identifier{Name: t.Lexeme(), At: t.Loc()}
	case scanner.IntConst:
		p.next()
		iv := t.Value().(scanner.IntValue)
		return &ast.Literal{Lit: ast.IntLiteral, Text: t.Lexeme(), Int: iv.Value,
			Unsigned: iv.Unsigned, Long: iv.Long, At: t.Loc()}
	case scanner.FloatConst:
		p.next()
		return &ast.Literal{Lit: ast.FloatLiteral, Text: t.Lexeme(), Float: t.Value().(float64), At: t.Loc()}
	case scanner.CharConst:
		p.next()
		return &ast.Literal{Lit: ast.CharLiteral, Text: t.Lexeme(), Int: t.Value().(int64), At: t.Loc()}
	case scanner.StringLit:
		p.next()
		lit := &ast.Literal{Lit: ast.StringLiteral, Text: t.Lexeme(), Str: t.Value().(string), At: t.Loc()}
		for p.tok().TokType() == scanner.StringLit { // adjacent literals are concatenated
			n := p.next()
			lit.Text += " " + n.Lexeme()
			lit.Str += n.Value().(string)
		}
		return lit
	case scanner.Punct:
		if t.Lexeme() == "(" {
			p.next()
			e := p.expression()
			p.expect(")")
			return e
		}
	}
	p.errorf("expected expression, found %s", describe(t))
	return nil
}
