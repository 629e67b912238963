package parser

import (
	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/scanner"
)

// declSpecs collects declaration specifiers.
type declSpecs struct {
	storage    string
	specifiers []string
	typeSpec   ast.Node
}

var storageClasses = map[string]bool{
	"typedef": true, "static": true, "extern": true, "auto": true, "register": true,
}

var typeKeywords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true, "float": true,
	"double": true, "signed": true, "unsigned": true, "_Bool": true,
	"struct": true, "union": true, "enum": true,
}

var qualifiers = map[string]bool{
	"const": true, "volatile": true, "restrict": true,
}

// isTypeNameStart checks if the token at offset n may start a type name.
func (p *Parser) isTypeNameStart(n int) bool {
	t := p.peek(n)
	switch t.TokType() {
	case scanner.Keyword:
		return typeKeywords[t.Lexeme()] || qualifiers[t.Lexeme()]
	case scanner.Ident:
		return p.isTypedefName(t.Lexeme())
	}
	return false
}

func (p *Parser) isDeclarationStart() bool {
	t := p.tok()
	if t.TokType() == scanner.Keyword && (storageClasses[t.Lexeme()] || t.Lexeme() == "inline") {
		return true
	}
	return p.isTypeNameStart(0)
}

func (p *Parser) declarationSpecifiers() declSpecs {
	var s declSpecs
	hasType := false
	for p.declarationSpecifier(&s, &hasType) {
	}
	if !hasType {
		p.errorf("missing type specifier before %s", describe(p.tok()))
	}
	return s
}

// declarationSpecifier consumes a single specifier, if present.
func (p *Parser) declarationSpecifier(s *declSpecs, hasType *bool) bool {
	t := p.tok()
	if t.TokType() == scanner.Ident {
		if *hasType || !p.isTypedefName(t.Lexeme()) {
			return false
		}
		s.specifiers = append(s.specifiers, t.Lexeme())
		*hasType = true
		p.next()
		return true
	}
	if t.TokType() != scanner.Keyword {
		return false
	}
	lx := t.Lexeme()
	switch {
	case storageClasses[lx]:
		if s.storage != "" {
			p.errorf("multiple storage classes in declaration")
		}
		s.storage = lx
		p.next()
	case lx == "inline":
		p.next()
	case qualifiers[lx]:
		s.specifiers = append(s.specifiers, lx)
		p.next()
	case lx == "struct" || lx == "union":
		s.typeSpec = p.structOrUnion()
		s.specifiers = append(s.specifiers, lx)
		*hasType = true
	case lx == "enum":
		s.typeSpec = p.enumSpecifier()
		s.specifiers = append(s.specifiers, lx)
		*hasType = true
	case typeKeywords[lx]:
		s.specifiers = append(s.specifiers, lx)
		*hasType = true
		p.next()
	default:
		return false
	}
	return true
}

// declaration parses a block-level declaration or typedef.
func (p *Parser) declaration() ast.Node {
	at := p.tok().Loc()
	specs := p.declarationSpecifiers()
	return p.declarationRest(specs, at)
}

func (p *Parser) declarationRest(specs declSpecs, at csim.Location) ast.Node {
	if specs.storage == "typedef" {
		td := &ast.Typedef{Specifiers: specs.specifiers, TypeSpec: specs.typeSpec, At: at}
		for !p.is(";") {
			d := p.declarator(false)
			p.declareName(d.Name(), true)
			td.Declarators = append(td.Declarators, d)
			if !p.accept(",") {
				break
			}
		}
		p.expect(";")
		return td
	}
	if p.accept(";") {
		return &ast.Declaration{
			Storage:    specs.storage,
			Specifiers: specs.specifiers,
			TypeSpec:   specs.typeSpec,
			At:         at,
		}
	}
	return p.initDeclaratorsRest(specs, p.declarator(false), at)
}

// initDeclaratorsRest continues a declaration after its first declarator.
func (p *Parser) initDeclaratorsRest(specs declSpecs, d *ast.Declarator, at csim.Location) *ast.Declaration {
	decl := &ast.Declaration{
		Storage:    specs.storage,
		Specifiers: specs.specifiers,
		TypeSpec:   specs.typeSpec,
		At:         at,
	}
	for {
		p.declareName(d.Name(), false)
		item := &ast.InitDeclarator{Declarator: d}
		if p.accept("=") {
			item.Init = p.initializer()
		}
		decl.Items = append(decl.Items, item)
		if !p.accept(",") {
			break
		}
		d = p.declarator(false)
	}
	p.expect(";")
	return decl
}

func (p *Parser) initializer() ast.Node {
	if !p.is("{") {
		return p.assignmentExpression()
	}
	list := &ast.Expression{Op: ast.OpInitList, At: p.next().Loc()}
	for !p.is("}") {
		list.Operands = append(list.Operands, p.initializer())
		if !p.accept(",") {
			break
		}
	}
	p.expect("}")
	return list
}

// --- Declarators -----------------------------------------------------------

// declarator parses a (possibly abstract) declarator. Prefix pointers become
// the outermost links of the chain, suffixes wrap the direct declarator from
// left to right.
func (p *Parser) declarator(abstract bool) *ast.Declarator {
	if p.is("*") {
		at := p.next().Loc()
		ptr := &ast.Pointer{At: at}
		for qualifiers[p.tok().Lexeme()] && p.tok().TokType() == scanner.Keyword {
			ptr.Qualifiers = append(ptr.Qualifiers, p.next().Lexeme())
		}
		inner := p.declarator(abstract)
		return &ast.Declarator{Form: ast.DeclPointer, Pointer: ptr, Inner: inner, At: at}
	}
	return p.directDeclarator(abstract)
}

func (p *Parser) directDeclarator(abstract bool) *ast.Declarator {
	at := p.tok().Loc()
	var d *ast.Declarator
	switch {
	case p.tok().TokType() == scanner.Ident:
		id := p.expectIdent()
		d = &ast.Declarator{Form: ast.DeclIdent, Ident: id, At: id.At}
	case p.is("(") && (!abstract || p.isAt(1, "*") || p.isAt(1, "(") || p.isAt(1, "[")):
		p.next()
		inner := p.declarator(abstract)
		p.expect(")")
		d = &ast.Declarator{Form: ast.DeclParen, Inner: inner, At: at}
	case abstract:
		d = &ast.Declarator{Form: ast.DeclIdent, At: at}
	default:
		p.errorf("expected declarator, found %s", describe(p.tok()))
	}
	for {
		switch {
		case p.is("["):
			lat := p.next().Loc()
			var size ast.Node
			if !p.is("]") {
				size = p.conditionalExpression()
			}
			p.expect("]")
			d = &ast.Declarator{Form: ast.DeclArray, Inner: d, Size: size, At: lat}
		case p.is("("):
			lat := p.next().Loc()
			params, variadic := p.parameterList()
			d = &ast.Declarator{Form: ast.DeclFunction, Inner: d, ParamList: params, Variadic: variadic, At: lat}
		default:
			return d
		}
	}
}

// parameterList parses parameter declarations up to and including ')'.
func (p *Parser) parameterList() (params []*ast.Declaration, variadic bool) {
	if p.accept(")") {
		return nil, false
	}
	p.openScope()
	defer p.closeScope()
	for {
		if p.accept("...") {
			variadic = true
			break
		}
		at := p.tok().Loc()
		specs := p.declarationSpecifiers()
		d := p.declarator(true)
		p.declareName(d.Name(), false)
		params = append(params, &ast.Declaration{
			Storage:    specs.storage,
			Specifiers: specs.specifiers,
			TypeSpec:   specs.typeSpec,
			Items:      []*ast.InitDeclarator{{Declarator: d}},
			At:         at,
		})
		if !p.accept(",") {
			break
		}
	}
	p.expect(")")
	return params, variadic
}

// typeName parses a type name as used in casts and sizeof. The result is a
// declaration with a single, abstract declarator.
func (p *Parser) typeName() *ast.Declaration {
	at := p.tok().Loc()
	specs := p.declarationSpecifiers()
	if specs.storage != "" {
		p.errorf("storage class %q in type name", specs.storage)
	}
	d := p.declarator(true)
	if d.Name() != "" {
		p.errorf("unexpected identifier %q in type name", d.Name())
	}
	return &ast.Declaration{
		Specifiers: specs.specifiers,
		TypeSpec:   specs.typeSpec,
		Items:      []*ast.InitDeclarator{{Declarator: d}},
		At:         at,
	}
}

// --- Tagged types ----------------------------------------------------------

func (p *Parser) structOrUnion() ast.Node {
	kw := p.next()
	var name string
	if p.tok().TokType() == scanner.Ident {
		name = p.next().Lexeme()
	}
	if !p.is("{") {
		if name == "" {
			p.errorf("expected tag or member list after %q", kw.Lexeme())
		}
		return &ast.Tagname{Keyword: kw.Lexeme(), Name: name, At: kw.Loc()}
	}
	p.next()
	su := &ast.StructUnion{Keyword: kw.Lexeme(), Name: name, At: kw.Loc()}
	for !p.accept("}") {
		at := p.tok().Loc()
		specs := p.declarationSpecifiers()
		if specs.storage != "" {
			p.errorf("storage class %q for member", specs.storage)
		}
		member := &ast.Declaration{Specifiers: specs.specifiers, TypeSpec: specs.typeSpec, At: at}
		for !p.is(";") {
			d := p.declarator(false)
			if p.is(":") {
				p.errorf("bit-fields are not supported")
			}
			member.Items = append(member.Items, &ast.InitDeclarator{Declarator: d})
			if !p.accept(",") {
				break
			}
		}
		p.expect(";")
		su.Members = append(su.Members, member)
	}
	return su
}

func (p *Parser) enumSpecifier() ast.Node {
	kw := p.next()
	var name string
	if p.tok().TokType() == scanner.Ident {
		name = p.next().Lexeme()
	}
	if !p.is("{") {
		if name == "" {
			p.errorf("expected tag or enumerator list after 'enum'")
		}
		return &ast.Tagname{Keyword: "enum", Name: name, At: kw.Loc()}
	}
	p.next()
	enum := &ast.Enum{Name: name, At: kw.Loc()}
	for !p.is("}") {
		id := p.expectIdent()
		e := &ast.Enumerator{Name: id.Name, At: id.At}
		if p.accept("=") {
			e.Value = p.conditionalExpression()
		}
		p.declareName(id.Name, false)
		enum.Enumerators = append(enum.Enumerators, e)
		if !p.accept(",") {
			break
		}
	}
	p.expect("}")
	return enum
}
