// Package parser turns a token stream into the internal/ast tree described
// by spec.md §4.1: deterministic, total, never panics on malformed input.
// Syntax errors are recorded as diagnostics and the parser resynchronizes
// at the next statement or item boundary rather than aborting.
package parser

import (
	"strconv"
	"strings"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/lexer"
)

// Parser consumes a lexer.Lexer's token stream with two tokens of lookahead
// beyond cur (peek, peek2) and builds an ast.File.
type Parser struct {
	l     *lexer.Lexer
	cur   lexer.Token
	peek  lexer.Token
	peek2 lexer.Token

	diags []*diagnostics.Diagnostic

	// inCondition is set while parsing an if/while condition, so a bare
	// `Name {` is parsed as a block rather than a struct literal unless
	// the literal is itself parenthesized (spec.md §4.1).
	inCondition int
}

// New creates a Parser over l and primes the three-token lookahead.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.advance()
	p.advance()
	p.advance()
	return p
}

// Diagnostics returns every syntax error collected during ParseFile.
func (p *Parser) Diagnostics() []*diagnostics.Diagnostic { return p.diags }

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.peek2
	p.peek2 = p.l.NextToken()
}

func (p *Parser) curIs(t lexer.TokenType) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t lexer.TokenType) bool { return p.peek.Type == t }

// expect advances past cur if it has type t, reporting code and returning
// false otherwise (without advancing, so synchronize() can take over).
func (p *Parser) expect(t lexer.TokenType, code string) bool {
	if p.curIs(t) {
		p.advance()
		return true
	}
	p.expectErr(code, t)
	return false
}

// ParseFile parses a complete source file into an ast.File. It never
// panics: a production that cannot make progress reports a diagnostic,
// synchronizes, and the caller continues with the next item.
func (p *Parser) ParseFile(path string) *ast.File {
	start := p.cur
	file := &ast.File{Path: path}

	for !p.curIs(lexer.EOF) {
		before := p.cur
		item := p.parseItem()
		if item != nil {
			file.Items = append(file.Items, item)
		}
		if p.cur == before {
			// No production consumed a token; force progress to avoid
			// looping forever on a token nothing recognizes.
			p.report(diagnostics.PAR001, "unexpected token %s %q", p.cur.Type, p.cur.Literal)
			p.synchronize()
			if p.cur == before {
				// synchronize() stops at tokens that close an enclosing
				// block (e.g. a stray top-level `}` with no block to
				// close); without an enclosing block to hand control
				// back to, that token must be discarded directly.
				p.advance()
			}
		}
	}

	file.Span = diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)
	return file
}

// parseItem parses a single top-level declaration. On a token it doesn't
// recognize, it returns nil without advancing so ParseFile's stall guard
// can synchronize.
func (p *Parser) parseItem() ast.Item {
	switch p.cur.Type {
	case lexer.FN:
		return p.parseFuncDecl()
	case lexer.STRUCT:
		return p.parseStructDecl()
	case lexer.CONST:
		return p.parseConstDecl()
	case lexer.USE:
		return p.parseUseDecl()
	default:
		return nil
	}
}

func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	start := p.cur
	p.advance() // fn
	name := p.parseIdentName(diagnostics.PAR004)

	if !p.expect(lexer.LPAREN, diagnostics.PAR004) {
		p.synchronize()
		return &ast.FuncDecl{Name: name, Span: tokenSpan(start)}
	}
	var params []ast.Param
	for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
		pname := p.parseIdentName(diagnostics.PAR004)
		p.expect(lexer.COLON, diagnostics.PAR004)
		ptype := p.parseType()
		params = append(params, ast.Param{Name: pname, Type: ptype, Span: tokenSpan(p.cur)})
		if p.curIs(lexer.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(lexer.RPAREN, diagnostics.PAR004)

	var ret ast.Type
	if p.curIs(lexer.ARROW) {
		p.advance()
		ret = p.parseType()
	}

	body := p.parseBlock()
	return &ast.FuncDecl{
		Name:       name,
		Params:     params,
		ReturnType: ret,
		Body:       body,
		Span:       diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start),
	}
}

func (p *Parser) parseStructDecl() *ast.StructDecl {
	start := p.cur
	p.advance() // struct
	name := p.parseIdentName(diagnostics.PAR005)
	if !p.expect(lexer.LBRACE, diagnostics.PAR005) {
		p.synchronize()
		return &ast.StructDecl{Name: name, Span: tokenSpan(start)}
	}
	var fields []ast.FieldDecl
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		fname := p.parseIdentName(diagnostics.PAR005)
		p.expect(lexer.COLON, diagnostics.PAR005)
		ftype := p.parseType()
		fields = append(fields, ast.FieldDecl{Name: fname, Type: ftype, Span: tokenSpan(p.cur)})
		if p.curIs(lexer.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(lexer.RBRACE, diagnostics.PAR005)
	return &ast.StructDecl{Name: name, Fields: fields, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

func (p *Parser) parseConstDecl() *ast.ConstDecl {
	start := p.cur
	p.advance() // const
	name := p.parseIdentName(diagnostics.PAR001)
	var typ ast.Type
	if p.curIs(lexer.COLON) {
		p.advance()
		typ = p.parseType()
	}
	p.expect(lexer.ASSIGN, diagnostics.PAR001)
	value := p.parseExpr(precNone)
	p.expectTerminator()
	return &ast.ConstDecl{Name: name, Type: typ, Value: value, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

func (p *Parser) parseUseDecl() *ast.UseDecl {
	start := p.cur
	p.advance() // use
	var path []string
	path = append(path, p.parseIdentName(diagnostics.PAR006))
	name := ""
	for p.curIs(lexer.DCOLON) {
		p.advance()
		if p.curIs(lexer.STAR) {
			p.advance()
			name = "*"
			break
		}
		path = append(path, p.parseIdentName(diagnostics.PAR006))
	}
	if name != "*" && len(path) > 1 {
		// The last segment is the imported symbol; everything before it
		// is the module path.
		name = path[len(path)-1]
		path = path[:len(path)-1]
	}
	p.expectTerminator()
	return &ast.UseDecl{Path: path, Name: name, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

func (p *Parser) parseIdentName(code string) string {
	if !p.curIs(lexer.IDENT) {
		p.expectErr(code, lexer.IDENT)
		return ""
	}
	name := p.cur.Literal
	p.advance()
	return name
}

func (p *Parser) expectTerminator() {
	p.expect(lexer.SEMICOLON, diagnostics.PAR002)
}

// ---- Types ----

func (p *Parser) parseType() ast.Type {
	start := p.cur
	switch p.cur.Type {
	case lexer.STAR:
		p.advance()
		return &ast.PointerType{Elem: p.parseType(), Span: tokenSpan(start)}
	case lexer.LPAREN:
		p.advance()
		if p.curIs(lexer.RPAREN) {
			p.advance()
			return &ast.UnitType{Span: tokenSpan(start)}
		}
		var elems []ast.Type
		for {
			elems = append(elems, p.parseType())
			if p.curIs(lexer.COMMA) {
				p.advance()
				if p.curIs(lexer.RPAREN) {
					break
				}
				continue
			}
			break
		}
		p.expect(lexer.RPAREN, diagnostics.PAR003)
		if len(elems) == 1 {
			return elems[0]
		}
		return &ast.TupleType{Elems: elems, Span: tokenSpan(start)}
	case lexer.IDENT, lexer.FELT, lexer.U32, lexer.BOOL:
		name := p.cur.Literal
		p.advance()
		return &ast.NamedType{Name: name, Span: tokenSpan(start)}
	default:
		p.report(diagnostics.PAR001, "expected a type, got %s %q", p.cur.Type, p.cur.Literal)
		return &ast.NamedType{Name: "<error>", Span: tokenSpan(start)}
	}
}

// ---- Expressions ----

const (
	precNone = iota
	precOr
	precAnd
	precEquality
	precComparison
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

func binPrec(t lexer.TokenType) int {
	switch t {
	case lexer.OR:
		return precOr
	case lexer.AND:
		return precAnd
	case lexer.EQ, lexer.NEQ:
		return precEquality
	case lexer.LT, lexer.GT, lexer.LTE, lexer.GTE:
		return precComparison
	case lexer.PLUS, lexer.MINUS:
		return precAdditive
	case lexer.STAR, lexer.SLASH, lexer.PERCENT:
		return precMultiplicative
	default:
		return precNone
	}
}

// parseExpr implements Pratt/precedence-climbing parsing per spec.md
// §4.1's fixed precedence ladder (lowest to highest: or, and, equality,
// comparison, additive, multiplicative, unary, postfix).
func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		prec := binPrec(p.cur.Type)
		if prec == precNone || prec < minPrec {
			break
		}
		op := p.cur
		p.advance()
		right := p.parseExpr(prec + 1)
		left = &ast.BinaryExpr{Op: op.Literal, X: left, Y: right, Span: diagnostics.NewSpan(left.Position().Start, right.Position().End)}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.curIs(lexer.MINUS) || p.curIs(lexer.NOT) {
		op := p.cur
		p.advance()
		x := p.parseUnary()
		return &ast.UnaryExpr{Op: op.Literal, X: x, Span: diagnostics.NewSpan(tokenSpan(op).Start, x.Position().End)}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	x := p.parseAsCast()
	for {
		switch p.cur.Type {
		case lexer.LPAREN:
			start := p.cur
			p.advance()
			var args []ast.Expr
			for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
				args = append(args, p.parseExpr(precNone))
				if p.curIs(lexer.COMMA) {
					p.advance()
					continue
				}
				break
			}
			p.expect(lexer.RPAREN, diagnostics.PAR003)
			x = &ast.CallExpr{Callee: x, Args: args, Span: diagnostics.NewSpan(x.Position().Start, tokenSpan(start).End)}
		case lexer.DOT:
			p.advance()
			field := p.parseIdentName(diagnostics.PAR001)
			x = &ast.MemberExpr{Base: x, Field: field, Span: x.Position()}
		case lexer.LBRACKET:
			p.advance()
			idx := p.parseExpr(precNone)
			p.expect(lexer.RBRACKET, diagnostics.PAR003)
			x = &ast.IndexExpr{Base: x, Index: idx, Span: x.Position()}
		case lexer.AS:
			p.advance()
			t := p.parseType()
			x = &ast.CastExpr{X: x, Type: t, Span: x.Position()}
		default:
			return x
		}
	}
}

// parseAsCast handles the `expr as Type` checked conversion, which binds
// tighter than binary operators but looser than postfix chaining so
// `a.b as u32` casts the field access, not just `b`.
func (p *Parser) parseAsCast() ast.Expr {
	x := p.parsePrimary()
	for p.curIs(lexer.AS) {
		p.advance()
		t := p.parseType()
		x = &ast.CastExpr{X: x, Type: t, Span: x.Position()}
	}
	return x
}

func (p *Parser) parsePrimary() ast.Expr {
	start := p.cur
	switch p.cur.Type {
	case lexer.INT:
		return p.parseIntLit()
	case lexer.TRUE, lexer.FALSE:
		p.advance()
		return &ast.BoolLit{Value: start.Type == lexer.TRUE, Span: tokenSpan(start)}
	case lexer.IDENT:
		p.advance()
		if p.curIs(lexer.LBRACE) && p.allowsStructLit() {
			return p.parseStructLit(start)
		}
		return &ast.Ident{Name: start.Literal, Span: tokenSpan(start)}
	case lexer.LPAREN:
		return p.parseParenOrTuple()
	default:
		p.report(diagnostics.PAR001, "unexpected token in expression: %s %q", p.cur.Type, p.cur.Literal)
		p.advance()
		return &ast.Ident{Name: "<error>", Span: tokenSpan(start)}
	}
}

// allowsStructLit implements the disambiguation rule from spec.md §4.1:
// `Name {` starts a struct literal in ordinary expression position, but
// inside an if/while condition it would be ambiguous with the block that
// follows, so it's only treated as a struct literal when parenthesized
// (parseParenOrTuple clears inCondition before recursing).
func (p *Parser) allowsStructLit() bool {
	return p.inCondition == 0
}

func (p *Parser) parseStructLit(name lexer.Token) ast.Expr {
	start := name
	p.advance() // {
	var fields []ast.StructLitField
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		fname := p.parseIdentName(diagnostics.PAR001)
		p.expect(lexer.COLON, diagnostics.PAR001)
		value := p.parseExpr(precNone)
		fields = append(fields, ast.StructLitField{Name: fname, Value: value, Span: value.Position()})
		if p.curIs(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(lexer.RBRACE, diagnostics.PAR003)
	return &ast.StructLit{Name: name.Literal, Fields: fields, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

// parseParenOrTuple parses `(expr)`, `()`, `(a, b, ...)`, or the arity-1
// tuple `(a,)`. A bare `(a)` with no trailing comma is a parenthesized
// expression, not a one-element tuple (spec.md §4.1).
func (p *Parser) parseParenOrTuple() ast.Expr {
	start := p.cur
	p.advance() // (
	savedInCondition := p.inCondition
	p.inCondition = 0
	defer func() { p.inCondition = savedInCondition }()

	if p.curIs(lexer.RPAREN) {
		p.advance()
		return &ast.TupleLit{Span: tokenSpan(start)}
	}

	first := p.parseExpr(precNone)
	if p.curIs(lexer.COMMA) {
		elems := []ast.Expr{first}
		hadTrailingComma := false
		for p.curIs(lexer.COMMA) {
			p.advance()
			hadTrailingComma = true
			if p.curIs(lexer.RPAREN) {
				break
			}
			elems = append(elems, p.parseExpr(precNone))
			hadTrailingComma = false
		}
		p.expect(lexer.RPAREN, diagnostics.PAR003)
		if len(elems) == 1 && !hadTrailingComma {
			p.report(diagnostics.PAR007, "single-element tuple requires a trailing comma: (x,)")
		}
		return &ast.TupleLit{Elems: elems, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
	}

	p.expect(lexer.RPAREN, diagnostics.PAR003)
	return &ast.ParenExpr{X: first, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

func (p *Parser) parseIntLit() ast.Expr {
	tok := p.cur
	p.advance()
	raw := tok.Literal
	text := raw
	base := 10
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		text = text[2:]
		base = 16
	}
	value, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		p.errf(diagnostics.PAR001, tok, "invalid integer literal %q: %v", raw, err)
	}
	return &ast.IntLit{Raw: raw, Value: value, Span: tokenSpan(tok)}
}
