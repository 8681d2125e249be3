package parser

import (
	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/lexer"
)

func (p *Parser) parseBlock() *ast.BlockStmt {
	start := p.cur
	if !p.expect(lexer.LBRACE, diagnostics.PAR003) {
		return &ast.BlockStmt{Span: tokenSpan(start)}
	}
	return p.parseBlockBody(start)
}

func (p *Parser) parseBlockBody(start lexer.Token) *ast.BlockStmt {
	var stmts []ast.Stmt
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		before := p.cur
		if s := p.parseStmt(); s != nil {
			stmts = append(stmts, s)
		}
		if p.cur == before {
			p.report(diagnostics.PAR001, "unexpected token %s %q in block", p.cur.Type, p.cur.Literal)
			p.synchronize()
			if p.cur == before && !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
				p.advance()
			}
		}
	}
	p.expect(lexer.RBRACE, diagnostics.PAR003)
	return &ast.BlockStmt{Stmts: stmts, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur.Type {
	case lexer.LET:
		return p.parseLetStmt()
	case lexer.CONST:
		return p.parseConstStmt()
	case lexer.IF:
		return p.parseIfStmt()
	case lexer.WHILE:
		return p.parseWhileStmt()
	case lexer.LOOP:
		return p.parseLoopStmt()
	case lexer.FOR:
		return p.parseForStmt()
	case lexer.BREAK:
		tok := p.cur
		p.advance()
		p.expectTerminator()
		return &ast.BreakStmt{Span: tokenSpan(tok)}
	case lexer.CONTINUE:
		tok := p.cur
		p.advance()
		p.expectTerminator()
		return &ast.ContinueStmt{Span: tokenSpan(tok)}
	case lexer.RETURN:
		return p.parseReturnStmt()
	case lexer.LBRACE:
		return p.parseBlock()
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *Parser) parseLetStmt() *ast.LetStmt {
	start := p.cur
	p.advance() // let
	pattern := p.parsePattern()
	var typ ast.Type
	if p.curIs(lexer.COLON) {
		p.advance()
		typ = p.parseType()
	}
	p.expect(lexer.ASSIGN, diagnostics.PAR001)
	value := p.parseExpr(precNone)
	p.expectTerminator()
	return &ast.LetStmt{Pattern: pattern, Type: typ, Value: value, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

func (p *Parser) parsePattern() ast.Pattern {
	start := p.cur
	if p.curIs(lexer.LPAREN) {
		p.advance()
		var elems []ast.Pattern
		for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
			elems = append(elems, p.parsePattern())
			if p.curIs(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		p.expect(lexer.RPAREN, diagnostics.PAR003)
		return &ast.TuplePattern{Elems: elems, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
	}
	name := p.parseIdentName(diagnostics.PAR001)
	return &ast.IdentPattern{Name: name, Span: tokenSpan(start)}
}

func (p *Parser) parseConstStmt() *ast.ConstStmt {
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
	return &ast.ConstStmt{Name: name, Type: typ, Value: value, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

// parseCondition parses an if/while condition expression. Struct literals
// are suppressed (bare `Name {` is not greedily consumed as a literal)
// since the following `{` belongs to the statement's block, per spec.md
// §4.1; if the block that follows looks like a mis-typed unparenthesized
// struct literal (`{ field: ...`), a PAR008 hint is reported.
func (p *Parser) parseCondition() ast.Expr {
	p.inCondition++
	cond := p.parseExpr(precNone)
	p.inCondition--
	// `Name {` followed by `field:` is a struct literal mistakenly left
	// unparenthesized: a genuine block's first statement never starts
	// with `ident :` (that's not a valid statement opener), so the
	// pattern is unambiguous with three-token lookahead.
	if ident, ok := cond.(*ast.Ident); ok && p.curIs(lexer.LBRACE) &&
		p.peekIs(lexer.IDENT) && p.peek2.Type == lexer.COLON {
		p.report(diagnostics.PAR008, "struct literal %q needs outer parens in this position: (%s { ... })", ident.Name, ident.Name)
	}
	return cond
}

func (p *Parser) parseIfStmt() *ast.IfStmt {
	start := p.cur
	p.advance() // if
	p.expect(lexer.LPAREN, diagnostics.PAR001)
	cond := p.parseCondition()
	p.expect(lexer.RPAREN, diagnostics.PAR003)
	then := p.parseBlock()

	var elseStmt ast.Stmt
	if p.curIs(lexer.ELSE) {
		p.advance()
		if p.curIs(lexer.IF) {
			elseStmt = p.parseIfStmt()
		} else {
			elseStmt = p.parseBlock()
		}
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: elseStmt, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	start := p.cur
	p.advance() // while
	p.expect(lexer.LPAREN, diagnostics.PAR001)
	cond := p.parseCondition()
	p.expect(lexer.RPAREN, diagnostics.PAR003)
	body := p.parseBlock()
	return &ast.WhileStmt{Cond: cond, Body: body, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

func (p *Parser) parseLoopStmt() *ast.LoopStmt {
	start := p.cur
	p.advance() // loop
	body := p.parseBlock()
	return &ast.LoopStmt{Body: body, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

func (p *Parser) parseForStmt() *ast.ForStmt {
	start := p.cur
	p.advance() // for
	p.expect(lexer.LPAREN, diagnostics.PAR001)

	var init ast.Stmt
	if !p.curIs(lexer.SEMICOLON) {
		init = p.parseForClauseStmt()
	} else {
		p.advance()
	}

	var cond ast.Expr
	if !p.curIs(lexer.SEMICOLON) {
		cond = p.parseExpr(precNone)
	}
	p.expect(lexer.SEMICOLON, diagnostics.PAR001)

	var step ast.Stmt
	if !p.curIs(lexer.RPAREN) {
		step = p.parseForClauseStmtNoTerminator()
	}
	p.expect(lexer.RPAREN, diagnostics.PAR003)

	body := p.parseBlock()
	return &ast.ForStmt{Init: init, Cond: cond, Step: step, Body: body, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

// parseForClauseStmt parses the `for` init clause, which is itself
// terminated by the loop's own `;` rather than producing one of its own.
func (p *Parser) parseForClauseStmt() ast.Stmt {
	if p.curIs(lexer.LET) {
		start := p.cur
		p.advance()
		pattern := p.parsePattern()
		var typ ast.Type
		if p.curIs(lexer.COLON) {
			p.advance()
			typ = p.parseType()
		}
		p.expect(lexer.ASSIGN, diagnostics.PAR001)
		value := p.parseExpr(precNone)
		p.expect(lexer.SEMICOLON, diagnostics.PAR001)
		return &ast.LetStmt{Pattern: pattern, Type: typ, Value: value, Span: tokenSpan(start)}
	}
	s := p.parseAssignOrExprNoTerminator()
	p.expect(lexer.SEMICOLON, diagnostics.PAR001)
	return s
}

func (p *Parser) parseForClauseStmtNoTerminator() ast.Stmt {
	return p.parseAssignOrExprNoTerminator()
}

func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.cur
	p.advance() // return
	var value ast.Expr
	if !p.curIs(lexer.SEMICOLON) {
		value = p.parseExpr(precNone)
	}
	p.expectTerminator()
	return &ast.ReturnStmt{Value: value, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
}

// parseExprOrAssignStmt parses `lhs = rhs;` or a bare `expr;`, deciding
// which by whether an `=` follows the leading expression.
func (p *Parser) parseExprOrAssignStmt() ast.Stmt {
	s := p.parseAssignOrExprNoTerminator()
	p.expectTerminator()
	return s
}

func (p *Parser) parseAssignOrExprNoTerminator() ast.Stmt {
	start := p.cur
	x := p.parseExpr(precNone)
	if p.curIs(lexer.ASSIGN) {
		p.advance()
		rhs := p.parseExpr(precNone)
		return &ast.AssignStmt{Target: x, Value: rhs, Span: diagnostics.NewSpan(tokenSpan(start).Start, tokenSpan(p.cur).Start)}
	}
	return &ast.ExprStmt{X: x, Span: x.Position()}
}
