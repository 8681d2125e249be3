package parser

import (
	"fmt"

	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/lexer"
)

// syntaxError is a structured parse error with enough context (position,
// the offending token, what was expected) to render a diagnostic and to
// drive recovery. It satisfies error so it can also travel as a panic
// value out of deeply nested recursive-descent calls.
type syntaxError struct {
	Code     string
	Pos      lexer.Token
	Message  string
	Expected []lexer.TokenType
}

func (e *syntaxError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Pos.Position(), e.Message)
}

// report records a syntax error without aborting the current production;
// callers still return a best-effort node so the caller above can keep
// parsing surrounding context.
func (p *Parser) report(code string, message string, args ...any) {
	p.errf(code, p.cur, message, args...)
}

func (p *Parser) errf(code string, tok lexer.Token, message string, args ...any) {
	msg := fmt.Sprintf(message, args...)
	p.diags = append(p.diags, diagnostics.New(code, "parser", tokenSpan(tok), msg))
}

// expectErr reports "expected X, got Y" at the current token.
func (p *Parser) expectErr(code string, want lexer.TokenType) {
	p.report(code, "expected %s, got %s %q", want, p.cur.Type, p.cur.Literal)
}

func tokenSpan(tok lexer.Token) diagnostics.Span {
	pos := diagnostics.Pos{File: tok.File, Line: tok.Line, Column: tok.Column, Offset: tok.Offset}
	end := pos
	end.Column += len(tok.Literal)
	end.Offset += len(tok.Literal)
	return diagnostics.NewSpan(pos, end)
}

// synchronize discards tokens until it finds one that plausibly starts a
// new item or statement, so one malformed construct doesn't cascade into
// spurious errors for the rest of the file. It stops just before the
// resynchronization token (a `;` is consumed since it's a natural
// terminator; item-starting keywords and `}` are left for the caller).
func (p *Parser) synchronize() {
	for p.cur.Type != lexer.EOF {
		if p.cur.Type == lexer.SEMICOLON {
			p.advance()
			return
		}
		switch p.cur.Type {
		case lexer.RBRACE, lexer.FN, lexer.STRUCT, lexer.CONST, lexer.USE,
			lexer.LET, lexer.IF, lexer.WHILE, lexer.LOOP, lexer.FOR,
			lexer.RETURN, lexer.BREAK, lexer.CONTINUE:
			return
		}
		p.advance()
	}
}
