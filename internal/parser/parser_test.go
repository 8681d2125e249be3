package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/lexer"
)

func parse(t *testing.T, src string) (*ast.File, *Parser) {
	t.Helper()
	l := lexer.New(src, "test.cm")
	p := New(l)
	f := p.ParseFile("test.cm")
	return f, p
}

func TestParseFuncDecl(t *testing.T) {
	f, p := parse(t, `fn add(a: felt, b: felt) -> felt { return a + b; }`)
	require.Empty(t, p.Diagnostics())
	require.Len(t, f.Items, 1)
	fn := f.Items[0].(*ast.FuncDecl)
	require.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	require.Equal(t, "felt", fn.ReturnType.String())
	require.Len(t, fn.Body.Stmts, 1)
}

func TestParseUnitReturnOmitted(t *testing.T) {
	f, p := parse(t, `fn go() { return; }`)
	require.Empty(t, p.Diagnostics())
	fn := f.Items[0].(*ast.FuncDecl)
	require.Nil(t, fn.ReturnType)
}

func TestParseStructDecl(t *testing.T) {
	f, p := parse(t, `struct Point { x: felt, y: felt }`)
	require.Empty(t, p.Diagnostics())
	s := f.Items[0].(*ast.StructDecl)
	require.Equal(t, "Point", s.Name)
	require.Len(t, s.Fields, 2)
}

func TestParseConstDecl(t *testing.T) {
	f, p := parse(t, `const MAX: u32 = 100;`)
	require.Empty(t, p.Diagnostics())
	c := f.Items[0].(*ast.ConstDecl)
	require.Equal(t, "MAX", c.Name)
	require.Equal(t, "u32", c.Type.String())
}

func TestParseUseDeclSymbolAndWildcard(t *testing.T) {
	f, p := parse(t, `use util::math::square;
use util::io::*;`)
	require.Empty(t, p.Diagnostics())
	u1 := f.Items[0].(*ast.UseDecl)
	require.Equal(t, []string{"util", "math"}, u1.Path)
	require.Equal(t, "square", u1.Name)

	u2 := f.Items[1].(*ast.UseDecl)
	require.Equal(t, []string{"util", "io"}, u2.Path)
	require.Equal(t, "*", u2.Name)
}

func TestOperatorPrecedence(t *testing.T) {
	f, p := parse(t, `fn f() -> felt { return 1 + 2 * 3 == 7 && true || false; }`)
	require.Empty(t, p.Diagnostics())
	ret := f.Items[0].(*ast.FuncDecl).Body.Stmts[0].(*ast.ReturnStmt)
	// || is loosest, so the top node is the OR.
	or := ret.Value.(*ast.BinaryExpr)
	require.Equal(t, "||", or.Op)
	and := or.X.(*ast.BinaryExpr)
	require.Equal(t, "&&", and.Op)
	eq := and.X.(*ast.BinaryExpr)
	require.Equal(t, "==", eq.Op)
	add := eq.X.(*ast.BinaryExpr)
	require.Equal(t, "+", add.Op)
	mul := add.Y.(*ast.BinaryExpr)
	require.Equal(t, "*", mul.Op)
}

func TestTupleArityOneRequiresTrailingComma(t *testing.T) {
	_, p := parse(t, `fn f() { let x = (1,); }`)
	require.Empty(t, p.Diagnostics())

	_, p2 := parse(t, `fn f() { let x = (1); }`)
	// (1) with no comma is a parenthesized expression, not an arity-1
	// tuple, and is not itself an error.
	require.Empty(t, p2.Diagnostics())
}

func TestParenExprVsTupleLit(t *testing.T) {
	f, p := parse(t, `fn f() { let a = (1); let b = (1, 2); let c = (1,); }`)
	require.Empty(t, p.Diagnostics())
	body := f.Items[0].(*ast.FuncDecl).Body.Stmts
	_, isParen := body[0].(*ast.LetStmt).Value.(*ast.ParenExpr)
	require.True(t, isParen)
	tuple2 := body[1].(*ast.LetStmt).Value.(*ast.TupleLit)
	require.Len(t, tuple2.Elems, 2)
	tuple1 := body[2].(*ast.LetStmt).Value.(*ast.TupleLit)
	require.Len(t, tuple1.Elems, 1)
}

func TestStructLiteralInIfRequiresParens(t *testing.T) {
	// Bare `Name {` in a condition is parsed as an identifier condition
	// followed by the if's block, not a struct literal.
	f, p := parse(t, `fn f() -> bool { if (flag) { return true; } return false; }`)
	require.Empty(t, p.Diagnostics())
	ifStmt := f.Items[0].(*ast.FuncDecl).Body.Stmts[0].(*ast.IfStmt)
	_, isIdent := ifStmt.Cond.(*ast.Ident)
	require.True(t, isIdent)
}

func TestStructLiteralInIfHintsMissingParens(t *testing.T) {
	_, p := parse(t, `fn f() -> bool { if (Point { x: 1, y: 2 } == other) { return true; } return false; }`)
	var gotHint bool
	for _, d := range p.Diagnostics() {
		if d.Code == "PAR008" {
			gotHint = true
		}
	}
	require.True(t, gotHint)
}

func TestParenthesizedStructLiteralInIf(t *testing.T) {
	_, p := parse(t, `fn f() -> bool { if ((Point{x: 1, y: 2}).x == 1) { return true; } return false; }`)
	require.Empty(t, p.Diagnostics())
}

func TestWhileAndLoopAndForAndBreakContinue(t *testing.T) {
	src := `fn f() {
		let mut = 0;
		while (mut < 10) { mut = mut + 1; }
		loop { break; }
		for (let i = 0; i < 10; i = i + 1) { continue; }
	}`
	_, p := parse(t, src)
	require.Empty(t, p.Diagnostics())
}

func TestReturnMandatoryNotInferred(t *testing.T) {
	// The parser itself does not require a trailing return (that's a
	// validator concern, spec.md §4.4); it should still parse cleanly
	// either way.
	f, p := parse(t, `fn f() -> felt { let x = 1; }`)
	require.Empty(t, p.Diagnostics())
	require.Len(t, f.Items[0].(*ast.FuncDecl).Body.Stmts, 1)
}

func TestAssignStmt(t *testing.T) {
	f, p := parse(t, `fn f() { let x = Point{x: 1, y: 2}; x.x = 5; }`)
	require.Empty(t, p.Diagnostics())
	body := f.Items[0].(*ast.FuncDecl).Body.Stmts
	assign := body[1].(*ast.AssignStmt)
	member := assign.Target.(*ast.MemberExpr)
	require.Equal(t, "x", member.Field)
}

func TestCastExpr(t *testing.T) {
	f, p := parse(t, `fn f(x: u32) -> felt { return x as felt; }`)
	require.Empty(t, p.Diagnostics())
	ret := f.Items[0].(*ast.FuncDecl).Body.Stmts[0].(*ast.ReturnStmt)
	cast := ret.Value.(*ast.CastExpr)
	require.Equal(t, "felt", cast.Type.String())
}

func TestParserNeverPanicsOnMalformedInput(t *testing.T) {
	inputs := []string{
		`fn`,
		`fn f(`,
		`struct {`,
		`use ;`,
		`fn f() { let = 1; }`,
		`((((`,
		`}}}}`,
		`fn f() -> { return 1; }`,
	}
	for _, src := range inputs {
		require.NotPanics(t, func() {
			parse(t, src)
		})
	}
}

func TestSynchronizeRecoversAcrossItems(t *testing.T) {
	f, p := parse(t, `struct ;
fn good() -> felt { return 1; }`)
	require.NotEmpty(t, p.Diagnostics())
	var foundGood bool
	for _, item := range f.Items {
		if fn, ok := item.(*ast.FuncDecl); ok && fn.Name == "good" {
			foundGood = true
		}
	}
	require.True(t, foundGood, "parser should recover and still find the well-formed function after a broken one")
}

func TestMultiParamAndNestedCalls(t *testing.T) {
	f, p := parse(t, `fn f(a: felt) -> felt { return g(h(a), 1); }`)
	require.Empty(t, p.Diagnostics())
	ret := f.Items[0].(*ast.FuncDecl).Body.Stmts[0].(*ast.ReturnStmt)
	call := ret.Value.(*ast.CallExpr)
	require.Len(t, call.Args, 2)
	_, isNestedCall := call.Args[0].(*ast.CallExpr)
	require.True(t, isNestedCall)
}
