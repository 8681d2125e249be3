package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/lexer"
	"github.com/cairo-m/cairo-m-compiler/internal/parser"
)

func check(t *testing.T, src string) *diagnostics.Sink {
	t.Helper()
	l := lexer.New(src, "test.cm")
	p := parser.New(l)
	f := p.ParseFile("test.cm")
	require.Empty(t, p.Diagnostics(), "source must parse cleanly")
	sink := diagnostics.NewSink()
	NewChecker(sink).CheckFile(f)
	return sink
}

func codes(sink *diagnostics.Sink) []string {
	var out []string
	for _, d := range sink.All() {
		out = append(out, d.Code)
	}
	return out
}

func TestFibonacciTypeChecksCleanly(t *testing.T) {
	sink := check(t, `
		fn fib(n: felt) -> felt {
			if (n == 0) {
				return 0;
			}
			if (n == 1) {
				return 1;
			}
			return fib(n - 1) + fib(n - 2);
		}
	`)
	require.Empty(t, codes(sink))
}

func TestIntLiteralDefaultsFeltCoercesU32(t *testing.T) {
	sink := check(t, `
		fn a() -> felt { return 1; }
		fn b() -> u32 { let x: u32 = 1; return x; }
	`)
	require.Empty(t, codes(sink))
}

func TestConditionMustBeBool(t *testing.T) {
	sink := check(t, `fn a(n: felt) -> felt { if (n) { return 1; } return 0; }`)
	require.Contains(t, codes(sink), diagnostics.TYP007)
}

func TestFeltOrderingComparisonRejected(t *testing.T) {
	sink := check(t, `fn a(x: felt, y: felt) -> bool { return x < y; }`)
	require.Contains(t, codes(sink), diagnostics.TYP090)
}

func TestFeltEqualityComparisonAllowed(t *testing.T) {
	sink := check(t, `fn a(x: felt, y: felt) -> bool { return x == y; }`)
	require.Empty(t, codes(sink))
}

func TestU32OrderingComparisonAllowed(t *testing.T) {
	sink := check(t, `fn a(x: u32, y: u32) -> bool { return x < y; }`)
	require.Empty(t, codes(sink))
}

func TestStructFieldUpdateAndArithmetic(t *testing.T) {
	sink := check(t, `
		struct P { x: felt, y: felt }
		fn f() -> felt {
			let p = P{x: 1, y: 2};
			p.x = 7;
			return p.x + p.y;
		}
	`)
	require.Empty(t, codes(sink))
}

func TestStructUsedAsScalarSuggestsFieldAccess(t *testing.T) {
	sink := check(t, `
		struct P { x: felt, y: felt }
		fn f() -> felt {
			let p = P{x: 1, y: 2};
			return p + 1;
		}
	`)
	require.Contains(t, codes(sink), diagnostics.TYP002)
}

func TestIncompleteStructLiteralReportsTYP008(t *testing.T) {
	sink := check(t, `
		struct P { x: felt, y: felt }
		fn f() -> felt {
			let p = P{x: 1};
			return p.x;
		}
	`)
	require.Contains(t, codes(sink), diagnostics.TYP008)
}

func TestUnknownFieldInStructLiteralReportsTYP008(t *testing.T) {
	sink := check(t, `
		struct P { x: felt }
		fn f() -> felt {
			let p = P{x: 1, z: 2};
			return p.x;
		}
	`)
	require.Contains(t, codes(sink), diagnostics.TYP008)
}

func TestCallArityMismatchReportsTYP004(t *testing.T) {
	sink := check(t, `
		fn add(a: felt, b: felt) -> felt { return a + b; }
		fn main() -> felt { return add(1); }
	`)
	require.Contains(t, codes(sink), diagnostics.TYP004)
}

func TestCallArgumentTypeMismatchReportsTYP005(t *testing.T) {
	sink := check(t, `
		fn takesU32(x: u32) -> u32 { return x; }
		fn main() -> u32 {
			let x: felt = 1;
			return takesU32(x);
		}
	`)
	require.Contains(t, codes(sink), diagnostics.TYP005)
}

func TestTupleDestructuring(t *testing.T) {
	sink := check(t, `
		fn pair() -> (felt, felt) { return (1, 2); }
		fn main() -> felt {
			let (a, b) = pair();
			return a + b;
		}
	`)
	require.Empty(t, codes(sink))
}

func TestMismatchedReturnTypeReportsTYP001(t *testing.T) {
	sink := check(t, `fn a() -> felt { return true; }`)
	require.Contains(t, codes(sink), diagnostics.TYP001)
}

func TestDivisionByLiteralZeroReportsTYP010(t *testing.T) {
	sink := check(t, `fn a(x: felt) -> felt { return x / 0; }`)
	require.Contains(t, codes(sink), diagnostics.TYP010)
}

func TestU32BoundaryComparisonAllowed(t *testing.T) {
	sink := check(t, `
		fn a() -> felt {
			let u: u32 = 4294967295;
			if (u <= 4294967295) { return 1; } else { return 0; }
		}
	`)
	require.Empty(t, codes(sink))
}

func TestCheckedCastBetweenFeltAndU32(t *testing.T) {
	sink := check(t, `
		fn a(x: u32) -> felt { return x as felt; }
		fn b(y: felt) -> u32 { return y as u32; }
	`)
	require.Empty(t, codes(sink))
}

func TestFieldArithmeticTypeIsTrackedPerExpr(t *testing.T) {
	l := lexer.New(`fn a() -> felt { return 1 + 2; }`, "test.cm")
	p := parser.New(l)
	f := p.ParseFile("test.cm")
	require.Empty(t, p.Diagnostics())
	sink := diagnostics.NewSink()
	c := NewChecker(sink)
	c.CheckFile(f)
	require.Empty(t, codes(sink))
	ret := f.Items[0].(*ast.FuncDecl).Body.Stmts[0].(*ast.ReturnStmt)
	typ, ok := c.TypeOf(ret.Value)
	require.True(t, ok)
	require.Equal(t, "felt", typ.String())
}
