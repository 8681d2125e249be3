package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/lexer"
	"github.com/cairo-m/cairo-m-compiler/internal/parser"
	"github.com/cairo-m/cairo-m-compiler/internal/sema"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

type noopResolver struct{}

func (noopResolver) Resolve(path []string, name string) (sema.SymbolKind, ast.Span, bool, bool) {
	return 0, ast.Span{}, false, false
}

func (noopResolver) PublicNames(path []string) ([]string, error) { return nil, nil }

func run(t *testing.T, src string) *diagnostics.Sink {
	t.Helper()
	l := lexer.New(src, "test.cm")
	p := parser.New(l)
	f := p.ParseFile("test.cm")
	require.Empty(t, p.Diagnostics(), "source must parse cleanly")

	sink := diagnostics.NewSink()
	idx := sema.BuildIndex(f, noopResolver{}, sink)
	checker := types.NewChecker(sink)
	checker.CheckFile(f)
	Validate(f, idx, checker, sink)
	return sink
}

func codes(sink *diagnostics.Sink) []string {
	var out []string
	for _, d := range sink.All() {
		out = append(out, d.Code)
	}
	return out
}

func TestMissingReturnOnOneBranchReportsFLW001(t *testing.T) {
	sink := run(t, `
		fn a(c: felt) -> felt {
			if (c == 0) {
				return 1;
			}
		}
	`)
	require.Contains(t, codes(sink), diagnostics.FLW001)
}

func TestReturnOnAllPathsIsClean(t *testing.T) {
	sink := run(t, `
		fn a(c: felt) -> felt {
			if (c == 0) {
				return 1;
			} else {
				return 2;
			}
		}
	`)
	require.NotContains(t, codes(sink), diagnostics.FLW001)
}

func TestUnreachableCodeAfterReturnWarnsFLW002(t *testing.T) {
	sink := run(t, `
		fn a() -> felt {
			return 1;
			return 2;
		}
	`)
	require.Contains(t, codes(sink), diagnostics.FLW002)
}

func TestBreakOutsideLoopReportsFLW003(t *testing.T) {
	sink := run(t, `
		fn a() -> felt {
			break;
			return 1;
		}
	`)
	require.Contains(t, codes(sink), diagnostics.FLW003)
}

func TestContinueOutsideLoopReportsFLW004(t *testing.T) {
	sink := run(t, `
		fn a() -> felt {
			continue;
			return 1;
		}
	`)
	require.Contains(t, codes(sink), diagnostics.FLW004)
}

func TestBreakInsideLoopIsClean(t *testing.T) {
	sink := run(t, `
		fn a() -> felt {
			loop {
				break;
			}
			return 1;
		}
	`)
	require.NotContains(t, codes(sink), diagnostics.FLW003)
}

func TestAssignmentToConstantReportsTYP009(t *testing.T) {
	sink := run(t, `
		fn a() -> felt {
			const X = 1;
			X = 2;
			return X;
		}
	`)
	require.Contains(t, codes(sink), diagnostics.TYP009)
}

func TestAssignmentToLocalIsClean(t *testing.T) {
	sink := run(t, `
		fn a() -> felt {
			let x = 1;
			x = 2;
			return x;
		}
	`)
	require.NotContains(t, codes(sink), diagnostics.TYP009)
}

func TestU32LiteralOutOfRangeReportsTYP006(t *testing.T) {
	sink := run(t, `
		fn a() -> u32 {
			let x: u32 = 4294967296;
			return x;
		}
	`)
	require.Contains(t, codes(sink), diagnostics.TYP006)
}

func TestU32LiteralAtMaxIsClean(t *testing.T) {
	sink := run(t, `
		fn a() -> u32 {
			let x: u32 = 4294967295;
			return x;
		}
	`)
	require.NotContains(t, codes(sink), diagnostics.TYP006)
}
