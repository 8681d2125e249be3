package sema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/lexer"
	"github.com/cairo-m/cairo-m-compiler/internal/parser"
)

// stubResolver answers cross-module lookups from a fixed table, for
// testing `use` resolution without a real multi-module driver.
type stubResolver struct {
	exports map[string]map[string]SymbolKind // module path joined by "::" -> name -> kind
}

func (r *stubResolver) Resolve(path []string, name string) (SymbolKind, ast.Span, bool, bool) {
	mod, ok := r.exports[joinPath(path)]
	if !ok {
		return 0, ast.Span{}, false, false
	}
	kind, ok := mod[name]
	if !ok {
		return 0, ast.Span{}, false, false
	}
	return kind, ast.Span{}, false, true
}

func (r *stubResolver) PublicNames(path []string) ([]string, error) {
	mod, ok := r.exports[joinPath(path)]
	if !ok {
		return nil, fmt.Errorf("unknown module %q", joinPath(path))
	}
	names := make([]string, 0, len(mod))
	for name := range mod {
		names = append(names, name)
	}
	return names, nil
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "::"
		}
		out += p
	}
	return out
}

func build(t *testing.T, src string, resolver ImportResolver) (*ast.File, *Index, *diagnostics.Sink) {
	t.Helper()
	l := lexer.New(src, "test.cm")
	p := parser.New(l)
	f := p.ParseFile("test.cm")
	require.Empty(t, p.Diagnostics(), "source must parse cleanly")
	if resolver == nil {
		resolver = &stubResolver{exports: map[string]map[string]SymbolKind{}}
	}
	sink := diagnostics.NewSink()
	idx := BuildIndex(f, resolver, sink)
	return f, idx, sink
}

func codes(sink *diagnostics.Sink) []string {
	var out []string
	for _, d := range sink.All() {
		out = append(out, d.Code)
	}
	return out
}

func TestTopLevelDeclsAreHoisted(t *testing.T) {
	// b() is defined after a() but a() can still call it.
	_, idx, sink := build(t, `
		fn a() -> felt { return b(); }
		fn b() -> felt { return 1; }
	`, nil)
	require.Empty(t, codes(sink))
	require.NotEmpty(t, idx.Uses)
	for _, u := range idx.Uses {
		if u.Name == "b" {
			require.GreaterOrEqual(t, u.Symbol, 0)
		}
	}
}

func TestDuplicateTopLevelNameReportsNAM002(t *testing.T) {
	_, _, sink := build(t, `
		fn a() -> felt { return 1; }
		fn a() -> felt { return 2; }
	`, nil)
	require.Contains(t, codes(sink), diagnostics.NAM002)
}

func TestUndeclaredVariableReportsNAM001(t *testing.T) {
	_, _, sink := build(t, `
		fn a() -> felt { return x; }
	`, nil)
	require.Contains(t, codes(sink), diagnostics.NAM001)
}

func TestLocalShadowsOuterWithoutError(t *testing.T) {
	_, _, sink := build(t, `
		fn a(x: felt) -> felt {
			let x = x + 1;
			return x;
		}
	`, nil)
	require.Empty(t, codes(sink))
}

func TestBlockScopedLocalNotVisibleOutsideBlock(t *testing.T) {
	_, _, sink := build(t, `
		fn a() -> felt {
			{
				let x = 1;
			}
			return x;
		}
	`, nil)
	require.Contains(t, codes(sink), diagnostics.NAM001)
}

func TestUnusedLocalWarnsNAM006(t *testing.T) {
	_, _, sink := build(t, `
		fn a() -> felt {
			let unused = 1;
			return 0;
		}
	`, nil)
	require.Contains(t, codes(sink), diagnostics.NAM006)
}

func TestUnusedParamWarnsNAM006(t *testing.T) {
	_, _, sink := build(t, `
		fn a(unused: felt) -> felt { return 0; }
	`, nil)
	require.Contains(t, codes(sink), diagnostics.NAM006)
}

func TestWildcardUnderscorePatternNeverFlaggedUnused(t *testing.T) {
	_, _, sink := build(t, `
		fn a() -> felt {
			let (_, y) = (1, 2);
			return y;
		}
	`, nil)
	require.Empty(t, codes(sink))
}

func TestSingleNameImportResolves(t *testing.T) {
	resolver := &stubResolver{exports: map[string]map[string]SymbolKind{
		"math": {"square": SymFunc},
	}}
	_, _, sink := build(t, `
		use math::square;
		fn a() -> felt { return square(); }
	`, resolver)
	require.Empty(t, codes(sink))
}

func TestUnknownModuleImportReportsNAM005(t *testing.T) {
	resolver := &stubResolver{exports: map[string]map[string]SymbolKind{}}
	_, _, sink := build(t, `
		use math::square;
		fn a() -> felt { return 0; }
	`, resolver)
	require.Contains(t, codes(sink), diagnostics.NAM005)
}

func TestUnknownNameInKnownModuleReportsNAM005(t *testing.T) {
	resolver := &stubResolver{exports: map[string]map[string]SymbolKind{
		"math": {"square": SymFunc},
	}}
	_, _, sink := build(t, `
		use math::cube;
		fn a() -> felt { return 0; }
	`, resolver)
	require.Contains(t, codes(sink), diagnostics.NAM005)
}

func TestWildcardImportExpandsPublicNames(t *testing.T) {
	resolver := &stubResolver{exports: map[string]map[string]SymbolKind{
		"math": {"square": SymFunc, "cube": SymFunc},
	}}
	_, _, sink := build(t, `
		use math::*;
		fn a() -> felt { return square() + cube(); }
	`, resolver)
	require.Empty(t, codes(sink))
}

func TestUnusedImportWarnsNAM007(t *testing.T) {
	resolver := &stubResolver{exports: map[string]map[string]SymbolKind{
		"math": {"square": SymFunc},
	}}
	_, _, sink := build(t, `
		use math::square;
		fn a() -> felt { return 0; }
	`, resolver)
	require.Contains(t, codes(sink), diagnostics.NAM007)
}

func TestPlaceOfPlainIdentifier(t *testing.T) {
	_, idx, sink := build(t, `
		fn a() -> felt {
			let x = 1;
			x = 2;
			return x;
		}
	`, nil)
	require.Empty(t, codes(sink))
	require.Len(t, idx.Places, 1)
	for _, place := range idx.Places {
		require.Equal(t, "x", place.Root)
		require.Empty(t, place.Steps)
	}
}

func TestPlaceOfMemberChain(t *testing.T) {
	_, idx, sink := build(t, `
		struct P { x: felt }
		fn a(p: P) -> felt {
			p.x = 1;
			return p.x;
		}
	`, nil)
	require.Empty(t, codes(sink))
	require.Len(t, idx.Places, 1)
	for _, place := range idx.Places {
		require.Equal(t, "p", place.Root)
		require.Len(t, place.Steps, 1)
		require.Equal(t, PlaceMember, place.Steps[0].Kind)
		require.Equal(t, "x", place.Steps[0].Field)
	}
}

func TestReachabilityAfterReturnIsNever(t *testing.T) {
	f, idx, sink := build(t, `
		fn a() -> felt {
			return 1;
			return 2;
		}
	`, nil)
	require.Empty(t, codes(sink))
	fn := f.Items[0].(*ast.FuncDecl)
	second := fn.Body.Stmts[1]
	require.Equal(t, Never, idx.Reachable[second])
}

func TestReachabilityMergesIfElseBothReturning(t *testing.T) {
	f, idx, sink := build(t, `
		fn a(c: felt) -> felt {
			if (c == 1) {
				return 1;
			} else {
				return 2;
			}
			return 3;
		}
	`, nil)
	require.Empty(t, codes(sink))
	fn := f.Items[0].(*ast.FuncDecl)
	after := fn.Body.Stmts[1]
	require.Equal(t, Never, idx.Reachable[after])
}

func TestReachabilityIfWithoutElseIsMaybe(t *testing.T) {
	f, idx, sink := build(t, `
		fn a(c: felt) -> felt {
			if (c == 1) {
				return 1;
			}
			return 2;
		}
	`, nil)
	require.Empty(t, codes(sink))
	fn := f.Items[0].(*ast.FuncDecl)
	after := fn.Body.Stmts[1]
	require.Equal(t, Maybe, idx.Reachable[after])
}

func TestUnconditionalLoopWithoutBreakNeverFallsThrough(t *testing.T) {
	f, idx, sink := build(t, `
		fn a() -> felt {
			loop {
				let _ = 1;
			}
			return 1;
		}
	`, nil)
	require.Empty(t, codes(sink))
	fn := f.Items[0].(*ast.FuncDecl)
	loopStmt := fn.Body.Stmts[0]
	require.Equal(t, Never, idx.Reachable[fn.Body.Stmts[1]])
	_ = loopStmt
}

func TestUnconditionalLoopWithBreakIsMaybe(t *testing.T) {
	f, idx, sink := build(t, `
		fn a() -> felt {
			loop {
				break;
			}
			return 1;
		}
	`, nil)
	require.Empty(t, codes(sink))
	fn := f.Items[0].(*ast.FuncDecl)
	require.Equal(t, Maybe, idx.Reachable[fn.Body.Stmts[1]])
}

func TestModuleScopeIDIsSet(t *testing.T) {
	_, idx, _ := build(t, `fn a() -> felt { return 1; }`, nil)
	require.GreaterOrEqual(t, idx.ModuleScopeID, 0)
	require.Equal(t, ModuleScope, idx.Scopes[idx.ModuleScopeID].Kind)
}
