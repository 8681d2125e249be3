package mirpasses

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/lexer"
	"github.com/cairo-m/cairo-m-compiler/internal/mir"
	"github.com/cairo-m/cairo-m-compiler/internal/parser"
	"github.com/cairo-m/cairo-m-compiler/internal/sema"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

type noopResolver struct{}

func (noopResolver) Resolve(path []string, name string) (sema.SymbolKind, ast.Span, bool, bool) {
	return 0, ast.Span{}, false, false
}

func (noopResolver) PublicNames(path []string) ([]string, error) { return nil, nil }

func lowerSource(t *testing.T, src string) *mir.Module {
	t.Helper()
	l := lexer.New(src, "test.cm")
	p := parser.New(l)
	f := p.ParseFile("test.cm")
	require.Empty(t, p.Diagnostics())

	sink := diagnostics.NewSink()
	idx := sema.BuildIndex(f, noopResolver{}, sink)
	checker := types.NewChecker(sink)
	checker.CheckFile(f)
	require.False(t, sink.HasErrors(), "%v", sink.All())

	return mir.Lower(f, idx, checker, sink)
}

func TestRunStandardPipelineOnIfElseProducesNoPhi(t *testing.T) {
	mod := lowerSource(t, `
		fn pick(c: felt, x: felt, y: felt) -> felt {
			let r = x;
			if (c == 0) {
				r = x + 1;
			} else {
				r = y + 1;
			}
			return r;
		}
	`)
	sink := diagnostics.NewSink()
	Run(mod, Standard, sink)
	require.Empty(t, sink.All(), "Standard pipeline must leave the function structurally clean")

	f := mod.Functions["pick"]
	for _, id := range f.BlockOrder() {
		for _, instr := range f.Blocks[id].Instrs {
			_, isPhi := instr.(*mir.Phi)
			require.False(t, isPhi, "no phi should survive SSA destruction")
		}
	}
}

func TestRunStandardPipelineFoldsConstantArithmetic(t *testing.T) {
	mod := lowerSource(t, `
		fn add() -> felt {
			let a = 2;
			let b = 3;
			return a + b;
		}
	`)
	sink := diagnostics.NewSink()
	Run(mod, Standard, sink)
	require.Empty(t, sink.All())

	f := mod.Functions["add"]
	ret := f.Blocks[f.EntryBlock].Term.(*mir.Return)
	require.Len(t, ret.Values, 1)
	retVal, ok := ret.Values[0].(mir.ValueOperand)
	require.True(t, ok)

	require.Equal(t, 0, countInstrs[*mir.BinOp](f), "the `a + b` BinOp should fold away entirely")
	var foundConst *mir.LoadConst
	for _, id := range f.BlockOrder() {
		for _, instr := range f.Blocks[id].Instrs {
			if lc, ok := instr.(*mir.LoadConst); ok && lc.ID == retVal.ID {
				foundConst = lc
			}
		}
	}
	require.NotNil(t, foundConst, "the returned value should resolve to a folded constant")
	require.Equal(t, uint64(5), foundConst.Value.Value)
}

func TestRunNoneLevelOnlyValidates(t *testing.T) {
	mod := lowerSource(t, `
		fn add(a: felt, b: felt) -> felt {
			let c = a + b;
			return c;
		}
	`)
	f := mod.Functions["add"]
	before := countInstrs[*mir.BinOp](f)
	require.Greater(t, before, 0)

	sink := diagnostics.NewSink()
	Run(mod, None, sink)
	require.Empty(t, sink.All())
	require.Equal(t, before, countInstrs[*mir.BinOp](f), "None must not transform the function")
}
