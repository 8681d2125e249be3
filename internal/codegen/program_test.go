package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/lexer"
	"github.com/cairo-m/cairo-m-compiler/internal/mir"
	"github.com/cairo-m/cairo-m-compiler/internal/mirpasses"
	"github.com/cairo-m/cairo-m-compiler/internal/parser"
	"github.com/cairo-m/cairo-m-compiler/internal/sema"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

type noopResolver struct{}

func (noopResolver) Resolve(path []string, name string) (sema.SymbolKind, ast.Span, bool, bool) {
	return 0, ast.Span{}, false, false
}

func (noopResolver) PublicNames(path []string) ([]string, error) { return nil, nil }

func compileModule(t *testing.T, src string) (*mir.Module, *diagnostics.Sink) {
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

	mod := mir.Lower(f, idx, checker, sink)
	mirpasses.Run(mod, mirpasses.Standard, sink)
	require.Empty(t, sink.All())
	return mod, sink
}

func TestCompileFibonacciProducesEntrypointAndRet(t *testing.T) {
	mod, _ := compileModule(t, `
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
	sink := diagnostics.NewSink()
	prog := Compile(mod, sink)
	require.Empty(t, sink.All())

	pc, ok := prog.Entrypoints["fib"]
	require.True(t, ok)
	require.GreaterOrEqual(t, pc, 0)

	foundRet := false
	foundCall := false
	for _, instr := range prog.Instructions {
		if instr.Op == OpRet {
			foundRet = true
		}
		if instr.Op == OpCall {
			foundCall = true
		}
	}
	require.True(t, foundRet, "fib must emit at least one RET")
	require.True(t, foundCall, "recursive fib must emit a CALL")
}

func TestCompileConstantFoldedAddHasNoBinOpAtRuntime(t *testing.T) {
	mod, _ := compileModule(t, `
		fn add() -> felt {
			let a = 2;
			let b = 3;
			return a + b;
		}
	`)
	sink := diagnostics.NewSink()
	prog := Compile(mod, sink)
	require.Empty(t, sink.All())

	foundLoadFive := false
	for _, instr := range prog.Instructions {
		if instr.Op == OpLoadFPImm && instr.Arg1 == 5 {
			foundLoadFive = true
		}
		require.NotEqual(t, OpStoreAddFPFP, instr.Op, "the constant add must fold away, leaving no runtime add")
		require.NotEqual(t, OpStoreAddFPImm, instr.Op, "the constant add must fold away, leaving no runtime add")
	}
	require.True(t, foundLoadFive, "the folded constant 5 should be materialized directly")
}

func TestCompileU32MaxComparisonFoldsToTrue(t *testing.T) {
	mod, _ := compileModule(t, `
		fn check(u: u32) -> felt {
			if (u <= 4294967295) {
				return 1;
			} else {
				return 0;
			}
		}
	`)
	sink := diagnostics.NewSink()
	prog := Compile(mod, sink)
	require.Empty(t, sink.All())

	for _, instr := range prog.Instructions {
		require.NotEqual(t, OpStoreU32LtFPImm, instr.Op, "a provably-true boundary comparison must not emit a runtime u32 compare")
		require.NotEqual(t, OpStoreU32LtFPFP, instr.Op, "a provably-true boundary comparison must not emit a runtime u32 compare")
	}
}

func TestCompileTupleDestructureFoldsToDirectSum(t *testing.T) {
	mod, _ := compileModule(t, `
		fn sum() -> felt {
			let (x, y) = (10, 20);
			return x + y;
		}
	`)
	sink := diagnostics.NewSink()
	prog := Compile(mod, sink)
	require.Empty(t, sink.All())

	foundLoadThirty := false
	for _, instr := range prog.Instructions {
		if instr.Op == OpLoadFPImm && instr.Arg1 == 30 {
			foundLoadThirty = true
		}
		require.NotEqual(t, OpStoreAddFPFP, instr.Op, "a fully-constant tuple destructure must not leave a runtime add behind")
	}
	require.True(t, foundLoadThirty, "the folded sum 30 should be materialized directly")
}

func TestCompileStructFieldUpdateFoldsToDirectSum(t *testing.T) {
	mod, _ := compileModule(t, `
		struct P { x: felt, y: felt }
		fn f() -> felt {
			let p = P{x: 1, y: 2};
			p.x = 7;
			return p.x + p.y;
		}
	`)
	sink := diagnostics.NewSink()
	prog := Compile(mod, sink)
	require.Empty(t, sink.All())

	foundLoadNine := false
	for _, instr := range prog.Instructions {
		if instr.Op == OpLoadFPImm && instr.Arg1 == 9 {
			foundLoadNine = true
		}
	}
	require.True(t, foundLoadNine, "the folded sum p.x+p.y == 9 should be materialized directly")
}

func TestCompileSmallFunctionNeverTripsFrameOverflowGuard(t *testing.T) {
	f := mir.NewFunction("huge", &types.Felt{})
	entry := f.Blocks[f.EntryBlock]
	var last mir.ValueID
	for i := 0; i < 3; i++ {
		last = f.NewValue(&types.Felt{})
		entry.Instrs = append(entry.Instrs, &mir.LoadConst{ID: last, Value: mir.ConstOperand{Value: uint64(i), Type: &types.Felt{}}})
	}
	entry.Term = &mir.Return{Values: []mir.Operand{mir.ValueOperand{ID: last}}}

	sink := diagnostics.NewSink()
	cf := compileFunction(f, sink)
	require.NotNil(t, cf.instrs)
	require.Empty(t, sink.All(), "a small function must not trip the frame-overflow guard")
}
