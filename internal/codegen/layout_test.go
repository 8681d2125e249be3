package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairo-m/cairo-m-compiler/internal/mir"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

func TestComputeLayoutPlacesParamsReturnsAndScratch(t *testing.T) {
	f := mir.NewFunction("add", &types.Felt{})
	pa := f.NewValue(&types.Felt{})
	pb := f.NewValue(&types.U32{})
	f.Params = []mir.Param{
		{Name: "a", Value: pa, Type: &types.Felt{}},
		{Name: "b", Value: pb, Type: &types.U32{}},
	}
	f.Blocks[f.EntryBlock].Term = &mir.Return{Values: []mir.Operand{mir.ValueOperand{ID: pa}}}

	fl := ComputeLayout(f)

	// m = 1 (felt) + 2 (u32) = 3, k = WordSize(felt) = 1.
	// paramBase = -(3+1+2) = -6.
	require.Equal(t, Slot, fl.Values[pa].Kind)
	require.Equal(t, -6, fl.Values[pa].Offset)
	require.Equal(t, MultiSlot, fl.Values[pb].Kind)
	require.Equal(t, -5, fl.Values[pb].Offset)
	require.Equal(t, 2, fl.Values[pb].Size)

	require.Equal(t, -3, fl.ReturnOffset) // -(k+2) = -(1+2) = -3
	require.Equal(t, 1, fl.ReturnSize)

	require.Equal(t, [2]int{0, 1}, fl.ScratchFelt)
	require.Equal(t, [4]int{2, 3, 4, 5}, fl.ScratchWord)
	require.Equal(t, 6, fl.LocalsStart)
}

func TestComputeLayoutAssignsConstantKindToLoadConst(t *testing.T) {
	f := mir.NewFunction("f", &types.Felt{})
	v := f.NewValue(&types.Felt{})
	entry := f.Blocks[f.EntryBlock]
	entry.Instrs = append(entry.Instrs, &mir.LoadConst{ID: v, Value: mir.ConstOperand{Value: 42, Type: &types.Felt{}}})
	entry.Term = &mir.Return{Values: []mir.Operand{mir.ValueOperand{ID: v}}}

	fl := ComputeLayout(f)
	require.Equal(t, Constant, fl.Values[v].Kind)
	require.Equal(t, uint64(42), fl.Values[v].ConstValue)
}

func TestComputeLayoutAssignsOptimizedOutToAliasAssign(t *testing.T) {
	f := mir.NewFunction("f", &types.Felt{})
	entry := f.Blocks[f.EntryBlock]
	src := f.NewValue(&types.Felt{})
	alias := f.NewValue(&types.Felt{})
	entry.Instrs = append(entry.Instrs,
		&mir.LoadConst{ID: src, Value: mir.ConstOperand{Value: 7, Type: &types.Felt{}}},
		&mir.Assign{ID: alias, Src: mir.ValueOperand{ID: src}},
	)
	entry.Term = &mir.Return{Values: []mir.Operand{mir.ValueOperand{ID: alias}}}

	fl := ComputeLayout(f)
	require.Equal(t, OptimizedOut, fl.Values[alias].Kind)
	resolved := fl.ResolveLayout(alias)
	require.Equal(t, Constant, resolved.Kind)
	require.Equal(t, uint64(7), resolved.ConstValue)
}
