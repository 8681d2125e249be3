package mirpasses

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairo-m/cairo-m-compiler/internal/mir"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

// The front end never emits Alloca (no array type or address-of
// expression exists in surface Cairo-M), so these tests build mir.Function
// values directly rather than going through the parser/lowerer.

func countInstrs[T any](f *mir.Function) int {
	n := 0
	for _, id := range f.BlockOrder() {
		for _, instr := range f.Blocks[id].Instrs {
			if _, ok := instr.(T); ok {
				n++
			}
		}
	}
	return n
}

func TestFunctionUsesMemoryFalseWithoutAlloca(t *testing.T) {
	f := mir.NewFunction("f", &types.Felt{})
	entry := f.Blocks[f.EntryBlock]
	entry.Term = &mir.Return{}
	require.False(t, FunctionUsesMemory(f))
}

func TestMem2RegPromotesStraightLineAlloca(t *testing.T) {
	f := mir.NewFunction("f", &types.Felt{})
	entry := f.Blocks[f.EntryBlock]

	slot := f.NewValue(&types.Felt{})
	entry.Instrs = append(entry.Instrs, &mir.Alloca{ID: slot, Elem: &types.Felt{}, Count: 1})
	entry.Instrs = append(entry.Instrs, &mir.Store{Addr: mir.ValueOperand{ID: slot}, Value: mir.ConstOperand{Value: 7, Type: &types.Felt{}}})

	loaded := f.NewValue(&types.Felt{})
	entry.Instrs = append(entry.Instrs, &mir.Load{ID: loaded, Addr: mir.ValueOperand{ID: slot}, Type: &types.Felt{}})
	entry.Term = &mir.Return{Values: []mir.Operand{mir.ValueOperand{ID: loaded}}}

	require.True(t, FunctionUsesMemory(f))
	Mem2Reg(f)

	require.Equal(t, 0, countInstrs[*mir.Alloca](f))
	require.Equal(t, 0, countInstrs[*mir.Store](f))
	require.Equal(t, 0, countInstrs[*mir.Load](f))

	ret, ok := f.Blocks[f.EntryBlock].Term.(*mir.Return)
	require.True(t, ok)
	require.Len(t, ret.Values, 1)
}

// Builds a diamond: entry -> (thenB, elseB) -> join, with the alloca
// stored on both arms, and checks the promoted value at join is a phi
// merging both predecessors.
func TestMem2RegInsertsPhiAtJoin(t *testing.T) {
	f := mir.NewFunction("f", &types.Felt{})
	entry := f.Blocks[f.EntryBlock]

	slot := f.NewValue(&types.Felt{})
	entry.Instrs = append(entry.Instrs, &mir.Alloca{ID: slot, Elem: &types.Felt{}, Count: 1})

	cond := f.NewValue(&types.Bool{})
	entry.Instrs = append(entry.Instrs, &mir.LoadConst{ID: cond, Value: mir.ConstOperand{Value: 1, Type: &types.Bool{}}})

	thenB := f.NewBlock()
	elseB := f.NewBlock()
	joinB := f.NewBlock()
	entry.Term = &mir.Branch{Cond: mir.ValueOperand{ID: cond}, Then: thenB.ID, Else: elseB.ID}

	thenB.Instrs = append(thenB.Instrs, &mir.Store{Addr: mir.ValueOperand{ID: slot}, Value: mir.ConstOperand{Value: 1, Type: &types.Felt{}}})
	thenB.Term = &mir.Jump{Target: joinB.ID}

	elseB.Instrs = append(elseB.Instrs, &mir.Store{Addr: mir.ValueOperand{ID: slot}, Value: mir.ConstOperand{Value: 2, Type: &types.Felt{}}})
	elseB.Term = &mir.Jump{Target: joinB.ID}

	loaded := f.NewValue(&types.Felt{})
	joinB.Instrs = append(joinB.Instrs, &mir.Load{ID: loaded, Addr: mir.ValueOperand{ID: slot}, Type: &types.Felt{}})
	joinB.Term = &mir.Return{Values: []mir.Operand{mir.ValueOperand{ID: loaded}}}

	Mem2Reg(f)

	require.Equal(t, 0, countInstrs[*mir.Alloca](f))
	require.Equal(t, 0, countInstrs[*mir.Store](f))
	require.Equal(t, 0, countInstrs[*mir.Load](f))
	require.Equal(t, 1, countInstrs[*mir.Phi](f), "join block should get exactly one phi for the single promoted slot")

	var phi *mir.Phi
	for _, instr := range joinB.Instrs {
		if p, ok := instr.(*mir.Phi); ok {
			phi = p
		}
	}
	require.NotNil(t, phi)
	require.Len(t, phi.Incoming, 2)
}

// An alloca passed to a call as an argument escapes and must not be
// promoted.
func TestMem2RegLeavesEscapingAllocaAsMemory(t *testing.T) {
	f := mir.NewFunction("f", &types.Felt{})
	entry := f.Blocks[f.EntryBlock]

	slot := f.NewValue(&types.Felt{})
	entry.Instrs = append(entry.Instrs, &mir.Alloca{ID: slot, Elem: &types.Felt{}, Count: 1})
	entry.Instrs = append(entry.Instrs, &mir.VoidCall{Callee: "takes_ptr", Args: []mir.Operand{mir.ValueOperand{ID: slot}}})
	entry.Term = &mir.Return{}

	Mem2Reg(f)

	require.Equal(t, 1, countInstrs[*mir.Alloca](f), "an alloca passed to a call escapes and stays in memory")
}
