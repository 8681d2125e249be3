package codegen

import (
	"fmt"

	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/mir"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

// sampleJumpFunction builds `b0{ jump b2 }, b2{ return 0 }` by hand — two
// blocks (the Go variable b2 holds block id 1), so ReachableBlocks walks
// straight from b0 to b2.
func sampleJumpFunction() *mir.Function {
	f := mir.NewFunction("self_test", &types.Felt{})
	b0 := f.Blocks[f.EntryBlock]
	b2 := f.NewBlock()

	v := f.NewValue(&types.Felt{})
	b0.Term = &mir.Jump{Target: b2.ID}

	b2.Instrs = append(b2.Instrs, &mir.LoadConst{ID: v, Value: mir.ConstOperand{Value: 0, Type: &types.Felt{}}})
	b2.Term = &mir.Return{Values: []mir.Operand{mir.ValueOperand{ID: v}}}
	return f
}

// SelfTestWordDisplacement re-derives a tiny two-block program (JUMP_IMM,
// LOAD_FP_IMM, RET) by hand and checks that link()/Compile's displacement arithmetic agrees
// with the "PC and offsets are in QM31 word units" invariant spec.md §9
// asserts rather than proves: JUMP_IMM's Arg0 must equal the literal
// instruction-count gap between the jump and its target, not some
// byte-scaled value. If the VM ever moves to byte-addressed PCs this
// assertion is the thing that catches it, loudly, rather than letting a
// silently-wrong displacement ship.
func SelfTestWordDisplacement() error {
	f := sampleJumpFunction()
	sink := diagnostics.NewSink()
	cf := compileFunction(f, sink)
	if len(sink.All()) > 0 {
		return fmt.Errorf("self-test: unexpected diagnostics compiling sample function: %v", sink.All())
	}

	// The sample function is: b0{ JUMP b2 }, b2{ v=0; RET v }. b0 contributes
	// exactly one instruction (the JUMP_IMM itself, at index 0); b2's first
	// instruction (materializing its return value) therefore starts at
	// index 1. A word-based displacement from the jump to its target must
	// equal that gap, 1.
	if len(cf.instrs) < 2 {
		return fmt.Errorf("self-test: expected at least 2 instructions, got %d", len(cf.instrs))
	}
	jump := cf.instrs[0]
	if jump.Op != OpJumpImm {
		return fmt.Errorf("self-test: expected instruction 0 to be %s, got %s", OpJumpImm, jump.Op)
	}
	const wantDisp = int64(1)
	if jump.Arg0 != wantDisp {
		return fmt.Errorf("self-test: JUMP_IMM displacement is %d, expected %d word(s) — "+
			"JNZ_FP_IMM/JUMP_IMM displacements are no longer word-unit PC deltas", jump.Arg0, wantDisp)
	}
	return nil
}
