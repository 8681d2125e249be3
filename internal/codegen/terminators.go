package codegen

import (
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/mir"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

func (g *funcGen) emitTerminator(term mir.Terminator) {
	switch t := term.(type) {
	case *mir.Jump:
		g.emitJump(t.Target)
	case *mir.Branch:
		g.emitBranchRaw(t)
	case *mir.BranchCmp:
		g.emitBranchCmp(t)
	case *mir.Return:
		g.emitReturn(t)
	case *mir.Unreachable:
		// No instruction corresponds to unreachable: a well-formed
		// program never executes this PC. Nothing to emit.
	default:
		g.sink.Push(diagnostics.New(diagnostics.GEN003, "codegen", diagnostics.Span{},
			"function %q: no codegen rule for terminator %s", g.f.Name, term.String()))
	}
}

func (g *funcGen) emitJump(target mir.BlockID) {
	idx := g.emit(Instruction{Op: OpJumpImm})
	g.pending = append(g.pending, pendingBranch{instrIndex: idx, argSlot: 0, target: target, relativeTo: idx})
}

// emitBranchRaw handles a still-unfused Branch (OptLevel None/Basic
// output, or a condition FuseCmpBranch leaves alone because it is not a
// single-use comparison, e.g. a bool parameter): test cond for non-zero,
// jump to Then on true, otherwise fall through to an unconditional jump
// to Else.
func (g *funcGen) emitBranchRaw(t *mir.Branch) {
	condOff, condImm := g.resolve(t.Cond)
	if condImm {
		if condOff != 0 {
			g.emitJump(t.Then)
		} else {
			g.emitJump(t.Else)
		}
		return
	}
	idx := g.emit(Instruction{Op: OpJnzFPImm, Arg0: condOff})
	g.pending = append(g.pending, pendingBranch{instrIndex: idx, argSlot: 1, target: t.Then, relativeTo: idx})
	g.emitJump(t.Else)
}

// emitBranchCmp lowers the fused branch_cmp by first materializing the
// comparison into a scratch slot with the same op-synthesis emitBinOp
// uses (`!=`/`<=`/`>=` from `==`/`<`), then testing it with JNZ_FP_IMM.
func (g *funcGen) emitBranchCmp(t *mir.BranchCmp) {
	isU32 := isU32Type(g.typeOf(t.LHS)) || isU32Type(g.typeOf(t.RHS))
	op, x, y := t.Cmp, t.LHS, t.RHS
	op, x, y = canonicalizeOrdering(op, x, y)
	negate := false
	switch op {
	case "!=":
		op, negate = "==", true
	case "<=":
		op, x, y, negate = "<", y, x, true
	}

	if result, ok := foldU32Boundary(op, x, y, isU32); ok {
		taken := result != negate
		if taken {
			g.emitJump(t.Then)
		} else {
			g.emitJump(t.Else)
		}
		return
	}

	var fpfp, fpimm Opcode
	var ok bool
	if isU32 {
		fpfp, fpimm, ok = u32BinOpcodes(op)
	} else {
		fpfp, fpimm, ok = feltBinOpcodes(op)
	}
	if !ok {
		g.sink.Push(diagnostics.New(diagnostics.GEN003, "codegen", diagnostics.Span{},
			"function %q: no opcode for comparison %q", g.f.Name, t.Cmp))
		return
	}

	scratch := g.layout.ScratchFelt[0]
	g.emitAliasSafe3(int64(scratch), x, y, fpfp, fpimm)
	if negate {
		g.emit(Instruction{Op: OpStoreNotFP, Arg0: int64(scratch), Arg1: int64(scratch)})
	}

	idx := g.emit(Instruction{Op: OpJnzFPImm, Arg0: int64(scratch)})
	g.pending = append(g.pending, pendingBranch{instrIndex: idx, argSlot: 1, target: t.Then, relativeTo: idx})
	g.emitJump(t.Else)
}

func (g *funcGen) emitReturn(t *mir.Return) {
	off := g.layout.ReturnOffset
	for _, v := range t.Values {
		off += int(g.copyInto(int64(off), v))
	}
	g.emit(Instruction{Op: OpRet})
}

// emitCall places Args contiguously at the current watermark (skipping
// the copy when they are already there in order — spec.md §4.7 phase 4's
// "argument-in-place" optimization), emits CALL with an unresolved
// callee-label reference, then copies the callee's return slots into
// Dests.
func (g *funcGen) emitCall(callee string, args []mir.Operand, sig mir.CalleeSignature, dests []mir.ValueID) {
	argBase := int64(g.watermark)
	if !g.argsAlreadyInPlace(args, argBase) {
		off := argBase
		for _, a := range args {
			off += g.copyInto(off, a)
		}
	}
	argSize := int64(0)
	for _, t := range sig.ParamTypes {
		argSize += int64(types.WordSize(t))
	}
	returnSize := int64(0)
	for _, t := range sig.ReturnTypes {
		returnSize += int64(types.WordSize(t))
	}
	if argBase+argSize+returnSize > int64(g.watermark) {
		g.watermark = int(argBase + argSize + returnSize)
	}

	idx := g.emit(Instruction{Op: OpCall, Arg1: argBase})
	g.calleeTargets = append(g.calleeTargets, calleeRef{instrIndex: idx, name: callee})

	retOff := argBase + argSize
	for _, d := range dests {
		size := types.WordSize(g.f.ValueTypes[d])
		if size < 1 {
			size = 1
		}
		dst := g.destOffset(d)
		for w := 0; w < size; w++ {
			g.emit(Instruction{Op: OpStoreDerefFP, Arg0: dst + int64(w), Arg1: retOff + int64(w)})
		}
		retOff += int64(size)
	}
}

// argsAlreadyInPlace reports whether every arg is a non-constant value
// already sitting, in order, at exactly the contiguous region starting
// at base — the case the "argument-in-place" optimization elides a copy
// for.
func (g *funcGen) argsAlreadyInPlace(args []mir.Operand, base int64) bool {
	off := base
	for _, a := range args {
		v, ok := a.(mir.ValueOperand)
		if !ok {
			return false
		}
		vl := g.layout.ResolveLayout(v.ID)
		if vl.Kind == Constant || int64(vl.Offset) != off {
			return false
		}
		size := int64(types.WordSize(g.f.ValueTypes[v.ID]))
		if size < 1 {
			size = 1
		}
		off += size
	}
	return true
}
