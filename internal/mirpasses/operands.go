// Package mirpasses implements spec.md §4.6's MIR optimization pipeline
// (C9): PreOptimization, optional Mem2Reg-SSA, SSA destruction,
// FuseCmpBranch, DCE, and structural Validation, scheduled by an
// `OptLevel`.
//
// Grounded on internal/elaborate/scc.go's Tarjan SCC detection (the
// closest from-scratch graph algorithm in the teacher repo — its
// iterative-fixpoint shape is mirrored by internal/mir's dominator
// computation that Mem2Reg consumes here) and the teacher's `run(f) ->
// modified bool`, re-run-to-fixpoint idiom seen across
// internal/types/defaulting.go and sibling passes.
package mirpasses

import "github.com/cairo-m/cairo-m-compiler/internal/mir"

// instrOperands lists every Operand an instruction reads. mir.Instruction
// only exposes its Dest() (the value it defines); the operands it
// consumes are specific to each concrete type, so every pass that needs
// def-use information (DCE, PreOpt's folds, SSA destruction) goes through
// this single type switch rather than duplicating one per pass.
func instrOperands(instr mir.Instruction) []mir.Operand {
	switch i := instr.(type) {
	case *mir.BinOp:
		return []mir.Operand{i.X, i.Y}
	case *mir.UnOp:
		return []mir.Operand{i.X}
	case *mir.LoadConst:
		return nil
	case *mir.Assign:
		return []mir.Operand{i.Src}
	case *mir.Alloca:
		return nil
	case *mir.GetElementPtr:
		return []mir.Operand{i.Base}
	case *mir.Load:
		return []mir.Operand{i.Addr}
	case *mir.Store:
		return []mir.Operand{i.Addr, i.Value}
	case *mir.Cast:
		return []mir.Operand{i.Src}
	case *mir.Call:
		return i.Args
	case *mir.VoidCall:
		return i.Args
	case *mir.Phi:
		ops := make([]mir.Operand, len(i.Incoming))
		for idx, e := range i.Incoming {
			ops[idx] = e.Value
		}
		return ops
	case *mir.MakeTuple:
		return i.Elems
	case *mir.ExtractTuple:
		return []mir.Operand{i.Tuple}
	case *mir.InsertTuple:
		return []mir.Operand{i.Tuple, i.Value}
	case *mir.MakeStruct:
		return i.FieldVals
	case *mir.ExtractField:
		return []mir.Operand{i.Struct}
	case *mir.InsertField:
		return []mir.Operand{i.Struct, i.Value}
	default:
		return nil
	}
}

// termOperands lists every Operand a terminator reads.
func termOperands(term mir.Terminator) []mir.Operand {
	switch t := term.(type) {
	case *mir.Branch:
		return []mir.Operand{t.Cond}
	case *mir.BranchCmp:
		return []mir.Operand{t.LHS, t.RHS}
	case *mir.Return:
		return t.Values
	default:
		return nil
	}
}

// hasSideEffect reports whether instr must be kept even with no
// remaining uses of the value it defines (if any) — DCE never removes
// these.
func hasSideEffect(instr mir.Instruction) bool {
	switch instr.(type) {
	case *mir.Store, *mir.VoidCall, *mir.Call:
		return true
	default:
		return false
	}
}

// valueDefs maps every defined ValueID to the instruction that defines
// it, for the whole function (SSA: at most one definition per id, except
// for function parameters which have none).
func valueDefs(f *mir.Function) map[mir.ValueID]mir.Instruction {
	defs := make(map[mir.ValueID]mir.Instruction)
	for _, id := range f.BlockOrder() {
		for _, instr := range f.Blocks[id].Instrs {
			if d, ok := instr.Dest(); ok {
				defs[d] = instr
			}
		}
	}
	return defs
}

// asDefOf reports the instruction defining op's value, if op is a
// ValueOperand with a known def in defs.
func asDefOf(op mir.Operand, defs map[mir.ValueID]mir.Instruction) (mir.Instruction, bool) {
	v, ok := op.(mir.ValueOperand)
	if !ok {
		return nil, false
	}
	instr, ok := defs[v.ID]
	return instr, ok
}
