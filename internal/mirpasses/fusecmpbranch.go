package mirpasses

import "github.com/cairo-m/cairo-m-compiler/internal/mir"

var flippedCmp = map[string]string{
	"<":  ">",
	">":  "<",
	"<=": ">=",
	">=": "<=",
	"==": "==",
	"!=": "!=",
}

// FuseCmpBranch rewrites `branch(cond, then, else)` into
// `branch_cmp(cmp, lhs, rhs, then, else)` whenever cond is a comparison
// BinOp used nowhere else in f (spec.md §4.6 step 4), dropping the
// now-dead BinOp. Operands are canonicalized so a constant, if either
// side is one, sits on the right — the same right-hand-immediate bias
// codegen's instruction selection applies to commutative arithmetic
// (spec.md §5 step 2) — flipping the comparison direction to preserve
// truth value rather than ever touching the branch's Then/Else targets.
func FuseCmpBranch(f *mir.Function) {
	defs := valueDefs(f)
	uses := useCounts(f)
	for _, id := range f.BlockOrder() {
		b := f.Blocks[id]
		branch, ok := b.Term.(*mir.Branch)
		if !ok {
			continue
		}
		condVal, ok := branch.Cond.(mir.ValueOperand)
		if !ok {
			continue
		}
		def, ok := defs[condVal.ID]
		if !ok {
			continue
		}
		bin, ok := def.(*mir.BinOp)
		if !ok || !isComparison(bin.Op) {
			continue
		}
		if uses[condVal.ID] != 1 {
			continue // the comparison's result is read elsewhere too
		}

		op, lhs, rhs := canonicalizeComparison(bin.Op, bin.X, bin.Y)
		b.Term = &mir.BranchCmp{Cmp: op, LHS: lhs, RHS: rhs, Then: branch.Then, Else: branch.Else}
		b.Instrs = removeInstr(b.Instrs, bin)
	}
}

func isComparison(op string) bool {
	switch op {
	case "==", "!=", "<", ">", "<=", ">=":
		return true
	default:
		return false
	}
}

func canonicalizeComparison(op string, x, y mir.Operand) (string, mir.Operand, mir.Operand) {
	_, xConst := x.(mir.ConstOperand)
	_, yConst := y.(mir.ConstOperand)
	if xConst && !yConst {
		return flippedCmp[op], y, x
	}
	return op, x, y
}

func removeInstr(instrs []mir.Instruction, target mir.Instruction) []mir.Instruction {
	out := make([]mir.Instruction, 0, len(instrs))
	for _, instr := range instrs {
		if instr == target {
			continue
		}
		out = append(out, instr)
	}
	return out
}

// useCounts counts, across the whole function, how many operand
// positions (instructions and the block terminator) read each ValueID.
func useCounts(f *mir.Function) map[mir.ValueID]int {
	counts := map[mir.ValueID]int{}
	for _, id := range f.BlockOrder() {
		b := f.Blocks[id]
		for _, instr := range b.Instrs {
			for _, op := range instrOperands(instr) {
				if v, ok := op.(mir.ValueOperand); ok {
					counts[v.ID]++
				}
			}
		}
		if b.Term != nil {
			for _, op := range termOperands(b.Term) {
				if v, ok := op.(mir.ValueOperand); ok {
					counts[v.ID]++
				}
			}
		}
	}
	return counts
}
