package mirpasses

import "github.com/cairo-m/cairo-m-compiler/internal/mir"

// DCE removes every instruction whose defined value has no remaining
// use and that has no side effect, re-running to a fixpoint since
// removing one dead instruction can make another (its sole remaining
// user) dead in turn. It runs after SSA destruction (spec.md §4.6 step
// 5), once every Phi has become an ordinary Assign.
func DCE(f *mir.Function) {
	for dceRound(f) {
	}
}

func dceRound(f *mir.Function) bool {
	uses := useCounts(f)
	changed := false
	for _, id := range f.BlockOrder() {
		b := f.Blocks[id]
		kept := make([]mir.Instruction, 0, len(b.Instrs))
		for _, instr := range b.Instrs {
			if isDead(instr, uses) {
				changed = true
				continue
			}
			kept = append(kept, instr)
		}
		b.Instrs = kept
	}
	return changed
}

func isDead(instr mir.Instruction, uses map[mir.ValueID]int) bool {
	if hasSideEffect(instr) {
		return false
	}
	id, ok := instr.Dest()
	if !ok {
		return false
	}
	return uses[id] == 0
}
