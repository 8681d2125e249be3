package codegen

import "github.com/cairo-m/cairo-m-compiler/internal/diagnostics"

// link resolves every intra-function pendingBranch into a PC-relative
// displacement, measured in QM31 words (spec.md §4.7 phase 5: "branches
// use PC-relative displacements... unresolved labels are a hard error").
// Call targets are left for Program assembly to resolve once every
// function's base PC in the final flat stream is known.
func (g *funcGen) link() {
	for _, p := range g.pending {
		pc, ok := g.blockPC[p.target]
		if !ok {
			g.sink.Push(diagnostics.New(diagnostics.GEN002, "codegen", diagnostics.Span{},
				"function %q: unresolved label for block b%d", g.f.Name, p.target))
			continue
		}
		disp := int64(pc - p.relativeTo)
		switch p.argSlot {
		case 0:
			g.instrs[p.instrIndex].Arg0 = disp
		case 1:
			g.instrs[p.instrIndex].Arg1 = disp
		case 2:
			g.instrs[p.instrIndex].Arg2 = disp
		}
	}
}
