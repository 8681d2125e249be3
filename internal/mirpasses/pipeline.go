package mirpasses

import (
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/mir"
)

// OptLevel selects how much of the spec.md §4.6 pipeline Run applies.
type OptLevel int

const (
	// None applies no transformation; it only runs structural Validation,
	// useful for inspecting the lowerer's raw output.
	None OptLevel = iota
	// Basic runs dead-code elimination and Validation, without touching
	// aggregates, memory, or control flow.
	Basic
	// Standard is the default pipeline: PreOpt, Mem2Reg (when the
	// function actually uses memory), SSA destruction, FuseCmpBranch,
	// DCE, and Validation.
	Standard
	// Aggressive is reserved for a future pass beyond Standard; today it
	// runs the identical pipeline (spec.md §4.6: "(reserved)").
	Aggressive
)

// Run applies level's pipeline to every function in mod, pushing any
// structural-invariant violation into sink. Validation always runs last
// regardless of level, so a bug earlier in the pipeline is always
// caught before codegen sees the result.
func Run(mod *mir.Module, level OptLevel, sink *diagnostics.Sink) {
	for _, name := range sortedFunctionNames(mod) {
		f := mod.Functions[name]
		switch level {
		case None:
			// validation only
		case Basic:
			DCE(f)
		case Standard, Aggressive:
			PreOpt(f)
			if FunctionUsesMemory(f) {
				Mem2Reg(f)
			}
			DestructSSA(f)
			FuseCmpBranch(f)
			DCE(f)
		}
		Validate(f, sink)
	}
}

func sortedFunctionNames(mod *mir.Module) []string {
	names := make([]string, 0, len(mod.Functions))
	for name := range mod.Functions {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}
