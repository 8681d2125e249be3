package codegen

import (
	"sort"

	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/mir"
)

// Program is the compiled-output assembly spec.md §6.4 defines as the
// CLI's JSON artifact: a flat instruction stream, an entrypoint name->pc
// table, and metadata the caller stamps after the fact (compiler
// version, source hash — codegen has no opinion on those, see
// cmd/cairo-m-compiler).
type Program struct {
	Instructions []Instruction     `json:"instructions"`
	Entrypoints  map[string]int    `json:"entrypoints"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Compile runs instruction selection over every function in mod and
// links them into one Program (spec.md §4.7 phase 6: "Output assembly").
// Functions are emitted in sorted-name order for determinism (spec.md
// §5: "deterministic ordering within a module"). CALL's displacement is
// PC-relative, the same convention JUMP_IMM/JNZ_FP_IMM use, resolved
// here once every function's base PC in the flat stream is known — a
// function may call one compiled later, so this whole-program pass runs
// after every per-function compileFunction has finished.
func Compile(mod *mir.Module, sink *diagnostics.Sink) *Program {
	names := make([]string, 0, len(mod.Functions))
	for name := range mod.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	prog := &Program{Entrypoints: map[string]int{}}
	var callSites []calleeRef

	for _, name := range names {
		cf := compileFunction(mod.Functions[name], sink)
		base := len(prog.Instructions)
		prog.Entrypoints[name] = base
		for _, site := range cf.callSites {
			callSites = append(callSites, calleeRef{instrIndex: base + site.instrIndex, name: site.name})
		}
		prog.Instructions = append(prog.Instructions, cf.instrs...)
	}

	for _, site := range callSites {
		target, ok := prog.Entrypoints[site.name]
		if !ok {
			sink.Push(diagnostics.New(diagnostics.GEN002, "codegen", diagnostics.Span{},
				"call to undefined function %q", site.name))
			continue
		}
		prog.Instructions[site.instrIndex].Arg0 = int64(target - site.instrIndex)
	}

	return prog
}
