package mirpasses

import (
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/mir"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

const validatePhase = "validate"

// Validate checks f's structural invariants (spec.md §3) and pushes an
// OPT-coded Diagnostic into sink for every violation found. It never
// mutates f; it runs as the last step of every OptLevel so a bug in an
// earlier pass is caught before codegen sees it.
func Validate(f *mir.Function, sink *diagnostics.Sink) {
	validateTerminators(f, sink)
	validateCallSignatures(f, sink)
	validateNoPhi(f, sink)
	validateReturns(f, sink)
}

// validateTerminators checks every block has exactly one terminator and
// that every terminator's targets name a block that actually exists
// (OPT001, OPT002).
func validateTerminators(f *mir.Function, sink *diagnostics.Sink) {
	for _, id := range f.BlockOrder() {
		b := f.Blocks[id]
		if b.Term == nil {
			sink.Push(diagnostics.New(diagnostics.OPT001, validatePhase, diagnostics.Span{},
				"function %q: block b%d has no terminator", f.Name, id))
			continue
		}
		for _, target := range b.Term.Successors() {
			if _, ok := f.Blocks[target]; !ok {
				sink.Push(diagnostics.New(diagnostics.OPT002, validatePhase, diagnostics.Span{},
					"function %q: block b%d's terminator targets nonexistent block b%d", f.Name, id, target))
			}
		}
	}
}

// validateCallSignatures checks every Call/VoidCall's argument count
// matches its embedded Signature, and that Call's dest count matches
// its declared return arity (OPT003).
func validateCallSignatures(f *mir.Function, sink *diagnostics.Sink) {
	for _, id := range f.BlockOrder() {
		for _, instr := range f.Blocks[id].Instrs {
			switch c := instr.(type) {
			case *mir.Call:
				if len(c.Args) != len(c.Signature.ParamTypes) {
					sink.Push(diagnostics.New(diagnostics.OPT003, validatePhase, diagnostics.Span{},
						"function %q: call to %q passes %d argument(s), signature wants %d",
						f.Name, c.Callee, len(c.Args), len(c.Signature.ParamTypes)))
				}
				if len(c.Dests) != len(c.Signature.ReturnTypes) {
					sink.Push(diagnostics.New(diagnostics.OPT003, validatePhase, diagnostics.Span{},
						"function %q: call to %q binds %d result(s), signature returns %d",
						f.Name, c.Callee, len(c.Dests), len(c.Signature.ReturnTypes)))
				}
			case *mir.VoidCall:
				if len(c.Args) != len(c.Signature.ParamTypes) {
					sink.Push(diagnostics.New(diagnostics.OPT003, validatePhase, diagnostics.Span{},
						"function %q: call to %q passes %d argument(s), signature wants %d",
						f.Name, c.Callee, len(c.Args), len(c.Signature.ParamTypes)))
				}
				if len(c.Signature.ReturnTypes) != 0 {
					sink.Push(diagnostics.New(diagnostics.OPT003, validatePhase, diagnostics.Span{},
						"function %q: void call to %q whose signature returns %d value(s)",
						f.Name, c.Callee, len(c.Signature.ReturnTypes)))
				}
			}
		}
	}
}

// validateNoPhi checks no Phi survived (OPT004) — only meaningful after
// DestructSSA has run, but safe to call at any OptLevel since None/Basic
// never introduce a Phi to begin with.
func validateNoPhi(f *mir.Function, sink *diagnostics.Sink) {
	for _, id := range f.BlockOrder() {
		for _, instr := range f.Blocks[id].Instrs {
			if _, ok := instr.(*mir.Phi); ok {
				sink.Push(diagnostics.New(diagnostics.OPT004, validatePhase, diagnostics.Span{},
					"function %q: block b%d still has a phi node after SSA destruction", f.Name, id))
			}
		}
	}
}

// validateReturns checks every Return's arity matches the function's
// declared return shape: zero values for a unit return type, exactly
// one otherwise (OPT005; mir.Lower's own convention — see DESIGN.md's
// "multi-value returns" decision — never produces more than one).
func validateReturns(f *mir.Function, sink *diagnostics.Sink) {
	want := 0
	if _, isUnit := f.ReturnType.(*types.Unit); !isUnit && f.ReturnType != nil {
		want = 1
	}
	for _, id := range f.ReachableBlocks() {
		ret, ok := f.Blocks[id].Term.(*mir.Return)
		if !ok {
			continue
		}
		if len(ret.Values) != want {
			sink.Push(diagnostics.New(diagnostics.OPT005, validatePhase, diagnostics.Span{},
				"function %q: return in block b%d has %d value(s), function returns %d",
				f.Name, id, len(ret.Values), want))
		}
	}
}
