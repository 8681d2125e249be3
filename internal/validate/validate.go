// Package validate implements spec.md §4.4's structural validators: the
// checks that need all of (AST, SemanticIndex, Types) together rather
// than belonging to the phase that owns one of those artifacts.
// Undeclared/duplicate names and unused-variable warnings are already
// diagnosed while internal/sema builds its index; type mismatches are
// already diagnosed while internal/types checks each function. This
// package adds the checks that only make sense once both exist:
// returns-on-all-paths, unreachable code, break/continue nesting,
// assignment to a constant, and literal range against its inferred type.
//
// Grounded on internal/elaborate/verify.go's post-pass structural
// validation shape (a dedicated pass over an already-built program,
// rather than folding these checks into the builder itself).
package validate

import (
	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/sema"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

// Validate runs every structural check over file's functions.
func Validate(file *ast.File, idx *sema.Index, checker *types.Checker, sink *diagnostics.Sink) {
	v := &validator{idx: idx, checker: checker, sink: sink}
	for _, item := range file.Items {
		if fn, ok := item.(*ast.FuncDecl); ok {
			v.checkFunc(fn)
		}
	}
}

type validator struct {
	idx     *sema.Index
	checker *types.Checker
	sink    *diagnostics.Sink
}

func (v *validator) checkFunc(fn *ast.FuncDecl) {
	if fn.Body == nil {
		return
	}
	if reach, ok := v.idx.Reachable[fn.Body]; !ok || reach != sema.Never {
		v.sink.Push(diagnostics.New(diagnostics.FLW001, "flow", fn.Span,
			"function %q doesn't return on all paths", fn.Name))
	}
	v.walkBreakContinue(fn.Body, 0)
	v.checkUnreachable(fn.Body.Stmts)
	v.walkStmt(fn.Body)
}

// lookupSymbol delegates to sema.LookupSymbol.
func lookupSymbol(idx *sema.Index, scopeID int, name string) (*sema.Symbol, bool) {
	return sema.LookupSymbol(idx, scopeID, name)
}
