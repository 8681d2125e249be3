package validate

import (
	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/sema"
)

// walkBreakContinue reports FLW003/FLW004 for a break/continue not
// nested inside any enclosing while/loop/for, per spec.md §4.4.
func (v *validator) walkBreakContinue(stmt ast.Stmt, depth int) {
	switch s := stmt.(type) {
	case *ast.BreakStmt:
		if depth == 0 {
			v.sink.Push(diagnostics.New(diagnostics.FLW003, "flow", s.Span, "break outside loop"))
		}
	case *ast.ContinueStmt:
		if depth == 0 {
			v.sink.Push(diagnostics.New(diagnostics.FLW004, "flow", s.Span, "continue outside loop"))
		}
	case *ast.BlockStmt:
		for _, inner := range s.Stmts {
			v.walkBreakContinue(inner, depth)
		}
	case *ast.IfStmt:
		v.walkBreakContinue(s.Then, depth)
		if s.Else != nil {
			v.walkBreakContinue(s.Else, depth)
		}
	case *ast.WhileStmt:
		v.walkBreakContinue(s.Body, depth+1)
	case *ast.LoopStmt:
		v.walkBreakContinue(s.Body, depth+1)
	case *ast.ForStmt:
		if s.Init != nil {
			v.walkBreakContinue(s.Init, depth)
		}
		if s.Step != nil {
			v.walkBreakContinue(s.Step, depth)
		}
		v.walkBreakContinue(s.Body, depth+1)
	}
}

// checkUnreachable reports FLW002 once for the first statement in stmts
// that internal/sema already marked Never-reachable, then stops scanning
// that list (every statement after it is trivially unreachable too, and
// one warning per dead region reads better than one per statement) while
// still descending into earlier, reachable statements' own nested blocks.
func (v *validator) checkUnreachable(stmts []ast.Stmt) {
	flagged := false
	for _, s := range stmts {
		if !flagged {
			if r, ok := v.idx.Reachable[s]; ok && r == sema.Never {
				v.sink.Push(diagnostics.Warning(diagnostics.FLW002, "flow", s.Position(), "unreachable code"))
				flagged = true
			}
		}
		v.recurseUnreachable(s)
	}
}

func (v *validator) recurseUnreachable(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		v.checkUnreachable(s.Stmts)
	case *ast.IfStmt:
		v.checkUnreachable(s.Then.Stmts)
		if s.Else != nil {
			v.recurseUnreachable(s.Else)
		}
	case *ast.WhileStmt:
		v.checkUnreachable(s.Body.Stmts)
	case *ast.LoopStmt:
		v.checkUnreachable(s.Body.Stmts)
	case *ast.ForStmt:
		v.checkUnreachable(s.Body.Stmts)
	}
}
