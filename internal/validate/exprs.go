package validate

import (
	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/sema"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

// walkStmt visits every statement and expression reachable from stmt,
// checking constant-assignment and literal-range rules along the way.
func (v *validator) walkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		v.walkExpr(s.Value)
	case *ast.ConstStmt:
		v.walkExpr(s.Value)
	case *ast.AssignStmt:
		v.checkConstAssign(s)
		v.walkExpr(s.Target)
		v.walkExpr(s.Value)
	case *ast.ExprStmt:
		v.walkExpr(s.X)
	case *ast.BlockStmt:
		for _, inner := range s.Stmts {
			v.walkStmt(inner)
		}
	case *ast.IfStmt:
		v.walkExpr(s.Cond)
		v.walkStmt(s.Then)
		if s.Else != nil {
			v.walkStmt(s.Else)
		}
	case *ast.WhileStmt:
		v.walkExpr(s.Cond)
		v.walkStmt(s.Body)
	case *ast.LoopStmt:
		v.walkStmt(s.Body)
	case *ast.ForStmt:
		if s.Init != nil {
			v.walkStmt(s.Init)
		}
		if s.Cond != nil {
			v.walkExpr(s.Cond)
		}
		if s.Step != nil {
			v.walkStmt(s.Step)
		}
		v.walkStmt(s.Body)
	case *ast.ReturnStmt:
		if s.Value != nil {
			v.walkExpr(s.Value)
		}
	}
}

func (v *validator) walkExpr(expr ast.Expr) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *ast.IntLit:
		v.checkLiteralRange(e)
	case *ast.UnaryExpr:
		v.walkExpr(e.X)
	case *ast.BinaryExpr:
		v.walkExpr(e.X)
		v.walkExpr(e.Y)
	case *ast.CallExpr:
		v.walkExpr(e.Callee)
		for _, a := range e.Args {
			v.walkExpr(a)
		}
	case *ast.MemberExpr:
		v.walkExpr(e.Base)
	case *ast.IndexExpr:
		v.walkExpr(e.Base)
		v.walkExpr(e.Index)
	case *ast.StructLit:
		for _, f := range e.Fields {
			v.walkExpr(f.Value)
		}
	case *ast.TupleLit:
		for _, el := range e.Elems {
			v.walkExpr(el)
		}
	case *ast.ParenExpr:
		v.walkExpr(e.X)
	case *ast.CastExpr:
		v.walkExpr(e.X)
	}
}

// checkConstAssign reports TYP009 for a write through a place whose root
// symbol is a const declaration.
func (v *validator) checkConstAssign(s *ast.AssignStmt) {
	place, ok := v.idx.Places[s]
	if !ok {
		return
	}
	scopeID, ok := v.idx.ExprScope[s.Value]
	if !ok {
		return
	}
	sym, ok := lookupSymbol(v.idx, scopeID, place.Root)
	if !ok || sym.Kind != sema.SymConst {
		return
	}
	v.sink.Push(diagnostics.New(diagnostics.TYP009, "typecheck", s.Span,
		"cannot assign to constant %q", place.Root))
}

const maxU32 = 0xFFFFFFFF

// checkLiteralRange reports TYP006 for an integer literal the checker
// resolved to u32 but whose magnitude doesn't fit 32 bits.
func (v *validator) checkLiteralRange(lit *ast.IntLit) {
	t, ok := v.checker.TypeOf(lit)
	if !ok {
		return
	}
	if _, isU32 := t.(*types.U32); isU32 && lit.Value > maxU32 {
		v.sink.Push(diagnostics.New(diagnostics.TYP006, "typecheck", lit.Span,
			"literal %s out of range for u32", lit.Raw))
	}
}
