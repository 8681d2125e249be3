package sema

import "github.com/cairo-m/cairo-m-compiler/internal/ast"

// PlaceKind distinguishes the shape of an assignable left-hand side.
type PlaceKind int

const (
	PlaceIdent PlaceKind = iota
	PlaceMember
	PlaceIndex
)

// PlaceStep is one link in a place's access chain: a field name for a
// member access, or a literal integer index for a subscript.
type PlaceStep struct {
	Kind  PlaceKind
	Field string // set for PlaceMember
	Index uint64 // set for PlaceIndex when the subscript is a literal int
}

// Place describes an assignable expression as a root identifier plus a
// chain of member/index accesses, per spec.md §4.2: "identifier | member
// chain | literal-int subscript chain". builder.visitAssign records the
// Place of every assignment in Index.Places, whatever its depth, and marks
// the root's symbol as used.
type Place struct {
	Root  string
	Steps []PlaceStep
}

// placeOf decomposes an assignable expression into a Place, or reports ok
// = false if expr is not a valid assignment target (e.g. a literal or a
// call result).
func placeOf(expr ast.Expr) (Place, bool) {
	var steps []PlaceStep
	for {
		switch e := expr.(type) {
		case *ast.Ident:
			// Reverse the accumulated steps: they were appended
			// outside-in while unwinding the chain.
			for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
				steps[i], steps[j] = steps[j], steps[i]
			}
			return Place{Root: e.Name, Steps: steps}, true
		case *ast.MemberExpr:
			steps = append(steps, PlaceStep{Kind: PlaceMember, Field: e.Field})
			expr = e.Base
		case *ast.IndexExpr:
			if lit, ok := e.Index.(*ast.IntLit); ok {
				steps = append(steps, PlaceStep{Kind: PlaceIndex, Index: lit.Value})
				expr = e.Base
				continue
			}
			return Place{}, false
		default:
			return Place{}, false
		}
	}
}
