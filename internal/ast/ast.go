// Package ast defines the spanned, sum-typed Cairo-M abstract syntax tree
// produced by internal/parser (spec.md §3 "AST").
package ast

import (
	"fmt"
	"strings"

	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
)

// Span and Pos are the diagnostics package's position types, shared by
// every phase so a span computed during parsing survives unchanged into
// type errors, MIR provenance, and codegen diagnostics.
type Span = diagnostics.Span
type Pos = diagnostics.Pos

// Node is the base interface implemented by every AST node.
type Node interface {
	Position() Span
	String() string
}

// Item is a top-level declaration: function, struct, constant, or use.
type Item interface {
	Node
	itemNode()
}

// Stmt is a statement inside a function body.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression.
type Expr interface {
	Node
	exprNode()
}

// Pattern is a let-binding pattern.
type Pattern interface {
	Node
	patternNode()
}

// Type is a surface type annotation.
type Type interface {
	Node
	typeNode()
}

// File is a single parsed Cairo-M source file (one module).
type File struct {
	Path  string
	Items []Item
	Span  Span
}

func (f *File) Position() Span { return f.Span }
func (f *File) String() string {
	parts := make([]string, 0, len(f.Items))
	for _, it := range f.Items {
		parts = append(parts, it.String())
	}
	return strings.Join(parts, "\n")
}

// ---- Items ----

// Param is a single function parameter.
type Param struct {
	Name string
	Type Type
	Span Span
}

// FuncDecl is `fn name(params) -> ReturnType { body }`.
type FuncDecl struct {
	Name       string
	Params     []Param
	ReturnType Type // nil means unit, per spec.md §6.1
	Body       *BlockStmt
	Span       Span
}

func (d *FuncDecl) itemNode()      {}
func (d *FuncDecl) Position() Span { return d.Span }
func (d *FuncDecl) String() string {
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		params[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	ret := "()"
	if d.ReturnType != nil {
		ret = d.ReturnType.String()
	}
	return fmt.Sprintf("fn %s(%s) -> %s %s", d.Name, strings.Join(params, ", "), ret, d.Body)
}

// FieldDecl is a single `name: Type` struct field.
type FieldDecl struct {
	Name string
	Type Type
	Span Span
}

// StructDecl is `struct Name { fields }`.
type StructDecl struct {
	Name   string
	Fields []FieldDecl
	Span   Span
}

func (d *StructDecl) itemNode()      {}
func (d *StructDecl) Position() Span { return d.Span }
func (d *StructDecl) String() string {
	fields := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
	}
	return fmt.Sprintf("struct %s { %s }", d.Name, strings.Join(fields, ", "))
}

// ConstDecl is a module-level `const NAME [: T] = expr;`.
type ConstDecl struct {
	Name  string
	Type  Type // optional
	Value Expr
	Span  Span
}

func (d *ConstDecl) itemNode()      {}
func (d *ConstDecl) Position() Span { return d.Span }
func (d *ConstDecl) String() string { return fmt.Sprintf("const %s = %s;", d.Name, d.Value) }

// UseDecl is `use a::b::name;`, `use a::b;`, or `use a::b::*;`.
//
// Path holds the module path segments. Name holds the imported symbol, or
// "*" for a wildcard import, or "" when the whole module (not a symbol) is
// imported by its last path segment.
type UseDecl struct {
	Path []string
	Name string
	Span Span
}

func (d *UseDecl) itemNode()      {}
func (d *UseDecl) Position() Span { return d.Span }
func (d *UseDecl) String() string {
	p := strings.Join(d.Path, "::")
	if d.Name == "" {
		return fmt.Sprintf("use %s;", p)
	}
	return fmt.Sprintf("use %s::%s;", p, d.Name)
}

// ---- Statements ----

// BlockStmt is `{ stmts }`.
type BlockStmt struct {
	Stmts []Stmt
	Span  Span
}

func (s *BlockStmt) stmtNode()      {}
func (s *BlockStmt) Position() Span { return s.Span }
func (s *BlockStmt) String() string {
	parts := make([]string, len(s.Stmts))
	for i, st := range s.Stmts {
		parts[i] = st.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

// LetStmt is `let pattern [: T] = expr;`.
type LetStmt struct {
	Pattern Pattern
	Type    Type // optional
	Value   Expr
	Span    Span
}

func (s *LetStmt) stmtNode()      {}
func (s *LetStmt) Position() Span { return s.Span }
func (s *LetStmt) String() string { return fmt.Sprintf("let %s = %s;", s.Pattern, s.Value) }

// ConstStmt is a statement-level `const NAME [: T] = expr;`.
type ConstStmt struct {
	Name  string
	Type  Type
	Value Expr
	Span  Span
}

func (s *ConstStmt) stmtNode()      {}
func (s *ConstStmt) Position() Span { return s.Span }
func (s *ConstStmt) String() string { return fmt.Sprintf("const %s = %s;", s.Name, s.Value) }

// AssignStmt is `lhs = rhs;` where lhs is a place expression (identifier,
// field access, or index access chain).
type AssignStmt struct {
	Target Expr
	Value  Expr
	Span   Span
}

func (s *AssignStmt) stmtNode()      {}
func (s *AssignStmt) Position() Span { return s.Span }
func (s *AssignStmt) String() string { return fmt.Sprintf("%s = %s;", s.Target, s.Value) }

// ExprStmt is a bare `expr;`.
type ExprStmt struct {
	X    Expr
	Span Span
}

func (s *ExprStmt) stmtNode()      {}
func (s *ExprStmt) Position() Span { return s.Span }
func (s *ExprStmt) String() string { return s.X.String() + ";" }

// IfStmt is `if (cond) then [else elseBranch]`. Else is nil, a *BlockStmt,
// or another *IfStmt (for `else if`).
type IfStmt struct {
	Cond Expr
	Then *BlockStmt
	Else Stmt
	Span Span
}

func (s *IfStmt) stmtNode()      {}
func (s *IfStmt) Position() Span { return s.Span }
func (s *IfStmt) String() string {
	if s.Else == nil {
		return fmt.Sprintf("if (%s) %s", s.Cond, s.Then)
	}
	return fmt.Sprintf("if (%s) %s else %s", s.Cond, s.Then, s.Else)
}

// WhileStmt is `while (cond) body`.
type WhileStmt struct {
	Cond Expr
	Body *BlockStmt
	Span Span
}

func (s *WhileStmt) stmtNode()      {}
func (s *WhileStmt) Position() Span { return s.Span }
func (s *WhileStmt) String() string { return fmt.Sprintf("while (%s) %s", s.Cond, s.Body) }

// LoopStmt is `loop body`, an unconditional loop broken out of with `break`.
type LoopStmt struct {
	Body *BlockStmt
	Span Span
}

func (s *LoopStmt) stmtNode()      {}
func (s *LoopStmt) Position() Span { return s.Span }
func (s *LoopStmt) String() string { return fmt.Sprintf("loop %s", s.Body) }

// ForStmt is `for (init; cond; step) body`. Init, Cond, and Step are each
// individually optional.
type ForStmt struct {
	Init Stmt
	Cond Expr
	Step Stmt
	Body *BlockStmt
	Span Span
}

func (s *ForStmt) stmtNode()      {}
func (s *ForStmt) Position() Span { return s.Span }
func (s *ForStmt) String() string { return fmt.Sprintf("for (...) %s", s.Body) }

// BreakStmt is `break;`.
type BreakStmt struct{ Span Span }

func (s *BreakStmt) stmtNode()      {}
func (s *BreakStmt) Position() Span { return s.Span }
func (s *BreakStmt) String() string { return "break;" }

// ContinueStmt is `continue;`.
type ContinueStmt struct{ Span Span }

func (s *ContinueStmt) stmtNode()      {}
func (s *ContinueStmt) Position() Span { return s.Span }
func (s *ContinueStmt) String() string { return "continue;" }

// ReturnStmt is `return [expr];`.
type ReturnStmt struct {
	Value Expr // nil for a bare `return;`
	Span  Span
}

func (s *ReturnStmt) stmtNode()      {}
func (s *ReturnStmt) Position() Span { return s.Span }
func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return;"
	}
	return fmt.Sprintf("return %s;", s.Value)
}

// ---- Expressions ----

// IntLit is an integer literal. Raw preserves the original text (so
// `0xFFFFFFFF` round-trips); Value is the parsed magnitude.
type IntLit struct {
	Raw   string
	Value uint64
	Span  Span
}

func (e *IntLit) exprNode()      {}
func (e *IntLit) Position() Span { return e.Span }
func (e *IntLit) String() string { return e.Raw }

// BoolLit is `true` or `false`.
type BoolLit struct {
	Value bool
	Span  Span
}

func (e *BoolLit) exprNode()      {}
func (e *BoolLit) Position() Span { return e.Span }
func (e *BoolLit) String() string { return fmt.Sprintf("%t", e.Value) }

// Ident is a bare identifier reference.
type Ident struct {
	Name string
	Span Span
}

func (e *Ident) exprNode()      {}
func (e *Ident) Position() Span { return e.Span }
func (e *Ident) String() string { return e.Name }

// UnaryExpr is `op x` for `-` and `!`.
type UnaryExpr struct {
	Op   string
	X    Expr
	Span Span
}

func (e *UnaryExpr) exprNode()      {}
func (e *UnaryExpr) Position() Span { return e.Span }
func (e *UnaryExpr) String() string { return fmt.Sprintf("(%s%s)", e.Op, e.X) }

// BinaryExpr is `x op y`.
type BinaryExpr struct {
	Op   string
	X, Y Expr
	Span Span
}

func (e *BinaryExpr) exprNode()      {}
func (e *BinaryExpr) Position() Span { return e.Span }
func (e *BinaryExpr) String() string { return fmt.Sprintf("(%s %s %s)", e.X, e.Op, e.Y) }

// CallExpr is `callee(args...)`.
type CallExpr struct {
	Callee Expr
	Args   []Expr
	Span   Span
}

func (e *CallExpr) exprNode()      {}
func (e *CallExpr) Position() Span { return e.Span }
func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Callee, strings.Join(args, ", "))
}

// MemberExpr is `base.field`.
type MemberExpr struct {
	Base  Expr
	Field string
	Span  Span
}

func (e *MemberExpr) exprNode()      {}
func (e *MemberExpr) Position() Span { return e.Span }
func (e *MemberExpr) String() string { return fmt.Sprintf("%s.%s", e.Base, e.Field) }

// IndexExpr is `base[index]`.
type IndexExpr struct {
	Base  Expr
	Index Expr
	Span  Span
}

func (e *IndexExpr) exprNode()      {}
func (e *IndexExpr) Position() Span { return e.Span }
func (e *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", e.Base, e.Index) }

// StructLitField is a single `name: value` entry in a struct literal.
type StructLitField struct {
	Name  string
	Value Expr
	Span  Span
}

// StructLit is `Name { field: value, ... }`.
type StructLit struct {
	Name   string
	Fields []StructLitField
	Span   Span
}

func (e *StructLit) exprNode()      {}
func (e *StructLit) Position() Span { return e.Span }
func (e *StructLit) String() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Value)
	}
	return fmt.Sprintf("%s{%s}", e.Name, strings.Join(parts, ", "))
}

// TupleLit is `(a, b, ...)`; arity 1 requires a trailing comma `(a,)` to
// disambiguate from a parenthesized expression (spec.md §4.1).
type TupleLit struct {
	Elems []Expr
	Span  Span
}

func (e *TupleLit) exprNode()      {}
func (e *TupleLit) Position() Span { return e.Span }
func (e *TupleLit) String() string {
	parts := make([]string, len(e.Elems))
	for i, el := range e.Elems {
		parts[i] = el.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ParenExpr is a parenthesized expression kept distinct from TupleLit so a
// struct literal nested inside `if (Name{...})` round-trips its required
// outer parens (spec.md §4.1).
type ParenExpr struct {
	X    Expr
	Span Span
}

func (e *ParenExpr) exprNode()      {}
func (e *ParenExpr) Position() Span { return e.Span }
func (e *ParenExpr) String() string { return fmt.Sprintf("(%s)", e.X) }

// CastExpr is `expr as Type`, the one checked conversion the language
// exposes (u32 -> felt; spec.md §3 "u32→felt is a checked cast").
type CastExpr struct {
	X    Expr
	Type Type
	Span Span
}

func (e *CastExpr) exprNode()      {}
func (e *CastExpr) Position() Span { return e.Span }
func (e *CastExpr) String() string { return fmt.Sprintf("(%s as %s)", e.X, e.Type) }
