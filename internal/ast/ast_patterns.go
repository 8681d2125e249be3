package ast

import (
	"fmt"
	"strings"
)

// ---- Patterns ----

// IdentPattern binds a single name, e.g. `let x = ...`.
type IdentPattern struct {
	Name string
	Span Span
}

func (p *IdentPattern) patternNode()   {}
func (p *IdentPattern) Position() Span { return p.Span }
func (p *IdentPattern) String() string { return p.Name }

// WildcardPattern discards a value; reserved syntax per spec.md §3, not
// yet bound to a surface form the parser produces (no binding occurs, so
// a bare `_` pattern name is represented as an IdentPattern named "_" and
// the semantic index simply never resolves uses of "_").
type WildcardPattern struct{ Span Span }

func (p *WildcardPattern) patternNode()   {}
func (p *WildcardPattern) Position() Span { return p.Span }
func (p *WildcardPattern) String() string { return "_" }

// TuplePattern destructures a tuple, e.g. `let (x, y) = ...`.
type TuplePattern struct {
	Elems []Pattern
	Span  Span
}

func (p *TuplePattern) patternNode()   {}
func (p *TuplePattern) Position() Span { return p.Span }
func (p *TuplePattern) String() string {
	parts := make([]string, len(p.Elems))
	for i, e := range p.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ---- Types ----

// NamedType is a primitive or struct type referenced by name: `felt`,
// `u32`, `bool`, or a user struct name.
type NamedType struct {
	Name string
	Span Span
}

func (t *NamedType) typeNode()      {}
func (t *NamedType) Position() Span { return t.Span }
func (t *NamedType) String() string { return t.Name }

// UnitType is `()`.
type UnitType struct{ Span Span }

func (t *UnitType) typeNode()      {}
func (t *UnitType) Position() Span { return t.Span }
func (t *UnitType) String() string { return "()" }

// PointerType is `*T` (used for explicit address-taken memory values).
type PointerType struct {
	Elem Type
	Span Span
}

func (t *PointerType) typeNode()      {}
func (t *PointerType) Position() Span { return t.Span }
func (t *PointerType) String() string { return "*" + t.Elem.String() }

// TupleType is `(T1, T2, ...)`.
type TupleType struct {
	Elems []Type
	Span  Span
}

func (t *TupleType) typeNode()      {}
func (t *TupleType) Position() Span { return t.Span }
func (t *TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FuncType is a function signature type `fn(T1, T2) -> R`.
type FuncType struct {
	Params  []Type
	Results []Type
	Span    Span
}

func (t *FuncType) typeNode()      {}
func (t *FuncType) Position() Span { return t.Span }
func (t *FuncType) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	results := make([]string, len(t.Results))
	for i, r := range t.Results {
		results[i] = r.String()
	}
	return fmt.Sprintf("fn(%s) -> (%s)", strings.Join(params, ", "), strings.Join(results, ", "))
}
