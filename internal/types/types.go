// Package types implements Cairo-M's type system: representation,
// assignability, and inference/checking over an internal/ast.File. The
// checker keeps its own name-to-type environment (Env) and does not read
// internal/sema's index.
package types

import (
	"fmt"
	"strings"
)

// Type is any of felt, u32, bool, unit, pointer(T), tuple(T1..Tn),
// struct{...}, or function{...} (spec.md §3).
type Type interface {
	String() string
	Equals(Type) bool
}

// WordSize reports a type's size in word slots (spec.md §3:
// "felt=1, bool=1, u32=2, pointer=1, struct=Σfields, tuple=Σelems,
// function=opaque").
func WordSize(t Type) int {
	switch tt := t.(type) {
	case *Felt, *Bool:
		return 1
	case *U32:
		return 2
	case *Pointer:
		return 1
	case *Unit:
		return 0
	case *Tuple:
		n := 0
		for _, e := range tt.Elems {
			n += WordSize(e)
		}
		return n
	case *Struct:
		n := 0
		for _, f := range tt.Fields {
			n += WordSize(f.Type)
		}
		return n
	case *Func:
		return 0
	default:
		return 0
	}
}

// Felt is the native field element type.
type Felt struct{}

func (*Felt) String() string     { return "felt" }
func (*Felt) Equals(o Type) bool { _, ok := o.(*Felt); return ok }

// U32 is the 32-bit modular integer type.
type U32 struct{}

func (*U32) String() string     { return "u32" }
func (*U32) Equals(o Type) bool { _, ok := o.(*U32); return ok }

// Bool is the boolean type; the only type accepted by `if`/`while`
// conditions.
type Bool struct{}

func (*Bool) String() string     { return "bool" }
func (*Bool) Equals(o Type) bool { _, ok := o.(*Bool); return ok }

// Unit is `()`, the default function return type.
type Unit struct{}

func (*Unit) String() string     { return "()" }
func (*Unit) Equals(o Type) bool { _, ok := o.(*Unit); return ok }

// Pointer is `*T`.
type Pointer struct{ Elem Type }

func (t *Pointer) String() string { return "*" + t.Elem.String() }
func (t *Pointer) Equals(o Type) bool {
	op, ok := o.(*Pointer)
	return ok && t.Elem.Equals(op.Elem)
}

// Tuple is `(T1, T2, ...)`.
type Tuple struct{ Elems []Type }

func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t *Tuple) Equals(o Type) bool {
	ot, ok := o.(*Tuple)
	if !ok || len(t.Elems) != len(ot.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equals(ot.Elems[i]) {
			return false
		}
	}
	return true
}

// Field is one named, typed member of a Struct.
type Field struct {
	Name string
	Type Type
}

// Struct is a nominal aggregate type; two struct types are equal only
// when they share a Name (fields are never compared).
type Struct struct {
	Name   string
	Fields []Field
}

func (t *Struct) String() string { return t.Name }

func (t *Struct) Equals(o Type) bool {
	ot, ok := o.(*Struct)
	return ok && t.Name == ot.Name
}

// FieldType returns the type of a named field, or nil if Struct has no
// such field.
func (t *Struct) FieldType(name string) (Type, int, bool) {
	for i, f := range t.Fields {
		if f.Name == name {
			return f.Type, i, true
		}
	}
	return nil, 0, false
}

// Func is a function signature type `fn(T1, T2) -> R`.
type Func struct {
	Params []Type
	Return Type
}

func (t *Func) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("fn(%s) -> %s", strings.Join(params, ", "), t.Return.String())
}

func (t *Func) Equals(o Type) bool {
	ot, ok := o.(*Func)
	if !ok || len(t.Params) != len(ot.Params) {
		return false
	}
	for i := range t.Params {
		if !t.Params[i].Equals(ot.Params[i]) {
			return false
		}
	}
	return t.Return.Equals(ot.Return)
}

// IsNumeric reports whether t supports arithmetic operators.
func IsNumeric(t Type) bool {
	switch t.(type) {
	case *Felt, *U32:
		return true
	default:
		return false
	}
}

// AssignableTo reports whether a value of type from can be stored into a
// place of type to without an explicit `as` cast. Only identity
// conversion is implicit; felt<->u32 always requires `as` (spec.md §4.3:
// "there is no implicit numeric conversion otherwise").
func AssignableTo(from, to Type) bool {
	return from.Equals(to)
}
