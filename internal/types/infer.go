package types

import (
	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
)

// inferExpr computes expr's Type, propagating expected as top-down
// context at the positions spec.md §4.3 names (let/return/argument/
// binary) and recording the result so TypeOf can answer for it later.
// expected may be nil when no context is available (e.g. a bare
// expression statement).
func (c *Checker) inferExpr(expr ast.Expr, expected Type, env *Env) Type {
	t := c.inferExprUncached(expr, expected, env)
	c.exprTypes[expr] = t
	return t
}

func (c *Checker) inferExprUncached(expr ast.Expr, expected Type, env *Env) Type {
	switch e := expr.(type) {
	case *ast.IntLit:
		if _, ok := expected.(*U32); ok {
			return &U32{}
		}
		return &Felt{}
	case *ast.BoolLit:
		return &Bool{}
	case *ast.Ident:
		if t, ok := env.Lookup(e.Name); ok {
			return t
		}
		if t, ok := c.consts[e.Name]; ok {
			return t
		}
		if fn, ok := c.funcs[e.Name]; ok {
			return fn
		}
		// internal/sema already reported NAM001 for an undeclared name;
		// fall back to felt so checking can keep going without cascading.
		return &Felt{}
	case *ast.ParenExpr:
		return c.inferExpr(e.X, expected, env)
	case *ast.UnaryExpr:
		return c.inferUnary(e, env)
	case *ast.BinaryExpr:
		return c.inferBinary(e, env)
	case *ast.CastExpr:
		return c.inferCast(e, env)
	case *ast.CallExpr:
		return c.inferCall(e, env)
	case *ast.MemberExpr:
		return c.inferMember(e, env)
	case *ast.IndexExpr:
		return c.inferIndex(e, expected, env)
	case *ast.TupleLit:
		var elemExpected []Type
		if et, ok := expected.(*Tuple); ok && len(et.Elems) == len(e.Elems) {
			elemExpected = et.Elems
		}
		elems := make([]Type, len(e.Elems))
		for i, el := range e.Elems {
			var want Type
			if elemExpected != nil {
				want = elemExpected[i]
			}
			elems[i] = c.inferExpr(el, want, env)
		}
		return &Tuple{Elems: elems}
	case *ast.StructLit:
		return c.inferStructLit(e, env)
	default:
		return &Felt{}
	}
}

func (c *Checker) inferUnary(e *ast.UnaryExpr, env *Env) Type {
	switch e.Op {
	case "!":
		t := c.inferExpr(e.X, &Bool{}, env)
		if _, ok := t.(*Bool); !ok {
			c.errf(diagnostics.TYP002, e.Span, "operator ! needs bool, got %s", t)
		}
		return &Bool{}
	case "-":
		t := c.inferExpr(e.X, nil, env)
		if !IsNumeric(t) {
			c.errf(diagnostics.TYP002, e.Span, "operator - needs felt or u32, got %s", t)
			return &Felt{}
		}
		return t
	default:
		return c.inferExpr(e.X, nil, env)
	}
}

var comparisonOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}
var orderingOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true}
var logicalOps = map[string]bool{"&&": true, "||": true}

func (c *Checker) inferBinary(e *ast.BinaryExpr, env *Env) Type {
	if logicalOps[e.Op] {
		lt := c.inferExpr(e.X, &Bool{}, env)
		rt := c.inferExpr(e.Y, &Bool{}, env)
		if _, ok := lt.(*Bool); !ok {
			c.errf(diagnostics.TYP002, e.X.Position(), "operator %s needs bool, got %s", e.Op, lt)
		}
		if _, ok := rt.(*Bool); !ok {
			c.errf(diagnostics.TYP002, e.Y.Position(), "operator %s needs bool, got %s", e.Op, rt)
		}
		return &Bool{}
	}

	if comparisonOps[e.Op] {
		lt := c.inferExpr(e.X, nil, env)
		rt := c.inferExpr(e.Y, rebalanceExpected(lt), env)
		if orderingOps[e.Op] {
			if _, isFelt := lt.(*Felt); isFelt {
				if _, rhsFelt := rt.(*Felt); rhsFelt {
					c.errf(diagnostics.TYP090, e.Span, "ordering comparison %q is not supported on felt", e.Op)
					return &Bool{}
				}
			}
		}
		if !operandsCompatible(lt, rt) {
			c.errf(diagnostics.TYP002, e.Span, "cannot compare %s with %s", lt, rt)
		}
		return &Bool{}
	}

	// Arithmetic: +, -, *, /, %
	lt := c.inferExpr(e.X, nil, env)
	rt := c.inferExpr(e.Y, rebalanceExpected(lt), env)

	if st, ok := lt.(*Struct); ok {
		c.suggestFieldArithmetic(e.X.Position(), st, e.Op)
		return lt
	}
	if st, ok := rt.(*Struct); ok {
		c.suggestFieldArithmetic(e.Y.Position(), st, e.Op)
		return rt
	}
	if !IsNumeric(lt) || !IsNumeric(rt) {
		c.errf(diagnostics.TYP002, e.Span, "operator %s needs felt or u32 operands, got %s and %s", e.Op, lt, rt)
		return &Felt{}
	}
	if !lt.Equals(rt) {
		c.errf(diagnostics.TYP002, e.Span, "mismatched operand types %s and %s for operator %s", lt, rt, e.Op)
		return lt
	}
	if e.Op == "/" {
		if lit, ok := e.Y.(*ast.IntLit); ok && lit.Value == 0 {
			c.errf(diagnostics.TYP010, e.Span, "division by the literal zero")
		}
	}
	return lt
}

// rebalanceExpected passes a concrete numeric type through as expected
// context for the other operand of a comparison/arithmetic expression, so
// `x == 1` where x: u32 infers the literal as u32 rather than felt.
func rebalanceExpected(t Type) Type {
	if IsNumeric(t) {
		return t
	}
	return nil
}

func operandsCompatible(a, b Type) bool {
	return a.Equals(b)
}

// suggestFieldArithmetic implements spec.md §4.3's targeted suggestion:
// "Did you mean to access field x?" when a struct value is used where a
// scalar was expected in arithmetic.
func (c *Checker) suggestFieldArithmetic(span ast.Span, st *Struct, op string) {
	for _, f := range st.Fields {
		if IsNumeric(f.Type) {
			c.errf(diagnostics.TYP002, span,
				"%s is a struct, not a number; did you mean to access field %s with %s.%s?",
				st.Name, f.Name, st.Name, f.Name)
			return
		}
	}
	c.errf(diagnostics.TYP002, span, "%s is a struct and cannot be used with operator %s", st.Name, op)
}

// inferCast checks an `expr as Type`: the one checked conversion the
// language exposes, felt<->u32 (spec.md §3 and §4.3).
func (c *Checker) inferCast(e *ast.CastExpr, env *Env) Type {
	target := c.resolveType(e.Type, e.Span)
	src := c.inferExpr(e.X, nil, env)
	switch target.(type) {
	case *Felt:
		if !IsNumeric(src) {
			c.errf(diagnostics.TYP001, e.Span, "cannot cast %s to felt", src)
		}
	case *U32:
		if !IsNumeric(src) {
			c.errf(diagnostics.TYP001, e.Span, "cannot cast %s to u32", src)
		}
	default:
		c.errf(diagnostics.TYP001, e.Span, "unsupported cast target %s", target)
	}
	return target
}

func (c *Checker) inferCall(e *ast.CallExpr, env *Env) Type {
	calleeIdent, ok := e.Callee.(*ast.Ident)
	if !ok {
		c.inferExpr(e.Callee, nil, env)
		for _, a := range e.Args {
			c.inferExpr(a, nil, env)
		}
		return &Felt{}
	}
	fn, ok := c.funcs[calleeIdent.Name]
	if !ok {
		for _, a := range e.Args {
			c.inferExpr(a, nil, env)
		}
		return &Felt{}
	}
	if len(e.Args) != len(fn.Params) {
		c.errf(diagnostics.TYP004, e.Span, "%s expects %d argument(s), got %d", calleeIdent.Name, len(fn.Params), len(e.Args))
	}
	n := len(e.Args)
	if len(fn.Params) < n {
		n = len(fn.Params)
	}
	for i := 0; i < n; i++ {
		argType := c.inferExpr(e.Args[i], fn.Params[i], env)
		if !AssignableTo(argType, fn.Params[i]) {
			c.errf(diagnostics.TYP005, e.Args[i].Position(),
				"argument %d to %s: expected %s, got %s", i+1, calleeIdent.Name, fn.Params[i], argType)
		}
	}
	for i := n; i < len(e.Args); i++ {
		c.inferExpr(e.Args[i], nil, env)
	}
	return fn.Return
}

func (c *Checker) inferMember(e *ast.MemberExpr, env *Env) Type {
	baseType := c.inferExpr(e.Base, nil, env)
	st, ok := baseType.(*Struct)
	if !ok {
		c.errf(diagnostics.TYP001, e.Span, "%s is not a struct, has no field %q", baseType, e.Field)
		return &Felt{}
	}
	ft, _, ok := st.FieldType(e.Field)
	if !ok {
		c.errf(diagnostics.TYP003, e.Span, "%s has no field %q", st.Name, e.Field)
		return &Felt{}
	}
	return ft
}

func (c *Checker) inferIndex(e *ast.IndexExpr, expected Type, env *Env) Type {
	baseType := c.inferExpr(e.Base, nil, env)
	c.inferExpr(e.Index, &Felt{}, env)
	tup, ok := baseType.(*Tuple)
	if !ok {
		c.errf(diagnostics.TYP001, e.Span, "%s is not a tuple and cannot be indexed", baseType)
		return &Felt{}
	}
	lit, ok := e.Index.(*ast.IntLit)
	if !ok {
		c.errf(diagnostics.TYP001, e.Span, "tuple index must be a literal integer")
		return &Felt{}
	}
	if int(lit.Value) >= len(tup.Elems) {
		c.errf(diagnostics.TYP003, e.Span, "tuple index %d out of range for %s", lit.Value, baseType)
		return &Felt{}
	}
	return tup.Elems[int(lit.Value)]
}

func (c *Checker) inferStructLit(e *ast.StructLit, env *Env) Type {
	st, ok := c.structs[e.Name]
	if !ok {
		c.errf(diagnostics.TYP008, e.Span, "unknown struct %q", e.Name)
		for _, f := range e.Fields {
			c.inferExpr(f.Value, nil, env)
		}
		return &Felt{}
	}
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		seen[f.Name] = true
		ft, _, ok := st.FieldType(f.Name)
		if !ok {
			c.errf(diagnostics.TYP008, f.Span, "%s has no field %q", st.Name, f.Name)
			c.inferExpr(f.Value, nil, env)
			continue
		}
		valType := c.inferExpr(f.Value, ft, env)
		if !AssignableTo(valType, ft) {
			c.errf(diagnostics.TYP008, f.Span, "field %s.%s expects %s, got %s", st.Name, f.Name, ft, valType)
		}
	}
	for _, f := range st.Fields {
		if !seen[f.Name] {
			c.errf(diagnostics.TYP008, e.Span, "missing field %q in %s literal", f.Name, st.Name)
		}
	}
	return st
}
