package types

import (
	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
)

// Checker implements spec.md §4.3: `type_of(expr) -> Type` and
// `check(function)`, diagnosing mismatches into a Sink. Grounded on
// internal/types/typechecker.go's TypeChecker (CheckProgram / checkDecl
// dispatch shape), reduced from Hindley-Milner inference with
// generalization to Cairo-M's simpler bottom-up/top-down bidirectional
// checking over a monomorphic, nominal+structural type system.
type Checker struct {
	sink    *diagnostics.Sink
	structs map[string]*Struct
	consts  map[string]Type
	funcs   map[string]*Func

	exprTypes map[ast.Expr]Type
}

// NewChecker creates a Checker that reports into sink.
func NewChecker(sink *diagnostics.Sink) *Checker {
	return &Checker{
		sink:      sink,
		structs:   make(map[string]*Struct),
		consts:    make(map[string]Type),
		funcs:     make(map[string]*Func),
		exprTypes: make(map[ast.Expr]Type),
	}
}

// TypeOf returns the type computed for expr, if Check has visited it.
func (c *Checker) TypeOf(expr ast.Expr) (Type, bool) {
	t, ok := c.exprTypes[expr]
	return t, ok
}

// Struct returns the resolved field layout for a declared struct name, so
// later phases (internal/mir) don't need to re-walk struct declarations.
func (c *Checker) Struct(name string) (*Struct, bool) {
	st, ok := c.structs[name]
	return st, ok
}

// FuncSignature returns a declared function's resolved parameter/return
// types.
func (c *Checker) FuncSignature(name string) (*Func, bool) {
	fn, ok := c.funcs[name]
	return fn, ok
}

// ConstType returns a top-level constant's resolved type.
func (c *Checker) ConstType(name string) (Type, bool) {
	t, ok := c.consts[name]
	return t, ok
}

// ResolveType exposes resolveType so later phases can turn a surface
// type annotation (e.g. a CastExpr's target) into a types.Type without
// re-walking struct declarations themselves.
func (c *Checker) ResolveType(t ast.Type, span ast.Span) Type {
	return c.resolveType(t, span)
}

// CheckFile type checks every item in file: it registers struct and
// function signatures first (so forward references and mutual calls
// resolve), then checks each function body.
func (c *Checker) CheckFile(file *ast.File) {
	for _, item := range file.Items {
		if d, ok := item.(*ast.StructDecl); ok {
			c.structs[d.Name] = &Struct{Name: d.Name}
		}
	}
	for _, item := range file.Items {
		if d, ok := item.(*ast.StructDecl); ok {
			c.resolveStructFields(d)
		}
	}
	for _, item := range file.Items {
		if d, ok := item.(*ast.FuncDecl); ok {
			c.funcs[d.Name] = c.signatureOf(d)
		}
	}
	for _, item := range file.Items {
		switch d := item.(type) {
		case *ast.ConstDecl:
			var expected Type
			if d.Type != nil {
				expected = c.resolveType(d.Type, d.Span)
			}
			valType := c.inferExpr(d.Value, expected, NewEnv())
			if expected != nil && !AssignableTo(valType, expected) {
				c.errf(diagnostics.TYP001, d.Span, "cannot assign %s to %s", valType, expected)
				valType = expected
			}
			c.consts[d.Name] = valType
		case *ast.FuncDecl:
			c.checkFunc(d)
		}
	}
}

func (c *Checker) signatureOf(d *ast.FuncDecl) *Func {
	params := make([]Type, len(d.Params))
	for i, p := range d.Params {
		params[i] = c.resolveType(p.Type, p.Span)
	}
	ret := Type(&Unit{})
	if d.ReturnType != nil {
		ret = c.resolveType(d.ReturnType, d.Span)
	}
	return &Func{Params: params, Return: ret}
}

func (c *Checker) resolveStructFields(d *ast.StructDecl) {
	st := c.structs[d.Name]
	for _, f := range d.Fields {
		st.Fields = append(st.Fields, Field{Name: f.Name, Type: c.resolveType(f.Type, f.Span)})
	}
}

// resolveType maps an ast.Type to a types.Type, reporting TYP001 against
// span for a name that names no primitive or declared struct.
func (c *Checker) resolveType(t ast.Type, span ast.Span) Type {
	switch tt := t.(type) {
	case nil:
		return &Unit{}
	case *ast.UnitType:
		return &Unit{}
	case *ast.NamedType:
		switch tt.Name {
		case "felt":
			return &Felt{}
		case "u32":
			return &U32{}
		case "bool":
			return &Bool{}
		}
		if st, ok := c.structs[tt.Name]; ok {
			return st
		}
		c.errf(diagnostics.TYP001, span, "unknown type %q", tt.Name)
		return &Felt{}
	case *ast.PointerType:
		return &Pointer{Elem: c.resolveType(tt.Elem, span)}
	case *ast.TupleType:
		elems := make([]Type, len(tt.Elems))
		for i, e := range tt.Elems {
			elems[i] = c.resolveType(e, span)
		}
		return &Tuple{Elems: elems}
	case *ast.FuncType:
		params := make([]Type, len(tt.Params))
		for i, p := range tt.Params {
			params[i] = c.resolveType(p, span)
		}
		ret := Type(&Unit{})
		if len(tt.Results) == 1 {
			ret = c.resolveType(tt.Results[0], span)
		} else if len(tt.Results) > 1 {
			elems := make([]Type, len(tt.Results))
			for i, r := range tt.Results {
				elems[i] = c.resolveType(r, span)
			}
			ret = &Tuple{Elems: elems}
		}
		return &Func{Params: params, Return: ret}
	default:
		c.errf(diagnostics.TYP001, span, "unknown type form")
		return &Felt{}
	}
}

func (c *Checker) errf(code string, span ast.Span, format string, args ...any) {
	c.sink.Push(diagnostics.Newf(code, "typecheck", span, format, args...))
}

func (c *Checker) checkFunc(d *ast.FuncDecl) {
	env := NewEnv()
	for _, p := range d.Params {
		env.Bind(p.Name, c.resolveType(p.Type, p.Span))
	}
	ret := Type(&Unit{})
	if d.ReturnType != nil {
		ret = c.resolveType(d.ReturnType, d.Span)
	}
	if d.Body != nil {
		c.checkBlock(d.Body, env, ret)
	}
}

func (c *Checker) checkBlock(block *ast.BlockStmt, env *Env, ret Type) {
	scope := env.Child()
	for _, stmt := range block.Stmts {
		c.checkStmt(stmt, scope, ret)
	}
}

func (c *Checker) checkStmt(stmt ast.Stmt, env *Env, ret Type) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		var expected Type
		if s.Type != nil {
			expected = c.resolveType(s.Type, s.Span)
		}
		valType := c.inferExpr(s.Value, expected, env)
		declType := valType
		if expected != nil {
			if !AssignableTo(valType, expected) {
				c.errf(diagnostics.TYP001, s.Span, "cannot assign %s to %s", valType, expected)
			}
			declType = expected
		}
		c.bindPattern(s.Pattern, declType, env)
	case *ast.ConstStmt:
		var expected Type
		if s.Type != nil {
			expected = c.resolveType(s.Type, s.Span)
		}
		valType := c.inferExpr(s.Value, expected, env)
		if expected != nil && !AssignableTo(valType, expected) {
			c.errf(diagnostics.TYP001, s.Span, "cannot assign %s to %s", valType, expected)
			valType = expected
		}
		env.Bind(s.Name, valType)
	case *ast.AssignStmt:
		targetType := c.inferExpr(s.Target, nil, env)
		valType := c.inferExpr(s.Value, targetType, env)
		if !AssignableTo(valType, targetType) {
			c.errf(diagnostics.TYP001, s.Span, "cannot assign %s to %s", valType, targetType)
		}
	case *ast.ExprStmt:
		c.inferExpr(s.X, nil, env)
	case *ast.BlockStmt:
		c.checkBlock(s, env, ret)
	case *ast.IfStmt:
		c.checkCondition(s.Cond, env)
		c.checkBlock(s.Then, env, ret)
		if s.Else != nil {
			c.checkStmt(s.Else, env, ret)
		}
	case *ast.WhileStmt:
		c.checkCondition(s.Cond, env)
		c.checkBlock(s.Body, env, ret)
	case *ast.LoopStmt:
		c.checkBlock(s.Body, env, ret)
	case *ast.ForStmt:
		loopEnv := env.Child()
		if s.Init != nil {
			c.checkStmt(s.Init, loopEnv, ret)
		}
		if s.Cond != nil {
			c.checkCondition(s.Cond, loopEnv)
		}
		if s.Step != nil {
			c.checkStmt(s.Step, loopEnv, ret)
		}
		c.checkBlock(s.Body, loopEnv, ret)
	case *ast.ReturnStmt:
		if s.Value == nil {
			if _, isUnit := ret.(*Unit); !isUnit {
				c.errf(diagnostics.TYP001, s.Span, "expected a return value of type %s", ret)
			}
			return
		}
		valType := c.inferExpr(s.Value, ret, env)
		if !AssignableTo(valType, ret) {
			c.errf(diagnostics.TYP001, s.Span, "returned %s, expected %s", valType, ret)
		}
	}
}

func (c *Checker) bindPattern(pat ast.Pattern, t Type, env *Env) {
	switch p := pat.(type) {
	case *ast.IdentPattern:
		if p.Name != "_" {
			env.Bind(p.Name, t)
		}
	case *ast.TuplePattern:
		tup, ok := t.(*Tuple)
		if !ok || len(tup.Elems) != len(p.Elems) {
			c.errf(diagnostics.TYP001, p.Span, "cannot destructure %s as a %d-tuple", t, len(p.Elems))
			for _, elem := range p.Elems {
				c.bindPattern(elem, &Felt{}, env)
			}
			return
		}
		for i, elem := range p.Elems {
			c.bindPattern(elem, tup.Elems[i], env)
		}
	}
}

// checkCondition enforces spec.md §4.3: "bool is the only condition type
// accepted by if/while".
func (c *Checker) checkCondition(cond ast.Expr, env *Env) {
	t := c.inferExpr(cond, &Bool{}, env)
	if _, ok := t.(*Bool); !ok {
		c.errf(diagnostics.TYP007, cond.Position(), "condition has type %s, expected bool", t)
	}
}
