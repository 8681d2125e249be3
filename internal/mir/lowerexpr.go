package mir

import (
	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

// operandType reports op's static type, consulting the function's value
// arena for ValueOperand and the operand itself for ConstOperand.
func (l *lowerer) operandType(op Operand) types.Type {
	switch o := op.(type) {
	case ValueOperand:
		return l.fn.ValueTypes[o.ID]
	case ConstOperand:
		return o.Type
	default:
		return &types.Unit{}
	}
}

func operandEqual(a, b Operand) bool {
	switch av := a.(type) {
	case ValueOperand:
		bv, ok := b.(ValueOperand)
		return ok && av.ID == bv.ID
	case ConstOperand:
		bv, ok := b.(ConstOperand)
		return ok && av.Value == bv.Value && av.Type.Equals(bv.Type)
	case FuncOperand:
		bv, ok := b.(FuncOperand)
		return ok && av.Name == bv.Name
	default:
		return false
	}
}

// lowerExpr lowers expr to an Operand, materializing an SSA value via an
// instruction whenever the expression isn't itself representable as a
// bare immediate or existing value.
func (l *lowerer) lowerExpr(expr ast.Expr) Operand {
	switch e := expr.(type) {
	case *ast.IntLit:
		return ConstOperand{Value: e.Value, Type: l.litType(e)}
	case *ast.BoolLit:
		v := uint64(0)
		if e.Value {
			v = 1
		}
		return ConstOperand{Value: v, Type: &types.Bool{}}
	case *ast.Ident:
		return l.lowerIdent(e)
	case *ast.ParenExpr:
		return l.lowerExpr(e.X)
	case *ast.UnaryExpr:
		return l.lowerUnary(e)
	case *ast.BinaryExpr:
		return l.lowerBinary(e)
	case *ast.CallExpr:
		return l.lowerCall(e)
	case *ast.MemberExpr:
		return l.lowerMember(e)
	case *ast.IndexExpr:
		return l.lowerIndex(e)
	case *ast.CastExpr:
		return l.lowerCast(e)
	case *ast.TupleLit:
		return l.lowerTupleLit(e)
	case *ast.StructLit:
		return l.lowerStructLit(e)
	default:
		return ConstOperand{Value: 0, Type: &types.Felt{}}
	}
}

func (l *lowerer) lowerIdent(e *ast.Ident) Operand {
	if op, ok := l.env.get(e.Name); ok {
		return op
	}
	// Not a local/param: a top-level constant or, on a resolution miss
	// already diagnosed by internal/sema (NAM001), a dummy value.
	if file, ok := l.constExprs[e.Name]; ok {
		return l.lowerExpr(file)
	}
	return ConstOperand{Value: 0, Type: l.litType(e)}
}

func (l *lowerer) lowerUnary(e *ast.UnaryExpr) Operand {
	x := l.lowerExpr(e.X)
	t := l.litType(e)
	id := l.fn.NewValue(t)
	l.emit(&UnOp{ID: id, Op: e.Op, X: x})
	return ValueOperand{ID: id}
}

func (l *lowerer) lowerBinary(e *ast.BinaryExpr) Operand {
	x := l.lowerExpr(e.X)
	y := l.lowerExpr(e.Y)
	t := l.litType(e)
	id := l.fn.NewValue(t)
	l.emit(&BinOp{ID: id, Op: e.Op, X: x, Y: y})
	return ValueOperand{ID: id}
}

// lowerExprAsOperand is the condition-position variant of lowerExpr: the
// name documents intent at if/while/for call sites.
func (l *lowerer) lowerExprAsOperand(expr ast.Expr) Operand { return l.lowerExpr(expr) }

func (l *lowerer) lowerCall(e *ast.CallExpr) Operand {
	callee, ok := e.Callee.(*ast.Ident)
	if !ok {
		return ConstOperand{Value: 0, Type: l.litType(e)}
	}
	sig, _ := l.checker.FuncSignature(callee.Name)
	var paramTypes, returnTypes []types.Type
	retType := l.litType(e)
	if sig != nil {
		paramTypes = sig.Params
		if _, isUnit := sig.Return.(*types.Unit); !isUnit {
			returnTypes = []types.Type{sig.Return}
		}
		retType = sig.Return
	}
	args := make([]Operand, len(e.Args))
	for i, a := range e.Args {
		args[i] = l.lowerExpr(a)
	}
	signature := CalleeSignature{ParamTypes: paramTypes, ReturnTypes: returnTypes}
	if _, isUnit := retType.(*types.Unit); isUnit {
		l.emit(&VoidCall{Callee: callee.Name, Args: args, Signature: signature})
		return ConstOperand{Value: 0, Type: &types.Unit{}}
	}
	id := l.fn.NewValue(retType)
	l.emit(&Call{Dests: []ValueID{id}, Callee: callee.Name, Args: args, Signature: signature})
	return ValueOperand{ID: id}
}

func (l *lowerer) lowerMember(e *ast.MemberExpr) Operand {
	base := l.lowerExpr(e.Base)
	id := l.fn.NewValue(l.litType(e))
	l.emit(&ExtractField{ID: id, Struct: base, Field: e.Field})
	return ValueOperand{ID: id}
}

func (l *lowerer) lowerIndex(e *ast.IndexExpr) Operand {
	base := l.lowerExpr(e.Base)
	lit, _ := e.Index.(*ast.IntLit)
	idx := 0
	if lit != nil {
		idx = int(lit.Value)
	}
	id := l.fn.NewValue(l.litType(e))
	l.emit(&ExtractTuple{ID: id, Tuple: base, Index: idx})
	return ValueOperand{ID: id}
}

func (l *lowerer) lowerCast(e *ast.CastExpr) Operand {
	src := l.lowerExpr(e.X)
	from := l.operandType(src)
	to := l.resolveType(e.Type, e.Span)
	id := l.fn.NewValue(to)
	l.emit(&Cast{ID: id, Src: src, From: from, To: to})
	return ValueOperand{ID: id}
}

func (l *lowerer) lowerTupleLit(e *ast.TupleLit) Operand {
	elems := make([]Operand, len(e.Elems))
	for i, el := range e.Elems {
		elems[i] = l.lowerExpr(el)
	}
	id := l.fn.NewValue(l.litType(e))
	l.emit(&MakeTuple{ID: id, Elems: elems})
	return ValueOperand{ID: id}
}

func (l *lowerer) lowerStructLit(e *ast.StructLit) Operand {
	st, _ := l.checker.Struct(e.Name)
	byName := make(map[string]ast.Expr, len(e.Fields))
	for _, f := range e.Fields {
		byName[f.Name] = f.Value
	}
	var names []string
	var vals []Operand
	if st != nil {
		names = make([]string, len(st.Fields))
		vals = make([]Operand, len(st.Fields))
		for i, f := range st.Fields {
			names[i] = f.Name
			if src, ok := byName[f.Name]; ok {
				vals[i] = l.lowerExpr(src)
			} else {
				vals[i] = ConstOperand{Value: 0, Type: f.Type}
			}
		}
	}
	id := l.fn.NewValue(l.litType(e))
	l.emit(&MakeStruct{ID: id, StructName: e.Name, FieldNames: names, FieldVals: vals})
	return ValueOperand{ID: id}
}
