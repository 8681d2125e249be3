package mirpasses

import (
	"github.com/cairo-m/cairo-m-compiler/internal/mir"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

// feltModulus is Cairo-M's base field, M31 (spec.md §7: "Felt / M31: field
// element modulo 2³¹−1").
const feltModulus = (1 << 31) - 1

// PreOpt runs spec.md §4.6 step 1 over f: local dead instruction
// elimination, aggregate peepholes, and constant folding of pure binary
// ops. It re-runs to a local fixpoint since one fold can expose another
// (e.g. folding a BinOp into a constant can turn its consuming
// extract_tuple into a foldable peephole too).
//
// Dead-store elimination is deliberately not part of this pass (spec.md
// §4.6 step 1: "disabled in the general pipeline... only safe when no GEP
// aliasing"); Store survives every PreOpt round regardless of use count.
func PreOpt(f *mir.Function) {
	for {
		if !preOptRound(f) {
			return
		}
	}
}

func preOptRound(f *mir.Function) bool {
	defs := valueDefs(f)
	changed := false
	for _, id := range f.BlockOrder() {
		b := f.Blocks[id]
		var kept []mir.Instruction
		for _, instr := range b.Instrs {
			folded := foldInstr(f, instr, defs)
			if folded != instr {
				changed = true
			}
			if folded == nil {
				continue // dead instruction, dropped
			}
			kept = append(kept, folded)
		}
		b.Instrs = kept
	}
	return changed
}

// foldInstr returns instr unchanged, a folded replacement with the same
// Dest id (so existing ValueOperand references stay valid), or nil to
// drop a side-effect-free instruction whose result nothing uses.
func foldInstr(f *mir.Function, instr mir.Instruction, defs map[mir.ValueID]mir.Instruction) mir.Instruction {
	instr = foldPeephole(f, instr, defs)
	if hasSideEffect(instr) {
		return instr
	}
	if _, hasDest := instr.Dest(); hasDest && !valueUsedAnywhere(f, instr) {
		return nil
	}
	return instr
}

func foldPeephole(f *mir.Function, instr mir.Instruction, defs map[mir.ValueID]mir.Instruction) mir.Instruction {
	switch i := instr.(type) {
	case *mir.BinOp:
		if v, t, ok := foldConstBinOp(i.Op, i.X, i.Y, f.ValueTypes[i.ID]); ok {
			return &mir.LoadConst{ID: i.ID, Value: mir.ConstOperand{Value: v, Type: t}}
		}
	case *mir.UnOp:
		if v, t, ok := foldConstUnOp(i.Op, i.X, f.ValueTypes[i.ID]); ok {
			return &mir.LoadConst{ID: i.ID, Value: mir.ConstOperand{Value: v, Type: t}}
		}
	case *mir.ExtractTuple:
		if def, ok := asDefOf(i.Tuple, defs); ok {
			if mt, ok := def.(*mir.MakeTuple); ok && i.Index < len(mt.Elems) {
				return &mir.Assign{ID: i.ID, Src: mt.Elems[i.Index]}
			}
		}
	case *mir.ExtractField:
		if def, ok := asDefOf(i.Struct, defs); ok {
			if ms, ok := def.(*mir.MakeStruct); ok {
				for idx, name := range ms.FieldNames {
					if name == i.Field {
						return &mir.Assign{ID: i.ID, Src: ms.FieldVals[idx]}
					}
				}
			}
		}
	case *mir.InsertField:
		if def, ok := asDefOf(i.Struct, defs); ok {
			if ms, ok := def.(*mir.MakeStruct); ok {
				names := append([]string(nil), ms.FieldNames...)
				vals := append([]mir.Operand(nil), ms.FieldVals...)
				for idx, name := range names {
					if name == i.Field {
						vals[idx] = i.Value
						return &mir.MakeStruct{ID: i.ID, StructName: ms.StructName, FieldNames: names, FieldVals: vals}
					}
				}
			}
		}
	case *mir.InsertTuple:
		if def, ok := asDefOf(i.Tuple, defs); ok {
			if mt, ok := def.(*mir.MakeTuple); ok && i.Index < len(mt.Elems) {
				elems := append([]mir.Operand(nil), mt.Elems...)
				elems[i.Index] = i.Value
				return &mir.MakeTuple{ID: i.ID, Elems: elems}
			}
		}
	}
	return instr
}

// valueUsedAnywhere is a conservative, whole-function liveness check used
// only by PreOpt's own local DCE; the dedicated DCE pass (post SSA
// destruction) does the thorough global sweep.
func valueUsedAnywhere(f *mir.Function, instr mir.Instruction) bool {
	id, ok := instr.Dest()
	if !ok {
		return true
	}
	for _, bid := range f.BlockOrder() {
		b := f.Blocks[bid]
		for _, other := range b.Instrs {
			if other == instr {
				continue
			}
			for _, op := range instrOperands(other) {
				if v, ok := op.(mir.ValueOperand); ok && v.ID == id {
					return true
				}
			}
		}
		if b.Term != nil {
			for _, op := range termOperands(b.Term) {
				if v, ok := op.(mir.ValueOperand); ok && v.ID == id {
					return true
				}
			}
		}
	}
	return false
}

func foldConstUnOp(op string, x mir.Operand, resultType types.Type) (uint64, types.Type, bool) {
	c, ok := x.(mir.ConstOperand)
	if !ok {
		return 0, nil, false
	}
	switch op {
	case "-":
		return foldNegate(c.Value, resultType), resultType, true
	case "!":
		if c.Value == 0 {
			return 1, resultType, true
		}
		return 0, resultType, true
	}
	return 0, nil, false
}

func foldNegate(v uint64, t types.Type) uint64 {
	switch t.(type) {
	case *types.Felt:
		return (feltModulus - v%feltModulus) % feltModulus
	case *types.U32:
		return uint64(uint32(-int32(uint32(v))))
	default:
		return v
	}
}

// foldConstBinOp folds a BinOp over two constant operands. felt division
// and modulo are deliberately left unfolded (field division needs a
// modular inverse and this pass doesn't carry one); every other operator
// is folded for felt, u32, and bool.
func foldConstBinOp(op string, x, y mir.Operand, resultType types.Type) (uint64, types.Type, bool) {
	cx, ok := x.(mir.ConstOperand)
	if !ok {
		return 0, nil, false
	}
	cy, ok := y.(mir.ConstOperand)
	if !ok {
		return 0, nil, false
	}

	switch op {
	case "&&":
		return boolVal(cx.Value != 0 && cy.Value != 0), &types.Bool{}, true
	case "||":
		return boolVal(cx.Value != 0 || cy.Value != 0), &types.Bool{}, true
	}

	switch cx.Type.(type) {
	case *types.U32:
		a, b := uint32(cx.Value), uint32(cy.Value)
		switch op {
		case "+":
			return uint64(a + b), &types.U32{}, true
		case "-":
			return uint64(a - b), &types.U32{}, true
		case "*":
			return uint64(a * b), &types.U32{}, true
		case "/":
			if b == 0 {
				return 0, nil, false
			}
			return uint64(a / b), &types.U32{}, true
		case "%":
			if b == 0 {
				return 0, nil, false
			}
			return uint64(a % b), &types.U32{}, true
		case "==":
			return boolVal(a == b), &types.Bool{}, true
		case "!=":
			return boolVal(a != b), &types.Bool{}, true
		case "<":
			return boolVal(a < b), &types.Bool{}, true
		case ">":
			return boolVal(a > b), &types.Bool{}, true
		case "<=":
			return boolVal(a <= b), &types.Bool{}, true
		case ">=":
			return boolVal(a >= b), &types.Bool{}, true
		}
	case *types.Felt:
		a, b := cx.Value%feltModulus, cy.Value%feltModulus
		switch op {
		case "+":
			return (a + b) % feltModulus, &types.Felt{}, true
		case "-":
			return ((a-b)%feltModulus + feltModulus) % feltModulus, &types.Felt{}, true
		case "*":
			return mulModFelt(a, b), &types.Felt{}, true
		case "==":
			return boolVal(a == b), &types.Bool{}, true
		case "!=":
			return boolVal(a != b), &types.Bool{}, true
		}
	case *types.Bool:
		a, b := cx.Value != 0, cy.Value != 0
		switch op {
		case "==":
			return boolVal(a == b), &types.Bool{}, true
		case "!=":
			return boolVal(a != b), &types.Bool{}, true
		}
	}
	return 0, nil, false
}

func mulModFelt(a, b uint64) uint64 {
	// a, b < 2^31 so a*b fits in 62 bits, well within uint64.
	return (a * b) % feltModulus
}

func boolVal(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
