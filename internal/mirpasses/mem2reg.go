package mirpasses

import (
	"sort"

	"github.com/cairo-m/cairo-m-compiler/internal/mir"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

// FunctionUsesMemory reports whether f contains any Alloca instruction.
// Mem2Reg only has work to do when this is true; the current front end
// emits no array type or address-of expression, so in practice every
// function lowered from surface Cairo-M source returns false here and
// Mem2Reg is a no-op (spec.md's own invariant: "for any function with
// only value-based aggregates, Mem2Reg is a no-op").
func FunctionUsesMemory(f *mir.Function) bool {
	for _, id := range f.BlockOrder() {
		for _, instr := range f.Blocks[id].Instrs {
			if _, ok := instr.(*mir.Alloca); ok {
				return true
			}
		}
	}
	return false
}

// Mem2Reg promotes every scalar Alloca in f that never has its address
// taken (only ever appears as the Addr of a Load or Store) to SSA form,
// inserting phi nodes at dominance frontiers in the classic Cytron
// construction (grounded on internal/mir's dominator/frontier machinery
// in dominance.go). Allocas that escape, or that reserve more than one
// slot (arrays, never indexed by a compile-time-constant-only scheme
// here), are left as memory operations for codegen to lower directly.
func Mem2Reg(f *mir.Function) {
	if !FunctionUsesMemory(f) {
		return
	}
	allocas := collectAllocas(f)
	promotable := map[mir.ValueID]*mir.Alloca{}
	for id, a := range allocas {
		if a.Count == 1 && !allocaEscapes(f, id) {
			promotable[id] = a
		}
	}
	if len(promotable) == 0 {
		return
	}

	tree := mir.ComputeDominators(f)
	frontier := mir.DominanceFrontier(f, tree)
	children := domChildren(f, tree)
	defBlocks := defBlocksPerAlloca(f, promotable)

	phis := map[mir.ValueID]map[mir.BlockID]*mir.Phi{}
	for id, a := range promotable {
		phis[id] = placePhis(f, defBlocks[id], frontier, a.Elem)
	}

	exitValues := map[mir.ValueID]map[mir.BlockID]mir.Operand{}
	for id := range promotable {
		exitValues[id] = map[mir.BlockID]mir.Operand{}
	}

	initial := map[mir.ValueID]mir.Operand{}
	for id, a := range promotable {
		initial[id] = mir.ConstOperand{Value: 0, Type: a.Elem}
	}
	renameBlock(f, f.EntryBlock, initial, children, promotable, phis, exitValues)

	preds := f.Predecessors()
	for id := range promotable {
		for block, phi := range phis[id] {
			for _, p := range preds[block] {
				v, ok := exitValues[id][p]
				if !ok {
					continue // p is itself unreachable
				}
				phi.Incoming = append(phi.Incoming, mir.PhiEdge{Pred: p, Value: v})
			}
		}
	}
}

func renameBlock(
	f *mir.Function,
	block mir.BlockID,
	incoming map[mir.ValueID]mir.Operand,
	children map[mir.BlockID][]mir.BlockID,
	promotable map[mir.ValueID]*mir.Alloca,
	phis map[mir.ValueID]map[mir.BlockID]*mir.Phi,
	exitValues map[mir.ValueID]map[mir.BlockID]mir.Operand,
) {
	cur := make(map[mir.ValueID]mir.Operand, len(incoming))
	for k, v := range incoming {
		cur[k] = v
	}
	for allocaID, byBlock := range phis {
		if phi, ok := byBlock[block]; ok {
			cur[allocaID] = mir.ValueOperand{ID: phi.ID}
		}
	}

	b := f.Blocks[block]
	kept := make([]mir.Instruction, 0, len(b.Instrs))
	for _, instr := range b.Instrs {
		switch i := instr.(type) {
		case *mir.Alloca:
			if _, ok := promotable[i.ID]; ok {
				continue
			}
		case *mir.Load:
			if addr, ok := i.Addr.(mir.ValueOperand); ok {
				if _, ok := promotable[addr.ID]; ok {
					kept = append(kept, &mir.Assign{ID: i.ID, Src: cur[addr.ID]})
					continue
				}
			}
		case *mir.Store:
			if addr, ok := i.Addr.(mir.ValueOperand); ok {
				if _, ok := promotable[addr.ID]; ok {
					cur[addr.ID] = i.Value
					continue
				}
			}
		}
		kept = append(kept, instr)
	}
	b.Instrs = kept

	for allocaID := range promotable {
		exitValues[allocaID][block] = cur[allocaID]
	}
	for _, child := range children[block] {
		renameBlock(f, child, cur, children, promotable, phis, exitValues)
	}
}

func placePhis(f *mir.Function, defBlocks []mir.BlockID, frontier map[mir.BlockID][]mir.BlockID, elem types.Type) map[mir.BlockID]*mir.Phi {
	result := map[mir.BlockID]*mir.Phi{}
	worklist := append([]mir.BlockID(nil), defBlocks...)
	for len(worklist) > 0 {
		b := worklist[0]
		worklist = worklist[1:]
		for _, d := range frontier[b] {
			if _, ok := result[d]; ok {
				continue
			}
			phi := &mir.Phi{ID: f.NewValue(elem)}
			f.Blocks[d].Instrs = append([]mir.Instruction{phi}, f.Blocks[d].Instrs...)
			result[d] = phi
			worklist = append(worklist, d)
		}
	}
	return result
}

func defBlocksPerAlloca(f *mir.Function, promotable map[mir.ValueID]*mir.Alloca) map[mir.ValueID][]mir.BlockID {
	out := map[mir.ValueID][]mir.BlockID{}
	for _, bid := range f.BlockOrder() {
		for _, instr := range f.Blocks[bid].Instrs {
			s, ok := instr.(*mir.Store)
			if !ok {
				continue
			}
			addr, ok := s.Addr.(mir.ValueOperand)
			if !ok {
				continue
			}
			if _, ok := promotable[addr.ID]; ok {
				out[addr.ID] = append(out[addr.ID], bid)
			}
		}
	}
	return out
}

func collectAllocas(f *mir.Function) map[mir.ValueID]*mir.Alloca {
	out := map[mir.ValueID]*mir.Alloca{}
	for _, bid := range f.BlockOrder() {
		for _, instr := range f.Blocks[bid].Instrs {
			if a, ok := instr.(*mir.Alloca); ok {
				out[a.ID] = a
			}
		}
	}
	return out
}

// allocaEscapes reports whether allocaID is ever used other than as the
// Addr of a direct Load or Store — e.g. passed to a call, stored as a
// value, or fed into a GetElementPtr. Any such use means the alloca must
// stay in memory.
func allocaEscapes(f *mir.Function, allocaID mir.ValueID) bool {
	for _, bid := range f.BlockOrder() {
		b := f.Blocks[bid]
		for _, instr := range b.Instrs {
			switch i := instr.(type) {
			case *mir.Alloca:
				continue
			case *mir.Load:
				continue
			case *mir.Store:
				if refersTo(i.Value, allocaID) {
					return true
				}
			default:
				for _, op := range instrOperands(instr) {
					if refersTo(op, allocaID) {
						return true
					}
				}
			}
		}
		if b.Term != nil {
			for _, op := range termOperands(b.Term) {
				if refersTo(op, allocaID) {
					return true
				}
			}
		}
	}
	return false
}

func refersTo(op mir.Operand, id mir.ValueID) bool {
	v, ok := op.(mir.ValueOperand)
	return ok && v.ID == id
}

func domChildren(f *mir.Function, tree *mir.DominatorTree) map[mir.BlockID][]mir.BlockID {
	children := map[mir.BlockID][]mir.BlockID{}
	for _, id := range f.ReachableBlocks() {
		if id == f.EntryBlock {
			continue
		}
		parent, ok := tree.IDom(id)
		if !ok {
			continue
		}
		children[parent] = append(children[parent], id)
	}
	for k := range children {
		ids := children[k]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return children
}
