// Package codegen lowers an optimized internal/mir.Module to the fixed
// four-field CASM instruction encoding the Cairo-M VM executes (spec.md
// §4.7, §6.5). It is grounded on internal/link/linker.go's
// resolve-then-emit staging (collect every symbol first, only then walk
// and emit against a frozen view of it) and internal/elaborate/file.go's
// sequential per-declaration emission bookkeeping, generalized from a
// single flat instruction stream to the Prologue/Body/Epilogue/Link
// per-function state machine spec.md §4.7 names.
package codegen

import (
	"sort"

	"github.com/cairo-m/cairo-m-compiler/internal/mir"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

// LayoutKind distinguishes how a value is realized at codegen time.
type LayoutKind int

const (
	// Slot is a single-word value living at one FP-relative offset.
	Slot LayoutKind = iota
	// MultiSlot is a multi-word value (u32, tuple, struct) occupying Size
	// contiguous offsets starting at Offset.
	MultiSlot
	// Constant is a value known at codegen time — a literal, or a pointer
	// produced by Alloca/GetElementPtr (whose address is always a
	// compile-time-fixed FP offset, since the language exposes no pointer
	// arithmetic over a runtime index). ConstValue carries the literal or
	// the offset.
	Constant
	// OptimizedOut is a value that is a pure alias of another value
	// (introduced by an Assign whose source is itself a value, e.g. a
	// Mem2Reg-promoted load) — it has no storage of its own and resolves
	// to AliasOf's layout.
	OptimizedOut
)

// ValueLayout records where and how one SSA value is realized
// (spec.md §4.7 "ValueLayout per value id").
type ValueLayout struct {
	Kind       LayoutKind
	Offset     int // Slot, MultiSlot
	Size       int // MultiSlot only; 1 for Slot
	ConstValue uint64
	AliasOf    mir.ValueID // OptimizedOut only
}

// FunctionLayout is the complete frame-layout and value-placement result
// for one function, computed once before instruction selection begins.
type FunctionLayout struct {
	Values map[mir.ValueID]ValueLayout

	ReturnOffset int // base offset of the return slots, negative
	ReturnSize   int

	ScratchFelt [2]int // two single-felt scratch offsets
	ScratchWord [4]int // four word-sized scratch offsets (covers a u32 temp)

	LocalsStart int // first offset available to the caller of PlaceLocal
	FrameSize   int
}

// ResolveLayout follows OptimizedOut aliases to the underlying storage.
func (fl *FunctionLayout) ResolveLayout(id mir.ValueID) ValueLayout {
	v := fl.Values[id]
	seen := map[mir.ValueID]bool{}
	for v.Kind == OptimizedOut {
		if seen[id] {
			break // defensive: a cycle should never occur in SSA, but never hang
		}
		seen[id] = true
		id = v.AliasOf
		v = fl.Values[id]
	}
	return v
}

// ComputeLayout assigns frame offsets to every parameter, return slot,
// and SSA value of f (spec.md §4.7 phase 1).
//
// Params occupy [-(m+k+2) .. -(k+2)-1], returns occupy [-(k+2) .. -3],
// saved FP sits at -2 and the return PC at -1 — all fixed before any
// local is placed. Positive offsets open with a 2-felt + 4-word scratch
// area reserved for alias-safe expansion (spec.md §4.7 phase 3), then
// every Alloca's backing memory, then the remaining locals and
// temporaries in block order and instruction order.
func ComputeLayout(f *mir.Function) *FunctionLayout {
	m := 0
	for _, p := range f.Params {
		m += types.WordSize(p.Type)
	}
	k := types.WordSize(f.ReturnType)

	fl := &FunctionLayout{
		Values:       map[mir.ValueID]ValueLayout{},
		ReturnOffset: -(k + 2),
		ReturnSize:   k,
	}

	paramBase := -(m + k + 2)
	off := paramBase
	for _, p := range f.Params {
		size := types.WordSize(p.Type)
		fl.Values[p.Value] = place(off, size)
		off += size
	}

	fl.ScratchFelt = [2]int{0, 1}
	fl.ScratchWord = [4]int{2, 3, 4, 5}
	next := 6

	next = layoutAllocas(f, fl, next)
	next = layoutInstrValues(f, fl, next)

	fl.LocalsStart = 6
	fl.FrameSize = next
	return fl
}

func place(offset, size int) ValueLayout {
	if size <= 1 {
		return ValueLayout{Kind: Slot, Offset: offset, Size: 1}
	}
	return ValueLayout{Kind: MultiSlot, Offset: offset, Size: size}
}

// layoutAllocas reserves backing memory for every Alloca first (in block
// order, i.e. roughly declaration order) so their addresses are stable
// regardless of how later values are discovered.
func layoutAllocas(f *mir.Function, fl *FunctionLayout, next int) int {
	for _, bid := range f.BlockOrder() {
		for _, instr := range f.Blocks[bid].Instrs {
			a, ok := instr.(*mir.Alloca)
			if !ok {
				continue
			}
			if _, done := fl.Values[a.ID]; done {
				continue
			}
			size := types.WordSize(a.Elem) * a.Count
			if size < 1 {
				size = 1
			}
			fl.Values[a.ID] = ValueLayout{Kind: Constant, ConstValue: uint64(int64(next))}
			next += size
		}
	}
	return next
}

// layoutInstrValues assigns storage (or an alias/constant classification)
// to every remaining SSA-defined value, in the order instructions appear
// across the function (ascending block id, then instruction order —
// matches f.BlockOrder()'s determinism).
func layoutInstrValues(f *mir.Function, fl *FunctionLayout, next int) int {
	for _, bid := range f.BlockOrder() {
		for _, instr := range f.Blocks[bid].Instrs {
			id, ok := instr.Dest()
			if !ok {
				continue
			}
			if _, done := fl.Values[id]; done {
				continue
			}

			switch i := instr.(type) {
			case *mir.LoadConst:
				fl.Values[id] = ValueLayout{Kind: Constant, ConstValue: i.Value.Value}
				continue
			case *mir.Assign:
				if c, ok := i.Src.(mir.ConstOperand); ok {
					fl.Values[id] = ValueLayout{Kind: Constant, ConstValue: c.Value}
					continue
				}
				if v, ok := i.Src.(mir.ValueOperand); ok {
					fl.Values[id] = ValueLayout{Kind: OptimizedOut, AliasOf: v.ID}
					continue
				}
			case *mir.GetElementPtr:
				if base, ok := i.Base.(mir.ValueOperand); ok {
					baseLayout := fl.ResolveLayout(base.ID)
					if baseLayout.Kind == Constant {
						offset := int64(baseLayout.ConstValue) + int64(fieldWordOffset(i))
						fl.Values[id] = ValueLayout{Kind: Constant, ConstValue: uint64(offset)}
						continue
					}
				}
			}

			size := types.WordSize(f.ValueTypes[id])
			fl.Values[id] = place(next, size)
			next += max(size, 1)
		}
	}
	return next
}

// fieldWordOffset computes the word offset of gep.Index within its base
// memory region. GetElementPtr only ever indexes into a memory-resident
// array or an address-taken scalar (spec.md §3 invariant 4 — structs and
// tuples are SSA values manipulated through make/extract/insert, never
// memory), so every element shares Elem's type and the offset is simply
// Index*WordSize(Elem).
func fieldWordOffset(gep *mir.GetElementPtr) int {
	return gep.Index * types.WordSize(gep.Elem)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// sortedValueIDs is a small helper used by tests and printers that want
// deterministic output over the Values map.
func sortedValueIDs(fl *FunctionLayout) []mir.ValueID {
	ids := make([]mir.ValueID, 0, len(fl.Values))
	for id := range fl.Values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
