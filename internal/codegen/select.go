package codegen

import (
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/mir"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

// feltModulus is Cairo-M's base field, M31 — mirrors
// internal/mirpasses.feltModulus (spec.md §7: "Felt / M31").
const feltModulus = (1 << 31) - 1

// u32Modulus bounds u32 arithmetic (spec.md §4.3: "arithmetic on u32 is
// modulo-2^32").
const u32Modulus = 1 << 32

// funcGen holds the per-function state threaded through instruction
// selection: the frame layout, the growing instruction stream, and the
// block-id -> starting-instruction-index map Link resolves branches
// against (spec.md §4.7 phase 5).
type funcGen struct {
	f             *mir.Function
	layout        *FunctionLayout
	sink          *diagnostics.Sink
	instrs        []Instruction
	blockPC       map[mir.BlockID]int
	pending       []pendingBranch // unresolved intra-function jump/branch targets, awaiting Link
	calleeTargets []calleeRef     // unresolved call targets, awaiting whole-program Link
	watermark     int             // highest positive offset written so far, for the call-argument-in-place check (spec.md §4.7 phase 4)
}

// calleeRef records one CALL instruction's textual callee name, resolved
// to a PC once every function in the module has been laid out
// end-to-end (Program assembly, not per-function Link).
type calleeRef struct {
	instrIndex int
	name       string
}

// pendingBranch records one emitted instruction whose displacement arg
// must be patched once every block's starting PC is known.
type pendingBranch struct {
	instrIndex int
	argSlot    int // which of Arg0/Arg1/Arg2 carries the displacement
	target     mir.BlockID
	relativeTo int // the PC the displacement is measured from
}

// compiledFunction is one function's flattened output before whole-
// program Link has stitched functions together into a single Program.
type compiledFunction struct {
	name      string
	instrs    []Instruction
	callSites []calleeRef // indices into instrs, names unresolved callees
}

// compileFunction runs the Prologue -> Body -> Epilogue -> (intra-
// function) Link state machine for one function (spec.md §4.7's per-
// function state machine). Call targets are left unresolved for Program
// assembly, since they may name a function compiled later.
func compileFunction(f *mir.Function, sink *diagnostics.Sink) compiledFunction {
	g := &funcGen{
		f:       f,
		layout:  ComputeLayout(f),
		sink:    sink,
		blockPC: map[mir.BlockID]int{},
	}
	g.watermark = g.layout.LocalsStart

	// Prologue: params already live at their fixed negative offsets by
	// construction (ComputeLayout); nothing needs to be materialized
	// before the body runs except scratch slots, which need no
	// initialization (emission helpers write to them only at the point
	// of use).

	for _, bid := range f.ReachableBlocks() {
		g.blockPC[bid] = len(g.instrs)
		g.emitBlock(f.Blocks[bid])
	}

	g.link()

	if g.layout.FrameSize > maxFrameSize {
		sink.Push(diagnostics.New(diagnostics.GEN001, "codegen", diagnostics.Span{},
			"function %q: frame size %d exceeds the maximum addressable frame (%d)",
			f.Name, g.layout.FrameSize, maxFrameSize))
	}

	return compiledFunction{name: f.Name, instrs: g.instrs, callSites: g.calleeTargets}
}

// maxFrameSize bounds a single function's frame (spec.md §5: "frame
// size... bounded by u32"); kept far below 2^32 since a frame that large
// is never a legitimate compile, only a pathological or buggy input.
const maxFrameSize = 1 << 20

func (g *funcGen) emitBlock(b *mir.Block) {
	for _, instr := range b.Instrs {
		g.emitInstr(instr)
	}
	g.emitTerminator(b.Term)
}

func (g *funcGen) emit(i Instruction) int {
	g.instrs = append(g.instrs, i)
	return len(g.instrs) - 1
}

// resolve maps an operand to an FP-relative offset or an immediate.
// Constant-kind SSA values (literals, alloca addresses) and
// ConstOperands both resolve to isImm=true; everything else names a
// frame slot.
func (g *funcGen) resolve(op mir.Operand) (offsetOrImm int64, isImm bool) {
	switch o := op.(type) {
	case mir.ConstOperand:
		return int64(o.Value), true
	case mir.ValueOperand:
		vl := g.layout.ResolveLayout(o.ID)
		if vl.Kind == Constant {
			return int64(vl.ConstValue), true
		}
		return int64(vl.Offset), false
	default:
		return 0, true
	}
}

func (g *funcGen) destOffset(id mir.ValueID) int64 {
	vl := g.layout.ResolveLayout(id)
	off := int64(vl.Offset)
	size := vl.Size
	if size < 1 {
		size = 1
	}
	if int(off)+size > g.watermark {
		g.watermark = int(off) + size
	}
	return off
}

func (g *funcGen) emitInstr(instr mir.Instruction) {
	switch i := instr.(type) {
	case *mir.LoadConst, *mir.Assign:
		// Fully resolved at layout time (Constant or OptimizedOut); no
		// code to emit unless the destination is actually materialized
		// because something later needs an addressable slot for it —
		// ComputeLayout never allocates a Slot for these, so there is
		// nothing to do.
	case *mir.BinOp:
		g.emitBinOp(i)
	case *mir.UnOp:
		g.emitUnOp(i)
	case *mir.Cast:
		g.emitCast(i)
	case *mir.Alloca:
		// Backing memory was reserved by ComputeLayout; no instruction
		// needed to "allocate" a fixed frame offset.
	case *mir.GetElementPtr:
		// Constant-folded at layout time (fieldWordOffset); no runtime
		// address computation exists in this language.
	case *mir.Load:
		g.emitLoad(i)
	case *mir.Store:
		g.emitStore(i)
	case *mir.Call:
		g.emitCall(i.Callee, i.Args, i.Signature, i.Dests)
	case *mir.VoidCall:
		g.emitCall(i.Callee, i.Args, i.Signature, nil)
	case *mir.MakeTuple:
		g.emitAggregateBuild(i.ID, i.Elems)
	case *mir.ExtractTuple:
		g.emitExtractAt(i.ID, i.Tuple, tupleElemWordOffset(g.f.ValueTypes, i.Tuple, i.Index))
	case *mir.InsertTuple:
		g.emitInsertAt(i.ID, i.Tuple, i.Value, tupleElemWordOffset(g.f.ValueTypes, i.Tuple, i.Index))
	case *mir.MakeStruct:
		g.emitAggregateBuild(i.ID, i.FieldVals)
	case *mir.ExtractField:
		g.emitExtractAt(i.ID, i.Struct, structFieldWordOffset(g.f, i.Struct, i.Field))
	case *mir.InsertField:
		g.emitInsertAt(i.ID, i.Struct, i.Value, structFieldWordOffset(g.f, i.Struct, i.Field))
	case *mir.Phi:
		// Must not survive to codegen (OPT004); if this function was
		// compiled at OptLevel None/Basic on purpose (inspection tools),
		// there's nothing sound to emit, so surface it as a hard error.
		g.sink.Push(diagnostics.New(diagnostics.GEN003, "codegen", diagnostics.Span{},
			"function %q: phi node reached codegen (run the Standard optimization pipeline first)", g.f.Name))
	default:
		g.sink.Push(diagnostics.New(diagnostics.GEN003, "codegen", diagnostics.Span{},
			"function %q: no codegen rule for instruction %s", g.f.Name, instr.String()))
	}
}

// emitBinOp selects STORE_*_FP_FP / STORE_*_FP_IMM, canonicalizing a
// left-hand immediate onto the right for commutative operators and
// `>`/`>=` onto `<`/`<=` by operand swap, then synthesizes `!=` and `<=`
// from `==`/`<` plus STORE_NOT_FP (opcodes.go's documented 32-opcode
// budget).
func (g *funcGen) emitBinOp(i *mir.BinOp) {
	op, x, y := i.Op, i.X, i.Y
	if commutative(op) {
		if _, xConst := x.(mir.ConstOperand); xConst {
			if _, yConst := y.(mir.ConstOperand); !yConst {
				x, y = y, x
			}
		}
	}

	isU32 := isU32Type(g.f.ValueTypes[i.ID]) || isU32Type(g.typeOf(x)) || isU32Type(g.typeOf(y))

	negate := false
	op, x, y = canonicalizeOrdering(op, x, y)
	switch op {
	case "!=":
		op = "=="
		negate = true
	case "<=":
		op = "<"
		x, y = y, x
		negate = true
	}

	if boundaryResult, ok := foldU32Boundary(op, x, y, isU32); ok {
		g.materializeBool(i.ID, boundaryResult != negate)
		return
	}

	var fpfp, fpimm Opcode
	var ok bool
	if isU32 {
		fpfp, fpimm, ok = u32BinOpcodes(op)
	} else {
		fpfp, fpimm, ok = feltBinOpcodes(op)
	}
	if !ok {
		g.sink.Push(diagnostics.New(diagnostics.GEN003, "codegen", diagnostics.Span{},
			"function %q: no opcode for operator %q", g.f.Name, i.Op))
		return
	}

	dst := g.destOffset(i.ID)
	g.emitAliasSafe3(dst, x, y, fpfp, fpimm)

	if negate {
		g.emit(Instruction{Op: OpStoreNotFP, Arg0: dst, Arg1: dst})
	}
}

// emitAliasSafe3 emits `[dst] = [x] op [y]` (or the _IMM form when y is
// an immediate), expanding through a scratch slot whenever dst aliases
// one of its own source operands (spec.md §4.7 phase 3: "any in-place
// `[x] = [x] op y` is expanded through scratch").
func (g *funcGen) emitAliasSafe3(dst int64, x, y mir.Operand, fpfp, fpimm Opcode) {
	xOff, xImm := g.resolve(x)
	yOff, yImm := g.resolve(y)

	if !xImm && xOff == dst {
		scratch := g.scratchFor(x)
		g.emit(Instruction{Op: OpStoreDerefFP, Arg0: scratch, Arg1: xOff})
		xOff = scratch
	}
	if !yImm && yOff == dst {
		scratch := g.scratchFor(y)
		g.emit(Instruction{Op: OpStoreDerefFP, Arg0: scratch, Arg1: yOff})
		yOff = scratch
	}

	if xImm && !yImm {
		// Caller already canonicalized commutative ops so the immediate
		// sits on the right; for non-commutative ops with a left
		// immediate, fall back to materializing it into scratch so the
		// _FP_FP form still applies. The scratch slot must be neither dst
		// nor a scratch copy y already occupies.
		scratch := int64(g.layout.ScratchFelt[0])
		if scratch == dst || scratch == yOff {
			scratch = int64(g.layout.ScratchFelt[1])
		}
		g.emit(Instruction{Op: OpLoadFPImm, Arg0: scratch, Arg1: xOff})
		xOff = scratch
		xImm = false
	}

	if yImm {
		g.emit(Instruction{Op: fpimm, Arg0: dst, Arg1: xOff, Arg2: yOff})
	} else {
		g.emit(Instruction{Op: fpfp, Arg0: dst, Arg1: xOff, Arg2: yOff})
	}
}

// scratchFor picks one of the two single-felt scratch slots: slot 0,
// unless avoid itself already lives in slot 0, in which case slot 1.
// When x and y both alias dst they name the same storage, so both
// copies land in slot 0 holding the same value.
func (g *funcGen) scratchFor(avoid mir.Operand) int64 {
	if avoid != nil {
		if off, isImm := g.resolve(avoid); !isImm && off == int64(g.layout.ScratchFelt[0]) {
			return int64(g.layout.ScratchFelt[1])
		}
	}
	return int64(g.layout.ScratchFelt[0])
}

func (g *funcGen) typeOf(op mir.Operand) types.Type {
	switch o := op.(type) {
	case mir.ConstOperand:
		return o.Type
	case mir.ValueOperand:
		return g.f.ValueTypes[o.ID]
	default:
		return nil
	}
}

func isU32Type(t types.Type) bool {
	_, ok := t.(*types.U32)
	return ok
}

// u32Boundaries are the constants spec.md §4.7 phase 2 names explicitly
// for comparison-bias normalization: `{0, 1, 2^16-1, 2^16, 2^31-2,
// 2^32-1}`. Only the outright-decidable folds (comparison against the
// u32 domain's own min/max) are implemented here; the interior limb
// boundaries (2^16-1, 2^16, 2^31-2) bound the VM's range-check circuit
// for a u32 comparison gadget, which lives in the CASM ISA the VM
// interprets (spec.md §6.5, explicitly out of scope for this compiler)
// rather than in instruction selection.
const (
	u32Min = 0
	u32Max = (1 << 32) - 1
)

// foldU32Boundary reports whether op's result is a compile-time-known
// bool because one operand is a literal sitting at the u32 domain's
// boundary (spec.md example E6: `u <= 4294967295` always true, reaching
// here as `STORE_U32_MAX < u` negated by emitBinOp's `<=` synthesis). By
// the time this runs, op is always "<" or "==" (emitBinOp/emitBranchCmp
// have already reduced ">", ">=", "<=", "!=" to one of those two plus an
// operand swap and/or a negate flag), but the literal may sit on either
// side.
func foldU32Boundary(op string, x, y mir.Operand, isU32 bool) (result bool, ok bool) {
	if !isU32 || op != "<" {
		return false, false
	}
	if c, isConst := y.(mir.ConstOperand); isConst {
		if c.Value == u32Min {
			return false, true // x < 0 is never true for u32
		}
		if c.Value > u32Max {
			return true, true // x < (anything beyond the u32 domain) is always true
		}
	}
	if c, isConst := x.(mir.ConstOperand); isConst {
		if c.Value >= u32Max {
			return false, true // u32Max < y is never true; nothing exceeds it
		}
	}
	return false, false
}

func (g *funcGen) materializeBool(id mir.ValueID, v bool) {
	dst := g.destOffset(id)
	val := int64(0)
	if v {
		val = 1
	}
	g.emit(Instruction{Op: OpLoadFPImm, Arg0: dst, Arg1: val})
}

// emitUnOp selects `-x` as a multiply by -1 (mod the operand's
// modulus) and `!x` as STORE_NOT_FP — both chosen specifically to avoid
// a dedicated negate opcode (opcodes.go's 32-opcode budget).
func (g *funcGen) emitUnOp(i *mir.UnOp) {
	dst := g.destOffset(i.ID)
	xOff, xImm := g.resolve(i.X)
	switch i.Op {
	case "-":
		if isU32Type(g.f.ValueTypes[i.ID]) {
			if xImm {
				g.emit(Instruction{Op: OpLoadFPImm, Arg0: dst, Arg1: int64((u32Modulus - uint64(xOff)) % u32Modulus)})
				return
			}
			g.emit(Instruction{Op: OpStoreU32MulFPImm, Arg0: dst, Arg1: xOff, Arg2: u32Max})
			return
		}
		if xImm {
			g.emit(Instruction{Op: OpLoadFPImm, Arg0: dst, Arg1: int64((feltModulus - uint64(xOff)%feltModulus) % feltModulus)})
			return
		}
		g.emit(Instruction{Op: OpStoreMulFPImm, Arg0: dst, Arg1: xOff, Arg2: feltModulus - 1})
	case "!":
		if xImm {
			v := int64(0)
			if xOff == 0 {
				v = 1
			}
			g.emit(Instruction{Op: OpLoadFPImm, Arg0: dst, Arg1: v})
			return
		}
		g.emit(Instruction{Op: OpStoreNotFP, Arg0: dst, Arg1: xOff})
	default:
		g.sink.Push(diagnostics.New(diagnostics.GEN003, "codegen", diagnostics.Span{},
			"function %q: no opcode for unary operator %q", g.f.Name, i.Op))
	}
}

// emitCast lowers the one checked conversion the language exposes. felt
// -> u32 and u32 -> felt are both representational no-ops at the VM's
// field level (a u32 IS a felt pair / a felt whose value fits u32's
// range); the range check itself is the VM's job when it interprets the
// emitted word count, so codegen only needs to copy data between the two
// slot shapes.
func (g *funcGen) emitCast(i *mir.Cast) {
	dst := g.destOffset(i.ID)
	srcOff, srcImm := g.resolve(i.Src)
	if srcImm {
		g.emit(Instruction{Op: OpLoadFPImm, Arg0: dst, Arg1: srcOff})
		return
	}
	fromSize := types.WordSize(i.From)
	toSize := types.WordSize(i.To)
	n := fromSize
	if toSize < n {
		n = toSize
	}
	if n < 1 {
		n = 1
	}
	for w := 0; w < n; w++ {
		g.emit(Instruction{Op: OpStoreDerefFP, Arg0: dst + int64(w), Arg1: srcOff + int64(w)})
	}
	for w := n; w < toSize; w++ {
		g.emit(Instruction{Op: OpLoadFPImm, Arg0: dst + int64(w), Arg1: 0})
	}
}

func (g *funcGen) emitLoad(i *mir.Load) {
	dst := g.destOffset(i.ID)
	addrOff, _ := g.resolve(i.Addr)
	size := types.WordSize(i.Type)
	if size < 1 {
		size = 1
	}
	for w := 0; w < size; w++ {
		g.emit(Instruction{Op: OpStoreDerefFP, Arg0: dst + int64(w), Arg1: addrOff + int64(w)})
	}
}

func (g *funcGen) emitStore(i *mir.Store) {
	addrOff, _ := g.resolve(i.Addr)
	if addrOff+1 > int64(g.watermark) {
		g.watermark = int(addrOff) + 1
	}
	valOff, valImm := g.resolve(i.Value)
	size := 1
	if v, ok := i.Value.(mir.ValueOperand); ok {
		size = types.WordSize(g.f.ValueTypes[v.ID])
	}
	if size < 1 {
		size = 1
	}
	if valImm {
		g.emit(Instruction{Op: OpLoadFPImm, Arg0: addrOff, Arg1: valOff})
		return
	}
	for w := 0; w < size; w++ {
		g.emit(Instruction{Op: OpStoreDerefFP, Arg0: addrOff + int64(w), Arg1: valOff + int64(w)})
	}
}

// emitAggregateBuild materializes a MultiSlot aggregate by copying each
// element operand into its contiguous sub-offset.
func (g *funcGen) emitAggregateBuild(id mir.ValueID, elems []mir.Operand) {
	base := g.destOffset(id)
	off := int64(0)
	for _, e := range elems {
		off += g.copyInto(base+off, e)
	}
}

// copyInto writes operand e starting at dst and returns how many word
// slots it occupied.
func (g *funcGen) copyInto(dst int64, e mir.Operand) int64 {
	eOff, eImm := g.resolve(e)
	if eImm {
		g.emit(Instruction{Op: OpLoadFPImm, Arg0: dst, Arg1: eOff})
		return 1
	}
	size := int64(1)
	if v, ok := e.(mir.ValueOperand); ok {
		size = int64(types.WordSize(g.f.ValueTypes[v.ID]))
		if size < 1 {
			size = 1
		}
	}
	for w := int64(0); w < size; w++ {
		g.emit(Instruction{Op: OpStoreDerefFP, Arg0: dst + w, Arg1: eOff + w})
	}
	return size
}

func (g *funcGen) emitExtractAt(id mir.ValueID, aggregate mir.Operand, wordOffset int) {
	dst := g.destOffset(id)
	baseOff, _ := g.resolve(aggregate)
	size := types.WordSize(g.f.ValueTypes[id])
	if size < 1 {
		size = 1
	}
	for w := 0; w < size; w++ {
		g.emit(Instruction{Op: OpStoreDerefFP, Arg0: dst + int64(w), Arg1: baseOff + int64(wordOffset) + int64(w)})
	}
}

// emitInsertAt is the functional-update lowering for insert_tuple /
// insert_field: copy the whole aggregate, then overwrite the one changed
// field's slots (spec.md §4.5: InsertField/InsertTuple never mutate the
// original value).
func (g *funcGen) emitInsertAt(id mir.ValueID, aggregate, value mir.Operand, wordOffset int) {
	dst := g.destOffset(id)
	baseOff, _ := g.resolve(aggregate)
	total := types.WordSize(g.f.ValueTypes[id])
	valueSize := 1
	if v, ok := value.(mir.ValueOperand); ok {
		valueSize = types.WordSize(g.f.ValueTypes[v.ID])
		if valueSize < 1 {
			valueSize = 1
		}
	}
	for w := 0; w < total; w++ {
		if w >= wordOffset && w < wordOffset+valueSize {
			continue
		}
		g.emit(Instruction{Op: OpStoreDerefFP, Arg0: dst + int64(w), Arg1: baseOff + int64(w)})
	}
	g.copyInto(dst+int64(wordOffset), value)
}

func tupleElemWordOffset(valueTypes map[mir.ValueID]types.Type, tuple mir.Operand, index int) int {
	tt, ok := tupleTypeOf(valueTypes, tuple)
	if !ok {
		return index
	}
	off := 0
	for idx := 0; idx < index; idx++ {
		off += types.WordSize(tt.Elems[idx])
	}
	return off
}

func tupleTypeOf(valueTypes map[mir.ValueID]types.Type, op mir.Operand) (*types.Tuple, bool) {
	v, ok := op.(mir.ValueOperand)
	if !ok {
		return nil, false
	}
	tt, ok := valueTypes[v.ID].(*types.Tuple)
	return tt, ok
}

func structFieldWordOffset(f *mir.Function, structOperand mir.Operand, field string) int {
	st, ok := structTypeOf(f.ValueTypes, structOperand)
	if !ok {
		return 0
	}
	return fieldWordOffsetByName(st, field)
}

func structTypeOf(valueTypes map[mir.ValueID]types.Type, op mir.Operand) (*types.Struct, bool) {
	v, ok := op.(mir.ValueOperand)
	if !ok {
		return nil, false
	}
	st, ok := valueTypes[v.ID].(*types.Struct)
	return st, ok
}

func fieldWordOffsetByName(st *types.Struct, name string) int {
	off := 0
	for _, f := range st.Fields {
		if f.Name == name {
			return off
		}
		off += types.WordSize(f.Type)
	}
	return off
}
