package mir

import (
	"fmt"
	"strings"

	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

// Instruction is one non-terminating operation in a Block. Every
// instruction that produces a value reports it via Dest; void-effect
// instructions (Store, VoidCall) report ok=false.
type Instruction interface {
	fmt.Stringer
	Dest() (ValueID, bool)
	instrNode()
}

// BinOp is an arithmetic/bitwise/compare operator on felt/u32/bool.
type BinOp struct {
	ID   ValueID
	Op   string
	X, Y Operand
}

func (i *BinOp) instrNode()            {}
func (i *BinOp) Dest() (ValueID, bool) { return i.ID, true }
func (i *BinOp) String() string        { return fmt.Sprintf("v%d = %s %s %s", i.ID, i.X, i.Op, i.Y) }

// UnOp is a unary operator (`-`, `!`).
type UnOp struct {
	ID ValueID
	Op string
	X  Operand
}

func (i *UnOp) instrNode()            {}
func (i *UnOp) Dest() (ValueID, bool) { return i.ID, true }
func (i *UnOp) String() string        { return fmt.Sprintf("v%d = %s%s", i.ID, i.Op, i.X) }

// LoadConst materializes a literal into a fresh SSA value.
type LoadConst struct {
	ID    ValueID
	Value ConstOperand
}

func (i *LoadConst) instrNode()            {}
func (i *LoadConst) Dest() (ValueID, bool) { return i.ID, true }
func (i *LoadConst) String() string        { return fmt.Sprintf("v%d = const %s", i.ID, i.Value) }

// Assign copies an operand into a fresh SSA value (used for e.g.
// parameter binding and trivial renames pre-Mem2Reg).
type Assign struct {
	ID  ValueID
	Src Operand
}

func (i *Assign) instrNode()            {}
func (i *Assign) Dest() (ValueID, bool) { return i.ID, true }
func (i *Assign) String() string        { return fmt.Sprintf("v%d = %s", i.ID, i.Src) }

// Alloca reserves Count contiguous slots of Elem on the stack, for
// arrays or explicitly address-taken locals only (spec.md §3 invariant
// 4: aggregate memory load/store exist only for those two cases).
type Alloca struct {
	ID    ValueID
	Elem  types.Type
	Count int
}

func (i *Alloca) instrNode()            {}
func (i *Alloca) Dest() (ValueID, bool) { return i.ID, true }
func (i *Alloca) String() string        { return fmt.Sprintf("v%d = alloca %s[%d]", i.ID, i.Elem, i.Count) }

// GetElementPtr computes a typed pointer to one element/field of a
// memory-resident aggregate.
type GetElementPtr struct {
	ID    ValueID
	Base  Operand
	Index int // element index (array subscript, tuple position, or struct field index)
	Elem  types.Type
}

func (i *GetElementPtr) instrNode()            {}
func (i *GetElementPtr) Dest() (ValueID, bool) { return i.ID, true }
func (i *GetElementPtr) String() string {
	return fmt.Sprintf("v%d = gep %s[%d] : %s", i.ID, i.Base, i.Index, i.Elem)
}

// Load reads Type from Addr.
type Load struct {
	ID   ValueID
	Addr Operand
	Type types.Type
}

func (i *Load) instrNode()            {}
func (i *Load) Dest() (ValueID, bool) { return i.ID, true }
func (i *Load) String() string        { return fmt.Sprintf("v%d = load %s", i.ID, i.Addr) }

// Store writes Value to Addr; it produces no SSA value.
type Store struct {
	Addr  Operand
	Value Operand
}

func (i *Store) instrNode()            {}
func (i *Store) Dest() (ValueID, bool) { return 0, false }
func (i *Store) String() string        { return fmt.Sprintf("store %s, %s", i.Addr, i.Value) }

// Cast is the one checked conversion the language exposes (felt<->u32).
type Cast struct {
	ID   ValueID
	Src  Operand
	From types.Type
	To   types.Type
}

func (i *Cast) instrNode()            {}
func (i *Cast) Dest() (ValueID, bool) { return i.ID, true }
func (i *Cast) String() string        { return fmt.Sprintf("v%d = cast %s to %s", i.ID, i.Src, i.To) }

// Call invokes a function, binding its (possibly multiple) results to
// Dests. Signature travels with the instruction so later passes never
// need to re-resolve the callee (spec.md §4.5).
type Call struct {
	Dests     []ValueID
	Callee    string
	Args      []Operand
	Signature CalleeSignature
}

func (i *Call) instrNode() {}
func (i *Call) Dest() (ValueID, bool) {
	if len(i.Dests) == 1 {
		return i.Dests[0], true
	}
	return 0, false
}
func (i *Call) String() string {
	args := make([]string, len(i.Args))
	for idx, a := range i.Args {
		args[idx] = a.String()
	}
	dests := make([]string, len(i.Dests))
	for idx, d := range i.Dests {
		dests[idx] = fmt.Sprintf("v%d", d)
	}
	lhs := ""
	if len(dests) > 0 {
		lhs = strings.Join(dests, ", ") + " = "
	}
	return fmt.Sprintf("%scall %s(%s)", lhs, i.Callee, strings.Join(args, ", "))
}

// VoidCall invokes a function whose return type is unit, producing no
// SSA value.
type VoidCall struct {
	Callee    string
	Args      []Operand
	Signature CalleeSignature
}

func (i *VoidCall) instrNode()            {}
func (i *VoidCall) Dest() (ValueID, bool) { return 0, false }
func (i *VoidCall) String() string {
	args := make([]string, len(i.Args))
	for idx, a := range i.Args {
		args[idx] = a.String()
	}
	return fmt.Sprintf("call %s(%s)", i.Callee, strings.Join(args, ", "))
}

// PhiEdge is one predecessor->value mapping of a Phi.
type PhiEdge struct {
	Pred  BlockID
	Value Operand
}

// Phi selects among its incoming values based on the predecessor the
// block was entered from. Must not exist after SSA destruction
// (spec.md §3 invariant 2).
type Phi struct {
	ID       ValueID
	Incoming []PhiEdge
}

func (i *Phi) instrNode()            {}
func (i *Phi) Dest() (ValueID, bool) { return i.ID, true }
func (i *Phi) String() string {
	parts := make([]string, len(i.Incoming))
	for idx, e := range i.Incoming {
		parts[idx] = fmt.Sprintf("b%d: %s", e.Pred, e.Value)
	}
	return fmt.Sprintf("v%d = phi [%s]", i.ID, strings.Join(parts, ", "))
}

// MakeTuple builds a tuple SSA value from its element operands.
type MakeTuple struct {
	ID    ValueID
	Elems []Operand
}

func (i *MakeTuple) instrNode()            {}
func (i *MakeTuple) Dest() (ValueID, bool) { return i.ID, true }
func (i *MakeTuple) String() string {
	parts := make([]string, len(i.Elems))
	for idx, e := range i.Elems {
		parts[idx] = e.String()
	}
	return fmt.Sprintf("v%d = make_tuple(%s)", i.ID, strings.Join(parts, ", "))
}

// ExtractTuple reads one element out of a tuple SSA value.
type ExtractTuple struct {
	ID    ValueID
	Tuple Operand
	Index int
}

func (i *ExtractTuple) instrNode()            {}
func (i *ExtractTuple) Dest() (ValueID, bool) { return i.ID, true }
func (i *ExtractTuple) String() string {
	return fmt.Sprintf("v%d = extract_tuple(%s, %d)", i.ID, i.Tuple, i.Index)
}

// InsertTuple builds a new tuple SSA value equal to Tuple except Index
// is replaced by Value (functional update, never a mutation).
type InsertTuple struct {
	ID    ValueID
	Tuple Operand
	Index int
	Value Operand
}

func (i *InsertTuple) instrNode()            {}
func (i *InsertTuple) Dest() (ValueID, bool) { return i.ID, true }
func (i *InsertTuple) String() string {
	return fmt.Sprintf("v%d = insert_tuple(%s, %d, %s)", i.ID, i.Tuple, i.Index, i.Value)
}

// MakeStruct builds a struct SSA value from its named field operands.
type MakeStruct struct {
	ID         ValueID
	StructName string
	FieldNames []string // parallel to FieldVals, in declaration order
	FieldVals  []Operand
}

func (i *MakeStruct) instrNode()            {}
func (i *MakeStruct) Dest() (ValueID, bool) { return i.ID, true }
func (i *MakeStruct) String() string {
	parts := make([]string, len(i.FieldNames))
	for idx := range i.FieldNames {
		parts[idx] = fmt.Sprintf("%s: %s", i.FieldNames[idx], i.FieldVals[idx])
	}
	return fmt.Sprintf("v%d = make_struct %s{%s}", i.ID, i.StructName, strings.Join(parts, ", "))
}

// ExtractField reads one named field out of a struct SSA value.
type ExtractField struct {
	ID     ValueID
	Struct Operand
	Field  string
}

func (i *ExtractField) instrNode()            {}
func (i *ExtractField) Dest() (ValueID, bool) { return i.ID, true }
func (i *ExtractField) String() string {
	return fmt.Sprintf("v%d = extract_field(%s, %q)", i.ID, i.Struct, i.Field)
}

// InsertField builds a new struct SSA value equal to Struct except Field
// is replaced by Value. This is how `p.x = v;` on an SSA-valued struct
// variable is lowered (spec.md §4.5: "rebinds the variable to
// insert_field(old, name, new_value)").
type InsertField struct {
	ID     ValueID
	Struct Operand
	Field  string
	Value  Operand
}

func (i *InsertField) instrNode()            {}
func (i *InsertField) Dest() (ValueID, bool) { return i.ID, true }
func (i *InsertField) String() string {
	return fmt.Sprintf("v%d = insert_field(%s, %q, %s)", i.ID, i.Struct, i.Field, i.Value)
}

// Terminator ends a Block. Every Block has exactly one (spec.md §3
// invariant 1).
type Terminator interface {
	fmt.Stringer
	Successors() []BlockID
	termNode()
}

// Jump is an unconditional branch.
type Jump struct{ Target BlockID }

func (t *Jump) termNode()             {}
func (t *Jump) Successors() []BlockID { return []BlockID{t.Target} }
func (t *Jump) String() string        { return fmt.Sprintf("jump b%d", t.Target) }

// Branch is a conditional branch on a bool SSA value.
type Branch struct {
	Cond       Operand
	Then, Else BlockID
}

func (t *Branch) termNode()             {}
func (t *Branch) Successors() []BlockID { return []BlockID{t.Then, t.Else} }
func (t *Branch) String() string        { return fmt.Sprintf("branch %s, b%d, b%d", t.Cond, t.Then, t.Else) }

// BranchCmp is Branch fused with its feeding comparison, produced by
// FuseCmpBranch (spec.md §4.6 step 4).
type BranchCmp struct {
	Cmp        string
	LHS, RHS   Operand
	Then, Else BlockID
}

func (t *BranchCmp) termNode()             {}
func (t *BranchCmp) Successors() []BlockID { return []BlockID{t.Then, t.Else} }
func (t *BranchCmp) String() string {
	return fmt.Sprintf("branch_cmp %s %s %s, b%d, b%d", t.LHS, t.Cmp, t.RHS, t.Then, t.Else)
}

// Return exits the function with Values, matching the function's return
// signature in count and type (spec.md §3 invariant 5).
type Return struct{ Values []Operand }

func (t *Return) termNode()             {}
func (t *Return) Successors() []BlockID { return nil }
func (t *Return) String() string {
	parts := make([]string, len(t.Values))
	for i, v := range t.Values {
		parts[i] = v.String()
	}
	return fmt.Sprintf("return %s", strings.Join(parts, ", "))
}

// Unreachable marks a block that control flow provably never reaches.
type Unreachable struct{}

func (t *Unreachable) termNode()             {}
func (t *Unreachable) Successors() []BlockID { return nil }
func (t *Unreachable) String() string        { return "unreachable" }
