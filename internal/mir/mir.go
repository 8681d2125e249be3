// Package mir implements Cairo-M's typed SSA intermediate representation
// (spec.md §3 "MIR" and §4.5/§4.6): functions over an arena of basic
// blocks, typed instructions and terminators, and the dominator-tree
// machinery φ-placement needs.
//
// Grounded on internal/core/core.go's arena-id + sum-type-via-marker-
// method IR shape (CoreNode/CoreExpr), generalized from an A-Normal-Form
// tree (recursion standing in for control flow) to an explicit
// basic-block CFG, and internal/dtree/decision_tree.go's `isX()` marker
// pattern, mirrored here as `instrNode()`/`termNode()`/`operandNode()`.
package mir

import (
	"fmt"

	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

// ValueID identifies an SSA value within one Function's arena.
type ValueID int

// BlockID identifies a basic block within one Function's arena. The
// entry block is not necessarily id 0 (spec.md §3: "a designated
// entry_block (not necessarily raw index 0)").
type BlockID int

// Operand is an instruction/terminator operand: an SSA value reference,
// a typed constant, or a reference to a function (for indirect-call-free
// Cairo-M this is only ever the direct callee of a Call instruction).
type Operand interface {
	fmt.Stringer
	operandNode()
}

// ValueOperand refers to a previously defined SSA value.
type ValueOperand struct{ ID ValueID }

func (ValueOperand) operandNode()     {}
func (o ValueOperand) String() string { return fmt.Sprintf("v%d", o.ID) }

// ConstOperand is an immediate literal with its type.
type ConstOperand struct {
	Value uint64 // also doubles as 0/1 for bool
	Type  types.Type
}

func (ConstOperand) operandNode()     {}
func (o ConstOperand) String() string { return fmt.Sprintf("%d:%s", o.Value, o.Type) }

// FuncOperand names a function by its global symbol, used only as a
// Call's callee.
type FuncOperand struct{ Name string }

func (FuncOperand) operandNode()     {}
func (o FuncOperand) String() string { return o.Name }

// CalleeSignature is embedded in every Call so later passes never need
// to query a module-level symbol table again (spec.md §4.5 "calls never
// query external databases during later phases").
type CalleeSignature struct {
	ParamTypes  []types.Type
	ReturnTypes []types.Type
}
