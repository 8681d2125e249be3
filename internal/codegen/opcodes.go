package codegen

import (
	"encoding/json"

	"github.com/cairo-m/cairo-m-compiler/internal/mir"
)

// Opcode is one of the CASM VM's 32 fixed instructions (spec.md §4.7
// phase 2, §6.5). The VM that executes these is out of scope for this
// compiler; codegen's only job is to emit the correct fixed four-field
// encoding. The set below is a concrete instantiation of spec.md's
// illustrative opcode list: unary negate folds into a multiply by -1
// (mod the felt modulus, or mod 2^32 for u32 — see emitUnOp), and
// `!=`/`<=`/`>=` are synthesized from `==`/`<` plus STORE_NOT_FP rather
// than getting dedicated opcodes, which is what keeps the total at 32
// while still covering every surface operator (see DESIGN.md's C10
// entry).
type Opcode string

const (
	OpStoreDerefFP Opcode = "STORE_DEREF_FP" // [dst] = [src]; also used as a plain register-to-register copy

	OpStoreAddFPImm Opcode = "STORE_ADD_FP_IMM"
	OpStoreAddFPFP  Opcode = "STORE_ADD_FP_FP"
	OpStoreSubFPImm Opcode = "STORE_SUB_FP_IMM"
	OpStoreSubFPFP  Opcode = "STORE_SUB_FP_FP"
	OpStoreMulFPImm Opcode = "STORE_MUL_FP_IMM"
	OpStoreMulFPFP  Opcode = "STORE_MUL_FP_FP"
	OpStoreDivFPImm Opcode = "STORE_DIV_FP_IMM"
	OpStoreDivFPFP  Opcode = "STORE_DIV_FP_FP"
	OpStoreEqFPImm  Opcode = "STORE_EQ_FP_IMM"
	OpStoreEqFPFP   Opcode = "STORE_EQ_FP_FP"
	OpStoreNotFP    Opcode = "STORE_NOT_FP" // [dst] = ([src] == 0) ? 1 : 0

	OpStoreU32AddFPImm Opcode = "STORE_U32_ADD_FP_IMM"
	OpStoreU32AddFPFP  Opcode = "STORE_U32_ADD_FP_FP"
	OpStoreU32SubFPImm Opcode = "STORE_U32_SUB_FP_IMM"
	OpStoreU32SubFPFP  Opcode = "STORE_U32_SUB_FP_FP"
	OpStoreU32MulFPImm Opcode = "STORE_U32_MUL_FP_IMM"
	OpStoreU32MulFPFP  Opcode = "STORE_U32_MUL_FP_FP"
	OpStoreU32DivFPImm Opcode = "STORE_U32_DIV_FP_IMM"
	OpStoreU32DivFPFP  Opcode = "STORE_U32_DIV_FP_FP"
	OpStoreU32ModFPImm Opcode = "STORE_U32_MOD_FP_IMM"
	OpStoreU32ModFPFP  Opcode = "STORE_U32_MOD_FP_FP"
	OpStoreU32EqFPImm  Opcode = "STORE_U32_EQ_FP_IMM"
	OpStoreU32EqFPFP   Opcode = "STORE_U32_EQ_FP_FP"
	OpStoreU32LtFPImm  Opcode = "STORE_U32_LT_FP_IMM"
	OpStoreU32LtFPFP   Opcode = "STORE_U32_LT_FP_FP"

	OpLoadFPImm  Opcode = "LOAD_FP_IMM"  // [dst] = imm
	OpStoreFPImm Opcode = "STORE_FP_IMM" // alias of LoadFPImm at the instruction-selection level; kept distinct for readability of emitted programs

	OpCall     Opcode = "CALL"
	OpRet      Opcode = "RET"
	OpJumpImm  Opcode = "JUMP_IMM"
	OpJnzFPImm Opcode = "JNZ_FP_IMM"
)

// feltBinOpcodes maps a felt-typed `==`/`+`/`-`/`*`/`/` BinOp to its
// fp-fp and fp-imm opcode pair. Ordering comparisons never reach here —
// the type checker rejects them on felt (TYP090).
func feltBinOpcodes(op string) (fpfp, fpimm Opcode, ok bool) {
	switch op {
	case "+":
		return OpStoreAddFPFP, OpStoreAddFPImm, true
	case "-":
		return OpStoreSubFPFP, OpStoreSubFPImm, true
	case "*":
		return OpStoreMulFPFP, OpStoreMulFPImm, true
	case "/":
		return OpStoreDivFPFP, OpStoreDivFPImm, true
	case "==":
		return OpStoreEqFPFP, OpStoreEqFPImm, true
	default:
		return "", "", false
	}
}

// u32BinOpcodes maps a u32-typed BinOp to its fp-fp/fp-imm pair.
// `>`/`>=` are handled upstream by canonicalizeOrdering (operand swap
// onto `<`/`<=`); `<=` and `!=` are synthesized from `<`/`==` plus
// STORE_NOT_FP by emitBinOp, so they have no entry here.
func u32BinOpcodes(op string) (fpfp, fpimm Opcode, ok bool) {
	switch op {
	case "+":
		return OpStoreU32AddFPFP, OpStoreU32AddFPImm, true
	case "-":
		return OpStoreU32SubFPFP, OpStoreU32SubFPImm, true
	case "*":
		return OpStoreU32MulFPFP, OpStoreU32MulFPImm, true
	case "/":
		return OpStoreU32DivFPFP, OpStoreU32DivFPImm, true
	case "%":
		return OpStoreU32ModFPFP, OpStoreU32ModFPImm, true
	case "==":
		return OpStoreU32EqFPFP, OpStoreU32EqFPImm, true
	case "<":
		return OpStoreU32LtFPFP, OpStoreU32LtFPImm, true
	default:
		return "", "", false
	}
}

// commutative reports whether op's operands may be freely swapped — used
// to canonicalize a left-hand immediate onto the right (spec.md §4.7
// phase 2: "Commutative operations canonicalize immediates to the
// right").
func commutative(op string) bool {
	switch op {
	case "+", "*", "==", "!=":
		return true
	default:
		return false
	}
}

// canonicalizeOrdering rewrites `>`/`>=` into `<`/`<=` by swapping
// operands (`a > b` == `b < a`), since `>`/`>=` have no opcodes; `<` has
// one and `<=` is synthesized from it by emitBinOp/emitBranchCmp.
func canonicalizeOrdering(op string, x, y mir.Operand) (string, mir.Operand, mir.Operand) {
	switch op {
	case ">":
		return "<", y, x
	case ">=":
		return "<=", y, x
	default:
		return op, x, y
	}
}

// Instruction is one emitted machine instruction in the fixed four-field
// encoding `[opcode, arg0, arg1, arg2]` (spec.md §4.7 phase 2). The
// meaning of each arg is opcode-dependent (FP offset, immediate, or PC
// displacement); interpreting them is the VM's job, not this package's.
type Instruction struct {
	Op   Opcode
	Arg0 int64
	Arg1 int64
	Arg2 int64
}

// MarshalJSON renders an Instruction as the 4-tuple `[opcode, arg0, arg1,
// arg2]` spec.md §6.4 defines for the JSON artifact, rather than the
// default `{"Op":...}` object encoding.
func (i Instruction) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]interface{}{i.Op, i.Arg0, i.Arg1, i.Arg2})
}
