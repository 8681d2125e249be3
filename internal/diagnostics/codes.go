package diagnostics

// Error code constants organized by phase, mirroring the taxonomy in
// spec.md §7. Codes are stable across compiler versions; new phases get a
// fresh prefix rather than reusing one with a different meaning.
const (
	// ============================================================
	// Manifest / project loader errors (MAN###) — spec.md §7.1
	// ============================================================

	MAN001 = "MAN001" // missing or unreadable manifest file
	MAN002 = "MAN002" // malformed TOML in manifest
	MAN003 = "MAN003" // unresolvable module path / missing source file
	MAN004 = "MAN004" // circular module dependency via `use`
	MAN005 = "MAN005" // duplicate module declared for the same path

	// ============================================================
	// Lexer errors (LEX###) — spec.md §7.2
	// ============================================================

	LEX001 = "LEX001" // unknown byte / illegal character
	LEX002 = "LEX002" // unterminated literal

	// ============================================================
	// Parser errors (PAR###) — spec.md §7.3
	// ============================================================

	PAR001 = "PAR001" // unexpected token
	PAR002 = "PAR002" // missing statement terminator `;`
	PAR003 = "PAR003" // missing closing delimiter
	PAR004 = "PAR004" // invalid function declaration syntax
	PAR005 = "PAR005" // invalid struct declaration syntax
	PAR006 = "PAR006" // invalid use-declaration syntax
	PAR007 = "PAR007" // tuple literal of arity 1 missing trailing comma
	PAR008 = "PAR008" // struct literal requires outer parens in if/while condition

	// ============================================================
	// Name resolution errors (NAM###) — spec.md §7.4
	// ============================================================

	NAM001 = "NAM001" // undeclared variable
	NAM002 = "NAM002" // duplicate definition in the same scope
	NAM003 = "NAM003" // ambiguous import (two modules export the same name)
	NAM004 = "NAM004" // wildcard import of a non-public name
	NAM005 = "NAM005" // unknown module in `use` path
	NAM006 = "NAM006" // unused variable or parameter (warning)
	NAM007 = "NAM007" // unused import (warning)

	// ============================================================
	// Type errors (TYP###) — spec.md §7.5
	// ============================================================

	TYP001 = "TYP001" // type mismatch
	TYP002 = "TYP002" // invalid operand type for operator
	TYP003 = "TYP003" // field/tuple index out of range
	TYP004 = "TYP004" // call arity mismatch
	TYP005 = "TYP005" // call argument type mismatch
	TYP006 = "TYP006" // literal out of range for target type
	TYP007 = "TYP007" // condition must be bool
	TYP008 = "TYP008" // incomplete or mistyped struct literal
	TYP009 = "TYP009" // assignment to a constant
	TYP010 = "TYP010" // division by the literal zero
	TYP090 = "TYP090" // ordering comparison on felt is not supported

	// ============================================================
	// Flow errors (FLW###) — spec.md §7.6
	// ============================================================

	FLW001 = "FLW001" // missing return on some path
	FLW002 = "FLW002" // unreachable code (warning)
	FLW003 = "FLW003" // break outside loop
	FLW004 = "FLW004" // continue outside loop

	// ============================================================
	// Lowering errors (LWR###) — spec.md §7.7
	// ============================================================

	LWR001 = "LWR001" // unsupported construct in current lowering

	// ============================================================
	// Optimize / validate internal errors (OPT###) — spec.md §7.8
	// ============================================================

	OPT001 = "OPT001" // structural invariant violation: multiple/missing terminator
	OPT002 = "OPT002" // structural invariant violation: dangling block id
	OPT003 = "OPT003" // structural invariant violation: call signature mismatch
	OPT004 = "OPT004" // structural invariant violation: phi present after SSA destruction
	OPT005 = "OPT005" // structural invariant violation: return arity/type mismatch

	// ============================================================
	// Codegen errors (GEN###) — spec.md §7.9
	// ============================================================

	GEN001 = "GEN001" // frame overflow
	GEN002 = "GEN002" // unresolved label
	GEN003 = "GEN003" // incompatible ABI constraint (aliasing could not be resolved)
)

// CodeInfo describes an error code for tooling and documentation.
type CodeInfo struct {
	Code        string
	Phase       string
	Category    string
	Description string
}

// Registry maps every stable code to its descriptive metadata. This is the
// "error codebook" spec.md §9's open questions ask implementations to
// document choices in.
var Registry = map[string]CodeInfo{
	MAN001: {MAN001, "manifest", "io", "Missing or unreadable manifest file"},
	MAN002: {MAN002, "manifest", "syntax", "Malformed TOML in manifest"},
	MAN003: {MAN003, "manifest", "resolution", "Unresolvable module path"},
	MAN004: {MAN004, "manifest", "dependency", "Circular module dependency"},
	MAN005: {MAN005, "manifest", "namespace", "Duplicate module declaration"},

	LEX001: {LEX001, "lexer", "syntax", "Unknown character"},
	LEX002: {LEX002, "lexer", "syntax", "Unterminated literal"},

	PAR001: {PAR001, "parser", "syntax", "Unexpected token"},
	PAR002: {PAR002, "parser", "syntax", "Missing statement terminator"},
	PAR003: {PAR003, "parser", "syntax", "Missing closing delimiter"},
	PAR004: {PAR004, "parser", "syntax", "Invalid function declaration"},
	PAR005: {PAR005, "parser", "syntax", "Invalid struct declaration"},
	PAR006: {PAR006, "parser", "syntax", "Invalid use declaration"},
	PAR007: {PAR007, "parser", "syntax", "Tuple literal of arity 1 needs a trailing comma"},
	PAR008: {PAR008, "parser", "syntax", "Struct literal needs outer parens in this position"},

	NAM001: {NAM001, "name", "scope", "Undeclared variable"},
	NAM002: {NAM002, "name", "scope", "Duplicate definition"},
	NAM003: {NAM003, "name", "import", "Ambiguous import"},
	NAM004: {NAM004, "name", "import", "Wildcard import of non-public name"},
	NAM005: {NAM005, "name", "import", "Unknown module"},
	NAM006: {NAM006, "name", "unused", "Unused variable or parameter"},
	NAM007: {NAM007, "name", "unused", "Unused import"},

	TYP001: {TYP001, "typecheck", "mismatch", "Type mismatch"},
	TYP002: {TYP002, "typecheck", "operator", "Invalid operand type for operator"},
	TYP003: {TYP003, "typecheck", "index", "Field or tuple index out of range"},
	TYP004: {TYP004, "typecheck", "call", "Call arity mismatch"},
	TYP005: {TYP005, "typecheck", "call", "Call argument type mismatch"},
	TYP006: {TYP006, "typecheck", "literal", "Literal out of range for target type"},
	TYP007: {TYP007, "typecheck", "condition", "Condition must be bool"},
	TYP008: {TYP008, "typecheck", "struct", "Incomplete or mistyped struct literal"},
	TYP009: {TYP009, "typecheck", "const", "Assignment to a constant"},
	TYP010: {TYP010, "typecheck", "arithmetic", "Division by the literal zero"},
	TYP090: {TYP090, "typecheck", "operator", "Ordering comparison on felt is not supported"},

	FLW001: {FLW001, "flow", "return", "Function doesn't return on all paths"},
	FLW002: {FLW002, "flow", "reachability", "Unreachable code"},
	FLW003: {FLW003, "flow", "loop", "break outside loop"},
	FLW004: {FLW004, "flow", "loop", "continue outside loop"},

	LWR001: {LWR001, "lower", "unsupported", "Unsupported construct"},

	OPT001: {OPT001, "validate", "structure", "Block must end with exactly one terminator"},
	OPT002: {OPT002, "validate", "structure", "Terminator targets a nonexistent block"},
	OPT003: {OPT003, "validate", "structure", "Call signature arity mismatch"},
	OPT004: {OPT004, "validate", "structure", "Phi node survived SSA destruction"},
	OPT005: {OPT005, "validate", "structure", "Return arity/type mismatch"},

	GEN001: {GEN001, "codegen", "frame", "Frame size exceeds addressable range"},
	GEN002: {GEN002, "codegen", "label", "Unresolved label"},
	GEN003: {GEN003, "codegen", "abi", "Could not satisfy alias-safety constraint"},
}

// Lookup returns the registry entry for a code, if known.
func Lookup(code string) (CodeInfo, bool) {
	info, ok := Registry[code]
	return info, ok
}
