package sema

import "github.com/cairo-m/cairo-m-compiler/internal/ast"

// SymbolKind classifies what a Symbol names.
type SymbolKind int

const (
	SymFunc SymbolKind = iota
	SymStruct
	SymConst
	SymParam
	SymLocal
	SymImport
)

func (k SymbolKind) String() string {
	switch k {
	case SymFunc:
		return "function"
	case SymStruct:
		return "struct"
	case SymConst:
		return "const"
	case SymParam:
		return "parameter"
	case SymLocal:
		return "local"
	case SymImport:
		return "import"
	default:
		return "symbol"
	}
}

// Symbol is one named, declared entity: a function, struct, constant,
// parameter, local binding, or imported name.
type Symbol struct {
	ID      int
	Name    string
	Kind    SymbolKind
	Span    ast.Span
	Mutable bool
	Decl    ast.Node // the declaring AST node (FuncDecl, Param, LetStmt, ...)

	// Module is the defining module's path for cross-module symbols
	// (imports and their targets); empty for symbols local to this file.
	Module string
}

// symbolTable owns every Symbol created while building an Index.
type symbolTable struct {
	symbols []*Symbol
}

func (t *symbolTable) define(name string, kind SymbolKind, span ast.Span, decl ast.Node) *Symbol {
	sym := &Symbol{ID: len(t.symbols), Name: name, Kind: kind, Span: span, Decl: decl}
	t.symbols = append(t.symbols, sym)
	return sym
}
