package sema

import (
	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
)

// Use is one identifier reference encountered while visiting a function
// body. Symbol is -1 when resolution failed (an NAM001 diagnostic is
// also pushed to the sink in that case).
type Use struct {
	Name    string
	Span    ast.Span
	ScopeID int
	Symbol  int
}

// Index is the semantic index for one file: its scope tree, symbol
// table, the scope every expression was evaluated in, every identifier
// use and its resolution, and the reachability of every statement.
type Index struct {
	Scopes        []*Scope
	Symbols       []*Symbol
	ExprScope     map[ast.Expr]int
	Uses          []*Use
	Places        map[ast.Node]Place
	Reachable     map[ast.Stmt]Reachability
	ModuleScopeID int // the root module scope's ID
}

// ImportResolver answers the cross-module name-resolution questions a
// `use` declaration needs: what a specific imported name refers to, and
// (for a wildcard import) what names a module exports publicly.
//
// It is implemented by internal/driver, which has access to every
// module's own Index; internal/sema stays decoupled from that to avoid
// an import cycle and to keep a single file's index buildable in
// isolation (useful for tests and for the language-server "index just
// this file" use case).
type ImportResolver interface {
	// Resolve reports the kind, span, and mutability of path::name, or
	// ok=false if no such export exists.
	Resolve(path []string, name string) (kind SymbolKind, span ast.Span, mutable bool, ok bool)
	// PublicNames lists every non-underscore-prefixed top-level name a
	// module exports, for wildcard-import expansion (spec.md §4.2).
	PublicNames(path []string) ([]string, error)
}

// BuildIndex runs the two-pass visit described by spec.md §4.2 over file,
// using resolver for any `use` declarations, and pushes every naming
// diagnostic it finds into sink.
func BuildIndex(file *ast.File, resolver ImportResolver, sink *diagnostics.Sink) *Index {
	b := &builder{
		file:     file,
		resolver: resolver,
		sink:     sink,
		scopes:   newScopeTree(),
		symbols:  &symbolTable{},
		idx: &Index{
			ExprScope: make(map[ast.Expr]int),
			Places:    make(map[ast.Node]Place),
			Reachable: make(map[ast.Stmt]Reachability),
		},
	}
	return b.build()
}
