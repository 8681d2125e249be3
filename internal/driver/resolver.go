package driver

import (
	"fmt"
	"strings"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/sema"
)

// ProjectResolver answers a `use` declaration's cross-module questions
// (spec.md §4.2) by recursing back into the owning Driver's own
// SemanticIndex query. It implements sema.ImportResolver.
type ProjectResolver struct {
	driver *Driver
}

// Resolve looks up path::name in the target module's own semantic index.
// Building that index may recurse into this same resolver again (a module
// importing from a module importing from a module); the Driver's building
// set makes a request for a module still being built return a nil index,
// which Resolve reports as not found, so an import cycle ends in the
// importer's own unresolved-import diagnostic rather than infinite
// recursion.
func (r *ProjectResolver) Resolve(path []string, name string) (sema.SymbolKind, ast.Span, bool, bool) {
	modPath := joinPath(path)
	idx, sink := r.driver.SemanticIndex(modPath)
	if idx == nil || sink.HasErrors() {
		return 0, ast.Span{}, false, false
	}

	symID, ok := idx.Scopes[idx.ModuleScopeID].Names[name]
	if !ok {
		return 0, ast.Span{}, false, false
	}
	sym := idx.Symbols[symID]
	return sym.Kind, sym.Span, sym.Mutable, true
}

// PublicNames lists every non-underscore-prefixed name bound directly in
// path's module scope, leaving out the names that module itself imports
// (a wildcard import never re-exports) — spec.md §4.2's definition of what a wildcard
// import expands to.
func (r *ProjectResolver) PublicNames(path []string) ([]string, error) {
	modPath := joinPath(path)
	idx, sink := r.driver.SemanticIndex(modPath)
	if idx == nil {
		if sink != nil && len(sink.All()) > 0 {
			return nil, fmt.Errorf("module %q has errors: %v", modPath, sink.All())
		}
		return nil, fmt.Errorf("module %q not found", modPath)
	}

	var names []string
	for name, symID := range idx.Scopes[idx.ModuleScopeID].Names {
		if strings.HasPrefix(name, "_") || idx.Symbols[symID].Kind == sema.SymImport {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
