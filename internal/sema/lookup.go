package sema

// LookupSymbol walks the scope chain starting at scopeID for name, the
// same way scopeTree.lookup does internally during index-building.
// Exported so later phases (internal/validate, internal/mir) that only
// have the finished Index, not the builder, can resolve a name back to
// its declaring Symbol.
func LookupSymbol(idx *Index, scopeID int, name string) (*Symbol, bool) {
	for scopeID >= 0 {
		scope := idx.Scopes[scopeID]
		if symID, ok := scope.Names[name]; ok {
			return idx.Symbols[symID], true
		}
		scopeID = scope.Parent
	}
	return nil, false
}
