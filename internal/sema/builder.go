package sema

import (
	"strings"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
)

type builder struct {
	file     *ast.File
	resolver ImportResolver
	sink     *diagnostics.Sink
	scopes   *scopeTree
	symbols  *symbolTable
	idx      *Index

	used map[int]bool // symbol ID -> referenced at least once
}

func (b *builder) build() *Index {
	b.used = make(map[int]bool)
	module := b.scopes.push(ModuleScope, -1)
	b.idx.ModuleScopeID = module.ID

	// Pass 1: collect top-level declarations so every name is visible in
	// the whole enclosing module scope regardless of declaration order
	// (spec.md §4.2 "hoisted").
	for _, item := range b.file.Items {
		b.collectItem(module, item)
	}

	// Pass 2: visit bodies, opening child scopes as blocks/loops/functions
	// are entered.
	for _, item := range b.file.Items {
		if fn, ok := item.(*ast.FuncDecl); ok {
			b.visitFunc(module, fn)
		}
	}

	b.reportUnused()

	b.idx.Scopes = b.scopes.scopes
	b.idx.Symbols = b.symbols.symbols
	return b.idx
}

func (b *builder) collectItem(module *Scope, item ast.Item) {
	switch d := item.(type) {
	case *ast.FuncDecl:
		b.declareIn(module, d.Name, SymFunc, d.Span, d, false)
	case *ast.StructDecl:
		b.declareIn(module, d.Name, SymStruct, d.Span, d, false)
	case *ast.ConstDecl:
		b.declareIn(module, d.Name, SymConst, d.Span, d, false)
	case *ast.UseDecl:
		b.collectUse(module, d)
	}
}

func (b *builder) collectUse(module *Scope, d *ast.UseDecl) {
	if d.Name == "*" {
		names, err := b.resolver.PublicNames(d.Path)
		if err != nil {
			b.sink.Push(diagnostics.New(diagnostics.NAM005, "name", d.Span,
				"unknown module %q in wildcard import", strings.Join(d.Path, "::")))
			return
		}
		for _, name := range names {
			_, span, mutable, ok := b.resolver.Resolve(d.Path, name)
			if !ok {
				continue
			}
			sym := b.symbols.define(name, SymImport, span, d)
			sym.Module = strings.Join(d.Path, "::")
			sym.Mutable = mutable
			if !module.declare(name, sym.ID) {
				b.sink.Push(diagnostics.New(diagnostics.NAM003, "name", d.Span,
					"ambiguous import: %q already bound by another wildcard import", name))
			}
		}
		return
	}

	_, span, mutable, ok := b.resolver.Resolve(d.Path, d.Name)
	if !ok {
		b.sink.Push(diagnostics.New(diagnostics.NAM005, "name", d.Span,
			"%q not found in module %q, or the name is not public", d.Name, strings.Join(d.Path, "::")))
		return
	}
	sym := b.symbols.define(d.Name, SymImport, span, d)
	sym.Module = strings.Join(d.Path, "::")
	sym.Mutable = mutable
	if !module.declare(d.Name, sym.ID) {
		b.sink.Push(diagnostics.New(diagnostics.NAM002, "name", d.Span,
			"duplicate definition of %q", d.Name))
	}
}

func (b *builder) declareIn(scope *Scope, name string, kind SymbolKind, span ast.Span, decl ast.Node, mutable bool) *Symbol {
	sym := b.symbols.define(name, kind, span, decl)
	sym.Mutable = mutable
	if !scope.declare(name, sym.ID) {
		b.sink.Push(diagnostics.New(diagnostics.NAM002, "name", span, "duplicate definition of %q", name))
	}
	return sym
}

func (b *builder) visitFunc(module *Scope, fn *ast.FuncDecl) {
	fnScope := b.scopes.push(FuncScope, module.ID)
	for i := range fn.Params {
		p := &fn.Params[i]
		b.declareIn(fnScope, p.Name, SymParam, p.Span, fn, true)
	}
	if fn.Body != nil {
		reach := b.visitBlock(fnScope, fn.Body, BlockScope)
		b.idx.Reachable[fn.Body] = reach
	}
}

// visitBlock visits a block's statements in a fresh BlockScope (or a
// LoopScope when kind indicates a loop body), threading reachability
// sequentially: each statement records the reachability in effect before
// it, and statements after an unconditionally terminal one are still
// visited and recorded as Never.
func (b *builder) visitBlock(parent *Scope, block *ast.BlockStmt, kindHint ScopeKind) Reachability {
	kind := BlockScope
	if kindHint == LoopScope {
		kind = LoopScope
	}
	scope := b.scopes.push(kind, parent.ID)

	reach := Always
	for _, stmt := range block.Stmts {
		stmtReach := b.visitStmt(scope, stmt)
		b.idx.Reachable[stmt] = reach
		reach = reach.and(stmtReach)
	}
	return reach
}

func (b *builder) visitStmt(scope *Scope, stmt ast.Stmt) Reachability {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		b.visitExpr(scope, s.Value)
		b.bindPattern(scope, s.Pattern, SymLocal)
		return Always
	case *ast.ConstStmt:
		b.visitExpr(scope, s.Value)
		b.declareIn(scope, s.Name, SymConst, s.Span, s, false)
		return Always
	case *ast.AssignStmt:
		b.visitAssign(scope, s)
		return Always
	case *ast.ExprStmt:
		b.visitExpr(scope, s.X)
		return Always
	case *ast.BlockStmt:
		return b.visitBlock(scope, s, BlockScope)
	case *ast.IfStmt:
		b.visitExpr(scope, s.Cond)
		thenReach := b.visitBlock(scope, s.Then, BlockScope)
		elseReach := Always
		if s.Else != nil {
			elseReach = b.visitElse(scope, s.Else)
		} else {
			elseReach = Maybe
		}
		return mergeBranches(thenReach, elseReach)
	case *ast.WhileStmt:
		b.visitExpr(scope, s.Cond)
		b.visitBlock(scope, s.Body, LoopScope)
		return Maybe
	case *ast.LoopStmt:
		hasBreak := containsUnconditionalBreak(s.Body)
		b.visitBlock(scope, s.Body, LoopScope)
		return loopReachability(hasBreak, true)
	case *ast.ForStmt:
		forScope := b.scopes.push(BlockScope, scope.ID)
		if s.Init != nil {
			b.visitStmt(forScope, s.Init)
		}
		if s.Cond != nil {
			b.visitExpr(forScope, s.Cond)
		}
		if s.Step != nil {
			b.visitStmt(forScope, s.Step)
		}
		b.visitBlock(forScope, s.Body, LoopScope)
		return Maybe
	case *ast.BreakStmt, *ast.ContinueStmt:
		return Never
	case *ast.ReturnStmt:
		if s.Value != nil {
			b.visitExpr(scope, s.Value)
		}
		return Never
	default:
		return Always
	}
}

func (b *builder) visitElse(scope *Scope, elseStmt ast.Stmt) Reachability {
	switch e := elseStmt.(type) {
	case *ast.BlockStmt:
		return b.visitBlock(scope, e, BlockScope)
	case *ast.IfStmt:
		return b.visitStmt(scope, e)
	default:
		return Always
	}
}

// containsUnconditionalBreak reports whether block has a break statement
// not nested inside its own inner loop — a coarse, non-flow-sensitive
// check used only to decide whether a bare `loop {}` can fall through.
func containsUnconditionalBreak(block *ast.BlockStmt) bool {
	for _, stmt := range block.Stmts {
		if containsBreakInStmt(stmt) {
			return true
		}
	}
	return false
}

func containsBreakInStmt(stmt ast.Stmt) bool {
	switch s := stmt.(type) {
	case *ast.BreakStmt:
		return true
	case *ast.BlockStmt:
		return containsUnconditionalBreak(s)
	case *ast.IfStmt:
		if containsUnconditionalBreak(s.Then) {
			return true
		}
		if s.Else != nil {
			return containsBreakInStmt(s.Else)
		}
		return false
	default:
		// A break inside a nested while/loop/for belongs to that inner
		// loop, not this one.
		return false
	}
}

func (b *builder) bindPattern(scope *Scope, pat ast.Pattern, kind SymbolKind) {
	switch p := pat.(type) {
	case *ast.IdentPattern:
		if p.Name == "_" {
			return
		}
		b.declareIn(scope, p.Name, kind, p.Span, p, true)
	case *ast.TuplePattern:
		for _, elem := range p.Elems {
			b.bindPattern(scope, elem, kind)
		}
	}
}

func (b *builder) visitAssign(scope *Scope, s *ast.AssignStmt) {
	b.visitExpr(scope, s.Value)
	place, ok := placeOf(s.Target)
	if ok {
		b.idx.Places[s] = place
		if symID, found := b.scopes.lookup(scope.ID, place.Root); found {
			b.used[symID] = true
		} else {
			b.sink.Push(diagnostics.New(diagnostics.NAM001, "name", s.Target.Position(),
				"undeclared variable %q", place.Root))
		}
	} else {
		b.visitExpr(scope, s.Target)
	}
}

func (b *builder) visitExpr(scope *Scope, expr ast.Expr) {
	if expr == nil {
		return
	}
	b.idx.ExprScope[expr] = scope.ID
	switch e := expr.(type) {
	case *ast.Ident:
		symID, found := b.scopes.lookup(scope.ID, e.Name)
		use := &Use{Name: e.Name, Span: e.Span, ScopeID: scope.ID, Symbol: -1}
		if found {
			use.Symbol = symID
			b.used[symID] = true
		} else {
			b.sink.Push(diagnostics.New(diagnostics.NAM001, "name", e.Span, "undeclared variable %q", e.Name))
		}
		b.idx.Uses = append(b.idx.Uses, use)
	case *ast.UnaryExpr:
		b.visitExpr(scope, e.X)
	case *ast.BinaryExpr:
		b.visitExpr(scope, e.X)
		b.visitExpr(scope, e.Y)
	case *ast.CallExpr:
		b.visitExpr(scope, e.Callee)
		for _, a := range e.Args {
			b.visitExpr(scope, a)
		}
	case *ast.MemberExpr:
		b.visitExpr(scope, e.Base)
	case *ast.IndexExpr:
		b.visitExpr(scope, e.Base)
		b.visitExpr(scope, e.Index)
	case *ast.StructLit:
		for _, f := range e.Fields {
			b.visitExpr(scope, f.Value)
		}
	case *ast.TupleLit:
		for _, el := range e.Elems {
			b.visitExpr(scope, el)
		}
	case *ast.ParenExpr:
		b.visitExpr(scope, e.X)
	case *ast.CastExpr:
		b.visitExpr(scope, e.X)
	}
}

func (b *builder) reportUnused() {
	for _, sym := range b.symbols.symbols {
		if b.used[sym.ID] {
			continue
		}
		switch sym.Kind {
		case SymLocal, SymParam:
			b.sink.Push(diagnostics.Warning(diagnostics.NAM006, "name", sym.Span, "%q is never used", sym.Name))
		case SymImport:
			b.sink.Push(diagnostics.Warning(diagnostics.NAM007, "name", sym.Span, "import %q is never used", sym.Name))
		}
	}
}
