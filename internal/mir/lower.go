// Lowering implements spec.md §4.5: `lower(module, types) -> MirModule`.
// It consumes an already-parsed, sema-indexed, type-checked ast.File and
// produces SSA MIR directly — Cairo-M's surface control flow (if/while/
// loop/for with break/continue) is fully structured (no goto), so every
// merge point (if/else join, loop header, loop exit) is known at
// lowering time and phis are inserted right there, the same way the
// teacher turns its own surface control flow into Core IR in
// internal/elaborate/lower.go rather than deferring to a generic
// reducible-CFG analysis.
//
// Arrays and address-taken locals instead go through Alloca/GetElementPtr/
// Load/Store (spec.md §3 invariant 4); internal/mirpasses' Mem2Reg-SSA
// pass is what promotes *those* to registers, using the dominator-tree +
// dominance-frontier machinery in dominance.go.
package mir

import (
	"sort"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/diagnostics"
	"github.com/cairo-m/cairo-m-compiler/internal/sema"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

// Lower builds a Module from file, using idx and checker for name and
// type information respectively.
func Lower(file *ast.File, idx *sema.Index, checker *types.Checker, sink *diagnostics.Sink) *Module {
	mod := NewModule(moduleName(file))
	for _, item := range file.Items {
		if d, ok := item.(*ast.StructDecl); ok {
			if st, ok := checker.Struct(d.Name); ok {
				mod.Structs[d.Name] = st
			}
		}
	}

	constExprs := make(map[string]ast.Expr)
	for _, item := range file.Items {
		if d, ok := item.(*ast.ConstDecl); ok {
			constExprs[d.Name] = d.Value
		}
	}

	l := &lowerer{idx: idx, checker: checker, sink: sink, module: mod, constExprs: constExprs}
	for _, item := range file.Items {
		if d, ok := item.(*ast.FuncDecl); ok && d.Body != nil {
			mod.Functions[d.Name] = l.lowerFunc(d)
		}
	}
	return mod
}

func moduleName(file *ast.File) string {
	if file.Path != "" {
		return file.Path
	}
	return "module"
}

// varEnv is a chain of scope frames mapping a local name to its current
// value, mirroring internal/types.Env's parent-chain shape but holding
// mutable "current definition" slots instead of fixed types. A binding's
// value is an Operand rather than a bare ValueID so a literal or
// parameter can flow through unmaterialized until something actually
// needs an SSA value out of it.
type varEnv struct {
	bindings map[string]Operand
	parent   *varEnv
}

func newVarEnv(parent *varEnv) *varEnv {
	return &varEnv{bindings: make(map[string]Operand), parent: parent}
}

func (e *varEnv) get(name string) (Operand, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// set rebinds name in the nearest frame that already declares it
// (assignment); if no frame declares it yet, it becomes a fresh binding
// in this frame.
func (e *varEnv) set(name string, v Operand) {
	for cur := e; cur != nil; cur = cur.parent {
		if _, ok := cur.bindings[name]; ok {
			cur.bindings[name] = v
			return
		}
	}
	e.bindings[name] = v
}

func (e *varEnv) declare(name string, v Operand) { e.bindings[name] = v }

// flattenEnv collects every name visible from e, nearest frame winning,
// for taking a merge-point snapshot.
func flattenEnv(e *varEnv) map[string]Operand {
	out := make(map[string]Operand)
	for cur := e; cur != nil; cur = cur.parent {
		for k, v := range cur.bindings {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}
	return out
}

func envFromFlat(flat map[string]Operand) *varEnv {
	e := newVarEnv(nil)
	for k, v := range flat {
		e.declare(k, v)
	}
	return e
}

func sortedNames(flat map[string]Operand) []string {
	names := make([]string, 0, len(flat))
	for k := range flat {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// edgeContribution is one predecessor's contribution to a merge point: a
// source block plus the variable bindings live when control reached it.
type edgeContribution struct {
	block BlockID
	flat  map[string]Operand
}

// loopFrame tracks the state `break`/`continue` need while lowering a
// loop body: where each resolves to, and the running list of edges they
// contribute to their respective merge points.
type loopFrame struct {
	continueTarget BlockID
	breakTarget    BlockID
	continues      *[]edgeContribution
	breaks         *[]edgeContribution
}

type lowerer struct {
	idx        *sema.Index
	checker    *types.Checker
	sink       *diagnostics.Sink
	module     *Module
	constExprs map[string]ast.Expr

	fn    *Function
	cur   *Block
	env   *varEnv
	loops []loopFrame
}

func (l *lowerer) pushLoop(continueTarget, breakTarget BlockID, continues, breaks *[]edgeContribution) {
	l.loops = append(l.loops, loopFrame{
		continueTarget: continueTarget,
		breakTarget:    breakTarget,
		continues:      continues,
		breaks:         breaks,
	})
}

func (l *lowerer) popLoop() { l.loops = l.loops[:len(l.loops)-1] }

func (l *lowerer) currentLoop() (loopFrame, bool) {
	if len(l.loops) == 0 {
		return loopFrame{}, false
	}
	return l.loops[len(l.loops)-1], true
}

// emit appends instr to the current block.
func (l *lowerer) emit(instr Instruction) {
	l.cur.Instrs = append(l.cur.Instrs, instr)
}

// terminate sets the current block's terminator, a no-op if one is
// already set (an already-terminated block means an earlier return/
// break/continue made the rest of its statement list dead code).
func (l *lowerer) terminate(term Terminator) {
	if l.cur.Term == nil {
		l.cur.Term = term
	}
}

// switchTo makes b the active insertion point.
func (l *lowerer) switchTo(b *Block) { l.cur = b }

func (l *lowerer) resolveType(t ast.Type, span ast.Span) types.Type {
	return l.checker.ResolveType(t, span)
}

func (l *lowerer) lowerFunc(d *ast.FuncDecl) *Function {
	sig, _ := l.checker.FuncSignature(d.Name)
	var retType types.Type = &types.Unit{}
	if sig != nil {
		retType = sig.Return
	}

	f := NewFunction(d.Name, retType)
	l.fn = f
	l.env = newVarEnv(nil)
	l.loops = nil
	l.switchTo(f.Blocks[f.EntryBlock])

	for i, p := range d.Params {
		var pt types.Type = &types.Felt{}
		if sig != nil && i < len(sig.Params) {
			pt = sig.Params[i]
		}
		v := f.NewValue(pt)
		f.Params = append(f.Params, Param{Name: p.Name, Value: v, Type: pt})
		l.env.declare(p.Name, ValueOperand{ID: v})
	}

	l.lowerBlock(d.Body)

	// A function whose body doesn't syntactically end in a return (e.g.
	// falls off the end of a unit-returning function) still needs a
	// terminator on whatever block lowering left open.
	if l.cur.Term == nil {
		l.terminate(&Return{})
	}
	return f
}

func (l *lowerer) lowerBlock(b *ast.BlockStmt) {
	l.env = newVarEnv(l.env)
	for _, stmt := range b.Stmts {
		if l.cur.Term != nil {
			break // unreachable tail, diagnosed separately (FLW002)
		}
		l.lowerStmt(stmt)
	}
	l.env = l.env.parent
}

// lowerBranch lowers stmt (a block or, for an `else if` chain, a bare
// IfStmt) against an isolated copy of entryFlat so its variable writes
// don't leak into sibling branches, then returns the end-of-branch value
// of every entryFlat name.
func (l *lowerer) lowerBranch(entryFlat map[string]Operand, stmt ast.Stmt) (end *Block, resultFlat map[string]Operand, terminated bool) {
	root := envFromFlat(entryFlat)
	saved := l.env
	l.env = root
	if block, ok := stmt.(*ast.BlockStmt); ok {
		l.lowerBlock(block)
	} else {
		l.lowerStmt(stmt)
	}
	l.env = saved

	end = l.cur
	terminated = end.Term != nil
	resultFlat = make(map[string]Operand, len(entryFlat))
	for name := range entryFlat {
		if v, ok := root.bindings[name]; ok {
			resultFlat[name] = v
		}
	}
	return
}

// mergeEdges builds (or elides) a Phi in the current block for every
// name in names whose value differs across edges, and returns every
// name's merged value. Caller must already have switched to the
// destination block.
func (l *lowerer) mergeEdges(names []string, edges []edgeContribution) map[string]Operand {
	result := make(map[string]Operand, len(names))
	for _, name := range names {
		first, ok := edges[0].flat[name]
		if !ok {
			continue
		}
		same := true
		for _, e := range edges[1:] {
			v, ok := e.flat[name]
			if !ok || !operandEqual(v, first) {
				same = false
				break
			}
		}
		if same || len(edges) == 1 {
			result[name] = first
			continue
		}
		id := l.fn.NewValue(l.operandType(first))
		incoming := make([]PhiEdge, 0, len(edges))
		for _, e := range edges {
			v := e.flat[name]
			incoming = append(incoming, PhiEdge{Pred: e.block, Value: v})
		}
		l.emit(&Phi{ID: id, Incoming: incoming})
		result[name] = ValueOperand{ID: id}
	}
	return result
}

func (l *lowerer) applyFlat(flat map[string]Operand) {
	for name, v := range flat {
		l.env.set(name, v)
	}
}

// declareHeaderPhis opens a Phi for every carried name at header, seeded
// with only the pre-loop edge; patchHeaderPhis adds the
// back-edge(s) once the loop body has been lowered and its continue
// sites are known.
func (l *lowerer) declareHeaderPhis(carried []string, entryFlat map[string]Operand, preHeader BlockID) map[string]ValueID {
	ids := make(map[string]ValueID, len(carried))
	for _, name := range carried {
		v := entryFlat[name]
		id := l.fn.NewValue(l.operandType(v))
		l.emit(&Phi{ID: id, Incoming: []PhiEdge{{Pred: preHeader, Value: v}}})
		ids[name] = id
	}
	return ids
}

func (l *lowerer) patchHeaderPhis(header *Block, phiIDs map[string]ValueID, edges []edgeContribution) {
	for name, id := range phiIDs {
		phi := findPhi(header, id)
		if phi == nil {
			continue
		}
		for _, e := range edges {
			if v, ok := e.flat[name]; ok {
				phi.Incoming = append(phi.Incoming, PhiEdge{Pred: e.block, Value: v})
			}
		}
	}
}

func findPhi(b *Block, id ValueID) *Phi {
	for _, instr := range b.Instrs {
		if p, ok := instr.(*Phi); ok && p.ID == id {
			return p
		}
	}
	return nil
}

// loopCarriedNames reports which of entryFlat's names body might assign
// to, conservatively (it doesn't check that the assignment actually
// executes) — the set of variables a loop header phi must account for.
func (l *lowerer) loopCarriedNames(stmt ast.Stmt, entryFlat map[string]Operand) []string {
	assigned := make(map[string]bool)
	l.collectAssignedNames(stmt, assigned)
	var names []string
	for name := range entryFlat {
		if assigned[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (l *lowerer) collectAssignedNames(stmt ast.Stmt, out map[string]bool) {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		if place, ok := l.idx.Places[s]; ok {
			out[place.Root] = true
		}
	case *ast.BlockStmt:
		for _, st := range s.Stmts {
			l.collectAssignedNames(st, out)
		}
	case *ast.IfStmt:
		l.collectAssignedNames(s.Then, out)
		if s.Else != nil {
			l.collectAssignedNames(s.Else, out)
		}
	case *ast.WhileStmt:
		l.collectAssignedNames(s.Body, out)
	case *ast.LoopStmt:
		l.collectAssignedNames(s.Body, out)
	case *ast.ForStmt:
		if s.Init != nil {
			l.collectAssignedNames(s.Init, out)
		}
		if s.Step != nil {
			l.collectAssignedNames(s.Step, out)
		}
		l.collectAssignedNames(s.Body, out)
	}
}

func (l *lowerer) litType(expr ast.Expr) types.Type {
	if t, ok := l.checker.TypeOf(expr); ok {
		return t
	}
	return &types.Felt{}
}
