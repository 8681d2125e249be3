package mir

import (
	"sort"

	"github.com/cairo-m/cairo-m-compiler/internal/ast"
	"github.com/cairo-m/cairo-m-compiler/internal/sema"
	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

func (l *lowerer) lowerStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		v := l.lowerExpr(s.Value)
		l.lowerPattern(s.Pattern, v)
	case *ast.ConstStmt:
		v := l.lowerExpr(s.Value)
		l.env.declare(s.Name, v)
	case *ast.AssignStmt:
		l.lowerAssign(s)
	case *ast.ExprStmt:
		l.lowerExpr(s.X)
	case *ast.BlockStmt:
		l.lowerBlock(s)
	case *ast.IfStmt:
		l.lowerIf(s)
	case *ast.WhileStmt:
		l.lowerWhile(s)
	case *ast.LoopStmt:
		l.lowerLoop(s)
	case *ast.ForStmt:
		l.lowerFor(s)
	case *ast.BreakStmt:
		l.lowerBreak(s)
	case *ast.ContinueStmt:
		l.lowerContinue(s)
	case *ast.ReturnStmt:
		l.lowerReturn(s)
	}
}

func (l *lowerer) lowerPattern(pat ast.Pattern, value Operand) {
	switch p := pat.(type) {
	case *ast.IdentPattern:
		if p.Name != "_" {
			l.env.declare(p.Name, value)
		}
	case *ast.WildcardPattern:
		// discarded
	case *ast.TuplePattern:
		for i, elem := range p.Elems {
			id := l.fn.NewValue(l.tupleElemType(value, i))
			l.emit(&ExtractTuple{ID: id, Tuple: value, Index: i})
			l.lowerPattern(elem, ValueOperand{ID: id})
		}
	}
}

func (l *lowerer) tupleElemType(value Operand, i int) types.Type {
	if tup, ok := l.operandType(value).(*types.Tuple); ok && i < len(tup.Elems) {
		return tup.Elems[i]
	}
	return &types.Felt{}
}

// lowerAssign handles both a plain `x = v;` rebind and a field/index
// chain (`p.x.y = v;`, `t[0] = v;`), which rebuilds the aggregate value
// bottom-up via insert_field/insert_tuple and rebinds the chain's root
// (spec.md §4.5: "rebinds the variable to insert_field(old, name, new)").
func (l *lowerer) lowerAssign(s *ast.AssignStmt) {
	rhs := l.lowerExpr(s.Value)
	place, ok := l.idx.Places[s]
	if !ok {
		return
	}
	if len(place.Steps) == 0 {
		l.env.set(place.Root, rhs)
		return
	}
	root, ok := l.env.get(place.Root)
	if !ok {
		return
	}

	n := len(place.Steps)
	values := make([]Operand, n+1)
	valueTypes := make([]types.Type, n+1)
	values[0] = root
	valueTypes[0] = l.operandType(root)
	for i, step := range place.Steps {
		parentType := valueTypes[i]
		switch step.Kind {
		case sema.PlaceMember:
			fieldType := types.Type(&types.Felt{})
			if st, ok := parentType.(*types.Struct); ok {
				if ft, _, ok := st.FieldType(step.Field); ok {
					fieldType = ft
				}
			}
			id := l.fn.NewValue(fieldType)
			l.emit(&ExtractField{ID: id, Struct: values[i], Field: step.Field})
			values[i+1] = ValueOperand{ID: id}
			valueTypes[i+1] = fieldType
		case sema.PlaceIndex:
			elemType := types.Type(&types.Felt{})
			if tup, ok := parentType.(*types.Tuple); ok && int(step.Index) < len(tup.Elems) {
				elemType = tup.Elems[step.Index]
			}
			id := l.fn.NewValue(elemType)
			l.emit(&ExtractTuple{ID: id, Tuple: values[i], Index: int(step.Index)})
			values[i+1] = ValueOperand{ID: id}
			valueTypes[i+1] = elemType
		}
	}

	newValues := make([]Operand, n+1)
	newValues[n] = rhs
	for i := n - 1; i >= 0; i-- {
		step := place.Steps[i]
		id := l.fn.NewValue(valueTypes[i])
		switch step.Kind {
		case sema.PlaceMember:
			l.emit(&InsertField{ID: id, Struct: values[i], Field: step.Field, Value: newValues[i+1]})
		case sema.PlaceIndex:
			l.emit(&InsertTuple{ID: id, Tuple: values[i], Index: int(step.Index), Value: newValues[i+1]})
		}
		newValues[i] = ValueOperand{ID: id}
	}
	l.env.set(place.Root, newValues[0])
}

func (l *lowerer) lowerReturn(s *ast.ReturnStmt) {
	if s.Value == nil {
		l.terminate(&Return{})
		return
	}
	v := l.lowerExpr(s.Value)
	l.terminate(&Return{Values: []Operand{v}})
}

func (l *lowerer) lowerBreak(*ast.BreakStmt) {
	lf, ok := l.currentLoop()
	if !ok {
		return
	}
	flat := flattenEnv(l.env)
	*lf.breaks = append(*lf.breaks, edgeContribution{block: l.cur.ID, flat: flat})
	l.terminate(&Jump{Target: lf.breakTarget})
}

func (l *lowerer) lowerContinue(*ast.ContinueStmt) {
	lf, ok := l.currentLoop()
	if !ok {
		return
	}
	flat := flattenEnv(l.env)
	*lf.continues = append(*lf.continues, edgeContribution{block: l.cur.ID, flat: flat})
	l.terminate(&Jump{Target: lf.continueTarget})
}

func (l *lowerer) lowerIf(s *ast.IfStmt) {
	entryFlat := flattenEnv(l.env)
	beforeBlock := l.cur

	thenBlock := l.fn.NewBlock()
	var elseBlock *Block
	hasElse := s.Else != nil
	if hasElse {
		elseBlock = l.fn.NewBlock()
	}
	joinBlock := l.fn.NewBlock()

	cond := l.lowerExprAsOperand(s.Cond)
	elseTarget := joinBlock.ID
	if hasElse {
		elseTarget = elseBlock.ID
	}
	l.terminate(&Branch{Cond: cond, Then: thenBlock.ID, Else: elseTarget})

	l.switchTo(thenBlock)
	thenEnd, thenFlat, thenTerm := l.lowerBranch(entryFlat, s.Then)
	if !thenTerm {
		l.switchTo(thenEnd)
		l.terminate(&Jump{Target: joinBlock.ID})
	}

	var elseFlat map[string]Operand
	elseTerm := false
	var elseSource BlockID
	if hasElse {
		l.switchTo(elseBlock)
		var elseEnd *Block
		elseEnd, elseFlat, elseTerm = l.lowerBranch(entryFlat, s.Else)
		if !elseTerm {
			l.switchTo(elseEnd)
			l.terminate(&Jump{Target: joinBlock.ID})
		}
		elseSource = elseEnd.ID
	} else {
		elseFlat = entryFlat
		elseSource = beforeBlock.ID
	}

	var edges []edgeContribution
	if !thenTerm {
		edges = append(edges, edgeContribution{block: thenEnd.ID, flat: thenFlat})
	}
	if !elseTerm {
		edges = append(edges, edgeContribution{block: elseSource, flat: elseFlat})
	}

	l.switchTo(joinBlock)
	if len(edges) == 0 {
		l.terminate(&Unreachable{})
		return
	}
	merged := l.mergeEdges(sortedNames(entryFlat), edges)
	l.applyFlat(merged)
}

func (l *lowerer) lowerWhile(s *ast.WhileStmt) {
	outerEnv := l.env
	entryFlat := flattenEnv(outerEnv)
	preHeader := l.cur

	header := l.fn.NewBlock()
	body := l.fn.NewBlock()
	exit := l.fn.NewBlock()
	l.terminate(&Jump{Target: header.ID})

	carried := l.loopCarriedNames(s.Body, entryFlat)
	l.switchTo(header)
	phiIDs := l.declareHeaderPhis(carried, entryFlat, preHeader.ID)
	headerFlat := mergeCarried(entryFlat, phiIDs)

	l.env = envFromFlat(headerFlat)
	cond := l.lowerExprAsOperand(s.Cond)
	l.terminate(&Branch{Cond: cond, Then: body.ID, Else: exit.ID})

	var continues, breaks []edgeContribution
	l.switchTo(body)
	l.pushLoop(header.ID, exit.ID, &continues, &breaks)
	bodyEnd, bodyFlat, bodyTerm := l.lowerBranch(headerFlat, s.Body)
	l.popLoop()
	if !bodyTerm {
		l.switchTo(bodyEnd)
		l.terminate(&Jump{Target: header.ID})
		continues = append(continues, edgeContribution{block: bodyEnd.ID, flat: bodyFlat})
	}
	l.patchHeaderPhis(header, phiIDs, continues)

	l.env = outerEnv
	l.switchTo(exit)
	exitEdges := append([]edgeContribution{{block: header.ID, flat: headerFlat}}, breaks...)
	merged := l.mergeEdges(sortedNames(entryFlat), exitEdges)
	l.applyFlat(merged)
}

// lowerLoop lowers an unconditional `loop { ... }`: its header has no
// condition, so the only way to reach exit is a `break`.
func (l *lowerer) lowerLoop(s *ast.LoopStmt) {
	outerEnv := l.env
	entryFlat := flattenEnv(outerEnv)
	preHeader := l.cur

	header := l.fn.NewBlock()
	body := l.fn.NewBlock()
	exit := l.fn.NewBlock()
	l.terminate(&Jump{Target: header.ID})

	carried := l.loopCarriedNames(s.Body, entryFlat)
	l.switchTo(header)
	phiIDs := l.declareHeaderPhis(carried, entryFlat, preHeader.ID)
	headerFlat := mergeCarried(entryFlat, phiIDs)
	l.terminate(&Jump{Target: body.ID})

	var continues, breaks []edgeContribution
	l.switchTo(body)
	l.pushLoop(header.ID, exit.ID, &continues, &breaks)
	bodyEnd, bodyFlat, bodyTerm := l.lowerBranch(headerFlat, s.Body)
	l.popLoop()
	if !bodyTerm {
		l.switchTo(bodyEnd)
		l.terminate(&Jump{Target: header.ID})
		continues = append(continues, edgeContribution{block: bodyEnd.ID, flat: bodyFlat})
	}
	l.patchHeaderPhis(header, phiIDs, continues)

	l.env = outerEnv
	l.switchTo(exit)
	if len(breaks) == 0 {
		l.terminate(&Unreachable{})
		return
	}
	merged := l.mergeEdges(sortedNames(entryFlat), breaks)
	l.applyFlat(merged)
}

func (l *lowerer) lowerFor(s *ast.ForStmt) {
	outerEnv := l.env
	if s.Init != nil {
		l.lowerStmt(s.Init)
	}
	entryFlat := flattenEnv(l.env)
	preHeader := l.cur

	header := l.fn.NewBlock()
	body := l.fn.NewBlock()
	step := l.fn.NewBlock()
	exit := l.fn.NewBlock()
	l.terminate(&Jump{Target: header.ID})

	carried := l.loopCarriedNames(s.Body, entryFlat)
	if s.Step != nil {
		stepAssigned := map[string]bool{}
		l.collectAssignedNames(s.Step, stepAssigned)
		for name := range stepAssigned {
			if _, ok := entryFlat[name]; ok {
				carried = appendUniqueSorted(carried, name)
			}
		}
	}

	l.switchTo(header)
	phiIDs := l.declareHeaderPhis(carried, entryFlat, preHeader.ID)
	headerFlat := mergeCarried(entryFlat, phiIDs)

	l.env = envFromFlat(headerFlat)
	var cond Operand = ConstOperand{Value: 1, Type: &types.Bool{}}
	if s.Cond != nil {
		cond = l.lowerExprAsOperand(s.Cond)
	}
	l.terminate(&Branch{Cond: cond, Then: body.ID, Else: exit.ID})

	var continues, breaks []edgeContribution
	l.switchTo(body)
	l.pushLoop(step.ID, exit.ID, &continues, &breaks)
	bodyEnd, bodyFlat, bodyTerm := l.lowerBranch(headerFlat, s.Body)
	l.popLoop()
	if !bodyTerm {
		l.switchTo(bodyEnd)
		l.terminate(&Jump{Target: step.ID})
		continues = append(continues, edgeContribution{block: bodyEnd.ID, flat: bodyFlat})
	}

	l.switchTo(step)
	if len(continues) == 0 {
		l.terminate(&Unreachable{})
	} else {
		stepMerged := l.mergeEdges(sortedNames(headerFlat), continues)
		l.env = envFromFlat(stepMerged)
		if s.Step != nil {
			l.lowerStmt(s.Step)
		}
		afterStepFlat := flattenEnv(l.env)
		l.terminate(&Jump{Target: header.ID})
		l.patchHeaderPhis(header, phiIDs, []edgeContribution{{block: step.ID, flat: afterStepFlat}})
	}

	l.env = outerEnv
	l.switchTo(exit)
	exitEdges := append([]edgeContribution{{block: header.ID, flat: headerFlat}}, breaks...)
	merged := l.mergeEdges(sortedNames(entryFlat), exitEdges)
	l.applyFlat(merged)
}

func mergeCarried(entryFlat map[string]Operand, phiIDs map[string]ValueID) map[string]Operand {
	out := make(map[string]Operand, len(entryFlat))
	for name, v := range entryFlat {
		if id, ok := phiIDs[name]; ok {
			out[name] = ValueOperand{ID: id}
		} else {
			out[name] = v
		}
	}
	return out
}

func appendUniqueSorted(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	names = append(names, name)
	sort.Strings(names)
	return names
}
