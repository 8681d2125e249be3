package mirpasses

import "github.com/cairo-m/cairo-m-compiler/internal/mir"

// parCopy is one `dest <- src` copy that must happen simultaneously with
// every other parCopy resolving the same CFG edge's phis.
type parCopy struct {
	dest mir.ValueID
	src  mir.Operand
}

// DestructSSA lowers every Phi in f to ordinary copies placed on the
// edges the phi's incoming values arrive from (spec.md §4.6 step 3).
// After this pass no Phi survives anywhere in f (OPT004 in
// internal/mirpasses/validate.go checks exactly that).
//
// Edges are classified the standard way: a non-critical edge (pred has
// one successor, or succ has one predecessor) can take its copies
// directly in pred or succ; a critical edge (pred has several
// successors AND succ has several predecessors) needs a fresh block
// spliced in, since writing the copies into pred would affect the
// other successor and writing them into succ would affect the other
// predecessors.
func DestructSSA(f *mir.Function) {
	preds := f.Predecessors()

	type blockPhis struct {
		block mir.BlockID
		phis  []*mir.Phi
	}
	var work []blockPhis
	for _, id := range f.BlockOrder() {
		var phis []*mir.Phi
		for _, instr := range f.Blocks[id].Instrs {
			if p, ok := instr.(*mir.Phi); ok {
				phis = append(phis, p)
			}
		}
		if len(phis) > 0 {
			work = append(work, blockPhis{block: id, phis: phis})
		}
	}

	for _, w := range work {
		succ := w.block
		succPreds := preds[succ]
		for _, pred := range succPreds {
			var copies []parCopy
			for _, phi := range w.phis {
				for _, e := range phi.Incoming {
					if e.Pred == pred {
						copies = append(copies, parCopy{dest: phi.ID, src: e.Value})
						break
					}
				}
			}
			if len(copies) == 0 {
				continue
			}
			instrs := sequentializeCopies(f, copies)
			switch insertionPoint(f, pred, len(succPreds)) {
			case insertEndOfPred:
				b := f.Blocks[pred]
				b.Instrs = append(b.Instrs, instrs...)
			case insertStartOfSucc:
				b := f.Blocks[succ]
				b.Instrs = append(append([]mir.Instruction{}, instrs...), b.Instrs...)
			case insertSplitBlock:
				nb := f.NewBlock()
				nb.Instrs = instrs
				nb.Term = &mir.Jump{Target: succ}
				retargetTerminator(f.Blocks[pred].Term, succ, nb.ID)
			}
		}
	}

	for _, id := range f.BlockOrder() {
		b := f.Blocks[id]
		kept := make([]mir.Instruction, 0, len(b.Instrs))
		for _, instr := range b.Instrs {
			if _, ok := instr.(*mir.Phi); ok {
				continue
			}
			kept = append(kept, instr)
		}
		b.Instrs = kept
	}
}

type insertKind int

const (
	insertEndOfPred insertKind = iota
	insertStartOfSucc
	insertSplitBlock
)

func insertionPoint(f *mir.Function, pred mir.BlockID, succPredCount int) insertKind {
	if len(f.Successors(pred)) <= 1 {
		return insertEndOfPred
	}
	if succPredCount <= 1 {
		return insertStartOfSucc
	}
	return insertSplitBlock
}

func retargetTerminator(term mir.Terminator, old, newID mir.BlockID) {
	switch t := term.(type) {
	case *mir.Jump:
		if t.Target == old {
			t.Target = newID
		}
	case *mir.Branch:
		if t.Then == old {
			t.Then = newID
		}
		if t.Else == old {
			t.Else = newID
		}
	case *mir.BranchCmp:
		if t.Then == old {
			t.Then = newID
		}
		if t.Else == old {
			t.Else = newID
		}
	}
}

// sequentializeCopies orders a set of simultaneous dest<-src copies into
// a sequence of ordinary Assign instructions. A copy whose src reads
// another copy's dest must run before that other copy overwrites it;
// when that ordering is impossible because the copies form a cycle
// (e.g. a swap `a<-b, b<-a`), the cycle is broken by saving the lowest-
// numbered dest in the cycle to a fresh temporary first.
func sequentializeCopies(f *mir.Function, copies []parCopy) []mir.Instruction {
	destSrc := make(map[mir.ValueID]mir.Operand, len(copies))
	isDest := make(map[mir.ValueID]bool, len(copies))
	for _, c := range copies {
		destSrc[c.dest] = c.src
		isDest[c.dest] = true
	}

	usedAsSrc := map[mir.ValueID]int{}
	remaining := map[mir.ValueID]bool{}
	for _, c := range copies {
		remaining[c.dest] = true
		if v, ok := c.src.(mir.ValueOperand); ok && isDest[v.ID] {
			usedAsSrc[v.ID]++
		}
	}

	var ready []mir.ValueID
	for _, c := range copies {
		if usedAsSrc[c.dest] == 0 {
			ready = append(ready, c.dest)
		}
	}

	substitute := map[mir.ValueID]mir.Operand{}
	resolveSrc := func(d mir.ValueID) mir.Operand {
		src := destSrc[d]
		if v, ok := src.(mir.ValueOperand); ok {
			if sub, ok := substitute[v.ID]; ok {
				return sub
			}
		}
		return src
	}

	var out []mir.Instruction
	pending := len(remaining)
	for pending > 0 {
		if len(ready) == 0 {
			var pick mir.ValueID
			first := true
			for d := range remaining {
				if first || d < pick {
					pick = d
					first = false
				}
			}
			tmp := f.NewValue(f.ValueTypes[pick])
			out = append(out, &mir.Assign{ID: tmp, Src: mir.ValueOperand{ID: pick}})
			substitute[pick] = mir.ValueOperand{ID: tmp}
			usedAsSrc[pick] = 0
			ready = append(ready, pick)
			continue
		}
		d := ready[0]
		ready = ready[1:]
		if !remaining[d] {
			continue
		}
		out = append(out, &mir.Assign{ID: d, Src: resolveSrc(d)})
		delete(remaining, d)
		pending--

		if v, ok := destSrc[d].(mir.ValueOperand); ok && isDest[v.ID] && remaining[v.ID] {
			usedAsSrc[v.ID]--
			if usedAsSrc[v.ID] == 0 {
				ready = append(ready, v.ID)
			}
		}
	}
	return out
}
