package mir

// DominatorTree maps each reachable block to its immediate dominator.
// EntryBlock maps to itself (the conventional root case).
type DominatorTree struct {
	idom map[BlockID]BlockID
	rpo  []BlockID
}

// IDom returns id's immediate dominator, or (0, false) if id is
// unreachable or is the entry block.
func (d *DominatorTree) IDom(id BlockID) (BlockID, bool) {
	if id == d.rpo[0] {
		return 0, false
	}
	idom, ok := d.idom[id]
	return idom, ok
}

// Dominates reports whether a dominates b (every path from entry to b
// passes through a), inclusive of a == b.
func (d *DominatorTree) Dominates(a, b BlockID) bool {
	for cur := b; ; {
		if cur == a {
			return true
		}
		parent, ok := d.IDom(cur)
		if !ok {
			return cur == a
		}
		cur = parent
	}
}

// ComputeDominators builds f's dominator tree using the Cooper-Harvey-
// Kennedy iterative algorithm ("A Simple, Fast Dominance Algorithm"),
// which converges to a fixpoint over reverse postorder without needing
// an explicit lattice framework — a good fit alongside the teacher's
// other iterative-fixpoint graph passes (internal/elaborate/scc.go's
// Tarjan SCC detection is the closest analogue in the corpus for a
// from-scratch graph algorithm over this function's own CFG).
func ComputeDominators(f *Function) *DominatorTree {
	rpo := reversePostorder(f)
	if len(rpo) == 0 {
		return &DominatorTree{idom: map[BlockID]BlockID{}, rpo: rpo}
	}
	rpoIndex := make(map[BlockID]int, len(rpo))
	for i, id := range rpo {
		rpoIndex[id] = i
	}
	preds := f.Predecessors()

	idom := make(map[BlockID]BlockID)
	entry := rpo[0]
	idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom BlockID
			found := false
			for _, p := range preds[b] {
				if _, ok := idom[p]; !ok {
					continue
				}
				if !found {
					newIdom = p
					found = true
					continue
				}
				newIdom = intersect(newIdom, p, idom, rpoIndex)
			}
			if !found {
				continue
			}
			if cur, ok := idom[b]; !ok || cur != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	delete(idom, entry)
	return &DominatorTree{idom: idom, rpo: rpo}
}

func intersect(a, b BlockID, idom map[BlockID]BlockID, rpoIndex map[BlockID]int) BlockID {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorder computes a deterministic reverse-postorder traversal
// of f's reachable blocks (successors visited in ascending BlockID order
// for determinism), the order the dominator fixpoint needs to converge
// quickly.
func reversePostorder(f *Function) []BlockID {
	visited := make(map[BlockID]bool)
	var post []BlockID
	var visit func(id BlockID)
	visit = func(id BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		succs := append([]BlockID(nil), f.Successors(id)...)
		sortBlockIDs(succs)
		for _, s := range succs {
			visit(s)
		}
		post = append(post, id)
	}
	visit(f.EntryBlock)
	// reverse
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

func sortBlockIDs(ids []BlockID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// DominanceFrontier computes, for every reachable block, the set of
// blocks at which its dominance stops — the placement sites φ nodes need
// (spec.md §4.5's variable-SSA pass: "inserts φ nodes at dominance
// frontiers for variables assigned on multiple paths").
func DominanceFrontier(f *Function, tree *DominatorTree) map[BlockID][]BlockID {
	frontier := make(map[BlockID][]BlockID)
	preds := f.Predecessors()
	for _, b := range f.ReachableBlocks() {
		ps := preds[b]
		if len(ps) < 2 {
			continue
		}
		idomB, hasIdom := tree.IDom(b)
		for _, p := range ps {
			runner := p
			for {
				if !hasIdom || runner == idomB {
					break
				}
				frontier[runner] = appendUnique(frontier[runner], b)
				next, ok := tree.IDom(runner)
				if !ok {
					break
				}
				runner = next
			}
		}
	}
	return frontier
}

func appendUnique(ids []BlockID, id BlockID) []BlockID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
