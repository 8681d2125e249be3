package mir

import (
	"reflect"
	"testing"

	"github.com/cairo-m/cairo-m-compiler/internal/types"
)

func TestNewFunctionHasEntryBlock(t *testing.T) {
	f := NewFunction("f", &types.Unit{})
	if _, ok := f.Blocks[f.EntryBlock]; !ok {
		t.Fatalf("entry block %d not present in arena", f.EntryBlock)
	}
	if len(f.Blocks) != 1 {
		t.Fatalf("expected exactly one block after NewFunction, got %d", len(f.Blocks))
	}
}

func TestNewValueAndNewBlockAreMonotonic(t *testing.T) {
	f := NewFunction("f", &types.Felt{})
	v0 := f.NewValue(&types.Felt{})
	v1 := f.NewValue(&types.Felt{})
	if v1 <= v0 {
		t.Fatalf("expected strictly increasing value ids, got %d then %d", v0, v1)
	}
	b1 := f.NewBlock()
	b2 := f.NewBlock()
	if b2 <= b1 {
		t.Fatalf("expected strictly increasing block ids, got %d then %d", b1, b2)
	}
}

func TestBlockOrderIsAscending(t *testing.T) {
	f := NewFunction("f", &types.Unit{})
	f.NewBlock()
	f.NewBlock()
	f.NewBlock()
	order := f.BlockOrder()
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Fatalf("BlockOrder not ascending: %v", order)
		}
	}
	if len(order) != 4 {
		t.Fatalf("expected 4 blocks (entry + 3), got %d", len(order))
	}
}

// buildDiamond builds entry -> (then, else) -> join, a standard if/else
// diamond CFG, and returns the function plus the four block ids in
// entry/then/else/join order.
func buildDiamond(t *testing.T) (*Function, BlockID, BlockID, BlockID, BlockID) {
	t.Helper()
	f := NewFunction("f", &types.Unit{})
	entry := f.EntryBlock
	thenB := f.NewBlock()
	elseB := f.NewBlock()
	join := f.NewBlock()

	cond := f.NewValue(&types.Bool{})
	f.Blocks[entry].Term = &Branch{Cond: ValueOperand{ID: cond}, Then: thenB.ID, Else: elseB.ID}
	f.Blocks[thenB.ID].Term = &Jump{Target: join.ID}
	f.Blocks[elseB.ID].Term = &Jump{Target: join.ID}
	f.Blocks[join.ID].Term = &Return{}

	return f, entry, thenB.ID, elseB.ID, join.ID
}

func TestReachableBlocksDiamond(t *testing.T) {
	f, entry, thenB, elseB, join := buildDiamond(t)
	reachable := f.ReachableBlocks()
	want := map[BlockID]bool{entry: true, thenB: true, elseB: true, join: true}
	if len(reachable) != len(want) {
		t.Fatalf("expected %d reachable blocks, got %v", len(want), reachable)
	}
	for _, id := range reachable {
		if !want[id] {
			t.Fatalf("unexpected block %d reachable", id)
		}
	}
}

func TestPredecessorsDiamond(t *testing.T) {
	f, _, thenB, elseB, join := buildDiamond(t)
	preds := f.Predecessors()
	joinPreds := append([]BlockID(nil), preds[join]...)
	sortBlockIDs(joinPreds)
	want := []BlockID{thenB, elseB}
	sortBlockIDs(want)
	if !reflect.DeepEqual(joinPreds, want) {
		t.Fatalf("join predecessors = %v, want %v", joinPreds, want)
	}
}

func TestSuccessorsOfUnterminatedBlockIsNil(t *testing.T) {
	f := NewFunction("f", &types.Unit{})
	if succs := f.Successors(f.EntryBlock); succs != nil {
		t.Fatalf("expected nil successors for unterminated block, got %v", succs)
	}
}

func TestDominatorsDiamond(t *testing.T) {
	f, entry, thenB, elseB, join := buildDiamond(t)
	tree := ComputeDominators(f)

	if !tree.Dominates(entry, thenB) || !tree.Dominates(entry, elseB) || !tree.Dominates(entry, join) {
		t.Fatalf("entry must dominate every other block in a diamond")
	}
	if idom, ok := tree.IDom(join); !ok || idom != entry {
		t.Fatalf("join's immediate dominator should be entry (neither then nor else alone dominates it), got %d ok=%v", idom, ok)
	}
	if tree.Dominates(thenB, join) {
		t.Fatalf("then-branch must not dominate join in a diamond")
	}
	if tree.Dominates(elseB, join) {
		t.Fatalf("else-branch must not dominate join in a diamond")
	}
}

func TestDominanceFrontierDiamond(t *testing.T) {
	f, _, thenB, elseB, join := buildDiamond(t)
	tree := ComputeDominators(f)
	frontier := DominanceFrontier(f, tree)

	assertContainsOnly(t, frontier[thenB], join)
	assertContainsOnly(t, frontier[elseB], join)
	if len(frontier[join]) != 0 {
		t.Fatalf("join's own frontier should be empty, got %v", frontier[join])
	}
}

// buildLoop builds entry -> header -> (body -> header, exit), a single
// natural loop with a back edge from body to header.
func buildLoop(t *testing.T) (f *Function, entry, header, body, exit BlockID) {
	t.Helper()
	f = NewFunction("f", &types.Unit{})
	entry = f.EntryBlock
	h := f.NewBlock()
	b := f.NewBlock()
	e := f.NewBlock()
	header, body, exit = h.ID, b.ID, e.ID

	cond := f.NewValue(&types.Bool{})
	f.Blocks[entry].Term = &Jump{Target: header}
	f.Blocks[header].Term = &Branch{Cond: ValueOperand{ID: cond}, Then: body, Else: exit}
	f.Blocks[body].Term = &Jump{Target: header}
	f.Blocks[exit].Term = &Return{}
	return f, entry, header, body, exit
}

func TestDominatorsLoop(t *testing.T) {
	f, entry, header, body, exit := buildLoop(t)
	tree := ComputeDominators(f)

	if idom, ok := tree.IDom(header); !ok || idom != entry {
		t.Fatalf("header's immediate dominator should be entry, got %d ok=%v", idom, ok)
	}
	if idom, ok := tree.IDom(body); !ok || idom != header {
		t.Fatalf("body's immediate dominator should be header, got %d ok=%v", idom, ok)
	}
	if idom, ok := tree.IDom(exit); !ok || idom != header {
		t.Fatalf("exit's immediate dominator should be header, got %d ok=%v", idom, ok)
	}
	if tree.Dominates(body, header) {
		t.Fatalf("loop body must not dominate its own header")
	}
}

func TestDominanceFrontierLoop(t *testing.T) {
	f, _, header, body, _ := buildLoop(t)
	tree := ComputeDominators(f)
	frontier := DominanceFrontier(f, tree)

	// The back edge body->header puts header in body's frontier and, since
	// header does not strictly dominate itself, in header's own frontier:
	// this is exactly the site a loop-carried variable's phi belongs at.
	assertContainsOnly(t, frontier[body], header)
	if len(frontier[header]) != 1 || frontier[header][0] != header {
		t.Fatalf("header's own frontier should be exactly {header} in this single-loop CFG, got %v", frontier[header])
	}
}

func assertContainsOnly(t *testing.T, got []BlockID, want ...BlockID) {
	t.Helper()
	g := append([]BlockID(nil), got...)
	w := append([]BlockID(nil), want...)
	sortBlockIDs(g)
	sortBlockIDs(w)
	if !reflect.DeepEqual(g, w) {
		t.Fatalf("got %v, want %v", g, w)
	}
}
