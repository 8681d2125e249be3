package mir

import "github.com/cairo-m/cairo-m-compiler/internal/types"

// Block is one arena-owned basic block: a straight-line instruction list
// ending in exactly one Terminator.
type Block struct {
	ID     BlockID
	Instrs []Instruction
	Term   Terminator
}

// Param is one function parameter: its SSA value id and type.
type Param struct {
	Name  string
	Value ValueID
	Type  types.Type
}

// Function is one MIR function: an ordered parameter list, a return
// type, and an arena of basic blocks reachable from EntryBlock.
type Function struct {
	Name       string
	Params     []Param
	ReturnType types.Type

	Blocks     map[BlockID]*Block
	EntryBlock BlockID
	ValueTypes map[ValueID]types.Type

	nextValue ValueID
	nextBlock BlockID
}

// NewFunction creates an empty function with a single entry block
// (without a terminator yet — the lowering pass fills it in).
func NewFunction(name string, retType types.Type) *Function {
	f := &Function{
		Name:       name,
		ReturnType: retType,
		Blocks:     make(map[BlockID]*Block),
		ValueTypes: make(map[ValueID]types.Type),
	}
	entry := f.NewBlock()
	f.EntryBlock = entry.ID
	return f
}

// NewValue allocates a fresh SSA value id of type t.
func (f *Function) NewValue(t types.Type) ValueID {
	id := f.nextValue
	f.nextValue++
	f.ValueTypes[id] = t
	return id
}

// NewBlock allocates a fresh, empty basic block.
func (f *Function) NewBlock() *Block {
	id := f.nextBlock
	f.nextBlock++
	b := &Block{ID: id}
	f.Blocks[id] = b
	return b
}

// BlockOrder returns block ids in a deterministic order (ascending id),
// for passes and printers that need stable iteration over the arena map.
func (f *Function) BlockOrder() []BlockID {
	order := make([]BlockID, 0, len(f.Blocks))
	for id := range f.Blocks {
		order = append(order, id)
	}
	// Insertion order == ascending id since ids are handed out
	// sequentially and never reused, so a plain numeric sort suffices.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && order[j-1] > order[j]; j-- {
			order[j-1], order[j] = order[j], order[j-1]
		}
	}
	return order
}

// Successors returns b's terminator's target blocks, or nil if b has no
// terminator yet.
func (f *Function) Successors(id BlockID) []BlockID {
	b, ok := f.Blocks[id]
	if !ok || b.Term == nil {
		return nil
	}
	return b.Term.Successors()
}

// Predecessors computes, for every block reachable from EntryBlock, the
// set of blocks whose terminator targets it.
func (f *Function) Predecessors() map[BlockID][]BlockID {
	preds := make(map[BlockID][]BlockID)
	for _, id := range f.ReachableBlocks() {
		for _, succ := range f.Successors(id) {
			preds[succ] = append(preds[succ], id)
		}
	}
	return preds
}

// ReachableBlocks returns every block reachable from EntryBlock via a
// deterministic preorder depth-first walk that visits each block's
// successors in its terminator's order.
func (f *Function) ReachableBlocks() []BlockID {
	visited := make(map[BlockID]bool)
	var order []BlockID
	var walk func(id BlockID)
	walk = func(id BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		order = append(order, id)
		for _, succ := range f.Successors(id) {
			walk(succ)
		}
	}
	walk(f.EntryBlock)
	return order
}

// Module is a collection of MIR functions plus the struct layouts they
// reference, lowered from one source file.
type Module struct {
	Name      string
	Functions map[string]*Function
	Structs   map[string]*types.Struct
}

// NewModule creates an empty Module.
func NewModule(name string) *Module {
	return &Module{
		Name:      name,
		Functions: make(map[string]*Function),
		Structs:   make(map[string]*types.Struct),
	}
}
