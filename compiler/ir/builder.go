package ir

import "fmt"

type (
	// Builder assembles graphs for tests and tools.
	Builder struct {
		G *Graph
	}
)

func NewBuilder(name string, result Kind) *Builder {
	return &Builder{
		G: &Graph{
			Name:   name,
			Result: result,
		},
	}
}

func (b *Builder) Block() *Block {
	blk := &Block{ID: BlockID(len(b.G.Blocks))}
	b.G.Blocks = append(b.G.Blocks, blk)

	return blk
}

// Value allocates a node without placing it into any block.
func (b *Builder) Value(n Node, k Kind) Value {
	id := Value(len(b.G.Nodes))
	b.G.Nodes = append(b.G.Nodes, n)
	b.G.Kinds = append(b.G.Kinds, k)

	return id
}

// Add allocates a node and appends it to blk.
func (b *Builder) Add(blk *Block, n Node, k Kind) Value {
	if len(blk.Code) != 0 && IsTerminator(b.G.Nodes[blk.Code[len(blk.Code)-1]]) {
		panic(fmt.Sprintf("block %d is already terminated", blk.ID))
	}

	id := b.Value(n, k)
	blk.Code = append(blk.Code, id)

	return id
}

func (b *Builder) Param(k Kind) Value {
	id := b.Value(Param{Index: len(b.G.Params)}, k)
	b.G.Params = append(b.G.Params, id)

	return id
}

func (b *Builder) Const(c Const) Value {
	return b.Value(c, c.Kind.StackKind())
}

func (b *Builder) Int(v int32) Value { return b.Const(IntConst(v)) }

// Phi creates a phi of blk and records it as local slot in the block state.
func (b *Builder) Phi(blk *Block, k Kind, local int) Value {
	if blk.State == nil {
		blk.State = &FrameState{Method: b.G.Name}
	}

	id := b.Value(Phi{Block: blk.ID}, k)

	for len(blk.State.Locals) <= local {
		blk.State.Locals = append(blk.State.Locals, Nil)
	}

	blk.State.Locals[local] = id

	return id
}

// SetInputs sets phi inputs in predecessor order.
func (b *Builder) SetInputs(phi Value, in ...Value) {
	x := b.G.Nodes[phi].(Phi)
	x.Inputs = in
	b.G.Nodes[phi] = x
}

// Terminate appends the block ending node and links the edges.
func (b *Builder) Terminate(blk *Block, n Node) Value {
	if !IsTerminator(n) {
		panic(n)
	}

	id := b.Add(blk, n, Void)

	for _, s := range Successors(n) {
		b.link(blk, b.G.Blocks[s])
	}

	return id
}

func (b *Builder) Goto(from, to *Block) Value {
	return b.Terminate(from, Goto{Target: to.ID})
}

func (b *Builder) Return(blk *Block, v Value) Value {
	return b.Terminate(blk, Return{Result: v})
}

func (b *Builder) Kill(v Value) {
	b.G.Dead.Set(v)
}

func (b *Builder) link(from, to *Block) {
	for _, s := range from.Succs {
		if s == to.ID {
			return
		}
	}

	from.Succs = append(from.Succs, to.ID)
	to.Preds = append(to.Preds, from.ID)
}
