package ir

import (
	"iter"

	"github.com/xizheyin/callgraph4rs/internal/source"
)

type BlockID int32

const NoBlockID BlockID = -1

// Body is the typed control-flow graph of one function instance.
// Blocks are indexed by their ID.
type Body struct {
	Name   string
	Span   source.Span
	Entry  BlockID
	Blocks []Block
}

type Block struct {
	ID     BlockID
	Instrs []Instr
	Term   Terminator
}

func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}

// Block returns the block with the given ID or nil.
func (b *Body) Block(id BlockID) *Block {
	if b == nil || id < 0 || int(id) >= len(b.Blocks) {
		return nil
	}
	return &b.Blocks[id]
}

// Site is a call instruction located in a body.
type Site struct {
	Block BlockID
	Index int
	Call  *CallInstr
	Span  source.Span
}

// CallSites yields every call instruction in block order, then
// instruction order.
func (b *Body) CallSites() iter.Seq[Site] {
	return func(yield func(Site) bool) {
		if b == nil {
			return
		}
		for bi := range b.Blocks {
			bb := &b.Blocks[bi]
			for ii := range bb.Instrs {
				ins := &bb.Instrs[ii]
				if ins.Kind != InstrCall {
					continue
				}
				if !yield(Site{Block: bb.ID, Index: ii, Call: &ins.Call, Span: ins.Span}) {
					return
				}
			}
		}
	}
}
