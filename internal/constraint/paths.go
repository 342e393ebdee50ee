// Package constraint computes, for each basic block of a function body,
// the shortest path from entry and how many conditional branches it
// passes through.
package constraint

import (
	"github.com/xizheyin/callgraph4rs/internal/ir"
	"github.com/xizheyin/callgraph4rs/internal/source"
)

// Constraint describes one conditional terminator on a path.
type Constraint struct {
	Block ir.BlockID
	Kind  ir.TermKind
	Span  source.Span
}

// BlockPath is the shortest path from entry to one block.
type BlockPath struct {
	Blocks      []ir.BlockID // entry first, the block itself last
	Length      int          // edge count, len(Blocks)-1
	Constraints int
	Details     []Constraint
}

// Info holds the analysis result for one body. Blocks unreachable from
// entry have no path.
type Info struct {
	paths map[ir.BlockID]*BlockPath
	order []ir.BlockID
}

// Path returns the shortest path to block.
func (info *Info) Path(block ir.BlockID) (*BlockPath, bool) {
	if info == nil {
		return nil, false
	}
	p, ok := info.paths[block]
	return p, ok
}

// Depth returns the constraint count of block.
func (info *Info) Depth(block ir.BlockID) (int, bool) {
	p, ok := info.Path(block)
	if !ok {
		return 0, false
	}
	return p.Constraints, true
}

// Reachable lists reachable blocks in discovery order.
func (info *Info) Reachable() []ir.BlockID {
	if info == nil {
		return nil
	}
	return info.order
}

// ComputeShortestPaths runs a breadth-first traversal from the entry
// block. The first discovery of a block fixes its path; successors
// newly discovered through a conditional terminator get the
// predecessor's count plus one.
func ComputeShortestPaths(body *ir.Body) *Info {
	info := &Info{paths: make(map[ir.BlockID]*BlockPath)}
	if body == nil || body.Block(body.Entry) == nil {
		return info
	}

	info.paths[body.Entry] = &BlockPath{Blocks: []ir.BlockID{body.Entry}}
	info.order = append(info.order, body.Entry)

	queue := []ir.BlockID{body.Entry}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		bb := body.Block(cur)
		if bb == nil {
			continue
		}
		from := info.paths[cur]
		conditional := bb.Term.Kind.Conditional()

		for _, succ := range bb.Term.Successors() {
			if _, seen := info.paths[succ]; seen {
				continue
			}
			if body.Block(succ) == nil {
				continue
			}
			next := &BlockPath{
				Blocks:      append(append(make([]ir.BlockID, 0, len(from.Blocks)+1), from.Blocks...), succ),
				Length:      from.Length + 1,
				Constraints: from.Constraints,
				Details:     from.Details,
			}
			if conditional {
				next.Constraints++
				next.Details = append(append(make([]Constraint, 0, len(from.Details)+1), from.Details...), Constraint{
					Block: cur,
					Kind:  bb.Term.Kind,
					Span:  bb.Term.Span,
				})
			}
			info.paths[succ] = next
			info.order = append(info.order, succ)
			queue = append(queue, succ)
		}
	}
	return info
}
