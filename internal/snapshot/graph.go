package snapshot

import (
	"fmt"

	"github.com/xizheyin/callgraph4rs/internal/callgraph"
	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/ir"
	"github.com/xizheyin/callgraph4rs/internal/program"
	"github.com/xizheyin/callgraph4rs/internal/source"
	"github.com/xizheyin/callgraph4rs/internal/symbols"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

// Namer answers naming queries from the names captured at save time.
type Namer struct {
	defs  []Def
	names map[instance.FunctionInstance]Inst
}

var _ program.Namer = (*Namer)(nil)

func (n *Namer) defAt(id symbols.DefID) (Def, bool) {
	if !id.IsValid() || int(id) > len(n.defs) {
		return Def{}, false
	}
	return n.defs[id-1], true
}

func (n *Namer) DisplayName(inst instance.FunctionInstance, withArgs bool) string {
	if rec, ok := n.names[inst]; ok {
		if withArgs {
			return rec.Name
		}
		return rec.BaseName
	}
	if inst.IsUnresolved() {
		return n.DefPath(inst.Def) + " (non-instance)"
	}
	return n.DefPath(inst.Def)
}

func (n *Namer) DefPath(def symbols.DefID) string {
	if d, ok := n.defAt(def); ok {
		return d.Path
	}
	return fmt.Sprintf("def#%d", def)
}

func (n *Namer) StableHash(def symbols.DefID) string {
	d, _ := n.defAt(def)
	return d.Hash
}

func (n *Namer) Module(def symbols.DefID) string {
	d, _ := n.defAt(def)
	return d.Module
}

func (n *Namer) Version(def symbols.DefID) string {
	d, _ := n.defAt(def)
	return d.Version
}

func (s *Snapshot) instance(i uint32) (instance.FunctionInstance, error) {
	if int(i) >= len(s.Insts) {
		return instance.FunctionInstance{}, fmt.Errorf("snapshot: instance %d out of range (%d)", i, len(s.Insts))
	}
	rec := s.Insts[i]
	if rec.Def == 0 || int(rec.Def) > len(s.Defs) {
		return instance.FunctionInstance{}, fmt.Errorf("snapshot: instance %d references def %d of %d", i, rec.Def, len(s.Defs))
	}
	def := symbols.DefID(rec.Def)
	if rec.Unresolved {
		return instance.Unresolved(def), nil
	}
	return instance.Concrete(def, types.ArgsID(rec.Args)), nil
}

// Graph rebuilds the call graph and a Namer for it. Instance identity
// is preserved: two instances are equal in the result iff they were
// equal when saved.
func (s *Snapshot) Graph() (*callgraph.CallGraph, *Namer, error) {
	namer := &Namer{defs: s.Defs, names: make(map[instance.FunctionInstance]Inst, len(s.Insts))}
	insts := make([]instance.FunctionInstance, len(s.Insts))
	for i := range s.Insts {
		fi, err := s.instance(uint32(i))
		if err != nil {
			return nil, nil, err
		}
		insts[i] = fi
		namer.names[fi] = s.Insts[i]
	}
	lookup := func(i uint32) (instance.FunctionInstance, error) {
		if int(i) >= len(insts) {
			return instance.FunctionInstance{}, fmt.Errorf("snapshot: instance %d out of range (%d)", i, len(insts))
		}
		return insts[i], nil
	}

	nodes := make([]instance.FunctionInstance, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		fi, err := lookup(n)
		if err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, fi)
	}
	edges := make([]callgraph.Edge, 0, len(s.Edges))
	for _, e := range s.Edges {
		caller, err := lookup(e.Caller)
		if err != nil {
			return nil, nil, err
		}
		callee, err := lookup(e.Callee)
		if err != nil {
			return nil, nil, err
		}
		edges = append(edges, callgraph.Edge{
			Caller:          caller,
			Callee:          callee,
			ConstraintDepth: e.Depth,
			SameModule:      e.SameModule,
			Block:           ir.BlockID(e.Block),
			Span:            source.Span{File: e.File, Line: e.Line, Col: e.Col},
			Seq:             e.Seq,
		})
	}
	return callgraph.FromParts(nodes, edges), namer, nil
}
