// Package callgraph builds the monomorphization-aware call graph of a
// program model.
package callgraph

import (
	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/ir"
	"github.com/xizheyin/callgraph4rs/internal/source"
)

// Edge is one resolved call from Caller to Callee. ConstraintDepth is
// the number of conditional branches between the caller's entry and the
// call. Seq is the discovery index.
type Edge struct {
	Caller          instance.FunctionInstance
	Callee          instance.FunctionInstance
	ConstraintDepth int
	SameModule      bool
	Block           ir.BlockID
	Span            source.Span
	Seq             int
}

// Stats summarizes one construction run.
type Stats struct {
	Roots            int
	Nodes            int
	Expanded         int
	MissingBodies    int
	Unresolved       int
	CallSites        int
	UnreachableCalls int
	EdgesBeforeDedup int
	Edges            int
	Batches          int
}

// CallGraph is the result of Build: the visited instances in discovery
// order and the accumulated edge list. It is not modified after Build
// returns except by Dedup.
type CallGraph struct {
	nodes   []instance.FunctionInstance
	visited map[instance.FunctionInstance]struct{}
	edges   []Edge
	stats   Stats
}

func newGraph() *CallGraph {
	return &CallGraph{visited: make(map[instance.FunctionInstance]struct{})}
}

// FromParts reassembles a graph from persisted nodes and edges. Edge
// endpoints missing from nodes are appended in edge order.
func FromParts(nodes []instance.FunctionInstance, edges []Edge) *CallGraph {
	g := newGraph()
	for _, n := range nodes {
		g.visit(n)
	}
	for i := range edges {
		g.visit(edges[i].Caller)
		g.visit(edges[i].Callee)
	}
	g.edges = append([]Edge(nil), edges...)
	g.stats.Nodes = len(g.nodes)
	g.stats.Edges = len(g.edges)
	g.stats.EdgesBeforeDedup = len(g.edges)
	return g
}

// visit marks inst and reports whether it was new.
func (g *CallGraph) visit(inst instance.FunctionInstance) bool {
	if _, ok := g.visited[inst]; ok {
		return false
	}
	g.visited[inst] = struct{}{}
	g.nodes = append(g.nodes, inst)
	return true
}

// Nodes returns visited instances in discovery order.
func (g *CallGraph) Nodes() []instance.FunctionInstance {
	return g.nodes
}

// Edges returns the edge list in discovery order.
func (g *CallGraph) Edges() []Edge {
	return g.edges
}

// Contains reports whether inst was visited.
func (g *CallGraph) Contains(inst instance.FunctionInstance) bool {
	_, ok := g.visited[inst]
	return ok
}

func (g *CallGraph) Stats() Stats {
	return g.stats
}

type pairKey struct {
	caller instance.FunctionInstance
	callee instance.FunctionInstance
}

// Dedup keeps, for every (caller, callee) pair, the edge with the
// minimum constraint depth; among equals the first discovered wins.
// Surviving edges keep their relative order. It returns the number of
// edges removed and is idempotent.
func (g *CallGraph) Dedup() int {
	best := make(map[pairKey]int, len(g.edges))
	for i := range g.edges {
		key := pairKey{g.edges[i].Caller, g.edges[i].Callee}
		if j, ok := best[key]; !ok || g.edges[i].ConstraintDepth < g.edges[j].ConstraintDepth {
			best[key] = i
		}
	}
	if len(best) == len(g.edges) {
		return 0
	}
	kept := make([]Edge, 0, len(best))
	for i := range g.edges {
		if best[pairKey{g.edges[i].Caller, g.edges[i].Callee}] == i {
			kept = append(kept, g.edges[i])
		}
	}
	removed := len(g.edges) - len(kept)
	g.edges = kept
	g.stats.Edges = len(kept)
	return removed
}
