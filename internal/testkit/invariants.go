// Package testkit holds structural checks shared by tests.
package testkit

import (
	"errors"
	"fmt"

	"github.com/xizheyin/callgraph4rs/internal/callgraph"
	"github.com/xizheyin/callgraph4rs/internal/instance"
)

// CheckGraph runs the structural invariants every constructed graph must
// satisfy:
// 1) nodes are valid and distinct, and Contains agrees with Nodes
// 2) every edge endpoint is a node, and callers are concrete
// 3) constraint depths are non-negative and Seq never decreases
// 4) with deduped set, each (caller, callee) pair appears once
// 5) Stats counts match the node and edge lists
func CheckGraph(g *callgraph.CallGraph, deduped bool) error {
	if g == nil {
		return errors.New("nil graph")
	}
	var errs []error
	seen := make(map[instance.FunctionInstance]struct{}, len(g.Nodes()))
	for _, n := range g.Nodes() {
		if !n.IsValid() {
			errs = append(errs, fmt.Errorf("invalid node %v", n))
		}
		if _, dup := seen[n]; dup {
			errs = append(errs, fmt.Errorf("node %v listed twice", n))
		}
		seen[n] = struct{}{}
		if !g.Contains(n) {
			errs = append(errs, fmt.Errorf("node %v not reported by Contains", n))
		}
	}

	type pair struct{ caller, callee instance.FunctionInstance }
	pairs := make(map[pair]int, len(g.Edges()))
	lastSeq := 0
	for i, e := range g.Edges() {
		if _, ok := seen[e.Caller]; !ok {
			errs = append(errs, fmt.Errorf("edge %d: caller %v is not a node", i, e.Caller))
		}
		if _, ok := seen[e.Callee]; !ok {
			errs = append(errs, fmt.Errorf("edge %d: callee %v is not a node", i, e.Callee))
		}
		if !e.Caller.IsConcrete() {
			errs = append(errs, fmt.Errorf("edge %d: caller %v is not concrete", i, e.Caller))
		}
		if e.ConstraintDepth < 0 {
			errs = append(errs, fmt.Errorf("edge %d: negative depth %d", i, e.ConstraintDepth))
		}
		if e.Seq < lastSeq {
			errs = append(errs, fmt.Errorf("edge %d: seq %d after %d", i, e.Seq, lastSeq))
		}
		lastSeq = e.Seq
		key := pair{e.Caller, e.Callee}
		if j, dup := pairs[key]; dup && deduped {
			errs = append(errs, fmt.Errorf("edges %d and %d share %v -> %v", j, i, e.Caller, e.Callee))
		}
		pairs[key] = i
	}

	st := g.Stats()
	if st.Nodes != len(g.Nodes()) {
		errs = append(errs, fmt.Errorf("stats report %d nodes, graph has %d", st.Nodes, len(g.Nodes())))
	}
	if st.Edges != len(g.Edges()) {
		errs = append(errs, fmt.Errorf("stats report %d edges, graph has %d", st.Edges, len(g.Edges())))
	}
	if st.EdgesBeforeDedup < st.Edges {
		errs = append(errs, fmt.Errorf("stats: %d edges before dedup < %d after", st.EdgesBeforeDedup, st.Edges))
	}
	return errors.Join(errs...)
}
