package query

import (
	"cmp"
	"slices"

	"github.com/xizheyin/callgraph4rs/internal/callgraph"
	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/program"
)

// PathInfo is one transitive caller of the target set with the cheapest
// accumulated cost over any path to a target.
type PathInfo struct {
	Caller      instance.FunctionInstance
	Name        string
	Constraints int
	Crossings   int
}

// Compare orders by (name, constraints, crossings).
func (p PathInfo) Compare(o PathInfo) int {
	if c := cmp.Compare(p.Name, o.Name); c != 0 {
		return c
	}
	if c := cmp.Compare(p.Constraints, o.Constraints); c != 0 {
		return c
	}
	return cmp.Compare(p.Crossings, o.Crossings)
}

// cost is compared lexicographically: constraints first.
type cost struct {
	constraints int
	crossings   int
}

func (c cost) add(o cost) cost {
	return cost{c.constraints + o.constraints, c.crossings + o.crossings}
}

func (c cost) less(o cost) bool {
	if c.constraints != o.constraints {
		return c.constraints < o.constraints
	}
	return c.crossings < o.crossings
}

type contribution struct {
	caller instance.FunctionInstance
	weight cost
}

// reverse maps each callee to its callers. Several edges between the
// same pair sum their weights.
func reverse(g *callgraph.CallGraph) map[instance.FunctionInstance][]contribution {
	type pair struct{ callee, caller instance.FunctionInstance }
	index := make(map[pair]int)
	rev := make(map[instance.FunctionInstance][]contribution)
	for _, e := range g.Edges() {
		w := cost{constraints: e.ConstraintDepth}
		if !e.SameModule {
			w.crossings = 1
		}
		key := pair{e.Callee, e.Caller}
		if i, ok := index[key]; ok {
			rev[e.Callee][i].weight = rev[e.Callee][i].weight.add(w)
			continue
		}
		index[key] = len(rev[e.Callee])
		rev[e.Callee] = append(rev[e.Callee], contribution{caller: e.Caller, weight: w})
	}
	return rev
}

// TargetsMatching returns the callees of g selected by target, in
// first-call order.
func TargetsMatching(g *callgraph.CallGraph, namer program.Namer, target Target) []instance.FunctionInstance {
	seen := make(map[instance.FunctionInstance]bool)
	var out []instance.FunctionInstance
	for _, e := range g.Edges() {
		if _, done := seen[e.Callee]; done {
			continue
		}
		ok := target.Matches(namer, e.Callee)
		seen[e.Callee] = ok
		if ok {
			out = append(out, e.Callee)
		}
	}
	return out
}

// FindCallers returns every instance with a call path to a target,
// sorted by (constraints, name, crossings). The bool is false when no
// target matched or nothing calls the targets.
//
// A target that calls a target, itself included, is listed with the
// cost of that path.
func FindCallers(g *callgraph.CallGraph, namer program.Namer, target Target) ([]PathInfo, bool) {
	targets := TargetsMatching(g, namer, target)
	if len(targets) == 0 {
		return nil, false
	}
	rev := reverse(g)

	// dist is the cheapest cost from a node to any target; targets are 0.
	dist := make(map[instance.FunctionInstance]cost, len(targets))
	queue := make([]instance.FunctionInstance, 0, len(targets))
	for _, t := range targets {
		dist[t] = cost{}
		queue = append(queue, t)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		base := dist[cur]
		for _, c := range rev[cur] {
			cand := base.add(c.weight)
			if old, ok := dist[c.caller]; ok && !cand.less(old) {
				continue
			}
			dist[c.caller] = cand
			queue = append(queue, c.caller)
		}
	}

	// callerCost differs from dist only for targets, whose dist is 0.
	callerCost := make(map[instance.FunctionInstance]cost)
	for callee, d := range dist {
		for _, c := range rev[callee] {
			cand := d.add(c.weight)
			if old, ok := callerCost[c.caller]; !ok || cand.less(old) {
				callerCost[c.caller] = cand
			}
		}
	}
	if len(callerCost) == 0 {
		return nil, false
	}

	out := make([]PathInfo, 0, len(callerCost))
	for inst, c := range callerCost {
		out = append(out, PathInfo{
			Caller:      inst,
			Name:        namer.DisplayName(inst, true),
			Constraints: c.constraints,
			Crossings:   c.crossings,
		})
	}
	slices.SortFunc(out, func(a, b PathInfo) int {
		if c := cmp.Compare(a.Constraints, b.Constraints); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Crossings, b.Crossings); c != 0 {
			return c
		}
		return a.Caller.Compare(b.Caller)
	})
	return out, true
}
