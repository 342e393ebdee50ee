package callgraph_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/xizheyin/callgraph4rs/internal/callgraph"
	"github.com/xizheyin/callgraph4rs/internal/diag"
	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/ir"
	"github.com/xizheyin/callgraph4rs/internal/program"
	"github.com/xizheyin/callgraph4rs/internal/resolve"
	"github.com/xizheyin/callgraph4rs/internal/symbols"
	"github.com/xizheyin/callgraph4rs/internal/testkit"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

func callBlock(id ir.BlockID, term ir.Terminator, callees ...types.TypeID) ir.Block {
	blk := ir.Block{ID: id, Term: term}
	for i, c := range callees {
		blk.Instrs = append(blk.Instrs, ir.Call(ir.ConstFn(fmt.Sprintf("c%d", i), c)))
	}
	return blk
}

func straight(name string, callees ...types.TypeID) *ir.Body {
	return &ir.Body{Name: name, Blocks: []ir.Block{callBlock(0, ir.Return(), callees...)}}
}

func build(t *testing.T, b *program.Builder, opts callgraph.Options) (*program.Program, *callgraph.CallGraph, *diag.Bag) {
	t.Helper()
	p, err := b.Build()
	if err != nil {
		t.Fatalf("program build: %v", err)
	}
	bag := diag.NewBag(0)
	opts.Reporter = diag.BagReporter{Bag: bag}
	g, err := callgraph.Build(context.Background(), p, opts)
	if err != nil {
		t.Fatalf("callgraph build: %v", err)
	}
	if err := testkit.CheckGraph(g, opts.Dedup); err != nil {
		t.Fatalf("graph invariants: %v", err)
	}
	return p, g, bag
}

func TestGenericInstancesAreDistinct(t *testing.T) {
	b := program.NewBuilder()
	tys := b.Types()
	bi := tys.Builtins()
	identity := b.Define(program.Def{Module: "app", Path: "app.identity", Kind: program.DefFn, Generics: 1, Body: straight("identity")})
	main := b.Define(program.Def{Module: "app", Path: "app.main", Kind: program.DefFn,
		Body: straight("main", b.FnItem(identity, bi.Int), b.FnItem(identity, bi.String))})
	b.Root(b.Instance(main))
	atInt := b.Instance(identity, bi.Int)
	atString := b.Instance(identity, bi.String)

	_, g, _ := build(t, b, callgraph.Options{})
	edges := g.Edges()
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
	if edges[0].Callee != atInt || edges[1].Callee != atString {
		t.Fatalf("unexpected callees: %v, %v", edges[0].Callee, edges[1].Callee)
	}
	for _, e := range edges {
		if e.ConstraintDepth != 0 {
			t.Fatalf("expected depth 0, got %d", e.ConstraintDepth)
		}
		if !e.SameModule {
			t.Fatalf("expected same-module edge")
		}
	}
	if n := len(g.Nodes()); n != 3 {
		t.Fatalf("expected 3 nodes, got %d", n)
	}
}

func TestBranchCallsHaveDepthOne(t *testing.T) {
	b := program.NewBuilder()
	tys := b.Types()
	gDef := b.Define(program.Def{Module: "app", Path: "app.g", Kind: program.DefFn, Body: straight("g")})
	hDef := b.Define(program.Def{Module: "lib", Path: "lib.h", Kind: program.DefFn, Body: straight("h")})
	cond := ir.Value("cond", tys.Builtins().Bool)
	f := b.Define(program.Def{Module: "app", Path: "app.f", Kind: program.DefFn, Body: &ir.Body{
		Name: "f",
		Blocks: []ir.Block{
			{ID: 0, Term: ir.If(cond, 1, 2)},
			callBlock(1, ir.Goto(3), b.FnItem(gDef)),
			callBlock(2, ir.Goto(3), b.FnItem(hDef)),
			{ID: 3, Term: ir.Return()},
		},
	}})
	b.Root(b.Instance(f))

	_, g, _ := build(t, b, callgraph.Options{})
	edges := g.Edges()
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
	for _, e := range edges {
		if e.ConstraintDepth != 1 {
			t.Errorf("%v -> %v: expected depth 1, got %d", e.Caller, e.Callee, e.ConstraintDepth)
		}
	}
	if !edges[0].SameModule || edges[1].SameModule {
		t.Fatalf("module flags wrong: %v %v", edges[0].SameModule, edges[1].SameModule)
	}
}

func TestMutualRecursionTerminates(t *testing.T) {
	b := program.NewBuilder()
	p := b.Fn("app", "app.p", 0)
	q := b.Fn("app", "app.q", 0)
	b.SetBody(p, straight("p", b.FnItem(q)))
	b.SetBody(q, straight("q", b.FnItem(p)))
	b.Root(b.Instance(p))

	_, g, _ := build(t, b, callgraph.Options{})
	if len(g.Nodes()) != 2 || len(g.Edges()) != 2 {
		t.Fatalf("expected 2 nodes and 2 edges, got %d and %d", len(g.Nodes()), len(g.Edges()))
	}
}

// chainBody places a call to callee at depth 3 (bb3) and at depth 1 (bb4).
func chainBody(tys *types.Interner, callee types.TypeID) *ir.Body {
	cond := ir.Value("c", tys.Builtins().Bool)
	return &ir.Body{Name: "f", Blocks: []ir.Block{
		{ID: 0, Term: ir.If(cond, 1, 4)},
		{ID: 1, Term: ir.If(cond, 2, 5)},
		{ID: 2, Term: ir.If(cond, 3, 5)},
		callBlock(3, ir.Goto(5), callee),
		callBlock(4, ir.Goto(5), callee),
		{ID: 5, Term: ir.Return()},
	}}
}

func TestDedupKeepsMinimumDepth(t *testing.T) {
	b := program.NewBuilder()
	gDef := b.Define(program.Def{Module: "app", Path: "app.g", Kind: program.DefFn, Body: straight("g")})
	f := b.Define(program.Def{Module: "app", Path: "app.f", Kind: program.DefFn, Body: chainBody(b.Types(), b.FnItem(gDef))})
	b.Root(b.Instance(f))

	_, g, _ := build(t, b, callgraph.Options{Dedup: true})
	edges := g.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge after dedup, got %d", len(edges))
	}
	if edges[0].ConstraintDepth != 1 || edges[0].Block != 4 {
		t.Fatalf("expected depth-1 edge from bb4, got depth %d in bb%d", edges[0].ConstraintDepth, edges[0].Block)
	}
	if st := g.Stats(); st.EdgesBeforeDedup != 2 || st.Edges != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if removed := g.Dedup(); removed != 0 {
		t.Fatalf("second dedup removed %d edges", removed)
	}
}

func TestWithoutDedupKeepsEveryEdge(t *testing.T) {
	b := program.NewBuilder()
	gDef := b.Define(program.Def{Module: "app", Path: "app.g", Kind: program.DefFn, Body: straight("g")})
	f := b.Define(program.Def{Module: "app", Path: "app.f", Kind: program.DefFn, Body: chainBody(b.Types(), b.FnItem(gDef))})
	b.Root(b.Instance(f))

	_, g, _ := build(t, b, callgraph.Options{})
	depths := []int{}
	for _, e := range g.Edges() {
		depths = append(depths, e.ConstraintDepth)
	}
	if !slices.Equal(depths, []int{3, 1}) {
		t.Fatalf("unexpected depths %v", depths)
	}
}

func TestDedupTieKeepsFirst(t *testing.T) {
	a := instance.Concrete(1, types.NoArgs)
	c := instance.Concrete(2, types.NoArgs)
	d := instance.Concrete(3, types.NoArgs)
	g := callgraph.FromParts(nil, []callgraph.Edge{
		{Caller: a, Callee: c, ConstraintDepth: 2, Seq: 0},
		{Caller: a, Callee: d, ConstraintDepth: 0, Seq: 1},
		{Caller: a, Callee: c, ConstraintDepth: 2, Seq: 2},
		{Caller: a, Callee: c, ConstraintDepth: 1, Seq: 3},
		{Caller: a, Callee: c, ConstraintDepth: 1, Seq: 4},
	})
	if removed := g.Dedup(); removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	var seqs []int
	for _, e := range g.Edges() {
		seqs = append(seqs, e.Seq)
	}
	if !slices.Equal(seqs, []int{1, 3}) {
		t.Fatalf("unexpected surviving edges %v", seqs)
	}
	if len(g.Nodes()) != 3 {
		t.Fatalf("expected endpoints as nodes, got %d", len(g.Nodes()))
	}
}

// wideProgram is a root fanning out to n leaves, each calling a shared sink.
func wideProgram(n int) *program.Builder {
	b := program.NewBuilder()
	tys := b.Types()
	cond := ir.Value("c", tys.Builtins().Bool)
	sink := b.Define(program.Def{Module: "lib", Path: "lib.sink", Kind: program.DefFn, Generics: 1, Body: straight("sink")})
	var leaves []types.TypeID
	for i := range n {
		leaf := b.Define(program.Def{Module: "app", Path: fmt.Sprintf("app.leaf%d", i), Kind: program.DefFn, Body: &ir.Body{
			Name: "leaf",
			Blocks: []ir.Block{
				{ID: 0, Term: ir.If(cond, 1, 2)},
				callBlock(1, ir.Return(), b.FnItem(sink, tys.Builtins().Int)),
				callBlock(2, ir.Return(), b.FnItem(sink, tys.Builtins().String)),
			},
		}})
		leaves = append(leaves, b.FnItem(leaf))
	}
	root := b.Define(program.Def{Module: "app", Path: "app.main", Kind: program.DefFn, Body: straight("main", leaves...)})
	b.Root(b.Instance(root))
	return b
}

func edgeKeys(p *program.Program, g *callgraph.CallGraph) []string {
	out := make([]string, 0, len(g.Edges()))
	for _, e := range g.Edges() {
		out = append(out, fmt.Sprintf("%s->%s@%d", p.DisplayName(e.Caller, true), p.DisplayName(e.Callee, true), e.ConstraintDepth))
	}
	return out
}

func TestParallelMatchesSequential(t *testing.T) {
	p1, seq, _ := build(t, wideProgram(24), callgraph.Options{Jobs: 1})
	p2, par, _ := build(t, wideProgram(24), callgraph.Options{Jobs: 8})
	if a, b := edgeKeys(p1, seq), edgeKeys(p2, par); !slices.Equal(a, b) {
		t.Fatalf("edge lists differ:\nseq=%v\npar=%v", a, b)
	}
	if len(seq.Nodes()) != 24+1+2 {
		t.Fatalf("unexpected node count %d", len(seq.Nodes()))
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	p, first, _ := build(t, wideProgram(8), callgraph.Options{Dedup: true})
	want := edgeKeys(p, first)
	for range 5 {
		p, g, _ := build(t, wideProgram(8), callgraph.Options{Dedup: true, Jobs: 4})
		if got := edgeKeys(p, g); !slices.Equal(got, want) {
			t.Fatalf("non-deterministic build:\n%v\n%v", got, want)
		}
	}
}

func TestUnreachableCallIsSkipped(t *testing.T) {
	b := program.NewBuilder()
	gDef := b.Define(program.Def{Module: "app", Path: "app.g", Kind: program.DefFn, Body: straight("g")})
	f := b.Define(program.Def{Module: "app", Path: "app.f", Kind: program.DefFn, Body: &ir.Body{
		Name: "f",
		Blocks: []ir.Block{
			{ID: 0, Term: ir.Return()},
			callBlock(1, ir.Return(), b.FnItem(gDef)),
		},
	}})
	b.Root(b.Instance(f))

	_, g, bag := build(t, b, callgraph.Options{})
	if len(g.Edges()) != 0 {
		t.Fatalf("expected no edges, got %d", len(g.Edges()))
	}
	if bag.CountByCode()[diag.CGUnreachableCall] != 1 {
		t.Fatalf("expected unreachable diagnostic, got %s", diag.FormatShort(bag.Items(), false))
	}
	if g.Stats().UnreachableCalls != 1 {
		t.Fatalf("unexpected stats %+v", g.Stats())
	}
}

func TestMissingBodyAndNonInstanceAreLeaves(t *testing.T) {
	b := program.NewBuilder()
	tys := b.Types()
	ext := b.Define(program.Def{Module: "libc", Path: "libc.write", Kind: program.DefForeign})
	gen := b.Fn("app", "app.gen", 1)
	caller := b.Define(program.Def{Module: "app", Path: "app.f", Kind: program.DefFn,
		Body: straight("f", b.FnItem(ext), b.FnItem(gen, tys.Param(3)))})
	b.Root(b.Instance(caller))

	_, g, bag := build(t, b, callgraph.Options{})
	if len(g.Edges()) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(g.Edges()))
	}
	if !g.Edges()[1].Callee.IsUnresolved() {
		t.Fatalf("expected non-instance callee, got %v", g.Edges()[1].Callee)
	}
	counts := bag.CountByCode()
	if counts[diag.CGMissingBody] != 1 || counts[diag.CGUnresolvedInstance] != 1 {
		t.Fatalf("unexpected diagnostics: %s", diag.FormatShort(bag.Items(), false))
	}
	if g.Stats().Expanded != 1 {
		t.Fatalf("expected only the root expanded, got %+v", g.Stats())
	}
}

func TestInstanceLimitKeepsLeaves(t *testing.T) {
	_, g, bag := build(t, wideProgram(4), callgraph.Options{MaxInstances: 2})
	if g.Stats().Expanded != 2 {
		t.Fatalf("expected 2 expanded, got %+v", g.Stats())
	}
	for _, e := range g.Edges() {
		if !g.Contains(e.Caller) || !g.Contains(e.Callee) {
			t.Fatalf("edge endpoint not visited: %v", e)
		}
	}
	if bag.CountByCode()[diag.CGInstanceLimit] != 1 {
		t.Fatalf("expected one limit warning, got %s", diag.FormatShort(bag.Items(), false))
	}
}

type brokenBody struct {
	*program.Program
	broken symbols.DefID
}

func (m brokenBody) Body(inst instance.FunctionInstance) (*ir.Body, bool) {
	if inst.Def == m.broken {
		return &ir.Body{Name: "broken", Blocks: []ir.Block{{ID: 0, Term: ir.Goto(7)}}}, true
	}
	return m.Program.Body(inst)
}

func TestInvalidBodyIsReported(t *testing.T) {
	b := program.NewBuilder()
	bad := b.Define(program.Def{Module: "app", Path: "app.bad", Kind: program.DefFn, Body: straight("bad")})
	b.Root(b.Instance(bad))
	p, err := b.Build()
	if err != nil {
		t.Fatalf("program build: %v", err)
	}
	bag := diag.NewBag(0)
	g, err := callgraph.Build(context.Background(), brokenBody{Program: p, broken: bad}, callgraph.Options{Reporter: diag.BagReporter{Bag: bag}})
	if err != nil {
		t.Fatalf("callgraph build: %v", err)
	}
	if len(g.Nodes()) != 1 || len(g.Edges()) != 0 {
		t.Fatalf("unexpected graph: %d nodes %d edges", len(g.Nodes()), len(g.Edges()))
	}
	if !bag.HasErrors() || bag.CountByCode()[diag.CGInvalidBody] != 1 {
		t.Fatalf("expected invalid-body error, got %s", diag.FormatShort(bag.Items(), false))
	}
}

func TestIndirectCallsFollowPolicy(t *testing.T) {
	b := program.NewBuilder()
	tys := b.Types()
	bi := tys.Builtins()
	sig := tys.FnPtr([]types.TypeID{bi.Int}, bi.Bool)
	even := b.Define(program.Def{Module: "app", Path: "app.even", Kind: program.DefFn, Sig: sig, Body: straight("even")})
	odd := b.Define(program.Def{Module: "app", Path: "app.odd", Kind: program.DefFn, Sig: sig, Body: straight("odd")})
	_ = b.Define(program.Def{Module: "app", Path: "app.main$1", Kind: program.DefClosure, Sig: sig, Body: straight("main$1")})
	main := b.Define(program.Def{Module: "app", Path: "app.main", Kind: program.DefFn, Body: &ir.Body{
		Name:   "main",
		Blocks: []ir.Block{{ID: 0, Instrs: []ir.Instr{ir.Call(ir.Value("pred", sig))}, Term: ir.Return()}},
	}})
	b.Root(b.Instance(main))

	_, g, _ := build(t, b, callgraph.Options{Policy: resolve.PolicyFunctions})
	if len(g.Edges()) != 2 {
		t.Fatalf("expected 2 indirect edges, got %d", len(g.Edges()))
	}
	if g.Edges()[0].Callee.Def != even || g.Edges()[1].Callee.Def != odd {
		t.Fatalf("unexpected indirect targets %v", g.Edges())
	}
}

func TestBuildCancelled(t *testing.T) {
	p, err := wideProgram(4).Build()
	if err != nil {
		t.Fatalf("program build: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := callgraph.Build(ctx, p, callgraph.Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
