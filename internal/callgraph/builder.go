package callgraph

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xizheyin/callgraph4rs/internal/constraint"
	"github.com/xizheyin/callgraph4rs/internal/diag"
	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/ir"
	"github.com/xizheyin/callgraph4rs/internal/program"
	"github.com/xizheyin/callgraph4rs/internal/resolve"
	"github.com/xizheyin/callgraph4rs/internal/source"
	"github.com/xizheyin/callgraph4rs/internal/trace"
)

type Options struct {
	Dedup bool
	// Jobs bounds the constraint-analysis workers; <= 0 means GOMAXPROCS.
	Jobs int
	// MaxInstances stops expansion once that many instances were
	// visited; 0 means unlimited.
	MaxInstances int
	Policy       resolve.IndirectPolicy
	Reporter     diag.Reporter
	Tracer       trace.Tracer
}

type builder struct {
	model    program.Model
	opts     Options
	resolver *resolve.Resolver
	reporter diag.Reporter
	tracer   trace.Tracer
	g        *CallGraph
	queue    []instance.FunctionInstance
	limitHit bool
}

type expansion struct {
	inst instance.FunctionInstance
	body *ir.Body
}

// Build runs the worklist from model.Roots() until no undiscovered
// instance remains. Instances are processed in FIFO batches: the bodies
// of one batch are analyzed in parallel, while edges are emitted
// sequentially in queue order. The only error is ctx.Err().
func Build(ctx context.Context, model program.Model, opts Options) (*CallGraph, error) {
	b := &builder{
		model:    model,
		opts:     opts,
		reporter: opts.Reporter,
		tracer:   opts.Tracer,
		g:        newGraph(),
	}
	if b.reporter == nil {
		b.reporter = diag.NopReporter{}
	}
	if b.tracer == nil {
		b.tracer = trace.FromContext(ctx)
	}
	b.resolver = resolve.New(model, resolve.Options{Policy: opts.Policy, Reporter: b.reporter, Tracer: b.tracer})

	span := trace.Begin(b.tracer, trace.ScopePass, "build", trace.CurrentSpan(ctx).SpanID)
	roots := model.Roots()
	b.g.stats.Roots = len(roots)
	b.queue = append(b.queue, roots...)

	for len(b.queue) > 0 {
		if err := ctx.Err(); err != nil {
			span.End("cancelled")
			return nil, err
		}
		batch := b.queue
		b.queue = nil
		if err := b.runBatch(ctx, batch); err != nil {
			span.End("cancelled")
			return nil, err
		}
	}

	b.g.stats.Nodes = len(b.g.nodes)
	b.g.stats.EdgesBeforeDedup = len(b.g.edges)
	b.g.stats.Edges = len(b.g.edges)
	if opts.Dedup {
		removed := b.g.Dedup()
		trace.Point(b.tracer, trace.ScopePass, "dedup", fmt.Sprintf("%d -> %d edges", b.g.stats.EdgesBeforeDedup, len(b.g.edges)),
			"removed", strconv.Itoa(removed))
	}

	span.WithExtra("nodes", strconv.Itoa(b.g.stats.Nodes)).
		WithExtra("edges", strconv.Itoa(len(b.g.edges))).
		WithExtra("batches", strconv.Itoa(b.g.stats.Batches)).
		End("")
	return b.g, nil
}

func (b *builder) runBatch(ctx context.Context, batch []instance.FunctionInstance) error {
	b.g.stats.Batches++

	work := make([]expansion, 0, len(batch))
	for _, inst := range batch {
		if !b.g.visit(inst) {
			continue
		}
		if body, ok := b.expandable(inst); ok {
			work = append(work, expansion{inst: inst, body: body})
		}
	}
	if len(work) == 0 {
		return nil
	}

	bodies := make([]*ir.Body, len(work))
	for i := range work {
		bodies[i] = work[i].body
	}
	infos, err := constraint.AnalyzeAll(ctx, bodies, b.opts.Jobs)
	if err != nil {
		return err
	}

	for i := range work {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.expand(work[i].inst, work[i].body, infos[i])
	}
	return nil
}

// expandable decides whether inst contributes callees.
func (b *builder) expandable(inst instance.FunctionInstance) (*ir.Body, bool) {
	if inst.IsUnresolved() {
		b.g.stats.Unresolved++
		diag.ReportInfo(b.reporter, diag.CGUnresolvedInstance, source.Span{}, "skip non-instance function: "+b.model.DisplayName(inst, true)).Emit()
		return nil, false
	}
	if b.opts.MaxInstances > 0 && b.g.stats.Expanded >= b.opts.MaxInstances {
		if !b.limitHit {
			b.limitHit = true
			diag.ReportWarning(b.reporter, diag.CGInstanceLimit, source.Span{},
				fmt.Sprintf("expanded %d instances; remaining instances are kept as leaves", b.opts.MaxInstances)).Emit()
		}
		return nil, false
	}
	body, ok := b.model.Body(inst)
	if !ok || body == nil {
		b.g.stats.MissingBodies++
		diag.ReportInfo(b.reporter, diag.CGMissingBody, source.Span{}, "skip function without body: "+b.model.DisplayName(inst, true)).Emit()
		return nil, false
	}
	if err := ir.Validate(body); err != nil {
		diag.ReportError(b.reporter, diag.CGInvalidBody, body.Span, err.Error()).Emit()
		return nil, false
	}
	b.g.stats.Expanded++
	return body, true
}

func (b *builder) expand(caller instance.FunctionInstance, body *ir.Body, info *constraint.Info) {
	callerModule := b.model.Module(caller.Def)
	before := len(b.g.edges)
	sites := 0

	for site := range body.CallSites() {
		sites++
		depth, reachable := info.Depth(site.Block)
		if !reachable {
			b.g.stats.UnreachableCalls++
			diag.ReportInfo(b.reporter, diag.CGUnreachableCall, site.Span,
				fmt.Sprintf("%s: call in bb%d is unreachable from entry", b.model.DisplayName(caller, true), site.Block)).Emit()
			continue
		}
		for _, callee := range b.resolver.Resolve(caller, site) {
			b.g.edges = append(b.g.edges, Edge{
				Caller:          caller,
				Callee:          callee,
				ConstraintDepth: depth,
				SameModule:      callerModule == b.model.Module(callee.Def),
				Block:           site.Block,
				Span:            site.Span,
				Seq:             len(b.g.edges),
			})
			if !b.g.Contains(callee) {
				b.queue = append(b.queue, callee)
			}
		}
	}
	b.g.stats.CallSites += sites

	if b.tracer.Enabled() && b.tracer.Level().ShouldEmit(trace.ScopeFunction) {
		trace.Point(b.tracer, trace.ScopeFunction, "expand", b.model.DisplayName(caller, true),
			"sites", strconv.Itoa(sites), "edges", strconv.Itoa(len(b.g.edges)-before))
	}
}
