// Package resolve maps a call site's callee operand to the function
// instances it may invoke.
package resolve

import (
	"fmt"
	"strconv"

	"github.com/xizheyin/callgraph4rs/internal/diag"
	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/ir"
	"github.com/xizheyin/callgraph4rs/internal/program"
	"github.com/xizheyin/callgraph4rs/internal/symbols"
	"github.com/xizheyin/callgraph4rs/internal/trace"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

type Options struct {
	Policy   IndirectPolicy
	Reporter diag.Reporter
	Tracer   trace.Tracer
}

// Resolver is not safe for concurrent use; the candidate index is built
// on the first indirect call.
type Resolver struct {
	model    program.Model
	types    *types.Interner
	policy   IndirectPolicy
	reporter diag.Reporter
	tracer   trace.Tracer

	bySig map[types.TypeID][]symbols.DefID
}

func New(model program.Model, opts Options) *Resolver {
	r := &Resolver{
		model:    model,
		types:    model.Types(),
		policy:   opts.Policy,
		reporter: opts.Reporter,
		tracer:   opts.Tracer,
	}
	if r.reporter == nil {
		r.reporter = diag.NopReporter{}
	}
	if r.tracer == nil {
		r.tracer = trace.Nop
	}
	return r
}

// Resolve returns the callees of site when executed by caller. The
// result is empty when the callee cannot be determined; every such gap
// is reported as a diagnostic.
func (r *Resolver) Resolve(caller instance.FunctionInstance, site ir.Site) []instance.FunctionInstance {
	op := site.Call.Callee
	pre, _ := r.types.Lookup(op.Type)

	sub, err := r.model.Substitute(caller, op.Type)
	if err != nil {
		if op.Kind == ir.OperandConst && pre.Kind == types.KindFnDef {
			r.warn(diag.CGSubstFailed, site, fmt.Sprintf("%s: callee %s kept as non-instance: %v", r.callerName(caller), r.model.DefPath(pre.Def), err))
			return r.done(site, []instance.FunctionInstance{instance.Unresolved(pre.Def)})
		}
		r.warn(diag.CGSubstFailedNoDef, site, fmt.Sprintf("%s: skip callee %s: %v", r.callerName(caller), operandName(op), err))
		return r.done(site, nil)
	}

	post, _ := r.types.Lookup(sub)
	switch post.Kind {
	case types.KindFnDef:
		return r.done(site, r.direct(caller, site, post.Def, post.Args))
	case types.KindFnPtr:
		return r.done(site, r.indirect(sub))
	default:
		r.warn(diag.CGUnclassifiedCallee, site, fmt.Sprintf("%s: callee %s has type %s", r.callerName(caller), operandName(op), r.types.Format(sub, r.model.DefPath)))
		return r.done(site, nil)
	}
}

func (r *Resolver) direct(caller instance.FunctionInstance, site ir.Site, def symbols.DefID, args types.ArgsID) []instance.FunctionInstance {
	if r.model.DefKind(def) == program.DefOther {
		diag.ReportError(r.reporter, diag.CGUnknownDefKind, site.Span, fmt.Sprintf("%s: unknown call type for %s", r.callerName(caller), r.model.DefPath(def))).Emit()
		return nil
	}

	inst, ok, err := r.model.Resolve(def, args)
	if err != nil {
		diag.ReportError(r.reporter, diag.CGResolveError, site.Span, fmt.Sprintf("%s: %v", r.callerName(caller), err)).Emit()
		return nil
	}
	if ok {
		return []instance.FunctionInstance{inst}
	}

	path := r.model.DefPath(def)
	r.warn(diag.CGResolveAbstract, site, fmt.Sprintf("resolve %s[%s] failed, trying trivial resolution", path, r.types.FormatArgs(args, r.model.DefPath)))
	if inst, ok := r.model.TrivialResolve(def); ok {
		return []instance.FunctionInstance{inst}
	}
	r.warn(diag.CGTrivialResolveFailed, site, fmt.Sprintf("trivial resolution of %s failed, using non-instance", path))
	return []instance.FunctionInstance{instance.Unresolved(def)}
}

// indirect fans a function-pointer call out to every admitted candidate
// whose region-erased signature equals the call's.
func (r *Resolver) indirect(sig types.TypeID) []instance.FunctionInstance {
	if r.bySig == nil {
		r.buildIndex()
	}
	defs := r.bySig[r.types.EraseRegions(sig)]
	if len(defs) == 0 {
		return nil
	}
	out := make([]instance.FunctionInstance, 0, len(defs))
	for _, def := range defs {
		if inst, ok := r.model.TrivialResolve(def); ok {
			out = append(out, inst)
			continue
		}
		out = append(out, instance.Unresolved(def))
	}
	return out
}

func (r *Resolver) buildIndex() {
	r.bySig = make(map[types.TypeID][]symbols.DefID)
	seen := make(map[symbols.DefID]struct{})
	for c := range r.model.Candidates() {
		if !r.policy.Admits(c.Kind) {
			continue
		}
		if tt, ok := r.types.Lookup(c.Sig); !ok || tt.Kind != types.KindFnPtr {
			continue
		}
		if _, dup := seen[c.Def]; dup {
			continue
		}
		seen[c.Def] = struct{}{}
		key := r.types.EraseRegions(c.Sig)
		r.bySig[key] = append(r.bySig[key], c.Def)
	}
	trace.Point(r.tracer, trace.ScopePass, "indirect-index", r.policy.String(),
		"candidates", strconv.Itoa(len(seen)), "signatures", strconv.Itoa(len(r.bySig)))
}

func (r *Resolver) warn(code diag.Code, site ir.Site, msg string) {
	diag.ReportWarning(r.reporter, code, site.Span, msg).Emit()
}

func (r *Resolver) done(site ir.Site, callees []instance.FunctionInstance) []instance.FunctionInstance {
	if r.tracer.Enabled() && r.tracer.Level().ShouldEmit(trace.ScopeSite) {
		trace.Point(r.tracer, trace.ScopeSite, "resolve", site.Span.String(),
			"block", strconv.Itoa(int(site.Block)), "callees", strconv.Itoa(len(callees)))
	}
	return callees
}

func (r *Resolver) callerName(caller instance.FunctionInstance) string {
	return r.model.DisplayName(caller, true)
}

func operandName(op ir.Operand) string {
	if op.Name == "" {
		return op.Kind.String() + " operand"
	}
	return op.Name
}
