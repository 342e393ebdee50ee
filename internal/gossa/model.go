package gossa

import (
	"cmp"
	"fmt"
	gotypes "go/types"
	"iter"
	"slices"
	"sync"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/ir"
	"github.com/xizheyin/callgraph4rs/internal/program"
	"github.com/xizheyin/callgraph4rs/internal/symbols"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

type def struct {
	path     string
	module   string
	kind     program.DefKind
	generics int
	fn       *ssa.Function // origin; nil for abstract methods
	sig      types.TypeID
}

// Program implements program.Model over an SSA program. Definitions
// are function origins plus the abstract interface methods that are
// invoked somewhere.
type Program struct {
	prog     *ssa.Program
	types    *types.Interner
	conv     *converter
	defs     []def // index 0 unused
	byOrigin map[*ssa.Function]symbols.DefID
	byMethod map[*gotypes.Func]symbols.DefID
	insts    map[instance.FunctionInstance]*ssa.Function
	funcs    map[*ssa.Function]instance.FunctionInstance
	roots    []instance.FunctionInstance
	versions map[string]string

	mu     sync.Mutex
	bodies map[*ssa.Function]*ir.Body
}

var _ program.Model = (*Program)(nil)

func origin(fn *ssa.Function) *ssa.Function {
	if o := fn.Origin(); o != nil {
		return o
	}
	return fn
}

func fnModule(fn *ssa.Function) string {
	if fn.Pkg != nil {
		return fn.Pkg.Pkg.Path()
	}
	if obj := fn.Object(); obj != nil && obj.Pkg() != nil {
		return obj.Pkg().Path()
	}
	return ""
}

func fnKind(fn *ssa.Function) program.DefKind {
	switch {
	case fn.Parent() != nil:
		return program.DefClosure
	case len(fn.Blocks) == 0 && fn.TypeParams().Len() == 0:
		return program.DefForeign
	case fn.Signature.Recv() != nil:
		return program.DefAssocFn
	default:
		return program.DefFn
	}
}

func sortFuncs(fns []*ssa.Function) {
	slices.SortFunc(fns, func(a, b *ssa.Function) int {
		if c := cmp.Compare(a.String(), b.String()); c != 0 {
			return c
		}
		return cmp.Compare(a.Pos(), b.Pos())
	})
}

// FromSSA wraps a built SSA program. pkgs are the initial packages
// roots are drawn from.
func FromSSA(prog *ssa.Program, pkgs []*ssa.Package, opts Options) *Program {
	in := types.NewInterner()
	p := &Program{
		prog:     prog,
		types:    in,
		conv:     newConverter(in),
		defs:     make([]def, 1, 64),
		byOrigin: make(map[*ssa.Function]symbols.DefID),
		byMethod: make(map[*gotypes.Func]symbols.DefID),
		insts:    make(map[instance.FunctionInstance]*ssa.Function),
		funcs:    make(map[*ssa.Function]instance.FunctionInstance),
		versions: opts.Versions,
		bodies:   make(map[*ssa.Function]*ir.Body),
	}

	all := make([]*ssa.Function, 0, 256)
	for fn := range ssautil.AllFunctions(prog) {
		all = append(all, fn)
	}
	sortFuncs(all)

	origins := make([]*ssa.Function, 0, len(all))
	seen := make(map[*ssa.Function]bool, len(all))
	for _, fn := range all {
		if o := origin(fn); !seen[o] {
			seen[o] = true
			origins = append(origins, o)
		}
	}
	sortFuncs(origins)
	for _, o := range origins {
		p.addOrigin(o)
	}
	p.addInvokedMethods(all)

	for _, fn := range all {
		inst := instance.Concrete(p.byOrigin[origin(fn)], p.conv.args(fn.TypeArgs()))
		p.insts[inst] = fn
		p.funcs[fn] = inst
	}
	p.roots = p.pickRoots(pkgs, opts)
	return p
}

func (p *Program) addOrigin(o *ssa.Function) {
	d := def{
		path:     o.String(),
		module:   fnModule(o),
		kind:     fnKind(o),
		generics: o.TypeParams().Len(),
		fn:       o,
	}
	if d.generics == 0 && len(o.Blocks) > 0 {
		d.sig = p.conv.signature(o.Signature)
	}
	p.byOrigin[o] = p.define(d)
}

func (p *Program) define(d def) symbols.DefID {
	id := symbols.DefID(len(p.defs))
	p.defs = append(p.defs, d)
	return id
}

// addInvokedMethods registers every interface method used in an invoke
// call, ordered by full name.
func (p *Program) addInvokedMethods(all []*ssa.Function) {
	var methods []*gotypes.Func
	seen := make(map[*gotypes.Func]bool)
	for _, fn := range all {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				call, ok := instr.(ssa.CallInstruction)
				if !ok || !call.Common().IsInvoke() {
					continue
				}
				if m := call.Common().Method; !seen[m] {
					seen[m] = true
					methods = append(methods, m)
				}
			}
		}
	}
	slices.SortFunc(methods, func(a, b *gotypes.Func) int {
		return cmp.Compare(a.FullName(), b.FullName())
	})
	for _, m := range methods {
		module := ""
		if m.Pkg() != nil {
			module = m.Pkg().Path()
		}
		p.byMethod[m] = p.define(def{path: m.FullName(), module: module, kind: program.DefTraitMethod, generics: 1})
	}
}

func concreteFn(fn *ssa.Function) bool {
	return fn.TypeParams().Len() == 0 && len(fn.Blocks) > 0
}

func (p *Program) pickRoots(pkgs []*ssa.Package, opts Options) []instance.FunctionInstance {
	var fns []*ssa.Function
	switch {
	case opts.EntryPoint != "":
		for fn := range p.funcs {
			if concreteFn(fn) && (fn.Name() == opts.EntryPoint || fn.String() == opts.EntryPoint) {
				fns = append(fns, fn)
			}
		}
	default:
		for _, pkg := range ssautil.MainPackages(pkgs) {
			for _, name := range []string{"init", "main"} {
				if fn := pkg.Func(name); fn != nil {
					fns = append(fns, fn)
				}
			}
		}
		if len(fns) == 0 {
			fns = p.packageFunctions(pkgs)
		}
	}
	sortFuncs(fns)
	roots := make([]instance.FunctionInstance, 0, len(fns))
	for _, fn := range fns {
		if inst, ok := p.funcs[fn]; ok {
			roots = append(roots, inst)
		}
	}
	return roots
}

// packageFunctions lists the package-level functions and methods of
// pkgs that have a concrete body.
func (p *Program) packageFunctions(pkgs []*ssa.Package) []*ssa.Function {
	var out []*ssa.Function
	seen := make(map[*ssa.Function]bool)
	for _, pkg := range pkgs {
		if pkg == nil {
			continue
		}
		for _, mem := range pkg.Members {
			switch mem := mem.(type) {
			case *ssa.Function:
				if concreteFn(mem) {
					out = append(out, mem)
				}
			case *ssa.Type:
				named, ok := mem.Type().(*gotypes.Named)
				if !ok || named.TypeParams().Len() > 0 || gotypes.IsInterface(named) {
					continue
				}
				// Pointer method sets repeat value methods as wrappers
				// without a package, which the Pkg check drops.
				for _, recv := range []gotypes.Type{named, gotypes.NewPointer(named)} {
					mset := p.prog.MethodSets.MethodSet(recv)
					for i := range mset.Len() {
						fn := p.prog.MethodValue(mset.At(i))
						if fn != nil && fn.Pkg == pkg && concreteFn(fn) && !seen[fn] {
							seen[fn] = true
							out = append(out, fn)
						}
					}
				}
			}
		}
	}
	return out
}

func (p *Program) def(id symbols.DefID) *def {
	if !id.IsValid() || int(id) >= len(p.defs) {
		return nil
	}
	return &p.defs[id]
}

func (p *Program) Types() *types.Interner {
	return p.types
}

func (p *Program) Roots() []instance.FunctionInstance {
	return p.roots
}

// Function returns the SSA function behind inst.
func (p *Program) Function(inst instance.FunctionInstance) (*ssa.Function, bool) {
	fn, ok := p.insts[inst]
	return fn, ok
}

func (p *Program) Body(inst instance.FunctionInstance) (*ir.Body, bool) {
	if !inst.IsConcrete() {
		return nil, false
	}
	fn, ok := p.insts[inst]
	if !ok || len(fn.Blocks) == 0 {
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bodies[fn]; ok {
		return b, true
	}
	b := p.lower(fn)
	p.bodies[fn] = b
	return b, true
}

func (p *Program) Substitute(caller instance.FunctionInstance, t types.TypeID) (types.TypeID, error) {
	if !caller.IsConcrete() {
		return types.NoTypeID, &program.SubstitutionError{Caller: caller, Type: t, Err: fmt.Errorf("caller is not an instance")}
	}
	out, err := types.NewSubst(p.types, caller.Args).Type(t)
	if err != nil {
		return types.NoTypeID, &program.SubstitutionError{Caller: caller, Type: t, Err: err}
	}
	return out, nil
}

func (p *Program) Resolve(id symbols.DefID, args types.ArgsID) (instance.FunctionInstance, bool, error) {
	d := p.def(id)
	if d == nil {
		return instance.FunctionInstance{}, false, &program.ResolutionError{Def: id, Args: args, Reason: "unknown definition"}
	}
	if d.kind == program.DefTraitMethod {
		// Interface dispatch has no unique static target.
		return instance.FunctionInstance{}, false, nil
	}
	if n := p.types.ArgsLen(args); n != d.generics {
		return instance.FunctionInstance{}, false, &program.ResolutionError{
			Def: id, Args: args,
			Reason: fmt.Sprintf("%s expects %d type arguments, got %d", d.path, d.generics, n),
		}
	}
	return instance.Concrete(id, args), true, nil
}

func (p *Program) TrivialResolve(id symbols.DefID) (instance.FunctionInstance, bool) {
	d := p.def(id)
	if d == nil || d.fn == nil || !concreteFn(d.fn) {
		return instance.FunctionInstance{}, false
	}
	return instance.Concrete(id, types.NoArgs), true
}

func (p *Program) Candidates() iter.Seq[program.Candidate] {
	return func(yield func(program.Candidate) bool) {
		for i := 1; i < len(p.defs); i++ {
			d := &p.defs[i]
			if d.sig == types.NoTypeID {
				continue
			}
			if !yield(program.Candidate{Def: symbols.DefID(i), Kind: d.kind, Sig: d.sig}) {
				return
			}
		}
	}
}

func (p *Program) DefKind(id symbols.DefID) program.DefKind {
	if d := p.def(id); d != nil {
		return d.kind
	}
	return program.DefOther
}

func (p *Program) DisplayName(inst instance.FunctionInstance, withArgs bool) string {
	path := p.DefPath(inst.Def)
	if inst.IsUnresolved() {
		return path + " (non-instance)"
	}
	if withArgs && p.types.ArgsLen(inst.Args) > 0 {
		return path + "[" + p.types.FormatArgs(inst.Args, p.DefPath) + "]"
	}
	return path
}

func (p *Program) DefPath(id symbols.DefID) string {
	if d := p.def(id); d != nil {
		return d.path
	}
	return fmt.Sprintf("def#%d", id)
}

func (p *Program) StableHash(id symbols.DefID) string {
	return program.HashPath(p.Module(id), p.DefPath(id))
}

func (p *Program) Module(id symbols.DefID) string {
	if d := p.def(id); d != nil {
		return d.module
	}
	return ""
}

// Version is the module version of the package declaring id, or a
// version guessed from the package path when none is known.
func (p *Program) Version(id symbols.DefID) string {
	module := p.Module(id)
	if v, ok := p.versions[module]; ok && v != "" {
		return v
	}
	return program.GuessVersion(module)
}
