package program

import (
	"errors"
	"fmt"
	"iter"

	"fortio.org/safecast"

	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/ir"
	"github.com/xizheyin/callgraph4rs/internal/symbols"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

var (
	errCallerNotConcrete = errors.New("caller is not a concrete instance")
	errUnknownDef        = errors.New("unknown definition")
)

// Def describes one function definition of an in-memory program.
type Def struct {
	Module   string
	Path     string
	Kind     DefKind
	Generics int
	// Sig is the declared signature as a FnPtr type; NoTypeID excludes
	// the definition from indirect-call candidates.
	Sig types.TypeID
	// Body is the generic body; operand types may mention Param(i).
	Body *ir.Body
}

type implKey struct {
	method symbols.DefID
	self   types.TypeID
}

// Program is an immutable in-memory Model.
type Program struct {
	types    *types.Interner
	defs     []Def // index 0 unused
	hashes   []string
	impls    map[implKey]symbols.DefID
	roots    []instance.FunctionInstance
	versions map[string]string
}

var _ Model = (*Program)(nil)

// Builder assembles a Program. IDs are allocated in definition order.
type Builder struct {
	p *Program
}

func NewBuilder() *Builder {
	return &Builder{p: &Program{
		types:    types.NewInterner(),
		defs:     make([]Def, 1, 16),
		hashes:   make([]string, 1, 16),
		impls:    make(map[implKey]symbols.DefID),
		versions: make(map[string]string),
	}}
}

// Types exposes the interner types must be built with.
func (b *Builder) Types() *types.Interner {
	return b.p.types
}

// Define registers a definition and returns its ID.
func (b *Builder) Define(d Def) symbols.DefID {
	n, err := safecast.Conv[uint32](len(b.p.defs))
	if err != nil {
		panic(fmt.Errorf("program: too many definitions: %w", err))
	}
	b.p.defs = append(b.p.defs, d)
	b.p.hashes = append(b.p.hashes, HashPath(d.Module, d.Path))
	return symbols.DefID(n)
}

// Fn registers a free function without a declared signature.
func (b *Builder) Fn(module, path string, generics int) symbols.DefID {
	return b.Define(Def{Module: module, Path: path, Kind: DefFn, Generics: generics})
}

// SetBody attaches a body to def.
func (b *Builder) SetBody(def symbols.DefID, body *ir.Body) {
	if int(def) < len(b.p.defs) && def.IsValid() {
		b.p.defs[def].Body = body
	}
}

// SetSig attaches a declared signature to def.
func (b *Builder) SetSig(def symbols.DefID, sig types.TypeID) {
	if int(def) < len(b.p.defs) && def.IsValid() {
		b.p.defs[def].Sig = sig
	}
}

// Impl records that trait method dispatched on self is implemented by impl.
func (b *Builder) Impl(method symbols.DefID, self types.TypeID, impl symbols.DefID) {
	b.p.impls[implKey{method: method, self: self}] = impl
}

// Root adds an entry instance.
func (b *Builder) Root(inst instance.FunctionInstance) {
	b.p.roots = append(b.p.roots, inst)
}

// ModuleVersion registers the version reported for a module.
func (b *Builder) ModuleVersion(module, version string) {
	b.p.versions[module] = version
}

// FnItem interns the type of the function item def applied to args.
func (b *Builder) FnItem(def symbols.DefID, args ...types.TypeID) types.TypeID {
	return b.p.types.FnDef(def, b.p.types.InternArgs(args))
}

// Instance builds Concrete(def, args).
func (b *Builder) Instance(def symbols.DefID, args ...types.TypeID) instance.FunctionInstance {
	return instance.Concrete(def, b.p.types.InternArgs(args))
}

// Build validates every body and returns the program. The builder must
// not be used afterwards.
func (b *Builder) Build() (*Program, error) {
	var errs []error
	for i := 1; i < len(b.p.defs); i++ {
		d := &b.p.defs[i]
		if d.Body == nil {
			continue
		}
		if err := ir.Validate(d.Body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Path, err))
		}
	}
	for _, r := range b.p.roots {
		if b.p.def(r.Def) == nil {
			errs = append(errs, fmt.Errorf("root %s: %w", r, errUnknownDef))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	p := b.p
	b.p = nil
	return p, nil
}

func (p *Program) def(id symbols.DefID) *Def {
	if !id.IsValid() || int(id) >= len(p.defs) {
		return nil
	}
	return &p.defs[id]
}

func (p *Program) Types() *types.Interner {
	return p.types
}

func (p *Program) Roots() []instance.FunctionInstance {
	return append([]instance.FunctionInstance(nil), p.roots...)
}

func (p *Program) Body(inst instance.FunctionInstance) (*ir.Body, bool) {
	if !inst.IsConcrete() {
		return nil, false
	}
	d := p.def(inst.Def)
	if d == nil || d.Body == nil || d.Kind == DefForeign {
		return nil, false
	}
	return d.Body, true
}

func (p *Program) Substitute(caller instance.FunctionInstance, t types.TypeID) (types.TypeID, error) {
	if !caller.IsConcrete() {
		return types.NoTypeID, &SubstitutionError{Caller: caller, Type: t, Err: errCallerNotConcrete}
	}
	out, err := types.NewSubst(p.types, caller.Args).Type(t)
	if err != nil {
		return types.NoTypeID, &SubstitutionError{Caller: caller, Type: t, Err: err}
	}
	return out, nil
}

func (p *Program) Resolve(def symbols.DefID, args types.ArgsID) (instance.FunctionInstance, bool, error) {
	d := p.def(def)
	if d == nil {
		return instance.FunctionInstance{}, false, &ResolutionError{Def: def, Args: args, Reason: "lookup", Err: errUnknownDef}
	}
	list := p.types.Args(args)

	if d.Kind != DefTraitMethod {
		if len(list) != d.Generics {
			return instance.FunctionInstance{}, false, &ResolutionError{
				Def: def, Args: args,
				Reason: fmt.Sprintf("%s expects %d generic args, got %d", d.Path, d.Generics, len(list)),
			}
		}
		return instance.Concrete(def, args), true, nil
	}

	if len(list) == 0 {
		return instance.FunctionInstance{}, false, &ResolutionError{Def: def, Args: args, Reason: d.Path + " is dispatched without Self"}
	}
	self := list[0]
	if tt, ok := p.types.Lookup(self); !ok || tt.Kind == types.KindDyn || !p.types.IsConcrete(self) {
		return instance.FunctionInstance{}, false, nil
	}
	if impl, ok := p.impls[implKey{method: def, self: self}]; ok {
		rest := p.types.InternArgs(list[1:])
		if id := p.def(impl); id == nil || id.Generics != len(list)-1 {
			return instance.FunctionInstance{}, false, &ResolutionError{
				Def: def, Args: args,
				Reason: fmt.Sprintf("impl def#%d does not accept %d generic args", impl, len(list)-1),
			}
		}
		return instance.Concrete(impl, rest), true, nil
	}
	if d.Body != nil {
		return instance.Concrete(def, args), true, nil
	}
	return instance.FunctionInstance{}, false, &ResolutionError{
		Def: def, Args: args,
		Reason: fmt.Sprintf("no implementation of %s for %s", d.Path, p.types.Format(self, p.DefPath)),
	}
}

func (p *Program) TrivialResolve(def symbols.DefID) (instance.FunctionInstance, bool) {
	d := p.def(def)
	if d == nil || d.Generics != 0 || d.Body == nil {
		return instance.FunctionInstance{}, false
	}
	return instance.Concrete(def, types.NoArgs), true
}

func (p *Program) Candidates() iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for i := 1; i < len(p.defs); i++ {
			d := &p.defs[i]
			if d.Sig == types.NoTypeID {
				continue
			}
			if !yield(Candidate{Def: symbols.DefID(i), Kind: d.Kind, Sig: d.Sig}) {
				return
			}
		}
	}
}

func (p *Program) DefKind(def symbols.DefID) DefKind {
	if d := p.def(def); d != nil {
		return d.Kind
	}
	return DefOther
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

func (p *Program) DefPath(def symbols.DefID) string {
	if d := p.def(def); d != nil {
		return d.Path
	}
	return fmt.Sprintf("def#%d", def)
}

func (p *Program) StableHash(def symbols.DefID) string {
	if d := p.def(def); d != nil {
		return p.hashes[def]
	}
	return HashPath("", p.DefPath(def))
}

func (p *Program) Module(def symbols.DefID) string {
	if d := p.def(def); d != nil {
		return d.Module
	}
	return ""
}

func (p *Program) Version(def symbols.DefID) string {
	module := p.Module(def)
	if v, ok := p.versions[module]; ok {
		return v
	}
	return GuessVersion(module)
}
