// Package program defines the query surface the call-graph core consumes
// from a host type/IR system, plus an in-memory implementation.
package program

import (
	"iter"

	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/ir"
	"github.com/xizheyin/callgraph4rs/internal/symbols"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

// DefKind classifies a definition for callee handling.
type DefKind uint8

const (
	DefOther DefKind = iota
	DefFn
	DefAssocFn
	DefTraitMethod
	DefClosure
	DefForeign
)

func (k DefKind) String() string {
	switch k {
	case DefFn:
		return "fn"
	case DefAssocFn:
		return "assoc-fn"
	case DefTraitMethod:
		return "trait-method"
	case DefClosure:
		return "closure"
	case DefForeign:
		return "foreign"
	default:
		return "other"
	}
}

// Candidate is a definition that may be the target of an indirect call.
// Sig is a KindFnPtr type.
type Candidate struct {
	Def  symbols.DefID
	Kind DefKind
	Sig  types.TypeID
}

// Namer renders definitions and instances for reports and queries.
type Namer interface {
	// DisplayName renders "path" or "path[Args]"; unresolved instances
	// render as "path (non-instance)".
	DisplayName(inst instance.FunctionInstance, withArgs bool) string
	DefPath(def symbols.DefID) string
	StableHash(def symbols.DefID) string
	Module(def symbols.DefID) string
	Version(def symbols.DefID) string
}

// Model is the read-only program surface used by the resolver and the
// builder. Implementations must be deterministic.
type Model interface {
	Types() *types.Interner
	Roots() []instance.FunctionInstance
	Body(inst instance.FunctionInstance) (*ir.Body, bool)
	// Substitute applies caller's type arguments to t. Errors are
	// *SubstitutionError.
	Substitute(caller instance.FunctionInstance, t types.TypeID) (types.TypeID, error)
	// Resolve finds the implementing instance for a call of def with
	// concrete args. ok=false with a nil error means "no unique
	// implementation". Errors are *ResolutionError.
	Resolve(def symbols.DefID, args types.ArgsID) (inst instance.FunctionInstance, ok bool, err error)
	TrivialResolve(def symbols.DefID) (instance.FunctionInstance, bool)
	Candidates() iter.Seq[Candidate]
	DefKind(def symbols.DefID) DefKind
	Namer
}

// ReportName is the display name with the stable hash appended, as used
// in report listings.
func ReportName(n Namer, inst instance.FunctionInstance, withArgs bool) string {
	return n.DisplayName(inst, withArgs) + " [" + n.StableHash(inst.Def) + "]"
}
