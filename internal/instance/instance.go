// Package instance defines the identity of a callable discovered by the
// call-graph builder.
package instance

import (
	"cmp"
	"fmt"

	"github.com/xizheyin/callgraph4rs/internal/symbols"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

// Kind tags the FunctionInstance variant.
type Kind uint8

const (
	// KindInvalid is the zero value and never names a callable.
	KindInvalid Kind = iota
	// KindConcrete is a fully substituted instantiation of a definition.
	KindConcrete
	// KindUnresolved carries only a definition; concretization was impossible.
	KindUnresolved
)

func (k Kind) String() string {
	switch k {
	case KindConcrete:
		return "concrete"
	case KindUnresolved:
		return "unresolved"
	default:
		return "invalid"
	}
}

// FunctionInstance is a comparable value; two instances are equal iff
// their kind, definition and interned argument list are equal. Args is
// always NoArgs for unresolved instances.
type FunctionInstance struct {
	Kind Kind
	Def  symbols.DefID
	Args types.ArgsID
}

// Concrete builds a monomorphized instance.
func Concrete(def symbols.DefID, args types.ArgsID) FunctionInstance {
	return FunctionInstance{Kind: KindConcrete, Def: def, Args: args}
}

// Unresolved builds a definition-only placeholder.
func Unresolved(def symbols.DefID) FunctionInstance {
	return FunctionInstance{Kind: KindUnresolved, Def: def}
}

func (fi FunctionInstance) IsValid() bool {
	return fi.Kind != KindInvalid && fi.Def.IsValid()
}

func (fi FunctionInstance) IsConcrete() bool {
	return fi.Kind == KindConcrete
}

func (fi FunctionInstance) IsUnresolved() bool {
	return fi.Kind == KindUnresolved
}

// Compare orders instances by definition, then kind, then argument list.
func (fi FunctionInstance) Compare(other FunctionInstance) int {
	if c := cmp.Compare(fi.Def, other.Def); c != 0 {
		return c
	}
	if c := cmp.Compare(fi.Kind, other.Kind); c != 0 {
		return c
	}
	return cmp.Compare(fi.Args, other.Args)
}

func (fi FunctionInstance) String() string {
	switch fi.Kind {
	case KindConcrete:
		return fmt.Sprintf("inst(def#%d, args#%d)", fi.Def, fi.Args)
	case KindUnresolved:
		return fmt.Sprintf("unresolved(def#%d)", fi.Def)
	default:
		return "invalid"
	}
}
