package types

import (
	"fmt"

	"github.com/xizheyin/callgraph4rs/internal/symbols"
)

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// ArgsID identifies an interned generic argument list.
type ArgsID uint32

// NoArgs is the empty argument list.
const NoArgs ArgsID = 0

// Region names a reference lifetime. ErasedRegion is what EraseRegions
// rewrites every region to.
type Region uint32

const ErasedRegion Region = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindInt
	KindString
	KindParam
	KindRef
	KindPtr
	KindSlice
	KindTuple
	KindNamed
	KindFnDef
	KindFnPtr
	KindDyn
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindParam:
		return "param"
	case KindRef:
		return "ref"
	case KindPtr:
		return "ptr"
	case KindSlice:
		return "slice"
	case KindTuple:
		return "tuple"
	case KindNamed:
		return "named"
	case KindFnDef:
		return "fndef"
	case KindFnPtr:
		return "fnptr"
	case KindDyn:
		return "dyn"
	case KindOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any supported type. Which fields are
// meaningful depends on Kind:
//
//	Param          Index
//	Ref            Elem, Region, Mutable
//	Ptr, Slice     Elem
//	Tuple          Args (elements)
//	Named, FnDef   Def, Args
//	FnPtr          Args (params), Elem (result)
//	Dyn, Opaque    Name (and Def for Dyn when the trait is known)
type Type struct {
	Kind    Kind
	Elem    TypeID
	Region  Region
	Mutable bool
	Index   uint32
	Def     symbols.DefID
	Args    ArgsID
	Name    string
}

// Descriptor helpers ---------------------------------------------------------

// MakeParam describes the generic parameter at position index of the
// enclosing function instance.
func MakeParam(index uint32) Type {
	return Type{Kind: KindParam, Index: index}
}

// MakeRef describes a reference with an explicit region.
func MakeRef(region Region, elem TypeID, mutable bool) Type {
	return Type{Kind: KindRef, Elem: elem, Region: region, Mutable: mutable}
}

// MakePtr describes a raw pointer.
func MakePtr(elem TypeID) Type {
	return Type{Kind: KindPtr, Elem: elem}
}

// MakeSlice describes an open-ended slice of elem.
func MakeSlice(elem TypeID) Type {
	return Type{Kind: KindSlice, Elem: elem}
}

// MakeTuple describes a tuple whose elements are the interned list elems.
func MakeTuple(elems ArgsID) Type {
	return Type{Kind: KindTuple, Args: elems}
}

// MakeNamed describes a nominal type applied to generic args.
func MakeNamed(def symbols.DefID, args ArgsID) Type {
	return Type{Kind: KindNamed, Def: def, Args: args}
}

// MakeFnDef describes the zero-sized type of a specific function item
// applied to generic args.
func MakeFnDef(def symbols.DefID, args ArgsID) Type {
	return Type{Kind: KindFnDef, Def: def, Args: args}
}

// MakeFnPtr describes a function pointer signature.
func MakeFnPtr(params ArgsID, result TypeID) Type {
	return Type{Kind: KindFnPtr, Args: params, Elem: result}
}

// MakeDyn describes a trait object. Calls dispatched on it cannot be
// resolved statically.
func MakeDyn(trait symbols.DefID, name string) Type {
	return Type{Kind: KindDyn, Def: trait, Name: name}
}

// MakeOpaque describes a type the analysis does not look into.
func MakeOpaque(name string) Type {
	return Type{Kind: KindOpaque, Name: name}
}
