package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"github.com/xizheyin/callgraph4rs/internal/symbols"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Unit   TypeID
	Bool   TypeID
	Int    TypeID
	String TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Generic argument lists are interned alongside types so that a
// (definition, args) pair is a plain comparable value.
//
// An Interner is not safe for concurrent mutation.
type Interner struct {
	types    []Type
	index    map[Type]TypeID
	args     [][]TypeID
	argIndex map[string]ArgsID
	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:    make(map[Type]TypeID, 64),
		argIndex: make(map[string]ArgsID, 64),
	}
	in.types = append(in.types, Type{Kind: KindInvalid}) // reserve 0 as invalid sentinel
	in.args = append(in.args, nil)                       // NoArgs
	in.argIndex[""] = NoArgs
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len reports how many types have been interned, the invalid sentinel included.
func (in *Interner) Len() int {
	return len(in.types)
}

// InternArgs interns a generic argument list. Equal lists share one ArgsID;
// the empty list is always NoArgs.
func (in *Interner) InternArgs(args []TypeID) ArgsID {
	key := argsKey(args)
	if id, ok := in.argIndex[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.args))
	if err != nil {
		panic(fmt.Errorf("len(args) overflow: %w", err))
	}
	id := ArgsID(n)
	in.args = append(in.args, append([]TypeID(nil), args...))
	in.argIndex[key] = id
	return id
}

// Args returns the list behind an ArgsID. The slice must not be modified.
func (in *Interner) Args(id ArgsID) []TypeID {
	if int(id) >= len(in.args) {
		return nil
	}
	return in.args[id]
}

// ArgsLen returns the length of the list behind id.
func (in *Interner) ArgsLen(id ArgsID) int {
	return len(in.Args(id))
}

// Convenience constructors ---------------------------------------------------

func (in *Interner) Param(index uint32) TypeID {
	return in.Intern(MakeParam(index))
}

func (in *Interner) Ref(region Region, elem TypeID, mutable bool) TypeID {
	return in.Intern(MakeRef(region, elem, mutable))
}

func (in *Interner) Ptr(elem TypeID) TypeID {
	return in.Intern(MakePtr(elem))
}

func (in *Interner) Slice(elem TypeID) TypeID {
	return in.Intern(MakeSlice(elem))
}

func (in *Interner) Tuple(elems ...TypeID) TypeID {
	if len(elems) == 0 {
		return in.builtins.Unit
	}
	return in.Intern(MakeTuple(in.InternArgs(elems)))
}

func (in *Interner) Named(def symbols.DefID, args ...TypeID) TypeID {
	return in.Intern(MakeNamed(def, in.InternArgs(args)))
}

func (in *Interner) FnDef(def symbols.DefID, args ArgsID) TypeID {
	return in.Intern(MakeFnDef(def, args))
}

func (in *Interner) FnPtr(params []TypeID, result TypeID) TypeID {
	if result == NoTypeID {
		result = in.builtins.Unit
	}
	return in.Intern(MakeFnPtr(in.InternArgs(params), result))
}

func (in *Interner) Dyn(trait symbols.DefID, name string) TypeID {
	return in.Intern(MakeDyn(trait, name))
}

func (in *Interner) Opaque(name string) TypeID {
	return in.Intern(MakeOpaque(name))
}

func argsKey(args []TypeID) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	return b.String()
}
