package types

import (
	"fmt"
)

// ParamOutOfRangeError reports a generic parameter that has no binding in
// the argument list it is substituted with.
type ParamOutOfRangeError struct {
	Index uint32
	Len   int
}

func (e *ParamOutOfRangeError) Error() string {
	return fmt.Sprintf("generic parameter #%d escapes an argument list of length %d", e.Index, e.Len)
}

// Subst replaces KindParam types with the entries of Args.
// Results are memoized per input TypeID.
type Subst struct {
	Types *Interner
	Args  []TypeID

	cache map[TypeID]TypeID
}

// NewSubst prepares a substitution by the interned list args.
func NewSubst(in *Interner, args ArgsID) *Subst {
	return &Subst{Types: in, Args: in.Args(args)}
}

// Type substitutes id. It fails when a parameter index escapes Args.
func (s *Subst) Type(id TypeID) (TypeID, error) {
	if s == nil || s.Types == nil || id == NoTypeID {
		return id, nil
	}
	if s.cache == nil {
		s.cache = make(map[TypeID]TypeID, 32)
	} else if cached, ok := s.cache[id]; ok {
		return cached, nil
	}

	out, err := s.typeNoCache(id)
	if err != nil {
		return NoTypeID, err
	}
	s.cache[id] = out
	return out, nil
}

// List substitutes every element of an interned list.
func (s *Subst) List(id ArgsID) (ArgsID, error) {
	elems := s.Types.Args(id)
	if len(elems) == 0 {
		return id, nil
	}
	out := make([]TypeID, len(elems))
	changed := false
	for i, e := range elems {
		r, err := s.Type(e)
		if err != nil {
			return NoArgs, err
		}
		out[i] = r
		changed = changed || r != e
	}
	if !changed {
		return id, nil
	}
	return s.Types.InternArgs(out), nil
}

func (s *Subst) typeNoCache(id TypeID) (TypeID, error) {
	tt, ok := s.Types.Lookup(id)
	if !ok {
		return id, nil
	}

	switch tt.Kind {
	case KindParam:
		if int(tt.Index) >= len(s.Args) {
			return NoTypeID, &ParamOutOfRangeError{Index: tt.Index, Len: len(s.Args)}
		}
		return s.Args[tt.Index], nil

	case KindRef, KindPtr, KindSlice:
		elem, err := s.Type(tt.Elem)
		if err != nil {
			return NoTypeID, err
		}
		if elem == tt.Elem {
			return id, nil
		}
		clone := tt
		clone.Elem = elem
		return s.Types.Intern(clone), nil

	case KindTuple, KindNamed, KindFnDef:
		args, err := s.List(tt.Args)
		if err != nil {
			return NoTypeID, err
		}
		if args == tt.Args {
			return id, nil
		}
		clone := tt
		clone.Args = args
		return s.Types.Intern(clone), nil

	case KindFnPtr:
		params, err := s.List(tt.Args)
		if err != nil {
			return NoTypeID, err
		}
		result, err := s.Type(tt.Elem)
		if err != nil {
			return NoTypeID, err
		}
		if params == tt.Args && result == tt.Elem {
			return id, nil
		}
		clone := tt
		clone.Args = params
		clone.Elem = result
		return s.Types.Intern(clone), nil

	default:
		return id, nil
	}
}

// EraseRegions rewrites every reference region inside id to ErasedRegion.
func (in *Interner) EraseRegions(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok {
		return id
	}
	switch tt.Kind {
	case KindRef, KindPtr, KindSlice:
		elem := in.EraseRegions(tt.Elem)
		if elem == tt.Elem && tt.Region == ErasedRegion {
			return id
		}
		clone := tt
		clone.Elem = elem
		clone.Region = ErasedRegion
		return in.Intern(clone)
	case KindTuple, KindNamed, KindFnDef:
		args := in.EraseRegionsList(tt.Args)
		if args == tt.Args {
			return id
		}
		clone := tt
		clone.Args = args
		return in.Intern(clone)
	case KindFnPtr:
		params := in.EraseRegionsList(tt.Args)
		result := in.EraseRegions(tt.Elem)
		if params == tt.Args && result == tt.Elem {
			return id
		}
		clone := tt
		clone.Args = params
		clone.Elem = result
		return in.Intern(clone)
	default:
		return id
	}
}

// EraseRegionsList erases regions in every element of an interned list.
func (in *Interner) EraseRegionsList(id ArgsID) ArgsID {
	elems := in.Args(id)
	if len(elems) == 0 {
		return id
	}
	out := make([]TypeID, len(elems))
	changed := false
	for i, e := range elems {
		out[i] = in.EraseRegions(e)
		changed = changed || out[i] != e
	}
	if !changed {
		return id
	}
	return in.InternArgs(out)
}

// IsConcrete reports whether id mentions no generic parameter.
func (in *Interner) IsConcrete(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return true
	}
	switch tt.Kind {
	case KindParam:
		return false
	case KindRef, KindPtr, KindSlice:
		return in.IsConcrete(tt.Elem)
	case KindTuple, KindNamed, KindFnDef:
		return in.ArgsConcrete(tt.Args)
	case KindFnPtr:
		return in.ArgsConcrete(tt.Args) && in.IsConcrete(tt.Elem)
	default:
		return true
	}
}

// ArgsConcrete reports whether no element of the list mentions a parameter.
func (in *Interner) ArgsConcrete(id ArgsID) bool {
	for _, a := range in.Args(id) {
		if !in.IsConcrete(a) {
			return false
		}
	}
	return true
}
