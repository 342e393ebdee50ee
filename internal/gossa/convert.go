package gossa

import (
	gotypes "go/types"

	"fortio.org/safecast"

	"github.com/xizheyin/callgraph4rs/internal/symbols"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

// converter maps go/types types onto the interner. Only the shapes the
// resolver inspects are structural; everything else is an opaque name.
type converter struct {
	in    *types.Interner
	cache map[gotypes.Type]types.TypeID
}

func newConverter(in *types.Interner) *converter {
	return &converter{in: in, cache: make(map[gotypes.Type]types.TypeID)}
}

func (c *converter) typ(t gotypes.Type) types.TypeID {
	if t == nil {
		return c.in.Builtins().Unit
	}
	if id, ok := c.cache[t]; ok {
		return id
	}
	id := c.convert(t)
	c.cache[t] = id
	return id
}

func (c *converter) convert(t gotypes.Type) types.TypeID {
	bi := c.in.Builtins()
	switch t := t.(type) {
	case *gotypes.Basic:
		switch t.Kind() {
		case gotypes.Bool, gotypes.UntypedBool:
			return bi.Bool
		case gotypes.Int, gotypes.UntypedInt:
			return bi.Int
		case gotypes.String, gotypes.UntypedString:
			return bi.String
		}
		return c.in.Opaque(t.Name())
	case *gotypes.Pointer:
		return c.in.Ptr(c.typ(t.Elem()))
	case *gotypes.Slice:
		return c.in.Slice(c.typ(t.Elem()))
	case *gotypes.Signature:
		return c.signature(t)
	case *gotypes.Tuple:
		return c.in.Tuple(c.list(t)...)
	case *gotypes.TypeParam:
		if idx, err := safecast.Conv[uint32](t.Index()); err == nil {
			return c.in.Param(idx)
		}
	case *gotypes.Interface:
		return c.in.Dyn(symbols.NoDefID, gotypes.TypeString(t, nil))
	case *gotypes.Named:
		if gotypes.IsInterface(t) {
			return c.in.Dyn(symbols.NoDefID, gotypes.TypeString(t, nil))
		}
	}
	return c.in.Opaque(gotypes.TypeString(t, nil))
}

func (c *converter) list(tup *gotypes.Tuple) []types.TypeID {
	out := make([]types.TypeID, 0, tup.Len())
	for i := range tup.Len() {
		out = append(out, c.typ(tup.At(i).Type()))
	}
	return out
}

// signature drops the receiver: a method value has the same type as a
// function over the remaining parameters.
func (c *converter) signature(sig *gotypes.Signature) types.TypeID {
	params := c.list(sig.Params())
	var result types.TypeID
	switch res := sig.Results(); res.Len() {
	case 0:
		result = types.NoTypeID
	case 1:
		result = c.typ(res.At(0).Type())
	default:
		result = c.in.Tuple(c.list(res)...)
	}
	return c.in.FnPtr(params, result)
}

func (c *converter) args(list []gotypes.Type) types.ArgsID {
	if len(list) == 0 {
		return types.NoArgs
	}
	ids := make([]types.TypeID, len(list))
	for i, t := range list {
		ids[i] = c.typ(t)
	}
	return c.in.InternArgs(ids)
}
