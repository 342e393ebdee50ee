package types

import (
	"strconv"
	"strings"

	"github.com/xizheyin/callgraph4rs/internal/symbols"
)

// NameFunc maps a definition to its printable path.
type NameFunc func(symbols.DefID) string

// Format renders id in Go-like syntax. Named and FnDef types use names to
// print their definition; a nil names prints "def#N".
func (in *Interner) Format(id TypeID, names NameFunc) string {
	var b strings.Builder
	in.format(&b, id, names)
	return b.String()
}

// FormatArgs renders an argument list as "A, B".
func (in *Interner) FormatArgs(id ArgsID, names NameFunc) string {
	var b strings.Builder
	in.formatList(&b, id, names)
	return b.String()
}

func (in *Interner) format(b *strings.Builder, id TypeID, names NameFunc) {
	tt, ok := in.Lookup(id)
	if !ok {
		b.WriteString("<invalid>")
		return
	}
	switch tt.Kind {
	case KindUnit:
		b.WriteString("()")
	case KindBool, KindInt, KindString:
		b.WriteString(tt.Kind.String())
	case KindParam:
		b.WriteString("T")
		b.WriteString(strconv.FormatUint(uint64(tt.Index), 10))
	case KindRef:
		b.WriteByte('&')
		if tt.Region != ErasedRegion {
			b.WriteString("'r")
			b.WriteString(strconv.FormatUint(uint64(tt.Region), 10))
			b.WriteByte(' ')
		}
		if tt.Mutable {
			b.WriteString("mut ")
		}
		in.format(b, tt.Elem, names)
	case KindPtr:
		b.WriteByte('*')
		in.format(b, tt.Elem, names)
	case KindSlice:
		b.WriteString("[]")
		in.format(b, tt.Elem, names)
	case KindTuple:
		b.WriteByte('(')
		in.formatList(b, tt.Args, names)
		b.WriteByte(')')
	case KindNamed, KindFnDef:
		if tt.Kind == KindFnDef {
			b.WriteString("fn ")
		}
		b.WriteString(defName(tt.Def, names))
		if in.ArgsLen(tt.Args) > 0 {
			b.WriteByte('[')
			in.formatList(b, tt.Args, names)
			b.WriteByte(']')
		}
	case KindFnPtr:
		b.WriteString("func(")
		in.formatList(b, tt.Args, names)
		b.WriteByte(')')
		if tt.Elem != in.builtins.Unit {
			b.WriteByte(' ')
			in.format(b, tt.Elem, names)
		}
	case KindDyn:
		b.WriteString("dyn ")
		b.WriteString(tt.Name)
	case KindOpaque:
		b.WriteString(tt.Name)
	default:
		b.WriteString(tt.Kind.String())
	}
}

func (in *Interner) formatList(b *strings.Builder, id ArgsID, names NameFunc) {
	for i, a := range in.Args(id) {
		if i > 0 {
			b.WriteString(", ")
		}
		in.format(b, a, names)
	}
}

func defName(def symbols.DefID, names NameFunc) string {
	if names != nil {
		if n := names(def); n != "" {
			return n
		}
	}
	return "def#" + strconv.FormatUint(uint64(def), 10)
}
