package ir

import (
	"fmt"
	"io"
	"strings"

	"github.com/xizheyin/callgraph4rs/internal/types"
)

// Dump writes a human-readable representation of a body.
func Dump(w io.Writer, b *Body, typesIn *types.Interner, names types.NameFunc) error {
	if w == nil || b == nil {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "fn %s entry=bb%d blocks=%d\n", b.Name, b.Entry, len(b.Blocks))
	for i := range b.Blocks {
		bb := &b.Blocks[i]
		fmt.Fprintf(&sb, "  bb%d:\n", bb.ID)
		for j := range bb.Instrs {
			ins := &bb.Instrs[j]
			sb.WriteString("    ")
			switch ins.Kind {
			case InstrCall:
				fmt.Fprintf(&sb, "%s %s(", ins.Call.Flavor, operandStr(typesIn, names, ins.Call.Callee))
				for k, a := range ins.Call.Args {
					if k > 0 {
						sb.WriteString(", ")
					}
					sb.WriteString(operandStr(typesIn, names, a))
				}
				sb.WriteByte(')')
			default:
				if ins.Text != "" {
					sb.WriteString(ins.Text)
				} else {
					sb.WriteString("nop")
				}
			}
			if !ins.Span.Empty() {
				fmt.Fprintf(&sb, " @ %s", ins.Span)
			}
			sb.WriteByte('\n')
		}
		sb.WriteString("    ")
		sb.WriteString(termStr(&bb.Term))
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func operandStr(typesIn *types.Interner, names types.NameFunc, op Operand) string {
	name := op.Name
	if name == "" {
		name = "_"
	}
	if typesIn == nil || op.Type == types.NoTypeID {
		return fmt.Sprintf("%s %s", op.Kind, name)
	}
	return fmt.Sprintf("%s %s: %s", op.Kind, name, typesIn.Format(op.Type, names))
}

func termStr(t *Terminator) string {
	var s string
	switch t.Kind {
	case TermGoto:
		s = fmt.Sprintf("goto bb%d", t.Goto.Target)
	case TermIf:
		s = fmt.Sprintf("if %s then bb%d else bb%d", t.If.Cond.Name, t.If.Then, t.If.Else)
	case TermSwitch:
		parts := make([]string, 0, len(t.Switch.Cases)+1)
		for _, c := range t.Switch.Cases {
			parts = append(parts, fmt.Sprintf("%d => bb%d", c.Value, c.Target))
		}
		if t.Switch.Default != NoBlockID {
			parts = append(parts, fmt.Sprintf("_ => bb%d", t.Switch.Default))
		}
		s = fmt.Sprintf("switch %s [%s]", t.Switch.Value.Name, strings.Join(parts, ", "))
	default:
		s = t.Kind.String()
	}
	if t.HasUnwind {
		s += fmt.Sprintf(" unwind bb%d", t.Unwind)
	}
	return s
}
