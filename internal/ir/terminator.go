package ir

import "github.com/xizheyin/callgraph4rs/internal/source"

type TermKind uint8

const (
	TermNone TermKind = iota
	TermReturn
	TermGoto
	TermIf
	TermSwitch
	TermUnreachable
)

func (k TermKind) String() string {
	switch k {
	case TermNone:
		return "none"
	case TermReturn:
		return "return"
	case TermGoto:
		return "goto"
	case TermIf:
		return "if"
	case TermSwitch:
		return "switch"
	case TermUnreachable:
		return "unreachable"
	default:
		return "term?"
	}
}

// Conditional reports whether the terminator selects among successors
// at run time.
func (k TermKind) Conditional() bool {
	return k == TermIf || k == TermSwitch
}

type Terminator struct {
	Kind TermKind
	Span source.Span

	Goto   GotoTerm
	If     IfTerm
	Switch SwitchTerm

	// Unwind is the cleanup successor taken when the block panics.
	// Only meaningful when HasUnwind is set.
	HasUnwind bool
	Unwind    BlockID
}

type GotoTerm struct {
	Target BlockID
}

type IfTerm struct {
	Cond Operand
	Then BlockID
	Else BlockID
}

type SwitchCase struct {
	Value  int64
	Target BlockID
}

type SwitchTerm struct {
	Value   Operand
	Cases   []SwitchCase
	Default BlockID
}

// Successors lists normal successors first, then the unwind successor.
// Duplicates are preserved.
func (t *Terminator) Successors() []BlockID {
	var out []BlockID
	switch t.Kind {
	case TermGoto:
		out = append(out, t.Goto.Target)
	case TermIf:
		out = append(out, t.If.Then, t.If.Else)
	case TermSwitch:
		out = make([]BlockID, 0, len(t.Switch.Cases)+2)
		for _, c := range t.Switch.Cases {
			out = append(out, c.Target)
		}
		if t.Switch.Default != NoBlockID {
			out = append(out, t.Switch.Default)
		}
	}
	if t.HasUnwind {
		out = append(out, t.Unwind)
	}
	return out
}

// Constructors used by model builders and tests.

func Return() Terminator { return Terminator{Kind: TermReturn} }

func Unreachable() Terminator { return Terminator{Kind: TermUnreachable} }

func Goto(target BlockID) Terminator {
	return Terminator{Kind: TermGoto, Goto: GotoTerm{Target: target}}
}

func If(cond Operand, then, els BlockID) Terminator {
	return Terminator{Kind: TermIf, If: IfTerm{Cond: cond, Then: then, Else: els}}
}

func Switch(value Operand, cases []SwitchCase, def BlockID) Terminator {
	return Terminator{Kind: TermSwitch, Switch: SwitchTerm{Value: value, Cases: cases, Default: def}}
}

// WithUnwind returns t with an unwind successor attached.
func (t Terminator) WithUnwind(target BlockID) Terminator {
	t.HasUnwind = true
	t.Unwind = target
	return t
}
