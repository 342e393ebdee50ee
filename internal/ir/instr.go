package ir

import (
	"github.com/xizheyin/callgraph4rs/internal/source"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrOther is any instruction the call-graph analysis does not inspect.
	InstrOther InstrKind = iota
	// InstrCall represents a call instruction.
	InstrCall
)

type Instr struct {
	Kind InstrKind
	Span source.Span

	Call CallInstr
	// Text is a free-form rendering for InstrOther, used by Dump.
	Text string
}

// OperandKind describes how an operand is produced.
type OperandKind uint8

const (
	// OperandConst is a compile-time constant, e.g. a named function item.
	OperandConst OperandKind = iota
	// OperandCopy reads a value.
	OperandCopy
	// OperandMove consumes a value.
	OperandMove
)

func (k OperandKind) String() string {
	switch k {
	case OperandConst:
		return "const"
	case OperandCopy:
		return "copy"
	case OperandMove:
		return "move"
	default:
		return "operand?"
	}
}

// Operand carries its type as written in the generic body, before any
// substitution by the caller's arguments.
type Operand struct {
	Kind OperandKind
	Type types.TypeID
	Name string
}

// CallFlavor distinguishes plain calls from spawned or deferred ones.
type CallFlavor uint8

const (
	CallPlain CallFlavor = iota
	CallGo
	CallDefer
)

func (f CallFlavor) String() string {
	switch f {
	case CallGo:
		return "go"
	case CallDefer:
		return "defer"
	default:
		return "call"
	}
}

type CallInstr struct {
	Flavor CallFlavor
	Callee Operand
	Args   []Operand
}

// Call builds a call instruction.
func Call(callee Operand, args ...Operand) Instr {
	return Instr{Kind: InstrCall, Call: CallInstr{Callee: callee, Args: args}}
}

// ConstFn is the operand of a direct call to a function item.
func ConstFn(name string, fnType types.TypeID) Operand {
	return Operand{Kind: OperandConst, Type: fnType, Name: name}
}

// Value is the operand of an indirect call through a local value.
func Value(name string, t types.TypeID) Operand {
	return Operand{Kind: OperandCopy, Type: t, Name: name}
}
