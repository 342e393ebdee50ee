package gossa

import (
	"go/token"

	"fortio.org/safecast"
	"golang.org/x/tools/go/ssa"

	"github.com/xizheyin/callgraph4rs/internal/ir"
	"github.com/xizheyin/callgraph4rs/internal/source"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

func (p *Program) span(pos token.Pos) source.Span {
	if !pos.IsValid() || p.prog.Fset == nil {
		return source.Span{}
	}
	position := p.prog.Fset.Position(pos)
	line, err := safecast.Conv[uint32](position.Line)
	if err != nil {
		return source.Span{File: position.Filename}
	}
	col, err := safecast.Conv[uint32](position.Column)
	if err != nil {
		col = 0
	}
	return source.Span{File: position.Filename, Line: line, Col: col}
}

func blockID(b *ssa.BasicBlock) ir.BlockID {
	id, err := safecast.Conv[int32](b.Index)
	if err != nil {
		return ir.NoBlockID
	}
	return ir.BlockID(id)
}

// lower converts fn's SSA blocks into an ir.Body. Block indices are kept.
func (p *Program) lower(fn *ssa.Function) *ir.Body {
	body := &ir.Body{
		Name:   fn.String(),
		Span:   p.span(fn.Pos()),
		Entry:  0,
		Blocks: make([]ir.Block, len(fn.Blocks)),
	}
	for i, b := range fn.Blocks {
		blk := &body.Blocks[i]
		blk.ID = blockID(b)
		for j, instr := range b.Instrs {
			if call, ok := instr.(ssa.CallInstruction); ok {
				blk.Instrs = append(blk.Instrs, p.call(call))
				continue
			}
			if j == len(b.Instrs)-1 {
				// the control instruction becomes blk.Term
				continue
			}
			blk.Instrs = append(blk.Instrs, ir.Instr{Kind: ir.InstrOther, Span: p.span(instr.Pos()), Text: instr.String()})
		}
		blk.Term = p.terminator(b)
	}
	if fn.Recover != nil && len(body.Blocks) > 0 {
		body.Blocks[0].Term = body.Blocks[0].Term.WithUnwind(blockID(fn.Recover))
	}
	return body
}

func (p *Program) terminator(b *ssa.BasicBlock) ir.Terminator {
	var term ir.Terminator
	if len(b.Instrs) == 0 {
		return ir.Unreachable()
	}
	last := b.Instrs[len(b.Instrs)-1]
	switch last := last.(type) {
	case *ssa.If:
		cond := ir.Value(last.Cond.Name(), p.conv.typ(last.Cond.Type()))
		term = ir.If(cond, blockID(b.Succs[0]), blockID(b.Succs[1]))
	case *ssa.Jump:
		term = ir.Goto(blockID(b.Succs[0]))
	case *ssa.Return:
		term = ir.Return()
	default:
		// *ssa.Panic and anything unterminated.
		term = ir.Unreachable()
	}
	term.Span = p.span(last.Pos())
	return term
}

func flavor(call ssa.CallInstruction) ir.CallFlavor {
	switch call.(type) {
	case *ssa.Go:
		return ir.CallGo
	case *ssa.Defer:
		return ir.CallDefer
	default:
		return ir.CallPlain
	}
}

func (p *Program) call(call ssa.CallInstruction) ir.Instr {
	common := call.Common()
	ci := ir.CallInstr{Flavor: flavor(call), Callee: p.callee(common)}
	for _, arg := range common.Args {
		ci.Args = append(ci.Args, ir.Value(arg.Name(), p.conv.typ(arg.Type())))
	}
	return ir.Instr{Kind: ir.InstrCall, Span: p.span(call.Pos()), Call: ci}
}

// callee classifies the call target:
//   - static callee: FnDef(origin, type args)
//   - interface invoke: FnDef(method, [Dyn receiver])
//   - builtin: opaque, left unclassified
//   - anything else: the function value's signature
func (p *Program) callee(common *ssa.CallCommon) ir.Operand {
	if common.IsInvoke() {
		def := p.byMethod[common.Method]
		self := p.conv.typ(common.Value.Type())
		return ir.ConstFn(common.Method.FullName(), p.types.FnDef(def, p.types.InternArgs([]types.TypeID{self})))
	}
	if b, ok := common.Value.(*ssa.Builtin); ok {
		return ir.ConstFn(b.Name(), p.types.Opaque("builtin "+b.Name()))
	}
	if fn := common.StaticCallee(); fn != nil {
		if inst, ok := p.funcs[fn]; ok {
			return ir.ConstFn(fn.String(), p.types.FnDef(inst.Def, inst.Args))
		}
	}
	return ir.Value(common.Value.Name(), p.conv.typ(common.Signature()))
}
