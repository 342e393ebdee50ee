package ir_test

import (
	"bytes"
	"iter"
	"strings"
	"testing"

	"github.com/xizheyin/callgraph4rs/internal/ir"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

func collect(seq iter.Seq[ir.Site]) []ir.Site {
	var out []ir.Site
	for s := range seq {
		out = append(out, s)
	}
	return out
}

// diamond builds bb0 -if-> bb1|bb2 -> bb3 with a call in bb1 and bb3.
func diamond(typesIn *types.Interner) *ir.Body {
	fnTy := typesIn.FnDef(1, types.NoArgs)
	cond := ir.Value("c", typesIn.Builtins().Bool)
	return &ir.Body{
		Name:  "diamond",
		Entry: 0,
		Blocks: []ir.Block{
			{ID: 0, Term: ir.If(cond, 1, 2)},
			{ID: 1, Instrs: []ir.Instr{ir.Call(ir.ConstFn("g", fnTy))}, Term: ir.Goto(3)},
			{ID: 2, Term: ir.Goto(3)},
			{ID: 3, Instrs: []ir.Instr{{Kind: ir.InstrOther, Text: "x = 1"}, ir.Call(ir.ConstFn("g", fnTy))}, Term: ir.Return()},
		},
	}
}

func TestCallSitesOrder(t *testing.T) {
	body := diamond(types.NewInterner())
	sites := collect(body.CallSites())
	if len(sites) != 2 {
		t.Fatalf("expected 2 call sites, got %d", len(sites))
	}
	if sites[0].Block != 1 || sites[1].Block != 3 || sites[1].Index != 1 {
		t.Fatalf("unexpected site positions: %+v", sites)
	}
}

func TestSuccessorsIncludeUnwindLast(t *testing.T) {
	term := ir.Goto(1).WithUnwind(4)
	succ := term.Successors()
	if len(succ) != 2 || succ[0] != 1 || succ[1] != 4 {
		t.Fatalf("unexpected successors: %v", succ)
	}
	sw := ir.Switch(ir.Value("v", types.NoTypeID), []ir.SwitchCase{{Value: 0, Target: 2}, {Value: 1, Target: 3}}, ir.NoBlockID)
	if got := sw.Successors(); len(got) != 2 {
		t.Fatalf("switch without default should have 2 successors, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	body := diamond(types.NewInterner())
	if err := ir.Validate(body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body.Blocks[2].Term = ir.Goto(9)
	body.Blocks[3].Term = ir.Terminator{}
	err := ir.Validate(body)
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "missing bb9") || !strings.Contains(msg, "bb3: missing terminator") {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestDump(t *testing.T) {
	typesIn := types.NewInterner()
	body := diamond(typesIn)
	var buf bytes.Buffer
	if err := ir.Dump(&buf, body, typesIn, nil); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"fn diamond entry=bb0 blocks=4", "if c then bb1 else bb2", "call const g: fn def#1()", "return"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
