package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestLevelShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeFunction, false},
		{LevelDetail, ScopeFunction, true},
		{LevelDetail, ScopeSite, false},
		{LevelDebug, ScopeSite, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)

	span := Begin(tr, ScopePass, "build", 0)
	Point(tr, ScopeFunction, "expand", "main", "edges", "2", "calls", "3")
	Point(tr, ScopeSite, "resolve", "dropped")
	span.WithExtra("nodes", "4").End("done")

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "expand (main) {calls=3, edges=2}") {
		t.Errorf("unexpected point line: %q", lines[1])
	}
	if !strings.Contains(lines[2], "build (done) {nodes=4}") {
		t.Errorf("unexpected end line: %q", lines[2])
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatNDJSON)
	Point(tr, ScopePass, "query", "", "target", "g")
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"name":"query"`) || !strings.Contains(buf.String(), `"target":"g"`) {
		t.Fatalf("unexpected ndjson: %s", buf.String())
	}
}

func TestStreamTracerFlushesOnSpanBoundaries(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	Point(tr, ScopePass, "load", "")
	if buf.Len() != 0 {
		t.Fatalf("point written before flush: %q", buf.String())
	}
	span := Begin(tr, ScopePass, "build", 0)
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Fatalf("begin should flush pending point, got %d lines", n)
	}
	Point(tr, ScopePass, "dedup", "")
	span.End("")
	if n := strings.Count(buf.String(), "\n"); n != 4 {
		t.Fatalf("end should flush, got %d lines:\n%s", n, buf.String())
	}
}

func TestRingTracerKeepsLastEvents(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(ring, ScopeSite, name, "")
	}
	snap := ring.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestContextCarrier(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop without tracer")
	}
	ring := NewRingTracer(4, LevelPhase)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
}

func TestParseHelpers(t *testing.T) {
	if l, err := ParseLevel("DETAIL"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel: %v %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Fatalf("ParseMode: %v %v", m, err)
	}
	if f, err := ParseFormat("ndjson"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat: %v %v", f, err)
	}
}

func TestRingLookup(t *testing.T) {
	ring := NewRingTracer(8, LevelDebug)
	multi := NewMultiTracer(LevelDebug, NewStreamTracer(&bytes.Buffer{}, LevelDebug, FormatText), ring)
	if got, ok := Ring(multi); !ok || got != ring {
		t.Fatalf("expected ring inside multi tracer")
	}
	if _, ok := Ring(Nop); ok {
		t.Fatalf("nop tracer has no ring")
	}
}

func TestSpanNestingAndDuration(t *testing.T) {
	ring := NewRingTracer(16, LevelDetail)
	root := Begin(ring, ScopeDriver, "cg build", 0)
	ctx := WithSpan(WithTracer(context.Background(), ring), root)
	if got := CurrentSpan(ctx).SpanID; got != root.ID() || got == 0 {
		t.Fatalf("CurrentSpan = %d, want %d", got, root.ID())
	}
	child := root.Child(ScopePass, "build")
	child.End("")
	root.End("")

	snap := ring.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("expected 4 events, got %d", len(snap))
	}
	if snap[1].ParentID != root.ID() || snap[2].Kind != KindSpanEnd || snap[2].SpanID != child.ID() {
		t.Fatalf("unexpected child events: %+v %+v", snap[1], snap[2])
	}
	if snap[3].Dur < snap[2].Dur {
		t.Fatalf("root duration %v shorter than child %v", snap[3].Dur, snap[2].Dur)
	}
	for i := 1; i < len(snap); i++ {
		if snap[i].Seq <= snap[i-1].Seq {
			t.Fatalf("seq not increasing at %d: %d after %d", i, snap[i].Seq, snap[i-1].Seq)
		}
	}
}

func TestInertSpan(t *testing.T) {
	ring := NewRingTracer(4, LevelPhase)
	s := Begin(ring, ScopeSite, "resolve", 0)
	if s.ID() != 0 {
		t.Fatalf("filtered span got id %d", s.ID())
	}
	s.WithExtra("k", "v").Child(ScopeSite, "inner").End("")
	if d := s.End(""); d != 0 {
		t.Fatalf("inert span reported %v", d)
	}
	var nilSpan *Span
	nilSpan.End("")
	if n := len(ring.Snapshot()); n != 0 {
		t.Fatalf("inert spans emitted %d events", n)
	}
}

func TestMultiTracerSharesSeq(t *testing.T) {
	a := NewRingTracer(4, LevelPhase)
	b := NewRingTracer(4, LevelPhase)
	Point(NewMultiTracer(LevelPhase, a, b), ScopePass, "load", "")
	if a.Snapshot()[0].Seq != b.Snapshot()[0].Seq {
		t.Fatalf("sinks saw different seq numbers")
	}
}

func TestNDJSONCarriesDuration(t *testing.T) {
	ev := &Event{Seq: 1, Kind: KindSpanEnd, Scope: ScopePass, Name: "build", Dur: 1500 * time.Microsecond}
	if line := string(FormatEvent(ev, FormatNDJSON)); !strings.Contains(line, `"dur_us":1500`) {
		t.Fatalf("missing duration: %s", line)
	}
	if line := string(FormatEvent(ev, FormatText)); !strings.Contains(line, "< build 1.5ms") {
		t.Fatalf("unexpected text: %q", line)
	}
}
