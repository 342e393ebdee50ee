package observ

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTimerRecordAccumulates(t *testing.T) {
	tm := NewTimer()
	tm.Record("resolve", 2*time.Millisecond)
	tm.Record("resolve", 4*time.Millisecond)
	idx := tm.Begin("build")
	tm.End(idx, "12 edges")

	rep := tm.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(rep.Phases))
	}
	r := rep.Phases[0]
	if r.Count != 2 || r.DurationMS != 6 || r.AverageMS != 3 {
		t.Fatalf("unexpected resolve phase: %+v", r)
	}
	if rep.Phases[1].Note != "12 edges" {
		t.Fatalf("note not kept: %+v", rep.Phases[1])
	}
}

func TestTimerSummaryAligned(t *testing.T) {
	tm := NewTimer()
	tm.Record("a", time.Millisecond)
	tm.Record("longer-name", time.Millisecond)
	lines := strings.Split(strings.TrimSpace(tm.Summary()), "\n")
	if len(lines) != 4 {
		t.Fatalf("unexpected summary:\n%s", tm.Summary())
	}
	col := strings.Index(lines[1], " ms")
	for _, l := range lines[2:] {
		if strings.Index(l, " ms") != col {
			t.Fatalf("columns are not aligned:\n%s", tm.Summary())
		}
	}
}

func TestTimerWriteFile(t *testing.T) {
	tm := NewTimer()
	tm.Record("query", time.Millisecond)
	path := filepath.Join(t.TempDir(), "out", "cg_timing.txt")
	if err := tm.WriteFile(path, "run-1"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "run: run-1\ntimings:\n") {
		t.Fatalf("unexpected content:\n%s", data)
	}
}

func TestNilTimerIsInert(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	tm.Record("x", time.Second)
	if rep := tm.Report(); len(rep.Phases) != 0 {
		t.Fatalf("nil timer must report nothing")
	}
}

func TestTotalExcludesRecordedBreakdowns(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("report")
	tm.Record("write", time.Hour)
	tm.End(idx, "")
	rep := tm.Report()
	if rep.TotalMS >= float64(time.Hour/time.Millisecond) {
		t.Fatalf("recorded phase counted into total: %v ms", rep.TotalMS)
	}
	if rep.Phases[1].Name != "write" || rep.Phases[1].Count != 1 {
		t.Fatalf("unexpected phases: %+v", rep.Phases)
	}
}
