package observ

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

// Timer collects wall-clock durations of the phases of one cg run.
// A phase is either timed with Begin/End or accumulated with Record.
// Recorded phases break down time spent inside the timed ones, so the
// total covers timed phases only, or everything when nothing was timed.
// Timer is goroutine-safe and a nil *Timer ignores everything.
type Timer struct {
	mu     sync.Mutex
	phases []phase
	index  map[string]int
}

type phase struct {
	name    string
	started time.Time
	total   time.Duration
	count   int
	note    string
	timed   bool
}

func NewTimer() *Timer {
	return &Timer{index: make(map[string]int)}
}

// lookup returns the slot of name, appending it on first use.
// Callers hold t.mu.
func (t *Timer) lookup(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	t.phases = append(t.phases, phase{name: name})
	t.index[name] = len(t.phases) - 1
	return len(t.phases) - 1
}

// Begin starts timing name and returns a handle for End.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.lookup(name)
	t.phases[i].started = time.Now()
	return i
}

// End stops the phase started by Begin and attaches note.
func (t *Timer) End(handle int, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if handle < 0 || handle >= len(t.phases) {
		return
	}
	p := &t.phases[handle]
	p.total += time.Since(p.started)
	p.count++
	p.note = note
	p.timed = true
}

// Record adds d to the named phase.
func (t *Timer) Record(name string, d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p := &t.phases[t.lookup(name)]
	p.total += d
	p.count++
}

// PhaseReport is one phase in milliseconds.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Count      int     `json:"count"`
	AverageMS  float64 `json:"average_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report lists phases in first-use order.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func (t *Timer) Report() Report {
	var rep Report
	if t == nil {
		return rep
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var timed, all time.Duration
	anyTimed := false
	for _, p := range t.phases {
		all += p.total
		if p.timed {
			timed += p.total
			anyTimed = true
		}
		pr := PhaseReport{Name: p.name, DurationMS: ms(p.total), Count: p.count, Note: p.note}
		if p.count > 0 {
			pr.AverageMS = pr.DurationMS / float64(p.count)
		}
		rep.Phases = append(rep.Phases, pr)
	}
	rep.TotalMS = ms(all)
	if anyTimed {
		rep.TotalMS = ms(timed)
	}
	return rep
}

// Summary renders Report as an aligned table.
func (t *Timer) Summary() string {
	rep := t.Report()
	width := len("total")
	for _, p := range rep.Phases {
		width = max(width, runewidth.StringWidth(p.Name))
	}
	var sb strings.Builder
	sb.WriteString("timings:\n")
	row := func(name string, dur float64) {
		fmt.Fprintf(&sb, "  %s %10.2f ms", runewidth.FillRight(name, width), dur)
	}
	for _, p := range rep.Phases {
		row(p.Name, p.DurationMS)
		if p.Count > 1 {
			fmt.Fprintf(&sb, "  x%d avg %.3f ms", p.Count, p.AverageMS)
		}
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	row("total", rep.TotalMS)
	sb.WriteByte('\n')
	return sb.String()
}

// WriteFile writes Summary to path under a "run: <id>" header.
func (t *Timer) WriteFile(path, runID string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create timing dir: %w", err)
	}
	var sb strings.Builder
	if runID != "" {
		fmt.Fprintf(&sb, "run: %s\n", runID)
	}
	sb.WriteString(t.Summary())
	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("write timing report: %w", err)
	}
	return nil
}
