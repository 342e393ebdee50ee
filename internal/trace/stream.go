package trace

import (
	"bufio"
	"io"
	"sync"
)

// StreamTracer writes every accepted event as it arrives. Write errors
// are dropped; tracing never fails the analysis.
type StreamTracer struct {
	mu     sync.Mutex
	out    *bufio.Writer
	closer io.Closer // nil for standard streams and foreign writers
	level  Level
	format Format
}

// NewStreamTracer writes to w. The caller keeps ownership of w.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{out: bufio.NewWriter(w), level: level, format: formatFor(format, "")}
}

func newFileTracer(w io.WriteCloser, level Level, format Format) *StreamTracer {
	t := NewStreamTracer(w, level, format)
	t.closer = w
	return t
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	data := FormatEvent(ev, t.format)
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.out.Write(data)
	// Span boundaries are rare; flushing there keeps interleaved stderr readable.
	if ev.Kind != KindPoint {
		_ = t.out.Flush()
	}
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.Flush()
}

// Close flushes and closes files opened by New.
func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
