package diag

import (
	"sync"

	"github.com/xizheyin/callgraph4rs/internal/source"
)

// DedupReporter forwards a diagnostic only the first time its code,
// severity, span and message are seen. Notes do not take part in the key.
type DedupReporter struct {
	next Reporter

	mu   sync.Mutex
	seen map[dedupKey]struct{}
}

type dedupKey struct {
	code Code
	sev  Severity
	span source.Span
	msg  string
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[dedupKey]struct{})}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r == nil {
		return
	}
	key := dedupKey{code, sev, primary, msg}
	r.mu.Lock()
	_, dup := r.seen[key]
	r.seen[key] = struct{}{}
	r.mu.Unlock()
	if !dup && r.next != nil {
		r.next.Report(code, sev, primary, msg, notes)
	}
}
