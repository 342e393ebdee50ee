package trace

import (
	"sync/atomic"
	"time"
)

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd
	// KindPoint represents an instant event.
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity of the event. Lower values are coarser.
type Scope uint8

const (
	// ScopeDriver covers whole CLI commands and report files.
	ScopeDriver Scope = iota + 1
	// ScopePass covers load, build, query and report passes.
	ScopePass
	// ScopeFunction covers the expansion of one instance.
	ScopeFunction
	// ScopeSite covers the resolution of one call site.
	ScopeSite
)

func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopePass:
		return "pass"
	case ScopeFunction:
		return "function"
	case ScopeSite:
		return "site"
	default:
		return "unknown"
	}
}

// Event is one record of the trace. Seq is assigned when the event is
// created, so every sink of a MultiTracer sees the same number.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string // e.g. "build", "expand"
	Detail   string
	Dur      time.Duration // span end only
	Extra    map[string]string
}

var (
	lastSeq  atomic.Uint64
	lastSpan atomic.Uint64
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 {
	return lastSeq.Add(1)
}

// NextSpanID returns a unique span ID.
func NextSpanID() uint64 {
	return lastSpan.Add(1)
}

func accepts(t Tracer, scope Scope) bool {
	return t != nil && t.Enabled() && t.Level().ShouldEmit(scope)
}

// Point emits an instant event when the tracer accepts scope.
// kv is a flat list of key/value pairs; a trailing odd key is dropped.
func Point(t Tracer, scope Scope, name, detail string, kv ...string) {
	if !accepts(t, scope) {
		return
	}
	var extra map[string]string
	if len(kv) >= 2 {
		extra = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			extra[kv[i]] = kv[i+1]
		}
	}
	t.Emit(&Event{
		Time:   time.Now(),
		Seq:    NextSeq(),
		Kind:   KindPoint,
		Scope:  scope,
		Name:   name,
		Detail: detail,
		Extra:  extra,
	})
}
