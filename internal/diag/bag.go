package diag

import (
	"slices"
	"sync"
)

// Bag is a goroutine-safe collection of diagnostics in arrival order.
type Bag struct {
	mu    sync.Mutex
	items []Diagnostic
	limit int
	worst Severity
	any   bool
}

// NewBag creates a bag holding at most limit diagnostics; limit <= 0
// means unbounded.
func NewBag(limit int) *Bag {
	return &Bag{limit: limit}
}

// Add stores d and reports false when the bag is full.
func (b *Bag) Add(d Diagnostic) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit > 0 && len(b.items) >= b.limit {
		return false
	}
	b.items = append(b.items, d)
	if !b.any || d.Severity > b.worst {
		b.worst, b.any = d.Severity, true
	}
	return true
}

func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Items returns a copy of the stored diagnostics.
func (b *Bag) Items() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items)
}

// AtLeast returns the diagnostics of severity sev or worse.
func (b *Bag) AtLeast(sev Severity) []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Diagnostic
	for _, d := range b.items {
		if d.Severity >= sev {
			out = append(out, d)
		}
	}
	return out
}

func (b *Bag) has(sev Severity) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.any && b.worst >= sev
}

func (b *Bag) HasErrors() bool   { return b.has(SevError) }
func (b *Bag) HasWarnings() bool { return b.has(SevWarning) }

// CountByCode tallies diagnostics per code.
func (b *Bag) CountByCode() map[Code]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[Code]int)
	for _, d := range b.items {
		out[d.Code]++
	}
	return out
}
