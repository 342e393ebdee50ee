package source

import (
	"testing"
)

func TestSpan_String(t *testing.T) {
	tests := []struct {
		name     string
		span     Span
		expected string
	}{
		{name: "empty", span: Span{}, expected: "<unknown>"},
		{name: "line only", span: Span{File: "a.go", Line: 3}, expected: "a.go:3"},
		{name: "line and column", span: Span{File: "a.go", Line: 3, Col: 7}, expected: "a.go:3:7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.span.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSpan_Before(t *testing.T) {
	a := Span{File: "a.go", Line: 1, Col: 5}
	b := Span{File: "a.go", Line: 2, Col: 1}
	c := Span{File: "b.go", Line: 1, Col: 1}
	if !a.Before(b) || b.Before(a) {
		t.Fatalf("expected %v before %v", a, b)
	}
	if !b.Before(c) {
		t.Fatalf("file order must dominate line order")
	}
	if a.Before(a) {
		t.Fatalf("span must not sort before itself")
	}
}
