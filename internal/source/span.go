package source

import (
	"fmt"
)

// Span points at a position in a source file. Line and Col are 1-based;
// the zero Span means "no location".
type Span struct {
	File string
	Line uint32
	Col  uint32
}

func (s Span) Empty() bool {
	return s.File == "" && s.Line == 0
}

func (s Span) String() string {
	if s.Empty() {
		return "<unknown>"
	}
	if s.Col == 0 {
		return fmt.Sprintf("%s:%d", s.File, s.Line)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Before reports whether s sorts before other (file, line, column).
func (s Span) Before(other Span) bool {
	if s.File != other.File {
		return s.File < other.File
	}
	if s.Line != other.Line {
		return s.Line < other.Line
	}
	return s.Col < other.Col
}
