package diag

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// FormatShort renders diagnostics one per line as
// "<severity> <code> <location> <message>", sorted deterministically.
// Notes follow their diagnostic when includeNotes is set.
func FormatShort(diags []Diagnostic, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	sorted := slices.Clone(diags)
	slices.SortStableFunc(sorted, func(a, b Diagnostic) int {
		switch {
		case a.Primary != b.Primary:
			if a.Primary.Before(b.Primary) {
				return -1
			}
			return 1
		case a.Severity != b.Severity:
			return cmp.Compare(b.Severity, a.Severity)
		case a.Code != b.Code:
			return cmp.Compare(a.Code, b.Code)
		}
		return strings.Compare(a.Message, b.Message)
	})

	var lines []string
	for _, d := range sorted {
		lines = append(lines, fmt.Sprintf("%s %s %s %s", d.Severity, d.Code.ID(), d.Primary, oneLine(d.Message)))
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			lines = append(lines, fmt.Sprintf("note %s %s %s", d.Code.ID(), n.Span, oneLine(n.Msg)))
		}
	}
	return strings.Join(lines, "\n")
}

// oneLine folds line breaks into spaces.
func oneLine(msg string) string {
	return strings.TrimSpace(strings.Join(strings.FieldsFunc(msg, func(r rune) bool { return r == '\n' || r == '\r' }), " "))
}
