// Package query answers reverse-reachability questions over a built
// call graph.
package query

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/program"
)

// TargetKind selects how a Target is matched.
type TargetKind uint8

const (
	ByPath TargetKind = iota
	ByHash
)

func (k TargetKind) String() string {
	if k == ByHash {
		return "hash"
	}
	return "path"
}

// GenericDelimiter opens a generic-argument segment in display names.
const GenericDelimiter = '['

// ConfigurationError reports an ambiguous or empty query request.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid query: " + e.Reason
}

// ErrNoTarget is wrapped by NewTarget when neither mode was given.
var ErrNoTarget = errors.New("no target")

// Target selects the instances a caller query starts from.
type Target struct {
	Kind  TargetKind
	Value string
}

// NewTarget builds a Target from the two mutually exclusive request
// fields. Supplying both, or neither, is a *ConfigurationError.
func NewTarget(path, hash string) (Target, error) {
	switch {
	case path != "" && hash != "":
		return Target{}, &ConfigurationError{Reason: "--find-callers and --find-callers-by-hash are mutually exclusive"}
	case path != "":
		return Target{Kind: ByPath, Value: path}, nil
	case hash != "":
		return Target{Kind: ByHash, Value: hash}, nil
	default:
		return Target{}, &ConfigurationError{Reason: ErrNoTarget.Error()}
	}
}

// NewTargets builds the targets of one request: every path pattern, or
// the single hash. Path patterns and a hash together, a blank pattern,
// or no target at all is a *ConfigurationError. Repeated patterns are
// collapsed.
func NewTargets(paths []string, hash string) ([]Target, error) {
	if len(paths) == 0 {
		t, err := NewTarget("", hash)
		if err != nil {
			return nil, err
		}
		return []Target{t}, nil
	}
	targets := make([]Target, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			return nil, &ConfigurationError{Reason: "empty --find-callers pattern"}
		}
		t, err := NewTarget(p, hash)
		if err != nil {
			return nil, err
		}
		if !seen[p] {
			seen[p] = true
			targets = append(targets, t)
		}
	}
	return targets, nil
}

// Label is the target as shown in report headers.
func (t Target) Label() string {
	if t.Kind == ByHash {
		return "function with hash: " + t.Value
	}
	return t.Value
}

// Matches reports whether inst is selected by t.
func (t Target) Matches(namer program.Namer, inst instance.FunctionInstance) bool {
	if t.Kind == ByHash {
		return namer.StableHash(inst.Def) == t.Value
	}
	return matchPath(t.Value, namer.DefPath(inst.Def), namer.DisplayName(inst, true))
}

func matchPath(target, base, full string) bool {
	target = norm.NFC.String(target)
	base = norm.NFC.String(base)
	full = norm.NFC.String(full)
	if strings.ContainsRune(target, GenericDelimiter) {
		return strings.Contains(base, target) || strings.Contains(full, target)
	}
	return strings.Contains(StripGenerics(base), target) || strings.Contains(StripGenerics(full), target)
}

// StripGenerics removes every balanced [...] segment from name.
// An unbalanced trailing segment is dropped as well.
func StripGenerics(name string) string {
	if !strings.ContainsRune(name, GenericDelimiter) {
		return name
	}
	var sb strings.Builder
	sb.Grow(len(name))
	depth := 0
	for _, r := range name {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth == 0:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
