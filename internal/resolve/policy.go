package resolve

import (
	"fmt"
	"strings"

	"github.com/xizheyin/callgraph4rs/internal/program"
)

// IndirectPolicy selects which definitions a function-pointer call may
// fan out to.
type IndirectPolicy uint8

const (
	// PolicyFunctions admits free and associated functions.
	PolicyFunctions IndirectPolicy = iota
	// PolicyClosures additionally admits closures.
	PolicyClosures
	// PolicyAll admits every definition with a signature.
	PolicyAll
)

func (p IndirectPolicy) String() string {
	switch p {
	case PolicyClosures:
		return "closures"
	case PolicyAll:
		return "all"
	default:
		return "functions"
	}
}

// ParsePolicy converts a flag value to an IndirectPolicy.
func ParsePolicy(s string) (IndirectPolicy, error) {
	switch strings.ToLower(s) {
	case "", "functions":
		return PolicyFunctions, nil
	case "closures":
		return PolicyClosures, nil
	case "all":
		return PolicyAll, nil
	default:
		return PolicyFunctions, fmt.Errorf("invalid indirect-call policy: %q (expected: functions|closures|all)", s)
	}
}

// Admits reports whether a definition of kind k is an indirect-call target.
func (p IndirectPolicy) Admits(k program.DefKind) bool {
	switch k {
	case program.DefFn, program.DefAssocFn, program.DefForeign:
		return true
	case program.DefClosure:
		return p >= PolicyClosures
	default:
		return p == PolicyAll
	}
}
