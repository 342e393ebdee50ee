package program

import (
	"fmt"

	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/symbols"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

// SubstitutionError reports that caller's type arguments cannot fully
// concretize a type.
type SubstitutionError struct {
	Caller instance.FunctionInstance
	Type   types.TypeID
	Err    error
}

func (e *SubstitutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("substitute type#%d under %s", e.Type, e.Caller)
	}
	return fmt.Sprintf("substitute type#%d under %s: %v", e.Type, e.Caller, e.Err)
}

func (e *SubstitutionError) Unwrap() error { return e.Err }

// ResolutionError reports an inconsistent or failed dispatch resolution.
type ResolutionError struct {
	Def    symbols.DefID
	Args   types.ArgsID
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("resolve def#%d (args#%d): %s", e.Def, e.Args, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }
