package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Разрешение вызовов
	CGSubstFailed          Code = 1001
	CGSubstFailedNoDef     Code = 1002
	CGResolveError         Code = 1003
	CGResolveAbstract      Code = 1004
	CGTrivialResolveFailed Code = 1005
	CGUnclassifiedCallee   Code = 1006
	CGUnknownDefKind       Code = 1007

	// Построение графа
	CGMissingBody        Code = 2001
	CGUnresolvedInstance Code = 2002
	CGUnreachableCall    Code = 2003
	CGInvalidBody        Code = 2004
	CGInstanceLimit      Code = 2005

	// Вывод
	CGReportWrite   Code = 4001
	CGSnapshotWrite Code = 4002
	CGIRDumpWrite   Code = 4003
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	CGSubstFailed:          "Callee type could not be substituted",
	CGSubstFailedNoDef:     "Callee type could not be substituted and names no definition",
	CGResolveError:         "Callee resolution failed",
	CGResolveAbstract:      "Callee has no unique implementation",
	CGTrivialResolveFailed: "Callee could not be resolved without substitution",
	CGUnclassifiedCallee:   "Callee is neither a function item nor a function pointer",
	CGUnknownDefKind:       "Definition kind is not callable",
	CGMissingBody:          "Function body is unavailable",
	CGUnresolvedInstance:   "Instance is unresolved; callees are not expanded",
	CGUnreachableCall:      "Call site is unreachable from function entry",
	CGInvalidBody:          "Function body is malformed",
	CGInstanceLimit:        "Instance limit reached; expansion stopped",
	CGReportWrite:          "Failed to write report",
	CGSnapshotWrite:        "Failed to write graph snapshot",
	CGIRDumpWrite:          "Failed to write IR dump",
}

func (c Code) ID() string {
	ic := int(c)
	switch {
	case ic == 0:
		return "E0000"
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("CGB%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
