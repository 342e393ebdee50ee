package symbols

// DefID identifies a function definition inside a program model.
// Definitions are allocated by the model; IDs are dense and start at 1.
type DefID uint32

const (
	// NoDefID marks the absence of a definition reference.
	NoDefID DefID = 0
)

// IsValid reports whether the definition ID refers to an allocated definition.
func (id DefID) IsValid() bool { return id != NoDefID }
