package ir

import (
	"errors"
	"fmt"
)

// Validate checks body invariants: block IDs match their index, the
// entry exists, every block is terminated and every successor exists.
func Validate(b *Body) error {
	if b == nil {
		return nil
	}
	var errs []error
	if b.Block(b.Entry) == nil {
		errs = append(errs, fmt.Errorf("entry bb%d out of range (%d blocks)", b.Entry, len(b.Blocks)))
	}
	for i := range b.Blocks {
		bb := &b.Blocks[i]
		if int(bb.ID) != i {
			errs = append(errs, fmt.Errorf("block at index %d has id bb%d", i, bb.ID))
		}
		if !bb.Terminated() {
			errs = append(errs, fmt.Errorf("bb%d: missing terminator", bb.ID))
			continue
		}
		for _, succ := range bb.Term.Successors() {
			if b.Block(succ) == nil {
				errs = append(errs, fmt.Errorf("bb%d: %s targets missing bb%d", bb.ID, bb.Term.Kind, succ))
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", b.Name, errors.Join(errs...))
}
