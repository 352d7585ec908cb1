package document

import (
	"errors"
	"fmt"
)

// ErrMalformedEntity marks an entity element that could not be read.
// Decoding skips the entity and continues; the caller decides whether the
// skips matter.
var ErrMalformedEntity = errors.New("malformed document entity")

// MalformedEntityError carries the context of one skipped entity.
type MalformedEntityError struct {
	Element string // "node" or "edge"
	ID      string // entity id when it was readable
	Attr    string // offending attribute, if one is identifiable
	Cause   error
}

// Error implements the error interface.
func (e *MalformedEntityError) Error() string {
	switch {
	case e.ID != "" && e.Attr != "":
		return fmt.Sprintf("%s %q (attribute %s): %v", e.Element, e.ID, e.Attr, e.Cause)
	case e.ID != "":
		return fmt.Sprintf("%s %q: %v", e.Element, e.ID, e.Cause)
	case e.Attr != "":
		return fmt.Sprintf("%s (attribute %s): %v", e.Element, e.Attr, e.Cause)
	default:
		return fmt.Sprintf("%s: %v", e.Element, e.Cause)
	}
}

// Unwrap returns the underlying cause.
func (e *MalformedEntityError) Unwrap() error {
	return e.Cause
}

// Is matches the ErrMalformedEntity sentinel and the wrapped cause.
func (e *MalformedEntityError) Is(target error) bool {
	if target == ErrMalformedEntity {
		return true
	}
	return errors.Is(e.Cause, target)
}

func malformed(element, id, attr string, cause error) *MalformedEntityError {
	return &MalformedEntityError{Element: element, ID: id, Attr: attr, Cause: cause}
}
