package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// DuplicateError reports a storage-level uniqueness violation. Services
// translate it into the matching domain error by constraint.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("repository: duplicate value for %s", e.Constraint)
}

// AsDuplicate extracts a DuplicateError from err, if any.
func AsDuplicate(err error) (*DuplicateError, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}
