package store

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrAnswerOutOfRange indicates an answered index outside the
// question's option range.
var ErrAnswerOutOfRange = errors.New("answered index out of range")

// ErrIntegrityConflict indicates an incoming record shares a content
// hash with a stored question but differs in payload. The stored row
// wins; the new record is rejected.
type ErrIntegrityConflict struct {
	ContentHash string
}

func (e *ErrIntegrityConflict) Error() string {
	return fmt.Sprintf("integrity conflict: stored question with hash %s has a different payload", e.ContentHash)
}
