package tagihan

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("tagihan not found")
	// ErrStaleState indicates a transition precondition no longer holds. The
	// caller must refetch and decide whether to retry; the engine never retries
	// on its own.
	ErrStaleState = errors.New("document state changed, refetch and try again")
	// ErrAlreadyLocked indicates another reviewer holds a non-expired lock.
	ErrAlreadyLocked = errors.New("this document is being processed by another reviewer")
	// ErrDuplicateSequence indicates the (sequence, unit, schedule, year) tuple
	// is already used. The caller must prompt for a different sequence number.
	ErrDuplicateSequence = errors.New("this sequence number is already used for this unit and schedule this year")
	// ErrMissingReferenceData indicates the unit or schedule lookup failed, so
	// numbering cannot proceed.
	ErrMissingReferenceData = errors.New("reference data for owning unit or schedule not found")
	// ErrForbidden indicates the actor's role does not permit the operation.
	ErrForbidden = errors.New("operation not permitted for this role")
	// ErrTerminal indicates the document is completed and immutable.
	ErrTerminal = errors.New("document is completed and can no longer change")
	// ErrRevisionExpired indicates the revision deadline has passed.
	ErrRevisionExpired = errors.New("revision deadline has passed")
)

// ValidationError carries per-field messages for caller-supplied input that
// fails domain constraints.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
