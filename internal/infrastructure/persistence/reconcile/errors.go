package reconcile

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error codes for reconciliation failures.
const (
	CodeDanglingIdentifier = "DANGLING_IDENTIFIER"
	CodePersistence        = "PERSISTENCE_ERROR"
	CodeUnsupportedTable   = "UNSUPPORTED_TABLE"
	CodeInvalidEntity      = "INVALID_ENTITY"

	// CodeAmbiguousMatch is not a failure: a rule matching more than one
	// stored row falls back to the insert path. The code only labels the
	// warning so ambiguous inserts can be told apart in logs.
	CodeAmbiguousMatch = "AMBIGUOUS_MATCH"
)

// Error is a reconciliation-level error carrying the identity of the entity
// that triggered it.
type Error struct {
	Code    string
	Table   string
	ID      uuid.UUID
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Table != "" {
		msg += fmt.Sprintf(" (table=%s", e.Table)
		if e.ID != uuid.Nil {
			msg += fmt.Sprintf(", id=%s", e.ID)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying storage error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewDanglingIdentifier reports a caller-supplied identifier that does not
// resolve to a stored row. This is a logic error on the caller's side, never
// an implicit insert.
func NewDanglingIdentifier(table string, id uuid.UUID) *Error {
	return &Error{
		Code:    CodeDanglingIdentifier,
		Table:   table,
		ID:      id,
		Message: "supplied identifier does not exist in storage",
	}
}

// NewPersistenceError wraps a storage-layer failure (constraint violation,
// connection loss) with the triggering entity's identity.
func NewPersistenceError(table string, id uuid.UUID, err error) *Error {
	return &Error{
		Code:    CodePersistence,
		Table:   table,
		ID:      id,
		Message: "storage operation failed",
		Err:     err,
	}
}

// NewUnsupportedTable reports an entity whose table has no import logic.
// It is raised before any storage I/O happens for the entity.
func NewUnsupportedTable(table string) *Error {
	return &Error{
		Code:    CodeUnsupportedTable,
		Table:   table,
		Message: "no import logic implemented for this table",
	}
}

// NewInvalidEntity reports a structurally unusable batch item, e.g. a report
// attendee without a person attached.
func NewInvalidEntity(table string, message string) *Error {
	return &Error{
		Code:    CodeInvalidEntity,
		Table:   table,
		Message: message,
	}
}

// HasCode reports whether err is a reconciliation error with the given code.
func HasCode(err error, code string) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == code
}
