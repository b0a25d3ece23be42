package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateIdentifier is returned by stores when an insert hits the identifier uniqueness constraint.
var ErrDuplicateIdentifier = errors.New("ticket identifier already exists")

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Resource string
	Key      string
}

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(resource string, key any) error {
	return &NotFoundError{Resource: resource, Key: fmt.Sprint(key)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

// InvalidStatusTransitionError reports an edge outside the state machine.
type InvalidStatusTransitionError struct {
	From TicketStatus
	To   TicketStatus
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// ConcurrencyConflictError reports an optimistic version mismatch on save.
type ConcurrencyConflictError struct {
	TicketID int64
	Version  int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("ticket %d was modified concurrently (expected version %d)", e.TicketID, e.Version)
}

// IdentifierGenerationError reports that every identifier candidate collided.
type IdentifierGenerationError struct {
	MaxRetries int
}

func (e *IdentifierGenerationError) Error() string {
	return fmt.Sprintf("failed to generate a unique ticket identifier after %d attempts", e.MaxRetries)
}

// IsItemError reports whether err is a per-ticket domain rejection rather than an infrastructure failure.
func IsItemError(err error) bool {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		transition *InvalidStatusTransitionError
		conflict   *ConcurrencyConflictError
	)
	return errors.As(err, &validation) ||
		errors.As(err, &notFound) ||
		errors.As(err, &transition) ||
		errors.As(err, &conflict)
}
