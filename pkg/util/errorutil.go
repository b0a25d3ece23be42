package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/voc-service/internal/domain"
)

const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeConflict              = "CONFLICT"
	CodeInvalidTransition     = "INVALID_STATUS_TRANSITION"
	CodeConcurrentUpdate      = "CONCURRENT_MODIFICATION"
	CodeIdentifierUnavailable = "IDENTIFIER_GENERATION_FAILED"
	CodeInternal              = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts typed lifecycle errors and generic failures to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}

	var (
		domainErr     *DomainError
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		transitionErr *domain.InvalidStatusTransitionError
		conflictErr   *domain.ConcurrencyConflictError
		identifierErr *domain.IdentifierGenerationError
	)

	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.As(err, &validationErr):
		details := map[string]any{}
		if validationErr.Field != "" {
			details["field"] = validationErr.Field
		}
		return &DomainError{Code: CodeValidation, Message: validationErr.Error(), HTTPStatus: http.StatusBadRequest, Details: details, Err: err}
	case errors.As(err, &notFoundErr):
		return &DomainError{
			Code:       CodeNotFound,
			Message:    notFoundErr.Error(),
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{"resource": notFoundErr.Resource, "key": notFoundErr.Key},
			Err:        err,
		}
	case errors.As(err, &transitionErr):
		return &DomainError{
			Code:       CodeInvalidTransition,
			Message:    transitionErr.Error(),
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"from": transitionErr.From, "to": transitionErr.To},
			Err:        err,
		}
	case errors.As(err, &conflictErr):
		return &DomainError{
			Code:       CodeConcurrentUpdate,
			Message:    conflictErr.Error(),
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"ticket_id": conflictErr.TicketID, "version": conflictErr.Version},
			Err:        err,
		}
	case errors.As(err, &identifierErr):
		return &DomainError{
			Code:       CodeIdentifierUnavailable,
			Message:    identifierErr.Error(),
			HTTPStatus: http.StatusServiceUnavailable,
			Details:    map[string]any{"max_retries": identifierErr.MaxRetries},
			Err:        err,
		}
	case errors.Is(err, pgx.ErrNoRows):
		return NewDomainError(CodeNotFound, "resource not found", http.StatusNotFound, map[string]any{})
	}

	return NewInternalError(err).(*DomainError)
}

// MapError converts err to a DomainError while keeping the error interface.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
