package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Sentinel kinds. Handlers match on these with errors.Is and translate each
// one to a stable status code; only ErrStorage surfaces as a 500.
var (
	ErrInvalidIdentityAssertion  = errors.New("invalid identity assertion")
	ErrIdentityReconcileConflict = errors.New("identity reconciliation conflict")
	ErrAuthenticationFailure     = errors.New("authentication failure")
	ErrNotFound                  = errors.New("resource not found")
	ErrAccessDenied              = errors.New("access denied")
	ErrCollaboratorExists        = errors.New("collaborator already exists")
	ErrPlaceExists               = errors.New("place already exists")
	ErrPlaceNotFound             = errors.New("place not found")
	ErrInvalidFieldData          = errors.New("invalid field data")
	ErrInvalidOperation          = errors.New("invalid operation")
	ErrStorage                   = errors.New("storage error")
)

type AppError struct {
	Err     error  // taxonomy kind
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(kind error, message string) *AppError {
	return &AppError{Err: kind, Message: message}
}

func NotFound(resource string) *AppError {
	return &AppError{Err: ErrNotFound, Message: resource + " not found"}
}

func AccessDenied(message string) *AppError {
	return &AppError{Err: ErrAccessDenied, Message: message}
}

func InvalidField(field, message string) *AppError {
	return &AppError{Err: ErrInvalidFieldData, Message: message, Field: field}
}

func Storage(operation string, err error) *AppError {
	return &AppError{Err: ErrStorage, Message: fmt.Sprintf("%s failed: %v", operation, err)}
}

// Status maps an error to its HTTP status code. Unknown errors are treated
// as storage-level failures.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrInvalidIdentityAssertion),
		errors.Is(err, ErrAuthenticationFailure):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrAccessDenied):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPlaceNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrCollaboratorExists), errors.Is(err, ErrPlaceExists):
		return fiber.StatusConflict
	case errors.Is(err, ErrInvalidFieldData), errors.Is(err, ErrInvalidOperation):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
