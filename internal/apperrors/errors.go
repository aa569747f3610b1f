package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInvalidState indicates that an action is not permitted in the record's current state.
var ErrInvalidState = errors.New("invalid state")

// ErrConflict indicates that the stored record has advanced past the caller's version.
var ErrConflict = errors.New("version conflict")

// ErrForbidden indicates that the caller is authenticated but lacks permission.
var ErrForbidden = errors.New("forbidden")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrRefreshTokenExpired indicates that the stored refresh token is past its expiry.
var ErrRefreshTokenExpired = errors.New("refresh token expired")

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InvalidStateError reports an action attempted against a record whose state forbids it.
type InvalidStateError struct {
	TransactionID string
	Reason        string
}

// NewInvalidStateError creates an InvalidStateError for the given record reference.
func NewInvalidStateError(transactionID, reason string) *InvalidStateError {
	return &InvalidStateError{TransactionID: transactionID, Reason: reason}
}

func (e *InvalidStateError) Error() string {
	if e.TransactionID == "" {
		return e.Reason
	}
	return fmt.Sprintf("requisition %s: %s", e.TransactionID, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidState) match.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// ConflictError reports a stale version on write. The caller should re-fetch and retry.
type ConflictError struct {
	TransactionID   string
	ExpectedVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("requisition %s was modified by someone else (expected version %d); reload and try again", e.TransactionID, e.ExpectedVersion)
}

// Is lets errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// AppError wraps infrastructure failures with an HTTP-ish code and a safe message.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}
