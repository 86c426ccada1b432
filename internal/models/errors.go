package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes shared by services and transport.
const (
	CodePasswordMismatch   = "PASSWORD_MISMATCH"
	CodeDuplicateField     = "DUPLICATE_FIELD"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidPage        = "INVALID_PAGE"
	CodeSubmissionFailed   = "SUBMISSION_FAILED"
	CodeStoreError         = "STORE_ERROR"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
)

// Sentinels for errors.Is; any AppError with the same code matches.
var (
	ErrPasswordMismatch   = &AppError{Code: CodePasswordMismatch}
	ErrDuplicateField     = &AppError{Code: CodeDuplicateField}
	ErrInvalidCredentials = &AppError{Code: CodeInvalidCredentials}
	ErrInvalidPage        = &AppError{Code: CodeInvalidPage}
	ErrSubmissionFailed   = &AppError{Code: CodeSubmissionFailed}
	ErrStoreError         = &AppError{Code: CodeStoreError}
	ErrValidation         = &AppError{Code: CodeValidation}
	ErrUnauthorized       = &AppError{Code: CodeUnauthorized}
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	// Field names the offending input for DUPLICATE_FIELD and VALIDATION_ERROR.
	Field string
	Err   error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so callers can compare against the package sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewPasswordMismatchError() *AppError {
	return &AppError{
		Code:    CodePasswordMismatch,
		Message: "Passwords do not match",
		Field:   "confirm_password",
	}
}

func NewDuplicateFieldError(field string) *AppError {
	return &AppError{
		Code:    CodeDuplicateField,
		Message: fmt.Sprintf("A user with this %s already exists", field),
		Field:   field,
	}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:    CodeInvalidCredentials,
		Message: "Invalid username or password",
	}
}

func NewInvalidPageError(raw string) *AppError {
	return &AppError{
		Code:    CodeInvalidPage,
		Message: fmt.Sprintf("Invalid page %q", raw),
		Field:   "page",
	}
}

func NewSubmissionFailedError(err error) *AppError {
	return &AppError{
		Code:    CodeSubmissionFailed,
		Message: "Subject could not be saved",
		Err:     err,
	}
}

func NewStoreError(err error) *AppError {
	return &AppError{
		Code:    CodeStoreError,
		Message: "Internal server error",
		Err:     err,
	}
}

func NewValidationError(field, message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// AsAppError extracts an AppError from err, wrapping unknown errors as STORE_ERROR.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewStoreError(err)
}

// StatusFor maps an error to the HTTP status used by the JSON API.
func StatusFor(err error) int {
	switch AsAppError(err).Code {
	case CodePasswordMismatch, CodeInvalidPage, CodeValidation:
		return fiber.StatusBadRequest
	case CodeDuplicateField:
		return fiber.StatusConflict
	case CodeInvalidCredentials, CodeUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// IsExpected reports whether err is a user-facing validation outcome rather than a fault.
func IsExpected(err error) bool {
	return StatusFor(err) < fiber.StatusInternalServerError
}

// RespondWithError creates a standardized error response.
// Wrapped causes are only exposed when exposeDetails is set (non-production).
func RespondWithError(c *fiber.Ctx, status int, err error, exposeDetails bool) error {
	appErr := AsAppError(err)
	response := ErrorResponse{
		Error: appErr.Message,
		Code:  appErr.Code,
		Field: appErr.Field,
	}
	if exposeDetails && appErr.Err != nil {
		response.Details = appErr.Err.Error()
	}

	return c.Status(status).JSON(response)
}
