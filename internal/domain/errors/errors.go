// Package errors provides domain-specific error types for the chat controller.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for domain errors.
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeBackend            = "BACKEND_ERROR"
	ErrCodeStaleChat          = "STALE_CHAT"
	ErrCodeUnknownChat        = "UNKNOWN_CHAT"
	ErrCodeRenderTimeout      = "RENDER_TIMEOUT"
	ErrCodeNotReady           = "NOT_READY"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeSendInFlight       = "SEND_IN_FLIGHT"
)

// DomainError represents a domain-specific error.
type DomainError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewValidationError creates an error for an invalid required field.
// Validation errors are caught client-side and never reach the network.
func NewValidationError(message string, details string) *DomainError {
	return &DomainError{
		Code:       ErrCodeValidation,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, identifier string) *DomainError {
	return &DomainError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Details:    identifier,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewInvalidCredentialsError creates an error for a password mismatch.
func NewInvalidCredentialsError() *DomainError {
	return &DomainError{
		Code:       ErrCodeInvalidCredentials,
		Message:    "invalid username or password",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewConflictError creates a new conflict error.
func NewConflictError(message string, details string) *DomainError {
	return &DomainError{
		Code:       ErrCodeConflict,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusConflict,
	}
}

// NewBackendError creates an error for a failed backend round trip.
// Backend errors are never retried automatically; they surface to the
// user with a retry affordance.
func NewBackendError(message string, err error) *DomainError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &DomainError{
		Code:       ErrCodeBackend,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewStaleChatError creates an error for a result that arrived for a
// no-longer-active chat. Stale results are discarded silently and logged.
func NewStaleChatError(chatID, activeID string) *DomainError {
	return &DomainError{
		Code:       ErrCodeStaleChat,
		Message:    "chat is no longer active",
		Details:    fmt.Sprintf("chat %s, active %s", chatID, activeID),
		HTTPStatus: http.StatusConflict,
	}
}

// NewUnknownChatError creates an error for selecting a chat the current
// session does not own.
func NewUnknownChatError(chatID string) *DomainError {
	return &DomainError{
		Code:       ErrCodeUnknownChat,
		Message:    "chat not in list",
		Details:    chatID,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewRenderTimeoutError creates an error for a markdown parse that
// exceeded its deadline. Non-fatal: the caller falls back to escaped
// plain text.
func NewRenderTimeoutError(err error) *DomainError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &DomainError{
		Code:       ErrCodeRenderTimeout,
		Message:    "markdown rendering exceeded deadline",
		Details:    details,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewNotReadyError creates an error for an operation attempted before the
// session is ready or authenticated. Such operations are rejected, never
// queued.
func NewNotReadyError(operation string) *DomainError {
	return &DomainError{
		Code:       ErrCodeNotReady,
		Message:    fmt.Sprintf("%s requires an authenticated session", operation),
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a new forbidden error.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewSendInFlightError creates an error for a send attempted while another
// send is outstanding for the same chat.
func NewSendInFlightError(chatID string) *DomainError {
	return &DomainError{
		Code:       ErrCodeSendInFlight,
		Message:    "a send is already in progress for this chat",
		Details:    chatID,
		HTTPStatus: http.StatusConflict,
	}
}

// GetDomainError extracts the domain error from an error.
func GetDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// IsDomainError checks if the error is a domain error.
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// IsCode checks if the error is a domain error with the given code.
func IsCode(err error, code string) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == code
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	return IsCode(err, ErrCodeValidation)
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}

// IsConflict checks if the error is a conflict error.
func IsConflict(err error) bool {
	return IsCode(err, ErrCodeConflict)
}

// IsInvalidCredentials checks if the error is an invalid credentials error.
func IsInvalidCredentials(err error) bool {
	return IsCode(err, ErrCodeInvalidCredentials)
}

// IsStaleChat checks if the error is a stale chat error.
func IsStaleChat(err error) bool {
	return IsCode(err, ErrCodeStaleChat)
}

// IsNotReady checks if the error is a not ready error.
func IsNotReady(err error) bool {
	return IsCode(err, ErrCodeNotReady)
}
