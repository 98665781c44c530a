package github

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is the stable machine-readable classification attached to every
// failure that leaves this package. The set is closed: callers can switch on
// it without worrying about transport-level error types leaking through.
type ErrorCode string

const (
	CodeAuthentication ErrorCode = "AUTHENTICATION_FAILED"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeRateLimited    ErrorCode = "RATE_LIMITED"
	CodeUpstreamError  ErrorCode = "UPSTREAM_ERROR"
	CodeTimeout        ErrorCode = "TIMEOUT"
	CodeNetwork        ErrorCode = "NETWORK_ERROR"
	CodeValidation     ErrorCode = "VALIDATION_FAILED"
	CodeUnexpected     ErrorCode = "UNEXPECTED_ERROR"
)

// APIError is the single error type returned by the client. Status is the
// last observed HTTP status, zero when the request never produced a response.
type APIError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e == nil {
		return "github: unknown error"
	}
	if e.Status > 0 {
		return fmt.Sprintf("github: %s (status %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("github: %s: %s", e.Code, e.Message)
}

// Retriable reports whether the failure was classified as transient. It is
// informational by the time callers see it: the retry budget is already
// spent.
func (e *APIError) Retriable() bool {
	switch e.Code {
	case CodeRateLimited, CodeUpstreamError, CodeTimeout, CodeNetwork:
		return true
	}
	return false
}

// NewValidationError builds a caller-input failure. Validation errors never
// reach the retry machinery and are never sent upstream.
func NewValidationError(format string, args ...any) *APIError {
	return &APIError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// errorFromStatus translates a terminal HTTP status into the taxonomy. The
// messages mirror what operators need to act on each class of failure.
func errorFromStatus(status int, body string) *APIError {
	details := strings.TrimSpace(body)
	if len(details) > 200 {
		details = details[:200]
	}

	switch {
	case status == http.StatusUnauthorized:
		return &APIError{Code: CodeAuthentication, Status: status, Message: "authentication failed, check the GitHub token", Details: details}
	case status == http.StatusForbidden:
		return &APIError{Code: CodeForbidden, Status: status, Message: "access denied, check the token scopes", Details: details}
	case status == http.StatusNotFound:
		return &APIError{Code: CodeNotFound, Status: status, Message: "resource not found, check owner and repo", Details: details}
	case status == http.StatusTooManyRequests:
		return &APIError{Code: CodeRateLimited, Status: status, Message: "GitHub API rate limit exhausted", Details: details}
	case status >= 500:
		return &APIError{Code: CodeUpstreamError, Status: status, Message: fmt.Sprintf("GitHub API server error (status %d)", status), Details: details}
	default:
		return &APIError{Code: CodeUnexpected, Status: status, Message: fmt.Sprintf("GitHub API returned status %d", status), Details: details}
	}
}

// IsNotFound reports whether err is a NOT_FOUND APIError.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == CodeNotFound
}

// AsAPIError normalizes any error into an *APIError so that no raw transport
// error crosses the package boundary.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return &APIError{Code: CodeUnexpected, Message: err.Error()}
}
