package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUpstreamError    = errors.New("upstream error")
	ErrRateLimited      = errors.New("rate limited")
	ErrGraphQL          = errors.New("graphql error")
	ErrUserError        = errors.New("user error")
	ErrInvalidResponse  = errors.New("invalid response")
)

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"` // Set for structured user errors
	StatusCode int    `json:"-"`               // HTTP status, not serialized
	Err        error  `json:"-"`               // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
		Err:        ErrNotFound,
	}
}

// NewValidationError creates a 400 error for invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		Field:      field,
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
}

// NewUnauthorizedError creates a 401 error for credential failures.
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:       "UNAUTHORIZED",
		Message:    reason,
		StatusCode: 401,
		Err:        ErrUnauthorized,
	}
}

// NewNotAuthenticatedError is raised when an operation needs a customer
// session token and none is stored.
func NewNotAuthenticatedError() *APIError {
	return &APIError{
		Code:       "NOT_AUTHENTICATED",
		Message:    "Not authenticated",
		StatusCode: 401,
		Err:        ErrNotAuthenticated,
	}
}

// NewUpstreamError creates a 502 error for backend failures.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %w", ErrUpstreamError, err),
	}
}

// NewGraphQLError carries the first message of a GraphQL errors array.
// Later messages are discarded.
func NewGraphQLError(message string) *APIError {
	if message == "" {
		message = "Shopify GraphQL error"
	}
	return &APIError{
		Code:       "GRAPHQL_ERROR",
		Message:    message,
		StatusCode: 502,
		Err:        ErrGraphQL,
	}
}

// NewUserError wraps the first structured user error a mutation returned
// alongside an otherwise successful response.
func NewUserError(message string, field []string) *APIError {
	e := &APIError{
		Code:       "USER_ERROR",
		Message:    message,
		StatusCode: 422,
		Err:        ErrUserError,
	}
	if len(field) > 0 {
		e.Field = field[len(field)-1]
	}
	return e
}

// NewInvalidResponseError is raised when a response lacks an object the
// caller requires, e.g. the products root of a listing query.
func NewInvalidResponseError(path string) *APIError {
	return &APIError{
		Code:       "INVALID_RESPONSE",
		Message:    fmt.Sprintf("response missing %s", path),
		StatusCode: 502,
		Err:        ErrInvalidResponse,
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: 500,
		Err:        err,
	}
}

// NewRateLimitError creates a 429 error for rate limiting.
func NewRateLimitError(service string) *APIError {
	return &APIError{
		Code:       "RATE_LIMITED",
		Message:    fmt.Sprintf("%s rate limit exceeded, please retry later", service),
		StatusCode: 429,
		Err:        ErrRateLimited,
	}
}

// Message returns the user-facing message of err when it carries an
// APIError, falling back to err.Error().
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
