package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when username or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken is returned when registering an already-used username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrNoSession is returned when a request carries no valid session.
	ErrNoSession = errors.New("no valid session")
	// ErrUnknownAction is returned for counter actions other than increment/decrement.
	ErrUnknownAction = errors.New("unknown action")
)

// RateLimitError is returned when the sliding window for a user is full.
type RateLimitError struct {
	RetryAfter int // seconds until the window frees up, always >= 1
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", e.RetryAfter)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Authentication failures
// never leak whether the username or the password was wrong; anything
// unrecognized collapses to a generic 500 with detail kept server-side.
func MapErrorToHTTP(err error) *HTTPError {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded", "RATE_LIMITED")
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrNoSession):
		return NewHTTPError(http.StatusUnauthorized, "not authenticated", "NO_SESSION")
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "USERNAME_TAKEN")
	case errors.Is(err, ErrUnknownAction):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "UNKNOWN_ACTION")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
