package common

import (
	"errors"
	"fmt"
)

// Sentinel errors for the client error taxonomy. Library code wraps these so
// callers can branch with errors.Is regardless of the message text.
var (
	ErrConnection = errors.New("server unreachable")
	ErrSubmission = errors.New("submission rejected")
	ErrTimeout    = errors.New("polling exceeded max wait")
	ErrJobFailed  = errors.New("job failed")
	ErrDownload   = errors.New("result download failed")
	ErrExtraction = errors.New("archive extraction failed")
	ErrService    = errors.New("service error")

	// ErrInvalidInput covers client-side misconfiguration and bad arguments.
	ErrInvalidInput = errors.New("invalid input")
)

// APIError carries the originating HTTP status code and response body so
// failures can be diagnosed without re-contacting the server.
type APIError struct {
	StatusCode int
	Body       string
	Message    string
	Kind       error // one of the sentinels above
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Message, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Message, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// NewAPIError builds an APIError wrapping the given sentinel.
func NewAPIError(kind error, statusCode int, body, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Body:       body,
		Message:    message,
		Kind:       kind,
	}
}

// WrapError annotates err with a message, preserving the chain.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
