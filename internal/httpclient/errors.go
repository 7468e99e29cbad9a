package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRequestFailed matches every *RequestFailedError.
	ErrRequestFailed = errors.New("request failed")
	// ErrUnauthorized is wrapped by RequestFailedError for 401 and 403 responses.
	ErrUnauthorized = errors.New("not authorized")
)

// RequestFailedError is returned for transport failures and non-2xx
// responses. StatusCode is zero when no response was received.
type RequestFailedError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("Request to %s failed: %v", e.URL, e.Err)
}

func (e *RequestFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRequestFailed}
	}
	return []error{ErrRequestFailed, e.Err}
}

func statusError(code int, body string) error {
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return fmt.Errorf("%w: HTTP %d", ErrUnauthorized, code)
	}
	if body != "" {
		return fmt.Errorf("HTTP %d: %s", code, body)
	}
	return fmt.Errorf("HTTP %d", code)
}
