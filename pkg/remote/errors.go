package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRemoteUnavailable covers transport failures: DNS, refused
	// connections, timeouts, cancelled contexts
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// ErrMalformedContent means the store answered but the document file is
	// missing or is not valid document JSON
	ErrMalformedContent = errors.New("malformed remote content")

	// ErrUnauthorized means the store rejected the bearer credential
	ErrUnauthorized = errors.New("credential rejected by remote store")
)

// HTTPError is a non-success status returned by the store
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote store returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("remote store returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same request may succeed
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func isTransient(err error) bool {
	if errors.Is(err, ErrRemoteUnavailable) {
		return true
	}
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Temporary()
}

func isClassified(err error) bool {
	var httpErr *HTTPError
	return errors.Is(err, ErrRemoteUnavailable) ||
		errors.Is(err, ErrMalformedContent) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.As(err, &httpErr)
}
