package httpclient

import (
	"errors"
	"fmt"
)

// HTTPError wraps a non-2xx response from an upstream call with enough
// context for logging and for internal/bridgeerrors to classify it.
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

// NewHTTPError constructs an HTTPError.
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{StatusCode: statusCode, URL: url, Message: message}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// IsHTTPError reports whether err is (or wraps) an *HTTPError. A
// statusCode of 0 matches any status.
func IsHTTPError(err error, statusCode int) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return statusCode == 0 || httpErr.StatusCode == statusCode
}
