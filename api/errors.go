package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// HTTPError is returned when the service answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	if msg != "" {
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// TransportError is returned when no complete response could be read:
// dial and DNS failures, timeouts, or a connection dropped mid-body.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to send request %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request was aborted by the client timeout or
// a context deadline.
func (e *TransportError) Timeout() bool {
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// DecodeError is returned when a 2xx body is not valid JSON of the expected shape.
type DecodeError struct {
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to parse response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an HTTPError with status 404.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
