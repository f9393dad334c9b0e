package argo

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind tags the failure mode of a backend call.
type ErrorKind string

const (
	// KindConnect covers DNS, dial, and TLS failures before a response.
	KindConnect ErrorKind = "connect"
	// KindTimeout covers deadline breaches at any stage of the call.
	KindTimeout ErrorKind = "timeout"
	// KindHTTPStatus covers responses the backend did deliver, carrying
	// the upstream status code and a bounded copy of the body.
	KindHTTPStatus ErrorKind = "http_status"
)

// BackendError is the single error shape the transport client produces.
// The orchestrator maps it onto the client-visible taxonomy: connect and
// timeout become 502, well-formed upstream 4xx/5xx statuses pass through.
type BackendError struct {
	Kind   ErrorKind
	Status int
	Body   string
	Err    error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("backend returned status %d: %s", e.Status, truncate(e.Body, 200))
	default:
		return fmt.Sprintf("backend %s error: %v", e.Kind, e.Err)
	}
}

// Unwrap returns the underlying error, if any.
func (e *BackendError) Unwrap() error { return e.Err }

// SizeLimitError reports that a backend response exceeded the configured
// buffering bound. It is never paired with a partial response.
type SizeLimitError struct {
	Limit int64
}

// Error implements the error interface.
func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("backend response exceeded the %d byte limit", e.Limit)
}

// classifyNetworkError tags an error from the HTTP client as a timeout or
// a connect failure.
func classifyNetworkError(err error) *BackendError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &BackendError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &BackendError{Kind: KindTimeout, Err: err}
	}
	return &BackendError{Kind: KindConnect, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
