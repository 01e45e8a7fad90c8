package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies why a completion request failed
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindUpstreamStatus    ErrorKind = "upstream-status"
	KindConnectionFailure ErrorKind = "connection-failure"
	KindMalformedResponse ErrorKind = "malformed-response"
	KindUnknown           ErrorKind = "unknown"
)

// maxErrorBodyLength is the number of characters of an upstream error body kept in a CompletionError
const maxErrorBodyLength = 200

// CompletionError is the single error type returned by Completer implementations
type CompletionError struct {
	Kind       ErrorKind
	StatusCode int    // Only set for KindUpstreamStatus
	Body       string // Truncated upstream response body, only set for KindUpstreamStatus
	Err        error
}

func (e *CompletionError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return "completion timed out"
	case KindUpstreamStatus:
		return fmt.Sprintf("completion failed with HTTP %d: %s", e.StatusCode, e.Body)
	case KindConnectionFailure:
		return fmt.Sprintf("completion connection failed: %v", e.Err)
	case KindMalformedResponse:
		return fmt.Sprintf("malformed completion response: %v", e.Err)
	default:
		return fmt.Sprintf("completion failed: %v", e.Err)
	}
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a CompletionError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var ce *CompletionError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == kind
}

// KindOf returns the kind of a CompletionError, or KindUnknown for any other error
func KindOf(err error) ErrorKind {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

func newStatusError(statusCode int, body string) *CompletionError {
	return &CompletionError{
		Kind:       KindUpstreamStatus,
		StatusCode: statusCode,
		Body:       truncate(body, maxErrorBodyLength),
	}
}

func newMalformedError(format string, args ...any) *CompletionError {
	return &CompletionError{Kind: KindMalformedResponse, Err: fmt.Errorf(format, args...)}
}

// classifyTransportError maps an error returned while performing the HTTP exchange to a CompletionError
func classifyTransportError(err error) *CompletionError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &CompletionError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &CompletionError{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &CompletionError{Kind: KindUnknown, Err: err}
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &netErr) {
		return &CompletionError{Kind: KindConnectionFailure, Err: err}
	}
	return &CompletionError{Kind: KindUnknown, Err: err}
}

// truncate shortens s to at most n characters
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
