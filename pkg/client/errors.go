package client

import (
	"errors"
	"fmt"
	"time"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassProtocol represents responses with an unexpected shape.
	ErrorClassProtocol ErrorClass = "protocol"
)

// ErrMissingField is wrapped by ProtocolError when an expected field is absent.
var ErrMissingField = errors.New("missing field")

// FetchError is returned for transport failures and non-success statuses.
type FetchError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	// RetryAfter is the server-requested delay, or 0.
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("fetch %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when a response cannot be decoded into a Page.
type ProtocolError struct {
	ID   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error for %s at %s: %v", e.ID, e.Path, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Classify returns the ErrorClass carried by err, or "" if err is not a
// client error.
func Classify(err error) ErrorClass {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.ErrorClass
	}
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return ErrorClassProtocol
	}
	return ""
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	switch Classify(err) {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx and malformed responses will not improve on retry
		return false
	}
}

// RetryAfter returns the server-requested delay carried by err, or 0.
func RetryAfter(err error) time.Duration {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.RetryAfter
	}
	return 0
}
