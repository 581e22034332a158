package client

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "client error should not retry",
			err:      &FetchError{ErrorClass: ErrorClassClient, StatusCode: 404},
			expected: false,
		},
		{
			name:     "server error should retry",
			err:      &FetchError{ErrorClass: ErrorClassServer, StatusCode: 502},
			expected: true,
		},
		{
			name:     "rate limit should retry",
			err:      &FetchError{ErrorClass: ErrorClassRateLimit, StatusCode: 429},
			expected: true,
		},
		{
			name:     "network error should retry",
			err:      &FetchError{ErrorClass: ErrorClassNetwork, Err: io.EOF},
			expected: true,
		},
		{
			name:     "wrapped server error should retry",
			err:      fmt.Errorf("page 2: %w", &FetchError{ErrorClass: ErrorClassServer}),
			expected: true,
		},
		{
			name:     "protocol error should not retry",
			err:      &ProtocolError{ID: "tt1", Path: "data", Err: ErrMissingField},
			expected: false,
		},
		{
			name:     "plain error should not retry",
			err:      errors.New("boom"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.expected {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *FetchError
		expected string
	}{
		{
			name: "error with wrapped error",
			err: &FetchError{
				StatusCode: 0,
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        io.ErrUnexpectedEOF,
			},
			expected: "fetch network error (status 0): request failed: unexpected EOF",
		},
		{
			name: "error without wrapped error",
			err: &FetchError{
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Message:    "500 Internal Server Error",
			},
			expected: "fetch server error (status 500): 500 Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	err := &FetchError{ErrorClass: ErrorClassNetwork, Err: io.EOF}
	if !errors.Is(err, io.EOF) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestProtocolError_Unwrap(t *testing.T) {
	err := fmt.Errorf("walk: %w", &ProtocolError{ID: "tt1", Path: "data.title", Err: ErrMissingField})

	if !errors.Is(err, ErrMissingField) {
		t.Error("errors.Is should find ErrMissingField")
	}

	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatal("errors.As should find *ProtocolError")
	}
	if protoErr.Path != "data.title" {
		t.Errorf("Path = %q", protoErr.Path)
	}
	if Classify(err) != ErrorClassProtocol {
		t.Errorf("Classify() = %q, want protocol", Classify(err))
	}
}

func TestRetryAfter(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &FetchError{ErrorClass: ErrorClassRateLimit, RetryAfter: 3 * time.Second})
	if got := RetryAfter(err); got != 3*time.Second {
		t.Errorf("RetryAfter() = %v, want 3s", got)
	}
	if got := RetryAfter(errors.New("other")); got != 0 {
		t.Errorf("RetryAfter(other) = %v, want 0", got)
	}
}
