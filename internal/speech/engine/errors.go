package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the provider is missing credentials or is disabled.
	// It is a configuration precondition, not a synthesis failure.
	ErrUnavailable = errors.New("provider not configured")

	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("text is empty")

	// ErrJobFailed is returned when an asynchronous job reports failure.
	ErrJobFailed = errors.New("synthesis job failed")

	// ErrTimeout is returned when job polling exhausts its attempt budget.
	ErrTimeout = errors.New("synthesis job timed out")
)

// RequestError is a failed request against a provider API.
type RequestError struct {
	Provider ProviderID
	Op       string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
