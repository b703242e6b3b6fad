// Package benchmarkerrors contains the typed errors returned by the benchmark harness.
//
// Callers should use errors.As (from github.com/pkg/errors or the standard library) to
// inspect them, since most are wrapped with a stack trace before being returned.
// If several errors occur while shutting a run down, they are combined into a
// multierror.Error from package github.com/hashicorp/go-multierror.
package benchmarkerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrPoolDrained is returned when a task is submitted to a worker pool that has already been drained.
// Drained pools are discarded; a fresh pool must be created to continue submitting work.
var ErrPoolDrained = errors.New("worker pool has been drained")

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "iterations"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message, e.g., explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// ErrUnregisteredLabel is returned when a probe reports a label that was never declared by any registered metric.
// This is a configuration bug rather than a transient failure, and it terminates the run.
type ErrUnregisteredLabel struct {
	Label     string
	Iteration int
}

func (err *ErrUnregisteredLabel) Error() string {
	return fmt.Sprintf("label %q reported for iteration %d was never registered", err.Label, err.Iteration)
}

// ErrDrainTimeout is returned when a worker pool could not be drained before its deadline.
type ErrDrainTimeout struct {
	// Number of tasks still in flight when the deadline passed
	Pending int
	Timeout string
}

func (err *ErrDrainTimeout) Error() (s string) {
	s = fmt.Sprintf("%d task(s) still pending after draining the worker pool", err.Pending)
	if err.Timeout != "" {
		s = s + fmt.Sprintf(" for %s", err.Timeout)
	}
	return
}
