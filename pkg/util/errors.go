// Package util provides logging helpers and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure kinds surfaced by the control loop
var (
	ErrChannelUnavailable = errors.New("node unreachable")
	ErrCommandRejected    = errors.New("command rejected by control plane")
	ErrConvergenceTimeout = errors.New("network did not converge within deadline")
	ErrInconsistentState  = errors.New("boundary routers in inconsistent state")
	ErrSwitchInProgress   = errors.New("another switch operation is in progress")
	ErrValidationFailed   = errors.New("validation failed")
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// ChannelError wraps a transport failure with node context. It unwraps to
// ErrChannelUnavailable so callers can classify it as retryable.
type ChannelError struct {
	Node     string
	Attempts int
	Cause    error
}

func (e *ChannelError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("node %s unreachable after %d attempts: %v", e.Node, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("node %s unreachable: %v", e.Node, e.Cause)
}

func (e *ChannelError) Unwrap() error {
	return ErrChannelUnavailable
}

// NewChannelError creates a channel error
func NewChannelError(node string, attempts int, cause error) *ChannelError {
	return &ChannelError{Node: node, Attempts: attempts, Cause: cause}
}

// RejectedError reports a configuration command the remote control plane
// refused. Rejections are never retried.
type RejectedError struct {
	Node    string
	Command string
	Output  string
}

func (e *RejectedError) Error() string {
	msg := fmt.Sprintf("node %s rejected command %q", e.Node, e.Command)
	if e.Output != "" {
		msg += ": " + strings.TrimSpace(e.Output)
	}
	return msg
}

func (e *RejectedError) Unwrap() error {
	return ErrCommandRejected
}

// NewRejectedError creates a command-rejected error
func NewRejectedError(node, command, output string) *RejectedError {
	return &RejectedError{Node: node, Command: command, Output: output}
}

// RouterCostState records the cost values believed to be configured on one
// router, used by InconsistentStateError to give the operator enough detail
// to drive reconcile() or manual repair.
type RouterCostState struct {
	Router string
	Costs  map[string]int // interface → cost
}

func (s RouterCostState) String() string {
	parts := make([]string, 0, len(s.Costs))
	for intf, cost := range s.Costs {
		parts = append(parts, fmt.Sprintf("%s=%d", intf, cost))
	}
	return fmt.Sprintf("%s{%s}", s.Router, strings.Join(parts, " "))
}

// InconsistentStateError is surfaced when rollback failed or reconcile found
// boundary routers disagreeing. It carries per-router cost detail.
type InconsistentStateError struct {
	Operation string
	Routers   []RouterCostState
	Cause     error
}

func (e *InconsistentStateError) Error() string {
	states := make([]string, len(e.Routers))
	for i, r := range e.Routers {
		states[i] = r.String()
	}
	msg := fmt.Sprintf("%s left routers in inconsistent state: %s", e.Operation, strings.Join(states, ", "))
	if e.Cause != nil {
		msg += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return msg
}

func (e *InconsistentStateError) Unwrap() error {
	return ErrInconsistentState
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddError adds an error message unconditionally
func (v *ValidationBuilder) AddError(message string) *ValidationBuilder {
	v.errors = append(v.errors, message)
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
