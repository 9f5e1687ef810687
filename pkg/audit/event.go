// Package audit provides audit logging for path-switch operations.
package audit

import (
	"fmt"
	"time"
)

// Event records one control-plane operation against the lab: a path
// switch, a reconcile, or the initial bring-up. One event is written
// per operation, after it completes or fails.
type Event struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	User       string        `json:"user"`
	Operation  string        `json:"operation"`
	FromPath   string        `json:"from_path,omitempty"`
	ToPath     string        `json:"to_path,omitempty"`
	Routers    []string      `json:"routers,omitempty"`
	Mutations  int           `json:"mutations"`
	Success    bool          `json:"success"`
	RolledBack bool          `json:"rolled_back,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Operation names.
const (
	OpInitialize = "initialize"
	OpSwitch     = "switch"
	OpReconcile  = "reconcile"
	OpTeardown   = "teardown"
)

// Filter defines criteria for querying audit events.
type Filter struct {
	Operation   string
	User        string
	StartTime   time.Time
	EndTime     time.Time
	FailureOnly bool
	Limit       int
}

// NewEvent creates an event for the given operation.
func NewEvent(user, operation string) *Event {
	return &Event{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Timestamp: time.Now(),
		User:      user,
		Operation: operation,
	}
}

// WithPaths records the preference transition the operation attempted.
func (e *Event) WithPaths(from, to string) *Event {
	e.FromPath = from
	e.ToPath = to
	return e
}

// WithRouters records the routers the operation touched.
func (e *Event) WithRouters(routers []string) *Event {
	e.Routers = routers
	return e
}

// WithMutations records how many cost mutations were issued.
func (e *Event) WithMutations(n int) *Event {
	e.Mutations = n
	return e
}

// WithSuccess marks the event as successful.
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed.
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithRollback records that the operation undid its partial mutations.
func (e *Event) WithRollback() *Event {
	e.RolledBack = true
	return e
}

// WithDuration sets the operation duration.
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}
