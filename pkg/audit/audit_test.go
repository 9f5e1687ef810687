package audit

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestLogger(t *testing.T) *FileLogger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewFileLogger(path, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestLogAndQuery(t *testing.T) {
	logger := newTestLogger(t)

	events := []*Event{
		NewEvent("alice", OpSwitch).WithPaths("A", "B").WithMutations(4).WithSuccess(),
		NewEvent("alice", OpSwitch).WithPaths("B", "A").WithError(errors.New("command rejected")).WithRollback(),
		NewEvent("bob", OpReconcile).WithSuccess(),
	}
	for _, e := range events {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	got, err := logger.Query(Filter{Operation: OpSwitch})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("switch events = %d, want 2", len(got))
	}

	got, err = logger.Query(Filter{FailureOnly: true})
	if err != nil {
		t.Fatalf("Query failures: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("failure events = %d, want 1", len(got))
	}
	if !got[0].RolledBack || got[0].Error == "" {
		t.Errorf("failure event missing rollback/error: %+v", got[0])
	}
}

func TestQueryLimit(t *testing.T) {
	logger := newTestLogger(t)

	for i := 0; i < 5; i++ {
		if err := logger.Log(NewEvent("alice", OpSwitch).WithSuccess()); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	got, err := logger.Query(Filter{Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestQueryTimeWindow(t *testing.T) {
	logger := newTestLogger(t)

	old := NewEvent("alice", OpSwitch).WithSuccess()
	old.Timestamp = time.Now().Add(-time.Hour)
	if err := logger.Log(old); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := logger.Log(NewEvent("alice", OpSwitch).WithSuccess()); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := logger.Query(Filter{StartTime: time.Now().Add(-time.Minute)})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("recent events = %d, want 1", len(got))
	}
}

func TestQueryMissingFileIsEmpty(t *testing.T) {
	logger := newTestLogger(t)
	logger.path = filepath.Join(t.TempDir(), "never-written.log")

	got, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}
