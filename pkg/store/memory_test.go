package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/duopath-network/duopath/pkg/topology"
	"github.com/duopath-network/duopath/pkg/util"
)

func TestMemoryIntentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Intent(ctx); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("Intent on empty store = %v, want ErrNotFound", err)
	}

	want := Intent{Preference: topology.PathB, UpdatedAt: time.Now()}
	if err := s.SetIntent(ctx, want); err != nil {
		t.Fatalf("SetIntent: %v", err)
	}
	got, err := s.Intent(ctx)
	if err != nil {
		t.Fatalf("Intent: %v", err)
	}
	if got.Preference != topology.PathB {
		t.Errorf("preference = %q, want %q", got.Preference, topology.PathB)
	}
}

func TestMemoryJournalNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, outcome := range []string{OutcomeCommitted, OutcomeRolledBack, OutcomeCommitted} {
		err := s.AppendJournal(ctx, JournalEntry{
			Timestamp: time.Now(),
			From:      topology.PathA,
			To:        topology.PathB,
			Outcome:   outcome,
		})
		if err != nil {
			t.Fatalf("AppendJournal: %v", err)
		}
	}

	entries, err := s.Journal(ctx, 2)
	if err != nil {
		t.Fatalf("Journal: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Outcome != OutcomeCommitted || entries[1].Outcome != OutcomeRolledBack {
		t.Errorf("entries out of order: %q, %q", entries[0].Outcome, entries[1].Outcome)
	}
}

func TestMemoryLockExcludesOtherOwner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.AcquireLock(ctx, "proc-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("AcquireLock(proc-1) = %v, %v", ok, err)
	}

	ok, err = s.AcquireLock(ctx, "proc-2", time.Minute)
	if err != nil {
		t.Fatalf("AcquireLock(proc-2): %v", err)
	}
	if ok {
		t.Error("second owner acquired held lock")
	}

	// Re-entry by the same owner refreshes the lease.
	ok, err = s.AcquireLock(ctx, "proc-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("re-acquire by holder = %v, %v", ok, err)
	}

	if err := s.ReleaseLock(ctx, "proc-1"); err != nil {
		t.Fatalf("ReleaseLock: %v", err)
	}
	ok, err = s.AcquireLock(ctx, "proc-2", time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire after release = %v, %v", ok, err)
	}
}

func TestMemoryLockLeaseExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.AcquireLock(ctx, "proc-1", time.Nanosecond)
	if err != nil || !ok {
		t.Fatalf("AcquireLock = %v, %v", ok, err)
	}
	time.Sleep(time.Millisecond)

	ok, err = s.AcquireLock(ctx, "proc-2", time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire after lease expiry = %v, %v", ok, err)
	}
}
