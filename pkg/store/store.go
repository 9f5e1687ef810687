// Package store persists switch intent across process restarts.
//
// The store is advisory: the routers remain the authoritative source of
// the installed cost assignment. Recovery reads the routers first and
// consults the stored intent only when they disagree.
package store

import (
	"context"
	"time"

	"github.com/duopath-network/duopath/pkg/topology"
)

// Intent is the last path preference an operator asked for.
type Intent struct {
	Preference topology.Preference `json:"preference"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// JournalEntry records the outcome of one switch attempt.
type JournalEntry struct {
	Timestamp time.Time           `json:"timestamp"`
	From      topology.Preference `json:"from"`
	To        topology.Preference `json:"to"`
	Outcome   string              `json:"outcome"`
	Detail    string              `json:"detail,omitempty"`
}

// Journal outcomes.
const (
	OutcomeCommitted    = "committed"
	OutcomeRolledBack   = "rolled-back"
	OutcomeInconsistent = "inconsistent"
	OutcomeNoop         = "noop"
)

// Store persists the intent record and the switch journal, and provides
// a cross-process lease lock so two duopath invocations cannot mutate
// costs at the same time.
type Store interface {
	// SetIntent replaces the stored intent record.
	SetIntent(ctx context.Context, intent Intent) error

	// Intent returns the stored intent, or util.ErrNotFound when no
	// switch has been recorded yet.
	Intent(ctx context.Context) (*Intent, error)

	// AppendJournal appends a switch outcome to the journal.
	AppendJournal(ctx context.Context, entry JournalEntry) error

	// Journal returns the most recent entries, newest first.
	Journal(ctx context.Context, limit int) ([]JournalEntry, error)

	// AcquireLock takes the switch lease for owner. Returns false when
	// another owner holds it. The lease expires after ttl so a crashed
	// process cannot wedge the lock forever.
	AcquireLock(ctx context.Context, owner string, ttl time.Duration) (bool, error)

	// ReleaseLock releases the lease if owner still holds it.
	ReleaseLock(ctx context.Context, owner string) error

	// Close releases any backend resources.
	Close() error
}
