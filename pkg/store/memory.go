package store

import (
	"context"
	"sync"
	"time"

	"github.com/duopath-network/duopath/pkg/util"
)

// MemoryStore keeps the intent and journal in process memory. It is the
// fallback when no redis endpoint is configured; the lock then only
// guards against concurrent use within the same process.
type MemoryStore struct {
	mu        sync.Mutex
	intent    *Intent
	journal   []JournalEntry
	lockOwner string
	lockUntil time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SetIntent(_ context.Context, intent Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := intent
	s.intent = &copied
	return nil
}

func (s *MemoryStore) Intent(_ context.Context) (*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.intent == nil {
		return nil, util.ErrNotFound
	}
	copied := *s.intent
	return &copied, nil
}

func (s *MemoryStore) AppendJournal(_ context.Context, entry JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, entry)
	return nil
}

func (s *MemoryStore) Journal(_ context.Context, limit int) ([]JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.journal)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]JournalEntry, 0, n)
	for i := len(s.journal) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.journal[i])
	}
	return out, nil
}

func (s *MemoryStore) AcquireLock(_ context.Context, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if s.lockOwner != "" && s.lockOwner != owner && now.Before(s.lockUntil) {
		return false, nil
	}
	s.lockOwner = owner
	s.lockUntil = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) ReleaseLock(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockOwner == owner {
		s.lockOwner = ""
		s.lockUntil = time.Time{}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
