package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/duopath-network/duopath/pkg/util"
)

// Redis key layout. Keys are scoped by topology name so multiple labs
// can share one redis instance.
const (
	intentKeyFmt  = "DUOPATH_INTENT|%s"
	journalKeyFmt = "DUOPATH_JOURNAL|%s"
	lockKeyFmt    = "DUOPATH_LOCK|%s"

	journalMaxEntries = 200
)

// acquireLockScript atomically takes the switch lease.
// Returns 1 on success, 0 if another holder owns the lease.
var acquireLockScript = redis.NewScript(`
local key = KEYS[1]
local current = redis.call("HGET", key, "holder")
if current and current ~= ARGV[1] then
	return 0
end
redis.call("HSET", key, "holder", ARGV[1], "acquired", ARGV[2])
redis.call("PEXPIRE", key, tonumber(ARGV[3]))
return 1
`)

// releaseLockScript releases the lease with holder verification.
// Returns 1 on success, 0 on holder mismatch, -1 if no lease exists.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
if redis.call("HGET", key, "holder") ~= ARGV[1] then
	return 0
end
redis.call("DEL", key)
return 1
`)

// RedisStore persists the intent record in redis so separate duopath
// invocations (and operators on other machines) observe each other.
type RedisStore struct {
	client *redis.Client
	scope  string
}

// NewRedisStore creates a store backed by the redis instance at addr.
// scope is the topology name used to namespace keys.
func NewRedisStore(addr, scope string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		scope: scope,
	}
}

// Connect tests the connection.
func (s *RedisStore) Connect(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) SetIntent(ctx context.Context, intent Intent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("encoding intent: %w", err)
	}
	key := fmt.Sprintf(intentKeyFmt, s.scope)
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("storing intent: %w", err)
	}
	return nil
}

func (s *RedisStore) Intent(ctx context.Context) (*Intent, error) {
	key := fmt.Sprintf(intentKeyFmt, s.scope)
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading intent: %w", err)
	}
	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("decoding intent: %w", err)
	}
	return &intent, nil
}

func (s *RedisStore) AppendJournal(ctx context.Context, entry JournalEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding journal entry: %w", err)
	}
	key := fmt.Sprintf(journalKeyFmt, s.scope)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, journalMaxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending journal entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Journal(ctx context.Context, limit int) ([]JournalEntry, error) {
	key := fmt.Sprintf(journalKeyFmt, s.scope)
	stop := int64(journalMaxEntries - 1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	items, err := s.client.LRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	entries := make([]JournalEntry, 0, len(items))
	for _, item := range items {
		var entry JournalEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("decoding journal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *RedisStore) AcquireLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf(lockKeyFmt, s.scope)
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := acquireLockScript.Run(ctx, s.client, []string{key},
		owner, now, fmt.Sprintf("%d", ttl.Milliseconds())).Int()
	if err != nil {
		return false, fmt.Errorf("acquiring switch lease: %w", err)
	}
	return result == 1, nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, owner string) error {
	key := fmt.Sprintf(lockKeyFmt, s.scope)
	result, err := releaseLockScript.Run(ctx, s.client, []string{key}, owner).Int()
	if err != nil {
		return fmt.Errorf("releasing switch lease: %w", err)
	}
	if result == 0 {
		return fmt.Errorf("switch lease holder mismatch")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
