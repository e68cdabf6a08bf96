package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keyspace stores flat string hashes with an optional expiry.
type Keyspace interface {
	// Get returns the fields of key, or an empty map when key does not exist.
	Get(ctx context.Context, key string) (map[string]string, error)
	// Set replaces the hash at key. A non-positive ttl keeps it until deleted.
	Set(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisKeyspace keeps hashes in Redis.
type RedisKeyspace struct {
	client redis.UniversalClient
}

// NewRedisKeyspace wraps a go-redis client.
func NewRedisKeyspace(client redis.UniversalClient) *RedisKeyspace {
	return &RedisKeyspace{client: client}
}

func (k *RedisKeyspace) Get(ctx context.Context, key string) (map[string]string, error) {
	return k.client.HGetAll(ctx, key).Result()
}

func (k *RedisKeyspace) Set(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	values := make(map[string]any, len(fields))
	for f, v := range fields {
		values[f] = v
	}
	_, err := k.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

func (k *RedisKeyspace) Delete(ctx context.Context, key string) error {
	return k.client.Del(ctx, key).Err()
}

// MemoryKeyspace keeps hashes in process memory. Expired entries are dropped
// lazily on access and by Sweep.
type MemoryKeyspace struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	fields    map[string]string
	expiresAt time.Time
}

// NewMemoryKeyspace creates an empty in-memory keyspace.
func NewMemoryKeyspace() *MemoryKeyspace {
	return &MemoryKeyspace{entries: make(map[string]memoryEntry), now: time.Now}
}

func (k *MemoryKeyspace) expired(e memoryEntry, now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (k *MemoryKeyspace) Get(_ context.Context, key string) (map[string]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		return map[string]string{}, nil
	}
	if k.expired(e, k.now()) {
		delete(k.entries, key)
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(e.fields))
	for f, v := range e.fields {
		out[f] = v
	}
	return out, nil
}

func (k *MemoryKeyspace) Set(_ context.Context, key string, fields map[string]string, ttl time.Duration) error {
	e := memoryEntry{fields: make(map[string]string, len(fields))}
	for f, v := range fields {
		e.fields[f] = v
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if ttl > 0 {
		e.expiresAt = k.now().Add(ttl)
	}
	k.entries[key] = e
	return nil
}

func (k *MemoryKeyspace) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.entries, key)
	return nil
}

// Sweep drops every expired entry and returns how many were removed.
func (k *MemoryKeyspace) Sweep() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.now()
	removed := 0
	for key, e := range k.entries {
		if k.expired(e, now) {
			delete(k.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (k *MemoryKeyspace) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
