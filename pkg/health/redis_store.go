package health

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis, for deployments running more
// than one registry process against a shared health view. Unlike
// MemoryStore, records carry a TTL: a tool that stops being probed
// (process crash, deregistration) ages out instead of reporting a
// stale "healthy" forever.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a RedisStore. ttl should be a small multiple of
// the monitor's probe interval so a missed probe cycle or two doesn't
// immediately evict the record.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisStore{client: client, prefix: "registry:health:", ttl: ttl}
}

func (s *RedisStore) key(toolID string) string {
	return s.prefix + toolID
}

func (s *RedisStore) Set(toolID string, rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	s.client.Set(ctx, s.key(toolID), data, s.ttl)
}

func (s *RedisStore) Get(toolID string) (Record, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(toolID)).Bytes()
	if err != nil {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}

func (s *RedisStore) All() map[string]Record {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := map[string]Record{}
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		out[key[len(s.prefix):]] = rec
	}
	return out
}

// Ping verifies connectivity at startup so a misconfigured Redis
// target fails fast instead of silently degrading every probe to "not
// found".
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("health: redis ping failed: %w", err)
	}
	return nil
}
