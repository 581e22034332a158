package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Sternrassler/release-attributes/pkg/summary"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the snapshot in Redis: a hash of aggregates plus a list
// recording id order. Save replaces both in a single transaction.
type RedisStore struct {
	redis *redis.Client
	keys  Keys
}

// NewRedisStore creates a Redis-backed store under prefix.
func NewRedisStore(redisClient *redis.Client, prefix string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
		keys:  Keys{Prefix: prefix},
	}
}

// Load reads every entry. Ids present in the hash but missing from the
// order list are appended in sorted order.
func (s *RedisStore) Load(ctx context.Context) ([]Entry, error) {
	order, err := s.redis.LRange(ctx, s.keys.Order(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	raw, err := s.redis.HGetAll(ctx, s.keys.Entries()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	appendEntry := func(id string) error {
		value, ok := raw[id]
		if !ok || seen[id] {
			return nil
		}
		var agg summary.Aggregate
		if err := json.Unmarshal([]byte(value), &agg); err != nil {
			return fmt.Errorf("entry %s: %w", id, err)
		}
		seen[id] = true
		entries = append(entries, Entry{ID: id, Aggregate: agg})
		return nil
	}

	for _, id := range order {
		if err := appendEntry(id); err != nil {
			return nil, err
		}
	}

	var orphans []string
	for id := range raw {
		if !seen[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		if err := appendEntry(id); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// Save replaces the stored snapshot.
func (s *RedisStore) Save(ctx context.Context, entries []Entry) error {
	fields := make([]interface{}, 0, len(entries)*2)
	ids := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e.Aggregate)
		if err != nil {
			return fmt.Errorf("marshal entry %s: %w", e.ID, err)
		}
		fields = append(fields, e.ID, string(data))
		ids = append(ids, e.ID)
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.keys.Entries(), s.keys.Order())
		if len(entries) > 0 {
			pipe.HSet(ctx, s.keys.Entries(), fields...)
			pipe.RPush(ctx, s.keys.Order(), ids...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis snapshot: %w", err)
	}
	return nil
}
