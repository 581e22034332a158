package cache

import (
	"context"
	"testing"

	"github.com/Sternrassler/release-attributes/pkg/summary"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client for testing.
// Integration tests under tests/integration use testcontainers-go instead.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil, "")
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client, "test")
	ctx := context.Background()

	entries := []Entry{
		{ID: "tt2", Aggregate: summary.FromPairs(summary.Pair{Label: "dvd", Count: 2}, summary.Pair{Label: "blank", Count: 1})},
		{ID: "tt1", Aggregate: summary.Aggregate{}},
	}
	if err := store.Save(ctx, entries); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0].ID != "tt2" || loaded[1].ID != "tt1" {
		t.Fatalf("loaded = %+v", loaded)
	}
	if got := summary.Encode(loaded[0].Aggregate); got != "dvd (2), blank (1)" {
		t.Errorf("loaded[0] = %q", got)
	}
}

func TestRedisStore_SaveReplacesSnapshot(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client, "test")
	ctx := context.Background()

	if err := store.Save(ctx, []Entry{{ID: "old", Aggregate: summary.Aggregate{}}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, []Entry{{ID: "new", Aggregate: summary.Aggregate{}}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "new" {
		t.Errorf("loaded = %+v, want only new", loaded)
	}
}

func TestRedisStore_OrphanedHashFields(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client, "test")
	ctx := context.Background()

	keys := Keys{Prefix: "test"}
	client.HSet(ctx, keys.Entries(), "zz", `{"dvd":1}`, "aa", `{}`)
	client.RPush(ctx, keys.Order(), "zz")

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0].ID != "zz" || loaded[1].ID != "aa" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestRedisStore_EmptySnapshot(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client, "test")
	ctx := context.Background()

	if err := store.Save(ctx, nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded = %+v, want none", loaded)
	}
}
