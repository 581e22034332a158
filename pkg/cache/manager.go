package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Sternrassler/release-attributes/pkg/summary"
	"github.com/rs/zerolog"
)

// ErrNotLoaded is returned by FlushAll before a successful LoadAll. Flushing
// an unloaded cache would overwrite the stored snapshot with a partial one.
var ErrNotLoaded = errors.New("cache not loaded")

// Manager holds the in-memory cache snapshot for one run.
//
// Entries are loaded once with LoadAll and written back in full with
// FlushAll. Ids that failed during this run are tracked separately and are
// never persisted, so they are fetched again on the next run.
type Manager struct {
	store  Store
	logger zerolog.Logger

	mu      sync.RWMutex
	loaded  bool
	ids     []string
	entries map[string]summary.Aggregate
	failed  map[string]error
	dirty   int

	flushMu sync.Mutex
}

// NewManager creates a cache manager backed by store.
func NewManager(store Store, logger zerolog.Logger) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	return &Manager{
		store:   store,
		logger:  logger.With().Str("component", "cache").Logger(),
		entries: make(map[string]summary.Aggregate),
		failed:  make(map[string]error),
	}
}

// LoadAll replaces the in-memory snapshot with the stored one.
func (m *Manager) LoadAll(ctx context.Context) error {
	start := time.Now()

	stored, err := m.store.Load(ctx)
	if err != nil {
		CacheErrors.WithLabelValues("load").Inc()
		return fmt.Errorf("load cache: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ids = m.ids[:0]
	m.entries = make(map[string]summary.Aggregate, len(stored))
	m.failed = make(map[string]error)
	for _, e := range stored {
		if _, dup := m.entries[e.ID]; !dup {
			m.ids = append(m.ids, e.ID)
		}
		m.entries[e.ID] = e.Aggregate
	}
	m.dirty = 0
	m.loaded = true
	CacheEntries.Set(float64(len(m.ids)))

	m.logger.Info().
		Int("entries", len(m.ids)).
		Dur("duration", time.Since(start)).
		Msg("Cache loaded")

	return nil
}

// Get returns the cached aggregate for id. An empty aggregate is a valid hit.
func (m *Manager) Get(id string) (summary.Aggregate, bool) {
	m.mu.RLock()
	agg, ok := m.entries[id]
	m.mu.RUnlock()

	if ok {
		CacheHits.Inc()
		m.logger.Debug().Str("id", id).Msg("Cache hit")
	} else {
		CacheMisses.Inc()
		m.logger.Debug().Str("id", id).Msg("Cache miss")
	}
	return agg, ok
}

// Put stores agg as the authoritative aggregate for id and clears any
// failure recorded for it.
func (m *Manager) Put(id string, agg summary.Aggregate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[id]; !exists {
		m.ids = append(m.ids, id)
	}
	m.entries[id] = agg
	delete(m.failed, id)
	m.dirty++
	CacheEntries.Set(float64(len(m.ids)))
}

// MarkFailed records that id could not be fetched in this run. The mark is
// not persisted.
func (m *Manager) MarkFailed(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[id] = err
}

// Failed returns the ids marked as failed, sorted.
func (m *Manager) Failed() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.failed))
	for id := range m.failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Forget removes id from the cache. It reports whether id was present.
func (m *Manager) Forget(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return false
	}
	delete(m.entries, id)
	for i, v := range m.ids {
		if v == id {
			m.ids = append(m.ids[:i], m.ids[i+1:]...)
			break
		}
	}
	m.dirty++
	CacheEntries.Set(float64(len(m.ids)))
	return true
}

// Len returns the number of cached entries.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Dirty returns the number of changes since the last load or flush.
func (m *Manager) Dirty() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirty
}

// Entries returns all entries in insertion order.
func (m *Manager) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() []Entry {
	out := make([]Entry, 0, len(m.ids))
	for _, id := range m.ids {
		out = append(out, Entry{ID: id, Aggregate: m.entries[id]})
	}
	return out
}

// FlushAll writes the full snapshot to the store. Only one flush runs at a
// time; Put may continue concurrently and is picked up by the next flush.
func (m *Manager) FlushAll(ctx context.Context) error {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	m.mu.RLock()
	if !m.loaded {
		m.mu.RUnlock()
		CacheErrors.WithLabelValues("flush").Inc()
		return ErrNotLoaded
	}
	snapshot := m.snapshotLocked()
	flushed := m.dirty
	m.mu.RUnlock()

	start := time.Now()
	if err := m.store.Save(ctx, snapshot); err != nil {
		CacheErrors.WithLabelValues("flush").Inc()
		return fmt.Errorf("flush cache: %w", err)
	}

	m.mu.Lock()
	m.dirty -= flushed
	m.mu.Unlock()
	CacheFlushes.Inc()

	m.logger.Info().
		Int("entries", len(snapshot)).
		Int("changes", flushed).
		Dur("duration", time.Since(start)).
		Msg("Cache flushed")

	return nil
}
