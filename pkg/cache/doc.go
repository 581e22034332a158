// Package cache keeps per-title attribute aggregates across runs.
//
// The cache is a whole-snapshot store: the Manager loads every entry into
// memory once at the start of a run and writes the full snapshot back with
// FlushAll. A run interrupted before its flush loses the entries computed
// since the previous flush.
//
// # Basic Usage
//
//	store := cache.NewFileStore("data/output/imdb_attributes_cache.json")
//	manager := cache.NewManager(store, logger)
//
//	if err := manager.LoadAll(ctx); err != nil {
//		return err
//	}
//	defer manager.FlushAll(ctx)
//
//	if agg, ok := manager.Get("tt0371746"); ok {
//		// authoritative, even when empty
//	}
//
// # Stores
//
//   - FileStore: JSON object {id: {label: count}}, atomic rewrite, guarded
//     by an advisory lock file next to the cache file
//   - RedisStore: hash <prefix>:entries plus list <prefix>:order, replaced in
//     one MULTI/EXEC
//   - MemoryStore: in-process, for tests and cache-less runs
//
// # Failed Ids
//
// MarkFailed records ids whose walk failed during this run. They are not
// part of the snapshot, so the next run fetches them again instead of
// trusting an empty or partial result.
//
// # Metrics
//
//   - release_cache_hits_total - Cache hits
//   - release_cache_misses_total - Cache misses
//   - release_cache_entries - Entries held in memory
//   - release_cache_flushes_total - Snapshot writes
//   - release_cache_errors_total{operation} - Load and flush errors
package cache
