package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/release-attributes/pkg/summary"
	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// FileStore keeps the snapshot as a JSON object mapping external id to an
// object of label counts. Key order is preserved in both directions.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore creates a store for the JSON file at path. The file and its
// directory are created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the cache file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the cache file. A missing or empty file yields no entries.
func (s *FileStore) Load(ctx context.Context) ([]Entry, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil // fresh start
	}

	locked, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock cache file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock cache file: %s is locked", s.path)
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil // fresh start
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	entries, err := decodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("parse cache file %s: %w", s.path, err)
	}
	return entries, nil
}

// Save rewrites the cache file atomically.
func (s *FileStore) Save(ctx context.Context, entries []Entry) error {
	data, err := encodeSnapshot(entries)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock cache file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock cache file: %s is locked", s.path)
	}
	defer s.lock.Unlock()

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// encodeSnapshot renders entries as an indented JSON object in entry order.
func encodeSnapshot(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.ID)
		if err != nil {
			return nil, err
		}
		value, err := e.Aggregate.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// decodeSnapshot parses a JSON object of aggregates keeping key order.
func decodeSnapshot(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var entries []Entry
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected id, got %v", keyTok)
		}

		var agg summary.Aggregate
		if err := dec.Decode(&agg); err != nil {
			return nil, fmt.Errorf("entry %s: %w", id, err)
		}

		if i, dup := index[id]; dup {
			entries[i].Aggregate = agg
			continue
		}
		index[id] = len(entries)
		entries = append(entries, Entry{ID: id, Aggregate: agg})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}
