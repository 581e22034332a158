package cache

import (
	"context"

	"github.com/Sternrassler/release-attributes/pkg/summary"
)

// Entry is one cached aggregate keyed by external id.
type Entry struct {
	ID        string
	Aggregate summary.Aggregate
}

// Store persists a full cache snapshot. Load and Save always operate on
// the whole snapshot; there is no incremental persistence.
type Store interface {
	// Load returns every stored entry in stored order. A store that has
	// never been saved returns no entries and no error.
	Load(ctx context.Context) ([]Entry, error)

	// Save replaces the stored snapshot with entries.
	Save(ctx context.Context, entries []Entry) error
}
