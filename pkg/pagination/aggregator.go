package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/release-attributes/pkg/cache"
	"github.com/Sternrassler/release-attributes/pkg/client"
	"github.com/Sternrassler/release-attributes/pkg/ratelimit"
	"github.com/Sternrassler/release-attributes/pkg/summary"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	walksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "release_walks_total",
		Help: "Total attribute aggregations by outcome",
	}, []string{"outcome"})

	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "release_pages_fetched_total",
		Help: "Total release-date pages fetched successfully",
	})
)

// ErrCursorStalled is returned when a page announces a next page but hands
// back the cursor that produced it.
var ErrCursorStalled = errors.New("pagination cursor did not advance")

// PageFetcher is the interface the API client implements for single-page fetching.
type PageFetcher interface {
	// FetchPage fetches one page for id; an empty cursor selects the first page.
	FetchPage(ctx context.Context, id, cursor string) (*client.Page, error)
}

// WalkState is the state of one title's page walk.
type WalkState int

const (
	// StateFetching is the initial state; more pages may follow.
	StateFetching WalkState = iota
	// StateDone means every page was fetched.
	StateDone
	// StateFailed means the walk stopped early; the aggregate is partial.
	StateFailed
)

func (s WalkState) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("WalkState(%d)", int(s))
	}
}

// WalkResult is the outcome of walking every page of one title.
type WalkResult struct {
	ID        string
	Aggregate summary.Aggregate
	State     WalkState
	Pages     int
	Err       error
}

// Outcome describes how Aggregate produced its result.
type Outcome string

const (
	OutcomeCached  Outcome = "cached"
	OutcomeFetched Outcome = "fetched"
	OutcomeFailed  Outcome = "failed"
)

// Result is the cache-aware aggregation result for one title.
type Result struct {
	ID        string
	Aggregate summary.Aggregate
	Outcome   Outcome
	Pages     int
	Err       error
}

// Config holds aggregator configuration.
type Config struct {
	// Pacer is consulted between two pages of the same title.
	Pacer ratelimit.Pacer

	// Retry controls per-page retries of transient errors.
	Retry RetryConfig

	// CacheFailedWalks stores partial aggregates of failed walks as if they
	// were complete. Such entries are never refetched; leave false unless
	// the cache must match the behaviour of older runs.
	CacheFailedWalks bool
}

// DefaultConfig returns the pacing and retry policy used against the public API.
func DefaultConfig() Config {
	return Config{
		Pacer: ratelimit.Fixed(ratelimit.DefaultPageDelay),
		Retry: DefaultRetryConfig(),
	}
}

// Aggregator produces attribute aggregates per title.
type Aggregator struct {
	fetcher PageFetcher
	cache   *cache.Manager
	config  Config
	logger  zerolog.Logger
}

// NewAggregator creates an aggregator. A nil cache disables caching.
func NewAggregator(fetcher PageFetcher, cacheManager *cache.Manager, config Config, logger zerolog.Logger) *Aggregator {
	if config.Pacer == nil {
		config.Pacer = ratelimit.None()
	}
	return &Aggregator{
		fetcher: fetcher,
		cache:   cacheManager,
		config:  config,
		logger:  logger.With().Str("component", "aggregator").Logger(),
	}
}

// Aggregate returns the aggregate for id, consulting the cache first.
// A cached aggregate is returned verbatim, even when empty. Errors are
// logged and reflected in the result; they never escape as a panic or
// abort other titles.
func (a *Aggregator) Aggregate(ctx context.Context, id string) Result {
	if a.cache != nil {
		if agg, ok := a.cache.Get(id); ok {
			walksTotal.WithLabelValues(string(OutcomeCached)).Inc()
			return Result{ID: id, Aggregate: agg, Outcome: OutcomeCached}
		}
	}

	walk := a.Walk(ctx, id)
	res := Result{
		ID:        id,
		Aggregate: walk.Aggregate,
		Pages:     walk.Pages,
		Err:       walk.Err,
	}

	switch walk.State {
	case StateDone:
		res.Outcome = OutcomeFetched
		if a.cache != nil {
			a.cache.Put(id, walk.Aggregate)
		}
	default:
		res.Outcome = OutcomeFailed
		a.logger.Warn().
			Err(walk.Err).
			Str("id", id).
			Str("error_class", string(client.Classify(walk.Err))).
			Int("pages", walk.Pages).
			Int("labels", walk.Aggregate.Len()).
			Msg("Attribute walk failed")

		// An interrupted walk is never final, whatever the failure policy.
		interrupted := ctx.Err() != nil || errors.Is(walk.Err, context.Canceled) || errors.Is(walk.Err, ErrContextCancelled)
		if a.cache != nil {
			if a.config.CacheFailedWalks && !interrupted {
				a.cache.Put(id, walk.Aggregate)
			} else {
				a.cache.MarkFailed(id, walk.Err)
			}
		}
	}

	walksTotal.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

// Walk fetches every page of id and counts attribute labels. It does not
// consult or update the cache. On failure the returned aggregate holds the
// counts of the pages fetched before the error.
func (a *Aggregator) Walk(ctx context.Context, id string) WalkResult {
	start := time.Now()
	res := WalkResult{ID: id, State: StateFetching}

	var tally summary.Tally
	cursor := ""

	for res.State == StateFetching {
		page, err := a.fetchPage(ctx, id, cursor)
		if err != nil {
			res.State = StateFailed
			res.Err = fmt.Errorf("page %d: %w", res.Pages+1, err)
			break
		}
		res.Pages++
		pagesFetchedTotal.Inc()

		for _, rec := range page.Records {
			if len(rec.Attributes) == 0 {
				tally.Add(summary.BlankLabel)
				continue
			}
			for _, text := range rec.Attributes {
				tally.Add(summary.Normalize(text))
			}
		}

		if !page.HasNextPage {
			res.State = StateDone
			break
		}

		if page.EndCursor == cursor {
			res.State = StateFailed
			res.Err = fmt.Errorf("page %d: %w", res.Pages, ErrCursorStalled)
			break
		}
		cursor = page.EndCursor

		if err := a.config.Pacer.Wait(ctx); err != nil {
			res.State = StateFailed
			res.Err = fmt.Errorf("pacing: %w", err)
		}
	}

	res.Aggregate = tally.Aggregate()

	a.logger.Debug().
		Str("id", id).
		Str("state", res.State.String()).
		Int("pages", res.Pages).
		Int("labels", res.Aggregate.Len()).
		Dur("duration", time.Since(start)).
		Msg("Attribute walk complete")

	return res
}

func (a *Aggregator) fetchPage(ctx context.Context, id, cursor string) (*client.Page, error) {
	var page *client.Page
	logger := a.logger.With().Str("id", id).Logger()

	err := retryWithBackoff(ctx, a.config.Retry, logger, func() error {
		var fetchErr error
		page, fetchErr = a.fetcher.FetchPage(ctx, id, cursor)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}
