package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/release-attributes/pkg/cache"
	"github.com/Sternrassler/release-attributes/pkg/pagination"
	"github.com/Sternrassler/release-attributes/pkg/summary"
	"github.com/rs/zerolog"
)

// Aggregator is the per-title operation the runner drives.
// *pagination.Aggregator implements it.
type Aggregator interface {
	Aggregate(ctx context.Context, id string) pagination.Result
}

// Options holds runner configuration.
type Options struct {
	// Concurrency is the number of titles aggregated in parallel.
	// 1 processes titles strictly in input order.
	Concurrency int

	// CheckpointEvery flushes the cache after every N freshly fetched
	// titles. 0 leaves flushing to the caller.
	CheckpointEvery int

	// ProgressEvery logs progress after every N titles. 0 disables it.
	ProgressEvery int
}

// DefaultOptions returns sequential processing without checkpoints.
func DefaultOptions() Options {
	return Options{
		Concurrency:     1,
		CheckpointEvery: 0,
		ProgressEvery:   50,
	}
}

// Stats counts rows by how they were resolved.
type Stats struct {
	Rows    int
	Invalid int
	Cached  int
	Fetched int
	Failed  int
	// Skipped rows were not processed because the run was cancelled.
	Skipped int
	// Checkpoints is the number of successful intermediate cache flushes.
	Checkpoints int
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("rows", s.Rows).
		Int("invalid", s.Invalid).
		Int("cached", s.Cached).
		Int("fetched", s.Fetched).
		Int("failed", s.Failed).
		Int("skipped", s.Skipped).
		Int("checkpoints", s.Checkpoints)
}

const checkpointTimeout = 30 * time.Second

// job is one distinct id and the rows that reference it.
type job struct {
	id   string
	rows []int
}

type jobResult struct {
	job     int
	result  pagination.Result
	skipped bool
}

// Runner aggregates every row of a batch.
type Runner struct {
	aggregator Aggregator
	cache      *cache.Manager
	opts       Options
	logger     zerolog.Logger
}

// NewRunner creates a runner. cacheManager is only used for checkpoints
// and may be nil.
func NewRunner(aggregator Aggregator, cacheManager *cache.Manager, opts Options, logger zerolog.Logger) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Runner{
		aggregator: aggregator,
		cache:      cacheManager,
		opts:       opts,
		logger:     logger.With().Str("component", "batch").Logger(),
	}
}

// Run produces one output row per input row, in input order. Per-title
// failures never abort the run. When ctx is cancelled, rows not yet
// processed get an empty summary and are counted as skipped.
func (r *Runner) Run(ctx context.Context, rows []InputRow) ([]OutputRow, Stats) {
	start := time.Now()
	out := make([]OutputRow, len(rows))
	stats := Stats{Rows: len(rows)}

	jobs := r.plan(rows, out, &stats)

	r.logger.Info().
		Int("rows", len(rows)).
		Int("titles", len(jobs)).
		Int("concurrency", r.opts.Concurrency).
		Msg("Starting batch")

	c := collector{runner: r, ctx: ctx, jobs: jobs, out: out, stats: &stats}
	if r.opts.Concurrency == 1 || len(jobs) <= 1 {
		for i := range jobs {
			if ctx.Err() != nil {
				c.collect(jobResult{job: i, skipped: true})
				continue
			}
			c.collect(jobResult{job: i, result: r.aggregator.Aggregate(ctx, jobs[i].id)})
		}
	} else {
		for res := range r.fanOut(ctx, jobs) {
			c.collect(res)
		}
	}

	r.logger.Info().
		Object("stats", stats).
		Dur("duration", time.Since(start)).
		Msg("Batch complete")

	return out, stats
}

// plan validates ids and groups rows by distinct id in first-seen order.
func (r *Runner) plan(rows []InputRow, out []OutputRow, stats *Stats) []job {
	var jobs []job
	byID := make(map[string]int)

	for i, row := range rows {
		out[i].Title = row.Title

		id, err := ParseExternalID(row.RawID)
		if err != nil {
			stats.Invalid++
			r.logger.Debug().Err(err).Str("title", row.Title).Msg("Skipping row without usable id")
			continue
		}

		if j, ok := byID[id]; ok {
			jobs[j].rows = append(jobs[j].rows, i)
			continue
		}
		byID[id] = len(jobs)
		jobs = append(jobs, job{id: id, rows: []int{i}})
	}
	return jobs
}

// fanOut distributes jobs over a bounded worker pool. Every job yields
// exactly one result.
func (r *Runner) fanOut(ctx context.Context, jobs []job) <-chan jobResult {
	queue := make(chan int, len(jobs))
	results := make(chan jobResult, len(jobs))

	for i := range jobs {
		queue <- i
	}
	close(queue)

	workers := r.opts.Concurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go r.worker(ctx, w, jobs, queue, results, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

func (r *Runner) worker(ctx context.Context, workerID int, jobs []job, queue <-chan int, results chan<- jobResult, wg *sync.WaitGroup) {
	defer wg.Done()
	processed := 0

	for i := range queue {
		if ctx.Err() != nil {
			results <- jobResult{job: i, skipped: true}
			continue
		}
		results <- jobResult{job: i, result: r.aggregator.Aggregate(ctx, jobs[i].id)}
		processed++
	}

	r.logger.Debug().
		Int("worker_id", workerID).
		Int("titles_processed", processed).
		Msg("Worker completed")
}

// collector applies job results to the output in a single goroutine.
type collector struct {
	runner *Runner
	ctx    context.Context
	jobs   []job
	out    []OutputRow
	stats  *Stats

	done            int
	sinceCheckpoint int
}

func (c *collector) collect(res jobResult) {
	j := c.jobs[res.job]
	c.done++

	if res.skipped {
		c.stats.Skipped += len(j.rows)
		return
	}

	encoded := summary.Encode(res.result.Aggregate)
	for n, row := range j.rows {
		c.out[row].Attributes = encoded
		c.out[row].Aggregate = res.result.Aggregate

		switch {
		case res.result.Outcome == pagination.OutcomeFailed:
			c.stats.Failed++
		case n > 0 || res.result.Outcome == pagination.OutcomeCached:
			// Repeated ids are answered from the first row's result.
			c.stats.Cached++
		default:
			c.stats.Fetched++
		}
	}

	if res.result.Outcome == pagination.OutcomeFetched {
		c.sinceCheckpoint++
		if every := c.runner.opts.CheckpointEvery; every > 0 && c.sinceCheckpoint >= every {
			c.checkpoint()
		}
	}

	if every := c.runner.opts.ProgressEvery; every > 0 && c.done%every == 0 {
		c.runner.logger.Info().
			Int("processed", c.done).
			Int("total", len(c.jobs)).
			Float64("progress_pct", float64(c.done)/float64(len(c.jobs))*100).
			Msg("Batch progress")
	}
}

func (c *collector) checkpoint() {
	if c.runner.cache == nil {
		return
	}
	c.sinceCheckpoint = 0

	// A checkpoint still completes when the run is being cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), checkpointTimeout)
	defer cancel()
	if err := c.runner.cache.FlushAll(ctx); err != nil {
		if !errors.Is(err, cache.ErrNotLoaded) {
			c.runner.logger.Error().Err(err).Msg("Cache checkpoint failed")
		}
		return
	}
	c.stats.Checkpoints++
}
