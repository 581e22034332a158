package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/release-attributes/internal/batch"
	"github.com/Sternrassler/release-attributes/internal/config"
	"github.com/Sternrassler/release-attributes/pkg/client"
	"github.com/Sternrassler/release-attributes/pkg/metrics"
	"github.com/Sternrassler/release-attributes/pkg/pagination"
)

const finalFlushTimeout = 30 * time.Second

type scrapeOptions struct {
	input       string
	output      string
	concurrency int
	noCache     bool
}

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var opts scrapeOptions

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch release attributes for every title in a CSV",
		Long: `Reads titles and IMDb ids from --input, aggregates the release-date
attributes of each title and writes title,attributes rows to --output.

Aggregates are cached; titles already in the cache are not fetched again.
Titles that fail are left out of the cache and retried on the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Input CSV with title and id columns")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output CSV of title,attributes")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Titles fetched in parallel (overrides batch.concurrency)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Use an in-memory cache that is discarded after the run")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runScrape(cmd *cobra.Command, ctx *commandContext, opts scrapeOptions) error {
	cfg := ctx.config
	logger := ctx.logger

	batchOpts := cfg.BatchOptions()
	if cmd.Flags().Changed("concurrency") {
		if opts.concurrency < 1 || opts.concurrency > config.MaxConcurrency {
			return fmt.Errorf("--concurrency must be between 1 and %d", config.MaxConcurrency)
		}
		batchOpts.Concurrency = opts.concurrency
	}
	backend := cfg.Cache.Backend
	if opts.noCache {
		backend = config.BackendMemory
	}

	var rows []batch.InputRow
	err := readFile(strings.TrimSpace(opts.input), func(r io.Reader) error {
		var err error
		rows, err = batch.ReadInput(r, cfg.Columns())
		return err
	})
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, closeStore, err := ctx.openCache(runCtx, backend)
	if err != nil {
		return err
	}
	defer closeStore()

	if addr := cfg.Metrics.Addr; addr != "" {
		go func() {
			if err := metrics.Serve(runCtx, addr, logger); err != nil {
				logger.Warn().Err(err).Str("addr", addr).Msg("Metrics server stopped")
			}
		}()
	}

	apiClient, err := client.New(cfg.ClientConfig())
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	apiClient.SetLogger(logger)
	aggregator := pagination.NewAggregator(apiClient, manager, cfg.AggregatorConfig(), logger)
	runner := batch.NewRunner(aggregator, manager, batchOpts, logger)

	logger.Info().
		Int("rows", len(rows)).
		Int("concurrency", batchOpts.Concurrency).
		Str("cache_backend", backend).
		Int("cached_entries", manager.Len()).
		Msg("Scrape starting")

	out, stats := runner.Run(runCtx, rows)

	// The run context may already be cancelled; the final flush still has
	// to reach the store.
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), finalFlushTimeout)
	defer cancel()
	flushErr := manager.FlushAll(flushCtx)
	if flushErr != nil {
		logger.Error().Err(flushErr).Msg("Final cache flush failed")
	}

	if err := writeFile(strings.TrimSpace(opts.output), func(w io.Writer) error {
		return batch.WriteOutput(w, out)
	}); err != nil {
		return errors.Join(err, flushErr)
	}

	logger.Info().Object("stats", stats).Msg("Scrape finished")
	printStats(cmd.OutOrStdout(), stats)
	if failed := manager.Failed(); len(failed) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d titles failed and will be fetched again on the next run: %s\n",
			len(failed), strings.Join(failed, ", "))
	}

	if flushErr != nil {
		return flushErr
	}
	if err := runCtx.Err(); err != nil {
		return fmt.Errorf("scrape interrupted: %w", err)
	}
	return nil
}

func printStats(w io.Writer, stats batch.Stats) {
	fmt.Fprintf(w, "Rows:     %d\n", stats.Rows)
	fmt.Fprintf(w, "Fetched:  %d\n", stats.Fetched)
	fmt.Fprintf(w, "Cached:   %d\n", stats.Cached)
	fmt.Fprintf(w, "Failed:   %d\n", stats.Failed)
	fmt.Fprintf(w, "Invalid:  %d\n", stats.Invalid)
	if stats.Skipped > 0 {
		fmt.Fprintf(w, "Skipped:  %d\n", stats.Skipped)
	}
}
