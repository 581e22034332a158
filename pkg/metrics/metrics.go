// Package metrics exposes the Prometheus metrics of a run.
// All metrics are defined in their respective packages (client, cache,
// pagination, ratelimit) to maintain modularity and avoid circular
// dependencies.
//
// This package provides the scrape endpoint and a reference of all
// available metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// Serve listens on addr and serves Handler until ctx is done.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return serve(ctx, listener, logger)
}

func serve(ctx context.Context, listener net.Listener, logger zerolog.Logger) error {
	server := &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	logger.Info().Str("addr", listener.Addr().String()).Msg("Serving metrics")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - release_api_requests_total{status} (Counter): Requests by HTTP status
//   - release_api_request_duration_seconds (Histogram): Request duration
//   - release_api_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, protocol)
//
// Pacing Metrics (pkg/ratelimit):
//   - release_api_pacing_wait_seconds_total (Counter): Time spent waiting between pages
//
// Walk Metrics (pkg/pagination):
//   - release_walks_total{outcome} (Counter): Aggregations by outcome (cached, fetched, failed)
//   - release_pages_fetched_total (Counter): Pages fetched successfully
//   - release_page_retries_total{error_class} (Counter): Page retry attempts
//   - release_page_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - release_page_retry_exhausted_total{error_class} (Counter): Pages that exhausted retries
//
// Cache Metrics (pkg/cache):
//   - release_cache_hits_total (Counter): Cache hits
//   - release_cache_misses_total (Counter): Cache misses
//   - release_cache_entries (Gauge): Entries held in memory
//   - release_cache_flushes_total (Counter): Successful snapshot flushes
//   - release_cache_errors_total{operation} (Counter): Store load/save errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(release_cache_hits_total[5m])) /
//   (sum(rate(release_cache_hits_total[5m])) + sum(rate(release_cache_misses_total[5m])))
//
//   # Failed walks
//   rate(release_walks_total{outcome="failed"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(release_api_request_duration_seconds_bucket[5m]))
