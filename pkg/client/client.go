// Package client fetches single pages of title release dates from the IMDb
// GraphQL API using a persisted query.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for API requests.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "release_api_requests_total",
		Help: "Total release-date page requests by status",
	}, []string{"status"})

	apiRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "release_api_request_duration_seconds",
		Help:    "Release-date page request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "release_api_errors_total",
		Help: "Total release-date page errors by class",
	}, []string{"class"})
)

// Protocol constants. The server resolves the query text from the hash.
const (
	DefaultEndpoint           = "https://caching.graphql.imdb.com/"
	DefaultOperationName      = "TitleReleaseDatesPaginated"
	DefaultPersistedQueryHash = "0e4e6468b8bc55114f80551e7a062301c78999ee538789a936902e4ab5239ccd"
	DefaultPageSize           = 50
	DefaultLocale             = "en-US"

	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/122.0.0.0 Safari/537.36"

	persistedQueryVersion = 1
	maxPageSize           = 250
	maxErrorBody          = 4 << 10

	componentKey  = "component"
	componentName = "release-client"
)

// Client issues release-date page requests.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Endpoint is the GraphQL URL requests are POSTed to.
	Endpoint string

	// UserAgent must look like a browser; the API rejects bare clients.
	UserAgent string

	// Persisted query identity
	OperationName      string
	PersistedQueryHash string

	PageSize int
	Locale   string

	// Timeout bounds a single request, including reading the body.
	Timeout time.Duration
}

// DefaultConfig returns the configuration used against the public API.
func DefaultConfig() Config {
	return Config{
		Endpoint:           DefaultEndpoint,
		UserAgent:          DefaultUserAgent,
		OperationName:      DefaultOperationName,
		PersistedQueryHash: DefaultPersistedQueryHash,
		PageSize:           DefaultPageSize,
		Locale:             DefaultLocale,
		Timeout:            30 * time.Second,
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.OperationName == "" || cfg.PersistedQueryHash == "" {
		return nil, fmt.Errorf("operation name and persisted query hash are required")
	}

	if cfg.PageSize < 1 || cfg.PageSize > maxPageSize {
		return nil, fmt.Errorf("page_size must be between 1 and %d (got %d)", maxPageSize, cfg.PageSize)
	}

	if cfg.Locale == "" {
		cfg.Locale = DefaultLocale
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str(componentKey, componentName).Logger(),
	}, nil
}

// FetchPage requests one page of release dates for id. An empty cursor
// requests the first page. The request is not retried.
func (c *Client) FetchPage(ctx context.Context, id, cursor string) (*Page, error) {
	body, err := json.Marshal(c.newRequest(id, cursor))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().
		Str("id", id).
		Str("cursor", cursor).
		Msg("Requesting release page")

	startTime := time.Now()
	defer func() {
		apiRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, &FetchError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fetchErr := &FetchError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    resp.Status,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		apiErrorsTotal.WithLabelValues(string(fetchErr.ErrorClass)).Inc()

		c.logger.Warn().
			Str("id", id).
			Int("status", resp.StatusCode).
			Str("error_class", string(fetchErr.ErrorClass)).
			Msg("Release page request error")
		return nil, fetchErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	page, err := decodePage(id, data)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassProtocol)).Inc()
		return nil, err
	}

	c.logger.Debug().
		Str("id", id).
		Int("records", len(page.Records)).
		Bool("has_next_page", page.HasNextPage).
		Msg("Release page decoded")

	return page, nil
}

func (c *Client) newRequest(id, cursor string) request {
	return request{
		OperationName: c.config.OperationName,
		Variables: variables{
			Const:             id,
			First:             c.config.PageSize,
			Locale:            c.config.Locale,
			OriginalTitleText: false,
			After:             cursor,
		},
		Extensions: extensions{
			PersistedQuery: persistedQuery{
				Version:    persistedQueryVersion,
				SHA256Hash: c.config.PersistedQueryHash,
			},
		},
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetLogger replaces the logger taken from the global logger in New.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger.With().Str(componentKey, componentName).Logger()
}

// classifyStatus categorizes a non-success HTTP status.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// parseRetryAfter reads a delay-seconds Retry-After value. HTTP dates are
// accepted too; anything else yields 0.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
