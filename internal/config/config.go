package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Sternrassler/release-attributes/internal/batch"
	"github.com/Sternrassler/release-attributes/pkg/client"
	"github.com/Sternrassler/release-attributes/pkg/logging"
	"github.com/Sternrassler/release-attributes/pkg/pagination"
	"github.com/Sternrassler/release-attributes/pkg/ratelimit"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains the GraphQL endpoint and persisted query settings.
type API struct {
	Endpoint           string `toml:"endpoint"`
	UserAgent          string `toml:"user_agent"`
	OperationName      string `toml:"operation_name"`
	PersistedQueryHash string `toml:"persisted_query_hash"`
	PageSize           int    `toml:"page_size"`
	Locale             string `toml:"locale"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

// Walk contains pacing and retry settings for page walks.
type Walk struct {
	PageDelayMS      int  `toml:"page_delay_ms"`
	MaxAttempts      int  `toml:"max_attempts"`
	InitialBackoffMS int  `toml:"initial_backoff_ms"`
	MaxBackoffMS     int  `toml:"max_backoff_ms"`
	CacheFailedWalks bool `toml:"cache_failed_walks"`
}

// Cache selects and configures the aggregate store.
type Cache struct {
	Backend   string `toml:"backend"`
	Path      string `toml:"path"`
	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`
	KeyPrefix string `toml:"key_prefix"`
}

// Batch contains batch runner and CSV settings.
type Batch struct {
	Concurrency     int    `toml:"concurrency"`
	CheckpointEvery int    `toml:"checkpoint_every"`
	ProgressEvery   int    `toml:"progress_every"`
	TitleColumn     string `toml:"title_column"`
	IDColumn        string `toml:"id_column"`
}

// Logging contains log level and output format.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Metrics contains the optional Prometheus listener.
type Metrics struct {
	Addr string `toml:"addr"`
}

// Config is the complete release-attrs configuration.
type Config struct {
	API     API     `toml:"api"`
	Walk    Walk    `toml:"walk"`
	Cache   Cache   `toml:"cache"`
	Batch   Batch   `toml:"batch"`
	Logging Logging `toml:"logging"`
	Metrics Metrics `toml:"metrics"`
}

// Load locates, parses, and validates a configuration file, then applies
// RA_* environment overrides. It returns the resolved path and whether a
// file was found there; a missing file yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, "", false, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		projectPath, err := filepath.Abs(DefaultProjectConfig)
		if err != nil {
			return "", false, err
		}
		path = projectPath
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", path)
	}
	return path, true, nil
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ClientConfig returns the API client settings.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		Endpoint:           c.API.Endpoint,
		UserAgent:          c.API.UserAgent,
		OperationName:      c.API.OperationName,
		PersistedQueryHash: c.API.PersistedQueryHash,
		PageSize:           c.API.PageSize,
		Locale:             c.API.Locale,
		Timeout:            time.Duration(c.API.TimeoutSeconds) * time.Second,
	}
}

// AggregatorConfig returns the pacing and retry policy for page walks.
func (c *Config) AggregatorConfig() pagination.Config {
	return pagination.Config{
		Pacer: ratelimit.Fixed(time.Duration(c.Walk.PageDelayMS) * time.Millisecond),
		Retry: pagination.RetryConfig{
			MaxAttempts:       c.Walk.MaxAttempts,
			InitialBackoff:    time.Duration(c.Walk.InitialBackoffMS) * time.Millisecond,
			MaxBackoff:        time.Duration(c.Walk.MaxBackoffMS) * time.Millisecond,
			BackoffMultiplier: pagination.DefaultRetryConfig().BackoffMultiplier,
		},
		CacheFailedWalks: c.Walk.CacheFailedWalks,
	}
}

// BatchOptions returns the batch runner options.
func (c *Config) BatchOptions() batch.Options {
	return batch.Options{
		Concurrency:     c.Batch.Concurrency,
		CheckpointEvery: c.Batch.CheckpointEvery,
		ProgressEvery:   c.Batch.ProgressEvery,
	}
}

// Columns returns the input CSV column names.
func (c *Config) Columns() batch.Columns {
	return batch.Columns{Title: c.Batch.TitleColumn, ID: c.Batch.IDColumn}
}

// LoggingConfig returns the logger settings for output. The auto format
// selects console output when output is a terminal.
func (c *Config) LoggingConfig(output io.Writer) logging.Config {
	pretty := false
	switch c.Logging.Format {
	case LogFormatConsole:
		pretty = true
	case LogFormatAuto:
		pretty = logging.IsTerminal(output)
	}
	return logging.Config{
		Level:  logging.LogLevel(c.Logging.Level),
		Pretty: pretty,
		Output: output,
	}
}
