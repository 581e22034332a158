package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/Sternrassler/release-attributes/pkg/logging"
)

const maxPageSize = 250

// MaxConcurrency is the upper bound for batch.concurrency and --concurrency.
const MaxConcurrency = 64

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateWalk(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	u, err := url.Parse(c.API.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.endpoint must be an http(s) URL (got %q)", c.API.Endpoint)
	}
	if c.API.UserAgent == "" {
		return errors.New("api.user_agent must be set")
	}
	if c.API.OperationName == "" || c.API.PersistedQueryHash == "" {
		return errors.New("api.operation_name and api.persisted_query_hash must be set")
	}
	if c.API.PageSize < 1 || c.API.PageSize > maxPageSize {
		return fmt.Errorf("api.page_size must be between 1 and %d", maxPageSize)
	}
	if c.API.TimeoutSeconds <= 0 {
		return errors.New("api.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWalk() error {
	if c.Walk.PageDelayMS < 0 {
		return errors.New("walk.page_delay_ms must not be negative")
	}
	if c.Walk.MaxAttempts < 1 {
		return errors.New("walk.max_attempts must be at least 1")
	}
	if c.Walk.InitialBackoffMS <= 0 {
		return errors.New("walk.initial_backoff_ms must be positive")
	}
	if c.Walk.MaxBackoffMS < c.Walk.InitialBackoffMS {
		return errors.New("walk.max_backoff_ms must be at least walk.initial_backoff_ms")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case BackendFile:
		if c.Cache.Path == "" {
			return errors.New("cache.path must be set for the file backend")
		}
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr must be set for the redis backend")
		}
		if c.Cache.RedisDB < 0 {
			return errors.New("cache.redis_db must not be negative")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("cache.backend must be one of %s, %s, %s (got %q)",
			BackendFile, BackendRedis, BackendMemory, c.Cache.Backend)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > MaxConcurrency {
		return fmt.Errorf("batch.concurrency must be between 1 and %d", MaxConcurrency)
	}
	if c.Batch.CheckpointEvery < 0 {
		return errors.New("batch.checkpoint_every must not be negative")
	}
	if c.Batch.ProgressEvery < 0 {
		return errors.New("batch.progress_every must not be negative")
	}
	if c.Batch.TitleColumn == "" || c.Batch.IDColumn == "" {
		return errors.New("batch.title_column and batch.id_column must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(logging.LogLevel(c.Logging.Level)) {
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case LogFormatAuto, LogFormatConsole, LogFormatJSON:
		return nil
	default:
		return fmt.Errorf("logging.format must be one of auto, console, json (got %q)", c.Logging.Format)
	}
}
