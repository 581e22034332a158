package config

import (
	"fmt"
	"strconv"
	"strings"
)

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// applyEnv overrides file values with RA_* environment variables.
func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"RA_ENDPOINT", &c.API.Endpoint},
		{"RA_USER_AGENT", &c.API.UserAgent},
		{"RA_CACHE_BACKEND", &c.Cache.Backend},
		{"RA_CACHE_PATH", &c.Cache.Path},
		{"RA_REDIS_ADDR", &c.Cache.RedisAddr},
		{"RA_LOG_LEVEL", &c.Logging.Level},
		{"RA_LOG_FORMAT", &c.Logging.Format},
		{"RA_METRICS_ADDR", &c.Metrics.Addr},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok && strings.TrimSpace(v) != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"RA_PAGE_DELAY_MS", &c.Walk.PageDelayMS},
		{"RA_CONCURRENCY", &c.Batch.Concurrency},
	}
	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", i.key, v)
		}
		*i.dst = n
	}
	return nil
}

func (c *Config) normalize() {
	c.API.Endpoint = strings.TrimSpace(c.API.Endpoint)
	c.API.UserAgent = strings.TrimSpace(c.API.UserAgent)
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Cache.Path = strings.TrimSpace(c.Cache.Path)
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Metrics.Addr = strings.TrimSpace(c.Metrics.Addr)
	c.Batch.TitleColumn = strings.TrimSpace(c.Batch.TitleColumn)
	c.Batch.IDColumn = strings.TrimSpace(c.Batch.IDColumn)

	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
