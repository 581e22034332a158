package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/release-attributes/internal/config"
	"github.com/Sternrassler/release-attributes/pkg/client"
)

var envKeys = []string{
	"RA_ENDPOINT", "RA_USER_AGENT", "RA_CACHE_BACKEND", "RA_CACHE_PATH",
	"RA_REDIS_ADDR", "RA_LOG_LEVEL", "RA_LOG_FORMAT", "RA_METRICS_ADDR",
	"RA_PAGE_DELAY_MS", "RA_CONCURRENCY",
}

// clearEnv blanks every override; empty values are ignored by Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

// chdir switches the working directory for the rest of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "release-attrs.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected no config file in temp dir")
	}
	if filepath.Base(resolved) != "release-attrs.toml" {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if !reflect.DeepEqual(*cfg, config.Default()) {
		t.Fatalf("expected defaults, got %+v", *cfg)
	}
}

func TestLoadProjectFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	content := "[batch]\nconcurrency = 4\n"
	if err := os.WriteFile(filepath.Join(dir, "release-attrs.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected project config to be found")
	}
	if cfg.Batch.Concurrency != 4 {
		t.Fatalf("Concurrency = %d, want 4", cfg.Batch.Concurrency)
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[cache]
backend = "Redis"
redis_addr = "cache:6379"
key_prefix = "movies"

[walk]
page_delay_ms = 0
cache_failed_walks = true

[logging]
level = "DEBUG"
format = "json"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != path || !exists {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Cache.Backend != config.BackendRedis {
		t.Fatalf("backend should be normalized to lower case, got %q", cfg.Cache.Backend)
	}
	if cfg.Cache.RedisAddr != "cache:6379" || cfg.Cache.KeyPrefix != "movies" {
		t.Fatalf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q, want debug", cfg.Logging.Level)
	}
	if !cfg.Walk.CacheFailedWalks {
		t.Fatal("expected cache_failed_walks to be set")
	}
	if cfg.API.Endpoint != client.DefaultEndpoint {
		t.Fatalf("unset values should keep defaults, endpoint = %q", cfg.API.Endpoint)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[cache]\nbakend = \"file\"\n")

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[batch]\nconcurrency = 2\n\n[cache]\npath = \"from-file.json\"\n")

	t.Setenv("RA_CONCURRENCY", "8")
	t.Setenv("RA_CACHE_PATH", "from-env.json")
	t.Setenv("RA_PAGE_DELAY_MS", "50")
	t.Setenv("RA_METRICS_ADDR", "127.0.0.1:9090")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Batch.Concurrency != 8 {
		t.Fatalf("Concurrency = %d, want 8", cfg.Batch.Concurrency)
	}
	if cfg.Cache.Path != "from-env.json" {
		t.Fatalf("Cache.Path = %q, want from-env.json", cfg.Cache.Path)
	}
	if cfg.Walk.PageDelayMS != 50 {
		t.Fatalf("PageDelayMS = %d, want 50", cfg.Walk.PageDelayMS)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9090" {
		t.Fatalf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
}

func TestEnvInvalidInteger(t *testing.T) {
	clearEnv(t)
	t.Setenv("RA_CONCURRENCY", "many")

	_, _, _, err := config.Load(writeConfig(t, ""))
	if err == nil || !strings.Contains(err.Error(), "RA_CONCURRENCY") {
		t.Fatalf("expected RA_CONCURRENCY error, got %v", err)
	}
}

func TestCreateSampleMatchesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "release-attrs.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if !reflect.DeepEqual(*cfg, config.Default()) {
		t.Fatalf("sample config differs from defaults:\n got %+v\nwant %+v", *cfg, config.Default())
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"endpoint without scheme", func(c *config.Config) { c.API.Endpoint = "caching.graphql.imdb.com" }},
		{"empty user agent", func(c *config.Config) { c.API.UserAgent = "" }},
		{"missing hash", func(c *config.Config) { c.API.PersistedQueryHash = "" }},
		{"page size too large", func(c *config.Config) { c.API.PageSize = 500 }},
		{"zero timeout", func(c *config.Config) { c.API.TimeoutSeconds = 0 }},
		{"negative page delay", func(c *config.Config) { c.Walk.PageDelayMS = -1 }},
		{"zero attempts", func(c *config.Config) { c.Walk.MaxAttempts = 0 }},
		{"max backoff below initial", func(c *config.Config) { c.Walk.MaxBackoffMS = 10 }},
		{"unknown backend", func(c *config.Config) { c.Cache.Backend = "sqlite" }},
		{"file backend without path", func(c *config.Config) { c.Cache.Path = "" }},
		{"redis backend without addr", func(c *config.Config) { c.Cache.Backend = config.BackendRedis; c.Cache.RedisAddr = "" }},
		{"zero concurrency", func(c *config.Config) { c.Batch.Concurrency = 0 }},
		{"negative checkpoint", func(c *config.Config) { c.Batch.CheckpointEvery = -1 }},
		{"missing id column", func(c *config.Config) { c.Batch.IDColumn = "" }},
		{"unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestAccessors(t *testing.T) {
	cfg := config.Default()
	cfg.Walk.PageDelayMS = 0
	cfg.Batch.Concurrency = 3
	cfg.Batch.CheckpointEvery = 10

	clientCfg := cfg.ClientConfig()
	if clientCfg.Endpoint != client.DefaultEndpoint || clientCfg.PageSize != client.DefaultPageSize {
		t.Fatalf("unexpected client config: %+v", clientCfg)
	}
	if clientCfg.Timeout != 30*time.Second {
		t.Fatalf("Timeout = %v, want 30s", clientCfg.Timeout)
	}
	if _, err := client.New(clientCfg); err != nil {
		t.Fatalf("client config should be accepted: %v", err)
	}

	aggCfg := cfg.AggregatorConfig()
	if aggCfg.Retry.MaxAttempts != 3 || aggCfg.Retry.InitialBackoff != time.Second || aggCfg.Retry.MaxBackoff != 30*time.Second {
		t.Fatalf("unexpected retry config: %+v", aggCfg.Retry)
	}
	if aggCfg.Pacer == nil {
		t.Fatal("expected a pacer")
	}

	opts := cfg.BatchOptions()
	if opts.Concurrency != 3 || opts.CheckpointEvery != 10 || opts.ProgressEvery != 50 {
		t.Fatalf("unexpected batch options: %+v", opts)
	}

	cols := cfg.Columns()
	if cols.Title != "title" || cols.ID != "imdb_id" {
		t.Fatalf("unexpected columns: %+v", cols)
	}
}

func TestLoggingConfig(t *testing.T) {
	tests := []struct {
		format     string
		wantPretty bool
	}{
		{config.LogFormatAuto, false},
		{config.LogFormatConsole, true},
		{config.LogFormatJSON, false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			cfg := config.Default()
			cfg.Logging.Format = tt.format

			buf := &bytes.Buffer{}
			logCfg := cfg.LoggingConfig(buf)
			if logCfg.Pretty != tt.wantPretty {
				t.Errorf("Pretty = %v, want %v", logCfg.Pretty, tt.wantPretty)
			}
			if logCfg.Output != buf {
				t.Error("expected output to be passed through")
			}
			if string(logCfg.Level) != "info" {
				t.Errorf("Level = %q, want info", logCfg.Level)
			}
		})
	}
}
