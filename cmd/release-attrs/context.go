package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/release-attributes/internal/config"
	"github.com/Sternrassler/release-attributes/pkg/cache"
	"github.com/Sternrassler/release-attributes/pkg/logging"
)

const redisPingTimeout = 5 * time.Second

type rootFlags struct {
	config    string
	logLevel  string
	logPretty bool
}

type commandContext struct {
	flags *rootFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	runID  string
	logger zerolog.Logger
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{
		flags:  flags,
		logger: zerolog.Nop(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if level := strings.ToLower(strings.TrimSpace(c.flags.logLevel)); level != "" {
			if !logging.ValidLevel(logging.LogLevel(level)) {
				c.configErr = fmt.Errorf("--log-level %q is not one of debug, info, warn, error", c.flags.logLevel)
				return
			}
			cfg.Logging.Level = level
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// setupLogging configures the global logger for this invocation and tags
// every line with a fresh run id.
func (c *commandContext) setupLogging(cmd *cobra.Command) {
	logCfg := c.config.LoggingConfig(cmd.ErrOrStderr())
	if cmd.Flags().Changed("log-pretty") {
		logCfg.Pretty = c.flags.logPretty
	}
	logging.Setup(logCfg)

	c.runID = uuid.NewString()
	c.logger = logging.WithRunID(c.runID)
}

// openStore builds the configured cache store. The returned close function
// releases backend connections and is always safe to call.
func (c *commandContext) openStore(ctx context.Context, backend string) (cache.Store, func(), error) {
	cfg := c.config.Cache
	switch backend {
	case config.BackendFile:
		return cache.NewFileStore(cfg.Path), func() {}, nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return cache.NewRedisStore(rdb, cfg.KeyPrefix), func() { rdb.Close() }, nil
	case config.BackendMemory:
		return cache.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// openCache opens the store for backend and loads its snapshot.
func (c *commandContext) openCache(ctx context.Context, backend string) (*cache.Manager, func(), error) {
	store, closeStore, err := c.openStore(ctx, backend)
	if err != nil {
		return nil, nil, err
	}
	manager := cache.NewManager(store, c.logger)
	if err := manager.LoadAll(ctx); err != nil {
		closeStore()
		return nil, nil, err
	}
	return manager, closeStore, nil
}

// cacheLocation describes where the configured backend keeps its data.
func (c *commandContext) cacheLocation(backend string) string {
	switch backend {
	case config.BackendFile:
		return c.config.Cache.Path
	case config.BackendRedis:
		return fmt.Sprintf("redis://%s/%d (prefix %s)", c.config.Cache.RedisAddr, c.config.Cache.RedisDB, c.config.Cache.KeyPrefix)
	default:
		return backend
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
