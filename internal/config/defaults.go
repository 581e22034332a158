package config

import (
	"github.com/Sternrassler/release-attributes/pkg/cache"
	"github.com/Sternrassler/release-attributes/pkg/client"
)

// DefaultProjectConfig is the configuration file looked up in the working
// directory when no path is given.
const DefaultProjectConfig = "release-attrs.toml"

const (
	defaultTimeoutSeconds   = 30
	defaultPageDelayMS      = 200
	defaultMaxAttempts      = 3
	defaultInitialBackoffMS = 1000
	defaultMaxBackoffMS     = 30000
	defaultCacheBackend     = BackendFile
	defaultCachePath        = "imdb_attributes_cache.json"
	defaultRedisAddr        = "localhost:6379"
	defaultConcurrency      = 1
	defaultProgressEvery    = 50
	defaultTitleColumn      = "title"
	defaultIDColumn         = "imdb_id"
	defaultLogLevel         = "info"
	defaultLogFormat        = LogFormatAuto
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Log formats.
const (
	LogFormatAuto    = "auto"
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			Endpoint:           client.DefaultEndpoint,
			UserAgent:          client.DefaultUserAgent,
			OperationName:      client.DefaultOperationName,
			PersistedQueryHash: client.DefaultPersistedQueryHash,
			PageSize:           client.DefaultPageSize,
			Locale:             client.DefaultLocale,
			TimeoutSeconds:     defaultTimeoutSeconds,
		},
		Walk: Walk{
			PageDelayMS:      defaultPageDelayMS,
			MaxAttempts:      defaultMaxAttempts,
			InitialBackoffMS: defaultInitialBackoffMS,
			MaxBackoffMS:     defaultMaxBackoffMS,
		},
		Cache: Cache{
			Backend:   defaultCacheBackend,
			Path:      defaultCachePath,
			RedisAddr: defaultRedisAddr,
			KeyPrefix: cache.DefaultKeyPrefix,
		},
		Batch: Batch{
			Concurrency:   defaultConcurrency,
			ProgressEvery: defaultProgressEvery,
			TitleColumn:   defaultTitleColumn,
			IDColumn:      defaultIDColumn,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
