// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers an optional YAML file and SCOREBOT_ env vars over the defaults.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"strings"
)

// Stats sources accepted by StatsSource.
const (
	StatsSourceCSV      = "csv"
	StatsSourceSQLite   = "sqlite"
	StatsSourcePostgres = "postgres"
)

// Result cache backends accepted by ResultCache.
const (
	ResultCacheNone   = "none"
	ResultCacheMemory = "memory"
	ResultCacheRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`
	// LogFile, when set, also writes logs to a rotated file.
	LogFile       string `koanf:"log_file"`
	LogMaxSizeMB  int    `koanf:"log_max_size_mb"`
	LogMaxBackups int    `koanf:"log_max_backups"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`
	// MaxBodyBytes caps request bodies on the prediction endpoints.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// StatsSource selects where the team-season table is read from.
	StatsSource string `koanf:"stats_source"`
	// StatsPath is the CSV file used by the csv source.
	StatsPath string `koanf:"stats_path"`
	// StatsDSN is the database DSN used by the sqlite and postgres sources.
	StatsDSN string `koanf:"stats_dsn"`
	// StatsTable is the table queried by the database sources.
	StatsTable string `koanf:"stats_table"`

	// ModelDir holds the schema and estimator artifacts.
	ModelDir string `koanf:"model_dir"`
	// PreloadModels lists model types loaded at startup.
	PreloadModels []string `koanf:"preload_models"`

	// NeutralSiteFactor scales the point differential for neutral-site games.
	NeutralSiteFactor float64 `koanf:"neutral_site_factor"`
	// MissingFeatureValue fills schema columns absent from the aggregates.
	MissingFeatureValue float64 `koanf:"missing_feature_value"`
	// SeasonMin and SeasonMax bound accepted seasons at the API.
	SeasonMin int `koanf:"season_min"`
	SeasonMax int `koanf:"season_max"`

	// BatchLimit caps POST /predict/batch; BatchConcurrency bounds its fan-out.
	BatchLimit       int `koanf:"batch_limit"`
	BatchConcurrency int `koanf:"batch_concurrency"`

	// ResultCache selects the result cache backend: none, memory or redis.
	ResultCache     string `koanf:"result_cache"`
	ResultCacheSize int    `koanf:"result_cache_size"`
	ResultCacheTTLS int    `koanf:"result_cache_ttl_s"`
	RedisURL        string `koanf:"redis_url"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		LogMaxSizeMB:        100,
		LogMaxBackups:       3,
		Addr:                ":9080",
		CORSOrigins:         []string{"*"},
		MaxBodyBytes:        1 << 20,
		StatsSource:         StatsSourceCSV,
		StatsPath:           "data/team_stats.csv",
		StatsTable:          "team_stats",
		ModelDir:            "models",
		NeutralSiteFactor:   0.9,
		MissingFeatureValue: 0.0,
		SeasonMin:           2000,
		SeasonMax:           2100,
		BatchLimit:          64,
		BatchConcurrency:    8,
		ResultCache:         ResultCacheNone,
		ResultCacheSize:     4096,
		ResultCacheTTLS:     600,
		RedisURL:            "redis://localhost:6379/0",
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Addr == "" {
		return invalid("addr must not be empty")
	}
	switch strings.ToLower(c.StatsSource) {
	case StatsSourceCSV:
		if c.StatsPath == "" {
			return invalid("stats_path must not be empty for the csv source")
		}
	case StatsSourceSQLite, StatsSourcePostgres:
		if c.StatsDSN == "" {
			return invalid("stats_dsn must not be empty for the %s source", c.StatsSource)
		}
		if c.StatsTable == "" {
			return invalid("stats_table must not be empty")
		}
	default:
		return invalid("unknown stats_source %q", c.StatsSource)
	}
	if c.ModelDir == "" {
		return invalid("model_dir must not be empty")
	}
	if c.NeutralSiteFactor <= 0 {
		return invalid("neutral_site_factor must be positive")
	}
	if c.SeasonMin > c.SeasonMax {
		return invalid("season_min %d exceeds season_max %d", c.SeasonMin, c.SeasonMax)
	}
	if c.BatchLimit <= 0 || c.BatchConcurrency <= 0 {
		return invalid("batch_limit and batch_concurrency must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return invalid("max_body_bytes must be positive")
	}
	switch strings.ToLower(c.ResultCache) {
	case ResultCacheNone, "":
	case ResultCacheMemory:
		if c.ResultCacheSize <= 0 {
			return invalid("result_cache_size must be positive")
		}
	case ResultCacheRedis:
		if c.RedisURL == "" {
			return invalid("redis_url must not be empty for the redis cache")
		}
	default:
		return invalid("unknown result_cache %q", c.ResultCache)
	}
	return nil
}
