// ABOUTME: Configuration management for the application with environment variable support
// ABOUTME: Defines the immutable run configuration for fetching, caching, logging and the API

package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"content-fetch-api/pkg/featureflags"
	"content-fetch-api/pkg/utils/parse"

	"github.com/cockroachdb/errors"
)

// Config holds all application configuration
type Config struct {
	// Server contains HTTP API server configuration
	Server ServerConfig

	// Cache contains the robots.txt store backend configuration
	Cache CacheConfig

	// Log contains logging backend configuration
	Log LogConfig

	// Fetch contains the fetch run configuration
	Fetch FetchConfig

	// Search contains provider API configuration
	Search SearchConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	// Port is the HTTP server port
	Port string

	// RateLimit is the number of API requests allowed per client per RateWindow
	RateLimit int

	// RateWindow is the window RateLimit applies to
	RateWindow time.Duration
}

// CacheConfig holds cache backend configuration
type CacheConfig struct {
	// Type specifies the cache backend (memory/redis/sqlite)
	Type string

	// Redis contains Redis-specific configuration
	Redis RedisConfig

	// SQLite contains SQLite-specific configuration
	SQLite SQLiteConfig

	// Memory contains in-memory cache configuration
	Memory MemoryConfig
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Address is the Redis server address
	Address string

	// Password is the Redis authentication password
	Password string

	// DB is the Redis database number
	DB int
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	// Path is the database file
	Path string
}

// MemoryConfig holds in-memory cache configuration
type MemoryConfig struct {
	// DefaultExpiration is the TTL for entries stored without one
	DefaultExpiration time.Duration

	// CleanupInterval is how often expired entries are swept
	CleanupInterval time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	// Backend is logrus or zap
	Backend string

	// Level is debug, info, warn or error
	Level string

	// Format is json or text
	Format string

	// File, when set, receives logs through a rotating writer
	File string
}

// BackoffConfig tunes the adaptive retry policy
type BackoffConfig struct {
	Base        time.Duration
	Cap         time.Duration
	BotDetected float64
	RateLimited float64
	ServerError float64
	Other       float64
}

// FetchConfig is the run configuration consumed by the orchestrator
type FetchConfig struct {
	UserAgent            string
	MinBodyLength        int
	RequestIntervalFloor time.Duration
	MaxWorkers           int
	DebugDir             string
	DomainPolicyFile     string

	AllowHeadless     bool
	AllowHTMLFallback bool
	RandomizeDelays   bool
	RespectCrawlDelay bool

	Backoff BackoffConfig

	RobotsTimeout     time.Duration
	RobotsTTL         time.Duration
	RobotsNegativeTTL time.Duration
	SessionTTL        time.Duration

	// RenderEngine is rod or chromedp
	RenderEngine    string
	HeadlessTimeout time.Duration
	RenderSessions  int
}

// SearchConfig holds provider API configuration
type SearchConfig struct {
	// Provider is brave or serper
	Provider        string
	BraveAPIKey     string
	BraveEndpoint   string
	SerperAPIKey    string
	SerperEndpoint  string
	RequestInterval time.Duration
	Timeout         time.Duration
}

// APIKey returns the credential of the selected provider
func (s SearchConfig) APIKey() string {
	switch s.Provider {
	case "serper":
		return s.SerperAPIKey
	default:
		return s.BraveAPIKey
	}
}

// HasCredential reports whether the provider API strategy can be attempted
func (s SearchConfig) HasCredential() bool {
	return strings.TrimSpace(s.APIKey()) != ""
}

// defaultUserAgent is the agent token used for robots.txt evaluation
const defaultUserAgent = "Mozilla/5.0 (compatible; ar-bot/1.0)"

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	flags := featureflags.NewEnvManager("AR_")
	ctx := context.Background()

	l := &loader{}
	cfg := &Config{
		Server: ServerConfig{
			Port:       getEnvOrDefault("PORT", "8000"),
			RateLimit:  getEnvAsIntOrDefault("API_RATE_LIMIT", 60),
			RateWindow: l.duration("API_RATE_WINDOW", time.Minute),
		},
		Cache: CacheConfig{
			Type: getEnvOrDefault("CACHE_TYPE", "memory"),
			Redis: RedisConfig{
				Address:  getEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
				Password: getEnvOrDefault("REDIS_PASSWORD", ""),
				DB:       getEnvAsIntOrDefault("REDIS_DB", 0),
			},
			SQLite: SQLiteConfig{
				Path: getEnvOrDefault("SQLITE_PATH", "robots-cache.db"),
			},
			Memory: MemoryConfig{
				DefaultExpiration: l.duration("MEMORY_CACHE_EXPIRATION", time.Hour),
				CleanupInterval:   l.duration("MEMORY_CACHE_CLEANUP", 10*time.Minute),
			},
		},
		Log: LogConfig{
			Backend: getEnvOrDefault("LOG_BACKEND", "logrus"),
			Level:   getEnvOrDefault("LOG_LEVEL", "info"),
			Format:  getEnvOrDefault("LOG_FORMAT", "json"),
			File:    getEnvOrDefault("LOG_FILE", ""),
		},
		Fetch: FetchConfig{
			UserAgent:            getEnvOrDefault("AR_USER_AGENT", defaultUserAgent),
			MinBodyLength:        getEnvAsIntOrDefault("AR_MIN_BODY_LENGTH", 200),
			RequestIntervalFloor: l.duration("AR_REQUEST_INTERVAL", 0),
			MaxWorkers:           getEnvAsIntOrDefault("AR_MAX_WORKERS", 6),
			DebugDir:             getEnvOrDefault("AR_FETCH_DEBUG_DIR", ""),
			DomainPolicyFile:     getEnvOrDefault("AR_DOMAIN_POLICY_FILE", ""),

			AllowHeadless:     flags.IsEnabled(ctx, featureflags.AllowHeadless),
			AllowHTMLFallback: flags.IsEnabled(ctx, featureflags.AllowHTMLFallback),
			RandomizeDelays:   flags.IsEnabled(ctx, featureflags.RandomizeDelays),
			RespectCrawlDelay: flags.IsEnabled(ctx, featureflags.RespectCrawlDelay),

			Backoff: BackoffConfig{
				Base:        l.duration("AR_FETCH_BACKOFF", 600*time.Millisecond),
				Cap:         l.duration("AR_BACKOFF_CAP", 30*time.Second),
				BotDetected: l.float("AR_BACKOFF_MULT_403", 3),
				RateLimited: l.float("AR_BACKOFF_MULT_429", 5),
				ServerError: l.float("AR_BACKOFF_MULT_5XX", 2),
				Other:       l.float("AR_BACKOFF_MULT_OTHER", 1),
			},

			RobotsTimeout:     l.duration("AR_ROBOTS_TIMEOUT", 5*time.Second),
			RobotsTTL:         l.duration("AR_ROBOTS_TTL", time.Hour),
			RobotsNegativeTTL: l.duration("AR_ROBOTS_NEGATIVE_TTL", 5*time.Minute),
			SessionTTL:        l.duration("AR_SESSION_TTL", 30*time.Minute),

			RenderEngine:    getEnvOrDefault("AR_RENDER_ENGINE", "rod"),
			HeadlessTimeout: l.duration("AR_HEADLESS_TIMEOUT", 30*time.Second),
			RenderSessions:  getEnvAsIntOrDefault("AR_RENDER_SESSIONS", 2),
		},
		Search: SearchConfig{
			Provider:        strings.ToLower(getEnvOrDefault("SEARCH_PROVIDER", "brave")),
			BraveAPIKey:     getEnvOrDefault("BRAVE_API_KEY", ""),
			BraveEndpoint:   getEnvOrDefault("BRAVE_API_ENDPOINT", "https://api.search.brave.com/res/v1/web/search"),
			SerperAPIKey:    getEnvOrDefault("SERPER_API_KEY", ""),
			SerperEndpoint:  getEnvOrDefault("SERPER_API_ENDPOINT", "https://google.serper.dev/search"),
			RequestInterval: l.duration("SEARCH_REQUEST_INTERVAL", 1200*time.Millisecond),
			Timeout:         l.duration("SEARCH_TIMEOUT", 10*time.Second),
		},
	}

	if flags.IsEnabled(ctx, featureflags.DebugDump) && cfg.Fetch.DebugDir == "" {
		cfg.Fetch.DebugDir = "/tmp/ar_fetch_debug"
	}
	if !flags.IsEnabled(ctx, featureflags.RateLimitEnabled) {
		cfg.Server.RateLimit = 0
	}

	if l.err != nil {
		return nil, l.err
	}
	return cfg, nil
}

// loader collects the first parse error so a malformed value is reported
// instead of silently replaced by its default
type loader struct {
	err error
}

func (l *loader) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := parse.Duration(value)
	if err != nil {
		if l.err == nil {
			l.err = errors.Wrapf(err, "parse %s", key)
		}
		return defaultValue
	}
	return d
}

func (l *loader) float(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		if l.err == nil {
			l.err = errors.Wrapf(err, "parse %s", key)
		}
		return defaultValue
	}
	return f
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns the environment variable as int or a default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("port cannot be empty")
	}

	switch c.Cache.Type {
	case "memory", "redis", "sqlite":
	default:
		return errors.Newf("cache type must be 'memory', 'redis' or 'sqlite', got %q", c.Cache.Type)
	}

	if c.Cache.Type == "redis" && c.Cache.Redis.Address == "" {
		return errors.New("redis address cannot be empty when using redis cache")
	}

	if c.Cache.Type == "sqlite" && c.Cache.SQLite.Path == "" {
		return errors.New("sqlite path cannot be empty when using sqlite cache")
	}

	switch c.Log.Backend {
	case "logrus", "zap":
	default:
		return errors.Newf("log backend must be 'logrus' or 'zap', got %q", c.Log.Backend)
	}

	if c.Fetch.MinBodyLength < 0 {
		return errors.New("minimum body length cannot be negative")
	}

	if c.Fetch.MaxWorkers < 1 || c.Fetch.MaxWorkers > 32 {
		return errors.Newf("max workers must be between 1 and 32, got %d", c.Fetch.MaxWorkers)
	}

	if c.Fetch.Backoff.Base <= 0 {
		return errors.New("backoff base must be positive")
	}

	for name, m := range map[string]float64{
		"403":   c.Fetch.Backoff.BotDetected,
		"429":   c.Fetch.Backoff.RateLimited,
		"5xx":   c.Fetch.Backoff.ServerError,
		"other": c.Fetch.Backoff.Other,
	} {
		if m < 1 {
			return errors.Newf("backoff multiplier for %s must be at least 1, got %v", name, m)
		}
	}

	switch c.Fetch.RenderEngine {
	case "rod", "chromedp":
	default:
		return errors.Newf("render engine must be 'rod' or 'chromedp', got %q", c.Fetch.RenderEngine)
	}

	if c.Fetch.HeadlessTimeout <= 0 {
		return errors.New("headless timeout must be positive")
	}

	switch c.Search.Provider {
	case "brave", "serper":
	default:
		return errors.Newf("search provider must be 'brave' or 'serper', got %q", c.Search.Provider)
	}

	return nil
}
