package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Upstream  UpstreamConfig
	Store     StoreConfig
	Discovery DiscoveryConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr string
}

// UpstreamConfig holds marketplace backend connection settings
type UpstreamConfig struct {
	BaseURL      string
	BearerToken  string
	Timeout      time.Duration
	RateLimitDur time.Duration
}

// StoreConfig holds filter persistence configuration
type StoreConfig struct {
	// Backend is "memory", "file" or "redis"
	Backend string
	FileDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// DiscoveryConfig tunes the filter/feed machinery
type DiscoveryConfig struct {
	Debounce   time.Duration
	SessionTTL time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	httpAddr := flag.String("http", ":8080", "HTTP server address")
	upstreamURL := flag.String("upstream", "http://localhost:3000", "Marketplace API base URL")
	upstreamTimeout := flag.Duration("upstream-timeout", 15*time.Second, "Timeout per upstream request")
	rateLimitDur := flag.Duration("rate-limit", 200*time.Millisecond, "Minimum delay between requests to the upstream host")
	storeBackend := flag.String("store-backend", "file", "Filter store backend: memory, file or redis")
	storeDir := flag.String("store-dir", defaultStoreDir(), "Directory for the file store backend")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	redisPrefix := flag.String("redis-prefix", "discovery:", "Key prefix for the Redis store backend")
	debounce := flag.Duration("debounce", 300*time.Millisecond, "Quiet period before an edited filter dispatches")
	sessionTTL := flag.Duration("session-ttl", 30*time.Minute, "Idle time before a discovery session expires")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")

	flag.Parse()

	applyEnvOverrides(httpAddr, upstreamURL, upstreamTimeout, rateLimitDur, storeBackend, storeDir, redisAddr, redisPrefix, debounce, sessionTTL, logLevel)

	return &Config{
		Server: ServerConfig{
			HTTPAddr: *httpAddr,
		},
		Upstream: UpstreamConfig{
			BaseURL:      *upstreamURL,
			BearerToken:  os.Getenv("UPSTREAM_TOKEN"),
			Timeout:      *upstreamTimeout,
			RateLimitDur: *rateLimitDur,
		},
		Store: StoreConfig{
			Backend:       *storeBackend,
			FileDir:       *storeDir,
			RedisAddr:     *redisAddr,
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       envInt("REDIS_DB", 0),
			RedisPrefix:   *redisPrefix,
		},
		Discovery: DiscoveryConfig{
			Debounce:   *debounce,
			SessionTTL: *sessionTTL,
		},
		Logging: LoggingConfig{
			Level: *logLevel,
		},
	}
}

func defaultStoreDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.discovery/filters"
	}
	return ".discovery/filters"
}

func applyEnvOverrides(
	httpAddr *string,
	upstreamURL *string,
	upstreamTimeout *time.Duration,
	rateLimitDur *time.Duration,
	storeBackend *string,
	storeDir *string,
	redisAddr *string,
	redisPrefix *string,
	debounce *time.Duration,
	sessionTTL *time.Duration,
	logLevel *string,
) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("UPSTREAM_URL"); v != "" {
		*upstreamURL = v
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*upstreamTimeout = d
		}
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*rateLimitDur = d
		}
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		*storeBackend = v
	}
	if v := os.Getenv("STORE_DIR"); v != "" {
		*storeDir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("REDIS_PREFIX"); v != "" {
		*redisPrefix = v
	}
	if v := os.Getenv("DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*debounce = d
		}
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*sessionTTL = d
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
