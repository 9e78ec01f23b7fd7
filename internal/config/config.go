package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Persistence
	DatabasePath string

	// Optional pathstore mirror; disabled when PathstoreURL is empty.
	PathstoreURL    string
	PathstoreAPIKey string

	// Fetching
	PatchBaseURL       string
	FetchUserAgent     string
	FetchTimeout       time.Duration
	FetchMaxConcurrent int
	MinPageBytes       int
	MinContentChars    int

	// Default version range when a fetch names no versions
	VersionMajorMin int
	VersionMajorMax int
	VersionMinorMax int

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Request limits
	MaxParseBytes int64

	// Job state
	JobTTL time.Duration
}

const (
	defaultPatchBaseURL = "https://teamfighttactics.leagueoflegends.com/en-us/news/game-updates/"
	defaultUserAgent    = "Mozilla/5.0 (compatible; patchgest/1.0)"
)

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("PATCHGEST_API_KEY"),

		DatabasePath: envOr("DATABASE_PATH", "patchgest.db"),

		PathstoreURL:    os.Getenv("PATHSTORE_URL"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),

		PatchBaseURL:       envOr("PATCH_BASE_URL", defaultPatchBaseURL),
		FetchUserAgent:     envOr("FETCH_USER_AGENT", defaultUserAgent),
		FetchTimeout:       envDuration("FETCH_TIMEOUT", 20*time.Second),
		FetchMaxConcurrent: envInt("FETCH_MAX_CONCURRENT", 4),
		MinPageBytes:       envInt("MIN_PAGE_BYTES", 800),
		MinContentChars:    envInt("MIN_CONTENT_CHARS", 200),

		VersionMajorMin: envInt("VERSION_MAJOR_MIN", 14),
		VersionMajorMax: envInt("VERSION_MAJOR_MAX", 16),
		VersionMinorMax: envInt("VERSION_MINOR_MAX", 24),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxParseBytes: envInt64("MAX_PARSE_BYTES", 10<<20),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	if cfg.FetchMaxConcurrent <= 0 {
		cfg.FetchMaxConcurrent = 4
	}
	if cfg.MinPageBytes < 0 {
		cfg.MinPageBytes = 800
	}
	if cfg.MinContentChars < 0 {
		cfg.MinContentChars = 200
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxParseBytes <= 0 {
		cfg.MaxParseBytes = 10 << 20
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("PATCHGEST_API_KEY is required")
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	if c.VersionMajorMin > c.VersionMajorMax {
		return fmt.Errorf("VERSION_MAJOR_MIN (%d) exceeds VERSION_MAJOR_MAX (%d)", c.VersionMajorMin, c.VersionMajorMax)
	}
	if c.VersionMinorMax <= 0 {
		return fmt.Errorf("VERSION_MINOR_MAX must be positive")
	}
	return nil
}

// MirrorEnabled reports whether parsed sections are copied to pathstore.
func (c Config) MirrorEnabled() bool {
	return c.PathstoreURL != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
