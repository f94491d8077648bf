package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth
	DocintelAPIKey string

	// Pathstore result sink; disabled when the URL is empty.
	PathstoreURL    string
	PathstoreAPIKey string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentDocs  int
	MaxConcurrentStore int

	// Upload limits
	MaxUploadBytes int64
	MaxFilesPerJob int

	// Job state
	JobTTL      time.Duration
	StatsWindow time.Duration

	// Analysis
	TuningFile  string
	LexiconFile string

	// PDF
	PDFFallbackPdftotext bool

	LogLevel slog.Level
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		DocintelAPIKey: os.Getenv("DOCINTEL_API_KEY"),

		PathstoreURL:    os.Getenv("PATHSTORE_URL"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),

		WorkerCount:        envInt("WORKER_COUNT", 2),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 50),
		MaxConcurrentDocs:  envInt("MAX_CONCURRENT_DOCS", 4),
		MaxConcurrentStore: envInt("MAX_CONCURRENT_STORE", 8),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		MaxFilesPerJob: envInt("MAX_FILES_PER_JOB", 20),
		JobTTL:         envDuration("JOB_TTL", 1*time.Hour),
		StatsWindow:    envDuration("STATS_WINDOW", 1*time.Hour),

		TuningFile:  os.Getenv("TUNING_FILE"),
		LexiconFile: os.Getenv("LEXICON_FILE"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxConcurrentDocs <= 0 {
		cfg.MaxConcurrentDocs = 4
	}
	if cfg.MaxConcurrentStore <= 0 {
		cfg.MaxConcurrentStore = 8
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxFilesPerJob <= 0 {
		cfg.MaxFilesPerJob = 20
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

// Validate checks the settings the HTTP server cannot run without.
func (c Config) Validate() error {
	if c.DocintelAPIKey == "" {
		return fmt.Errorf("DOCINTEL_API_KEY is required")
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	return nil
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

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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

func envLevel(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return lvl
}
