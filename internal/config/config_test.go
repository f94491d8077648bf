package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "WORKER_COUNT", "MAX_CONCURRENT_DOCS", "JOB_TTL", "PATHSTORE_URL", "LOG_LEVEL", "PDF_FALLBACK_PDFTOTEXT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.WorkerCount)
	}
	if cfg.MaxConcurrentDocs != 4 {
		t.Errorf("expected 4 concurrent docs, got %d", cfg.MaxConcurrentDocs)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected 1h job TTL, got %v", cfg.JobTTL)
	}
	if !cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback enabled by default")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected info level, got %v", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "6")
	t.Setenv("MAX_CONCURRENT_DOCS", "-1")
	t.Setenv("JOB_TTL", "15m")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")

	cfg := Load()
	if cfg.WorkerCount != 6 {
		t.Errorf("expected 6 workers, got %d", cfg.WorkerCount)
	}
	if cfg.MaxConcurrentDocs != 4 {
		t.Errorf("expected non-positive value to fall back to 4, got %d", cfg.MaxConcurrentDocs)
	}
	if cfg.JobTTL != 15*time.Minute {
		t.Errorf("expected 15m, got %v", cfg.JobTTL)
	}
	if cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback disabled")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.MaxUploadBytes != 52428800 {
		t.Errorf("expected default upload limit on parse error, got %d", cfg.MaxUploadBytes)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing api key", Config{}, true},
		{"api key only", Config{DocintelAPIKey: "k"}, false},
		{"pathstore without key", Config{DocintelAPIKey: "k", PathstoreURL: "http://ps"}, true},
		{"pathstore with key", Config{DocintelAPIKey: "k", PathstoreURL: "http://ps", PathstoreAPIKey: "p"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
