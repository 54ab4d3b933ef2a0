package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q, want /api/v1", cfg.APIBasePath)
	}
	if got := cfg.StickerBot.Retry; got.MaxAttempts != 3 || got.InitialDelay != 300*time.Millisecond || got.Multiplier != 3.0 {
		t.Errorf("retry defaults = %+v", got)
	}
	if cfg.Audit.Retention != 90*24*time.Hour {
		t.Errorf("Audit.Retention = %v, want 2160h", cfg.Audit.Retention)
	}
	if !cfg.Audit.CleanupEnabled {
		t.Error("Audit.CleanupEnabled = false, want true")
	}
}

func TestLoad_StickerBotNormalization(t *testing.T) {
	t.Setenv("STICKERBOT_API_URL", " https://stickerbot.example.com/ ")
	t.Setenv("STICKERBOT_SERVICE_TOKEN", "  secret-token  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StickerBot.APIURL != "https://stickerbot.example.com" {
		t.Errorf("APIURL = %q, trailing slash should be stripped", cfg.StickerBot.APIURL)
	}
	if cfg.StickerBot.ServiceToken != "secret-token" {
		t.Errorf("ServiceToken = %q, should be trimmed", cfg.StickerBot.ServiceToken)
	}
}

func TestLoad_RetryOverrides(t *testing.T) {
	t.Setenv("SEND_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("SEND_RETRY_INITIAL_DELAY", "50ms")
	t.Setenv("SEND_RETRY_MULTIPLIER", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r := cfg.StickerBot.Retry
	if r.MaxAttempts != 5 || r.InitialDelay != 50*time.Millisecond || r.Multiplier != 2.5 {
		t.Errorf("retry = %+v", r)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"bad log level", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"zero attempts", "SEND_RETRY_MAX_ATTEMPTS", "0", "SEND_RETRY_MAX_ATTEMPTS"},
		{"negative delay", "SEND_RETRY_INITIAL_DELAY", "-1s", "SEND_RETRY_INITIAL_DELAY"},
		{"small multiplier", "SEND_RETRY_MULTIPLIER", "0.5", "SEND_RETRY_MULTIPLIER"},
		{"bad retention", "AUDIT_RETENTION", "-24h", "AUDIT_RETENTION"},
		{"bad cleanup interval", "AUDIT_CLEANUP_INTERVAL", "-1m", "AUDIT_CLEANUP_INTERVAL"},
		{"negative rps", "RATE_RPS", "-1", "RATE_RPS"},
		{"zero burst", "RATE_BURST", "0", "RATE_BURST"},
		{"bad sample ratio", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoad_GinModeNormalization(t *testing.T) {
	t.Setenv("GIN_MODE", "weird")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/":        "/",
		"api/v1":   "/api/v1",
		"/api/v1/": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	if got := splitCSV(" , "); got != nil {
		t.Errorf("splitCSV blank = %v, want nil", got)
	}
	got := splitCSV("https://a.example, https://b.example ,")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("splitCSV = %v", got)
	}
}
