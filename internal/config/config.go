// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the StickerBot delivery client, retry
// policy, audit retention, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "sticker-gallery-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// RetryConfig controls the bounded exponential backoff applied to a single
// logical send through the StickerBot API.
type RetryConfig struct {
	MaxAttempts  int           // SEND_RETRY_MAX_ATTEMPTS (>= 1)
	InitialDelay time.Duration // SEND_RETRY_INITIAL_DELAY (> 0)
	Multiplier   float64       // SEND_RETRY_MULTIPLIER (>= 1.0)
}

// StickerBotConfig holds the outbound StickerBot API client settings.
// The API URL and service token are mandatory for delivery; when either is
// missing, sends fail fast with CONFIG_ERROR and are never retried.
type StickerBotConfig struct {
	APIURL         string        // STICKERBOT_API_URL (base URL, trailing slash stripped)
	ServiceToken   string        // STICKERBOT_SERVICE_TOKEN (Bearer credential)
	ConnectTimeout time.Duration // STICKERBOT_CONNECT_TIMEOUT
	ReadTimeout    time.Duration // STICKERBOT_READ_TIMEOUT (covers the whole exchange)
	Retry          RetryConfig
}

// AuditConfig controls the message-audit trail retention and cleanup sweeper.
type AuditConfig struct {
	Retention       time.Duration // AUDIT_RETENTION (session expiry horizon)
	CleanupEnabled  bool          // AUDIT_CLEANUP_ENABLED
	CleanupInterval time.Duration // AUDIT_CLEANUP_INTERVAL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath     string // SQLite path
	AdminToken string // ADMIN_SERVICE_TOKEN; empty disables admin auth (dev mode)

	// Delivery
	StickerBot StickerBotConfig

	// Audit trail
	Audit AuditConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:     getenv("DB_PATH", "app.db"),
		AdminToken: strings.TrimSpace(getenv("ADMIN_SERVICE_TOKEN", "")),

		// Delivery
		StickerBot: StickerBotConfig{
			APIURL:         strings.TrimRight(strings.TrimSpace(getenv("STICKERBOT_API_URL", "")), "/"),
			ServiceToken:   strings.TrimSpace(getenv("STICKERBOT_SERVICE_TOKEN", "")),
			ConnectTimeout: getdur("STICKERBOT_CONNECT_TIMEOUT", 5*time.Second),
			ReadTimeout:    getdur("STICKERBOT_READ_TIMEOUT", 10*time.Second),
			Retry: RetryConfig{
				MaxAttempts:  getint("SEND_RETRY_MAX_ATTEMPTS", 3),
				InitialDelay: getdur("SEND_RETRY_INITIAL_DELAY", 300*time.Millisecond),
				Multiplier:   getfloat("SEND_RETRY_MULTIPLIER", 3.0),
			},
		},

		// Audit trail
		Audit: AuditConfig{
			Retention:       getdur("AUDIT_RETENTION", 90*24*time.Hour),
			CleanupEnabled:  getbool("AUDIT_CLEANUP_ENABLED", true),
			CleanupInterval: getdur("AUDIT_CLEANUP_INTERVAL", time.Hour),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "sticker-gallery-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.StickerBot.Retry.MaxAttempts < 1 {
		return cfg, errors.New("SEND_RETRY_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.StickerBot.Retry.InitialDelay <= 0 {
		return cfg, errors.New("SEND_RETRY_INITIAL_DELAY must be > 0")
	}
	if cfg.StickerBot.Retry.Multiplier < 1.0 {
		return cfg, errors.New("SEND_RETRY_MULTIPLIER must be >= 1.0")
	}
	if cfg.StickerBot.ConnectTimeout <= 0 || cfg.StickerBot.ReadTimeout <= 0 {
		return cfg, errors.New("STICKERBOT timeouts must be > 0")
	}
	if cfg.Audit.Retention <= 0 {
		return cfg, errors.New("AUDIT_RETENTION must be > 0")
	}
	if cfg.Audit.CleanupInterval <= 0 {
		return cfg, errors.New("AUDIT_CLEANUP_INTERVAL must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be within [0,1]")
	}
	return cfg, nil
}

// getenv returns the value of the environment variable or a default when the
// variable is unset or blank.
func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

// getdur parses a duration env var (e.g. "300ms", "2m"); falls back on error.
func getdur(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

// getint parses an integer env var; falls back on error.
func getint(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// getfloat parses a float env var; falls back on error.
func getfloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// getbool parses a boolean env var ("1", "t", "true", ...); falls back on error.
func getbool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty entries. Returns nil for an empty input.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeBasePath ensures the base path starts with "/" and has no trailing
// slash ("" and "/" normalize to "/").
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}
