package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	LogFormat string
	LogLevel  string

	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration

	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnIdle     time.Duration
	DBMaxConnLifetime time.Duration
	MigrateOnStart    bool

	OTelEndpoint    string
	OTelSampleRatio float64
	PprofUser       string
	PprofPass       string

	SecurityHeaders bool
	EnableHSTS      bool
	BodyLimitBytes  int64

	RateLimit         string
	TokenRateLimitMax int
	TokenRateWindow   time.Duration

	SettingsCacheTTL time.Duration
	ReportsCacheTTL  time.Duration
	IdempotencyTTL   time.Duration
	NumberLockTTL    time.Duration

	WorkerConcurrency int
	JobMaxRetry       int
	JobRetryBase      time.Duration

	WebhookTimeout      time.Duration
	WebhookMaxAttempts  int
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration

	EmailEnabled bool
	EmailFrom    string

	AuditEnabled  bool
	AuditSampling float64

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		ServiceName:        valueOrDefault(k.String("OTEL_SERVICE_NAME"), "backend-invoice"),
		ServiceVersion:     valueOrDefault(k.String("APP_VERSION"), "dev"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		LogFormat: valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),

		JWTSecret:      k.String("JWT_SECRET"),
		JWTIssuer:      valueOrDefault(k.String("JWT_ISSUER"), "backend-invoice"),
		JWTAudience:    valueOrDefault(k.String("JWT_AUDIENCE"), "invoice-api"),
		AccessTokenTTL: parseDuration(k.String("ACCESS_TOKEN_TTL"), "1h"),

		DBMaxConns:        int32(parseInt(k.String("DB_MAX_CONNS"), 10)),
		DBMinConns:        int32(parseInt(k.String("DB_MIN_CONNS"), 1)),
		DBMaxConnIdle:     parseDuration(k.String("DB_MAX_CONN_IDLE"), "5m"),
		DBMaxConnLifetime: parseDuration(k.String("DB_MAX_CONN_LIFETIME"), "1h"),
		MigrateOnStart:    parseBool(k.String("MIGRATE_ON_START")),

		OTelEndpoint:    strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTelSampleRatio: parseFloat(k.String("OTEL_SAMPLE_RATIO"), 0.1),
		PprofUser:       k.String("PPROF_USER"),
		PprofPass:       k.String("PPROF_PASS"),

		SecurityHeaders: parseBoolDefault(k.String("SECURITY_HEADERS"), true),
		EnableHSTS:      parseBool(k.String("SECURITY_HSTS")),
		BodyLimitBytes:  int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),

		RateLimit:         valueOrDefault(k.String("RATE_LIMIT"), "300-M"),
		TokenRateLimitMax: parseInt(k.String("TOKEN_RATE_LIMIT_MAX"), 10),
		TokenRateWindow:   parseDuration(k.String("TOKEN_RATE_LIMIT_WINDOW"), "1m"),

		SettingsCacheTTL: parseDuration(k.String("SETTINGS_CACHE_TTL"), "10m"),
		ReportsCacheTTL:  parseDuration(k.String("REPORTS_CACHE_TTL"), "5m"),
		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		NumberLockTTL:    parseDuration(k.String("INVOICE_NUMBER_LOCK_TTL"), "5s"),

		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 5),
		JobMaxRetry:       parseInt(k.String("JOB_MAX_RETRY"), 8),
		JobRetryBase:      parseDuration(k.String("JOB_RETRY_BASE"), "2s"),

		WebhookTimeout:      parseDuration(k.String("WEBHOOK_TIMEOUT"), "5s"),
		WebhookMaxAttempts:  parseInt(k.String("WEBHOOK_MAX_ATTEMPTS"), 3),
		BreakerMinRequests:  parseInt(k.String("BREAKER_MIN_REQUESTS"), 10),
		BreakerFailureRatio: parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),

		EmailEnabled: parseBool(k.String("EMAIL_ENABLED")),
		EmailFrom:    valueOrDefault(k.String("EMAIL_FROM"), "billing@example.com"),

		AuditEnabled:  parseBoolDefault(k.String("AUDIT_ENABLED"), true),
		AuditSampling: parseFloat(k.String("AUDIT_SAMPLING"), 1),

		ShutdownTimeout: parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.AppEnv == "production" && len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 bytes in production")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return parseBool(value)
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
