package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	limiter "github.com/ulule/limiter/v3"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CatalogPath        string
	CatalogDir         string
	RedisURL           string
	CatalogRedisPrefix string
	CatalogCacheTTL    time.Duration
	IdempotencyTTL     time.Duration
	CORSAllowedOrigins []string
	RateLimit          string
	BodyLimitBytes     int64
	SecurityHeaders    bool
	EnableHSTS         bool
	Obs                ObsConfig
}

// ObsConfig configures logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	HTTPBucketsMS    string
	EnablePrometheus bool
	EnableTracing    bool
	OTLPEndpoint     string
	SamplingRatio    float64
	ServiceName      string
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
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		CatalogPath:        valueOrDefault(k.String("CATALOG_PATH"), "data/pricing_rules.json"),
		CatalogDir:         valueOrDefault(k.String("CATALOG_DIR"), "data"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CatalogRedisPrefix: valueOrDefault(k.String("CATALOG_REDIS_PREFIX"), "pos:"),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "0s"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RateLimit:          valueOrDefault(k.String("RATE_LIMIT"), "20-S"),
		BodyLimitBytes:     parseInt64(k.String("BODY_LIMIT_BYTES"), 1<<20),
		SecurityHeaders:    parseBoolDefault(k.String("SECURITY_HEADERS"), true),
		EnableHSTS:         parseBoolDefault(k.String("SECURITY_HSTS"), false),
		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "pos"),
			HTTPBucketsMS:    k.String("OBS_HTTP_BUCKETS_MS"),
			EnablePrometheus: parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			EnableTracing:    parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
			ServiceName:      valueOrDefault(k.String("OBS_SERVICE_NAME"), "pos-checkout"),
		},
	}

	if _, err := limiter.NewRateFromFormatted(cfg.RateLimit); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT %q: %w", cfg.RateLimit, err)
	}
	if cfg.Obs.SamplingRatio < 0 || cfg.Obs.SamplingRatio > 1 {
		return nil, fmt.Errorf("OBS_TRACING_SAMPLING_RATIO must be within [0,1], got %v", cfg.Obs.SamplingRatio)
	}
	if cfg.BodyLimitBytes <= 0 {
		return nil, fmt.Errorf("BODY_LIMIT_BYTES must be positive, got %d", cfg.BodyLimitBytes)
	}
	if cfg.CatalogCacheTTL < 0 {
		return nil, fmt.Errorf("CATALOG_CACHE_TTL must not be negative")
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

// Rate returns the parsed RATE_LIMIT value.
func (c *Config) Rate() limiter.Rate {
	rate, err := limiter.NewRateFromFormatted(c.RateLimit)
	if err != nil {
		rate, _ = limiter.NewRateFromFormatted("20-S")
	}
	return rate
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
		return strings.TrimSpace(value)
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

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return n
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
