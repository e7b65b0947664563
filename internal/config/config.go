package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string
	MySQLDSN   string

	RedisAddr string
	RedisDB   int
	RedisPass string

	PostHogAPIKey string
	PostHogHost   string

	SentryDSN string

	TraceExporter  string
	OTLPEndpoint   string
	SampleRate     float64
	ServiceName    string
	ServiceVersion string

	SessionTTL      time.Duration
	FlagCacheTTL    time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration

	AdminToken  string
	SwaggerHost string
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		MySQLDSN:   getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		PostHogAPIKey: os.Getenv("POSTHOG_API_KEY"),
		PostHogHost:   getEnv("POSTHOG_HOST", "https://us.i.posthog.com"),

		SentryDSN: os.Getenv("SENTRY_DSN"),

		TraceExporter:  getEnv("OTEL_TRACES_EXPORTER", "none"),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		SampleRate:     getEnvFloat("OTEL_SAMPLE_RATE", 1.0),
		ServiceName:    getEnv("SERVICE_NAME", "tally"),
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),

		SessionTTL:      getEnvDuration("SESSION_TTL", 168*time.Hour),
		FlagCacheTTL:    getEnvDuration("FLAG_CACHE_TTL", 10*time.Minute),
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 3),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 10*time.Second),

		AdminToken:  os.Getenv("ADMIN_TOKEN"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
