package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	// Queue backend: job-based prediction API.
	QueueAPIBaseURL   string
	QueueAPIToken     string
	QueueModelVersion string

	// Introspected backend: fallback candidate services tried after the
	// user-selected one.
	FallbackSpaces []string

	// Local backend artifacts.
	StoragePath string

	AllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	MaxUploadMB      int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		QueueAPIBaseURL:   getEnv("QUEUE_API_BASE_URL", "https://api.replicate.com"),
		QueueAPIToken:     os.Getenv("QUEUE_API_TOKEN"),
		QueueModelVersion: os.Getenv("QUEUE_MODEL_VERSION"),
		FallbackSpaces:    splitList(getEnv("FALLBACK_SPACES", "")),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "")),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		MaxUploadMB:       getEnvInt("MAX_UPLOAD_MB", 16),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
