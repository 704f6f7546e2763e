package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Backend names accepted in STORAGE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendBaserow  = "baserow"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults;
// the selected storage backend's settings are mandatory.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Storage backend selection
	StorageBackend string

	// Relational store (postgres or a sqlite DSN for local use)
	DatabaseDSN string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Baserow
	BaserowAPIURL      string
	BaserowToken       string
	BaserowMappingFile string

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// HTTP client
	HTTPTimeout time.Duration

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret  string
	SessionTTL time.Duration
}

// Load reads configuration from environment variables. It fails when
// the selected backend is missing its settings: a misconfigured
// deployment must die at startup, never fall back to another backend.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StorageBackend: getEnv("STORAGE_BACKEND", BackendPostgres),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		BaserowAPIURL:      getEnv("BASEROW_API_URL", ""),
		BaserowToken:       getEnv("BASEROW_TOKEN", ""),
		BaserowMappingFile: getEnv("BASEROW_MAPPING_FILE", ""),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		SessionTTL: getEnvDuration("SESSION_TTL", 24*time.Hour),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}

	switch cfg.StorageBackend {
	case BackendPostgres:
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("config: DATABASE_DSN is required for the postgres backend")
		}
	case BackendSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" || cfg.SupabaseServiceKey == "" {
			return nil, fmt.Errorf("config: SUPABASE_URL, SUPABASE_ANON_KEY and SUPABASE_SERVICE_ROLE_KEY are required for the supabase backend")
		}
	case BackendBaserow:
		if cfg.BaserowAPIURL == "" || cfg.BaserowToken == "" || cfg.BaserowMappingFile == "" {
			return nil, fmt.Errorf("config: BASEROW_API_URL, BASEROW_TOKEN and BASEROW_MAPPING_FILE are required for the baserow backend")
		}
	default:
		return nil, fmt.Errorf("config: unknown STORAGE_BACKEND %q (want postgres, supabase or baserow)", cfg.StorageBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
