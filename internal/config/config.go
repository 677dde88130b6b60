// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends.
const (
	StoragePostgres  = "postgres"
	StorageFirestore = "firestore"
	StorageMemory    = "memory"
)

// Model backends.
const (
	LLMGemini = "gemini"
	LLMVertex = "vertex"
	LLMMock   = "mock"
)

// Image storage backends.
const (
	ImageStorageS3   = "s3"
	ImageStorageNone = "none"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Storage backend for accounts and interaction records
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"postgres"`

	// Database (PostgreSQL)
	DatabaseURL    string `env:"DATABASE_URL"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"false"`

	// Firestore
	FirestoreProjectID string `env:"FIRESTORE_PROJECT_ID"`

	// Cache (Redis). Optional; rate limiting is skipped without it.
	RedisURL string `env:"REDIS_URL"`

	// Bearer credentials
	JWTSecret      string        `env:"JWT_SECRET,required"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`

	// Model
	LLMBackend       string  `env:"LLM_BACKEND" envDefault:"gemini"`
	GeminiAPIKey     string  `env:"GEMINI_API_KEY"`
	GCPProject       string  `env:"GCP_PROJECT"`
	GCPLocation      string  `env:"GCP_LOCATION" envDefault:"us-central1"`
	ModelName        string  `env:"MODEL_NAME" envDefault:"gemini-2.5-flash"`
	ModelTemperature float32 `env:"MODEL_TEMPERATURE" envDefault:"0.5"`

	// Image object storage (S3 compatible)
	ImageStorage    string `env:"IMAGE_STORAGE" envDefault:"s3"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
	S3KeyPrefix     string `env:"S3_KEY_PREFIX" envDefault:"ai_agent_uploads"`
	MaxImageSize    int64  `env:"MAX_IMAGE_SIZE" envDefault:"10485760"`

	// History limits
	HistoryContextLimit int `env:"HISTORY_CONTEXT_LIMIT" envDefault:"10"`
	HistoryListLimit    int `env:"HISTORY_LIST_LIMIT" envDefault:"50"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. Model calls with images are slow, so writes get more room.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitEnabled   bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitChatRPS   int  `env:"RATE_LIMIT_CHAT_RPS" envDefault:"2"`
	RateLimitChatBurst int  `env:"RATE_LIMIT_CHAT_BURST" envDefault:"10"`

	// Metrics
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks rules that span more than one variable.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres storage backend"))
		}
	case StorageFirestore:
		if c.FirestoreProjectID == "" {
			errs = append(errs, errors.New("FIRESTORE_PROJECT_ID is required for the firestore storage backend"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	switch c.LLMBackend {
	case LLMGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini model backend"))
		}
	case LLMVertex:
		if c.GCPProject == "" {
			errs = append(errs, errors.New("GCP_PROJECT is required for the vertex model backend"))
		}
	case LLMMock:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_BACKEND %q", c.LLMBackend))
	}

	switch c.ImageStorage {
	case ImageStorageS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for s3 image storage"))
		}
	case ImageStorageNone:
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_STORAGE %q", c.ImageStorage))
	}

	if c.HistoryContextLimit <= 0 || c.HistoryListLimit <= 0 {
		errs = append(errs, errors.New("history limits must be positive"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or inconsistent.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
