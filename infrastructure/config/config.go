// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// State backends
const (
	BackendPlatform = "platform"
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string
	HostingURL    string

	// State storage
	StateBackend string
	AWSRegion    string
	TableName    string
	SessionTTL   time.Duration
	SQLitePath   string

	// Domain events
	EventBusName string

	// Game content
	ContentPath  string
	WatchContent bool
	FuzzyAnswers bool
	RandomSeed   uint64

	// Webhook signature
	WebhookSecret    string
	WebhookPublicKey string
	WebhookAudience  string

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	OTLPEndpoint  string
	EnableCORS    bool

	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		HostingURL:    getEnv("HOSTING_URL", ""),

		StateBackend: strings.ToLower(getEnv("STATE_BACKEND", BackendPlatform)),
		AWSRegion:    getEnv("AWS_REGION", "us-west-2"),
		TableName:    getEnv("TABLE_NAME", "gnome-garden"),
		SessionTTL:   getEnvDuration("SESSION_TTL", 24*time.Hour),
		SQLitePath:   getEnv("SQLITE_PATH", "gnome-garden.db"),

		EventBusName: getEnv("EVENT_BUS_NAME", ""),

		ContentPath:  getEnv("CONTENT_PATH", ""),
		WatchContent: getEnvBool("WATCH_CONTENT", false),
		FuzzyAnswers: getEnvBool("ANSWER_FUZZY_MATCH", false),
		RandomSeed:   uint64(getEnvInt("RANDOM_SEED", 0)),

		WebhookSecret:    getEnv("WEBHOOK_SECRET", ""),
		WebhookPublicKey: getEnv("WEBHOOK_PUBLIC_KEY", ""),
		WebhookAudience:  getEnv("WEBHOOK_AUDIENCE", ""),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		OTLPEndpoint:  getEnv("OTLP_ENDPOINT", "localhost:4317"),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.HostingURL == "" {
		return fmt.Errorf("HOSTING_URL is required")
	}
	switch c.StateBackend {
	case BackendPlatform, BackendMemory:
	case BackendDynamoDB:
		if c.TableName == "" {
			return fmt.Errorf("TABLE_NAME is required for the dynamodb backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.StateBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.WatchContent && c.ContentPath == "" {
		return fmt.Errorf("WATCH_CONTENT requires CONTENT_PATH")
	}

	if c.IsProduction() {
		if c.WebhookSecret == "" && c.WebhookPublicKey == "" {
			return fmt.Errorf("WEBHOOK_SECRET or WEBHOOK_PUBLIC_KEY is required in production")
		}
		if c.StateBackend == BackendMemory {
			return fmt.Errorf("the memory backend is not allowed in production")
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30m") or plain seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvList splits a comma separated variable
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
