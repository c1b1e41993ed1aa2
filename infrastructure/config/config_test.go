package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOSTING_URL", "https://garden.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, BackendPlatform, cfg.StateBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.FuzzyAnswers)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HOSTING_URL", "https://garden.example.com")
	t.Setenv("STATE_BACKEND", "SQLite")
	t.Setenv("SESSION_TTL", "90")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("ANSWER_FUZZY_MATCH", "yes")
	t.Setenv("RANDOM_SEED", "42")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.StateBackend)
	assert.Equal(t, 90*time.Second, cfg.SessionTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.True(t, cfg.FuzzyAnswers)
	assert.Equal(t, uint64(42), cfg.RandomSeed)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment:  "development",
			HostingURL:   "https://garden.example.com",
			StateBackend: BackendMemory,
			SessionTTL:   time.Hour,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing hosting url", mutate: func(c *Config) { c.HostingURL = "" }, wantErr: "HOSTING_URL"},
		{name: "unknown backend", mutate: func(c *Config) { c.StateBackend = "redis" }, wantErr: "STATE_BACKEND"},
		{name: "dynamodb needs table", mutate: func(c *Config) {
			c.StateBackend = BackendDynamoDB
			c.TableName = ""
		}, wantErr: "TABLE_NAME"},
		{name: "watch needs path", mutate: func(c *Config) { c.WatchContent = true }, wantErr: "CONTENT_PATH"},
		{name: "production needs signature", mutate: func(c *Config) {
			c.Environment = "production"
			c.StateBackend = BackendDynamoDB
			c.TableName = "garden"
		}, wantErr: "WEBHOOK_SECRET"},
		{name: "production rejects memory", mutate: func(c *Config) {
			c.Environment = "production"
			c.WebhookSecret = "s3cret"
		}, wantErr: "memory backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
