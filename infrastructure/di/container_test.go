package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gnome-garden/infrastructure/config"
	"gnome-garden/infrastructure/messaging/logpub"
	"gnome-garden/infrastructure/persistence/memory"
	"gnome-garden/infrastructure/persistence/sqlite"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		Environment:    "test",
		HostingURL:     "https://garden.example.com",
		StateBackend:   backend,
		SessionTTL:     time.Hour,
		LogLevel:       "error",
		EnableMetrics:  true,
		AllowedOrigins: []string{"*"},
	}
}

func TestInitializeContainerPlatformBackend(t *testing.T) {
	c, cleanup, err := InitializeContainer(context.Background(), testConfig(config.BackendPlatform))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	assert.Nil(t, c.Store)
	assert.IsType(t, &logpub.Publisher{}, c.Publisher)
	assert.Nil(t, c.Watcher)
	require.NotNil(t, c.Metrics)

	rec := httptest.NewRecorder()
	c.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gardens/u1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInitializeContainerMemoryBackend(t *testing.T) {
	c, cleanup, err := InitializeContainer(context.Background(), testConfig(config.BackendMemory))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	assert.IsType(t, &memory.Store{}, c.Store)
	rec := httptest.NewRecorder()
	c.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestInitializeContainerSQLiteBackend(t *testing.T) {
	cfg := testConfig(config.BackendSQLite)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "garden.db")
	cfg.EnableMetrics = false

	c, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	assert.IsType(t, &sqlite.Store{}, c.Store)
	assert.Nil(t, c.Metrics)

	rec := httptest.NewRecorder()
	c.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInitializeContainerRejectsBadContent(t *testing.T) {
	cfg := testConfig(config.BackendMemory)
	cfg.ContentPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, _, err := InitializeContainer(context.Background(), cfg)
	assert.Error(t, err)
}

func TestProvideSignatureVerifier(t *testing.T) {
	cfg := testConfig(config.BackendMemory)
	v, err := ProvideSignatureVerifier(cfg)
	require.NoError(t, err)
	assert.Nil(t, v)

	cfg.WebhookSecret = "s3cret"
	v, err = ProvideSignatureVerifier(cfg)
	require.NoError(t, err)
	assert.NotNil(t, v)

	cfg.WebhookPublicKey = "not a pem"
	_, err = ProvideSignatureVerifier(cfg)
	assert.Error(t, err)
}
