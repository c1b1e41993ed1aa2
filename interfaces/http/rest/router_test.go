package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gnome-garden/application/fulfillment"
	"gnome-garden/application/ports"
	"gnome-garden/infrastructure/content"
	"gnome-garden/infrastructure/messaging/logpub"
	"gnome-garden/infrastructure/observability"
	"gnome-garden/infrastructure/persistence/memory"
	"gnome-garden/interfaces/http/rest/handlers"
	"gnome-garden/interfaces/http/rest/middleware"
	appErrors "gnome-garden/pkg/errors"
	"gnome-garden/pkg/random"
)

const testSecret = "webhook-test-secret"

type failingChecker struct{}

func (failingChecker) Ping(context.Context) error { return errors.New("table unreachable") }

// newTestServer builds the router; a nil store keeps state in the platform
// params.
func newTestServer(t *testing.T, store ports.StateStore, verifier *middleware.SignatureVerifier, checker ports.HealthChecker) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	c, err := content.Default("https://garden.example.com")
	require.NoError(t, err)

	opts := fulfillment.DefaultOptions()
	opts.HostingURL = "https://garden.example.com"
	metrics := observability.NewCollector("garden")
	svc, err := fulfillment.NewService(content.NewStatic(c), logpub.NewPublisher(logger), ports.SystemClock{}, random.New(7), metrics, logger, opts)
	require.NoError(t, err)

	errorHandler := appErrors.NewErrorHandler(logger, false)
	var gardens *handlers.GardenHandler
	if store != nil {
		gardens = handlers.NewGardenHandler(svc, store, errorHandler, logger)
	}
	rt := NewRouter(
		handlers.NewFulfillmentHandler(svc, store, errorHandler, logger),
		gardens,
		handlers.NewHealthHandler(checker),
		verifier,
		metrics,
		RouterConfig{EnableCORS: true, AllowedOrigins: []string{"*"}},
		logger,
		errorHandler,
	)
	return rt.Setup()
}

func webhook(handler, scene string, user, session map[string]any) map[string]any {
	return map[string]any{
		"handler": map[string]any{"name": handler},
		"intent":  map[string]any{"name": "actions.intent.MAIN", "params": map[string]any{}},
		"scene":   map[string]any{"name": scene},
		"session": map[string]any{"id": "session-1", "params": session},
		"user":    map[string]any{"params": user},
		"device":  map[string]any{"capabilities": []string{"SPEECH", "RICH_RESPONSE", "INTERACTIVE_CANVAS"}},
	}
}

func post(t *testing.T, h http.Handler, body map[string]any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/fulfillment", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) handlers.WebhookResponse {
	t.Helper()
	var resp handlers.WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func canvasState(t *testing.T, resp handlers.WebhookResponse) string {
	t.Helper()
	require.NotNil(t, resp.Prompt)
	require.NotNil(t, resp.Prompt.Canvas)
	require.Len(t, resp.Prompt.Canvas.Data, 1)
	data, ok := resp.Prompt.Canvas.Data[0].(map[string]any)
	require.True(t, ok)
	state, _ := data["state"].(string)
	return state
}

func TestHealthAndReady(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := newTestServer(t, nil, nil, failingChecker{})
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWebhookKeepsStateInPlatformParams(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	rec := post(t, h, webhook(fulfillment.HandlerInitGame, "", nil, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode(t, rec)
	assert.Equal(t, "PRELOAD", canvasState(t, first))
	assert.True(t, first.Prompt.Canvas.SuppressMic)
	assert.Equal(t, "https://garden.example.com", first.Prompt.Canvas.URL)
	userID, _ := first.User.Params["userId"].(string)
	require.NotEmpty(t, userID)
	assert.Equal(t, "session-1", first.Session.ID)

	rec = post(t, h, webhook(fulfillment.HandlerWelcome, fulfillment.SceneWelcome, first.User.Params, first.Session.Params), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode(t, rec)
	assert.Equal(t, "WELCOME", canvasState(t, second))
	require.NotNil(t, second.Prompt.FirstSimple)
	assert.Contains(t, second.Prompt.FirstSimple.Speech, "<speak>")
	assert.Equal(t, userID, second.User.Params["userId"])
	require.NotNil(t, second.Expected)
	assert.NotEmpty(t, second.Expected.Speech)
}

func TestWebhookRejectsDevicesWithoutCanvas(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)
	body := webhook(fulfillment.HandlerInitGame, "", nil, nil)
	body["device"] = map[string]any{"capabilities": []string{"SPEECH", "WEB_LINK"}}

	rec := post(t, h, body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Scene)
	assert.Equal(t, fulfillment.SceneEndConversation, resp.Scene.Next.Name)
}

func TestWebhookValidation(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	rec := post(t, h, webhook("handle_unknown", "", nil, nil), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h, map[string]any{"handler": map[string]any{}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/fulfillment", bytes.NewBufferString("{"))
	raw := httptest.NewRecorder()
	h.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestWebhookSignature(t *testing.T) {
	verifier, err := middleware.NewSignatureVerifier(middleware.SignatureConfig{Secret: testSecret, Audience: "gnome-garden"})
	require.NoError(t, err)
	h := newTestServer(t, nil, verifier, nil)
	body := webhook(fulfillment.HandlerInitGame, "", nil, nil)

	rec := post(t, h, body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	sign := func(aud string) http.Header {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{aud},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)
		return http.Header{middleware.SignatureHeader: []string{signed}}
	}

	rec = post(t, h, body, sign("someone-else"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, h, body, sign("gnome-garden"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGardenSnapshotRoute(t *testing.T) {
	store := memory.NewStore()
	h := newTestServer(t, store, nil, store)

	rec := post(t, h, webhook(fulfillment.HandlerInitGame, "", map[string]any{"userId": "player-1"}, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "player-1", decode(t, rec).User.Params["userId"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gardens/player-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var garden handlers.GardenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &garden))
	assert.Equal(t, "player-1", garden.UserID)
	require.NotNil(t, garden.Garden)
	assert.Empty(t, garden.Garden.Data)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gardens/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)
	post(t, h, webhook(fulfillment.HandlerInitGame, "", nil, nil), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/fulfillment"`)
	assert.Contains(t, rec.Body.String(), `garden_handler_calls_total{handler="handle_init_game",status="ok"} 1`)
}
