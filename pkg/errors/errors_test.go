package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAppErrorTypes(t *testing.T) {
	cause := stderrors.New("dial tcp: timeout")

	tests := []struct {
		name   string
		err    *AppError
		typ    ErrorType
		status int
	}{
		{"validation", NewValidationError("bad handler"), ErrorTypeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("garden"), ErrorTypeNotFound, http.StatusNotFound},
		{"conflict", NewConflictError("version"), ErrorTypeConflict, http.StatusConflict},
		{"unauthorized", NewUnauthorizedError(""), ErrorTypeUnauthorized, http.StatusUnauthorized},
		{"unavailable", NewUnavailableError("state store", cause), ErrorTypeUnavailable, http.StatusServiceUnavailable},
		{"database", NewDatabaseError("put profile", cause), ErrorTypeDatabase, http.StatusInternalServerError},
		{"external", NewExternalError("eventbridge", cause), ErrorTypeExternal, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.StackTrace)
			assert.True(t, IsType(tt.err, tt.typ))
		})
	}

	assert.ErrorIs(t, NewDatabaseError("get", cause), cause)
	assert.Equal(t, "unauthorized", NewUnauthorizedError("").Message)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ctx"))

	wrapped := Wrap(NewConflictError("version changed"), "save profile")
	assert.True(t, IsConflict(wrapped))
	assert.Equal(t, "save profile: version changed", GetAppError(wrapped).Message)

	plain := Wrap(stderrors.New("boom"), "turn")
	assert.True(t, IsType(plain, ErrorTypeInternal))
}

func TestErrorHandler(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	t.Run("app error keeps its status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/fulfillment", nil)
		h.Handle(rec, req, NewValidationError("unknown handler").WithCode("UNKNOWN_HANDLER"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "VALIDATION", body.Type)
		assert.Equal(t, "UNKNOWN_HANDLER", body.Code)
	})

	t.Run("plain error hides details outside debug", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		h.Handle(rec, req, stderrors.New("secret"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "secret")
	})

	t.Run("middleware recovers panics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		h.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("gnome escaped")
		})).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
