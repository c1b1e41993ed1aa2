// Package handlers contains the HTTP handlers of the REST interface.
package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gnome-garden/application/fulfillment"
	"gnome-garden/application/ports"
	"gnome-garden/infrastructure/persistence/params"
	appErrors "gnome-garden/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validateStruct(v any) error {
	validateOnce.Do(func() { validate = validator.New() })
	return validate.Struct(v)
}

// FulfillmentHandler serves the conversational webhook
type FulfillmentHandler struct {
	service      *fulfillment.Service
	store        ports.StateStore
	errorHandler *appErrors.ErrorHandler
	logger       *zap.Logger
}

// NewFulfillmentHandler creates the webhook handler. A nil store keeps all
// player state in the platform's user and session params.
func NewFulfillmentHandler(
	service *fulfillment.Service,
	store ports.StateStore,
	errorHandler *appErrors.ErrorHandler,
	logger *zap.Logger,
) *FulfillmentHandler {
	return &FulfillmentHandler{
		service:      service,
		store:        store,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Handle handles POST /fulfillment
func (h *FulfillmentHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, appErrors.NewValidationError("Invalid request body: "+err.Error()))
		return
	}
	if err := validateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, appErrors.NewValidationError("Validation error: "+err.Error()))
		return
	}

	userID, _ := req.User.Params[params.UserIDKey].(string)
	if userID == "" {
		userID = uuid.NewString()
		h.logger.Debug("Assigned user id", zap.String("user_id", userID))
	}
	sessionID := req.Session.ID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	store := h.store
	var platform *params.Store
	if store == nil {
		platform = params.New(req.User.Params, req.Session.Params)
		store = platform
	}

	reply, err := h.service.Handle(r.Context(), store, req.toTurn(userID, sessionID))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	resp := WebhookResponse{
		Session: SessionDTO{ID: sessionID},
		Prompt:  promptOf(reply),
	}
	if platform != nil {
		resp.Session.Params = platform.SessionParams()
		resp.User.Params = platform.UserParams()
	} else {
		resp.Session.Params = req.Session.Params
		resp.User.Params = withUserID(req.User.Params, userID)
	}
	if reply.NextScene != "" {
		resp.Scene = &SceneDTO{Name: req.Scene.Name, Next: &NextSceneDTO{Name: reply.NextScene}}
	}
	if len(reply.Expected) > 0 {
		resp.Expected = &ExpectedDTO{Speech: reply.Expected}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode webhook response", zap.Error(err))
	}
}

func withUserID(bag map[string]any, userID string) map[string]any {
	out := make(map[string]any, len(bag)+1)
	for k, v := range bag {
		out[k] = v
	}
	out[params.UserIDKey] = userID
	return out
}
