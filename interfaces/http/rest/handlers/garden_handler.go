package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gnome-garden/application/fulfillment"
	"gnome-garden/application/ports"
	appErrors "gnome-garden/pkg/errors"
)

// GardenHandler serves read-only garden snapshots
type GardenHandler struct {
	service      *fulfillment.Service
	store        ports.StateStore
	errorHandler *appErrors.ErrorHandler
	logger       *zap.Logger
}

// NewGardenHandler creates a garden handler
func NewGardenHandler(
	service *fulfillment.Service,
	store ports.StateStore,
	errorHandler *appErrors.ErrorHandler,
	logger *zap.Logger,
) *GardenHandler {
	return &GardenHandler{
		service:      service,
		store:        store,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// GardenResponse is the snapshot of one user's garden
type GardenResponse struct {
	UserID string                  `json:"userId"`
	Garden *fulfillment.GardenView `json:"userGarden"`
}

// GetGarden handles GET /api/v1/gardens/{userID}
func (h *GardenHandler) GetGarden(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.errorHandler.Handle(w, r, appErrors.NewValidationError("user id is required"))
		return
	}

	view, err := h.service.Snapshot(r.Context(), h.store, userID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(GardenResponse{UserID: userID, Garden: view}); err != nil {
		h.logger.Error("Failed to encode garden response", zap.Error(err))
	}
}

// HealthHandler answers liveness and readiness probes
type HealthHandler struct {
	checker ports.HealthChecker
}

// NewHealthHandler creates a health handler; checker may be nil
func NewHealthHandler(checker ports.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.checker.Ping(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeStatus(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
