// Package rest exposes the fulfillment webhook and the garden API over HTTP.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"gnome-garden/interfaces/http/rest/handlers"
	"gnome-garden/interfaces/http/rest/middleware"
	"gnome-garden/pkg/errors"
)

// MetricsSource is implemented by the metrics collector
type MetricsSource interface {
	middleware.HTTPRecorder
	Handler() http.Handler
}

// RouterConfig holds the router's optional features
type RouterConfig struct {
	EnableCORS     bool
	AllowedOrigins []string
}

// Router creates and configures the HTTP router
type Router struct {
	fulfillment  *handlers.FulfillmentHandler
	gardens      *handlers.GardenHandler
	health       *handlers.HealthHandler
	verifier     *middleware.SignatureVerifier
	metrics      MetricsSource
	config       RouterConfig
	logger       *zap.Logger
	errorHandler *errors.ErrorHandler
}

// NewRouter creates a new router instance. gardens, verifier and metrics may
// be nil, which leaves the matching routes or checks out.
func NewRouter(
	fulfillment *handlers.FulfillmentHandler,
	gardens *handlers.GardenHandler,
	health *handlers.HealthHandler,
	verifier *middleware.SignatureVerifier,
	metrics MetricsSource,
	config RouterConfig,
	logger *zap.Logger,
	errorHandler *errors.ErrorHandler,
) *Router {
	return &Router{
		fulfillment:  fulfillment,
		gardens:      gardens,
		health:       health,
		verifier:     verifier,
		metrics:      metrics,
		config:       config,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.health.Health)
	router.Get("/ready", rt.health.Ready)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Group(func(r chi.Router) {
		if rt.verifier != nil {
			r.Use(middleware.VerifySignature(rt.verifier, rt.errorHandler, rt.logger))
		}
		r.Post("/fulfillment", rt.fulfillment.Handle)
	})

	if rt.gardens != nil {
		router.Route("/api/v1", func(r chi.Router) {
			r.Get("/gardens/{userID}", rt.gardens.GetGarden)
		})
	}

	return router
}
