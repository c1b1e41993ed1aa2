package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gnome-garden/application/fulfillment"
	"gnome-garden/application/ports"
	"gnome-garden/domain/dialogue"
	"gnome-garden/infrastructure/config"
	"gnome-garden/infrastructure/content"
	"gnome-garden/infrastructure/messaging/eventbridge"
	"gnome-garden/infrastructure/messaging/logpub"
	"gnome-garden/infrastructure/observability"
	"gnome-garden/infrastructure/persistence/decorators"
	"gnome-garden/infrastructure/persistence/dynamodb"
	"gnome-garden/infrastructure/persistence/memory"
	"gnome-garden/infrastructure/persistence/sqlite"
	"gnome-garden/interfaces/http/rest"
	"gnome-garden/interfaces/http/rest/handlers"
	"gnome-garden/interfaces/http/rest/middleware"
	"gnome-garden/pkg/errors"
	"gnome-garden/pkg/random"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *errors.ErrorHandler {
	return errors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideAWSConfig creates AWS configuration. It is only called for the
// backends that talk to AWS.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
}

// ProvideStateStore selects the state backend. The platform backend has no
// shared store: each webhook call carries its own state, so this returns nil.
func ProvideStateStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.StateStore, func(), error) {
	var (
		store   ports.StateStore
		cleanup = func() {}
	)
	switch cfg.StateBackend {
	case config.BackendPlatform:
		return nil, cleanup, nil
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendDynamoDB:
		awsCfg, err := ProvideAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		store = decorators.NewBreakerStore(
			dynamodb.NewStore(awsdynamodb.NewFromConfig(awsCfg), cfg.TableName, logger),
			decorators.DefaultBreakerConfig("dynamodb"),
			logger,
		)
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		store = s
		cleanup = func() {
			if err := s.Close(); err != nil {
				logger.Warn("Failed to close sqlite store", zap.Error(err))
			}
		}
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}

	if cfg.EnableTracing {
		store = decorators.NewTracingStore(store, cfg.StateBackend)
	}
	logger.Info("State store ready", zap.String("backend", cfg.StateBackend))
	return store, cleanup, nil
}

// ProvideHealthChecker exposes the store's readiness probe, if it has one
func ProvideHealthChecker(store ports.StateStore) ports.HealthChecker {
	if hc, ok := store.(ports.HealthChecker); ok {
		return hc
	}
	return nil
}

// ProvideEventPublisher ships events to EventBridge when a bus is
// configured, and logs them otherwise.
func ProvideEventPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.EventPublisher, error) {
	if cfg.EventBusName == "" {
		return logpub.NewPublisher(logger), nil
	}
	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger), nil
}

// ProvideContentSource loads the game content: the embedded catalog, a
// file, or a file that reloads on change.
func ProvideContentSource(cfg *config.Config, logger *zap.Logger) (ports.ContentSource, error) {
	var (
		source ports.ContentSource
		err    error
	)
	switch {
	case cfg.ContentPath == "":
		var c *ports.Content
		c, err = content.Default(cfg.HostingURL)
		source = content.NewStatic(c)
	case cfg.WatchContent:
		source, err = content.NewReloadable(cfg.ContentPath, cfg.HostingURL, logger)
	default:
		var c *ports.Content
		c, err = content.Load(cfg.ContentPath, cfg.HostingURL)
		source = content.NewStatic(c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load content: %w", err)
	}

	for _, p := range content.Check(source.Current()) {
		if p.Severity == content.SeverityError {
			return nil, fmt.Errorf("content check failed: %s", p)
		}
		logger.Warn("Content check", zap.String("problem", p.String()))
	}
	return source, nil
}

// ProvideContentWatcher starts watching the content file when hot reload is on
func ProvideContentWatcher(source ports.ContentSource, cfg *config.Config, logger *zap.Logger) (*config.FileWatcher, func(), error) {
	reloadable, ok := source.(*content.Reloadable)
	if !ok || !cfg.WatchContent {
		return nil, func() {}, nil
	}
	w, err := config.NewFileWatcher(reloadable.Path(), reloadable, logger)
	if err != nil {
		return nil, nil, err
	}
	w.Start()
	return w, w.Stop, nil
}

// ProvideMetrics creates the metrics collector, or nil when metrics are off
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("gnome_garden")
}

// ProvideTracing installs the tracer provider when tracing is on
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (observability.Shutdown, func(), error) {
	noop := func(context.Context) error { return nil }
	if !cfg.EnableTracing {
		return noop, func() {}, nil
	}
	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: "gnome-garden",
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return shutdown, cleanup, nil
}

// ProvideFulfillmentService wires the conversation service
func ProvideFulfillmentService(
	cfg *config.Config,
	source ports.ContentSource,
	publisher ports.EventPublisher,
	collector *observability.Collector,
	logger *zap.Logger,
) (*fulfillment.Service, error) {
	opts := fulfillment.DefaultOptions()
	opts.HostingURL = cfg.HostingURL
	opts.SessionTTL = cfg.SessionTTL
	opts.Matcher = dialogue.Matcher{Fuzzy: cfg.FuzzyAnswers}

	var metrics fulfillment.Metrics = fulfillment.NopMetrics{}
	if collector != nil {
		metrics = collector
	}
	return fulfillment.NewService(source, publisher, ports.SystemClock{}, random.New(cfg.RandomSeed), metrics, logger, opts)
}

// ProvideSignatureVerifier creates the webhook verifier, or nil when no key
// is configured
func ProvideSignatureVerifier(cfg *config.Config) (*middleware.SignatureVerifier, error) {
	sc := middleware.SignatureConfig{
		Secret:    cfg.WebhookSecret,
		PublicKey: cfg.WebhookPublicKey,
		Audience:  cfg.WebhookAudience,
	}
	if !sc.Enabled() {
		return nil, nil
	}
	return middleware.NewSignatureVerifier(sc)
}

// ProvideRouter builds the HTTP router
func ProvideRouter(
	cfg *config.Config,
	service *fulfillment.Service,
	store ports.StateStore,
	checker ports.HealthChecker,
	verifier *middleware.SignatureVerifier,
	collector *observability.Collector,
	errorHandler *errors.ErrorHandler,
	logger *zap.Logger,
) *rest.Router {
	var gardens *handlers.GardenHandler
	if store != nil {
		gardens = handlers.NewGardenHandler(service, store, errorHandler, logger)
	}
	var metrics rest.MetricsSource
	if collector != nil {
		metrics = collector
	}
	return rest.NewRouter(
		handlers.NewFulfillmentHandler(service, store, errorHandler, logger),
		gardens,
		handlers.NewHealthHandler(checker),
		verifier,
		metrics,
		rest.RouterConfig{EnableCORS: cfg.EnableCORS, AllowedOrigins: cfg.AllowedOrigins},
		logger,
		errorHandler,
	)
}

// ProvideHTTPHandler sets up the router's routes
func ProvideHTTPHandler(router *rest.Router) http.Handler {
	return router.Setup()
}
