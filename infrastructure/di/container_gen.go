//go:build !wireinject
// +build !wireinject

package di

import (
	"context"

	"gnome-garden/infrastructure/config"
)

// InitializeContainer creates a fully wired container. It mirrors the
// injector in wire.go; the returned cleanup releases resources in reverse
// order of creation.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	shutdown, cleanupTracing, err := ProvideTracing(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store, cleanupStore, err := ProvideStateStore(ctx, cfg, logger)
	if err != nil {
		cleanupTracing()
		return nil, nil, err
	}
	publisher, err := ProvideEventPublisher(ctx, cfg, logger)
	if err != nil {
		cleanupStore()
		cleanupTracing()
		return nil, nil, err
	}
	source, err := ProvideContentSource(cfg, logger)
	if err != nil {
		cleanupStore()
		cleanupTracing()
		return nil, nil, err
	}
	watcher, cleanupWatcher, err := ProvideContentWatcher(source, cfg, logger)
	if err != nil {
		cleanupStore()
		cleanupTracing()
		return nil, nil, err
	}
	collector := ProvideMetrics(cfg)
	service, err := ProvideFulfillmentService(cfg, source, publisher, collector, logger)
	if err != nil {
		cleanupWatcher()
		cleanupStore()
		cleanupTracing()
		return nil, nil, err
	}
	verifier, err := ProvideSignatureVerifier(cfg)
	if err != nil {
		cleanupWatcher()
		cleanupStore()
		cleanupTracing()
		return nil, nil, err
	}
	errorHandler := ProvideErrorHandler(cfg, logger)
	checker := ProvideHealthChecker(store)
	router := ProvideRouter(cfg, service, store, checker, verifier, collector, errorHandler, logger)
	handler := ProvideHTTPHandler(router)

	container := &Container{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Publisher: publisher,
		Content:   source,
		Watcher:   watcher,
		Metrics:   collector,
		Tracing:   shutdown,
		Service:   service,
		Handler:   handler,
	}
	return container, func() {
		cleanupWatcher()
		cleanupStore()
		cleanupTracing()
		_ = logger.Sync()
	}, nil
}
