//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"gnome-garden/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideErrorHandler,
	ProvideTracing,
	ProvideStateStore,
	ProvideHealthChecker,
	ProvideEventPublisher,
	ProvideContentSource,
	ProvideContentWatcher,
	ProvideMetrics,
	ProvideFulfillmentService,
	ProvideSignatureVerifier,
	ProvideRouter,
	ProvideHTTPHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
