package di

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gnome-garden/application/fulfillment"
	"gnome-garden/application/ports"
	"gnome-garden/infrastructure/config"
	"gnome-garden/infrastructure/observability"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     ports.StateStore
	Publisher ports.EventPublisher
	Content   ports.ContentSource
	Watcher   *config.FileWatcher
	Metrics   *observability.Collector
	Tracing   observability.Shutdown
	Service   *fulfillment.Service
	Handler   http.Handler
}

type unwrapper interface {
	Unwrap() ports.StateStore
}

type sweeper interface {
	Sweep() int
}

type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RunJanitor drops expired sessions from stores that keep them locally until
// ctx is cancelled. DynamoDB expires items itself and needs no janitor.
func (c *Container) RunJanitor(ctx context.Context, interval time.Duration) {
	store := c.Store
	for {
		u, ok := store.(unwrapper)
		if !ok {
			break
		}
		store = u.Unwrap()
	}

	var sweep func() error
	switch s := store.(type) {
	case sweeper:
		sweep = func() error {
			if n := s.Sweep(); n > 0 {
				c.Logger.Debug("Swept expired sessions", zap.Int("count", n))
			}
			return nil
		}
	case purger:
		sweep = func() error {
			_, err := s.PurgeExpired(ctx)
			return err
		}
	default:
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sweep(); err != nil {
				c.Logger.Warn("Session sweep failed", zap.Error(err))
			}
		}
	}
}
