// Package dispatch routes named webhook handlers to their implementations
// through a middleware pipeline.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Errors
var (
	ErrHandlerNotFound   = errors.New("handler not found")
	ErrAlreadyRegistered = errors.New("handler already registered")
)

// Handler handles one named conversation step for state T
type Handler[T any] interface {
	Handle(ctx context.Context, state T) error
}

// HandlerFunc is an adapter to allow functions to be used as handlers
type HandlerFunc[T any] func(ctx context.Context, state T) error

// Handle implements Handler
func (f HandlerFunc[T]) Handle(ctx context.Context, state T) error {
	return f(ctx, state)
}

// Middleware wraps a named handler
type Middleware[T any] func(name string, next Handler[T]) Handler[T]

// Dispatcher dispatches handler names to their handlers
type Dispatcher[T any] struct {
	handlers    map[string]Handler[T]
	middlewares []Middleware[T]
	mu          sync.RWMutex
}

// New creates a new dispatcher. Middlewares run in the order given.
func New[T any](middlewares ...Middleware[T]) *Dispatcher[T] {
	return &Dispatcher[T]{
		handlers:    make(map[string]Handler[T]),
		middlewares: middlewares,
	}
}

// Register registers a handler under name
func (d *Dispatcher[T]) Register(name string, handler Handler[T]) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	// Apply middleware in reverse order
	for i := len(d.middlewares) - 1; i >= 0; i-- {
		handler = d.middlewares[i](name, handler)
	}
	d.handlers[name] = handler
	return nil
}

// Dispatch runs the handler registered under name
func (d *Dispatcher[T]) Dispatch(ctx context.Context, name string, state T) error {
	d.mu.RLock()
	handler, exists := d.handlers[name]
	d.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %q", ErrHandlerNotFound, name)
	}
	return handler.Handle(ctx, state)
}

// Names returns the registered handler names, sorted
func (d *Dispatcher[T]) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.handlers))
	for n := range d.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoggingMiddleware logs handler execution
func LoggingMiddleware[T any](logger *zap.Logger) Middleware[T] {
	return func(name string, next Handler[T]) Handler[T] {
		return HandlerFunc[T](func(ctx context.Context, state T) error {
			start := time.Now()
			err := next.Handle(ctx, state)
			if err != nil {
				logger.Error("Handler failed",
					zap.String("handler", name),
					zap.Duration("duration", time.Since(start)),
					zap.Error(err),
				)
			} else {
				logger.Debug("Handler succeeded",
					zap.String("handler", name),
					zap.Duration("duration", time.Since(start)),
				)
			}
			return err
		})
	}
}

// Recorder receives handler timings
type Recorder interface {
	RecordHandler(name string, duration time.Duration, err error)
}

// MetricsMiddleware reports handler timings to a Recorder
func MetricsMiddleware[T any](rec Recorder) Middleware[T] {
	return func(name string, next Handler[T]) Handler[T] {
		return HandlerFunc[T](func(ctx context.Context, state T) error {
			start := time.Now()
			err := next.Handle(ctx, state)
			rec.RecordHandler(name, time.Since(start), err)
			return err
		})
	}
}
