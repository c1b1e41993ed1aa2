// Package decorators wraps a ports.StateStore with cross-cutting behaviour:
// circuit breaking for remote backends and tracing spans around every call.
package decorators

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"gnome-garden/application/ports"
	"gnome-garden/domain/player"
	appErrors "gnome-garden/pkg/errors"
)

// BreakerConfig holds configuration for the store circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used for remote stores
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// BreakerStore trips after repeated backend failures and fails fast while open.
type BreakerStore struct {
	next   ports.StateStore
	cb     *gobreaker.CircuitBreaker
	name   string
	logger *zap.Logger
}

// NewBreakerStore wraps next with a circuit breaker
func NewBreakerStore(next ports.StateStore, config BreakerConfig, logger *zap.Logger) *BreakerStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: isBackendHealthy,
	})
	return &BreakerStore{next: next, cb: cb, name: config.Name, logger: logger}
}

// isBackendHealthy counts only infrastructure failures against the breaker.
// Missing records, stale versions and bad stored data say nothing about the
// backend's health.
func isBackendHealthy(err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, ports.ErrNotFound),
		errors.Is(err, ports.ErrVersionConflict),
		errors.Is(err, player.ErrInvalidState),
		errors.Is(err, context.Canceled):
		return true
	}
	return false
}

func (s *BreakerStore) execute(fn func() (any, error)) (any, error) {
	out, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Warn("State store call rejected by circuit breaker",
			zap.String("breaker", s.name),
			zap.Error(err),
		)
		return nil, appErrors.NewUnavailableError(s.name, err)
	}
	return out, err
}

// State reports the breaker state
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

// LoadProfile implements ports.StateStore
func (s *BreakerStore) LoadProfile(ctx context.Context, userID string) (*player.Profile, error) {
	var p *player.Profile
	_, err := s.execute(func() (any, error) {
		var err error
		p, err = s.next.LoadProfile(ctx, userID)
		return nil, err
	})
	return p, err
}

// SaveProfile implements ports.StateStore
func (s *BreakerStore) SaveProfile(ctx context.Context, profile *player.Profile) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.SaveProfile(ctx, profile)
	})
	return err
}

// LoadSession implements ports.StateStore
func (s *BreakerStore) LoadSession(ctx context.Context, sessionID string) (*player.Session, error) {
	out, err := s.execute(func() (any, error) {
		return s.next.LoadSession(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return out.(*player.Session), nil
}

// SaveSession implements ports.StateStore
func (s *BreakerStore) SaveSession(ctx context.Context, session *player.Session) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.SaveSession(ctx, session)
	})
	return err
}

// Ping bypasses the breaker so readiness reflects the backend directly.
func (s *BreakerStore) Ping(ctx context.Context) error {
	if hc, ok := s.next.(ports.HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}

// Unwrap returns the decorated store
func (s *BreakerStore) Unwrap() ports.StateStore {
	return s.next
}
