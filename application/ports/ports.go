package ports

import (
	"context"
	"errors"
	"time"

	"gnome-garden/domain/dialogue"
	"gnome-garden/domain/events"
	"gnome-garden/domain/garden"
	"gnome-garden/domain/player"
)

// ErrNotFound is returned by stores when no record exists yet.
var ErrNotFound = errors.New("state not found")

// ErrVersionConflict is returned when a profile changed since it was loaded.
var ErrVersionConflict = errors.New("profile version conflict")

// StateStore persists the typed player records between turns.
// This is a port in hexagonal architecture - the conversation handlers don't
// know whether state lives in the platform's params or a database.
type StateStore interface {
	// LoadProfile returns the user's durable state or ErrNotFound. When the
	// stored record fails validation the error wraps player.ErrInvalidState
	// and the returned profile, if non-nil, carries only the stored Version.
	LoadProfile(ctx context.Context, userID string) (*player.Profile, error)

	// SaveProfile persists the user's durable state. It fails with
	// ErrVersionConflict when the stored Version differs from the record's
	// and increments Version on success.
	SaveProfile(ctx context.Context, profile *player.Profile) error

	// LoadSession returns the session's scratch state or ErrNotFound
	LoadSession(ctx context.Context, sessionID string) (*player.Session, error)

	// SaveSession persists the session's scratch state
	SaveSession(ctx context.Context, session *player.Session) error
}

// HealthChecker is implemented by stores that can report readiness.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Content is one consistent version of the authored game content.
type Content struct {
	Templates *garden.TemplateCatalog
	Script    *dialogue.Script
}

// ContentSource hands out the current content. Implementations may swap the
// content between turns; a turn keeps the value it fetched.
type ContentSource interface {
	Current() *Content
}

// Clock abstracts wall-clock time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Random is the injected source of randomness.
type Random = garden.Random
