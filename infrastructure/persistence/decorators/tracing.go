package decorators

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gnome-garden/application/ports"
	"gnome-garden/domain/player"
)

// TracingStore opens a span around every state store call.
type TracingStore struct {
	next    ports.StateStore
	tracer  trace.Tracer
	backend string
}

// NewTracingStore wraps next; backend is recorded as db.system on each span.
func NewTracingStore(next ports.StateStore, backend string) *TracingStore {
	return &TracingStore{
		next:    next,
		tracer:  otel.Tracer("gnome-garden/persistence"),
		backend: backend,
	}
}

func (s *TracingStore) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.system", s.backend),
		attribute.String("db.operation", op),
	)
	return s.tracer.Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func end(span trace.Span, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ports.ErrNotFound):
		span.SetAttributes(attribute.Bool("store.miss", true))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// LoadProfile implements ports.StateStore
func (s *TracingStore) LoadProfile(ctx context.Context, userID string) (*player.Profile, error) {
	ctx, span := s.start(ctx, "LoadProfile", attribute.String("user.id", userID))
	p, err := s.next.LoadProfile(ctx, userID)
	end(span, err)
	return p, err
}

// SaveProfile implements ports.StateStore
func (s *TracingStore) SaveProfile(ctx context.Context, profile *player.Profile) error {
	ctx, span := s.start(ctx, "SaveProfile",
		attribute.String("user.id", profile.UserID),
		attribute.Int64("profile.version", profile.Version),
	)
	err := s.next.SaveProfile(ctx, profile)
	end(span, err)
	return err
}

// LoadSession implements ports.StateStore
func (s *TracingStore) LoadSession(ctx context.Context, sessionID string) (*player.Session, error) {
	ctx, span := s.start(ctx, "LoadSession", attribute.String("session.id", sessionID))
	sess, err := s.next.LoadSession(ctx, sessionID)
	end(span, err)
	return sess, err
}

// SaveSession implements ports.StateStore
func (s *TracingStore) SaveSession(ctx context.Context, session *player.Session) error {
	ctx, span := s.start(ctx, "SaveSession", attribute.String("session.id", session.SessionID))
	err := s.next.SaveSession(ctx, session)
	end(span, err)
	return err
}

// Ping implements ports.HealthChecker
func (s *TracingStore) Ping(ctx context.Context) error {
	if hc, ok := s.next.(ports.HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}

// Unwrap returns the decorated store
func (s *TracingStore) Unwrap() ports.StateStore {
	return s.next
}
