// Package logpub is the event publisher used when no event bus is
// configured: every event becomes a structured log line.
package logpub

import (
	"context"

	"go.uber.org/zap"

	"gnome-garden/application/ports"
	"gnome-garden/domain/events"
)

// Publisher logs events instead of shipping them
type Publisher struct {
	logger *zap.Logger
}

// NewPublisher creates a logging publisher
func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger}
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Publish implements ports.EventPublisher
func (p *Publisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.logger.Info("Garden event",
		zap.String("event_type", event.GetEventType()),
		zap.String("event_id", event.GetEventID()),
		zap.String("user_id", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
		zap.Any("event", event),
	)
	return nil
}

// PublishBatch implements ports.EventPublisher
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, e := range domainEvents {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
