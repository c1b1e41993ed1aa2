package events

import (
	"time"

	"github.com/google/uuid"

	"gnome-garden/domain/garden"
)

// DomainEvent is the base interface for all domain events.
// Events represent something that has happened in the past.
type DomainEvent interface {
	GetEventID() string
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields. The aggregate is the user's garden.
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetEventID() string      { return e.EventID }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(userID, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		EventID:     uuid.NewString(),
		AggregateID: userID,
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     1,
	}
}

const (
	TypeItemPlanted  = "garden.item_planted"
	TypeItemsRemoved = "garden.items_removed"
	TypeWeeded       = "garden.weeded"
	TypeGardenFull   = "garden.full"
	TypeGardenReset  = "garden.reset"
	TypeGaveUp       = "session.gave_up"
)

// ItemPlanted is raised when an accepted answer fills a slot.
type ItemPlanted struct {
	BaseEvent
	Item garden.PlantedItem `json:"item"`
}

// NewItemPlanted creates an ItemPlanted event
func NewItemPlanted(userID string, item garden.PlantedItem, timestamp time.Time) ItemPlanted {
	return ItemPlanted{BaseEvent: newBase(userID, TypeItemPlanted, timestamp), Item: item}
}

// ItemsRemoved is raised when the user removes flowers by badge number.
type ItemsRemoved struct {
	BaseEvent
	Spots  []garden.Spot `json:"spots"`
	Labels []string      `json:"labels"`
}

// NewItemsRemoved creates an ItemsRemoved event
func NewItemsRemoved(userID string, spots []garden.Spot, labels []string, timestamp time.Time) ItemsRemoved {
	return ItemsRemoved{BaseEvent: newBase(userID, TypeItemsRemoved, timestamp), Spots: spots, Labels: labels}
}

// GardenWeeded is raised when a weeding pass cleared at least one flower.
type GardenWeeded struct {
	BaseEvent
	Weeded int `json:"weeded"`
}

// NewGardenWeeded creates a GardenWeeded event
func NewGardenWeeded(userID string, weeded int, timestamp time.Time) GardenWeeded {
	return GardenWeeded{BaseEvent: newBase(userID, TypeWeeded, timestamp), Weeded: weeded}
}

// GardenFull is raised when no slot is left for the next question.
type GardenFull struct {
	BaseEvent
	TemplateIndex int `json:"template_index"`
	Items         int `json:"items"`
}

// NewGardenFull creates a GardenFull event
func NewGardenFull(userID string, templateIndex, items int, timestamp time.Time) GardenFull {
	return GardenFull{BaseEvent: newBase(userID, TypeGardenFull, timestamp), TemplateIndex: templateIndex, Items: items}
}

// GardenReset is raised when the user starts a new garden.
type GardenReset struct {
	BaseEvent
	TemplateIndex int `json:"template_index"`
}

// NewGardenReset creates a GardenReset event
func NewGardenReset(userID string, templateIndex int, timestamp time.Time) GardenReset {
	return GardenReset{BaseEvent: newBase(userID, TypeGardenReset, timestamp), TemplateIndex: templateIndex}
}

// GaveUp is raised when repeated unrecognised answers end the conversation.
type GaveUp struct {
	BaseEvent
	SessionID string      `json:"session_id"`
	Spot      garden.Spot `json:"spot"`
}

// NewGaveUp creates a GaveUp event
func NewGaveUp(userID, sessionID string, spot garden.Spot, timestamp time.Time) GaveUp {
	return GaveUp{BaseEvent: newBase(userID, TypeGaveUp, timestamp), SessionID: sessionID, Spot: spot}
}
