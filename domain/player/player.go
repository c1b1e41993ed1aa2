// Package player holds the typed per-user and per-session records that
// replace the platform's free-form parameter bags.
package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"gnome-garden/domain/garden"
)

// ErrInvalidState marks persisted records that fail validation.
var ErrInvalidState = errors.New("invalid persisted state")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Profile is the durable user-scoped state.
type Profile struct {
	UserID        string                `json:"userId" validate:"required"`
	Progress      garden.UserProgress   `json:"userProgress"`
	Garden        garden.GardenProgress `json:"gardenProgress" validate:"dive"`
	TemplateIndex int                   `json:"gardenTemplateId" validate:"min=0"`
	StoryVisited  bool                  `json:"storyVisited"`
	Onboarding1   bool                  `json:"onboarding_1"`
	Onboarding2   bool                  `json:"onboarding_2"`
	Onboarding3   bool                  `json:"onboarding_3"`
	SoundOn       bool                  `json:"soundOn"`
	Version       int64                 `json:"version" validate:"min=0"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// NewProfile returns the state of a first-time visitor.
func NewProfile(userID string) *Profile {
	return &Profile{UserID: userID, SoundOn: true}
}

// Validate checks the record's structural invariants.
func (p *Profile) Validate() error {
	if err := validatorInstance().Struct(p); err != nil {
		return fmt.Errorf("%w: profile: %v", ErrInvalidState, err)
	}
	seen := make(map[garden.Spot]struct{}, len(p.Garden))
	for _, it := range p.Garden {
		if _, dup := seen[it.Spot()]; dup {
			return fmt.Errorf("%w: profile: slot %s planted twice", ErrInvalidState, it.Spot())
		}
		seen[it.Spot()] = struct{}{}
	}
	return nil
}

// Returning reports whether the user finished onboarding in an earlier
// session.
func (p *Profile) Returning() bool {
	return p.Onboarding2
}

// ResetGarden starts a new garden: planted items and the template choice are
// cleared. Question progress, onboarding flags and settings survive so the
// next garden continues with new questions.
func (p *Profile) ResetGarden() {
	p.Garden = nil
	p.TemplateIndex = 0
}

// PendingQuestion pins the question being asked until it is answered or
// skipped.
type PendingQuestion struct {
	Spot  garden.Spot `json:"spot"`
	Index int         `json:"index" validate:"min=0"`
}

// Session is the ephemeral per-conversation state.
type Session struct {
	SessionID  string                `json:"sessionId" validate:"required"`
	UserID     string                `json:"userId"`
	Available  garden.AvailableSpots `json:"gardenAvailableSpots" validate:"dive"`
	Next       *garden.Spot          `json:"nextPosition,omitempty"`
	Pending    *PendingQuestion      `json:"pendingQuestion,omitempty"`
	Errors     int                   `json:"errorResponse" validate:"min=0"`
	Returning  bool                  `json:"returning"`
	FirstWeed  int64                 `json:"firstWeedTimestamp"`
	Template   int                   `json:"gardenTemplateId" validate:"min=0"`
	ExpiresAt  time.Time             `json:"expiresAt"`
}

// NewSession returns an empty session for sessionID.
func NewSession(sessionID, userID string) *Session {
	return &Session{SessionID: sessionID, UserID: userID}
}

// Validate checks the record's structural invariants.
func (s *Session) Validate() error {
	if err := validatorInstance().Struct(s); err != nil {
		return fmt.Errorf("%w: session: %v", ErrInvalidState, err)
	}
	return nil
}

// ClearQuestion drops the pinned question so the next game turn selects a
// fresh slot.
func (s *Session) ClearQuestion() {
	s.Pending = nil
	s.Errors = 0
}

// Reset clears all garden scratch state.
func (s *Session) Reset() {
	s.Available = nil
	s.Next = nil
	s.ClearQuestion()
	s.FirstWeed = 0
}
