// Package memory provides an in-process state store for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gnome-garden/application/ports"
	"gnome-garden/domain/garden"
	"gnome-garden/domain/player"
)

// Store keeps profiles and sessions in maps. Records are copied on the way in
// and out so callers never share state.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]player.Profile
	sessions map[string]player.Session
	now      func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		profiles: make(map[string]player.Profile),
		sessions: make(map[string]player.Session),
		now:      time.Now,
	}
}

// LoadProfile implements ports.StateStore
func (s *Store) LoadProfile(_ context.Context, userID string) (*player.Profile, error) {
	s.mu.RLock()
	p, ok := s.profiles[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, ports.ErrNotFound
	}
	out := cloneProfile(p)
	return &out, nil
}

// SaveProfile implements ports.StateStore. The stored version must match the
// record's version; a successful save increments it.
func (s *Store) SaveProfile(_ context.Context, p *player.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.profiles[p.UserID]
	switch {
	case !exists && p.Version != 0:
		return fmt.Errorf("%w: %s has version %d but is not stored", ports.ErrVersionConflict, p.UserID, p.Version)
	case exists && current.Version != p.Version:
		return fmt.Errorf("%w: %s stored %d, saving %d", ports.ErrVersionConflict, p.UserID, current.Version, p.Version)
	}

	p.Version++
	s.profiles[p.UserID] = cloneProfile(*p)
	return nil
}

// LoadSession implements ports.StateStore. Expired sessions are dropped.
func (s *Store) LoadSession(_ context.Context, sessionID string) (*player.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if !sess.ExpiresAt.IsZero() && !sess.ExpiresAt.After(s.now()) {
		delete(s.sessions, sessionID)
		return nil, ports.ErrNotFound
	}
	out := cloneSession(sess)
	return &out, nil
}

// SaveSession implements ports.StateStore
func (s *Store) SaveSession(_ context.Context, sess *player.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[sess.SessionID] = cloneSession(*sess)
	s.mu.Unlock()
	return nil
}

// Ping implements ports.HealthChecker
func (s *Store) Ping(context.Context) error {
	return nil
}

// Sweep removes expired sessions and reports how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if !sess.ExpiresAt.IsZero() && !sess.ExpiresAt.After(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func cloneProfile(p player.Profile) player.Profile {
	if p.Garden != nil {
		p.Garden = append(garden.GardenProgress(nil), p.Garden...)
	}
	return p
}

func cloneSession(s player.Session) player.Session {
	if s.Available != nil {
		s.Available = append(garden.AvailableSpots(nil), s.Available...)
	}
	if s.Next != nil {
		next := *s.Next
		s.Next = &next
	}
	if s.Pending != nil {
		pending := *s.Pending
		s.Pending = &pending
	}
	return s
}
