// Package params keeps player state in the conversation platform's own
// user and session parameter bags, which travel with every webhook request.
package params

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gnome-garden/application/ports"
	"gnome-garden/domain/player"
)

// UserIDKey is the user parameter holding the stable player id.
const UserIDKey = "userId"

// SessionIDKey is the session parameter holding the session id.
const SessionIDKey = "sessionId"

// Store is a request-scoped ports.StateStore over the platform parameter
// bags. The records are flattened into the bags using their JSON field names.
type Store struct {
	mu      sync.Mutex
	user    map[string]any
	session map[string]any
}

// New wraps the parameter bags of one request. nil bags are treated as empty.
func New(user, session map[string]any) *Store {
	if user == nil {
		user = map[string]any{}
	}
	if session == nil {
		session = map[string]any{}
	}
	return &Store{user: user, session: session}
}

// UserParams returns the user bag to send back to the platform.
func (s *Store) UserParams() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBag(s.user)
}

// SessionParams returns the session bag to send back to the platform.
func (s *Store) SessionParams() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBag(s.session)
}

// LoadProfile implements ports.StateStore
func (s *Store) LoadProfile(_ context.Context, userID string) (*player.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, _ := s.user[UserIDKey].(string); id == "" || id != userID {
		return nil, ports.ErrNotFound
	}
	var p player.Profile
	if err := decode(s.user, &p); err != nil {
		// Keep the stored version so the replacement profile can be saved.
		stored, _ := s.user["version"].(float64)
		return &player.Profile{UserID: userID, Version: int64(stored)},
			fmt.Errorf("%w: user params: %v", player.ErrInvalidState, err)
	}
	if err := p.Validate(); err != nil {
		return &player.Profile{UserID: userID, Version: p.Version}, err
	}
	return &p, nil
}

// SaveProfile implements ports.StateStore. The bags belong to a single
// request so the version check only guards against a stale record.
func (s *Store) SaveProfile(_ context.Context, p *player.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.user["version"].(float64); ok && int64(stored) != p.Version {
		return fmt.Errorf("%w: %s stored %d, saving %d", ports.ErrVersionConflict, p.UserID, int64(stored), p.Version)
	}
	p.Version++
	if err := encode(p, s.user); err != nil {
		p.Version--
		return err
	}
	return nil
}

// LoadSession implements ports.StateStore
func (s *Store) LoadSession(_ context.Context, sessionID string) (*player.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, _ := s.session[SessionIDKey].(string); id == "" || id != sessionID {
		return nil, ports.ErrNotFound
	}
	var sess player.Session
	if err := decode(s.session, &sess); err != nil {
		return nil, fmt.Errorf("%w: session params: %v", player.ErrInvalidState, err)
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SaveSession implements ports.StateStore
func (s *Store) SaveSession(_ context.Context, sess *player.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return encode(sess, s.session)
}

// decode reads a record out of a bag. Unknown keys are ignored so the bag
// can carry platform-owned values alongside ours.
func decode(bag map[string]any, v any) error {
	raw, err := json.Marshal(bag)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// encode writes a record's fields into a bag, replacing earlier values and
// leaving unrelated keys untouched.
func encode(v any, bag map[string]any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	for _, k := range nullableKeys(v) {
		if _, ok := fields[k]; !ok {
			delete(bag, k)
		}
	}
	for k, val := range fields {
		bag[k] = val
	}
	return nil
}

// nullableKeys lists omitempty fields that must be cleared from the bag when
// the record no longer sets them.
func nullableKeys(v any) []string {
	if _, ok := v.(*player.Session); ok {
		return []string{"nextPosition", "pendingQuestion"}
	}
	return nil
}

func copyBag(bag map[string]any) map[string]any {
	out := make(map[string]any, len(bag))
	for k, v := range bag {
		out[k] = v
	}
	return out
}
