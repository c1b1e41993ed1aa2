// Package sqlite stores player state in a local SQLite database, for single
// instance deployments that still want state to survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"gnome-garden/application/ports"
	"gnome-garden/domain/player"
	appErrors "gnome-garden/pkg/errors"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Store implements ports.StateStore on SQLite
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// One writer at a time; busy_timeout covers the rest.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	s := &Store{db: db, logger: logger, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS profiles (
			user_id    TEXT PRIMARY KEY,
			version    INTEGER NOT NULL,
			data       TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			data       TEXT NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadProfile implements ports.StateStore
func (s *Store) LoadProfile(ctx context.Context, userID string) (*player.Profile, error) {
	var (
		version int64
		data    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, data FROM profiles WHERE user_id = ?`, userID,
	).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, appErrors.NewDatabaseError("LoadProfile", err)
	}

	var p player.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return &player.Profile{UserID: userID, Version: version}, fmt.Errorf("%w: profile row: %v", player.ErrInvalidState, err)
	}
	p.Version = version
	if err := p.Validate(); err != nil {
		return &player.Profile{UserID: userID, Version: version}, err
	}
	return &p, nil
}

// SaveProfile implements ports.StateStore with an optimistic version check
func (s *Store) SaveProfile(ctx context.Context, p *player.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	next := *p
	next.Version = p.Version + 1
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("sqlite: marshal profile: %w", err)
	}
	updated := p.UpdatedAt.UTC().Format(time.RFC3339)

	var res sql.Result
	if p.Version == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO profiles (user_id, version, data, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id) DO NOTHING`,
			p.UserID, next.Version, string(data), updated)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE profiles SET version = ?, data = ?, updated_at = ? WHERE user_id = ? AND version = ?`,
			next.Version, string(data), updated, p.UserID, p.Version)
	}
	if err != nil {
		return appErrors.NewDatabaseError("SaveProfile", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return appErrors.NewDatabaseError("SaveProfile", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s at version %d", ports.ErrVersionConflict, p.UserID, p.Version)
	}

	p.Version = next.Version
	return nil
}

// LoadSession implements ports.StateStore
func (s *Store) LoadSession(ctx context.Context, sessionID string) (*player.Session, error) {
	var (
		data      string
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, expires_at FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, appErrors.NewDatabaseError("LoadSession", err)
	}
	if expiresAt > 0 && expiresAt <= s.now().Unix() {
		return nil, ports.ErrNotFound
	}

	var sess player.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("%w: session row: %v", player.ErrInvalidState, err)
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SaveSession implements ports.StateStore
func (s *Store) SaveSession(ctx context.Context, sess *player.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("sqlite: marshal session: %w", err)
	}
	var expires int64
	if !sess.ExpiresAt.IsZero() {
		expires = sess.ExpiresAt.Unix()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, data, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET user_id = excluded.user_id, data = excluded.data, expires_at = excluded.expires_at`,
		sess.SessionID, sess.UserID, string(data), expires)
	if err != nil {
		return appErrors.NewDatabaseError("SaveSession", err)
	}
	return nil
}

// PurgeExpired deletes expired sessions
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at > 0 AND expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, appErrors.NewDatabaseError("PurgeExpired", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("Purged expired sessions", zap.Int64("count", n))
	}
	return n, nil
}

// Ping implements ports.HealthChecker
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
