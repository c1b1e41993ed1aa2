package content

import (
	"sync/atomic"

	"go.uber.org/zap"

	"gnome-garden/application/ports"
)

// Static serves one content value for the process lifetime.
type Static struct {
	content *ports.Content
}

// NewStatic wraps already loaded content.
func NewStatic(c *ports.Content) *Static {
	return &Static{content: c}
}

// Current implements ports.ContentSource
func (s *Static) Current() *ports.Content {
	return s.content
}

// Reloadable swaps content atomically when its file changes. A failed reload
// keeps the previous content.
type Reloadable struct {
	path       string
	hostingURL string
	current    atomic.Pointer[ports.Content]
	logger     *zap.Logger
}

// NewReloadable loads path once and returns a source ready for Reload.
func NewReloadable(path, hostingURL string, logger *zap.Logger) (*Reloadable, error) {
	c, err := Load(path, hostingURL)
	if err != nil {
		return nil, err
	}
	r := &Reloadable{path: path, hostingURL: hostingURL, logger: logger}
	r.current.Store(c)
	return r, nil
}

// Current implements ports.ContentSource
func (r *Reloadable) Current() *ports.Content {
	return r.current.Load()
}

// Path returns the watched file.
func (r *Reloadable) Path() string {
	return r.path
}

// Reload re-reads the content file.
func (r *Reloadable) Reload() error {
	c, err := Load(r.path, r.hostingURL)
	if err != nil {
		r.logger.Warn("Content reload failed, keeping current content",
			zap.String("path", r.path),
			zap.Error(err),
		)
		return err
	}
	for _, p := range Check(c) {
		r.logger.Warn("Content check", zap.String("path", r.path), zap.String("problem", p.String()))
	}
	r.current.Store(c)
	r.logger.Info("Content reloaded",
		zap.String("path", r.path),
		zap.Int("templates", c.Templates.Len()),
	)
	return nil
}
