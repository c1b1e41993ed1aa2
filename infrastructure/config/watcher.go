package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Reloader is notified when a watched file changes.
type Reloader interface {
	Reload() error
}

// FileWatcher watches a content file and triggers reloads on change
type FileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	target   Reloader
	debounce time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

// NewFileWatcher creates a watcher for path. Call Start to begin watching.
func NewFileWatcher(path string, target Reloader, logger *zap.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory as well so atomic saves (rename over the file) are seen
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch content directory: %w", err)
	}

	return &FileWatcher{
		path:     path,
		watcher:  watcher,
		target:   target,
		debounce: 100 * time.Millisecond,
		logger:   logger,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching for changes
func (w *FileWatcher) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.watchLoop()
	w.logger.Info("Content watcher started", zap.String("path", w.path))
}

// Stop stops watching and waits for the loop to exit
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		if w.started.Load() {
			<-w.done
		}
		w.logger.Info("Content watcher stopped")
	})
}

func (w *FileWatcher) watchLoop() {
	defer close(w.done)

	var debounceTimer *time.Timer
	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *FileWatcher) reload() {
	w.logger.Info("Content file changed, reloading", zap.String("path", w.path))
	if err := w.target.Reload(); err != nil {
		w.logger.Error("Failed to reload content", zap.String("path", w.path), zap.Error(err))
	}
}
