// Package watcher reports changes to a single file, such as the config file
// of a running server.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/cpg-explorer/pkg/debounce"
	"github.com/ritzau/cpg-explorer/pkg/logging"
)

// DefaultQuietPeriod coalesces the write bursts editors produce on save.
const DefaultQuietPeriod = 150 * time.Millisecond

// FileWatcher watches one file. The parent directory is watched so that
// editors that save by rename-and-replace are still seen.
type FileWatcher struct {
	watcher     *fsnotify.Watcher
	path        string
	quietPeriod time.Duration

	mu      sync.Mutex
	stopped bool
}

// NewFileWatcher creates a watcher for path. Nothing is watched until Start.
func NewFileWatcher(path string, quietPeriod time.Duration) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if quietPeriod <= 0 {
		quietPeriod = DefaultQuietPeriod
	}
	return &FileWatcher{
		watcher:     w,
		path:        abs,
		quietPeriod: quietPeriod,
	}, nil
}

// Path returns the absolute path being watched.
func (fw *FileWatcher) Path() string {
	return fw.path
}

// Start watches until ctx is done or Stop is called. onChange runs once per
// burst of changes, after the quiet period.
func (fw *FileWatcher) Start(ctx context.Context, onChange func(ctx context.Context)) error {
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Info("watching file", "path", fw.path)

	d := debounce.New(ctx, "watch:"+filepath.Base(fw.path), fw.quietPeriod)
	go fw.processEvents(ctx, d, onChange)
	return nil
}

func (fw *FileWatcher) processEvents(ctx context.Context, d *debounce.Debouncer, onChange func(ctx context.Context)) {
	defer d.Cancel()
	for {
		select {
		case <-ctx.Done():
			fw.Stop()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logging.Trace("file event", "path", event.Name, "op", event.Op.String())
			d.Schedule(onChange)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Stop stops the watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.stopped {
		return nil
	}
	fw.stopped = true
	return fw.watcher.Close()
}
