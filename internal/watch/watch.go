// Package watch re-runs work when files change on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options configures Watch.
type Options struct {
	// Debounce is how long the files must stay quiet before onChange runs.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watch calls onChange with the changed paths whenever any of files is
// written, created or renamed into place, until ctx is cancelled. Bursts of
// events within the debounce window collapse into one call. Parent
// directories are watched so editors that replace files atomically are seen.
// onChange runs on the watching goroutine; a returned error stops Watch.
func Watch(ctx context.Context, files []string, opts Options, onChange func(changed []string) error) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	wanted := make(map[string]string, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		wanted[abs] = f
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	logger.Debug("watching files", "files", len(wanted), "dirs", len(dirs))

	// The timer starts stopped; each relevant event re-arms it.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]bool)
	var order []string

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			name, ok := wanted[abs]
			if !ok {
				continue
			}
			logger.Debug("file event", "file", name, "op", event.Op.String())
			if !pending[name] {
				pending[name] = true
				order = append(order, name)
			}
			timer.Reset(opts.Debounce)

		case <-timer.C:
			changed := order
			pending = make(map[string]bool)
			order = nil
			if err := onChange(changed); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}
