package domainalias

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch loads the manifest at path into r and reloads it every time the file
// is written or recreated. It blocks until ctx is done.
//
// The parent directory is watched rather than the file so that editors which
// replace the file on save are still picked up.
func Watch(ctx context.Context, path string, r *Resolver, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	path = filepath.Clean(path)
	src := FileFetcher{Path: path}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create manifest watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	// Initial load. A missing or broken file keeps the current manifest.
	_ = Refresh(ctx, src, r, logger) //nolint:errcheck // already logged

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isReloadEvent(ev, path) {
				continue
			}
			_ = Refresh(ctx, src, r, logger) //nolint:errcheck // already logged
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("manifest watcher error", "error", werr)
		}
	}
}

// isReloadEvent reports whether ev should trigger a reload of path.
func isReloadEvent(ev fsnotify.Event, path string) bool {
	if filepath.Clean(ev.Name) != path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}
