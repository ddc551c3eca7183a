// Package watch re-runs a job whenever a file changes.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	pyerrors "github.com/aledsdavies/pyfog/pkgs/errors"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 50 * time.Millisecond

// Options tunes Run.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Run calls fn once, then again after every write to path, until ctx is
// done. The parent directory is watched rather than the file itself, so
// editors that save by replacing the file are still seen. Errors from fn
// are logged and do not end the loop.
func Run(ctx context.Context, path string, fn func() error, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return pyerrors.Wrap(pyerrors.ErrWatch, "cannot resolve watched path", err).
			WithContext("path", path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return pyerrors.Wrap(pyerrors.ErrWatch, "cannot create file watcher", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return pyerrors.Wrap(pyerrors.ErrWatch, "cannot watch directory", err).
			WithContext("path", filepath.Dir(abs))
	}

	runOnce := func() {
		if err := fn(); err != nil {
			logger.Error("[WATCH] run failed", "path", path, "error", err)
		}
	}
	runOnce()

	// A nil channel blocks forever, which keeps the timer case idle until
	// the first relevant event arms it.
	var fire <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("[WATCH] change detected", "path", path, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			runOnce()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("[WATCH] watcher error", "error", err)
		}
	}
}
