package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/expiry-tracker/constants"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // if true, walk roots and emit existing images
	Debounce    time.Duration // coalesce rapid create/write bursts per file
}

// StartWatcher emits the path of every label image created or rewritten
// under cfg.Roots until ctx is done. Both channels are closed on exit.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != root && IsHidden(path) {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			if cfg.InitialScan && !IsHidden(path) && constants.IsLabelImage(path) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}
	logger.Info("watching label folders", "roots", cfg.Roots, "initial", len(initial))

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)
	go watchLoop(ctx, w, cfg.Debounce, initial, evCh, errCh, logger)
	return evCh, errCh, nil
}

// watchLoop owns the pending set; debounce expiry is delivered on a channel
// so no other goroutine touches it.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, initial []string,
	evCh chan<- string, errCh chan<- error, logger *slog.Logger) {
	defer close(evCh)
	defer close(errCh)
	defer func() {
		if err := w.Close(); err != nil {
			logger.Warn("failed to close watcher", "error", err)
		}
	}()

	emit := func(p string) bool {
		select {
		case evCh <- p:
			return true
		case <-ctx.Done():
			return false
		}
	}
	for _, p := range initial {
		if !emit(p) {
			return
		}
	}

	pending := map[string]struct{}{}
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	flush := func() bool {
		for p := range pending {
			delete(pending, p)
			if !emit(p) {
				return false
			}
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-fire:
			fire = nil
			if !flush() {
				return
			}
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if e.Has(fsnotify.Create) {
				if st, err := os.Stat(e.Name); err == nil && st.IsDir() && !IsHidden(e.Name) {
					if err := w.Add(e.Name); err != nil {
						logger.Warn("failed to add new directory to watcher", "path", e.Name, "error", err)
					}
					continue
				}
			}
			if IsHidden(e.Name) || !constants.IsLabelImage(e.Name) {
				continue
			}
			if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
				continue
			}
			pending[e.Name] = struct{}{}
			if debounce <= 0 {
				if !flush() {
					return
				}
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Error("watcher error", "error", err)
			select {
			case errCh <- err:
			default:
			}
		}
	}
}
