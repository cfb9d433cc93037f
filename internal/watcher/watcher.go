// Package watcher submits documents dropped into a folder as upload batches.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"rag-chat/internal/upload"
)

// BatchRunner is satisfied by *upload.Pipeline
type BatchRunner interface {
	Run(ctx context.Context, files []upload.File) ([]upload.FileStatus, error)
}

// Watcher collects new files in a directory and uploads them once the
// directory has been quiet for the debounce interval.
type Watcher struct {
	watcher    *fsnotify.Watcher
	runner     BatchRunner
	extensions []string
	debounce   time.Duration
	logger     zerolog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher; extensions are matched case-insensitively
func New(runner BatchRunner, extensions []string, debounce time.Duration, logger zerolog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	exts := make([]string, len(extensions))
	for i, e := range extensions {
		exts[i] = strings.ToLower(e)
	}
	return &Watcher{
		watcher:    w,
		runner:     runner,
		extensions: exts,
		debounce:   debounce,
		logger:     logger,
		pending:    map[string]time.Time{},
	}, nil
}

// Watch monitors dir until ctx is done or Stop is called
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.logger.Info().Str("dir", dir).Msg("watching for documents")

	interval := w.debounce / 2
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.isWatchedExtension(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

// flush uploads the files that have been quiet for the debounce interval.
// If another batch is running they stay queued for the next tick.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	ready := w.ready(now)
	if len(ready) == 0 {
		return
	}

	files := make([]upload.File, len(ready))
	for i, p := range ready {
		files[i] = upload.FromPath(p)
	}

	_, err := w.runner.Run(ctx, files)
	if errors.Is(err, upload.ErrBatchInProgress) {
		w.logger.Debug().Int("files", len(ready)).Msg("batch in progress, keeping files queued")
		return
	}
	if err != nil {
		w.logger.Warn().Err(err).Msg("watched upload failed")
	}

	w.mu.Lock()
	for _, p := range ready {
		// a newer write restarts the quiet period
		if t, ok := w.pending[p]; ok && !t.After(now) {
			delete(w.pending, p)
		}
	}
	w.mu.Unlock()
}

// ready returns pending paths quiet since now-debounce, sorted
func (w *Watcher) ready(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []string
	for p, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// isWatchedExtension checks if the file has a watched extension
func (w *Watcher) isWatchedExtension(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
