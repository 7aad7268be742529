// Package fs provides filesystem cleanup operations.
package fs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RemoveWithDir deletes a downloaded file and, if now empty, its containing
// temporary directory. Cleanup is best-effort: failures are logged and
// swallowed, never surfaced to the request.
func RemoveWithDir(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to delete temp file", "path", path, "error", err)
		return
	}
	// os.Remove on a directory only succeeds when it is empty.
	dir := filepath.Dir(path)
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		slog.Debug("Temp dir not removed", "dir", dir, "error", err)
	}
}

// Sweeper periodically deletes stale entries under the temp root. It is a
// backstop for files orphaned by crashes mid-stream; the normal lifecycle
// deletes files as soon as they are streamed or their token expires.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration

	stopCh chan struct{}
}

// NewSweeper creates a Sweeper for the given directory.
func NewSweeper(dir string, maxAge, interval time.Duration) *Sweeper {
	return &Sweeper{
		dir:      dir,
		maxAge:   maxAge,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the sweep goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	if s.dir == "" || s.interval <= 0 {
		return
	}
	go s.run(ctx)
}

// Stop stops the sweep goroutine.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

func (s *Sweeper) run(ctx context.Context) {
	slog.Info("Starting temp sweeper",
		"dir", s.dir,
		"max_age", s.maxAge,
		"interval", s.interval,
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

// Sweep removes entries older than the max age. Each per-request directory is
// removed whole once its newest content has aged out.
func (s *Sweeper) Sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Temp sweep error", "dir", s.dir, "error", err)
		}
		return
	}

	threshold := time.Now().Add(-s.maxAge)
	deleted := 0

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(threshold) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("Failed to sweep temp entry", "path", path, "error", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		slog.Info("Temp sweep completed", "deleted", deleted, "max_age", s.maxAge)
	}
}
