// Package auth provides the "authorized session active" signal.
package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/opsdash-tui/internal/logger"
)

// Signal reports authorization changes.
type Signal interface {
	// Run calls fn with the current state, then again on every change, until
	// ctx ends.
	Run(ctx context.Context, fn func(authorized bool)) error
}

// Static is a fixed signal.
type Static bool

// Run implements Signal.
func (s Static) Run(ctx context.Context, fn func(bool)) error {
	fn(bool(s))
	<-ctx.Done()
	return nil
}

// FileSignal is authorized while its file exists and is not blank, as a
// session token file written by a login tool would be.
type FileSignal struct {
	Path     string
	Debounce time.Duration
}

// NewFileSignal watches path.
func NewFileSignal(path string) *FileSignal {
	return &FileSignal{Path: path, Debounce: 100 * time.Millisecond}
}

// Authorized reads the file once.
func (f *FileSignal) Authorized() bool {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return false
	}
	return len(bytes.TrimSpace(data)) > 0
}

// Run implements Signal. The parent directory is watched so the file may be
// created and removed freely.
func (f *FileSignal) Run(ctx context.Context, fn func(bool)) error {
	if f.Path == "" {
		return errors.New("session file path is empty")
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	current := f.Authorized()
	fn(current)

	debounce := f.Debounce
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(f.Path) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("session file watcher error", "path", f.Path, "error", err)

		case <-timer.C:
			if next := f.Authorized(); next != current {
				current = next
				logger.Info("session signal changed", "authorized", current)
				fn(current)
			}

		case <-ctx.Done():
			return nil
		}
	}
}
