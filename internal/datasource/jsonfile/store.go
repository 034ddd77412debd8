// Package jsonfile serves collections from a directory of <collection>.json
// files and pushes changes made by other processes through fsnotify.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/logger"
)

const debounceInterval = 100 * time.Millisecond

type subscriber struct {
	id     int
	filter datasource.Filter
	fn     datasource.ChangeFunc
}

// Store is a file-backed DataSource.
type Store struct {
	dir string

	mu          sync.Mutex
	notifyMu    sync.Mutex
	subscribers map[datasource.Collection][]*subscriber
	debounce    map[datasource.Collection]*time.Timer
	nextID      int

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	stopOnce sync.Once
}

var (
	_ datasource.DataSource = (*Store)(nil)
	_ datasource.Writer     = (*Store)(nil)
)

// Open watches dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		dir:         dir,
		subscribers: make(map[datasource.Collection][]*subscriber),
		debounce:    make(map[datasource.Collection]*time.Timer),
		stopChan:    make(chan struct{}),
	}
	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}
	return s, nil
}

// Path returns the file backing c.
func (s *Store) Path(c datasource.Collection) string {
	return filepath.Join(s.dir, string(c)+".json")
}

// Snapshot implements datasource.DataSource. A missing file is an empty
// collection.
func (s *Store) Snapshot(ctx context.Context, c datasource.Collection, f datasource.Filter) ([]datasource.Record, error) {
	if err := datasource.Validate(c); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := s.load(c)
	if err != nil {
		return nil, err
	}
	return f.Apply(records), nil
}

// Subscribe implements datasource.DataSource.
func (s *Store) Subscribe(
	ctx context.Context, c datasource.Collection, f datasource.Filter, fn datasource.ChangeFunc,
) (datasource.Unsubscribe, error) {
	if err := datasource.Validate(c); err != nil {
		return nil, err
	}

	s.notifyMu.Lock()
	records, err := s.load(c)
	if err != nil {
		s.notifyMu.Unlock()
		return nil, err
	}
	s.mu.Lock()
	s.nextID++
	sub := &subscriber{id: s.nextID, filter: f, fn: fn}
	s.subscribers[c] = append(s.subscribers[c], sub)
	s.mu.Unlock()

	fn(f.Apply(records), nil)
	s.notifyMu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { s.remove(c, sub.id) })
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-s.stopChan:
		}
	}()

	return unsubscribe, nil
}

func (s *Store) remove(c datasource.Collection, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subscribers[c]
	for i, sub := range subs {
		if sub.id == id {
			s.subscribers[c] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Replace rewrites a collection file atomically. Subscribers are notified by
// the watcher like for any other writer.
func (s *Store) Replace(ctx context.Context, c datasource.Collection, records []datasource.Record) error {
	if err := datasource.Validate(c); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []datasource.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", c, err)
	}

	path := s.Path(c)
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Store) load(c datasource.Collection) ([]datasource.Record, error) {
	data, err := os.ReadFile(s.Path(c))
	if errors.Is(err, os.ErrNotExist) {
		return []datasource.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c, err)
	}
	return parseRecords(c, data)
}

// parseRecords accepts a bare array or an object holding the array under the
// collection name. Numbers stay json.Number so no precision is lost.
func parseRecords(c datasource.Collection, data []byte) ([]datasource.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []datasource.Record{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", c, err)
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := v[string(c)].([]any)
		if !ok {
			return nil, fmt.Errorf("failed to parse %s: no %q array", c, c)
		}
		items = list
	default:
		return nil, fmt.Errorf("failed to parse %s: invalid format", c)
	}

	records := make([]datasource.Record, 0, len(items))
	for _, item := range items {
		if doc, ok := item.(map[string]any); ok {
			records = append(records, doc)
		}
	}
	return records, nil
}

func (s *Store) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	if err := watcher.Add(s.dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

func (s *Store) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			c, ok := collectionOf(event.Name)
			if !ok {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.schedule(c)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error", "dir", s.dir, "error", err)

		case <-s.stopChan:
			return
		}
	}
}

func collectionOf(name string) (datasource.Collection, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".json") {
		return "", false
	}
	c := datasource.Collection(strings.TrimSuffix(base, ".json"))
	return c, datasource.Validate(c) == nil
}

// schedule debounces bursts of events on one file into a single reload.
func (s *Store) schedule(c datasource.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopChan:
		return
	default:
	}
	if t := s.debounce[c]; t != nil {
		t.Stop()
	}
	s.debounce[c] = time.AfterFunc(debounceInterval, func() {
		s.handleFileChange(c)
	})
}

func (s *Store) handleFileChange(c datasource.Collection) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	select {
	case <-s.stopChan:
		return
	default:
	}

	records, err := s.load(c)

	s.mu.Lock()
	subs := make([]*subscriber, len(s.subscribers[c]))
	copy(subs, s.subscribers[c])
	s.mu.Unlock()

	logger.Debug("collection file changed", "collection", c, "subscribers", len(subs), "error", err)
	for _, sub := range subs {
		if err != nil {
			sub.fn(nil, err)
			continue
		}
		sub.fn(sub.filter.Apply(records), nil)
	}
}

// SubscriberCount returns the number of open subscriptions on c.
func (s *Store) SubscriberCount(c datasource.Collection) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers[c])
}

// Close stops the watcher and drops every subscription.
func (s *Store) Close() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.stopChan)
		for _, t := range s.debounce {
			t.Stop()
		}
		s.subscribers = make(map[datasource.Collection][]*subscriber)
		s.mu.Unlock()

		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}
