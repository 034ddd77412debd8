// Package memory provides an in-process DataSource with push notifications.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
)

type subscriber struct {
	id     int
	filter datasource.Filter
	fn     datasource.ChangeFunc
}

// Store keeps collections in memory and notifies subscribers synchronously,
// in write order, from the writing goroutine.
type Store struct {
	mu          sync.Mutex
	notifyMu    sync.Mutex
	collections map[datasource.Collection][]datasource.Record
	subscribers map[datasource.Collection][]*subscriber
	nextID      int
	snapshotErr error
}

var (
	_ datasource.DataSource = (*Store)(nil)
	_ datasource.Writer     = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: make(map[datasource.Collection][]datasource.Record),
		subscribers: make(map[datasource.Collection][]*subscriber),
	}
}

// Snapshot implements datasource.DataSource.
func (s *Store) Snapshot(ctx context.Context, c datasource.Collection, f datasource.Filter) ([]datasource.Record, error) {
	if err := datasource.Validate(c); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshotErr != nil {
		return nil, s.snapshotErr
	}
	return f.Apply(cloneAll(s.collections[c])), nil
}

// Subscribe implements datasource.DataSource.
func (s *Store) Subscribe(
	ctx context.Context, c datasource.Collection, f datasource.Filter, fn datasource.ChangeFunc,
) (datasource.Unsubscribe, error) {
	if err := datasource.Validate(c); err != nil {
		return nil, err
	}

	s.notifyMu.Lock()
	s.mu.Lock()
	s.nextID++
	sub := &subscriber{id: s.nextID, filter: f, fn: fn}
	s.subscribers[c] = append(s.subscribers[c], sub)
	initial := f.Apply(cloneAll(s.collections[c]))
	s.mu.Unlock()

	fn(initial, nil)
	s.notifyMu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { s.remove(c, sub.id) })
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
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

// FailSnapshots makes every Snapshot return err until called with nil.
func (s *Store) FailSnapshots(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotErr = err
}

// Set replaces the whole collection and notifies subscribers.
func (s *Store) Set(c datasource.Collection, records []datasource.Record) {
	s.write(c, func([]datasource.Record) []datasource.Record {
		return cloneAll(records)
	})
}

// Replace implements datasource.Writer.
func (s *Store) Replace(ctx context.Context, c datasource.Collection, records []datasource.Record) error {
	if err := datasource.Validate(c); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Set(c, records)
	return nil
}

// Add appends records and notifies subscribers.
func (s *Store) Add(c datasource.Collection, records ...datasource.Record) {
	s.write(c, func(cur []datasource.Record) []datasource.Record {
		return append(cur, cloneAll(records)...)
	})
}

// Touch re-delivers the current set without changing it, as a duplicate
// snapshot would.
func (s *Store) Touch(c datasource.Collection) {
	s.write(c, func(cur []datasource.Record) []datasource.Record { return cur })
}

// SubscriberCount returns the number of open subscriptions on c.
func (s *Store) SubscriberCount(c datasource.Collection) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers[c])
}

func (s *Store) write(c datasource.Collection, mutate func([]datasource.Record) []datasource.Record) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.collections[c] = mutate(s.collections[c])
	current := s.collections[c]
	subs := make([]*subscriber, len(s.subscribers[c]))
	copy(subs, s.subscribers[c])
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(sub.filter.Apply(cloneAll(current)), nil)
	}
}

// Close implements datasource.DataSource.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = make(map[datasource.Collection][]*subscriber)
	return nil
}

func cloneAll(rs []datasource.Record) []datasource.Record {
	out := make([]datasource.Record, len(rs))
	for i, r := range rs {
		out[i] = maps.Clone(r)
	}
	return out
}
