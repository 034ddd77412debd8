// Package datasource defines the record-collection capability the engine
// reads from: one-shot snapshots and full-snapshot change subscriptions.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Collection names a record collection.
type Collection string

const (
	Bookings      Collection = "bookings"
	Conversations Collection = "conversations"
	Clients       Collection = "clients"
)

// Collections lists every collection the dashboard reads.
var Collections = []Collection{Bookings, Conversations, Clients}

// ErrUnknownCollection is returned for collections a backend does not serve.
var ErrUnknownCollection = errors.New("unknown collection")

// Record is a raw document as decoded by the backend.
type Record map[string]any

// Filter is a set of field equality conditions. A nil Filter matches everything.
type Filter map[string]any

// Eq builds a single-field equality filter.
func Eq(field string, value any) Filter {
	return Filter{field: value}
}

// Matches reports whether r satisfies every condition in f.
func (f Filter) Matches(r Record) bool {
	for field, want := range f {
		got, ok := r[field]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// Apply returns the records of rs matching f, preserving order.
func (f Filter) Apply(rs []Record) []Record {
	if len(f) == 0 {
		return rs
	}
	out := make([]Record, 0, len(rs))
	for _, r := range rs {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// ChangeFunc receives the full current set of matching records on every
// change. A non-nil err reports a broken stream; records is nil in that case.
type ChangeFunc func(records []Record, err error)

// Unsubscribe releases a subscription. Calling it more than once is safe.
type Unsubscribe func()

// DataSource is implemented by every backing store.
type DataSource interface {
	// Snapshot fetches the current matching records once.
	Snapshot(ctx context.Context, c Collection, f Filter) ([]Record, error)

	// Subscribe delivers the current set immediately and again after every
	// change, until the returned Unsubscribe is called or ctx ends.
	// Deliveries may repeat or coalesce.
	Subscribe(ctx context.Context, c Collection, f Filter, fn ChangeFunc) (Unsubscribe, error)

	// Close releases backend resources.
	Close() error
}

// Writer is implemented by backends that can be seeded with demo data.
type Writer interface {
	// Replace swaps the whole content of c for records.
	Replace(ctx context.Context, c Collection, records []Record) error
}

// Validate returns ErrUnknownCollection for collections outside Collections.
func Validate(c Collection) error {
	for _, known := range Collections {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, c)
}
