package db

import (
	"sync"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
)

// broadcaster wakes the pollers of a collection after a local write, so
// writes made through this process show up without waiting for a tick.
// Writes by other processes are still picked up by polling.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[datasource.Collection]map[chan struct{}]struct{}
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[datasource.Collection]map[chan struct{}]struct{})}
}

// subscribe returns a wake channel for c and the func that releases it.
func (b *broadcaster) subscribe(c datasource.Collection) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ch, func() {}
	}
	if b.subs[c] == nil {
		b.subs[c] = make(map[chan struct{}]struct{})
	}
	b.subs[c][ch] = struct{}{}

	return ch, func() {
		b.mu.Lock()
		delete(b.subs[c], ch)
		b.mu.Unlock()
	}
}

// notify never blocks; a pending wake already covers this write.
func (b *broadcaster) notify(c datasource.Collection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[c] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	b.closed = true
	b.subs = make(map[datasource.Collection]map[chan struct{}]struct{})
	b.mu.Unlock()
}
