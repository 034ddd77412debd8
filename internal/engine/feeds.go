package engine

import (
	"fmt"
	"time"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/logger"
)

const (
	retryInitial = 500 * time.Millisecond
	retryMax     = 30 * time.Second
)

// feedCoordinator keeps the aggregate current from the three live feeds.
type feedCoordinator struct {
	s       *session
	started bool
}

// Start opens the three subscriptions. Loop only; later calls are no-ops.
func (f *feedCoordinator) Start() {
	if f.started {
		return
	}
	f.started = true

	go f.open(datasource.Bookings, f.onBookings)
	go f.open(datasource.Conversations, f.onConversations)
	go f.open(datasource.Clients, f.onClients)
}

// open subscribes to c, retrying with backoff until it succeeds or the
// session ends. Deliveries are posted to the session loop.
func (f *feedCoordinator) open(c datasource.Collection, handle func([]datasource.Record)) {
	component := "feed:" + string(c)
	onChange := func(records []datasource.Record, err error) {
		if err != nil {
			f.s.post(func() { f.s.fail(component, err) })
			return
		}
		f.s.post(func() { handle(records) })
	}

	delay := retryInitial
	for {
		unsub, err := f.s.src.Subscribe(f.s.ctx, c, nil, onChange)
		if err == nil {
			f.s.track(unsub)
			logger.Debug("subscription opened", "session", f.s.id, "collection", c)
			return
		}
		if f.s.ctx.Err() != nil {
			return
		}
		err = fmt.Errorf("subscribe %s: %w", c, err)
		f.s.post(func() { f.s.fail(component, err) })

		if !f.wait(delay) {
			return
		}
		delay = min(delay*2, retryMax)
	}
}

func (f *feedCoordinator) wait(d time.Duration) bool {
	elapsed := make(chan struct{})
	t := f.s.opts.Clock.AfterFunc(d, func() { close(elapsed) })
	select {
	case <-f.s.ctx.Done():
		t.Stop()
		return false
	case <-elapsed:
		return true
	}
}

// onBookings doubles as the feed-side day detector: a delivery observed on a
// later day moves the window and re-arms the midnight timer.
func (f *feedCoordinator) onBookings(records []datasource.Record) {
	from, today := f.s.window.Current(), f.s.today()
	if f.s.window.AdoptIfChanged(today) {
		f.s.midnight.Arm()
		f.s.dayChanged(from, today, "feed")
	}
	f.s.merge(bookingPatch(records, f.s.window.Current(), f.s.opts.Location))
}

func (f *feedCoordinator) onConversations(records []datasource.Record) {
	f.s.merge(conversationPatch(records))
}

func (f *feedCoordinator) onClients(records []datasource.Record) {
	f.s.merge(clientPatch(records))
}
