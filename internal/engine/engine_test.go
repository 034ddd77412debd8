package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/datasource/memory"
	"github.com/j-veylop/opsdash-tui/internal/models"
	"github.com/j-veylop/opsdash-tui/internal/notify"
)

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)

type recorder struct {
	mu       sync.Mutex
	updates  int
	days     []string
	errs     []string
	notes    []notify.Notification
	sessions []string
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnUpdate: func(View) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.updates++
		},
		OnDayChange: func(from, to, source string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.days = append(r.days, fmt.Sprintf("%s->%s:%s", from, to, source))
		},
		OnError: func(component string, err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, component+": "+err.Error())
		},
		OnSession: func(id string, active bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.sessions = append(r.sessions, fmt.Sprintf("%s:%t", id, active))
		},
	}
}

func (r *recorder) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) snapshot() recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recorder{
		updates:  r.updates,
		days:     append([]string(nil), r.days...),
		errs:     append([]string(nil), r.errs...),
		notes:    append([]notify.Notification(nil), r.notes...),
		sessions: append([]string(nil), r.sessions...),
	}
}

func (r *recorder) hasError(component string) bool {
	for _, e := range r.snapshot().errs {
		if strings.HasPrefix(e, component+":") {
			return true
		}
	}
	return false
}

// spySource records subscriptions and can fail the first opens per collection.
type spySource struct {
	datasource.DataSource

	mu               sync.Mutex
	bookingSnapshots int
	handlers         map[datasource.Collection]datasource.ChangeFunc
	released         map[datasource.Collection]int
	failOpens        map[datasource.Collection]int
}

func newSpy(src datasource.DataSource) *spySource {
	return &spySource{
		DataSource: src,
		handlers:   make(map[datasource.Collection]datasource.ChangeFunc),
		released:   make(map[datasource.Collection]int),
		failOpens:  make(map[datasource.Collection]int),
	}
}

func (s *spySource) Snapshot(ctx context.Context, c datasource.Collection, f datasource.Filter) ([]datasource.Record, error) {
	if c == datasource.Bookings {
		s.mu.Lock()
		s.bookingSnapshots++
		s.mu.Unlock()
	}
	return s.DataSource.Snapshot(ctx, c, f)
}

func (s *spySource) Subscribe(
	ctx context.Context, c datasource.Collection, f datasource.Filter, fn datasource.ChangeFunc,
) (datasource.Unsubscribe, error) {
	s.mu.Lock()
	if s.failOpens[c] > 0 {
		s.failOpens[c]--
		s.mu.Unlock()
		return nil, errors.New("listener refused")
	}
	s.handlers[c] = fn
	s.mu.Unlock()

	unsub, err := s.DataSource.Subscribe(ctx, c, f, fn)
	if err != nil {
		return nil, err
	}
	return func() {
		s.mu.Lock()
		s.released[c]++
		s.mu.Unlock()
		unsub()
	}, nil
}

func (s *spySource) handler(c datasource.Collection) datasource.ChangeFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[c]
}

type harness struct {
	clock *fakeClock
	store *memory.Store
	spy   *spySource
	eng   *Engine
	rec   *recorder
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()

	h := &harness{
		clock: newFakeClock(now),
		store: memory.New(),
		rec:   &recorder{},
	}
	h.store.Set(datasource.Bookings, scenarioBookings())
	h.store.Set(datasource.Conversations, scenarioConversations())
	h.store.Set(datasource.Clients, []datasource.Record{{"id": "c1"}, {"id": "c2"}})
	h.spy = newSpy(h.store)

	h.eng = New(h.spy, Options{
		Clock:       h.clock,
		Location:    time.UTC,
		SettleDelay: DefaultSettleDelay,
		Notifier:    h.rec,
		Hooks:       h.rec.hooks(),
	})
	t.Cleanup(func() { _ = h.eng.Close() })
	return h
}

// authorize raises the session signal and lets the settle delay pass.
func (h *harness) authorize(t *testing.T) {
	t.Helper()
	require.NoError(t, h.eng.SetAuthorized(true))
	require.Eventually(t, func() bool { return h.clock.Pending() == 1 }, waitFor, tick, "settle timer not armed")
	h.clock.Advance(DefaultSettleDelay)
}

// live waits until validation succeeded and all three feeds are attached.
func (h *harness) live(t *testing.T) {
	t.Helper()
	h.authorize(t)
	require.Eventually(t, func() bool {
		if !h.eng.View().Validated || h.clock.Pending() != 1 {
			return false
		}
		for _, c := range datasource.Collections {
			if h.store.SubscriberCount(c) != 1 {
				return false
			}
		}
		return true
	}, waitFor, tick, "session never went live")
	h.drain(t)
}

// drain waits until everything queued on the session loop so far has run.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	h.eng.mu.Lock()
	s := h.eng.session
	h.eng.mu.Unlock()
	require.NotNil(t, s)

	done := make(chan struct{})
	require.True(t, s.post(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("session loop stalled")
	}
}

func (h *harness) waitMetrics(t *testing.T, date string, bookings int, revenue int64) View {
	t.Helper()
	var v View
	require.Eventually(t, func() bool {
		v = h.eng.View()
		return v.CurrentDate == date && v.TodaysBookings == bookings && v.RevenueToday.Equal(decimal.NewFromInt(revenue))
	}, waitFor, tick, "want %s bookings=%d revenue=%d", date, bookings, revenue)
	return v
}

func jan1(hour, minute, sec int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, sec, 0, time.UTC)
}

func TestEngine_ValidationPublishesMetrics(t *testing.T) {
	h := newHarness(t, jan1(10, 0, 0))

	require.NoError(t, h.eng.SetAuthorized(true))
	for _, c := range datasource.Collections {
		assert.Zero(t, h.store.SubscriberCount(c), "feeds open before validation")
	}

	h.live(t)
	v := h.waitMetrics(t, "2024-01-01", 2, 500)
	assert.Equal(t, 8, v.PendingMessages)
	assert.Equal(t, 2, v.ActiveCustomers)
	assert.True(t, v.Active)
	assert.NotEmpty(t, v.SessionID)
	assert.False(t, v.LastUpdate.IsZero())

	rec := h.rec.snapshot()
	require.Len(t, rec.notes, 1)
	assert.Equal(t, notify.LevelSuccess, rec.notes[0].Level)
	assert.Equal(t,
		"Validated: bookings today: 2, pending messages: 8, active customers: 2, revenue today: 500.00",
		rec.notes[0].Message)
	assert.Equal(t, []string{v.SessionID + ":true"}, rec.sessions)
}

func TestEngine_ValidationMatchesFeedOnTimestampDates(t *testing.T) {
	h := newHarness(t, jan1(10, 0, 0))
	h.store.Set(datasource.Bookings, []datasource.Record{
		{"id": "b1", "date": "2024-01-01T09:30:00Z", "status": "completed", "revenue": 500},
		{"id": "b2", "date": jan1(8, 0, 0), "status": "pending", "revenue": 300},
		{"id": "b3", "date": "2024-01-02T00:10:00Z", "status": "completed", "revenue": 50},
	})

	h.live(t)
	rec := h.rec.snapshot()
	require.Len(t, rec.notes, 1)
	assert.Equal(t, notify.LevelSuccess, rec.notes[0].Level)
	assert.Contains(t, rec.notes[0].Message, "bookings today: 2,")
	assert.Contains(t, rec.notes[0].Message, "revenue today: 500.00")
	validated := h.eng.View().Metrics

	h.store.Touch(datasource.Bookings)
	h.drain(t)
	v := h.waitMetrics(t, "2024-01-01", 2, 500)
	assert.True(t, validated.Equal(v.Metrics), "validation %+v, feed %+v", validated, v.Metrics)
}

func TestEngine_FeedsMergeIndependently(t *testing.T) {
	h := newHarness(t, jan1(10, 0, 0))
	h.live(t)

	h.store.Add(datasource.Conversations, datasource.Record{"id": "v4", "unreadCount": 4})
	require.Eventually(t, func() bool { return h.eng.View().PendingMessages == 12 }, waitFor, tick)

	h.store.Add(datasource.Bookings, datasource.Record{"id": "b4", "date": "2024-01-01", "status": "completed", "price": "50"})
	v := h.waitMetrics(t, "2024-01-01", 3, 550)
	assert.Equal(t, 12, v.PendingMessages, "bookings merge clobbered conversations")
	assert.Equal(t, 2, v.ActiveCustomers)

	h.store.Set(datasource.Clients, nil)
	require.Eventually(t, func() bool { return h.eng.View().ActiveCustomers == 0 }, waitFor, tick)
	h.waitMetrics(t, "2024-01-01", 3, 550)

	// Duplicate snapshots converge to the same values.
	before := h.eng.View()
	h.store.Touch(datasource.Bookings)
	h.store.Touch(datasource.Conversations)
	h.drain(t)
	after := h.eng.View()
	assert.True(t, before.Metrics.Equal(after.Metrics))
	assert.False(t, after.LastUpdate.Before(before.LastUpdate))
}

func TestEngine_MidnightFire(t *testing.T) {
	h := newHarness(t, jan1(23, 0, 0))
	h.live(t)
	h.waitMetrics(t, "2024-01-01", 2, 500)

	h.clock.Advance(time.Hour)

	v := h.waitMetrics(t, "2024-01-02", 1, 200)
	assert.Equal(t, 8, v.PendingMessages)
	assert.Equal(t, []string{"2024-01-01->2024-01-02:timer"}, h.rec.snapshot().days)
	require.Eventually(t, func() bool { return h.clock.Pending() == 1 }, waitFor, tick, "not re-armed")

	// Self-arming continues to the following midnight.
	h.clock.Advance(24 * time.Hour)
	h.waitMetrics(t, "2024-01-03", 0, 0)
	assert.Len(t, h.rec.snapshot().days, 2)
}

func TestEngine_FeedDetectsDayChange(t *testing.T) {
	h := newHarness(t, jan1(23, 0, 0))
	h.live(t)

	h.clock.Set(time.Date(2024, 1, 2, 0, 0, 5, 0, time.UTC))
	h.store.Touch(datasource.Bookings)

	h.waitMetrics(t, "2024-01-02", 1, 200)
	h.drain(t)
	assert.Equal(t, []string{"2024-01-01->2024-01-02:feed"}, h.rec.snapshot().days)
	assert.Equal(t, 1, h.clock.Pending(), "stale midnight timer left pending")

	// The superseded timer is gone; the new one targets the next midnight.
	h.clock.Advance(0)
	h.drain(t)
	assert.Len(t, h.rec.snapshot().days, 1)

	h.clock.Advance(24*time.Hour - 5*time.Second)
	h.waitMetrics(t, "2024-01-03", 0, 0)
	assert.Equal(t, "2024-01-02->2024-01-03:timer", h.rec.snapshot().days[1])
}

func TestEngine_DayChangeOrderIndependence(t *testing.T) {
	midnight := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	feedFirst := newHarness(t, jan1(23, 0, 0))
	feedFirst.live(t)
	feedFirst.clock.Set(midnight)
	feedFirst.store.Touch(datasource.Bookings)
	feedFirst.waitMetrics(t, "2024-01-02", 1, 200)
	feedFirst.clock.Advance(0)
	feedFirst.drain(t)

	timerFirst := newHarness(t, jan1(23, 0, 0))
	timerFirst.live(t)
	timerFirst.clock.Advance(time.Hour)
	timerFirst.waitMetrics(t, "2024-01-02", 1, 200)
	timerFirst.store.Touch(datasource.Bookings)
	timerFirst.drain(t)

	a, b := feedFirst.eng.View(), timerFirst.eng.View()
	assert.True(t, a.Metrics.Equal(b.Metrics), "feed first %s, timer first %s", a.Summary(), b.Summary())
	assert.Equal(t, a.CurrentDate, b.CurrentDate)
	assert.Len(t, feedFirst.rec.snapshot().days, 1)
	assert.Len(t, timerFirst.rec.snapshot().days, 1)
}

func TestEngine_SingleTransitionRace(t *testing.T) {
	for i := range 10 {
		t.Run(fmt.Sprintf("run %d", i), func(t *testing.T) {
			h := newHarness(t, jan1(23, 59, 59))
			h.live(t)

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				h.clock.Advance(time.Second)
			}()
			go func() {
				defer wg.Done()
				h.store.Touch(datasource.Bookings)
			}()
			wg.Wait()

			h.waitMetrics(t, "2024-01-02", 1, 200)
			require.Eventually(t, func() bool { return h.clock.Pending() == 1 }, waitFor, tick)
			h.drain(t)
			assert.Len(t, h.rec.snapshot().days, 1, "boundary moved more than once")
			assert.Equal(t, 1, h.clock.Pending(), "duplicate midnight timer")
		})
	}
}

func TestEngine_LatchIdempotence(t *testing.T) {
	h := newHarness(t, jan1(10, 0, 0))

	for range 3 {
		require.NoError(t, h.eng.SetAuthorized(true))
	}
	h.live(t)

	for range 3 {
		require.NoError(t, h.eng.SetAuthorized(true))
	}
	h.drain(t)
	h.clock.Advance(DefaultSettleDelay)
	h.drain(t)

	h.spy.mu.Lock()
	snapshots := h.spy.bookingSnapshots
	h.spy.mu.Unlock()
	assert.Equal(t, 1, snapshots)
	assert.Len(t, h.rec.snapshot().notes, 1)
	assert.Equal(t, 1, h.clock.Pending())
	for _, c := range datasource.Collections {
		assert.Equal(t, 1, h.store.SubscriberCount(c), "feeds reopened on %s", c)
	}
}

func TestEngine_ValidationFailure(t *testing.T) {
	h := newHarness(t, jan1(10, 0, 0))
	h.store.FailSnapshots(errors.New("offline"))

	h.authorize(t)
	require.Eventually(t, func() bool { return len(h.rec.snapshot().notes) == 1 }, waitFor, tick)
	h.drain(t)

	n := h.rec.snapshot().notes[0]
	assert.Equal(t, notify.LevelFailure, n.Level)
	assert.Contains(t, n.Message, "offline")
	assert.True(t, h.rec.hasError("validation"))

	v := h.eng.View()
	assert.False(t, v.Validated)
	assert.True(t, v.Metrics.Equal(models.Metrics{}))
	assert.Zero(t, h.clock.Pending(), "no automatic retry")
	for _, c := range datasource.Collections {
		assert.Zero(t, h.store.SubscriberCount(c))
	}

	// Re-authorization retries within the same session.
	h.store.FailSnapshots(nil)
	h.live(t)
	h.waitMetrics(t, "2024-01-01", 2, 500)
	assert.Equal(t, v.SessionID, h.eng.View().SessionID)
}

func TestEngine_Teardown(t *testing.T) {
	h := newHarness(t, jan1(10, 0, 0))
	h.live(t)
	id := h.eng.View().SessionID
	late := h.spy.handler(datasource.Bookings)
	require.NotNil(t, late)

	require.NoError(t, h.eng.SetAuthorized(false))

	for _, c := range datasource.Collections {
		assert.Zero(t, h.store.SubscriberCount(c))
		h.spy.mu.Lock()
		assert.Equal(t, 1, h.spy.released[c], "%s released", c)
		h.spy.mu.Unlock()
	}
	assert.Zero(t, h.clock.Pending(), "midnight timer survived teardown")

	updates := h.rec.snapshot().updates
	late([]datasource.Record{{"date": "2024-01-01", "status": "completed", "revenue": 1}}, nil)
	h.store.Add(datasource.Bookings, datasource.Record{"date": "2024-01-01"})
	h.clock.Advance(48 * time.Hour)

	assert.Equal(t, updates, h.rec.snapshot().updates, "late event applied")
	v := h.eng.View()
	assert.False(t, v.Active)
	assert.True(t, v.Metrics.Equal(models.Metrics{}))
	assert.Equal(t, []string{id + ":true", id + ":false"}, h.rec.snapshot().sessions)

	require.NoError(t, h.eng.SetAuthorized(false))
	h.spy.mu.Lock()
	assert.Equal(t, 1, h.spy.released[datasource.Bookings])
	h.spy.mu.Unlock()
}

func TestEngine_NewSessionStartsFresh(t *testing.T) {
	h := newHarness(t, jan1(10, 0, 0))
	h.live(t)
	first := h.eng.View().SessionID

	require.NoError(t, h.eng.SetAuthorized(false))
	h.live(t)

	v := h.waitMetrics(t, "2024-01-01", 2, 500)
	assert.NotEqual(t, first, v.SessionID)
	assert.Len(t, h.rec.snapshot().notes, 2)
}

func TestEngine_FeedErrorRetainsState(t *testing.T) {
	h := newHarness(t, jan1(10, 0, 0))
	h.live(t)
	before := h.waitMetrics(t, "2024-01-01", 2, 500)

	h.spy.handler(datasource.Bookings)(nil, errors.New("stream reset"))
	require.Eventually(t, func() bool { return h.rec.hasError("feed:bookings") }, waitFor, tick)

	assert.True(t, before.Metrics.Equal(h.eng.View().Metrics))

	h.store.Add(datasource.Bookings, datasource.Record{"date": "2024-01-01", "status": "completed", "revenue": 1})
	h.waitMetrics(t, "2024-01-01", 3, 501)
}

func TestEngine_SubscribeRetry(t *testing.T) {
	h := newHarness(t, jan1(10, 0, 0))
	h.spy.mu.Lock()
	h.spy.failOpens[datasource.Clients] = 1
	h.spy.mu.Unlock()

	h.authorize(t)
	require.Eventually(t, func() bool { return h.rec.hasError("feed:clients") }, waitFor, tick)
	require.Eventually(t, func() bool { return h.clock.Pending() == 2 }, waitFor, tick, "backoff not scheduled")
	assert.Zero(t, h.store.SubscriberCount(datasource.Clients))

	h.clock.Advance(retryInitial)
	require.Eventually(t, func() bool { return h.store.SubscriberCount(datasource.Clients) == 1 }, waitFor, tick)

	h.store.Add(datasource.Clients, datasource.Record{"id": "c3"})
	require.Eventually(t, func() bool { return h.eng.View().ActiveCustomers == 3 }, waitFor, tick)
}

func TestEngine_MidnightRefetchFailure(t *testing.T) {
	h := newHarness(t, jan1(23, 0, 0))
	h.live(t)

	h.store.FailSnapshots(errors.New("offline"))
	h.clock.Advance(time.Hour)
	require.Eventually(t, func() bool { return h.rec.hasError("midnight") }, waitFor, tick)

	v := h.eng.View()
	assert.Equal(t, "2024-01-02", v.CurrentDate)
	assert.Equal(t, 2, v.TodaysBookings, "state kept until the next good event")

	h.store.FailSnapshots(nil)
	h.store.Touch(datasource.Bookings)
	h.waitMetrics(t, "2024-01-02", 1, 200)
}

func TestEngine_Closed(t *testing.T) {
	h := newHarness(t, jan1(10, 0, 0))
	h.live(t)

	require.NoError(t, h.eng.Close())
	require.NoError(t, h.eng.Close())
	assert.ErrorIs(t, h.eng.SetAuthorized(true), ErrClosed)
	assert.Zero(t, h.store.SubscriberCount(datasource.Bookings))
	assert.False(t, h.eng.View().Active)
}

func TestFetchMetrics(t *testing.T) {
	store := memory.New()
	store.Set(datasource.Bookings, scenarioBookings())
	store.Set(datasource.Conversations, scenarioConversations())

	m, err := FetchMetrics(context.Background(), store, "2024-01-02", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, m.TodaysBookings)
	assert.True(t, m.RevenueToday.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 8, m.PendingMessages)
	assert.Zero(t, m.ActiveCustomers)

	store.FailSnapshots(errors.New("offline"))
	_, err = FetchMetrics(context.Background(), store, "2024-01-02", time.UTC)
	assert.ErrorContains(t, err, "offline")
}

func TestFetchMetrics_NormalizesDates(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	store := memory.New()
	store.Set(datasource.Bookings, []datasource.Record{
		{"id": "b1", "date": "2024-01-01T09:30:00Z", "status": "completed", "revenue": 500},
		{"id": "b2", "date": jan1(8, 0, 0), "status": "pending"},
		{"id": "b3", "date": jan1(20, 0, 0), "status": "completed", "price": 70},
	})

	m, err := FetchMetrics(context.Background(), store, "2024-01-01", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 3, m.TodaysBookings)
	assert.True(t, m.RevenueToday.Equal(decimal.NewFromInt(570)), "revenue %s", m.RevenueToday)

	// time.Time dates land on the day of the engine's location.
	m, err = FetchMetrics(context.Background(), store, "2024-01-02", tokyo)
	require.NoError(t, err)
	assert.Equal(t, 1, m.TodaysBookings)
	assert.True(t, m.RevenueToday.Equal(decimal.NewFromInt(70)), "revenue %s", m.RevenueToday)

	count, revenue := BookingTotals(models.BookingsFromRecords(mustSnapshot(t, store), tokyo), "2024-01-02")
	assert.Equal(t, m.TodaysBookings, count)
	assert.True(t, m.RevenueToday.Equal(revenue))
}

func mustSnapshot(t *testing.T, src datasource.DataSource) []datasource.Record {
	t.Helper()
	records, err := src.Snapshot(context.Background(), datasource.Bookings, nil)
	require.NoError(t, err)
	return records
}
