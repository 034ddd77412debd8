package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/logger"
	"github.com/j-veylop/opsdash-tui/internal/models"
	"github.com/j-veylop/opsdash-tui/internal/notify"
)

// FetchMetrics takes one-shot snapshots of the three collections and computes
// every metric for day. Bookings are read unfiltered and matched on their
// normalized day, the same way the live feed counts them.
func FetchMetrics(ctx context.Context, src datasource.DataSource, day string, loc *time.Location) (models.Metrics, error) {
	var bookings, conversations, clients []datasource.Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		bookings, err = src.Snapshot(gctx, datasource.Bookings, nil)
		if err != nil {
			return fmt.Errorf("fetch bookings: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		conversations, err = src.Snapshot(gctx, datasource.Conversations, nil)
		if err != nil {
			return fmt.Errorf("fetch conversations: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		clients, err = src.Snapshot(gctx, datasource.Clients, nil)
		if err != nil {
			return fmt.Errorf("fetch clients: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.Metrics{}, err
	}

	count, revenue := BookingTotals(models.BookingsFromRecords(bookings, loc), day)
	return models.Metrics{
		TodaysBookings:  count,
		PendingMessages: PendingMessages(models.ConversationsFromRecords(conversations)),
		ActiveCustomers: len(clients),
		RevenueToday:    revenue,
	}, nil
}

// validationRunner computes the initial aggregate once per session.
type validationRunner struct {
	s       *session
	running bool
	settle  Timer
}

// Trigger schedules a validation run after the settle delay unless the latch
// is set or a run is already pending. Loop only.
func (v *validationRunner) Trigger() {
	if v.s.validated.Load() || v.running {
		return
	}
	v.running = true
	v.settle = v.s.opts.Clock.AfterFunc(v.s.opts.SettleDelay, func() {
		v.s.post(v.start)
	})
}

func (v *validationRunner) start() {
	v.settle = nil

	if from, today := v.s.window.Current(), v.s.today(); v.s.window.AdoptIfChanged(today) {
		v.s.dayChanged(from, today, "validation")
	}
	day := v.s.window.Current()
	logger.Debug("validating metrics", "session", v.s.id, "date", day)

	go func() {
		m, err := FetchMetrics(v.s.ctx, v.s.src, day, v.s.opts.Location)
		v.s.post(func() { v.finish(m, err) })
	}()
}

func (v *validationRunner) finish(m models.Metrics, err error) {
	v.running = false
	if v.s.validated.Load() {
		return
	}
	if err != nil {
		logger.Error("validation failed", "session", v.s.id, "error", err)
		v.s.notify(notify.ValidationFailed(err))
		if v.s.opts.Hooks.OnError != nil {
			v.s.opts.Hooks.OnError("validation", err)
		}
		return
	}

	published := v.s.state.Publish(m, v.s.now())
	v.s.validated.Store(true)
	logger.Info("metrics validated", "session", v.s.id, "date", v.s.window.Current(), "metrics", published.Summary())
	v.s.notify(notify.Validated(published))
	if v.s.opts.Hooks.OnUpdate != nil {
		v.s.opts.Hooks.OnUpdate(v.s.view())
	}

	v.s.feeds.Start()
	v.s.midnight.Arm()
}

// Stop cancels a pending settle delay.
func (v *validationRunner) Stop() {
	if v.settle != nil {
		v.settle.Stop()
		v.settle = nil
	}
}
