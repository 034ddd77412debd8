package engine

import (
	"fmt"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
)

// midnightScheduler keeps exactly one timer pending for the next local
// midnight. Fires from superseded timers are dropped by generation.
type midnightScheduler struct {
	s     *session
	timer Timer
	gen   uint64
}

// Arm cancels any pending timer and schedules a new one. Loop only.
func (m *midnightScheduler) Arm() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.gen++
	gen := m.gen
	d := UntilNextMidnight(m.s.now(), m.s.opts.Location)
	m.timer = m.s.opts.Clock.AfterFunc(d, func() {
		m.s.post(func() { m.fire(gen) })
	})
}

func (m *midnightScheduler) fire(gen uint64) {
	if gen != m.gen {
		return
	}
	m.timer = nil

	from, today := m.s.window.Current(), m.s.today()
	if !m.s.window.Advance(today) {
		// Fired early, or the feed already moved the window.
		m.Arm()
		return
	}
	m.s.dayChanged(from, today, "timer")
	m.Arm()

	go func() {
		records, err := m.s.src.Snapshot(m.s.ctx, datasource.Bookings, nil)
		m.s.post(func() {
			if err != nil {
				m.s.fail("midnight", fmt.Errorf("refetch bookings: %w", err))
				return
			}
			m.s.merge(bookingPatch(records, m.s.window.Current(), m.s.opts.Location))
		})
	}()
}

// Stop cancels the pending timer.
func (m *midnightScheduler) Stop() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
}
