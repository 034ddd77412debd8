package engine

import "sync"

// DayWindow holds the calendar day the daily metrics are filtered by. Dates
// are ISO days, so string order is calendar order.
type DayWindow struct {
	mu      sync.RWMutex
	current string
}

// NewDayWindow starts the window at today.
func NewDayWindow(today string) *DayWindow {
	return &DayWindow{current: today}
}

// Current returns the day in effect.
func (w *DayWindow) Current() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// AdoptIfChanged moves the window to candidate when it is a later day.
// Used by the bookings feed.
func (w *DayWindow) AdoptIfChanged(candidate string) bool {
	return w.move(candidate)
}

// Advance moves the window to newDate when it is a later day. Used by the
// midnight timer.
func (w *DayWindow) Advance(newDate string) bool {
	return w.move(newDate)
}

// move never regresses the window and is a no-op for the current day.
func (w *DayWindow) move(day string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if day == "" || day <= w.current {
		return false
	}
	w.current = day
	return true
}
