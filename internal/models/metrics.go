package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Metrics is the rolling daily aggregate shown on the dashboard.
type Metrics struct {
	TodaysBookings  int
	PendingMessages int
	ActiveCustomers int
	RevenueToday    decimal.Decimal
	LastUpdate      time.Time
}

// Patch carries the fields one updater computed. Nil fields are left alone.
type Patch struct {
	TodaysBookings  *int
	PendingMessages *int
	ActiveCustomers *int
	RevenueToday    *decimal.Decimal
}

// Apply overwrites the fields present in p and stamps LastUpdate. The stamp
// never moves backwards.
func (m Metrics) Apply(p Patch, now time.Time) Metrics {
	if p.TodaysBookings != nil {
		m.TodaysBookings = *p.TodaysBookings
	}
	if p.PendingMessages != nil {
		m.PendingMessages = *p.PendingMessages
	}
	if p.ActiveCustomers != nil {
		m.ActiveCustomers = *p.ActiveCustomers
	}
	if p.RevenueToday != nil {
		m.RevenueToday = *p.RevenueToday
	}
	if now.After(m.LastUpdate) {
		m.LastUpdate = now
	}
	return m
}

// Equal compares the metric values, ignoring LastUpdate.
func (m Metrics) Equal(o Metrics) bool {
	return m.TodaysBookings == o.TodaysBookings &&
		m.PendingMessages == o.PendingMessages &&
		m.ActiveCustomers == o.ActiveCustomers &&
		m.RevenueToday.Equal(o.RevenueToday)
}

// Summary renders the four values on one line.
func (m Metrics) Summary() string {
	return fmt.Sprintf("bookings today: %d, pending messages: %d, active customers: %d, revenue today: %s",
		m.TodaysBookings, m.PendingMessages, m.ActiveCustomers, m.RevenueToday.StringFixed(2))
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}
