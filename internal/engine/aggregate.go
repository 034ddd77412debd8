package engine

import (
	"sync"
	"time"

	"github.com/j-veylop/opsdash-tui/internal/models"
)

// AggregateState is the shared metrics record. The session loop is the only
// writer; the lock exists for readers outside it.
type AggregateState struct {
	mu      sync.RWMutex
	metrics models.Metrics
}

// Merge overwrites the fields present in p, stamps LastUpdate and returns the
// result.
func (a *AggregateState) Merge(p models.Patch, now time.Time) models.Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metrics = a.metrics.Apply(p, now)
	return a.metrics
}

// Publish replaces every metric with m.
func (a *AggregateState) Publish(m models.Metrics, now time.Time) models.Metrics {
	return a.Merge(models.Patch{
		TodaysBookings:  &m.TodaysBookings,
		PendingMessages: &m.PendingMessages,
		ActiveCustomers: &m.ActiveCustomers,
		RevenueToday:    &m.RevenueToday,
	}, now)
}

// Metrics returns a copy of the current values.
func (a *AggregateState) Metrics() models.Metrics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.metrics
}
