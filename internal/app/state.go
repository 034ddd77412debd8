// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/j-veylop/opsdash-tui/internal/engine"
	"github.com/j-veylop/opsdash-tui/internal/services"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	// maxNotifications bounds the toast stack.
	maxNotifications = 10
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// DayChange records the last rollover seen by the UI.
type DayChange struct {
	From   string
	To     string
	Source string
	At     time.Time
}

// State is the data shared between the root model and its tabs.
type State struct {
	mu sync.RWMutex

	view  engine.View
	trend []services.TrendPoint

	lastDayChange *DayChange
	errorCount    int
	lastError     string

	initialLoading bool

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty state waiting for its first view.
func NewState() *State {
	return &State{
		initialLoading: true,
		notifications:  make([]Notification, 0),
	}
}

// SetView stores the latest engine view and trend samples. A nil trend keeps
// the current samples.
func (s *State) SetView(v engine.View, trend []services.TrendPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view = v
	if trend != nil {
		s.trend = trend
	}
	s.initialLoading = false
}

// GetView returns the latest engine view.
func (s *State) GetView() engine.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// GetTrend returns a copy of the trend samples.
func (s *State) GetTrend() []services.TrendPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]services.TrendPoint(nil), s.trend...)
}

// SetSession records a session start or end. Ending a session resets the
// view and trend, since nothing from it carries over.
func (s *State) SetSession(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !active {
		current := s.view.CurrentDate
		s.view = engine.View{CurrentDate: current}
		s.trend = nil
		return
	}
	s.view.SessionID = id
	s.view.Active = true
}

// SetDayChange records a rollover and drops the samples of the previous day.
func (s *State) SetDayChange(from, to, source string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastDayChange = &DayChange{From: from, To: to, Source: source, At: at}
	s.view.CurrentDate = to
	s.trend = nil
}

// GetLastDayChange returns the last rollover or nil.
func (s *State) GetLastDayChange() *DayChange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastDayChange == nil {
		return nil
	}
	dc := *s.lastDayChange
	return &dc
}

// RecordError counts a component failure.
func (s *State) RecordError(component string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCount++
	s.lastError = fmt.Sprintf("[%s] %v", component, err)
}

// GetErrors returns the failure count and the last failure.
func (s *State) GetErrors() (int, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorCount, s.lastError
}

// IsInitialLoading returns true until the first view arrives.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialLoading
}

// IsValidating returns true while a session is active but not yet validated.
func (s *State) IsValidating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.Active && !s.view.Validated
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := fmt.Sprintf("%s-%d", time.Now().Format("20060102150405"), s.notificationSeq)

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// GetLastUpdated returns the time of the last merge into the aggregate.
func (s *State) GetLastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.LastUpdate
}

// TimeSinceUpdate returns the duration since the last update.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.view.LastUpdate.IsZero() {
		return 0
	}
	return time.Since(s.view.LastUpdate)
}
