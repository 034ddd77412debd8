package app

import (
	"time"

	"github.com/j-veylop/opsdash-tui/internal/engine"
	"github.com/j-veylop/opsdash-tui/internal/services"
)

// TickMsg is sent periodically to trigger state refresh.
type TickMsg struct {
	Time time.Time
}

// ViewLoadedMsg carries a snapshot read from the manager.
type ViewLoadedMsg struct {
	View  engine.View
	Trend []services.TrendPoint
}

// MetricsUpdatedMsg is forwarded to tabs after the state took a new view.
type MetricsUpdatedMsg struct {
	View engine.View
}

// DayChangedMsg is forwarded to tabs after a rollover.
type DayChangedMsg struct {
	From string
	To   string
}

// SessionChangedMsg is forwarded to tabs when a session starts or ends.
type SessionChangedMsg struct {
	ID     string
	Active bool
}

// RefreshMsg asks the root model for a fresh read of the current view.
type RefreshMsg struct{}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}
