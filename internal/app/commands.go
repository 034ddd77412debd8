package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/opsdash-tui/internal/services"
)

// DefaultTickInterval paces housekeeping: toast expiry and "updated ago" labels.
const DefaultTickInterval = 2 * time.Second

// Toast lifetimes. Errors linger so they can be read.
const (
	QuickNotificationDuration   = 3 * time.Second
	DefaultNotificationDuration = 5 * time.Second
	LongNotificationDuration    = 10 * time.Second
)

var notificationDurations = map[NotificationType]time.Duration{
	NotificationSuccess: DefaultNotificationDuration,
	NotificationError:   LongNotificationDuration,
	NotificationWarning: DefaultNotificationDuration,
	NotificationInfo:    QuickNotificationDuration,
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// loadViewCmd reads the current aggregate and trend from the manager.
func loadViewCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return ViewLoadedMsg{View: mgr.View(), Trend: mgr.Trend()}
	}
}

// subscribeToServicesCmd registers the subscription immediately and hands the
// channel to Update.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd blocks for the next event. A closed channel ends
// the loop by returning nil.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

// notifyCmd raises a toast with the lifetime of its type.
func notifyCmd(t NotificationType, message string) tea.Cmd {
	d := notificationDurations[t]
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

// Commands exposes the command constructors to tabs.
type Commands struct {
	manager *services.Manager
}

// NewCommands binds the constructors to mgr, which may be nil.
func NewCommands(mgr *services.Manager) *Commands {
	return &Commands{manager: mgr}
}

// Tick fires a TickMsg after interval.
func (c *Commands) Tick(interval time.Duration) tea.Cmd {
	return tickCmd(interval)
}

// DefaultTick fires a TickMsg after DefaultTickInterval.
func (c *Commands) DefaultTick() tea.Cmd {
	return defaultTickCmd()
}

// LoadView reads the current view. It is nil without a manager.
func (c *Commands) LoadView() tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return loadViewCmd(c.manager)
}

// Refresh asks the root model to reload the view, so tabs can request a read
// without holding the manager.
func (c *Commands) Refresh() tea.Cmd {
	return func() tea.Msg { return RefreshMsg{} }
}

// Notify raises a toast of type t.
func (c *Commands) Notify(t NotificationType, message string) tea.Cmd {
	return notifyCmd(t, message)
}

// NotifySuccess raises a success toast.
func (c *Commands) NotifySuccess(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message)
}

// NotifyError raises an error toast.
func (c *Commands) NotifyError(message string) tea.Cmd {
	return notifyCmd(NotificationError, message)
}

// NotifyWarning raises a warning toast.
func (c *Commands) NotifyWarning(message string) tea.Cmd {
	return notifyCmd(NotificationWarning, message)
}

// NotifyInfo raises an info toast.
func (c *Commands) NotifyInfo(message string) tea.Cmd {
	return notifyCmd(NotificationInfo, message)
}

// ClearNotification removes notification id after delay.
func (c *Commands) ClearNotification(id string, delay time.Duration) tea.Cmd {
	return clearNotificationCmd(id, delay)
}
