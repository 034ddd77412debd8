// Package notify delivers human-readable, fire-and-forget notifications.
package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/j-veylop/opsdash-tui/internal/logger"
	"github.com/j-veylop/opsdash-tui/internal/models"
)

// Level classifies a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelFailure
)

// String returns the string representation of a Level.
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelFailure:
		return "failure"
	default:
		return "info"
	}
}

// Notification is one message for the user.
type Notification struct {
	Level   Level
	Title   string
	Message string
}

// Notifier accepts notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

// Notify implements Notifier.
func (f Func) Notify(n Notification) { f(n) }

// Multi fans a notification out to every notifier.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(n Notification) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(n)
		}
	}
}

// Log writes notifications to the application log.
type Log struct{}

// Notify implements Notifier.
func (Log) Notify(n Notification) {
	if n.Level == LevelFailure {
		logger.Warn(n.Title, "message", n.Message)
		return
	}
	logger.Info(n.Title, "message", n.Message)
}

// Desktop raises an OS notification through beeep. Delivery happens off the
// caller's goroutine; errors are logged.
type Desktop struct {
	AppName string
}

// Notify implements Notifier.
func (d Desktop) Notify(n Notification) {
	title := n.Title
	if d.AppName != "" {
		title = d.AppName + ": " + title
	}

	go func() {
		var err error
		if n.Level == LevelFailure {
			err = beeep.Alert(title, n.Message, "")
		} else {
			err = beeep.Notify(title, n.Message, "")
		}
		if err != nil {
			logger.Debug("desktop notification failed", "error", err)
		}
	}()
}

// Validated builds the success message carrying the four computed values.
func Validated(m models.Metrics) Notification {
	return Notification{
		Level:   LevelSuccess,
		Title:   "Metrics validated",
		Message: fmt.Sprintf("Validated: %s", m.Summary()),
	}
}

// ValidationFailed builds the failure message carrying the error description.
func ValidationFailed(err error) Notification {
	return Notification{
		Level:   LevelFailure,
		Title:   "Metrics validation failed",
		Message: fmt.Sprintf("Validation error: %v", err),
	}
}
