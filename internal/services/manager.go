// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/opsdash-tui/internal/auth"
	"github.com/j-veylop/opsdash-tui/internal/config"
	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/engine"
	"github.com/j-veylop/opsdash-tui/internal/logger"
	"github.com/j-veylop/opsdash-tui/internal/notify"
)

// trendCapacity bounds the in-memory sample history.
const trendCapacity = 120

type (
	// MetricsUpdatedEvent is emitted after every merge into the aggregate.
	MetricsUpdatedEvent struct {
		View  engine.View
		Trend []TrendPoint
	}

	// DayChangedEvent is emitted when the day window moves forward.
	DayChangedEvent struct {
		From   string
		To     string
		Source string
	}

	// NotificationEvent carries a user-facing notification.
	NotificationEvent struct {
		Notification notify.Notification
	}

	// SessionEvent is emitted when a session starts or ends.
	SessionEvent struct {
		ID     string
		Active bool
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (MetricsUpdatedEvent) isServiceEvent() {}
func (DayChangedEvent) isServiceEvent()     {}
func (NotificationEvent) isServiceEvent()   {}
func (SessionEvent) isServiceEvent()        {}
func (ErrorEvent) isServiceEvent()          {}

// TrendPoint is one sample of the daily metrics.
type TrendPoint struct {
	At       time.Time
	Bookings int
	Revenue  float64
}

// Options tunes a Manager beyond what Config carries.
type Options struct {
	Clock  engine.Clock
	Signal auth.Signal
	// Notifiers are added to the log and event notifiers.
	Notifiers []notify.Notifier
}

// Manager orchestrates services and event routing.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	source      datasource.DataSource
	engine      *engine.Engine
	signal      auth.Signal
	subscribers []chan ServiceEvent

	trendMu sync.Mutex
	trend   []TrendPoint

	cancel    context.CancelFunc
	done      chan struct{}
	started   bool
	closeOnce sync.Once
}

// NewManager opens the configured data source and builds the engine on top
// of it. Call Start to begin following the session signal.
func NewManager(ctx context.Context, cfg *config.Config) (*Manager, error) {
	src, err := OpenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := Options{Signal: SignalFor(cfg)}
	if cfg.DesktopNotify {
		opts.Notifiers = append(opts.Notifiers, notify.Desktop{AppName: "opsdash"})
	}
	return NewManagerWithSource(cfg, src, opts), nil
}

// NewManagerWithSource builds a manager around an already open source. The
// manager owns src and closes it.
func NewManagerWithSource(cfg *config.Config, src datasource.DataSource, opts Options) *Manager {
	m := &Manager{
		cfg:    cfg,
		source: src,
		signal: opts.Signal,
		done:   make(chan struct{}),
	}
	if m.signal == nil {
		m.signal = auth.Static(true)
	}

	notifiers := notify.Multi{notify.Log{}, notify.Func(m.onNotification)}
	notifiers = append(notifiers, opts.Notifiers...)

	m.engine = engine.New(src, engine.Options{
		Clock:       opts.Clock,
		Location:    cfg.Location,
		SettleDelay: cfg.SettleDelay,
		Notifier:    notifiers,
		Hooks: engine.Hooks{
			OnUpdate:    m.onUpdate,
			OnDayChange: m.onDayChange,
			OnError:     m.onError,
			OnSession:   m.onSession,
		},
	})
	return m
}

// SignalFor returns the session signal selected by cfg.
func SignalFor(cfg *config.Config) auth.Signal {
	if cfg.SessionFile == "" {
		return auth.Static(true)
	}
	return auth.NewFileSignal(cfg.SessionFile)
}

// Start follows the session signal until Close.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		err := m.signal.Run(ctx, func(authorized bool) {
			if err := m.engine.SetAuthorized(authorized); err != nil && !errors.Is(err, engine.ErrClosed) {
				logger.Error("failed to apply session signal", "error", err)
			}
		})
		if err != nil {
			logger.Error("session signal stopped", "error", err)
			m.broadcast(ErrorEvent{Service: "auth", Error: err})
		}
	}()
}

func (m *Manager) onUpdate(v engine.View) {
	m.broadcast(MetricsUpdatedEvent{View: v, Trend: m.addTrendPoint(v)})
}

func (m *Manager) onDayChange(from, to, source string) {
	m.clearTrend()
	m.broadcast(DayChangedEvent{From: from, To: to, Source: source})
}

func (m *Manager) onError(component string, err error) {
	m.broadcast(ErrorEvent{Service: component, Error: err})
}

func (m *Manager) onSession(id string, active bool) {
	if !active {
		m.clearTrend()
	}
	m.broadcast(SessionEvent{ID: id, Active: active})
}

func (m *Manager) onNotification(n notify.Notification) {
	m.broadcast(NotificationEvent{Notification: n})
}

func (m *Manager) addTrendPoint(v engine.View) []TrendPoint {
	m.trendMu.Lock()
	defer m.trendMu.Unlock()

	m.trend = append(m.trend, TrendPoint{
		At:       v.LastUpdate,
		Bookings: v.TodaysBookings,
		Revenue:  v.RevenueToday.InexactFloat64(),
	})
	if len(m.trend) > trendCapacity {
		m.trend = m.trend[len(m.trend)-trendCapacity:]
	}
	return append([]TrendPoint(nil), m.trend...)
}

func (m *Manager) clearTrend() {
	m.trendMu.Lock()
	defer m.trendMu.Unlock()
	m.trend = nil
}

// Trend returns a copy of the samples taken this session and day.
func (m *Manager) Trend() []TrendPoint {
	m.trendMu.Lock()
	defer m.trendMu.Unlock()
	return append([]TrendPoint(nil), m.trend...)
}

// broadcast sends an event to all subscribers without blocking.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, waitForEvent(ch)
}

// waitForEvent returns a tea.Cmd that waits for the next event.
func waitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return waitForEvent(ch)
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// View returns the current aggregate.
func (m *Manager) View() engine.View {
	return m.engine.View()
}

// Engine returns the aggregation engine.
func (m *Manager) Engine() *engine.Engine {
	return m.engine
}

// Source returns the data source.
func (m *Manager) Source() datasource.DataSource {
	return m.source
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// SourceDescription names the backend for display.
func (m *Manager) SourceDescription() string {
	if m.cfg == nil {
		return ""
	}
	switch m.cfg.Source {
	case config.SourceSQLite:
		return fmt.Sprintf("sqlite (%s)", m.cfg.DatabasePath)
	case config.SourceMongo:
		return fmt.Sprintf("mongo (%s)", m.cfg.MongoDatabase)
	case config.SourceFile:
		return fmt.Sprintf("files (%s)", m.cfg.DataDir)
	default:
		return string(m.cfg.Source)
	}
}

// Close stops the signal, ends any session and releases the source.
func (m *Manager) Close() error {
	var errs []error

	m.closeOnce.Do(func() {
		m.mu.Lock()
		cancel, started := m.cancel, m.started
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		if started {
			<-m.done
		}

		if m.engine != nil {
			if err := m.engine.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if m.source != nil {
			if err := m.source.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
