// Package engine maintains the rolling daily metrics for one authorized
// session at a time.
package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/logger"
	"github.com/j-veylop/opsdash-tui/internal/models"
	"github.com/j-veylop/opsdash-tui/internal/notify"
)

// ErrClosed is returned by operations on a closed Engine.
var ErrClosed = errors.New("engine closed")

// DefaultSettleDelay is the pause between authorization and validation.
const DefaultSettleDelay = time.Second

// Hooks receive engine events. All but the session-end call run on the
// session loop and must not block or call back into the Engine.
type Hooks struct {
	OnUpdate    func(View)
	OnDayChange func(from, to, source string)
	OnError     func(component string, err error)
	OnSession   func(id string, active bool)
}

// Options configures an Engine.
type Options struct {
	Clock       Clock
	Location    *time.Location
	SettleDelay time.Duration
	Notifier    notify.Notifier
	Hooks       Hooks
}

// View is a read-only copy of the aggregate.
type View struct {
	models.Metrics
	CurrentDate string
	Validated   bool
	SessionID   string
	Active      bool
}

// Engine drives the session lifecycle from the authorization signal.
type Engine struct {
	src  datasource.DataSource
	opts Options

	mu      sync.Mutex
	session *session
	closed  bool
}

// New creates an Engine reading from src. No session exists until
// SetAuthorized(true) is called.
func New(src datasource.DataSource, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	return &Engine{src: src, opts: opts}
}

// SetAuthorized feeds the session signal. true starts a session if none is
// active and makes validation eligible; false tears the session down.
func (e *Engine) SetAuthorized(authorized bool) error {
	if !authorized {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return ErrClosed
		}
		s := e.session
		e.session = nil
		e.mu.Unlock()

		e.end(s)
		return nil
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	s := e.session
	started := s == nil
	if started {
		s = newSession(e.src, e.opts)
		e.session = s
	}
	e.mu.Unlock()

	if started {
		logger.Info("session started", "session", s.id)
		if hook := e.opts.Hooks.OnSession; hook != nil {
			s.post(func() { hook(s.id, true) })
		}
	}
	s.post(s.validation.Trigger)
	return nil
}

func (e *Engine) end(s *session) {
	if s == nil {
		return
	}
	s.close()
	logger.Info("session ended", "session", s.id)
	if hook := e.opts.Hooks.OnSession; hook != nil {
		hook(s.id, false)
	}
}

// View returns the current aggregate. Without a session it is zero-valued
// and dated today.
func (e *Engine) View() View {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()

	if s == nil {
		return View{CurrentDate: models.Today(e.opts.Clock.Now(), e.opts.Location)}
	}
	return s.view()
}

// Close ends any session. The data source is not closed.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	s := e.session
	e.session = nil
	e.mu.Unlock()

	e.end(s)
	return nil
}
