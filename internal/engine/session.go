package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/logger"
	"github.com/j-veylop/opsdash-tui/internal/models"
	"github.com/j-veylop/opsdash-tui/internal/notify"
)

const queueSize = 64

// session owns the state of one authorized period. Every handler that reads
// or writes state runs on the session loop, one at a time.
type session struct {
	id     string
	src    datasource.DataSource
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	queue   chan func()
	done    chan struct{}
	stopped chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
	subs      []func()

	state     *AggregateState
	window    *DayWindow
	validated atomic.Bool

	validation *validationRunner
	feeds      *feedCoordinator
	midnight   *midnightScheduler
}

func newSession(src datasource.DataSource, opts Options) *session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:      uuid.NewString(),
		src:     src,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		queue:   make(chan func(), queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		state:   &AggregateState{},
		window:  NewDayWindow(models.Today(opts.Clock.Now(), opts.Location)),
	}
	s.validation = &validationRunner{s: s}
	s.feeds = &feedCoordinator{s: s}
	s.midnight = &midnightScheduler{s: s}

	go s.run()
	return s
}

func (s *session) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case fn := <-s.queue:
			select {
			case <-s.done:
				return
			default:
			}
			fn()
		}
	}
}

// post queues fn on the session loop. It reports false once the session has
// ended, in which case fn is dropped.
func (s *session) post(fn func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.queue <- fn:
		return true
	case <-s.done:
		return false
	}
}

// track registers a cancellation handle. Handles registered after close are
// released immediately.
func (s *session) track(unsub datasource.Unsubscribe) {
	if unsub == nil {
		return
	}
	var once sync.Once
	release := func() { once.Do(unsub) }

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		release()
		return
	}
	s.subs = append(s.subs, release)
	s.mu.Unlock()
}

// close stops the loop, then releases every subscription and timer exactly
// once. After it returns no handler runs.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
		s.cancel()

		s.mu.Lock()
		s.closed = true
		subs := s.subs
		s.subs = nil
		s.mu.Unlock()

		for _, release := range subs {
			release()
		}
		s.midnight.Stop()
		s.validation.Stop()
		logger.Debug("session closed", "session", s.id, "subscriptions", len(subs))
	})
}

func (s *session) now() time.Time {
	return s.opts.Clock.Now()
}

func (s *session) today() string {
	return models.Today(s.now(), s.opts.Location)
}

func (s *session) view() View {
	return View{
		Metrics:     s.state.Metrics(),
		CurrentDate: s.window.Current(),
		Validated:   s.validated.Load(),
		SessionID:   s.id,
		Active:      true,
	}
}

// merge applies p and reports the new view. Loop only.
func (s *session) merge(p models.Patch) {
	s.state.Merge(p, s.now())
	if s.opts.Hooks.OnUpdate != nil {
		s.opts.Hooks.OnUpdate(s.view())
	}
}

func (s *session) dayChanged(from, to, source string) {
	logger.Info("day window advanced", "session", s.id, "from", from, "date", to, "source", source)
	if s.opts.Hooks.OnDayChange != nil {
		s.opts.Hooks.OnDayChange(from, to, source)
	}
}

// fail records a recoverable error. State is left as it was.
func (s *session) fail(component string, err error) {
	logger.Warn("update failed", "session", s.id, "component", component, "error", err)
	if s.opts.Hooks.OnError != nil {
		s.opts.Hooks.OnError(component, err)
	}
}

func (s *session) notify(n notify.Notification) {
	if s.opts.Notifier != nil {
		s.opts.Notifier.Notify(n)
	}
}
