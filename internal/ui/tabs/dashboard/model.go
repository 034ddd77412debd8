// Package dashboard provides the main dashboard tab showing today's metrics.
package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/opsdash-tui/internal/app"
	"github.com/j-veylop/opsdash-tui/internal/engine"
	"github.com/j-veylop/opsdash-tui/internal/ui/components"
	"github.com/j-veylop/opsdash-tui/internal/ui/styles"
)

// animationDuration is how long a value takes to count up to a new target.
const animationDuration = 800 * time.Millisecond

const (
	metricBookings  = "bookings"
	metricRevenue   = "revenue"
	metricMessages  = "messages"
	metricCustomers = "customers"
)

type animationTickMsg time.Time

func animationTickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*40, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// chartMode selects what the trend card plots.
type chartMode int

const (
	chartCombined chartMode = iota
	chartRevenue
	chartBookings
)

func (c chartMode) String() string {
	switch c {
	case chartRevenue:
		return "revenue"
	case chartBookings:
		return "bookings"
	default:
		return "bookings + revenue"
	}
}

// keyMap defines the key bindings specific to the dashboard tab.
type keyMap struct {
	Chart key.Binding
	Up    key.Binding
	Down  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Chart: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cycle chart"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// AnimationState tracks one value counting towards its target.
type AnimationState struct {
	StartTime time.Time
	Current   float64
	Target    float64
	Start     float64
}

// Model represents the dashboard tab state.
type Model struct {
	state          *app.State
	commands       *app.Commands
	location       *time.Location
	animations     map[string]*AnimationState
	cards          map[string]components.MetricCard
	spinner        components.LoadingSpinner
	keys           keyMap
	viewport       viewport.Model
	chart          chartMode
	width          int
	height         int
	animationFrame int
	now            func() time.Time
}

// New creates a new dashboard model. loc is the zone the day boundaries are
// computed in.
func New(state *app.State, commands *app.Commands, loc *time.Location) *Model {
	if loc == nil {
		loc = time.Local
	}
	if commands == nil {
		commands = app.NewCommands(nil)
	}
	return &Model{
		state:    state,
		commands: commands,
		location: loc,
		spinner:  components.NewSpinner("Waiting for data..."),
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
		cards: map[string]components.MetricCard{
			metricBookings:  components.NewMetricCard("Bookings today", "◆", styles.Bookings),
			metricRevenue:   components.NewMetricCard("Revenue today", "$", styles.Revenue),
			metricMessages:  components.NewMetricCard("Pending messages", "✉", styles.Messages),
			metricCustomers: components.NewMetricCard("Active customers", "●", styles.Customers),
		},
		animations: make(map[string]*AnimationState),
		now:        time.Now,
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Init(), animationTickCmd())
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case animationTickMsg:
		if cmd := m.handleAnimationTick(time.Time(msg)); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case app.MetricsUpdatedMsg, app.ViewLoadedMsg:
		if m.syncAnimationTargets(m.now()) {
			cmds = append(cmds, animationTickCmd())
		}

	case app.SessionChangedMsg:
		if msg.Active {
			m.spinner.SetLabel("Validating metrics...")
		} else {
			m.spinner.SetLabel("Waiting for data...")
			m.animations = make(map[string]*AnimationState)
		}
		cmds = append(cmds, animationTickCmd())

	case app.DayChangedMsg:
		// The trend rolled over with the day; reread it.
		m.syncAnimationTargets(m.now())
		cmds = append(cmds, animationTickCmd(), m.commands.Refresh())

	case tea.KeyMsg:
		if cmd := m.handleKeyMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAnimationTick(now time.Time) tea.Cmd {
	m.animationFrame++

	animating := m.syncAnimationTargets(now)
	m.stepAnimations(now)

	if animating || m.state.IsInitialLoading() || m.state.IsValidating() {
		return animationTickCmd()
	}
	return nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Chart) {
		m.chart = (m.chart + 1) % 3
		if len(m.state.GetTrend()) == 0 {
			return m.commands.NotifyWarning("Chart: " + m.chart.String() + ", no samples yet")
		}
		return m.commands.NotifyInfo("Chart: " + m.chart.String())
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

// SetSize sets the available size for the dashboard.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// syncAnimationTargets points each animation at the current view and reports
// whether any value is still moving.
func (m *Model) syncAnimationTargets(now time.Time) bool {
	v := m.state.GetView()
	if !v.Validated {
		return false
	}

	animating := false
	for name, target := range targets(v) {
		if m.updateAnimationState(name, target, now) {
			animating = true
		}
	}
	return animating
}

func targets(v engine.View) map[string]float64 {
	return map[string]float64{
		metricBookings:  float64(v.TodaysBookings),
		metricRevenue:   v.RevenueToday.InexactFloat64(),
		metricMessages:  float64(v.PendingMessages),
		metricCustomers: float64(v.ActiveCustomers),
	}
}

func (m *Model) updateAnimationState(name string, target float64, now time.Time) bool {
	state, exists := m.animations[name]
	if !exists {
		state = &AnimationState{StartTime: now}
		m.animations[name] = state
	}

	if target != state.Target {
		state.Start = state.Current
		state.Target = target
		state.StartTime = now
	}

	return state.Current != state.Target
}

func (m *Model) stepAnimations(now time.Time) {
	for _, state := range m.animations {
		if state.Current == state.Target {
			continue
		}
		elapsed := now.Sub(state.StartTime)
		if elapsed >= animationDuration {
			state.Current = state.Target
			continue
		}
		progress := float64(elapsed) / float64(animationDuration)
		ease := 1.0 - (1.0-progress)*(1.0-progress)
		state.Current = state.Start + (state.Target-state.Start)*ease
	}
}

// animatedValue returns the displayed value for name and whether it has
// reached its target.
func (m *Model) animatedValue(name string) (float64, bool) {
	state, ok := m.animations[name]
	if !ok {
		return 0, false
	}
	return state.Current, state.Current == state.Target
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Chart}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Chart},
		{m.keys.Up, m.keys.Down},
	}
}
