// Package app implements the root Bubble Tea model: tab navigation, toasts
// and the routing of manager events into shared state.
package app

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/opsdash-tui/internal/notify"
	"github.com/j-veylop/opsdash-tui/internal/services"
	"github.com/j-veylop/opsdash-tui/internal/ui/styles"
)

// timeNow is replaced in tests.
var timeNow = time.Now

// TabID identifies a tab by position.
type TabID int

const (
	TabDashboard TabID = iota
	TabInfo

	tabCount = int(TabInfo) + 1
)

func (t TabID) String() string {
	switch t {
	case TabDashboard:
		return "Dashboard"
	case TabInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Tab is a page of the application.
type Tab interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Tab, tea.Cmd)
	View() string
	// SetSize receives the area below the tab bar and above the footer.
	SetSize(width, height int)
	ShortHelp() []key.Binding
	FullHelp() [][]key.Binding
}

// chromeHeight is the tab bar plus its border plus the footer.
const chromeHeight = 4

// Model is the root model.
type Model struct {
	activeTab TabID
	tabs      []Tab

	state    *State
	services *services.Manager
	commands *Commands
	keymap   KeyMap
	styles   Styles
	help     help.Model
	spinner  spinner.Model

	width    int
	height   int
	showHelp bool
	ready    bool

	eventChannel chan services.ServiceEvent
}

// NewModel builds the root model. mgr may be nil, in which case no events
// arrive and reload does nothing.
func NewModel(mgr *services.Manager) *Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = sp.Style.Foreground(styles.Primary)

	h := help.New()
	h.ShortSeparator = " · "

	return &Model{
		activeTab: TabDashboard,
		tabs:      make([]Tab, tabCount),
		state:     NewState(),
		services:  mgr,
		commands:  NewCommands(mgr),
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		help:      h,
		spinner:   sp,
	}
}

// SetTabs installs the tab pages in TabID order.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	m.resizeTabs()
}

// GetState returns the state shared with the tabs.
func (m *Model) GetState() *State { return m.state }

// GetServices returns the manager, possibly nil.
func (m *Model) GetServices() *services.Manager { return m.services }

// GetCommands returns the command constructors.
func (m *Model) GetCommands() *Commands { return m.commands }

// GetActiveTab returns the visible tab.
func (m *Model) GetActiveTab() TabID { return m.activeTab }

// IsReady reports whether the terminal size is known.
func (m *Model) IsReady() bool { return m.ready }

func (m *Model) Init() tea.Cmd {
	m.state.SetLoadingNotification("Connecting...")

	cmds := []tea.Cmd{m.spinner.Tick, defaultTickCmd()}
	if m.services != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.services), loadViewCmd(m.services))
	}
	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}
	return tea.Batch(cmds...)
}

// Update handles the message at the root, then hands it to the active tab.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := m.handle(msg)
	if tab := m.currentTab(); tab != nil {
		var cmd tea.Cmd
		m.tabs[m.activeTab], cmd = tab.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handle(msg tea.Msg) []tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.ready = true
		m.resizeTabs()

	case tea.KeyMsg:
		return []tea.Cmd{m.handleKeyMsg(msg)}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return []tea.Cmd{cmd}

	case TickMsg:
		m.state.ClearExpiredNotifications()
		return []tea.Cmd{defaultTickCmd()}

	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		return []tea.Cmd{waitForServiceEventCmd(m.eventChannel)}

	case ServiceEventMsg:
		cmds := []tea.Cmd{m.handleServiceEvent(msg.Event)}
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}
		return cmds

	case ViewLoadedMsg:
		m.state.SetView(msg.View, msg.Trend)
		m.syncLoadingNotification()

	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			return []tea.Cmd{m.commands.ClearNotification(id, msg.Duration)}
		}

	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)

	case RefreshMsg:
		return []tea.Cmd{m.commands.LoadView()}

	case TabSwitchMsg:
		m.switchTab(msg.Tab)

	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return nil
}

func (m *Model) currentTab() Tab {
	if int(m.activeTab) < len(m.tabs) {
		return m.tabs[m.activeTab]
	}
	return nil
}

func (m *Model) switchTab(id TabID) {
	m.activeTab = id
	m.resizeTabs()
}

// cycleTab moves by delta, wrapping at both ends.
func (m *Model) cycleTab(delta int) {
	if m.showHelp || len(m.tabs) == 0 {
		return
	}
	n := len(m.tabs)
	m.switchTab(TabID(((int(m.activeTab)+delta)%n + n) % n))
}

func (m *Model) resizeTabs() {
	if m.width == 0 || m.height == 0 {
		return
	}
	h := max(0, m.height-chromeHeight)
	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, h)
		}
	}
}

// syncLoadingNotification shows a spinner toast while a session validates.
func (m *Model) syncLoadingNotification() {
	if m.state.IsValidating() {
		m.state.SetLoadingNotification("Validating metrics...")
		return
	}
	m.state.ClearLoadingNotification()
}

// handleKeyMsg runs the global bindings. Keys it does not claim still reach
// the active tab through Update.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	for id, b := range m.keymap.tabKeys() {
		if key.Matches(msg, b) {
			m.switchTab(id)
			return nil
		}
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keymap.Escape):
		m.showHelp = false
	case key.Matches(msg, m.keymap.NextTab):
		m.cycleTab(1)
	case key.Matches(msg, m.keymap.PrevTab):
		m.cycleTab(-1)
	case key.Matches(msg, m.keymap.Refresh):
		return m.commands.LoadView()
	}
	return nil
}

// handleServiceEvent folds a manager event into the state and returns the
// message tabs should see, plus any toast.
func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.MetricsUpdatedEvent:
		m.state.SetView(e.View, e.Trend)
		m.syncLoadingNotification()
		return forward(MetricsUpdatedMsg{View: e.View})

	case services.DayChangedEvent:
		m.state.SetDayChange(e.From, e.To, e.Source, timeNow())
		return tea.Batch(
			notifyCmd(NotificationInfo, "New day: "+e.To),
			forward(DayChangedMsg{From: e.From, To: e.To}),
		)

	case services.SessionEvent:
		m.state.SetSession(e.ID, e.Active)
		m.syncLoadingNotification()
		fwd := forward(SessionChangedMsg{ID: e.ID, Active: e.Active})
		if e.Active {
			return fwd
		}
		return tea.Batch(fwd, notifyCmd(NotificationWarning, "Session ended"))

	case services.NotificationEvent:
		return notificationCmd(e.Notification)

	case services.ErrorEvent:
		m.state.RecordError(e.Service, e.Error)
		// Validation failures already arrive as a notification.
		if e.Service == "validation" {
			return nil
		}
		return notifyCmd(NotificationError, fmt.Sprintf("[%s] %v", e.Service, e.Error))
	}
	return nil
}

func forward(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

var notificationTypes = map[notify.Level]NotificationType{
	notify.LevelSuccess: NotificationSuccess,
	notify.LevelFailure: NotificationError,
	notify.LevelInfo:    NotificationInfo,
}

// notificationCmd turns an engine notification into a toast.
func notificationCmd(n notify.Notification) tea.Cmd {
	t, ok := notificationTypes[n.Level]
	if !ok {
		t = NotificationInfo
	}
	return notifyCmd(t, n.Message)
}
