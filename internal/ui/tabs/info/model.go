// Package info provides the info tab: configuration, engine status and build
// information.
package info

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/opsdash-tui/internal/app"
	"github.com/j-veylop/opsdash-tui/internal/config"
)

// Model is a read-only page. Content is rebuilt on every render from the
// shared state, so only scrolling is handled here.
type Model struct {
	state    *app.State
	config   *config.Config
	source   string
	width    int
	height   int
	viewport viewport.Model
}

// New creates the info tab. source describes the open backend; cfg may be nil.
func New(state *app.State, cfg *config.Config, source string) *Model {
	vp := viewport.New(0, 0)
	vp.KeyMap.Up.SetHelp("↑/k", "scroll up")
	vp.KeyMap.Down.SetHelp("↓/j", "scroll down")

	return &Model{
		state:    state,
		config:   cfg,
		source:   source,
		viewport: vp,
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Update scrolls on keys and mouse wheel.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg.(type) {
	case tea.KeyMsg, tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width, m.viewport.Height = width, height
}

func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.viewport.KeyMap.Up, m.viewport.KeyMap.Down}
}

func (m *Model) FullHelp() [][]key.Binding {
	km := m.viewport.KeyMap
	return [][]key.Binding{
		{km.Up, km.Down},
		{km.PageUp, km.PageDown, km.HalfPageUp, km.HalfPageDown},
	}
}
