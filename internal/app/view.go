package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/opsdash-tui/internal/ui/styles"
)

// toastTop is the first row toasts may cover, just below the tab bar.
const toastTop = 2

func (m *Model) View() string {
	if !m.ready {
		return m.styles.Content.Render(m.spinner.View() + " Starting...")
	}

	body := m.renderPlaceholder()
	if tab := m.currentTab(); tab != nil {
		body = tab.View()
	}

	// Pin the footer to the last row.
	body = lipgloss.NewStyle().Height(max(0, m.height-chromeHeight)).MaxHeight(max(0, m.height-chromeHeight)).Render(body)
	screen := lipgloss.JoinVertical(lipgloss.Left, m.renderNavbar(), body, m.renderFooter())

	if m.showHelp {
		panel := m.renderHelp()
		x := (m.width - lipgloss.Width(panel)) / 2
		y := (m.height - lipgloss.Height(panel)) / 2
		screen = placeOverlay(screen, panel, x, y)
	}

	if toasts := m.renderToasts(); toasts != "" {
		x := m.width - lipgloss.Width(toasts) - 2
		screen = placeOverlay(screen, toasts, x, toastTop)
	}
	return screen
}

// placeOverlay draws fg over bg with its top-left corner at (x, y). Rows
// past the end of bg are dropped.
func placeOverlay(bg, fg string, x, y int) string {
	x, y = max(0, x), max(0, y)
	rows := strings.Split(bg, "\n")
	fgWidth := lipgloss.Width(fg)

	for i, line := range strings.Split(fg, "\n") {
		row := y + i
		if row >= len(rows) {
			break
		}
		left := ansi.Truncate(rows[row], x, "")
		if w := lipgloss.Width(left); w < x {
			left += strings.Repeat(" ", x-w)
		}
		right := ansi.TruncateLeft(rows[row], x+fgWidth, "")
		rows[row] = left + line + right
	}
	return strings.Join(rows, "\n")
}

func (m *Model) renderNavbar() string {
	tabs := make([]string, 0, len(m.tabs))
	for i := range m.tabs {
		id := TabID(i)
		label := fmt.Sprintf("%d %s", i+1, id)
		if id == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render("▸ "+label))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render("  "+label))
		}
	}
	left := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	badge := m.sessionBadge()
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(badge)-2)
	return m.styles.TabBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + badge)
}

// sessionBadge summarizes the session in the tab bar.
func (m *Model) sessionBadge() string {
	v := m.state.GetView()
	label := "NO SESSION"
	switch {
	case v.Active && v.Validated:
		label = "● LIVE"
	case v.Active:
		label = m.spinner.View() + " VALIDATING"
	}
	return styles.GetStatusStyle(v.Active, v.Validated).Render(label)
}

func (m *Model) footerBindings() []key.Binding {
	bindings := m.keymap.ShortHelp()
	if tab := m.currentTab(); tab != nil {
		bindings = append(bindings, tab.ShortHelp()...)
	}
	return bindings
}

func (m *Model) renderFooter() string {
	return m.styles.Footer.Render(m.help.ShortHelpView(m.footerBindings()))
}

func (m *Model) renderToasts() string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return ""
	}

	toasts := make([]string, 0, len(notifications))
	for _, n := range notifications {
		badge := toastBadge[n.Type]
		if n.Type == NotificationLoading {
			badge = m.spinner.View()
		}
		text := m.styles.notification[n.Type].Render(badge + " " + n.Message)
		toasts = append(toasts, m.styles.Toast.Render(text))
	}
	return lipgloss.JoinVertical(lipgloss.Right, toasts...)
}

func (m *Model) renderHelp() string {
	h := m.help
	h.Width = 0

	sections := []string{
		m.styles.Title.Render("Keyboard Shortcuts"),
		h.FullHelpView(m.keymap.FullHelp()),
	}
	if tab := m.currentTab(); tab != nil {
		if groups := tab.FullHelp(); len(groups) > 0 {
			sections = append(sections,
				m.styles.Section.Render(m.activeTab.String()),
				h.FullHelpView(groups))
		}
	}
	sections = append(sections, m.styles.Subtle.Render("? or esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(sections, "\n\n"))
}

func (m *Model) renderPlaceholder() string {
	return m.styles.Content.Render(fmt.Sprintf("%s\n\n%s",
		m.styles.Title.Render(m.activeTab.String()),
		m.styles.Subtle.Render("Nothing to show here yet."),
	))
}
