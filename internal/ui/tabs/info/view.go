package info

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/opsdash-tui/internal/config"
	"github.com/j-veylop/opsdash-tui/internal/ui/styles"
	"github.com/j-veylop/opsdash-tui/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderEngineCard(),
		m.renderAboutCard(),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration, engine status and build information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 80)
}

func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration")}

	if m.config == nil {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	} else {
		c := m.config
		rows = append(rows, m.renderConfigRow("Source", m.source))
		switch c.Source {
		case config.SourceSQLite:
			rows = append(rows, m.renderConfigRow("Database", c.DatabasePath))
		case config.SourceMongo:
			rows = append(rows, m.renderConfigRow("Mongo database", c.MongoDatabase))
		case config.SourceFile:
			rows = append(rows, m.renderConfigRow("Data directory", c.DataDir))
		}
		if c.Source != config.SourceMemory && c.Source != config.SourceFile {
			rows = append(rows, m.renderConfigRow("Poll interval", c.PollInterval.String()))
		}

		session := c.SessionFile
		if session == "" {
			session = "(always authorized)"
		}
		rows = append(rows, m.renderConfigRow("Session file", session))
		rows = append(rows, m.renderConfigRow("Settle delay", c.SettleDelay.String()))
		if c.Location != nil {
			rows = append(rows, m.renderConfigRow("Timezone", c.Location.String()))
		}
		rows = append(rows, m.renderConfigRow("Log file", c.LogPath))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderEngineCard() string {
	v := m.state.GetView()

	rows := []string{styles.CardTitleStyle.Render("Engine")}

	session := "none"
	if v.Active {
		session = v.SessionID
	}
	rows = append(rows, m.renderConfigRow("Session", session))
	rows = append(rows, m.renderConfigRow("Current day", v.CurrentDate))

	validated := styles.StatusPendingStyle.Render("no")
	if v.Validated {
		validated = styles.StatusValidatedStyle.Render("yes")
	}
	rows = append(rows, m.renderConfigRow("Validated", validated))

	if dc := m.state.GetLastDayChange(); dc != nil {
		rows = append(rows, m.renderConfigRow("Last rollover",
			fmt.Sprintf("%s → %s (%s)", dc.From, dc.To, dc.Source)))
	}

	count, last := m.state.GetErrors()
	errs := styles.SuccessTextStyle.Render("0")
	if count > 0 {
		errs = styles.ErrorTextStyle.Render(fmt.Sprintf("%d, last %s", count, last))
	}
	rows = append(rows, m.renderConfigRow("Errors", errs))

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderConfigRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(18).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About opsdash"),
		m.renderConfigRow("Version", version.GetVersion()),
		m.renderConfigRow("Build Date", version.GetDate()),
		m.renderConfigRow("Git Commit", version.GetCommit()),
		m.renderConfigRow("Go Version", runtime.Version()),
		m.renderConfigRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
