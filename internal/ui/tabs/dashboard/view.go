package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/opsdash-tui/internal/engine"
	"github.com/j-veylop/opsdash-tui/internal/ui/components"
	"github.com/j-veylop/opsdash-tui/internal/ui/styles"
)

// View renders the dashboard component.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	v := m.state.GetView()

	sections := []string{
		m.renderTitle(v),
		m.renderDayProgress(),
	}

	if !v.Active {
		sections = append(sections, m.renderNoSession())
	} else {
		sections = append(sections, m.renderCards(v), m.renderTrend())
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle(v engine.View) string {
	title := styles.TitleStyle.Render("Operations Dashboard")

	var status string
	switch {
	case !v.Active:
		status = "○ NO SESSION"
	case v.Validated:
		status = "● VALIDATED"
	default:
		status = "◌ VALIDATING"
	}
	badge := styles.GetStatusStyle(v.Active, v.Validated).Render(status)

	parts := []string{badge, styles.InfoTextStyle.Render(v.CurrentDate)}
	if v.SessionID != "" {
		parts = append(parts, styles.HelpStyle.Render("session "+shortID(v.SessionID)))
	}
	if !v.LastUpdate.IsZero() {
		parts = append(parts, styles.HelpStyle.Render("updated "+formatAgo(m.now().Sub(v.LastUpdate))))
	}

	line := ""
	for i, p := range parts {
		if i > 0 {
			line += styles.HelpStyle.Render("  ·  ")
		}
		line += p
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, line, "")
}

func (m *Model) renderDayProgress() string {
	now := m.now().In(m.location)
	remaining := engine.UntilNextMidnight(now, m.location)
	dayLen := remaining + now.Sub(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, m.location))

	fraction := 0.0
	if dayLen > 0 {
		fraction = 1 - float64(remaining)/float64(dayLen)
	}

	label := styles.HelpStyle.Render("Day progress")
	bar := components.RenderDayProgress(fraction, int64(remaining.Seconds()), max(m.width-22, 30))
	return lipgloss.JoinVertical(lipgloss.Left, label+" "+bar, "")
}

func (m *Model) renderNoSession() string {
	cardWidth := max(m.width-6, 40)
	rows := []string{
		styles.CardTitleStyle.Render("No active session"),
		styles.HelpStyle.Render("Metrics appear once a session is authorized."),
		styles.InfoTextStyle.Render("  ╰─▶ Sign in, or check the session file setting on the Info tab"),
	}
	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// cardOrder is the display order of the metric cards.
var cardOrder = []string{metricBookings, metricRevenue, metricMessages, metricCustomers}

func (m *Model) renderCards(v engine.View) string {
	perRow := 4
	if m.width < 120 {
		perRow = 2
	}
	cardWidth := max((m.width-6)/perRow-1, 20)

	history := m.histories()

	var rendered []string
	for _, name := range cardOrder {
		card := m.cards[name]
		if !v.Validated {
			rendered = append(rendered, card.ViewLoading(cardWidth, m.animationFrame))
			continue
		}
		rendered = append(rendered, card.View(m.displayValue(name, v), history[name], cardWidth))
	}

	var rows []string
	for i := 0; i < len(rendered); i += perRow {
		end := min(i+perRow, len(rendered))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rendered[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// displayValue formats the animated value, switching to the exact figure
// once the animation settles.
func (m *Model) displayValue(name string, v engine.View) string {
	current, settled := m.animatedValue(name)

	if name == metricRevenue {
		if settled {
			return v.RevenueToday.StringFixed(2)
		}
		return fmt.Sprintf("%.2f", current)
	}

	if settled {
		switch name {
		case metricBookings:
			return fmt.Sprint(v.TodaysBookings)
		case metricMessages:
			return fmt.Sprint(v.PendingMessages)
		case metricCustomers:
			return fmt.Sprint(v.ActiveCustomers)
		}
	}
	return fmt.Sprint(int(math.Round(current)))
}

// histories builds the per-card sparkline data from the trend samples.
func (m *Model) histories() map[string][]float64 {
	trend := m.state.GetTrend()
	bookings := make([]float64, len(trend))
	revenue := make([]float64, len(trend))
	for i, p := range trend {
		bookings[i] = float64(p.Bookings)
		revenue[i] = p.Revenue
	}
	return map[string][]float64{
		metricBookings: bookings,
		metricRevenue:  revenue,
	}
}

func (m *Model) renderTrend() string {
	cardWidth := max(m.width-6, 40)
	chartWidth := max(cardWidth-16, 20)
	chartHeight := max(min(m.height/4, 10), 3)

	h := m.histories()

	var chart string
	var legend []components.LegendItem
	switch m.chart {
	case chartRevenue:
		chart = components.RenderLineChart(h[metricRevenue], chartWidth, chartHeight, "revenue today")
		legend = []components.LegendItem{{Label: "Revenue", Color: styles.Revenue}}
	case chartBookings:
		chart = components.RenderLineChart(h[metricBookings], chartWidth, chartHeight, "bookings today")
		legend = []components.LegendItem{{Label: "Bookings", Color: styles.Bookings}}
	default:
		chart = components.RenderTrendChart(h[metricBookings], h[metricRevenue], chartWidth, chartHeight)
		legend = []components.LegendItem{
			{Label: "Bookings", Color: styles.Bookings},
			{Label: "Revenue (scaled)", Color: styles.Revenue},
		}
	}

	titleIcon := lipgloss.NewStyle().Foreground(styles.Primary).Render("◈")
	rows := []string{
		fmt.Sprintf("%s %s %s", titleIcon,
			styles.CardTitleStyle.Render("Today's trend"),
			styles.HelpStyle.Render("("+m.chart.String()+")")),
		chart,
		"",
		components.RenderLegend(legend),
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatAgo(d time.Duration) string {
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
