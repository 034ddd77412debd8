// Package styles holds the palette and shared lipgloss styles.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette. Each metric has its own color so cards, sparklines and chart
// series match.
var (
	Primary   = lipgloss.Color("205")
	Secondary = lipgloss.Color("63")
	Subtle    = lipgloss.Color("240")

	Bookings  = lipgloss.Color("208")
	Revenue   = lipgloss.Color("42")
	Messages  = lipgloss.Color("39")
	Customers = lipgloss.Color("141")

	Success = lipgloss.Color("42")
	Error   = lipgloss.Color("196")
	Warning = lipgloss.Color("220")
	Info    = lipgloss.Color("39")

	BgDark  = lipgloss.Color("235")
	BgLight = lipgloss.Color("237")

	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func rounded(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border)
}

// Layout.
var (
	DocStyle   = lipgloss.NewStyle().Margin(1, 2).Padding(0, 1)
	TitleStyle = fg(Primary).Bold(true).MarginBottom(1)

	CardStyle       = rounded(Subtle).Padding(1, 2).MarginBottom(1)
	CardTitleStyle  = fg(Primary).Bold(true).MarginBottom(1)
	MetricCardStyle = rounded(Subtle).Padding(0, 2).MarginRight(1)

	MetricValueStyle = fg(TextPrimary).Bold(true)
	MetricLabelStyle = fg(TextSecondary)
	HelpStyle        = fg(TextMuted)

	ToastStyle     = rounded(Primary).Padding(0, 1).MarginBottom(1)
	HelpPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Primary).
			Background(BgDark).
			Padding(1, 3)
)

// Text.
var (
	ErrorTextStyle   = fg(Error)
	SuccessTextStyle = fg(Success)
	InfoTextStyle    = fg(Info)

	StatusValidatedStyle = fg(Success).Bold(true)
	StatusPendingStyle   = fg(Warning).Bold(true)
	StatusInactiveStyle  = fg(Subtle)
)

// GetStatusStyle colors a session badge: inactive, validating or live.
func GetStatusStyle(active, validated bool) lipgloss.Style {
	switch {
	case !active:
		return StatusInactiveStyle
	case validated:
		return StatusValidatedStyle
	default:
		return StatusPendingStyle
	}
}

// GetTrendStyle colors a change between two samples.
func GetTrendStyle(delta float64) lipgloss.Style {
	switch {
	case delta > 0:
		return SuccessTextStyle
	case delta < 0:
		return ErrorTextStyle
	default:
		return HelpStyle
	}
}

// CenterBoth centers content in a width by height box.
func CenterBoth(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
