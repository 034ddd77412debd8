package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/opsdash-tui/internal/logger"
	"github.com/j-veylop/opsdash-tui/internal/ui/styles"
)

// MetricCard renders one headline number with its caption.
type MetricCard struct {
	Label string
	Icon  string
	Color lipgloss.Color
}

// NewMetricCard creates a card for the given metric.
func NewMetricCard(label, icon string, color lipgloss.Color) MetricCard {
	return MetricCard{Label: label, Icon: icon, Color: color}
}

// View renders the card with value and an optional sparkline of recent
// samples. width is the outer width of the card.
func (c MetricCard) View(value string, history []float64, width int) string {
	inner := max(width-6, 12)

	icon := lipgloss.NewStyle().Foreground(c.Color).Render(c.Icon)
	label := styles.MetricLabelStyle.Render(c.Label)
	valueStr := styles.MetricValueStyle.Foreground(c.Color).Render(value)

	lines := []string{
		fmt.Sprintf("%s %s", icon, label),
		valueStr,
	}

	if len(history) > 1 {
		delta := history[len(history)-1] - history[len(history)-2]
		spark := lipgloss.NewStyle().Foreground(c.Color).Render(RenderSparkline(history, inner-8))
		lines = append(lines, spark+" "+styles.GetTrendStyle(delta).Render(formatDelta(delta)))
	} else {
		lines = append(lines, styles.HelpStyle.Render(strings.Repeat("·", min(inner, 12))))
	}

	return styles.MetricCardStyle.
		BorderForeground(c.Color).
		Width(inner).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// ViewLoading renders the card with a shimmer in place of the value.
func (c MetricCard) ViewLoading(width, frame int) string {
	inner := max(width-6, 12)

	icon := lipgloss.NewStyle().Foreground(c.Color).Render(c.Icon)
	label := styles.MetricLabelStyle.Render(c.Label)

	return styles.MetricCardStyle.
		Width(inner).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			fmt.Sprintf("%s %s", icon, label),
			RenderShimmer(min(inner, 16), frame, c.Color),
			"",
		))
}

func formatDelta(d float64) string {
	switch {
	case d > 0:
		return fmt.Sprintf("▲%s", trimFloat(d))
	case d < 0:
		return fmt.Sprintf("▼%s", trimFloat(-d))
	default:
		return "="
	}
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// RenderShimmer draws a bar with a highlight sweeping back and forth.
func RenderShimmer(width, frame int, accent lipgloss.Color) string {
	if width < 1 {
		return ""
	}

	const cycle = 120

	t := float64(frame%cycle) / float64(cycle)
	var p float64
	if t < 0.5 {
		p = t * 2
	} else {
		p = (1 - t) * 2
	}
	eased := p * p * (3 - 2*p)
	shimmerPos := int(eased * float64(width))

	var b strings.Builder
	for i := range width {
		dist := shimmerPos - i
		if dist < 0 {
			dist = -dist
		}

		switch {
		case dist < 3:
			b.WriteString(lipgloss.NewStyle().Foreground(accent).Render("▓"))
		case dist < 5:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.TextSecondary).Render("▒"))
		default:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.BgLight).Render("░"))
		}
	}
	return b.String()
}

// RenderDayProgress renders how much of the current day has elapsed, with
// the time left until the next rollover.
func RenderDayProgress(fraction float64, remainingSeconds int64, width int) string {
	const timeWidth = 8
	barWidth := max(width-timeWidth-4, 10)

	bar := RenderGradientBar(fraction, barWidth, "#6c5ce7", "#ffd93d")

	hours := remainingSeconds / 3600
	minutes := (remainingSeconds % 3600) / 60
	timeStr := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Width(timeWidth).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%dh %02dm", hours, minutes))

	return fmt.Sprintf("[%s] %s", bar, timeStr)
}

// RenderGradientBar renders a bar filled to fraction (0..1) with colors
// blending from one hex color to another.
func RenderGradientBar(fraction float64, width int, fromHex, toHex string) string {
	if width < 1 {
		return ""
	}

	filled := min(max(int(float64(width)*fraction), 0), width)

	var b strings.Builder
	for i := range width {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor(fromHex, toHex, t)
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}
	return b.String()
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}
