// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/opsdash-tui/internal/ui/styles"
)

// sparkChars are the block characters used by sparklines, lowest first.
var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	// asciigraph needs two points to draw a line.
	if len(data) == 1 {
		data = []float64{data[0], data[0]}
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.Caption(caption),
	)
}

// RenderTrendChart plots bookings and revenue samples on one graph. Revenue
// is scaled into the bookings range so both series share the axis; the
// caption carries the real revenue bounds.
func RenderTrendChart(bookings, revenue []float64, width, height int) string {
	if len(bookings) == 0 && len(revenue) == 0 {
		return styles.HelpStyle.Render("No samples yet")
	}

	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	n := max(len(bookings), len(revenue), 2)
	b := pad(bookings, n)
	r := pad(revenue, n)

	bLo, bHi := bounds(b)
	rLo, rHi := bounds(r)
	scaled := make([]float64, n)
	for i, v := range r {
		if rHi == rLo {
			scaled[i] = bHi
			continue
		}
		scaled[i] = bLo + (v-rLo)/(rHi-rLo)*(bHi-bLo)
	}

	caption := fmt.Sprintf("revenue %.2f .. %.2f", rLo, rHi)
	return asciigraph.PlotMany([][]float64{b, scaled},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.DarkOrange, asciigraph.Green),
	)
}

// pad extends data to n points by repeating its last value.
func pad(data []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, data)
	if len(data) > 0 {
		for i := len(data); i < n; i++ {
			out[i] = data[len(data)-1]
		}
	}
	return out
}

func bounds(data []float64) (lo, hi float64) {
	if len(data) == 0 {
		return 0, 0
	}
	lo, hi = data[0], data[0]
	for _, v := range data[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	_, maxVal := bounds(values)
	if maxVal <= 0 {
		maxVal = 1
	}

	// Sample values to fit width, keeping the newest ones.
	if len(values) > width {
		values = values[len(values)-width:]
	}

	var result strings.Builder
	for _, val := range values {
		normalized := int((val / maxVal) * float64(len(sparkChars)-1))
		normalized = min(max(normalized, 0), len(sparkChars)-1)
		result.WriteRune(sparkChars[normalized])
	}

	return result.String()
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	var parts []string
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}
