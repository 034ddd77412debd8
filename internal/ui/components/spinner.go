package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/opsdash-tui/internal/ui/styles"
)

// elapsedAfter is how long a wait lasts before the spinner shows its age.
const elapsedAfter = 3 * time.Second

// LoadingSpinner is a spinner with a label that reports how long it has been
// waiting once the wait stops being short.
type LoadingSpinner struct {
	spinner spinner.Model
	label   string
	since   time.Time
	now     func() time.Time
}

// NewSpinner creates a spinner waiting on label, starting now.
func NewSpinner(label string) LoadingSpinner {
	return LoadingSpinner{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Primary)),
		),
		label: label,
		since: time.Now(),
		now:   time.Now,
	}
}

func (l LoadingSpinner) Init() tea.Cmd {
	return l.spinner.Tick
}

// Update advances the spinner on its own tick messages.
func (l LoadingSpinner) Update(msg tea.Msg) (LoadingSpinner, tea.Cmd) {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return l, cmd
}

func (l LoadingSpinner) View() string {
	return l.spinner.View()
}

// ViewWithLabel renders the spinner, its label and, for long waits, the
// elapsed seconds.
func (l LoadingSpinner) ViewWithLabel() string {
	if l.label == "" {
		return l.spinner.View()
	}
	text := l.label
	if waited := l.Waited(); waited >= elapsedAfter {
		text = fmt.Sprintf("%s (%ds)", text, int(waited.Seconds()))
	}
	return l.spinner.View() + " " + styles.MetricLabelStyle.Render(text)
}

// SetLabel switches to a new wait. The elapsed time restarts only when the
// label changes.
func (l *LoadingSpinner) SetLabel(label string) {
	if label == l.label {
		return
	}
	l.label = label
	l.since = l.now()
}

func (l LoadingSpinner) Label() string {
	return l.label
}

// Waited is the time spent on the current label.
func (l LoadingSpinner) Waited() time.Duration {
	return l.now().Sub(l.since)
}

// RenderSpinnerCentered places the labelled spinner in the middle of the area.
func RenderSpinnerCentered(s LoadingSpinner, width, height int) string {
	return styles.CenterBoth(s.ViewWithLabel(), width, height)
}
