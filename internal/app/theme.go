package app

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/opsdash-tui/internal/ui/styles"
)

// Styles groups the styles used by the root model.
type Styles struct {
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	Footer      lipgloss.Style

	Content lipgloss.Style
	Toast   lipgloss.Style
	Title   lipgloss.Style
	Section lipgloss.Style
	Subtle  lipgloss.Style

	// toast text per notification type
	notification map[NotificationType]lipgloss.Style
}

// DefaultStyles builds the root styles from the shared palette.
func DefaultStyles() Styles {
	text := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c).Padding(0, 1)
	}

	return Styles{
		TabBar: lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(styles.Subtle),
		ActiveTab:   lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Padding(0, 2),
		InactiveTab: lipgloss.NewStyle().Foreground(styles.TextMuted).Padding(0, 2),
		Footer:      lipgloss.NewStyle().Foreground(styles.TextMuted).Padding(0, 1),

		Content: lipgloss.NewStyle().Padding(1, 2),
		Toast:   styles.ToastStyle,
		Title:   styles.TitleStyle,
		Section: lipgloss.NewStyle().Bold(true).Foreground(styles.Secondary),
		Subtle:  lipgloss.NewStyle().Foreground(styles.TextMuted),

		notification: map[NotificationType]lipgloss.Style{
			NotificationSuccess: text(styles.Success),
			NotificationError:   text(styles.Error).Bold(true),
			NotificationWarning: text(styles.Warning),
			NotificationInfo:    text(styles.Info),
			NotificationLoading: text(styles.Info),
		},
	}
}

// toastBadge is the prefix shown before a toast message.
var toastBadge = map[NotificationType]string{
	NotificationSuccess: "✓",
	NotificationError:   "✗",
	NotificationWarning: "!",
	NotificationInfo:    "•",
}
