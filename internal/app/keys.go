package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the global bindings. Tabs add their own on top.
type KeyMap struct {
	Tab1     key.Binding
	Tab2     key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding
	Refresh  key.Binding
	Help     key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
	Escape   key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

func binding(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the global bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab1:     binding("1", "dashboard", "1"),
		Tab2:     binding("2", "info", "2"),
		NextTab:  binding("tab", "next tab", "tab", "l", "right"),
		PrevTab:  binding("shift+tab", "prev tab", "shift+tab", "h", "left"),
		Refresh:  binding("r", "reload", "r", "ctrl+r"),
		Help:     binding("?", "help", "?"),
		Quit:     binding("q", "quit", "q", "ctrl+c"),
		Up:       binding("↑/k", "scroll up", "up", "k"),
		Down:     binding("↓/j", "scroll down", "down", "j"),
		Escape:   binding("esc", "close", "esc"),
		PageUp:   binding("pgup", "page up", "pgup", "ctrl+u"),
		PageDown: binding("pgdn", "page down", "pgdown", "ctrl+d"),
	}
}

// tabKeys maps the direct tab bindings to their tabs.
func (k KeyMap) tabKeys() map[TabID]key.Binding {
	return map[TabID]key.Binding{
		TabDashboard: k.Tab1,
		TabInfo:      k.Tab2,
	}
}

// ShortHelp is shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Refresh, k.Help, k.Quit}
}

// FullHelp is shown in the help overlay, one column per group.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.NextTab, k.PrevTab},
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Refresh, k.Help, k.Escape, k.Quit},
	}
}
