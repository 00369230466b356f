package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keyboard bindings of the live screen.
type KeyMap struct {
	Start   key.Binding
	Stop    key.Binding
	Server  key.Binding
	Client  key.Binding
	Dismiss key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop"),
		),
		Server: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "server video"),
		),
		Client: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "client camera"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("enter", "esc"),
			key.WithHelp("enter", "dismiss"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Start, k.Stop}, {k.Server, k.Client}, {k.Dismiss, k.Quit}}
}
