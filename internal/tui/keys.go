package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	// Actions
	StartFull        key.Binding
	StartIncremental key.Binding
	ToggleAutoSync   key.Binding
	Categorize       key.Binding

	// General
	Quit key.Binding
	Help key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		StartFull: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "full sync"),
		),
		StartIncremental: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "incremental"),
		),
		ToggleAutoSync: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "auto sync"),
		),
		Categorize: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "categorize"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// Keys is the global key map instance
var Keys = DefaultKeyMap()
