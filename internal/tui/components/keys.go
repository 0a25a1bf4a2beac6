package components

import "github.com/charmbracelet/bubbles/key"

// LogViewKeyMap defines key bindings for the log pane
type LogViewKeyMap struct {
	Home   key.Binding
	End    key.Binding
	Filter key.Binding
	Escape key.Binding
	Enter  key.Binding
}

// DefaultLogViewKeyMap returns the default log pane key bindings
func DefaultLogViewKeyMap() LogViewKeyMap {
	return LogViewKeyMap{
		Home: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "follow"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear filter"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "accept filter"),
		),
	}
}

// StartFormKeyMap defines key bindings for the full sync form
type StartFormKeyMap struct {
	Next   key.Binding
	Submit key.Binding
	Cancel key.Binding
}

// DefaultStartFormKeyMap returns the default full sync form key bindings
func DefaultStartFormKeyMap() StartFormKeyMap {
	return StartFormKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "shift+tab", "up", "down"),
			key.WithHelp("tab", "next field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "start"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// Package-level key map instances
var (
	LogViewKeys   = DefaultLogViewKeyMap()
	StartFormKeys = DefaultStartFormKeyMap()
)
