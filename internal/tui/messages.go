package tui

import (
	"github.com/mmcdole/collie/internal/domain"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SnapshotMsg carries the latest monitor state
type SnapshotMsg struct {
	Snapshot domain.Snapshot
}

// SyncStartedMsg signals that the server accepted a start request
type SyncStartedMsg struct {
	Incremental bool
}

// AutoSyncToggledMsg carries the server's schedule after a toggle
type AutoSyncToggledMsg struct {
	State domain.AutoSyncState
}

// CategorizedMsg carries the result of a categorization pass
type CategorizedMsg struct {
	Result domain.CategorizeResult
}

// TickMsg advances the spinner
type TickMsg struct{}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct {
	Seq int
}
