package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/collie/internal/domain"
)

// Actions is the part of the sync controller the dashboard drives
type Actions interface {
	StartFull(ctx context.Context, maxDocuments int, daysBack *int) error
	StartIncremental(ctx context.Context) error
	ToggleAutoSync(ctx context.Context, enable bool) (*domain.AutoSyncState, error)
	Categorize(ctx context.Context) (*domain.CategorizeResult, error)
}

// actionTimeout bounds a user-triggered request including its follow-up refresh
const actionTimeout = 30 * time.Second

// Command factories for async operations

// WaitForSnapshotCmd blocks until the observer delivers the next snapshot
func WaitForSnapshotCmd(ch <-chan domain.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

// StartFullCmd starts a full sync
func StartFullCmd(actions Actions, maxEmails int, daysBack *int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		if err := actions.StartFull(ctx, maxEmails, daysBack); err != nil {
			return ErrMsg{Err: err, Context: "starting sync"}
		}
		return SyncStartedMsg{}
	}
}

// StartIncrementalCmd starts an incremental sync
func StartIncrementalCmd(actions Actions) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		if err := actions.StartIncremental(ctx); err != nil {
			return ErrMsg{Err: err, Context: "starting incremental sync"}
		}
		return SyncStartedMsg{Incremental: true}
	}
}

// ToggleAutoSyncCmd enables or disables auto-resync
func ToggleAutoSyncCmd(actions Actions, enable bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		state, err := actions.ToggleAutoSync(ctx, enable)
		if err != nil {
			return ErrMsg{Err: err, Context: "toggling auto sync"}
		}
		return AutoSyncToggledMsg{State: *state}
	}
}

// CategorizeCmd runs the server-side categorization pass
func CategorizeCmd(actions Actions) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*actionTimeout)
		defer cancel()

		result, err := actions.Categorize(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "categorizing"}
		}
		return CategorizedMsg{Result: *result}
	}
}

// TickCmd creates a tick command for animations
func TickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd clears the status message after a delay, unless a newer one replaced it
func ClearStatusCmd(d time.Duration, seq int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}
