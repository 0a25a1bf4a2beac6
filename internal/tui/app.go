package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/collie/internal/domain"
	"github.com/mmcdole/collie/internal/tui/components"
	"github.com/mmcdole/collie/internal/tui/styles"
)

// Options configures the dashboard
type Options struct {
	ServerURL       string
	Identity        string // Signed-in account, empty when unknown
	MaxEmails       int    // Full sync form default
	DaysBack        *int   // Full sync form default, nil for all mail
	FollowThreshold int    // Lines from the bottom that still follow new output
	LogHeight       int    // Log pane height, 0 fills the terminal
}

// Layout constants
const (
	ChromeHeight   = 2 // Footer and status line
	tickInterval   = 100 * time.Millisecond
	statusLifetime = 5 * time.Second
)

// Model is the main Bubble Tea model for the application
type Model struct {
	Ready bool
	opts  Options

	// Controller
	actions   Actions
	snapshots <-chan domain.Snapshot
	snap      domain.Snapshot
	hasSnap   bool

	// UI Components
	LogView   components.LogView
	StartForm components.StartForm
	Progress  progress.Model

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	statusSeq    int
	Pending      bool // An action request is in flight
	SpinnerFrame int
	ShowHelp     bool
}

// NewModel creates a new application model fed by snapshots
func NewModel(actions Actions, snapshots <-chan domain.Snapshot, opts Options) Model {
	bar := progress.New(
		progress.WithSolidFill(string(styles.Accent)),
		progress.WithoutPercentage(),
	)
	return Model{
		opts:      opts,
		actions:   actions,
		snapshots: snapshots,
		LogView:   components.NewLogView(opts.FollowThreshold),
		StartForm: components.NewStartForm(),
		Progress:  bar,
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		WaitForSnapshotCmd(m.snapshots),
		TickCmd(tickInterval),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.LogView, cmd = m.LogView.Update(msg)
		return m, cmd

	case SnapshotMsg:
		m.applySnapshot(msg.Snapshot)
		return m, WaitForSnapshotCmd(m.snapshots)

	case TickMsg:
		if m.snap.IsSyncing || m.Pending {
			m.SpinnerFrame++
		}
		return m, TickCmd(tickInterval)

	case SyncStartedMsg:
		m.Pending = false
		if msg.Incremental {
			return m, m.setStatus("Incremental sync started", false)
		}
		return m, m.setStatus("Full sync started", false)

	case AutoSyncToggledMsg:
		m.Pending = false
		m.snap.AutoSync = msg.State
		if msg.State.Enabled {
			return m, m.setStatus("Auto sync enabled", false)
		}
		return m, m.setStatus("Auto sync disabled", false)

	case CategorizedMsg:
		m.Pending = false
		return m, m.setStatus(FormatCategorized(msg.Result), false)

	case ErrMsg:
		m.Pending = false
		return m, m.setStatus(msg.Error(), true)

	case ClearStatusMsg:
		if msg.Seq == m.statusSeq {
			m.StatusMsg = ""
			m.StatusIsErr = false
		}
		return m, nil
	}

	return m, nil
}

// applySnapshot replaces the rendered state
func (m *Model) applySnapshot(snap domain.Snapshot) {
	m.snap = snap
	m.hasSnap = true
	m.LogView.SetEntries(snap.Logs)
}

// setStatus shows a transient message in the footer
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.StatusMsg = text
	m.StatusIsErr = isErr
	return ClearStatusCmd(statusLifetime, m.statusSeq)
}

// Snapshot returns the state currently rendered
func (m Model) Snapshot() domain.Snapshot {
	return m.snap
}

// canStartFull reports whether a full sync may be requested
func (m Model) canStartFull() bool {
	return !m.snap.IsSyncing && !m.Pending
}

// canStartIncremental mirrors the controller's rule from the rendered snapshot
func (m Model) canStartIncremental() bool {
	return m.canStartFull() && m.snap.Status != nil && m.snap.Status.HasHistoryCursor
}

// suggestedDaysBack drops the default window when the server has no history cursor yet
func (m Model) suggestedDaysBack() *int {
	if m.snap.Status != nil && !m.snap.Status.HasHistoryCursor {
		return nil
	}
	return m.opts.DaysBack
}
