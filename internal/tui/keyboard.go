package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyMsg routes keys: the modal form first, then the filter input,
// then global actions, and finally log scrolling.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.StartForm.IsVisible() {
		return m.handleStartForm(msg)
	}

	if m.LogView.IsFiltering() {
		var cmd tea.Cmd
		m.LogView, cmd = m.LogView.Update(msg)
		return m, cmd
	}

	if m.ShowHelp {
		if key.Matches(msg, Keys.Quit) {
			return m, tea.Quit
		}
		m.ShowHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.ShowHelp = true
		return m, nil

	case key.Matches(msg, Keys.StartFull):
		if !m.canStartFull() {
			return m, m.setStatus("A sync is already running", true)
		}
		m.StartForm.Show(m.opts.MaxEmails, m.suggestedDaysBack())
		return m, nil

	case key.Matches(msg, Keys.StartIncremental):
		if !m.canStartIncremental() {
			return m, m.setStatus(m.incrementalBlockedReason(), true)
		}
		m.Pending = true
		return m, StartIncrementalCmd(m.actions)

	case key.Matches(msg, Keys.ToggleAutoSync):
		if m.Pending {
			return m, nil
		}
		m.Pending = true
		return m, ToggleAutoSyncCmd(m.actions, !m.snap.AutoSync.Enabled)

	case key.Matches(msg, Keys.Categorize):
		if m.Pending {
			return m, nil
		}
		m.Pending = true
		return m, tea.Batch(m.setStatus("Categorizing...", false), CategorizeCmd(m.actions))
	}

	var cmd tea.Cmd
	m.LogView, cmd = m.LogView.Update(msg)
	return m, cmd
}

func (m Model) handleStartForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var submitted bool
	m.StartForm, cmd, submitted = m.StartForm.Update(msg)
	if !submitted {
		return m, cmd
	}

	req, err := m.StartForm.Value()
	if err != nil {
		return m, cmd
	}
	m.StartForm.Hide()
	m.Pending = true
	return m, StartFullCmd(m.actions, req.MaxEmails, req.DaysBack)
}

func (m Model) incrementalBlockedReason() string {
	switch {
	case m.snap.IsSyncing || m.Pending:
		return "A sync is already running"
	case m.snap.Status == nil:
		return "Waiting for server status"
	default:
		return "Run a full sync first"
	}
}
