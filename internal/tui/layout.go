package tui

// PanelHeight is the fixed height of the header and status panel above the logs
const PanelHeight = 7

// logPaneHeight returns the rows available to the log pane
func (m Model) logPaneHeight() int {
	available := m.Height - PanelHeight - ChromeHeight
	if m.opts.LogHeight > 0 && m.opts.LogHeight < available {
		return m.opts.LogHeight
	}
	return max(available, 3)
}

// updateLayout updates component sizes based on window size
func (m *Model) updateLayout() {
	if m.Width == 0 || m.Height == 0 {
		return
	}

	m.LogView.SetSize(m.Width, m.logPaneHeight())
	m.Progress.Width = min(max(m.Width/3, 10), 40)
}
