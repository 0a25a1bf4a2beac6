package tui

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/collie/internal/domain"
	"github.com/mmcdole/collie/internal/tui/styles"
)

// View renders the dashboard
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.ShowHelp {
		return m.renderHelp()
	}

	view := lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderPanel(),
		m.LogView.View(),
		m.renderFooter(),
	)

	// Overlay start form if visible
	if m.StartForm.IsVisible() {
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.StartForm.View())
	}

	return view
}

// renderPanel renders the header and status lines at a fixed height
func (m Model) renderPanel() string {
	lines := []string{
		m.renderHeader(),
		statusRow("Emails", m.renderCounts()),
		statusRow("Last sync", m.renderLastSync()),
		statusRow("Sync", m.renderSyncState()),
		statusRow("Auto sync", m.renderAutoSync()),
		m.renderNotice(),
	}
	for len(lines) < PanelHeight {
		lines = append(lines, "")
	}
	return lipgloss.NewStyle().Width(m.Width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderHeader() string {
	title := styles.BadgeStyle.Render("collie")
	server := styles.SubtitleStyle.Render(" " + m.opts.ServerURL)
	var who string
	if m.opts.Identity != "" {
		who = styles.DimStyle.Render(m.opts.Identity)
	}
	gap := max(m.Width-lipgloss.Width(title)-lipgloss.Width(server)-lipgloss.Width(who), 1)
	return title + server + strings.Repeat(" ", gap) + who
}

func statusRow(label, value string) string {
	return styles.PanelStyle.Render(styles.StatusLabelStyle.Render(label) + value)
}

func (m Model) renderCounts() string {
	if !m.hasSnap || m.snap.Status == nil {
		return styles.DimStyle.Render("-")
	}
	text := styles.StatusValueStyle.Render(FormatCount(m.snap.Status.TotalDocuments) + " stored")
	if m.snap.LiveCount != nil && *m.snap.LiveCount != m.snap.Status.TotalDocuments {
		text += styles.DimStyle.Render(fmt.Sprintf(" · %s live", FormatCount(*m.snap.LiveCount)))
	}
	return text
}

func (m Model) renderLastSync() string {
	status := m.snap.Status
	if status == nil || status.LastSyncAt == nil {
		return styles.DimStyle.Render("never")
	}
	text := styles.StatusValueStyle.Render(status.LastSyncAt.Local().Format("2006-01-02 15:04")) +
		styles.DimStyle.Render(" ("+FormatAgo(*status.LastSyncAt, time.Now())+")")
	if !status.HasHistoryCursor {
		text += styles.DimStyle.Render(" · no history cursor")
	}
	return text
}

func (m Model) renderSyncState() string {
	if !m.snap.IsSyncing {
		return styles.StatusValueStyle.Render("Idle")
	}

	spinner := RenderSpinner(m.SpinnerFrame)
	prog := m.snap.Progress
	if prog == nil {
		return spinner + " " + styles.AccentStyle.Render("Starting...")
	}

	pct, known := prog.Percent()
	if !known {
		return spinner + " " + styles.AccentStyle.Render(fmt.Sprintf("Syncing %s", FormatCount(prog.SyncedCount)))
	}
	return spinner + " " + styles.AccentStyle.Render(fmt.Sprintf("Syncing %s / %s ", FormatCount(prog.SyncedCount), FormatCount(prog.TotalCount))) +
		m.Progress.ViewAs(pct/100) +
		styles.StatusValueStyle.Render(fmt.Sprintf(" %3.0f%%", pct))
}

func (m Model) renderAutoSync() string {
	auto := m.snap.AutoSync
	if !auto.Enabled {
		return styles.DimStyle.Render("Off")
	}
	text := styles.SuccessStyle.Render("On")
	if auto.IntervalHours > 0 {
		text += styles.DimStyle.Render(" · every "+FormatHours(auto.IntervalHours))
	}
	if m.snap.Countdown != "" {
		text += styles.DimStyle.Render(" · next in ") + styles.StatusValueStyle.Render(m.snap.Countdown)
	}
	return text
}

// renderNotice shows the job error, or the last refresh failure
func (m Model) renderNotice() string {
	if m.snap.Progress != nil && m.snap.Progress.ErrorMessage != "" {
		return styles.PanelStyle.Render(styles.WarningStyle.Render("⚠ " + m.snap.Progress.ErrorMessage))
	}
	if m.snap.LastError != nil {
		return styles.PanelStyle.Render(styles.ErrorStyle.Render("✗ " + DescribeError(m.snap.LastError)))
	}
	return ""
}

// renderFooter renders a single-line footer plus the status line
func (m Model) renderFooter() string {
	hints := []string{
		hint("s", "full sync", m.canStartFull()),
		hint("i", "incremental", m.canStartIncremental()),
		hint("a", autoSyncHint(m.snap.AutoSync.Enabled), !m.Pending),
		hint("c", "categorize", !m.Pending),
		hint("/", "filter", true),
	}
	left := strings.Join(hints, "  ")
	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")
	gap := max(m.Width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	footer := left + strings.Repeat(" ", gap) + right

	var status string
	switch {
	case m.StatusMsg != "" && m.StatusIsErr:
		status = styles.ErrorStyle.Render(m.StatusMsg)
	case m.StatusMsg != "":
		status = styles.DimStyle.Render(m.StatusMsg)
	case m.Pending:
		status = RenderSpinner(m.SpinnerFrame) + styles.DimStyle.Render(" Working...")
	}

	return lipgloss.JoinVertical(lipgloss.Left, status, footer)
}

func hint(k, desc string, enabled bool) string {
	if !enabled {
		return styles.HelpDisabledStyle.Render(k + " " + desc)
	}
	return styles.HelpKeyStyle.Render(k) + " " + styles.HelpDescStyle.Render(desc)
}

func autoSyncHint(enabled bool) string {
	if enabled {
		return "auto off"
	}
	return "auto on"
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	help := `
SYNC                            LOGS
  s          Start full sync       j/k        Scroll line
  i          Incremental sync      PgUp/PgDn  Scroll page
  a          Toggle auto sync      Ctrl+u/d   Scroll half page
  c          Categorize emails     g/Home     Top
                                   G/End      Follow new output
OTHER                              /          Filter (level:error)
  q          Quit                  Esc        Clear filter
  ?          This help

Press any key to return...
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}

// RenderSpinner renders a loading spinner
func RenderSpinner(frame int) string {
	return styles.SpinnerStyle.Render(styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])
}

// FormatCount renders n with thousands separators
func FormatCount(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatAgo renders how long ago t was, coarsely
func FormatAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// FormatHours renders an auto-sync interval such as "6h" or "1.5h"
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

// FormatCategorized summarizes a categorization pass, largest categories first
func FormatCategorized(r domain.CategorizeResult) string {
	text := fmt.Sprintf("Categorized %s emails", FormatCount(r.Updated))
	if len(r.Categories) == 0 {
		return text
	}

	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(r.Categories))
	for name, count := range r.Categories {
		entries = append(entries, entry{name, count})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})

	parts := make([]string, 0, 3)
	for _, e := range entries[:min(len(entries), 3)] {
		parts = append(parts, fmt.Sprintf("%s %s", e.name, FormatCount(e.count)))
	}
	return text + " (" + strings.Join(parts, ", ") + ")"
}
