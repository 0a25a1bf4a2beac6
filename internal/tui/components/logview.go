package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/collie/internal/domain"
	"github.com/mmcdole/collie/internal/monitor"
	"github.com/mmcdole/collie/internal/tui/styles"
)

// LogView renders the merged log in a scrollable pane that follows new
// output while the reader is at the bottom.
type LogView struct {
	viewport viewport.Model
	follower *monitor.Follower

	entries  []domain.LogEntry // Everything, display order
	filtered []domain.LogEntry // What is rendered

	filterInput textinput.Model
	filtering   bool   // Filter input has focus
	filterQuery string // Applied query

	width  int
	height int
}

// NewLogView creates a log pane. threshold is the pin distance in lines.
func NewLogView(threshold int) LogView {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle
	ti.Placeholder = "filter logs (level:error)"
	ti.PlaceholderStyle = styles.DimStyle
	ti.CharLimit = 80

	return LogView{
		viewport:    viewport.New(0, 0),
		follower:    monitor.NewFollower(threshold),
		filterInput: ti,
	}
}

// SetSize updates the pane dimensions, including the title line
func (v *LogView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-1, 1)
	v.filterInput.Width = max(width-4, 10)
	v.render(false)
}

// SetEntries replaces the merged log. The pane scrolls to the bottom when the
// visible content grew and the reader is pinned.
func (v *LogView) SetEntries(entries []domain.LogEntry) {
	before := len(v.filtered)
	var lastBefore domain.LogEntry
	if before > 0 {
		lastBefore = v.filtered[before-1]
	}

	v.entries = entries
	v.applyFilter()

	grew := len(v.filtered) > before ||
		(len(v.filtered) > 0 && v.filtered[len(v.filtered)-1] != lastBefore)
	v.render(grew)
}

// Update handles scrolling and filter input
func (v LogView) Update(msg tea.Msg) (LogView, tea.Cmd) {
	if v.filtering {
		return v.updateFilter(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, LogViewKeys.Filter):
			v.filtering = true
			v.filterInput.SetValue(v.filterQuery)
			return v, v.filterInput.Focus()
		case key.Matches(keyMsg, LogViewKeys.Escape):
			if v.filterQuery != "" {
				v.filterQuery = ""
				v.applyFilter()
				v.render(false)
			}
			return v, nil
		case key.Matches(keyMsg, LogViewKeys.Home):
			v.viewport.GotoTop()
			v.observe()
			return v, nil
		case key.Matches(keyMsg, LogViewKeys.End):
			v.follower.JumpToBottom()
			v.viewport.GotoBottom()
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	v.observe()
	return v, cmd
}

func (v LogView) updateFilter(msg tea.Msg) (LogView, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, LogViewKeys.Escape):
			v.filtering = false
			v.filterInput.Blur()
			v.filterQuery = ""
			v.applyFilter()
			v.render(false)
			return v, nil
		case key.Matches(keyMsg, LogViewKeys.Enter):
			v.filtering = false
			v.filterInput.Blur()
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.filterInput, cmd = v.filterInput.Update(msg)
	if q := v.filterInput.Value(); q != v.filterQuery {
		v.filterQuery = q
		v.applyFilter()
		v.follower.JumpToBottom()
		v.render(true)
	}
	return v, cmd
}

// IsFiltering reports whether the filter input has focus
func (v LogView) IsFiltering() bool {
	return v.filtering
}

// FilterQuery returns the applied filter
func (v LogView) FilterQuery() string {
	return v.filterQuery
}

// Following reports whether new output scrolls into view
func (v LogView) Following() bool {
	return v.follower.Pinned()
}

// VisibleCount returns how many entries pass the filter
func (v LogView) VisibleCount() int {
	return len(v.filtered)
}

// View renders the title line and the log lines
func (v LogView) View() string {
	var title string
	if v.filtering {
		title = v.filterInput.View()
	} else {
		title = styles.TitleStyle.Render("Logs")
		if v.filterQuery != "" {
			title += styles.DimStyle.Render(fmt.Sprintf("  /%s  %d of %d", v.filterQuery, len(v.filtered), len(v.entries)))
		}
		if !v.follower.Pinned() {
			title += "  " + styles.DimBadgeStyle.Render("paused · G to follow")
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, v.viewport.View())
}

func (v *LogView) applyFilter() {
	v.filtered = monitor.FilterEntries(v.entries, v.filterQuery)
}

// render rebuilds the viewport content, re-pins when grew and following, and
// records the resulting geometry
func (v *LogView) render(grew bool) {
	if len(v.filtered) == 0 {
		msg := "No log output yet"
		if v.filterQuery != "" {
			msg = "No lines match the filter"
		}
		v.viewport.SetContent(styles.DimStyle.Render(msg))
		v.observe()
		return
	}

	lines := make([]string, len(v.filtered))
	for i, e := range v.filtered {
		lines[i] = RenderLogLine(e, v.filterQuery, v.width)
	}
	v.viewport.SetContent(strings.Join(lines, "\n"))

	if v.follower.ShouldScroll(grew) {
		v.viewport.GotoBottom()
	}
	// Shrinking content can bring an unpinned reader back within reach
	v.observe()
}

// observe feeds the viewport geometry back into the follower
func (v *LogView) observe() {
	v.follower.Observe(v.viewport.TotalLineCount(), v.viewport.YOffset, v.viewport.Height)
}

// RenderLogLine styles one entry: api lines carry their timestamp, errors are
// red, warnings yellow and completion lines green. Query matches are highlighted.
func RenderLogLine(e domain.LogEntry, query string, width int) string {
	style := levelStyle(e)

	var prefix string
	if e.Origin == domain.OriginAPI && e.Timestamp != "" {
		prefix = styles.TimestampStyle.Render(ShortTimestamp(e.Timestamp)) + " "
	}
	if e.Level != domain.LevelInfo {
		prefix += style.Render(string(e.Level)) + " "
	}

	text := e.Text
	if width > 0 {
		text = styles.Truncate(text, max(width-lipgloss.Width(prefix), 1))
	}
	return prefix + highlight(text, query, style)
}

func levelStyle(e domain.LogEntry) lipgloss.Style {
	switch {
	case e.Level == domain.LevelError:
		return styles.LogErrorStyle
	case e.Level == domain.LevelWarning:
		return styles.LogWarningStyle
	case strings.Contains(strings.ToLower(e.Text), "complete"), strings.HasPrefix(e.Text, "Done"):
		return styles.LogDoneStyle
	default:
		return styles.LogInfoStyle
	}
}

// ShortTimestamp keeps the time of day from an ISO-8601 timestamp
func ShortTimestamp(ts string) string {
	if _, after, ok := strings.Cut(ts, "T"); ok && len(after) >= 8 {
		return after[:8]
	}
	return ts
}

// highlight renders text in base with the runes matched by each query word
// picked out. Level terms are not part of the text and are skipped.
func highlight(text, query string, base lipgloss.Style) string {
	matched := make(map[int]bool)
	lower := strings.ToLower(text)
	if len(lower) == len(text) {
		for _, word := range strings.Fields(query) {
			if strings.HasPrefix(strings.ToLower(word), "level:") {
				continue
			}
			for _, m := range fuzzy.Find(strings.ToLower(word), []string{lower}) {
				for _, idx := range m.MatchedIndexes {
					matched[idx] = true
				}
			}
		}
	}
	if len(matched) == 0 {
		return base.Render(text)
	}

	var b strings.Builder
	var run strings.Builder
	runMatched := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if runMatched {
			b.WriteString(styles.MatchHighlightStyle.Render(run.String()))
		} else {
			b.WriteString(base.Render(run.String()))
		}
		run.Reset()
	}
	for i, r := range text {
		if matched[i] != runMatched {
			flush()
			runMatched = matched[i]
		}
		run.WriteRune(r)
	}
	flush()
	return b.String()
}
