package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/mmcdole/collie/internal/domain"
	"github.com/mmcdole/collie/internal/tui/components"
)

// PlainRenderer writes snapshots as plain text lines: new log output plus a
// line whenever the job state, progress or refresh error changes. It is the
// dashboard's counterpart for pipes and files.
type PlainRenderer struct {
	mu sync.Mutex
	w  io.Writer

	scriptSeen []domain.LogEntry // Script lines as last written
	apiPrinted string            // Timestamp of the last api line written
	syncing    bool
	progress   string
	jobErr     string
	refreshErr string
}

// NewPlainRenderer creates a renderer writing to w
func NewPlainRenderer(w io.Writer) *PlainRenderer {
	return &PlainRenderer{w: w}
}

// OnSnapshot implements domain.SnapshotObserver
func (r *PlainRenderer) OnSnapshot(snap domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.writeLogs(snap)
	r.writeState(snap)
}

func (r *PlainRenderer) writeLogs(snap domain.Snapshot) {
	var script, api []domain.LogEntry
	for _, e := range snap.Logs {
		if e.Origin == domain.OriginAPI {
			api = append(api, e)
		} else {
			script = append(script, e)
		}
	}

	// The script log is resent whole and may be rewritten; print from the
	// first line that differs from what was already written.
	start := commonPrefix(r.scriptSeen, script)
	for _, e := range script[start:] {
		fmt.Fprintln(r.w, FormatPlainLine(e))
	}
	r.scriptSeen = script

	// The api cursor only moves backwards when a new job reset it.
	if snap.LogCursor < r.apiPrinted {
		r.apiPrinted = ""
	}
	for _, e := range api {
		if r.apiPrinted != "" && e.Timestamp <= r.apiPrinted {
			continue
		}
		fmt.Fprintln(r.w, FormatPlainLine(e))
		r.apiPrinted = e.Timestamp
	}
}

func (r *PlainRenderer) writeState(snap domain.Snapshot) {
	if snap.IsSyncing != r.syncing {
		r.syncing = snap.IsSyncing
		if snap.IsSyncing {
			fmt.Fprintln(r.w, "== sync running")
		} else {
			r.progress = ""
			fmt.Fprintln(r.w, "== sync idle")
		}
	}

	if snap.IsSyncing && snap.Progress != nil {
		if line := formatPlainProgress(*snap.Progress); line != r.progress {
			r.progress = line
			fmt.Fprintln(r.w, line)
		}
	}

	var jobErr string
	if snap.Progress != nil {
		jobErr = snap.Progress.ErrorMessage
	}
	if jobErr != r.jobErr {
		r.jobErr = jobErr
		if jobErr != "" {
			fmt.Fprintf(r.w, "!! job error: %s\n", jobErr)
		}
	}

	var refreshErr string
	if snap.LastError != nil {
		refreshErr = DescribeError(snap.LastError)
	}
	if refreshErr != r.refreshErr {
		r.refreshErr = refreshErr
		if refreshErr != "" {
			fmt.Fprintf(r.w, "!! %s\n", refreshErr)
		}
	}
}

func commonPrefix(a, b []domain.LogEntry) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// FormatPlainLine renders a log entry without styling
func FormatPlainLine(e domain.LogEntry) string {
	if e.Origin == domain.OriginAPI && e.Timestamp != "" {
		return fmt.Sprintf("%s %-7s %s", components.ShortTimestamp(e.Timestamp), e.Level, e.Text)
	}
	return fmt.Sprintf("%-7s %s", e.Level, e.Text)
}

func formatPlainProgress(p domain.SyncProgress) string {
	pct, known := p.Percent()
	if !known {
		return fmt.Sprintf("-- synced %s", FormatCount(p.SyncedCount))
	}
	return fmt.Sprintf("-- synced %s / %s (%.0f%%)", FormatCount(p.SyncedCount), FormatCount(p.TotalCount), pct)
}
