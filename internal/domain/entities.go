package domain

import (
	"strings"
	"time"
)

// SyncStatus is a point-in-time snapshot of the server's sync state.
// It is always replaced wholesale, never patched.
type SyncStatus struct {
	IsSyncing        bool       // Server believes a job is running
	TotalDocuments   int        // Emails currently stored
	LastSyncAt       *time.Time // Last completed full sync (nil if never)
	HasHistoryCursor bool       // Incremental sync is possible
}

// SyncProgress reports how far the running job has come.
type SyncProgress struct {
	IsSyncing    bool
	SyncedCount  int
	TotalCount   int
	ErrorMessage string // Job-reported failure, rendered verbatim
}

// Percent returns completion in [0,100].
// ok is false while the total is unknown (indeterminate progress).
func (p SyncProgress) Percent() (pct float64, ok bool) {
	if p.TotalCount <= 0 {
		return 0, false
	}
	pct = float64(p.SyncedCount) / float64(p.TotalCount) * 100
	return min(max(pct, 0), 100), true
}

// LogLevel is the severity attached to a log line
type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
)

// ParseLogLevel normalizes a server level string. Unknown levels map to INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WARNING", "WARN":
		return LevelWarning
	case "ERROR", "CRITICAL":
		return LevelError
	default:
		return LevelInfo
	}
}

// LogOrigin identifies which append-only source a line came from
type LogOrigin string

const (
	// OriginScript lines are resent in full on every fetch.
	OriginScript LogOrigin = "script"
	// OriginAPI lines are returned only when newer than the client cursor.
	OriginAPI LogOrigin = "api"
)

// LogEntry is a single line of either log source
type LogEntry struct {
	Level     LogLevel
	Text      string
	Timestamp string // Opaque server timestamp; empty for most script lines
	Origin    LogOrigin
}

// LogBatch is one response from the log endpoint
type LogBatch struct {
	ScriptLines     []LogEntry // Authoritative full replacement
	APILogs         []LogEntry // Strictly newer than the requested cursor
	ScriptLogExists bool
}

// AutoSyncState is the server-owned auto-resync schedule
type AutoSyncState struct {
	Enabled       bool
	NextRunAt     *time.Time
	IntervalHours float64
}

// StartRequest describes a full sync job
type StartRequest struct {
	MaxDocuments int
	DaysBack     *int // nil syncs all mail
}

// CategorizeResult is the opaque result of a categorization pass
type CategorizeResult struct {
	Updated    int
	Categories map[string]int
}

// Identity is the authenticated user reported by the server
type Identity struct {
	Email string
	Name  string
}
