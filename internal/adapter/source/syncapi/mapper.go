package syncapi

import (
	"strings"
	"time"

	"github.com/mmcdole/collie/internal/domain"
)

// Layouts the backend is known to emit. Naive timestamps are treated as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime parses a server timestamp, returning nil for empty or unknown formats
func parseTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// MapStatus converts a status response to a domain SyncStatus
func MapStatus(r StatusResponse) *domain.SyncStatus {
	return &domain.SyncStatus{
		IsSyncing:        r.IsSyncing,
		TotalDocuments:   r.TotalEmails,
		LastSyncAt:       parseTime(r.LastSync),
		HasHistoryCursor: r.HasHistoryID,
	}
}

// MapProgress converts a progress response to a domain SyncProgress
func MapProgress(r ProgressResponse) *domain.SyncProgress {
	p := &domain.SyncProgress{
		IsSyncing:   r.IsSyncing,
		SyncedCount: r.Synced,
		TotalCount:  r.Total,
	}
	if r.Error != nil {
		p.ErrorMessage = *r.Error
	}
	return p
}

// MapLogLines converts raw log lines, tagging them with their origin
func MapLogLines(lines []LogLine, origin domain.LogOrigin) []domain.LogEntry {
	if len(lines) == 0 {
		return nil
	}
	entries := make([]domain.LogEntry, 0, len(lines))
	for _, l := range lines {
		e := domain.LogEntry{
			Level:  domain.ParseLogLevel(l.Level),
			Text:   l.Line,
			Origin: origin,
		}
		if l.TS != nil {
			e.Timestamp = *l.TS
		}
		entries = append(entries, e)
	}
	return entries
}

// MapLogs converts a logs response to a domain LogBatch
func MapLogs(r LogsResponse) *domain.LogBatch {
	return &domain.LogBatch{
		ScriptLines:     MapLogLines(r.ScriptLines, domain.OriginScript),
		APILogs:         MapLogLines(r.APILogs, domain.OriginAPI),
		ScriptLogExists: r.ScriptLogExists,
	}
}

// MapAutoSync converts an auto-sync response to a domain AutoSyncState
func MapAutoSync(r AutoSyncResponse) *domain.AutoSyncState {
	return &domain.AutoSyncState{
		Enabled:       r.Enabled,
		NextRunAt:     parseTime(r.NextRun),
		IntervalHours: r.IntervalHours,
	}
}

// MapCategorize converts a categorize response to a domain CategorizeResult
func MapCategorize(r CategorizeResponse) *domain.CategorizeResult {
	cats := r.Categories
	if cats == nil {
		cats = map[string]int{}
	}
	return &domain.CategorizeResult{Updated: r.Updated, Categories: cats}
}
