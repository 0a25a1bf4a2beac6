package monitor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmcdole/collie/internal/domain"
)

// DefaultMaxAPIEntries caps the accumulated api log buffer
const DefaultMaxAPIEntries = 500

// LogRequest pins the cursor and reset epoch a log fetch was issued with
type LogRequest struct {
	Cursor string
	Epoch  uint64
}

// LogTailer merges two log sources with different update policies:
//
//   - script lines are replaced wholesale on every fetch
//   - api lines are appended after a cursor that only ever advances
//
// Timestamps are opaque strings compared lexically, which is how the server
// applies its "strictly after" filter.
type LogTailer struct {
	repo       domain.SyncRepository
	logger     *slog.Logger
	maxEntries int

	mu           sync.Mutex
	script       []domain.LogEntry
	api          []domain.LogEntry
	cursor       string
	epoch        uint64
	scriptExists bool
}

// NewLogTailer creates an empty tailer. maxEntries <= 0 uses DefaultMaxAPIEntries.
func NewLogTailer(repo domain.SyncRepository, maxEntries int, logger *slog.Logger) *LogTailer {
	if logger == nil {
		logger = slog.Default()
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxAPIEntries
	}
	return &LogTailer{repo: repo, logger: logger, maxEntries: maxEntries}
}

// Begin captures the request parameters for the next fetch
func (t *LogTailer) Begin() LogRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return LogRequest{Cursor: t.cursor, Epoch: t.epoch}
}

// Fetch reads the log endpoint for req without touching local state
func (t *LogTailer) Fetch(ctx context.Context, req LogRequest) (*domain.LogBatch, error) {
	return t.repo.GetLogs(ctx, req.Cursor)
}

// Apply merges a fetched batch and returns how many api entries were appended.
//
// The script buffer is always replaced. The api part is dropped when the
// request predates the latest Reset, and entries at or before the held cursor
// are skipped, so a slow response that lands after a newer one can neither
// duplicate entries nor move the cursor backwards.
func (t *LogTailer) Apply(req LogRequest, batch *domain.LogBatch) int {
	if batch == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.script = tagOrigin(batch.ScriptLines, domain.OriginScript)
	t.scriptExists = batch.ScriptLogExists

	if req.Epoch != t.epoch {
		t.logger.Debug("dropping api logs from before reset", "epoch", req.Epoch, "current", t.epoch)
		return 0
	}

	fresh := make([]domain.LogEntry, 0, len(batch.APILogs))
	for _, e := range batch.APILogs {
		if t.cursor != "" && e.Timestamp <= t.cursor {
			continue
		}
		e.Origin = domain.OriginAPI
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return 0
	}

	t.api = append(t.api, fresh...)
	if over := len(t.api) - t.maxEntries; over > 0 {
		t.api = append([]domain.LogEntry(nil), t.api[over:]...)
	}
	if last := fresh[len(fresh)-1].Timestamp; last > t.cursor {
		t.cursor = last
	}
	return len(fresh)
}

// Refresh fetches and applies one batch. Failures leave both buffers untouched.
func (t *LogTailer) Refresh(ctx context.Context) (int, error) {
	req := t.Begin()
	batch, err := t.Fetch(ctx, req)
	if err != nil {
		return 0, err
	}
	return t.Apply(req, batch), nil
}

// Reset clears the api buffer and cursor so a new job's logs start clean.
// Fetches already in flight are invalidated.
func (t *LogTailer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.api = nil
	t.cursor = ""
	t.epoch++
}

// Restore seeds the api buffer from a persisted tail
func (t *LogTailer) Restore(tail domain.LogTail) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries := tagOrigin(tail.Entries, domain.OriginAPI)
	if over := len(entries) - t.maxEntries; over > 0 {
		entries = entries[over:]
	}
	t.api = entries
	t.cursor = tail.Cursor
}

// Tail returns the api buffer and cursor for persistence
func (t *LogTailer) Tail() domain.LogTail {
	t.mu.Lock()
	defer t.mu.Unlock()
	return domain.LogTail{Cursor: t.cursor, Entries: cloneEntries(t.api)}
}

// Cursor returns the last seen api timestamp ("" after a reset)
func (t *LogTailer) Cursor() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor
}

// ScriptEntries returns a copy of the script buffer
func (t *LogTailer) ScriptEntries() []domain.LogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneEntries(t.script)
}

// APIEntries returns a copy of the api buffer, oldest first
func (t *LogTailer) APIEntries() []domain.LogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneEntries(t.api)
}

// ScriptLogExists reports whether the server saw a script log file
func (t *LogTailer) ScriptLogExists() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scriptExists
}

// Merged returns the display order: script lines in server order, then api
// lines oldest to newest.
func (t *LogTailer) Merged() []domain.LogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	merged := make([]domain.LogEntry, 0, len(t.script)+len(t.api))
	merged = append(merged, t.script...)
	return append(merged, t.api...)
}

func tagOrigin(entries []domain.LogEntry, origin domain.LogOrigin) []domain.LogEntry {
	out := cloneEntries(entries)
	for i := range out {
		out[i].Origin = origin
	}
	return out
}

func cloneEntries(entries []domain.LogEntry) []domain.LogEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]domain.LogEntry, len(entries))
	copy(out, entries)
	return out
}
