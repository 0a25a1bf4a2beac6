package domain

// SnapshotStore persists the last known monitor state (BoltDB + memory).
// Reads report ok=false when nothing was stored yet.
type SnapshotStore interface {
	// === Status ===
	GetStatus() (*SyncStatus, bool)
	SaveStatus(status SyncStatus) error

	// === Auto-sync ===
	GetAutoSync() (*AutoSyncState, bool)
	SaveAutoSync(state AutoSyncState) error

	// === Log tail ===
	GetLogTail() (*LogTail, bool)
	SaveLogTail(tail LogTail) error
	ClearLogTail()

	// === Lifecycle ===
	Close() error
}

// LogTail is the persisted api-log position and buffer
type LogTail struct {
	Cursor  string
	Entries []LogEntry
}
