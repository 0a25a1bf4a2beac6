package domain

// Snapshot is a consistent copy of everything the monitor knows.
// Observers receive a fresh value after every applied change.
type Snapshot struct {
	Status    *SyncStatus
	Progress  *SyncProgress
	LiveCount *int
	IsSyncing bool
	AutoSync  AutoSyncState
	Countdown string
	Logs      []LogEntry // Script lines then api lines
	LogCursor string
	ScriptLog bool // Server reported a script log file
	LastError error
}

// SnapshotObserver receives snapshots as the monitor state changes.
type SnapshotObserver interface {
	OnSnapshot(snap Snapshot)
}

// NoOpObserver discards snapshots (for testing/one-shot commands).
type NoOpObserver struct{}

func (NoOpObserver) OnSnapshot(Snapshot) {}
