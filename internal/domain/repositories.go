package domain

import (
	"context"
)

// SyncRepository is the request/response contract of the sync backend.
// Every method is a single round trip; implementations never retry.
type SyncRepository interface {
	// GetStatus returns the current status snapshot
	GetStatus(ctx context.Context) (*SyncStatus, error)

	// GetProgress returns progress of the running (or last) job
	GetProgress(ctx context.Context) (*SyncProgress, error)

	// GetLiveCount returns the number of stored emails right now
	GetLiveCount(ctx context.Context) (int, error)

	// GetLogs returns script lines and api logs strictly after the cursor.
	// An empty cursor reads the api log from the start.
	GetLogs(ctx context.Context, after string) (*LogBatch, error)

	// StartFull asks the server to start a full sync job
	StartFull(ctx context.Context, req StartRequest) error

	// StartIncremental asks the server to start an incremental sync job
	StartIncremental(ctx context.Context) error

	// GetAutoSync returns the auto-resync schedule
	GetAutoSync(ctx context.Context) (*AutoSyncState, error)

	// SetAutoSync enables or disables auto-resync and returns the server's new state
	SetAutoSync(ctx context.Context, enabled bool) (*AutoSyncState, error)

	// Categorize runs the server-side categorization pass
	Categorize(ctx context.Context) (*CategorizeResult, error)
}

// IdentityRepository verifies the configured session
type IdentityRepository interface {
	// Me returns the authenticated identity
	Me(ctx context.Context) (*Identity, error)
}
