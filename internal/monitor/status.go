package monitor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmcdole/collie/internal/domain"
)

// StatusFetcher holds the latest status snapshot and live count.
// Both are idempotent reads that replace local state wholesale.
type StatusFetcher struct {
	repo   domain.SyncRepository
	logger *slog.Logger

	mu        sync.Mutex
	status    *domain.SyncStatus
	liveCount *int
}

// NewStatusFetcher creates a fetcher with no known state
func NewStatusFetcher(repo domain.SyncRepository, logger *slog.Logger) *StatusFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusFetcher{repo: repo, logger: logger}
}

// FetchStatus reads the status endpoint without touching local state
func (f *StatusFetcher) FetchStatus(ctx context.Context) (*domain.SyncStatus, error) {
	return f.repo.GetStatus(ctx)
}

// FetchLiveCount reads the live-count endpoint without touching local state
func (f *StatusFetcher) FetchLiveCount(ctx context.Context) (int, error) {
	return f.repo.GetLiveCount(ctx)
}

// ApplyStatus replaces the held snapshot
func (f *StatusFetcher) ApplyStatus(status *domain.SyncStatus) {
	if status == nil {
		return
	}
	cp := *status
	f.mu.Lock()
	f.status = &cp
	f.mu.Unlock()
}

// ApplyLiveCount replaces the held live count
func (f *StatusFetcher) ApplyLiveCount(count int) {
	f.mu.Lock()
	f.liveCount = &count
	f.mu.Unlock()
}

// Status returns a copy of the held snapshot, or nil before the first fetch
func (f *StatusFetcher) Status() *domain.SyncStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == nil {
		return nil
	}
	cp := *f.status
	return &cp
}

// LiveCount returns a copy of the held count, or nil before the first fetch
func (f *StatusFetcher) LiveCount() *int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.liveCount == nil {
		return nil
	}
	n := *f.liveCount
	return &n
}
