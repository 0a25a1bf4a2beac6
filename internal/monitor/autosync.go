package monitor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmcdole/collie/internal/clock"
	"github.com/mmcdole/collie/internal/domain"
)

// AutoSyncScheduler mirrors the server's auto-resync schedule.
//
// The countdown is cached and only recomputed by Apply and Recompute, so a
// display reading Countdown between recompute ticks sees a stable value and
// no request is made to refresh it.
type AutoSyncScheduler struct {
	repo   domain.SyncRepository
	clock  clock.TimeProvider
	logger *slog.Logger

	mu        sync.Mutex
	state     domain.AutoSyncState
	countdown string
}

// NewAutoSyncScheduler creates a disabled scheduler
func NewAutoSyncScheduler(repo domain.SyncRepository, tp clock.TimeProvider, logger *slog.Logger) *AutoSyncScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if tp == nil {
		tp = clock.RealTimeProvider{}
	}
	return &AutoSyncScheduler{repo: repo, clock: tp, logger: logger}
}

// Fetch reads the current schedule without touching local state
func (s *AutoSyncScheduler) Fetch(ctx context.Context) (*domain.AutoSyncState, error) {
	return s.repo.GetAutoSync(ctx)
}

// Toggle asks the server to enable or disable auto-resync. Local state is not
// touched: the server computes the next run, so callers Apply its response.
func (s *AutoSyncScheduler) Toggle(ctx context.Context, enable bool) (*domain.AutoSyncState, error) {
	return s.repo.SetAutoSync(ctx, enable)
}

// Apply replaces the held state and recomputes the countdown
func (s *AutoSyncScheduler) Apply(state *domain.AutoSyncState) {
	if state == nil {
		return
	}
	cp := *state
	if cp.NextRunAt != nil {
		next := *cp.NextRunAt
		cp.NextRunAt = &next
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = cp
	s.countdown = s.format()
}

// Recompute refreshes the countdown from the clock and returns it
func (s *AutoSyncScheduler) Recompute() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countdown = s.format()
	return s.countdown
}

// format must be called with s.mu held
func (s *AutoSyncScheduler) format() string {
	if !s.state.Enabled {
		return ""
	}
	return clock.FormatCountdown(s.state.NextRunAt, s.clock.Now())
}

// State returns a copy of the held schedule
func (s *AutoSyncScheduler) State() domain.AutoSyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.state
	if cp.NextRunAt != nil {
		next := *cp.NextRunAt
		cp.NextRunAt = &next
	}
	return cp
}

// Countdown returns the cached countdown string
func (s *AutoSyncScheduler) Countdown() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdown
}
