package monitor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmcdole/collie/internal/domain"
)

// PollState is the ProgressPoller's lifecycle state
type PollState int

const (
	PollIdle PollState = iota
	PollPolling
)

// String returns the state name
func (s PollState) String() string {
	switch s {
	case PollIdle:
		return "idle"
	case PollPolling:
		return "polling"
	default:
		return "unknown"
	}
}

// ProgressPoller tracks job progress while a job is believed active.
// Its state is the single source of truth for "is a job running".
type ProgressPoller struct {
	repo   domain.SyncRepository
	logger *slog.Logger

	mu       sync.Mutex
	state    PollState
	progress *domain.SyncProgress
	settles  uint64 // Jobs seen to finish
}

// NewProgressPoller creates an idle poller
func NewProgressPoller(repo domain.SyncRepository, logger *slog.Logger) *ProgressPoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressPoller{repo: repo, logger: logger}
}

// Activate moves Idle to Polling. It reports whether a transition happened.
func (p *ProgressPoller) Activate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activateLocked()
}

// ActivateSince is Activate for an observation made while Settles returned
// gen. It does nothing once a job has settled after that point, so a status
// read before the job ended cannot restart polling.
func (p *ProgressPoller) ActivateSince(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settles != gen {
		return false
	}
	return p.activateLocked()
}

// Settles returns how many times a polled job has been seen to finish
func (p *ProgressPoller) Settles() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settles
}

func (p *ProgressPoller) activateLocked() bool {
	if p.state == PollPolling {
		return false
	}
	p.state = PollPolling
	p.logger.Debug("progress poller activated")
	return true
}

// State returns the current lifecycle state
func (p *ProgressPoller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Active reports whether the poller is polling
func (p *ProgressPoller) Active() bool {
	return p.State() == PollPolling
}

// Fetch reads the progress endpoint without touching local state
func (p *ProgressPoller) Fetch(ctx context.Context) (*domain.SyncProgress, error) {
	return p.repo.GetProgress(ctx)
}

// Apply replaces the held progress. When a polling poller sees the job is no
// longer syncing it goes idle and reports settled=true so the caller can take
// one extra status snapshot for the final totals.
//
// An error message never stops polling; only IsSyncing=false does.
func (p *ProgressPoller) Apply(progress *domain.SyncProgress) (settled bool) {
	if progress == nil {
		return false
	}
	cp := *progress

	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = &cp
	if p.state == PollPolling && !cp.IsSyncing {
		p.state = PollIdle
		p.settles++
		return true
	}
	return false
}

// Progress returns a copy of the held progress, or nil before the first poll
func (p *ProgressPoller) Progress() *domain.SyncProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.progress == nil {
		return nil
	}
	cp := *p.progress
	return &cp
}

// Percent recomputes completion from the held progress
func (p *ProgressPoller) Percent() (float64, bool) {
	prog := p.Progress()
	if prog == nil {
		return 0, false
	}
	return prog.Percent()
}
