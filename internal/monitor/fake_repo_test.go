package monitor_test

import (
	"context"
	"sync"

	"github.com/mmcdole/collie/internal/domain"
)

// fakeRepo is a scriptable domain.SyncRepository
type fakeRepo struct {
	mu sync.Mutex

	status      domain.SyncStatus
	statusErr   error
	statusFn    func(call int) (*domain.SyncStatus, error) // Overrides status when set
	progress    domain.SyncProgress
	progressErr error
	progressFn  func() (*domain.SyncProgress, error) // Overrides progress when set
	liveCount   int
	liveErr     error
	logs        func(after string) (*domain.LogBatch, error)
	auto        domain.AutoSyncState
	setAuto     func(enabled bool) (*domain.AutoSyncState, error)
	startErr    error
	categorized domain.CategorizeResult

	calls    map[string]int
	afters   []string
	lastFull domain.StartRequest
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{calls: map[string]int{}}
}

func (f *fakeRepo) record(name string) {
	f.calls[name]++
}

func (f *fakeRepo) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRepo) update(fn func(f *fakeRepo)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeRepo) GetStatus(context.Context) (*domain.SyncStatus, error) {
	f.mu.Lock()
	f.record("status")
	if fn := f.statusFn; fn != nil {
		call := f.calls["status"]
		f.mu.Unlock()
		return fn(call)
	}
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	s := f.status
	return &s, nil
}

func (f *fakeRepo) GetProgress(context.Context) (*domain.SyncProgress, error) {
	f.mu.Lock()
	f.record("progress")
	if fn := f.progressFn; fn != nil {
		f.mu.Unlock()
		return fn()
	}
	defer f.mu.Unlock()
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	p := f.progress
	return &p, nil
}

func (f *fakeRepo) GetLiveCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("live-count")
	return f.liveCount, f.liveErr
}

func (f *fakeRepo) GetLogs(_ context.Context, after string) (*domain.LogBatch, error) {
	f.mu.Lock()
	f.record("logs")
	f.afters = append(f.afters, after)
	fn := f.logs
	f.mu.Unlock()
	if fn == nil {
		return &domain.LogBatch{}, nil
	}
	return fn(after)
}

func (f *fakeRepo) StartFull(_ context.Context, req domain.StartRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start")
	f.lastFull = req
	return f.startErr
}

func (f *fakeRepo) StartIncremental(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("incremental")
	return f.startErr
}

func (f *fakeRepo) GetAutoSync(context.Context) (*domain.AutoSyncState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("auto")
	a := f.auto
	return &a, nil
}

func (f *fakeRepo) SetAutoSync(_ context.Context, enabled bool) (*domain.AutoSyncState, error) {
	f.mu.Lock()
	f.record("set-auto")
	fn := f.setAuto
	f.mu.Unlock()
	if fn != nil {
		return fn(enabled)
	}
	return &domain.AutoSyncState{Enabled: enabled}, nil
}

func (f *fakeRepo) Categorize(context.Context) (*domain.CategorizeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("categorize")
	r := f.categorized
	return &r, nil
}

func (f *fakeRepo) lastAfter() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.afters) == 0 {
		return ""
	}
	return f.afters[len(f.afters)-1]
}

// apiEntry builds an api log entry at ts
func apiEntry(ts, text string) domain.LogEntry {
	return domain.LogEntry{Level: domain.LevelInfo, Text: text, Timestamp: ts, Origin: domain.OriginAPI}
}

// scriptEntry builds a script log entry
func scriptEntry(text string) domain.LogEntry {
	return domain.LogEntry{Level: domain.LevelInfo, Text: text, Origin: domain.OriginScript}
}
