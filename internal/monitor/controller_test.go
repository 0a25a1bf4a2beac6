package monitor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/mmcdole/collie/internal/clock"
	"github.com/mmcdole/collie/internal/domain"
	"github.com/mmcdole/collie/internal/monitor"
)

// recorder is a concurrency-safe SnapshotObserver
type recorder struct {
	mu    sync.Mutex
	snaps []domain.Snapshot
}

func (r *recorder) OnSnapshot(s domain.Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

// memStore is an in-memory domain.SnapshotStore
type memStore struct {
	mu      sync.Mutex
	status  *domain.SyncStatus
	auto    *domain.AutoSyncState
	tail    *domain.LogTail
	cleared int
}

func (m *memStore) GetStatus() (*domain.SyncStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.status != nil
}

func (m *memStore) SaveStatus(s domain.SyncStatus) error {
	m.mu.Lock()
	m.status = &s
	m.mu.Unlock()
	return nil
}

func (m *memStore) GetAutoSync() (*domain.AutoSyncState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auto, m.auto != nil
}

func (m *memStore) SaveAutoSync(s domain.AutoSyncState) error {
	m.mu.Lock()
	m.auto = &s
	m.mu.Unlock()
	return nil
}

func (m *memStore) GetLogTail() (*domain.LogTail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tail, m.tail != nil
}

func (m *memStore) SaveLogTail(t domain.LogTail) error {
	m.mu.Lock()
	m.tail = &t
	m.mu.Unlock()
	return nil
}

func (m *memStore) ClearLogTail() {
	m.mu.Lock()
	m.tail = nil
	m.cleared++
	m.mu.Unlock()
}

func (m *memStore) Close() error { return nil }

func newTestController(repo *fakeRepo, store domain.SnapshotStore) (*monitor.Controller, *clock.MockTimeProvider) {
	tp := clock.NewMockTimeProvider(epoch)
	cfg := monitor.DefaultConfig()
	cfg.Clock = tp
	return monitor.NewController(repo, store, cfg, nil), tp
}

// Scenario: start a full sync from idle.
func TestController_StartFullFromIdle(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)
	ctx := context.Background()

	repo := newFakeRepo()
	repo.logs = func(after string) (*domain.LogBatch, error) {
		if after == "" {
			return &domain.LogBatch{APILogs: []domain.LogEntry{apiEntry("2026-01-01T00:00:00", "previous job")}}, nil
		}
		return &domain.LogBatch{}, nil
	}
	ctrl, _ := newTestController(repo, nil)
	g.Expect(ctrl.Initialize(ctx)).To(Succeed())
	g.Expect(ctrl.Logs().Cursor()).To(Equal("2026-01-01T00:00:00"))
	g.Expect(ctrl.IsSyncing()).To(BeFalse())
	g.Expect(ctrl.Interval()).To(Equal(monitor.DefaultSlowInterval))

	// The new job's log is empty so far.
	repo.update(func(f *fakeRepo) {
		f.logs = func(string) (*domain.LogBatch, error) { return &domain.LogBatch{}, nil }
		f.status = domain.SyncStatus{IsSyncing: true}
		f.progress = domain.SyncProgress{IsSyncing: true, SyncedCount: 5, TotalCount: 100}
	})

	days := 90
	g.Expect(ctrl.StartFull(ctx, 100000, &days)).To(Succeed())

	g.Expect(repo.lastFull.MaxDocuments).To(Equal(100000))
	g.Expect(repo.lastFull.DaysBack).To(HaveValue(Equal(90)))
	g.Expect(ctrl.IsSyncing()).To(BeTrue())
	g.Expect(ctrl.Interval()).To(Equal(monitor.DefaultFastInterval))
	g.Expect(ctrl.Logs().Cursor()).To(BeEmpty())
	g.Expect(ctrl.Logs().APIEntries()).To(BeEmpty())
	g.Expect(repo.lastAfter()).To(BeEmpty(), "post-start log refresh asks for everything")

	ctrl.Tick(ctx)

	pct, known := ctrl.Progress().Percent()
	g.Expect(known).To(BeTrue())
	g.Expect(pct).To(BeNumerically("~", 5, 0.001))
	g.Expect(ctrl.Snapshot().IsSyncing).To(BeTrue())
}

func TestController_StartFailureChangesNothing(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)
	ctx := context.Background()

	repo := newFakeRepo()
	repo.logs = func(string) (*domain.LogBatch, error) {
		return &domain.LogBatch{APILogs: []domain.LogEntry{apiEntry("01", "kept")}}, nil
	}
	store := &memStore{}
	ctrl, _ := newTestController(repo, store)
	g.Expect(ctrl.Initialize(ctx)).To(Succeed())

	repo.update(func(f *fakeRepo) { f.startErr = &domain.APIError{StatusCode: 409, Body: "already running"} })

	err := ctrl.StartFull(ctx, 10, nil)
	var apiErr *domain.APIError
	g.Expect(errors.As(err, &apiErr)).To(BeTrue())
	g.Expect(apiErr.StatusCode).To(Equal(409))

	err = ctrl.StartIncremental(ctx)
	g.Expect(err).To(MatchError(ContainSubstring("starting incremental sync")))

	g.Expect(ctrl.IsSyncing()).To(BeFalse())
	g.Expect(ctrl.Logs().Cursor()).To(Equal("01"))
	g.Expect(ctrl.Logs().APIEntries()).To(HaveLen(1))
	g.Expect(store.cleared).To(BeZero())
}

func TestController_StartClearsPersistedTail(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	store := &memStore{tail: &domain.LogTail{Cursor: "09", Entries: []domain.LogEntry{apiEntry("09", "old")}}}
	repo := newFakeRepo()
	ctrl, _ := newTestController(repo, store)
	g.Expect(ctrl.Initialize(context.Background())).To(Succeed())
	g.Expect(repo.lastAfter()).To(Equal("09"), "restored cursor is used on first fetch")

	g.Expect(ctrl.StartIncremental(context.Background())).To(Succeed())

	g.Expect(store.cleared).To(Equal(1))
	g.Expect(repo.count("incremental")).To(Equal(1))
	g.Expect(ctrl.Logs().APIEntries()).To(BeEmpty())
}

func TestController_StatusActivatesButNeverDeactivates(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)
	ctx := context.Background()

	repo := newFakeRepo()
	repo.status = domain.SyncStatus{IsSyncing: true}
	repo.progress = domain.SyncProgress{IsSyncing: true, SyncedCount: 1, TotalCount: 4}
	ctrl, _ := newTestController(repo, nil)

	g.Expect(ctrl.Initialize(ctx)).To(Succeed())
	g.Expect(ctrl.IsSyncing()).To(BeTrue(), "server-started job is picked up")
	g.Expect(repo.count("progress")).To(Equal(1))

	// A lagging status says idle; only progress may clear the flag.
	repo.update(func(f *fakeRepo) { f.status = domain.SyncStatus{IsSyncing: false} })
	ctrl.Tick(ctx)
	g.Expect(ctrl.IsSyncing()).To(BeTrue())
}

func TestController_SettleRefreshesStatus(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)
	ctx := context.Background()

	repo := newFakeRepo()
	ctrl, _ := newTestController(repo, nil)
	g.Expect(ctrl.Initialize(ctx)).To(Succeed())
	g.Expect(ctrl.StartIncremental(ctx)).To(Succeed())

	repo.update(func(f *fakeRepo) {
		f.progress = domain.SyncProgress{IsSyncing: false, SyncedCount: 100, TotalCount: 100}
		f.status = domain.SyncStatus{TotalDocuments: 100}
	})
	before := repo.count("status")

	ctrl.Tick(ctx)

	g.Expect(ctrl.IsSyncing()).To(BeFalse())
	g.Expect(ctrl.Interval()).To(Equal(monitor.DefaultSlowInterval))
	// one from the tick, one settle refresh
	g.Expect(repo.count("status") - before).To(Equal(2))
	g.Expect(ctrl.Snapshot().Status.TotalDocuments).To(Equal(100))

	// Idle: progress is no longer polled
	progressCalls := repo.count("progress")
	ctrl.Tick(ctx)
	g.Expect(repo.count("progress")).To(Equal(progressCalls))
}

// A status read before the job ended must not restart polling when it lands
// after the progress poll that settled the job.
func TestController_LateStatusAfterSettle(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})

	repo := newFakeRepo()
	repo.statusFn = func(call int) (*domain.SyncStatus, error) {
		if call == 1 {
			close(entered)
			<-release
			return &domain.SyncStatus{IsSyncing: true, TotalDocuments: 40}, nil
		}
		// The settle refresh
		close(release)
		return &domain.SyncStatus{TotalDocuments: 100}, nil
	}
	repo.progressFn = func() (*domain.SyncProgress, error) {
		<-entered
		return &domain.SyncProgress{IsSyncing: false, SyncedCount: 100, TotalCount: 100}, nil
	}

	ctrl, _ := newTestController(repo, nil)
	ctrl.Progress().Activate()
	g.Expect(ctrl.Interval()).To(Equal(monitor.DefaultFastInterval))

	ctrl.Tick(ctx)

	g.Expect(repo.count("status")).To(Equal(2))
	g.Expect(ctrl.IsSyncing()).To(BeFalse())
	g.Expect(ctrl.Interval()).To(Equal(monitor.DefaultSlowInterval))
	g.Expect(ctrl.Snapshot().Status.TotalDocuments).To(Equal(100))
}

func TestController_ProgressErrorMessageKeepsPolling(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)
	ctx := context.Background()

	repo := newFakeRepo()
	repo.status = domain.SyncStatus{IsSyncing: true}
	repo.progress = domain.SyncProgress{IsSyncing: true, ErrorMessage: "token expired"}
	ctrl, _ := newTestController(repo, nil)

	g.Expect(ctrl.Initialize(ctx)).To(Succeed())
	ctrl.Tick(ctx)

	g.Expect(ctrl.IsSyncing()).To(BeTrue())
	g.Expect(ctrl.Snapshot().Progress.ErrorMessage).To(Equal("token expired"))
}

func TestController_FailedTickKeepsState(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)
	ctx := context.Background()

	repo := newFakeRepo()
	repo.status = domain.SyncStatus{TotalDocuments: 7}
	repo.liveCount = 9
	ctrl, _ := newTestController(repo, nil)
	g.Expect(ctrl.Initialize(ctx)).To(Succeed())

	repo.update(func(f *fakeRepo) {
		f.statusErr = domain.ErrServerOffline
		f.liveErr = domain.ErrServerOffline
	})
	ctrl.Tick(ctx)

	snap := ctrl.Snapshot()
	g.Expect(snap.Status.TotalDocuments).To(Equal(7))
	g.Expect(snap.LiveCount).To(HaveValue(Equal(9)))
	g.Expect(errors.Is(snap.LastError, domain.ErrServerOffline)).To(BeTrue())

	repo.update(func(f *fakeRepo) {
		f.statusErr = nil
		f.liveErr = nil
	})
	ctrl.Tick(ctx)
	g.Expect(ctrl.Snapshot().LastError).ToNot(HaveOccurred())
}

func TestController_ToggleAutoSyncAppliesServerResponse(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)
	ctx := context.Background()

	next := epoch.Add(7500 * time.Second)
	repo := newFakeRepo()
	repo.setAuto = func(enabled bool) (*domain.AutoSyncState, error) {
		return &domain.AutoSyncState{Enabled: enabled, NextRunAt: &next, IntervalHours: 6}, nil
	}
	store := &memStore{}
	ctrl, _ := newTestController(repo, store)

	state, err := ctrl.ToggleAutoSync(ctx, true)

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(state.Enabled).To(BeTrue())
	g.Expect(ctrl.AutoSync().Countdown()).To(Equal("2h 5m"))
	g.Expect(store.auto).ToNot(BeNil())
	g.Expect(store.auto.Enabled).To(BeTrue())
}

func TestController_ToggleAutoSyncFailureIsNotOptimistic(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	repo := newFakeRepo()
	repo.setAuto = func(bool) (*domain.AutoSyncState, error) { return nil, domain.ErrAuthFailed }
	ctrl, _ := newTestController(repo, nil)

	_, err := ctrl.ToggleAutoSync(context.Background(), true)

	g.Expect(errors.Is(err, domain.ErrAuthFailed)).To(BeTrue())
	g.Expect(ctrl.AutoSync().State().Enabled).To(BeFalse())
}

func TestController_IncrementalNeedsHistoryCursor(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)
	ctx := context.Background()

	repo := newFakeRepo()
	ctrl, _ := newTestController(repo, nil)
	g.Expect(ctrl.CanStartIncremental()).To(BeFalse(), "unknown status")

	g.Expect(ctrl.Initialize(ctx)).To(Succeed())
	g.Expect(ctrl.CanStartIncremental()).To(BeFalse())
	days := 30
	g.Expect(ctrl.SuggestedDaysBack(&days)).To(BeNil())

	repo.update(func(f *fakeRepo) { f.status = domain.SyncStatus{HasHistoryCursor: true} })
	ctrl.Tick(ctx)
	g.Expect(ctrl.CanStartIncremental()).To(BeTrue())
	g.Expect(ctrl.SuggestedDaysBack(&days)).To(HaveValue(Equal(30)))

	g.Expect(ctrl.StartIncremental(ctx)).To(Succeed())
	g.Expect(ctrl.CanStartIncremental()).To(BeFalse(), "job running")
}

func TestController_Categorize(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	repo := newFakeRepo()
	repo.categorized = domain.CategorizeResult{Updated: 12, Categories: map[string]int{"newsletter": 12}}
	ctrl, _ := newTestController(repo, nil)

	got, err := ctrl.Categorize(context.Background())

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(got.Updated).To(Equal(12))
	g.Expect(got.Categories).To(HaveKeyWithValue("newsletter", 12))
}

func TestController_CloseDropsLateResponses(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)
	ctx := context.Background()

	release := make(chan struct{})
	repo := newFakeRepo()
	ctrl, _ := newTestController(repo, nil)
	rec := &recorder{}
	ctrl.SetObserver(rec)

	repo.update(func(f *fakeRepo) {
		f.logs = func(string) (*domain.LogBatch, error) {
			<-release
			return &domain.LogBatch{APILogs: []domain.LogEntry{apiEntry("01", "late")}}, nil
		}
	})

	done := make(chan struct{})
	go func() {
		ctrl.Tick(ctx)
		close(done)
	}()

	g.Eventually(func() int { return repo.count("logs") }).Should(Equal(1))
	ctrl.Close()
	close(release)
	g.Eventually(done).Should(BeClosed())

	g.Expect(ctrl.Logs().APIEntries()).To(BeEmpty())
	g.Expect(rec.len()).To(BeZero())
	g.Expect(ctrl.Run(ctx)).To(MatchError(domain.ErrClosed))
}

func TestController_RunSwitchesCadence(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	repo := newFakeRepo()
	ctrl, tp := newTestController(repo, nil)
	rec := &recorder{}
	ctrl.SetObserver(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Run(ctx) }()

	g.Eventually(func() *clock.MockTicker { return tp.Active(monitor.DefaultSlowInterval) }).ShouldNot(BeNil())

	// Idle tick: no progress poll
	tp.Active(monitor.DefaultSlowInterval).TickChan <- epoch
	g.Eventually(func() int { return repo.count("status") }).Should(Equal(2))
	g.Expect(repo.count("progress")).To(BeZero())

	// A job appears on the server
	repo.update(func(f *fakeRepo) {
		f.status = domain.SyncStatus{IsSyncing: true}
		f.progress = domain.SyncProgress{IsSyncing: true, SyncedCount: 1, TotalCount: 2}
	})
	tp.Active(monitor.DefaultSlowInterval).TickChan <- epoch
	g.Eventually(func() *clock.MockTicker { return tp.Active(monitor.DefaultFastInterval) }).ShouldNot(BeNil())
	g.Eventually(func() *clock.MockTicker { return tp.Active(monitor.DefaultSlowInterval) }).Should(BeNil())

	fast := tp.Active(monitor.DefaultFastInterval)
	fast.TickChan <- epoch
	g.Eventually(func() int { return repo.count("progress") }).Should(BeNumerically(">=", 1))

	// The job finishes
	repo.update(func(f *fakeRepo) {
		f.status = domain.SyncStatus{IsSyncing: false, TotalDocuments: 2}
		f.progress = domain.SyncProgress{IsSyncing: false, SyncedCount: 2, TotalCount: 2}
	})
	fast.TickChan <- epoch
	g.Eventually(func() *clock.MockTicker { return tp.Active(monitor.DefaultSlowInterval) }).ShouldNot(BeNil())
	g.Eventually(fast.Stopped).Should(BeTrue())
	g.Expect(ctrl.IsSyncing()).To(BeFalse())

	cancel()
	g.Eventually(errCh).Should(Receive(BeNil()))
	g.Expect(rec.len()).To(BeNumerically(">", 0))
}

func TestController_RunRecomputesCountdown(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	next := epoch.Add(7500 * time.Second)
	repo := newFakeRepo()
	repo.auto = domain.AutoSyncState{Enabled: true, NextRunAt: &next, IntervalHours: 6}
	ctrl, tp := newTestController(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ctrl.Run(ctx) }()

	g.Eventually(func() *clock.MockTicker { return tp.Active(monitor.DefaultCountdownInterval) }).ShouldNot(BeNil())
	g.Expect(ctrl.AutoSync().Countdown()).To(Equal("2h 5m"))

	tp.Advance(3601 * time.Second)
	g.Consistently(ctrl.AutoSync().Countdown, 50*time.Millisecond).Should(Equal("2h 5m"))

	tp.Active(monitor.DefaultCountdownInterval).TickChan <- epoch
	g.Eventually(ctrl.AutoSync().Countdown).Should(Equal("1h 5m"))
}

func TestController_RunTwice(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctrl, tp := newTestController(newFakeRepo(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = ctrl.Run(ctx) }()
	g.Eventually(func() *clock.MockTicker { return tp.Active(monitor.DefaultSlowInterval) }).ShouldNot(BeNil())

	g.Expect(ctrl.Run(ctx)).To(MatchError(ContainSubstring("already running")))
}
