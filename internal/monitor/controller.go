// Package monitor drives a server-owned mailbox sync job from the client side:
// it starts jobs, polls their progress, tails the job logs and mirrors the
// auto-resync schedule, adapting its poll cadence to whether a job is running.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/mmcdole/collie/internal/clock"
	"github.com/mmcdole/collie/internal/domain"
)

// Defaults for Config
const (
	DefaultFastInterval      = 2 * time.Second
	DefaultSlowInterval      = 5 * time.Second
	DefaultCountdownInterval = 30 * time.Second
	DefaultRequestTimeout    = 15 * time.Second
	DefaultMaxDocuments      = 100000
	DefaultDaysBack          = 90
)

// Config tunes the controller's scheduling
type Config struct {
	FastInterval      time.Duration // Cadence while a job runs
	SlowInterval      time.Duration // Cadence while idle
	CountdownInterval time.Duration // Auto-sync countdown recompute
	RequestTimeout    time.Duration // Per-request deadline
	MaxAPIEntries     int
	Clock             clock.TimeProvider
}

// DefaultConfig returns the default scheduling configuration
func DefaultConfig() Config {
	return Config{
		FastInterval:      DefaultFastInterval,
		SlowInterval:      DefaultSlowInterval,
		CountdownInterval: DefaultCountdownInterval,
		RequestTimeout:    DefaultRequestTimeout,
		MaxAPIEntries:     DefaultMaxAPIEntries,
		Clock:             clock.RealTimeProvider{},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.FastInterval <= 0 {
		c.FastInterval = def.FastInterval
	}
	if c.SlowInterval <= 0 {
		c.SlowInterval = def.SlowInterval
	}
	if c.CountdownInterval <= 0 {
		c.CountdownInterval = def.CountdownInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.MaxAPIEntries <= 0 {
		c.MaxAPIEntries = def.MaxAPIEntries
	}
	if c.Clock == nil {
		c.Clock = def.Clock
	}
	return c
}

// Controller owns the "job running" flag and coordinates the pollers.
//
// Responses are applied as whole replacements, so requests from overlapping
// ticks may resolve in any order. The api log cursor is the one exception and
// is guarded by LogTailer. After Close every late response is discarded.
type Controller struct {
	repo     domain.SyncRepository
	store    domain.SnapshotStore
	observer domain.SnapshotObserver
	logger   *slog.Logger
	cfg      Config

	status   *StatusFetcher
	progress *ProgressPoller
	logs     *LogTailer
	auto     *AutoSyncScheduler

	mu      sync.RWMutex // Guards closed; held shared while applying responses
	closed  bool
	running bool

	errMu   sync.Mutex
	lastErr error

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewController wires the pollers around repo. store may be nil (memory only).
func NewController(repo domain.SyncRepository, store domain.SnapshotStore, cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Controller{
		repo:     repo,
		store:    store,
		observer: domain.NoOpObserver{},
		logger:   logger,
		cfg:      cfg,
		status:   NewStatusFetcher(repo, logger),
		progress: NewProgressPoller(repo, logger),
		logs:     NewLogTailer(repo, cfg.MaxAPIEntries, logger),
		auto:     NewAutoSyncScheduler(repo, cfg.Clock, logger),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// SetObserver registers the receiver of snapshots. Call before Run.
func (c *Controller) SetObserver(obs domain.SnapshotObserver) {
	if obs == nil {
		obs = domain.NoOpObserver{}
	}
	c.observer = obs
}

// === Lifecycle ===

// Initialize restores persisted state and performs the one-shot activation
// fetch: status, live count, logs and the auto-sync schedule, plus progress
// when the status reports a running job.
func (c *Controller) Initialize(ctx context.Context) error {
	c.restore()

	p := pool.New().WithErrors()
	p.Go(func() error { return c.refreshStatus(ctx) })
	p.Go(func() error { return c.refreshLiveCount(ctx) })
	p.Go(func() error { return c.refreshLogs(ctx) })
	p.Go(func() error { return c.refreshAutoSync(ctx) })
	err := p.Wait()

	if c.progress.Active() {
		err = errors.Join(err, c.refreshProgress(ctx))
	}

	c.recordErr(err)
	c.notify()
	return err
}

// Tick performs one regular refresh. Failures are logged and recorded; state
// from a failed request is left as it was and the next tick retries.
func (c *Controller) Tick(ctx context.Context) {
	p := pool.New().WithErrors()
	p.Go(func() error { return c.refreshStatus(ctx) })
	p.Go(func() error { return c.refreshLiveCount(ctx) })
	p.Go(func() error { return c.refreshLogs(ctx) })
	if c.progress.Active() {
		p.Go(func() error { return c.refreshProgress(ctx) })
	}
	err := p.Wait()
	if err != nil {
		c.logger.Warn("poll tick failed", "error", err)
	}
	c.recordErr(err)
	c.notify()
}

// Run initializes and then owns the scheduled tasks until ctx is done or
// Close is called. Cadence ticks are dispatched without waiting for earlier
// ones, so a slow response never delays the schedule.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClosed
	}
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("sync controller is already running")
	}
	c.running = true
	c.mu.Unlock()

	if err := c.Initialize(ctx); err != nil {
		c.logger.Warn("initial refresh failed", "error", err)
	}

	interval := c.Interval()
	cadence := c.cfg.Clock.NewTicker(interval)
	countdown := c.cfg.Clock.NewTicker(c.cfg.CountdownInterval)
	defer func() {
		cadence.Stop()
		countdown.Stop()
	}()

	c.logger.Info("sync monitor started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			c.Close()
			return nil

		case <-c.done:
			return nil

		case <-cadence.C():
			go c.Tick(ctx)

		case <-countdown.C():
			c.apply(func() { c.auto.Recompute() })
			c.notify()

		case <-c.wake:
			if next := c.Interval(); next != interval {
				cadence.Stop()
				interval = next
				cadence = c.cfg.Clock.NewTicker(interval)
				c.logger.Debug("poll cadence changed", "interval", interval)
			}
		}
	}
}

// Close tears down the scheduled tasks. Requests already in flight are not
// cancelled; their responses are ignored.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
}

// Interval returns the cadence currently in effect
func (c *Controller) Interval() time.Duration {
	if c.progress.Active() {
		return c.cfg.FastInterval
	}
	return c.cfg.SlowInterval
}

// IsSyncing reports whether a job is believed to be running
func (c *Controller) IsSyncing() bool {
	return c.progress.Active()
}

// === Operations ===

// StartFull starts a full sync. daysBack nil syncs all mail.
//
// On success the log tail is reset, the job is optimistically marked running
// and one immediate status and log refresh is made. On failure nothing local
// changes; the running flag is left for the next progress poll to correct.
func (c *Controller) StartFull(ctx context.Context, maxDocuments int, daysBack *int) error {
	req := domain.StartRequest{MaxDocuments: maxDocuments, DaysBack: daysBack}
	if err := c.withTimeout(ctx, func(ctx context.Context) error { return c.repo.StartFull(ctx, req) }); err != nil {
		c.logger.Error("failed to start full sync", "error", err)
		return fmt.Errorf("starting full sync: %w", err)
	}
	c.logger.Info("full sync started", "max_documents", maxDocuments, "days_back", daysBack)
	c.afterStart(ctx)
	return nil
}

// StartIncremental starts an incremental sync with the same local effects as StartFull
func (c *Controller) StartIncremental(ctx context.Context) error {
	if err := c.withTimeout(ctx, c.repo.StartIncremental); err != nil {
		c.logger.Error("failed to start incremental sync", "error", err)
		return fmt.Errorf("starting incremental sync: %w", err)
	}
	c.logger.Info("incremental sync started")
	c.afterStart(ctx)
	return nil
}

func (c *Controller) afterStart(ctx context.Context) {
	if !c.apply(func() {
		c.logs.Reset()
		c.activate()
	}) {
		return
	}
	if c.store != nil {
		c.store.ClearLogTail()
	}
	c.notify()

	var wg conc.WaitGroup
	wg.Go(func() { _ = c.refreshStatus(ctx) })
	wg.Go(func() { _ = c.refreshLogs(ctx) })
	wg.Wait()
	c.notify()
}

// ToggleAutoSync enables or disables auto-resync. Local state is replaced
// with the server's response only; nothing is assumed before it arrives.
func (c *Controller) ToggleAutoSync(ctx context.Context, enable bool) (*domain.AutoSyncState, error) {
	var state *domain.AutoSyncState
	err := c.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		state, err = c.auto.Toggle(ctx, enable)
		return err
	})
	if err != nil {
		c.logger.Error("failed to toggle auto sync", "enable", enable, "error", err)
		return nil, fmt.Errorf("toggling auto sync: %w", err)
	}
	c.applyAutoSync(state)
	c.logger.Info("auto sync toggled", "enabled", state.Enabled)
	c.notify()
	return state, nil
}

// Categorize runs the server-side categorization pass
func (c *Controller) Categorize(ctx context.Context) (*domain.CategorizeResult, error) {
	var result *domain.CategorizeResult
	err := c.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		result, err = c.repo.Categorize(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("categorizing: %w", err)
	}
	c.logger.Info("categorized emails", "updated", result.Updated)
	return result, nil
}

// CanStartIncremental reports whether the server has a history cursor and no
// job is believed to be running.
func (c *Controller) CanStartIncremental() bool {
	status := c.status.Status()
	return status != nil && status.HasHistoryCursor && !c.IsSyncing()
}

// SuggestedDaysBack returns preferred, or nil (all mail) when the server is
// known to have no history cursor yet.
func (c *Controller) SuggestedDaysBack(preferred *int) *int {
	if status := c.status.Status(); status != nil && !status.HasHistoryCursor {
		return nil
	}
	return preferred
}

// === Snapshot ===

// Snapshot returns a consistent copy of the monitor state
func (c *Controller) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Status:    c.status.Status(),
		Progress:  c.progress.Progress(),
		LiveCount: c.status.LiveCount(),
		IsSyncing: c.progress.Active(),
		AutoSync:  c.auto.State(),
		Countdown: c.auto.Countdown(),
		Logs:      c.logs.Merged(),
		LogCursor: c.logs.Cursor(),
		ScriptLog: c.logs.ScriptLogExists(),
		LastError: c.lastError(),
	}
}

// Logs exposes the tailer for direct inspection
func (c *Controller) Logs() *LogTailer {
	return c.logs
}

// Progress exposes the progress poller for direct inspection
func (c *Controller) Progress() *ProgressPoller {
	return c.progress
}

// AutoSync exposes the auto-sync scheduler for direct inspection
func (c *Controller) AutoSync() *AutoSyncScheduler {
	return c.auto
}

// === Refresh helpers ===

func (c *Controller) refreshStatus(ctx context.Context) error {
	settles := c.progress.Settles()
	var status *domain.SyncStatus
	err := c.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		status, err = c.status.FetchStatus(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	var stale bool
	if !c.apply(func() {
		// A job settled while this request was out; the settle refresh
		// carries the newer snapshot.
		if c.progress.Settles() != settles {
			stale = true
			return
		}
		c.status.ApplyStatus(status)
		// A server-started job (e.g. auto-sync) is picked up here. Only a
		// progress poll may clear the flag.
		if status.IsSyncing && c.progress.ActivateSince(settles) {
			c.signalCadence()
		}
	}) || stale {
		return nil
	}
	if c.store != nil {
		if err := c.store.SaveStatus(*status); err != nil {
			c.logger.Warn("failed to persist status", "error", err)
		}
	}
	return nil
}

func (c *Controller) refreshLiveCount(ctx context.Context) error {
	var count int
	err := c.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		count, err = c.status.FetchLiveCount(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("live count: %w", err)
	}
	c.apply(func() { c.status.ApplyLiveCount(count) })
	return nil
}

func (c *Controller) refreshProgress(ctx context.Context) error {
	var progress *domain.SyncProgress
	err := c.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		progress, err = c.progress.Fetch(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("progress: %w", err)
	}

	var settled bool
	if !c.apply(func() { settled = c.progress.Apply(progress) }) {
		return nil
	}
	if progress.ErrorMessage != "" {
		c.logger.Warn("sync job reported an error", "error", progress.ErrorMessage)
	}
	if !settled {
		return nil
	}

	c.logger.Info("sync job finished", "synced", progress.SyncedCount, "total", progress.TotalCount)
	c.signalCadence()
	// Settle refresh for the final totals and last-sync time
	return c.refreshStatus(ctx)
}

func (c *Controller) refreshLogs(ctx context.Context) error {
	req := c.logs.Begin()
	var batch *domain.LogBatch
	err := c.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		batch, err = c.logs.Fetch(ctx, req)
		return err
	})
	if err != nil {
		return fmt.Errorf("logs: %w", err)
	}

	var appended int
	if !c.apply(func() { appended = c.logs.Apply(req, batch) }) {
		return nil
	}
	if appended > 0 && c.store != nil {
		if err := c.store.SaveLogTail(c.logs.Tail()); err != nil {
			c.logger.Warn("failed to persist log tail", "error", err)
		}
	}
	return nil
}

func (c *Controller) refreshAutoSync(ctx context.Context) error {
	var state *domain.AutoSyncState
	err := c.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		state, err = c.auto.Fetch(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("auto sync: %w", err)
	}
	c.applyAutoSync(state)
	return nil
}

func (c *Controller) applyAutoSync(state *domain.AutoSyncState) {
	if !c.apply(func() { c.auto.Apply(state) }) {
		return
	}
	if c.store != nil {
		if err := c.store.SaveAutoSync(*state); err != nil {
			c.logger.Warn("failed to persist auto sync state", "error", err)
		}
	}
}

// restore seeds local state from the snapshot store, if any
func (c *Controller) restore() {
	if c.store == nil {
		return
	}
	if status, ok := c.store.GetStatus(); ok {
		c.status.ApplyStatus(status)
	}
	if state, ok := c.store.GetAutoSync(); ok {
		c.auto.Apply(state)
	}
	if tail, ok := c.store.GetLogTail(); ok {
		c.logs.Restore(*tail)
	}
}

// apply runs fn unless the controller has been closed. It reports whether fn ran.
func (c *Controller) apply(fn func()) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	fn()
	return true
}

// activate marks a job as running and switches to the fast cadence
func (c *Controller) activate() {
	if c.progress.Activate() {
		c.signalCadence()
	}
}

func (c *Controller) signalCadence() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	return fn(ctx)
}

func (c *Controller) notify() {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}
	c.observer.OnSnapshot(c.Snapshot())
}

func (c *Controller) recordErr(err error) {
	c.errMu.Lock()
	c.lastErr = err
	c.errMu.Unlock()
}

func (c *Controller) lastError() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}
