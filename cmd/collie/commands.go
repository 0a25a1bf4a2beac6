package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mmcdole/collie/internal/adapter"
	"github.com/mmcdole/collie/internal/domain"
	"github.com/mmcdole/collie/internal/monitor"
	"github.com/mmcdole/collie/internal/tui"
)

// runWatch prints the log view and job state to stdout until ctx is done,
// or until the job settles when untilIdle is set.
func runWatch(ctx context.Context, ctrl *monitor.Controller, untilIdle bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obs domain.SnapshotObserver = tui.NewPlainRenderer(os.Stdout)
	if untilIdle {
		obs = &idleWatcher{next: obs, done: cancel}
	}
	ctrl.SetObserver(obs)

	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, domain.ErrClosed) {
		return err
	}
	return nil
}

// idleWatcher forwards snapshots and calls done once status has loaded and
// no job is believed to be running.
type idleWatcher struct {
	next domain.SnapshotObserver
	done context.CancelFunc

	once sync.Once
}

func (w *idleWatcher) OnSnapshot(snap domain.Snapshot) {
	w.next.OnSnapshot(snap)
	if snap.Status != nil && !snap.IsSyncing {
		w.once.Do(w.done)
	}
}

func runStatus(ctx context.Context, ctrl *monitor.Controller, w io.Writer) error {
	if err := ctrl.Initialize(ctx); err != nil {
		snap := ctrl.Snapshot()
		if snap.Status == nil {
			return fmt.Errorf("fetching status: %w", err)
		}
	}
	writeStatus(w, ctrl.Snapshot(), time.Now())
	return nil
}

// writeStatus prints a status report for snap
func writeStatus(w io.Writer, snap domain.Snapshot, now time.Time) {
	row := func(label, value string) {
		fmt.Fprintf(w, "%-11s %s\n", label, value)
	}

	if snap.Status == nil {
		row("Stored", "unknown")
	} else {
		stored := tui.FormatCount(snap.Status.TotalDocuments) + " emails"
		if snap.LiveCount != nil {
			stored += fmt.Sprintf(" (%s live)", tui.FormatCount(*snap.LiveCount))
		}
		row("Stored", stored)

		last := "never"
		if snap.Status.LastSyncAt != nil {
			last = tui.FormatAgo(*snap.Status.LastSyncAt, now)
		}
		row("Last sync", last)

		incremental := "no (run a full sync first)"
		if snap.Status.HasHistoryCursor {
			incremental = "yes"
		}
		row("Incremental", incremental)
	}

	state := "idle"
	if snap.IsSyncing {
		state = "running"
		if p := snap.Progress; p != nil {
			if pct, ok := p.Percent(); ok {
				state += fmt.Sprintf(" %s / %s (%.0f%%)",
					tui.FormatCount(p.SyncedCount), tui.FormatCount(p.TotalCount), pct)
			} else if p.SyncedCount > 0 {
				state += " " + tui.FormatCount(p.SyncedCount)
			}
		}
	}
	row("Sync", state)

	auto := "off"
	if snap.AutoSync.Enabled {
		auto = "on"
		if snap.AutoSync.IntervalHours > 0 {
			auto += ", every " + tui.FormatHours(snap.AutoSync.IntervalHours)
		}
		if snap.Countdown != "" {
			auto += ", next in " + snap.Countdown
		}
	}
	row("Auto sync", auto)

	if snap.Progress != nil && snap.Progress.ErrorMessage != "" {
		row("Job error", snap.Progress.ErrorMessage)
	}
	if snap.LastError != nil {
		row("Error", tui.DescribeError(snap.LastError))
	}
}

func runStart(ctx context.Context, ctrl *monitor.Controller, cfg *adapter.Config, cmd *StartCmd, logger *slog.Logger) error {
	// Status decides whether the configured day window applies
	if err := ctrl.Initialize(ctx); err != nil {
		logger.Warn("initial refresh failed, using the configured day window", "error", err)
	}

	daysBack := cmd.DaysBack(cfg.Sync.DaysAgo)
	if cmd.Days <= 0 {
		daysBack = ctrl.SuggestedDaysBack(daysBack)
	}
	maxDocs := cmd.MaxDocuments(cfg.Sync.MaxEmails)

	if err := ctrl.StartFull(ctx, maxDocs, daysBack); err != nil {
		return err
	}

	window := "all mail"
	if daysBack != nil {
		window = fmt.Sprintf("last %d days", *daysBack)
	}
	fmt.Printf("Full sync started (up to %s emails, %s)\n", tui.FormatCount(maxDocs), window)

	if cmd.Follow {
		return runWatch(ctx, ctrl, true)
	}
	return nil
}

func runIncremental(ctx context.Context, ctrl *monitor.Controller, cmd *IncrementalCmd) error {
	if err := ctrl.Initialize(ctx); err != nil && ctrl.Snapshot().Status == nil {
		return fmt.Errorf("fetching status: %w", err)
	}
	if status := ctrl.Snapshot().Status; status == nil || !status.HasHistoryCursor {
		return domain.ErrNoHistoryCursor
	}

	if err := ctrl.StartIncremental(ctx); err != nil {
		return err
	}
	fmt.Println("Incremental sync started")

	if cmd.Follow {
		return runWatch(ctx, ctrl, true)
	}
	return nil
}

func runAuto(ctx context.Context, ctrl *monitor.Controller, cmd *AutoCmd, w io.Writer) error {
	enable, set, err := ParseAutoState(cmd.State)
	if err != nil {
		return err
	}

	auto := ctrl.AutoSync()
	if set {
		if _, err := ctrl.ToggleAutoSync(ctx, enable); err != nil {
			return err
		}
	} else {
		state, err := auto.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("fetching auto sync state: %w", err)
		}
		auto.Apply(state)
	}

	state := auto.State()
	if !state.Enabled {
		fmt.Fprintln(w, "Auto sync is off")
		return nil
	}
	line := "Auto sync is on"
	if state.IntervalHours > 0 {
		line += ", every " + tui.FormatHours(state.IntervalHours)
	}
	if countdown := auto.Countdown(); countdown != "" {
		line += ", next run in " + countdown
	}
	fmt.Fprintln(w, line)
	return nil
}

func runCategorize(ctx context.Context, ctrl *monitor.Controller, w io.Writer) error {
	result, err := ctrl.Categorize(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, tui.FormatCategorized(*result))
	return nil
}
