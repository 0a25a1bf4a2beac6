package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/mmcdole/collie/internal/adapter"
	"github.com/mmcdole/collie/internal/adapter/source"
	"github.com/mmcdole/collie/internal/domain"
	"github.com/mmcdole/collie/internal/monitor"
	"github.com/mmcdole/collie/internal/store"
	"github.com/mmcdole/collie/internal/tui"
)

// identityTimeout bounds the startup session check
const identityTimeout = 5 * time.Second

var errNotConfigured = errors.New("server is not configured: run `collie setup`")

func main() {
	args := &Args{}
	arg.MustParse(args)

	if err := run(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args *Args) error {
	// Load configuration
	cfg, err := adapter.LoadConfigFrom(args.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if args.Server != "" {
		cfg.Server.URL = args.Server
	}

	// Setup logger
	logger, closer, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	} else {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting collie", "version", Version)

	if args.Setup != nil {
		return runSetupFlow(cfg, args.Config, logger)
	}

	if !cfg.IsConfigured() {
		if interactive(args) && stdinIsTerminal() {
			return runSetupFlow(cfg, args.Config, logger)
		}
		return errNotConfigured
	}

	if args.ClearCache {
		if err := adapter.ClearCache(cfg.Cache.Dir); err != nil {
			return err
		}
		logger.Info("cache cleared", "dir", cfg.Cache.Dir)
	}

	// Create sync server client
	client, err := source.NewClientFromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create sync client: %w", err)
	}

	snapshots := openStore(cfg, logger)
	defer snapshots.Close()

	ctrl := monitor.NewController(client, snapshots, monitorConfig(cfg), logger)
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case args.Watch != nil:
		return runWatch(ctx, ctrl, args.Watch.UntilIdle)
	case args.Status != nil:
		return runStatus(ctx, ctrl, os.Stdout)
	case args.Start != nil:
		return runStart(ctx, ctrl, cfg, args.Start, logger)
	case args.Incremental != nil:
		return runIncremental(ctx, ctrl, args.Incremental)
	case args.Auto != nil:
		return runAuto(ctx, ctrl, args.Auto, os.Stdout)
	case args.Categorize != nil:
		return runCategorize(ctx, ctrl, os.Stdout)
	}

	// Dashboard needs a terminal; fall back to plain output otherwise
	if !stdoutIsTerminal() {
		logger.Info("stdout is not a terminal, using watch mode")
		return runWatch(ctx, ctrl, false)
	}

	return runDashboard(ctx, ctrl, client, cfg, logger)
}

// interactive reports whether the invocation would open the dashboard
func interactive(args *Args) bool {
	return args.Watch == nil && args.Status == nil && args.Start == nil &&
		args.Incremental == nil && args.Auto == nil && args.Categorize == nil
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) //nolint:depguard // Required for TTY detection
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// openStore opens the persistent snapshot store, falling back to memory only
func openStore(cfg *adapter.Config, logger *slog.Logger) *store.SnapshotStore {
	dir, err := adapter.ExpandPath(cfg.Cache.Dir)
	if err == nil {
		var s *store.SnapshotStore
		if s, err = store.NewSnapshotStore(dir, cfg.Server.URL); err == nil {
			return s
		}
	}
	logger.Warn("snapshot cache unavailable, using memory only", "dir", cfg.Cache.Dir, "error", err)
	s, _ := store.NewSnapshotStore("", cfg.Server.URL)
	return s
}

// monitorConfig maps the polling section onto the controller's schedule
func monitorConfig(cfg *adapter.Config) monitor.Config {
	mc := monitor.DefaultConfig()
	mc.FastInterval = cfg.Polling.FastInterval
	mc.SlowInterval = cfg.Polling.SlowInterval
	mc.CountdownInterval = cfg.Polling.CountdownInterval
	mc.RequestTimeout = cfg.Polling.RequestTimeout
	return mc
}

func runDashboard(
	ctx context.Context,
	ctrl *monitor.Controller,
	client source.SyncSource,
	cfg *adapter.Config,
	logger *slog.Logger,
) error {
	obs := tui.NewChannelObserver()
	ctrl.SetObserver(obs)

	var days *int
	if cfg.Sync.DaysAgo > 0 {
		d := cfg.Sync.DaysAgo
		days = &d
	}

	model := tui.NewModel(ctrl, obs.C(), tui.Options{
		ServerURL:       cfg.Server.URL,
		Identity:        fetchIdentity(ctx, client, logger),
		MaxEmails:       cfg.Sync.MaxEmails,
		DaysBack:        days,
		FollowThreshold: cfg.UI.FollowThreshold,
		LogHeight:       cfg.UI.LogHeight,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- ctrl.Run(runCtx) }()

	// Run the TUI
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	logger.Info("starting TUI")

	_, err := p.Run()

	cancel()
	ctrl.Close()
	if rerr := <-runErr; rerr != nil && !errors.Is(rerr, domain.ErrClosed) {
		logger.Warn("sync monitor stopped", "error", rerr)
	}

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// fetchIdentity checks the session. Failure is logged, never fatal.
func fetchIdentity(ctx context.Context, client domain.IdentityRepository, logger *slog.Logger) string {
	ctx, cancel := context.WithTimeout(ctx, identityTimeout)
	defer cancel()

	id, err := client.Me(ctx)
	if err != nil {
		logger.Warn("identity check failed", "error", err)
		return ""
	}
	if id.Email != "" {
		return id.Email
	}
	return id.Name
}
