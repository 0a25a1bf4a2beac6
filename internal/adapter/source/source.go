package source

import (
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/mmcdole/collie/internal/adapter"
	"github.com/mmcdole/collie/internal/adapter/source/syncapi"
	"github.com/mmcdole/collie/internal/domain"
)

// SyncSource combines all repository interfaces the sync backend must implement.
type SyncSource interface {
	domain.SyncRepository     // Status, progress, logs, start, auto-sync, categorize
	domain.IdentityRepository // Session check
}

// SourceConfig contains the configuration needed to create a SyncSource
type SourceConfig struct {
	URL               string
	Session           string
	RequestsPerSecond float64
	Burst             int
}

// NewClient creates a new SyncSource for the configured server.
func NewClient(cfg *SourceConfig, logger *slog.Logger) (SyncSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("source config is nil")
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("server URL is required")
	}

	var opts []syncapi.Option
	if cfg.RequestsPerSecond > 0 {
		burst := max(cfg.Burst, 1)
		opts = append(opts, syncapi.WithLimiter(rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)))
	}

	return syncapi.NewClient(cfg.URL, cfg.Session, logger, opts...), nil
}

// NewClientFromConfig creates a SyncSource from the application config
func NewClientFromConfig(cfg *adapter.Config, logger *slog.Logger) (SyncSource, error) {
	return NewClient(&SourceConfig{
		URL:               cfg.Server.URL,
		Session:           cfg.Server.Session,
		RequestsPerSecond: cfg.Polling.RequestsPerSecond,
		Burst:             cfg.Polling.Burst,
	}, logger)
}
