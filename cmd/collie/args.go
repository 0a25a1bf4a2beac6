package main

import (
	"fmt"
	"strings"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Args holds the command line arguments
type Args struct {
	Config     string `arg:"-c,--config" help:"config file path (default ~/.config/collie/config.yaml)"`
	Server     string `arg:"--server,env:COLLIE_SERVER" help:"override server.url"`
	ClearCache bool   `arg:"--clear-cache" help:"remove the persisted snapshot cache before starting"`

	Dashboard   *DashboardCmd   `arg:"subcommand:dashboard" help:"interactive dashboard (default)"`
	Watch       *WatchCmd       `arg:"subcommand:watch" help:"print logs and progress as plain text"`
	Status      *StatusCmd      `arg:"subcommand:status" help:"show sync status once"`
	Start       *StartCmd       `arg:"subcommand:start" help:"start a full sync"`
	Incremental *IncrementalCmd `arg:"subcommand:incremental" help:"start an incremental sync"`
	Auto        *AutoCmd        `arg:"subcommand:auto" help:"show or change the auto sync schedule"`
	Categorize  *CategorizeCmd  `arg:"subcommand:categorize" help:"categorize stored emails"`
	Setup       *SetupCmd       `arg:"subcommand:setup" help:"configure the server URL and session"`
}

// DashboardCmd runs the interactive dashboard
type DashboardCmd struct{}

// WatchCmd streams the log view to stdout
type WatchCmd struct {
	UntilIdle bool `arg:"--until-idle" help:"exit once a running job finishes"`
}

// StatusCmd prints one status report
type StatusCmd struct{}

// StartCmd starts a full sync
type StartCmd struct {
	MaxEmails int  `arg:"-n,--max-emails" help:"maximum emails to sync (default sync.max_emails)"`
	Days      int  `arg:"-d,--days" help:"only sync mail from the last N days (default sync.days_ago)"`
	All       bool `arg:"--all" help:"sync all mail regardless of age"`
	Follow    bool `arg:"-f,--follow" help:"watch until the job finishes"`
}

// IncrementalCmd starts an incremental sync
type IncrementalCmd struct {
	Follow bool `arg:"-f,--follow" help:"watch until the job finishes"`
}

// AutoCmd shows or toggles the auto sync schedule
type AutoCmd struct {
	State string `arg:"positional" help:"on or off; omit to show the schedule"`
}

// CategorizeCmd runs a categorization pass
type CategorizeCmd struct{}

// SetupCmd prompts for the server settings
type SetupCmd struct{}

// Description returns the program description for help output
func (Args) Description() string {
	return `collie - watch and drive a mailbox sync server

Polls the sync server for status, progress and logs. Polling is fast while
a job runs and slow while idle. Without a subcommand the dashboard opens, or
watch mode when stdout is not a terminal.`
}

// Version returns the version string for --version
func (Args) Version() string {
	return "collie " + Version
}

// ParseAutoState parses the auto subcommand's positional argument
func ParseAutoState(s string) (enable bool, set bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return false, false, nil
	case "on", "true", "enable", "enabled":
		return true, true, nil
	case "off", "false", "disable", "disabled":
		return false, true, nil
	default:
		return false, false, fmt.Errorf("invalid auto sync state %q: want on or off", s)
	}
}

// DaysBack resolves the --days and --all flags against the configured default.
// nil means all mail.
func (c *StartCmd) DaysBack(configured int) *int {
	if c.All {
		return nil
	}
	days := configured
	if c.Days > 0 {
		days = c.Days
	}
	if days <= 0 {
		return nil
	}
	return &days
}

// MaxDocuments resolves --max-emails against the configured default
func (c *StartCmd) MaxDocuments(configured int) int {
	if c.MaxEmails > 0 {
		return c.MaxEmails
	}
	return configured
}
