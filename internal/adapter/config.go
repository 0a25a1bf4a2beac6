package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Polling PollingConfig `mapstructure:"polling"`
	Sync    SyncConfig    `mapstructure:"sync"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

// ServerConfig holds the sync backend connection
type ServerConfig struct {
	URL     string `mapstructure:"url"`     // Backend base URL, e.g. http://localhost:8000
	Session string `mapstructure:"session"` // Value of the "session" cookie
}

// PollingConfig holds the monitor cadence and request limits
type PollingConfig struct {
	FastInterval      time.Duration `mapstructure:"fast_interval"`
	SlowInterval      time.Duration `mapstructure:"slow_interval"`
	CountdownInterval time.Duration `mapstructure:"countdown_interval"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 0 disables limiting
	Burst             int           `mapstructure:"burst"`
}

// SyncConfig holds defaults for starting a full sync
type SyncConfig struct {
	MaxEmails int `mapstructure:"max_emails"`
	DaysAgo   int `mapstructure:"days_ago"` // 0 means all mail
}

// UIConfig holds dashboard configuration
type UIConfig struct {
	FollowThreshold int `mapstructure:"follow_threshold"` // Lines from the bottom that still follow new output
	LogHeight       int `mapstructure:"log_height"`       // 0 fills the terminal
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// CacheConfig holds the snapshot cache location
type CacheConfig struct {
	Dir string `mapstructure:"dir"` // Empty keeps the cache in memory
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL: "http://localhost:8000",
		},
		Polling: PollingConfig{
			FastInterval:      2 * time.Second,
			SlowInterval:      5 * time.Second,
			CountdownInterval: 30 * time.Second,
			RequestTimeout:    15 * time.Second,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Sync: SyncConfig{
			MaxEmails: 100000,
			DaysAgo:   90,
		},
		UI: UIConfig{
			FollowThreshold: 3,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "collie", "collie.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "collie", "collie.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "collie")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "collie")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "collie", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "collie", "cache")
	}
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom loads configuration from file, or from the default search
// path when file is empty. COLLIE_* environment variables override both.
func LoadConfigFrom(file string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// newViper registers every key with its default so env overrides apply even
// when the key is absent from the file.
func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	for key, value := range configKeys(cfg) {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("COLLIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // polling.burst -> COLLIE_POLLING_BURST
	v.AutomaticEnv()
	return v
}

// configKeys flattens cfg into snake_case viper keys
func configKeys(cfg *Config) map[string]any {
	return map[string]any{
		"server.url":                  cfg.Server.URL,
		"server.session":              cfg.Server.Session,
		"polling.fast_interval":       cfg.Polling.FastInterval,
		"polling.slow_interval":       cfg.Polling.SlowInterval,
		"polling.countdown_interval":  cfg.Polling.CountdownInterval,
		"polling.request_timeout":     cfg.Polling.RequestTimeout,
		"polling.requests_per_second": cfg.Polling.RequestsPerSecond,
		"polling.burst":               cfg.Polling.Burst,
		"sync.max_emails":             cfg.Sync.MaxEmails,
		"sync.days_ago":               cfg.Sync.DaysAgo,
		"ui.follow_threshold":         cfg.UI.FollowThreshold,
		"ui.log_height":               cfg.UI.LogHeight,
		"logging.file":                cfg.Logging.File,
		"logging.level":               cfg.Logging.Level,
		"cache.dir":                   cfg.Cache.Dir,
	}
}

// SaveConfig saves the configuration to the default config file
func SaveConfig(cfg *Config) error {
	return SaveConfigTo(cfg, filepath.Join(defaultConfigPath(), "config.yaml"))
}

// SaveConfigTo saves the configuration to file
func SaveConfigTo(cfg *Config, file string) error {
	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	v := viper.New()
	for key, value := range configKeys(cfg) {
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		v.Set(key, value)
	}

	if err := v.WriteConfigAs(file); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the server URL and session are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Session != ""
}

// ClearCache removes all cached data
func ClearCache(dir string) error {
	if dir == "" {
		return nil
	}
	dir, err := ExpandPath(dir)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
