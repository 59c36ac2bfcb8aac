package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the loom daemon.
type Config struct {
	// Vault configures the markdown vault being automated.
	Vault VaultConfig `yaml:"vault"`

	// Rules configures where automation rules are loaded from.
	Rules RulesConfig `yaml:"rules"`

	// Scheduler configures the daily trigger scheduler.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// History configures rule run history persistence.
	History HistoryConfig `yaml:"history"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry configures the metrics endpoint.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// VaultConfig describes the vault directory.
type VaultConfig struct {
	// Path is the vault root directory.
	Path string `yaml:"path"`

	// ItemsDir is the vault subdirectory holding task and project files.
	// Default: "Items".
	ItemsDir string `yaml:"items_dir"`

	// Watch enables dispatching triggers from filesystem changes.
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet time after a burst of writes to one
	// file before its event dispatches. Default: 250ms.
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// RulesConfig describes rule loading.
type RulesConfig struct {
	// Dir is the directory of YAML rule files. Optional; with no rule
	// directory only built-in and programmatic rules run.
	Dir string `yaml:"dir"`

	// Watch enables hot reload when rule files change.
	Watch bool `yaml:"watch"`

	// Defaults enables the built-in starter rules.
	Defaults bool `yaml:"defaults"`

	// DebounceInterval is the reload debounce. Default: 200ms.
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// SchedulerConfig describes the daily scheduler.
type SchedulerConfig struct {
	// Enabled turns the daily scheduler on. Default: true.
	Enabled *bool `yaml:"enabled"`

	// Hour and Minute are the local wall-clock target for the daily
	// trigger. Default: 09:00.
	Hour   int `yaml:"hour"`
	Minute int `yaml:"minute"`

	// Timezone is an IANA timezone name for the target time. Empty means
	// the process's local timezone.
	Timezone string `yaml:"timezone"`

	// CronSchedules are extra daily_schedule firings as standard cron
	// expressions.
	CronSchedules []string `yaml:"cron_schedules"`
}

// HistoryConfig describes run history persistence.
type HistoryConfig struct {
	// Enabled turns SQLite run history on.
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite database file. Default: "<vault>/.loom/history.db".
	DBPath string `yaml:"db_path"`

	// RetentionDays is how long runs are kept before pruning. Zero keeps
	// everything.
	RetentionDays int `yaml:"retention_days"`
}

// LoggingConfig describes structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level"`

	// Format is "text" or "json". Default: text.
	Format string `yaml:"format"`
}

// TelemetryConfig describes the metrics endpoint.
type TelemetryConfig struct {
	// MetricsAddress is the listen address for the Prometheus endpoint.
	// Empty disables it.
	MetricsAddress string `yaml:"metrics_address"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Vault: VaultConfig{
			Path:             ".",
			ItemsDir:         "Items",
			Watch:            true,
			DebounceInterval: 250 * time.Millisecond,
		},
		Rules: RulesConfig{
			Watch:            true,
			Defaults:         true,
			DebounceInterval: 200 * time.Millisecond,
		},
		Scheduler: SchedulerConfig{
			Hour: 9,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Vault.Path == "" {
		cfg.Vault.Path = "."
	}
	if cfg.Vault.ItemsDir == "" {
		cfg.Vault.ItemsDir = "Items"
	}
	if cfg.Vault.DebounceInterval <= 0 {
		cfg.Vault.DebounceInterval = 250 * time.Millisecond
	}
	if cfg.Rules.DebounceInterval <= 0 {
		cfg.Rules.DebounceInterval = 200 * time.Millisecond
	}
	if cfg.Scheduler.Enabled == nil {
		enabled := true
		cfg.Scheduler.Enabled = &enabled
	}
	if cfg.History.Enabled && cfg.History.DBPath == "" {
		cfg.History.DBPath = cfg.Vault.Path + "/.loom/history.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks the configuration for inconsistencies.
func Validate(cfg *Config) error {
	if cfg.Vault.Path == "" {
		return fmt.Errorf("vault.path cannot be empty")
	}
	if cfg.Scheduler.Hour < 0 || cfg.Scheduler.Hour > 23 {
		return fmt.Errorf("scheduler.hour must be in [0,23], got %d", cfg.Scheduler.Hour)
	}
	if cfg.Scheduler.Minute < 0 || cfg.Scheduler.Minute > 59 {
		return fmt.Errorf("scheduler.minute must be in [0,59], got %d", cfg.Scheduler.Minute)
	}
	if cfg.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
			return fmt.Errorf("scheduler.timezone %q is not a valid IANA timezone: %w", cfg.Scheduler.Timezone, err)
		}
	}
	if cfg.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days cannot be negative, got %d", cfg.History.RetentionDays)
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}
	return nil
}
