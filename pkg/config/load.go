package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result. An empty path yields the default configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration and applies environment
// variable overrides on top. Variables follow the naming convention
// LOOM_SECTION_FIELD (e.g. LOOM_VAULT_PATH) and always take precedence over
// the file.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("LOOM_VAULT_PATH"); val != "" {
		cfg.Vault.Path = val
	}
	if val := os.Getenv("LOOM_VAULT_ITEMS_DIR"); val != "" {
		cfg.Vault.ItemsDir = val
	}
	if val := os.Getenv("LOOM_VAULT_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Vault.Watch = b
		}
	}
	if val := os.Getenv("LOOM_VAULT_DEBOUNCE_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Vault.DebounceInterval = d
		}
	}

	if val := os.Getenv("LOOM_RULES_DIR"); val != "" {
		cfg.Rules.Dir = val
	}
	if val := os.Getenv("LOOM_RULES_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Rules.Watch = b
		}
	}
	if val := os.Getenv("LOOM_RULES_DEFAULTS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Rules.Defaults = b
		}
	}

	if val := os.Getenv("LOOM_SCHEDULER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Scheduler.Enabled = &b
		}
	}
	if val := os.Getenv("LOOM_SCHEDULER_HOUR"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Scheduler.Hour = i
		}
	}
	if val := os.Getenv("LOOM_SCHEDULER_MINUTE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Scheduler.Minute = i
		}
	}
	if val := os.Getenv("LOOM_SCHEDULER_TIMEZONE"); val != "" {
		cfg.Scheduler.Timezone = val
	}
	if val := os.Getenv("LOOM_SCHEDULER_CRON_SCHEDULES"); val != "" {
		var schedules []string
		for _, expr := range strings.Split(val, ";") {
			if expr = strings.TrimSpace(expr); expr != "" {
				schedules = append(schedules, expr)
			}
		}
		cfg.Scheduler.CronSchedules = schedules
	}

	if val := os.Getenv("LOOM_HISTORY_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.History.Enabled = b
		}
	}
	if val := os.Getenv("LOOM_HISTORY_DB_PATH"); val != "" {
		cfg.History.DBPath = val
	}
	if val := os.Getenv("LOOM_HISTORY_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.History.RetentionDays = i
		}
	}

	if val := os.Getenv("LOOM_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("LOOM_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	if val := os.Getenv("LOOM_TELEMETRY_METRICS_ADDRESS"); val != "" {
		cfg.Telemetry.MetricsAddress = val
	}

	// History enabled via env without a path still needs a default.
	if cfg.History.Enabled && cfg.History.DBPath == "" {
		cfg.History.DBPath = cfg.Vault.Path + "/.loom/history.db"
	}
}
