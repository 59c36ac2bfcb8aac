package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"taskdown-hq/loom/pkg/cli"
	"taskdown-hq/loom/pkg/config"
	"taskdown-hq/loom/pkg/history"
	"taskdown-hq/loom/pkg/notify"
	"taskdown-hq/loom/pkg/rules/engine"
	"taskdown-hq/loom/pkg/rules/scheduler"
	"taskdown-hq/loom/pkg/rules/source"
	"taskdown-hq/loom/pkg/vault"
)

var runFlags struct {
	vaultPath string
	logLevel  string
	dryRun    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the loom automation daemon",
	Long: `Start the loom daemon against a vault.

The daemon loads rules, watches the vault and the rule directory for
changes, runs the daily scheduler, and executes rule actions until
interrupted.

Examples:
  # Run against the current directory
  loom run

  # Run with a config file
  loom run --config /etc/loom/loom.yaml

  # Override the vault path
  loom run --vault ~/notes

  # Validate config without starting
  loom run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.vaultPath, "vault", "", "override vault path")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.vaultPath != "" {
		cfg.Vault.Path = runFlags.vaultPath
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Loom v%s\n", Version)
	fmt.Printf("✓ Vault: %s\n", cfg.Vault.Path)

	ctx := cli.SetupSignalHandler()

	// Vault collaborators
	store, err := vault.NewFileStore(cfg.Vault.Path, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	items, err := vault.NewItemRegistry(store, cfg.Vault.ItemsDir, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	notifier := notify.NewLogNotifier(logger)

	// Metrics endpoint
	var metrics *engine.Metrics
	if cfg.Telemetry.MetricsAddress != "" {
		registry := prometheus.NewRegistry()
		metrics = engine.NewMetrics(registry)
		startMetricsServer(ctx, cfg.Telemetry.MetricsAddress, registry, logger)
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Telemetry.MetricsAddress)
	}

	// Run history
	var recorder engine.RunRecorder
	if cfg.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.History.DBPath), 0o755); err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to create history directory: %w", err))
		}
		sqlite, err := history.NewSQLiteRecorder(history.SQLiteRecorderConfig{DBPath: cfg.History.DBPath})
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer sqlite.Close()

		if cfg.History.RetentionDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -cfg.History.RetentionDays)
			if pruned, err := sqlite.Prune(ctx, cutoff); err != nil {
				logger.Warn("history prune failed", "error", err)
			} else if pruned > 0 {
				logger.Info("pruned old rule runs", "pruned", pruned)
			}
		}

		recorder = sqlite
		fmt.Println("✓ Run history enabled")
	}

	// Engine
	executor := engine.NewDefaultExecutor(notifier, store, items, logger)
	eng, err := engine.NewRuleEngine(&engine.Config{
		Executor: executor,
		Logger:   logger,
		Metrics:  metrics,
		Recorder: recorder,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if cfg.Rules.Defaults {
		for _, rule := range engine.DefaultRules() {
			if err := eng.AddRule(rule); err != nil {
				logger.Warn("failed to install built-in rule", "rule_id", rule.ID, "error", err)
			}
		}
	}

	// Rule files
	if cfg.Rules.Dir != "" {
		fileSource := source.NewFileSource(cfg.Rules.Dir, logger)
		reloader := source.NewReloader(fileSource, eng, logger)
		if err := reloader.Reload(ctx); err != nil {
			logger.Warn("initial rule load failed", "error", err)
		}

		if cfg.Rules.Watch {
			watcherConfig := source.DefaultWatcherConfig(cfg.Rules.Dir)
			watcherConfig.DebounceInterval = cfg.Rules.DebounceInterval
			ruleWatcher, err := source.NewWatcher(watcherConfig, logger)
			if err != nil {
				return cli.NewCommandError("run", err)
			}
			go func() {
				if err := ruleWatcher.Watch(ctx, func() error { return reloader.Reload(ctx) }); err != nil {
					logger.Error("rule watcher exited", "error", err)
				}
			}()
		}
	}
	fmt.Printf("✓ Rules loaded (%d rules)\n", len(eng.ListRules()))

	// Vault watcher
	if cfg.Vault.Watch {
		vaultWatcher, err := vault.NewWatcher(store, &vault.WatcherConfig{
			DebounceInterval: cfg.Vault.DebounceInterval,
		}, eng.Dispatch, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := vaultWatcher.Watch(ctx); err != nil {
				logger.Error("vault watcher exited", "error", err)
			}
		}()
		fmt.Println("✓ Vault watcher started")
	}

	// Schedulers. The daily fire also sweeps for overdue items: overdue-ness
	// is a calendar property, so it is checked when the calendar advances.
	overdue := vault.NewOverdueScanner(store, eng.Dispatch, logger)
	dailyDispatch := func(ctx context.Context, trigger engine.TriggerType, ectx engine.Context) {
		eng.Dispatch(ctx, trigger, ectx)
		overdue.Scan(ctx, time.Now())
	}

	if cfg.Scheduler.Enabled != nil && *cfg.Scheduler.Enabled {
		location := time.Local
		if cfg.Scheduler.Timezone != "" {
			location, err = time.LoadLocation(cfg.Scheduler.Timezone)
			if err != nil {
				return cli.NewConfigError("scheduler.timezone", err.Error())
			}
		}

		daily, err := scheduler.NewDaily(&scheduler.DailyConfig{
			Hour:     cfg.Scheduler.Hour,
			Minute:   cfg.Scheduler.Minute,
			Location: location,
		}, dailyDispatch, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		if err := daily.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer daily.Stop()
		fmt.Printf("✓ Daily scheduler armed for %02d:%02d\n", cfg.Scheduler.Hour, cfg.Scheduler.Minute)
	}

	if len(cfg.Scheduler.CronSchedules) > 0 {
		cron, err := scheduler.NewCronScheduler(cfg.Scheduler.CronSchedules, eng.Dispatch, logger)
		if err != nil {
			return cli.NewConfigError("scheduler.cron_schedules", err.Error())
		}
		if err := cron.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer cron.Stop()
		fmt.Printf("✓ Cron schedules registered (%d)\n", len(cfg.Scheduler.CronSchedules))
	}

	fmt.Println("\nPress Ctrl+C to stop")
	<-ctx.Done()

	fmt.Println("\nShutting down...")
	return nil
}

// newLogger builds the process logger from the logging config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// startMetricsServer serves the Prometheus endpoint until the context is
// cancelled.
func startMetricsServer(ctx context.Context, address string, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
