package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskdown-hq/loom/pkg/cli"
	"taskdown-hq/loom/pkg/config"
	"taskdown-hq/loom/pkg/history"
)

var historyFlags struct {
	ruleID string
	limit  int
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded rule runs",
	Long: `Query the rule run history database.

Requires history to be enabled in the configuration so the daemon has
been recording runs.

Examples:
  # Show the 20 most recent runs
  loom history --limit 20

  # Show runs of one rule, JSON output
  loom history --rule high-priority-alert --format json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyFlags.ruleID, "rule", "", "filter by rule id")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 50, "maximum number of runs to show")
	historyCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format (text, json)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if !cfg.History.Enabled || cfg.History.DBPath == "" {
		return cli.NewConfigError("history.enabled", "run history is not enabled in the configuration")
	}

	recorder, err := history.NewSQLiteRecorder(history.SQLiteRecorderConfig{DBPath: cfg.History.DBPath})
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer recorder.Close()

	records, err := recorder.List(cmd.Context(), historyFlags.ruleID, historyFlags.limit)
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	if historyFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		if err := formatter.FormatTo(os.Stdout, records); err != nil {
			return cli.NewCommandError("history", err)
		}
		return nil
	}

	if len(records) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}
	for _, record := range records {
		line := fmt.Sprintf("%s  %-8s  %-24s  %s",
			record.Time.Format("2006-01-02 15:04:05"),
			record.Status,
			record.RuleID,
			record.Trigger,
		)
		if record.Message != "" {
			line += "  (" + record.Message + ")"
		}
		fmt.Println(line)
	}
	return nil
}
