package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Loom - automation rule engine for markdown task vaults",
	Long: `Loom runs declarative automation rules against a vault of markdown
files with YAML frontmatter.

Rules bind a trigger (a task being created, completed, or a daily
schedule) to conditions over the event's fields and a list of actions:
send a notification, create or update an item, write a note. Rule files
are plain YAML and hot-reload while the daemon runs.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
