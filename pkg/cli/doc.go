// Package cli holds shared helpers for the loom command-line interface:
// typed command errors, output formatting, and signal-driven shutdown.
//
// Commands wrap failures in ConfigError or CommandError so the top-level
// error output distinguishes "your config is wrong" from "the command
// failed". Output formatting supports text for humans and JSON for
// scripting:
//
//	formatter := cli.NewFormatter(cli.FormatJSON)
//	if err := formatter.FormatTo(os.Stdout, records); err != nil {
//		return err
//	}
//
// For graceful shutdown on SIGINT/SIGTERM:
//
//	ctx := cli.SetupSignalHandler()
//	<-ctx.Done()
package cli
