// Loom is an automation rule engine for markdown task vaults.
//
// It watches a vault of markdown files with YAML frontmatter and runs
// declarative automation rules against what happens in it:
//   - File changes dispatch triggers (item created, updated, completed)
//   - A daily scheduler fires time-based rules and overdue sweeps
//   - Rules send notifications, create notes, and update items
//   - Every rule run can be recorded to a local history database
//
// Usage:
//
//	# Run the daemon against the current directory
//	loom run
//
//	# Run against a configured vault
//	loom run --config /etc/loom/loom.yaml
//
//	# Validate rule files without running anything
//	loom lint --dir ./rules
//
//	# Inspect recent rule runs
//	loom history --limit 20
package main

func main() {
	Execute()
}
