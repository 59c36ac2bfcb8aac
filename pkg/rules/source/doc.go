// Package source loads externally defined automation rules and keeps a
// running engine in sync with them.
//
// Rule files are YAML documents of the form:
//
//	rules:
//	  - id: overdue-escalation
//	    name: Escalate overdue tasks
//	    trigger:
//	      type: item_overdue
//	    conditions:
//	      - field: task.priority
//	        operator: equals
//	        value: high
//	    actions:
//	      - type: send_notification
//	        parameters:
//	          message: "Overdue: {{task.title}}"
//
// A malformed file or rule is skipped with a log entry; loading of the
// remaining definitions always continues. The Watcher hot-reloads the
// directory on change (debounced), and the Reloader reconciles the engine's
// externally sourced rule set without disturbing default rules.
package source
