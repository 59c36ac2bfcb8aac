// Package vault adapts a directory of markdown files with YAML frontmatter
// into the collaborators the rule engine acts through.
//
// # Layout
//
// A vault is a plain directory tree. Notes are markdown files anywhere in
// the tree; tasks and projects ("items") live under a dedicated
// subdirectory and carry their metadata in a YAML frontmatter block:
//
//	---
//	id: 3f2c9a1e-...
//	title: Write report
//	type: task
//	status: open
//	priority: high
//	due: 2026-09-05
//	---
//	# Write report
//
// # Components
//
// FileStore implements the engine's DocumentStore over the vault root, with
// create-only and modify-only semantics and a path sandbox. ItemRegistry
// implements ItemWriter on top of it, owning item id generation and the
// id-to-file index. Watcher turns filesystem changes into item_created and
// item_updated triggers plus the frontmatter-transition triggers derived
// from them. OverdueScanner sweeps the tree for past-due open items on a
// schedule.
package vault
