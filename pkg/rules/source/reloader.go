package source

import (
	"context"
	"log/slog"
	"sync"

	"taskdown-hq/loom/pkg/rules/engine"
)

// Reloader syncs externally sourced rules into an engine. It remembers
// which rule ids it installed so that a reload removes definitions whose
// files disappeared without touching default or programmatically added
// rules.
type Reloader struct {
	source Source
	eng    engine.Engine
	logger *slog.Logger

	mu        sync.Mutex
	installed map[string]struct{}
}

// NewReloader creates a reloader binding a source to an engine.
func NewReloader(src Source, eng engine.Engine, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		source:    src,
		eng:       eng,
		logger:    logger.With("component", "rules.reloader"),
		installed: make(map[string]struct{}),
	}
}

// Reload loads the source and reconciles the engine's externally sourced
// rules with it: new and changed rules are (re)added, rules no longer
// present in the source are removed.
func (r *Reloader) Reload(ctx context.Context) error {
	rules, err := r.source.Load(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		if err := r.eng.AddRule(rule); err != nil {
			r.logger.Warn("failed to install sourced rule", "rule_id", rule.ID, "error", err)
			continue
		}
		next[rule.ID] = struct{}{}
	}

	removed := 0
	for id := range r.installed {
		if _, ok := next[id]; !ok {
			r.eng.RemoveRule(id)
			removed++
		}
	}

	r.installed = next
	r.logger.Info("sourced rules reconciled", "installed", len(next), "removed", removed)
	return nil
}
