package vault

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"taskdown-hq/loom/pkg/rules/engine"
)

// OverdueScanner sweeps the vault for items whose due date has passed and
// dispatches item_overdue triggers for them. It is meant to run from the
// daily scheduler rather than on every file event, since overdue-ness is a
// property of the calendar, not of a write.
type OverdueScanner struct {
	store    *FileStore
	dispatch DispatchFunc
	logger   *slog.Logger

	mu    sync.Mutex
	fired map[string]string // item path -> date last fired
}

// NewOverdueScanner creates an overdue scanner over the given store.
func NewOverdueScanner(store *FileStore, dispatch DispatchFunc, logger *slog.Logger) *OverdueScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverdueScanner{
		store:    store,
		dispatch: dispatch,
		logger:   logger.With("component", "vault.overdue"),
		fired:    make(map[string]string),
	}
}

// Scan walks the vault and dispatches item_overdue for every open item with
// a due date strictly before today. Each item fires at most once per
// calendar day so a rule sending reminders does not spam on repeated
// sweeps.
func (s *OverdueScanner) Scan(ctx context.Context, now time.Time) {
	today := now.Format("2006-01-02")
	root := s.store.Root()
	overdue := 0

	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if entry.IsDir() {
			if name := entry.Name(); path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		content, err := s.store.Read(ctx, rel)
		if err != nil {
			return nil
		}
		doc, err := ParseDocument(content)
		if err != nil {
			s.logger.Warn("skipping file with invalid frontmatter", "path", rel, "error", err)
			return nil
		}

		if !isOverdue(doc, now) {
			return nil
		}

		s.mu.Lock()
		alreadyFired := s.fired[rel] == today
		if !alreadyFired {
			s.fired[rel] = today
		}
		s.mu.Unlock()
		if alreadyFired {
			return nil
		}

		overdue++
		s.dispatch(ctx, engine.TriggerItemOverdue, doc.EventContext(rel, now))
		return nil
	})

	s.logger.Info("overdue sweep complete", "overdue", overdue)
}

// isOverdue reports whether the document is an open item with a due date
// strictly before today. Items without a parseable due date never count.
func isOverdue(doc *Document, now time.Time) bool {
	if doc.StringField("status") == "done" {
		return false
	}
	raw := doc.StringField("due")
	if raw == "" {
		return false
	}
	due, err := time.ParseInLocation("2006-01-02", raw, now.Location())
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return due.Before(today)
}
