package vault

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"taskdown-hq/loom/pkg/rules/engine"
)

// DispatchFunc is the engine entry point the watcher fires into.
type DispatchFunc func(ctx context.Context, trigger engine.TriggerType, ectx engine.Context)

// WatcherConfig contains configuration for the vault change watcher.
type WatcherConfig struct {
	// DebounceInterval is the quiet time after the last write to a file
	// before its event is dispatched (default: 250ms). Editors tend to
	// write files in bursts.
	DebounceInterval time.Duration
}

// itemState is the last observed frontmatter snapshot for one file, kept to
// derive transition triggers from plain write events.
type itemState struct {
	status    string
	kind      string
	milestone string
}

// Watcher observes the vault directory tree and translates markdown file
// changes into rule triggers. A brand-new file dispatches item_created; a
// changed file dispatches item_updated. On top of those it derives
// transition triggers by diffing frontmatter against the last observed
// state: a status moving to done fires item_completed, a project moving to
// active fires project_started, and a changed milestone field fires
// milestone_reached.
type Watcher struct {
	store    *FileStore
	dispatch DispatchFunc
	logger   *slog.Logger
	config   *WatcherConfig

	mu      sync.Mutex
	running bool
	states  map[string]itemState
	pending map[string]*time.Timer
	created map[string]bool
}

// NewWatcher creates a vault change watcher over the given store.
func NewWatcher(store *FileStore, config *WatcherConfig, dispatch DispatchFunc, logger *slog.Logger) (*Watcher, error) {
	if store == nil {
		return nil, fmt.Errorf("document store cannot be nil")
	}
	if dispatch == nil {
		return nil, fmt.Errorf("dispatch function cannot be nil")
	}
	if config == nil {
		config = &WatcherConfig{}
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		store:    store,
		dispatch: dispatch,
		logger:   logger.With("component", "vault.watcher"),
		config:   config,
		states:   make(map[string]itemState),
		pending:  make(map[string]*time.Timer),
		created:  make(map[string]bool),
	}, nil
}

// Watch blocks until the context is cancelled, dispatching triggers for
// vault changes. The whole vault tree is watched; directories created while
// running are picked up.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	defer func() {
		fsw.Close()
		w.mu.Lock()
		for _, timer := range w.pending {
			timer.Stop()
		}
		w.pending = make(map[string]*time.Timer)
		w.running = false
		w.mu.Unlock()
	}()

	if err := w.addTree(fsw, w.store.Root()); err != nil {
		return err
	}
	w.snapshotTree()

	w.logger.Info("vault watcher started", "root", w.store.Root())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("vault watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.handleEvent(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !isMarkdownEvent(event) {
		return
	}

	rel, err := filepath.Rel(w.store.Root(), event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.mu.Lock()
		delete(w.states, rel)
		delete(w.created, rel)
		if timer, ok := w.pending[rel]; ok {
			timer.Stop()
			delete(w.pending, rel)
		}
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	if event.Op&fsnotify.Create != 0 {
		if _, seen := w.states[rel]; !seen {
			w.created[rel] = true
		}
	}
	if timer, ok := w.pending[rel]; ok {
		timer.Stop()
	}
	w.pending[rel] = time.AfterFunc(w.config.DebounceInterval, func() {
		w.flush(ctx, rel)
	})
	w.mu.Unlock()
}

// flush reads the settled file and dispatches its trigger(s).
func (w *Watcher) flush(ctx context.Context, rel string) {
	w.mu.Lock()
	delete(w.pending, rel)
	isNew := w.created[rel]
	delete(w.created, rel)
	previous := w.states[rel]
	w.mu.Unlock()

	content, err := w.store.Read(ctx, rel)
	if err != nil {
		w.logger.Debug("changed file vanished before dispatch", "path", rel)
		return
	}
	doc, err := ParseDocument(content)
	if err != nil {
		w.logger.Warn("skipping file with invalid frontmatter", "path", rel, "error", err)
		return
	}

	current := itemState{
		status:    doc.StringField("status"),
		kind:      doc.StringField("type"),
		milestone: doc.StringField("milestone"),
	}
	w.mu.Lock()
	w.states[rel] = current
	w.mu.Unlock()

	ectx := doc.EventContext(rel, time.Now())

	if isNew {
		w.logger.Debug("dispatching item_created", "path", rel)
		w.dispatch(ctx, engine.TriggerItemCreated, ectx)
	} else {
		w.logger.Debug("dispatching item_updated", "path", rel)
		w.dispatch(ctx, engine.TriggerItemUpdated, ectx)
	}

	for _, trigger := range deriveTransitions(previous, current, isNew) {
		w.logger.Debug("dispatching derived trigger", "path", rel, "trigger", string(trigger))
		w.dispatch(ctx, trigger, ectx)
	}
}

// deriveTransitions compares frontmatter snapshots and returns the
// transition triggers the change implies.
func deriveTransitions(previous, current itemState, isNew bool) []engine.TriggerType {
	var triggers []engine.TriggerType

	if current.status == "done" && (isNew || previous.status != "done") {
		triggers = append(triggers, engine.TriggerItemCompleted)
	}
	if current.kind == "project" && current.status == "active" && (isNew || previous.status != "active") {
		triggers = append(triggers, engine.TriggerProjectStarted)
	}
	if current.milestone != "" && (isNew || previous.milestone != current.milestone) {
		triggers = append(triggers, engine.TriggerMilestoneReached)
	}

	return triggers
}

// snapshotTree records the frontmatter state of every markdown file already
// in the vault so pre-existing files produce item_updated, not
// item_created, on their next change.
func (w *Watcher) snapshotTree() {
	root := w.store.Root()
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil || entry.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		content, err := w.store.Read(context.Background(), rel)
		if err != nil {
			return nil
		}
		doc, err := ParseDocument(content)
		if err != nil {
			return nil
		}
		w.mu.Lock()
		w.states[rel] = itemState{
			status:    doc.StringField("status"),
			kind:      doc.StringField("type"),
			milestone: doc.StringField("milestone"),
		}
		w.mu.Unlock()
		return nil
	})
}

// addTree registers a directory and all its subdirectories with fsnotify.
// Hidden directories (".obsidian" and friends) are skipped.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if name := entry.Name(); path != root && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %q: %w", path, err)
		}
		return nil
	})
}

func isMarkdownEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".md")
}
