package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskdown-hq/loom/pkg/rules/engine"
)

// DefaultItemsDir is the vault subdirectory holding task and project files.
const DefaultItemsDir = "Items"

// ItemRegistry stores tasks and projects as markdown files with YAML
// frontmatter under a vault subdirectory. It owns id generation and the
// id-to-file mapping; rule actions only ever see ids and field maps.
type ItemRegistry struct {
	store  *FileStore
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	paths map[string]string // item id -> vault-relative path
}

// NewItemRegistry creates an item registry over the given store, indexing
// any items already present in the items directory. Files whose frontmatter
// cannot be parsed are skipped with a warning; one broken file must not
// take the registry down.
func NewItemRegistry(store *FileStore, dir string, logger *slog.Logger) (*ItemRegistry, error) {
	if store == nil {
		return nil, fmt.Errorf("document store cannot be nil")
	}
	if dir == "" {
		dir = DefaultItemsDir
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &ItemRegistry{
		store:  store,
		dir:    dir,
		logger: logger.With("component", "vault.items"),
		paths:  make(map[string]string),
	}
	if err := r.reindex(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateItem writes a new item file from the given fields and returns its
// generated id. The "title" field names the file; everything else lands in
// the frontmatter as-is.
func (r *ItemRegistry) CreateItem(ctx context.Context, fields map[string]string) (string, error) {
	id := uuid.NewString()

	title := fields["title"]
	if title == "" {
		title = "Untitled"
	}

	frontmatter := make(map[string]any, len(fields)+2)
	for key, value := range fields {
		frontmatter[key] = value
	}
	frontmatter["id"] = id
	if _, ok := frontmatter["created"]; !ok {
		frontmatter["created"] = time.Now().Format("2006-01-02")
	}

	doc := &Document{
		Frontmatter: frontmatter,
		Body:        fmt.Sprintf("# %s\n", title),
	}
	content, err := doc.Render()
	if err != nil {
		return "", err
	}

	path := filepath.ToSlash(filepath.Join(r.dir, fmt.Sprintf("%s-%s.md", slugify(title), id[:8])))
	if err := r.store.Create(ctx, path, content); err != nil {
		return "", err
	}

	r.mu.Lock()
	r.paths[id] = path
	r.mu.Unlock()

	r.logger.Info("item created", "item_id", id, "path", path)
	return id, nil
}

// UpdateItem merges the given fields into an existing item's frontmatter.
// Fields not present in the update are left untouched.
func (r *ItemRegistry) UpdateItem(ctx context.Context, id string, fields map[string]string) error {
	if id == "" {
		return fmt.Errorf("item id cannot be empty")
	}

	path, err := r.pathFor(ctx, id)
	if err != nil {
		return err
	}

	content, err := r.store.Read(ctx, path)
	if err != nil {
		return err
	}
	doc, err := ParseDocument(content)
	if err != nil {
		return fmt.Errorf("item %s has invalid frontmatter: %w", id, err)
	}
	if doc.Frontmatter == nil {
		doc.Frontmatter = make(map[string]any)
	}
	for key, value := range fields {
		doc.Frontmatter[key] = value
	}
	doc.Frontmatter["modified"] = time.Now().Format("2006-01-02")

	updated, err := doc.Render()
	if err != nil {
		return err
	}
	if err := r.store.Modify(ctx, path, updated); err != nil {
		return err
	}

	r.logger.Info("item updated", "item_id", id, "fields", len(fields))
	return nil
}

// Lookup returns the vault-relative path of an item, or "" when unknown.
func (r *ItemRegistry) Lookup(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paths[id]
}

// pathFor resolves an item id to its file, reindexing once on a miss to
// pick up items written by other editors since startup.
func (r *ItemRegistry) pathFor(ctx context.Context, id string) (string, error) {
	r.mu.Lock()
	path, ok := r.paths[id]
	r.mu.Unlock()
	if ok {
		return path, nil
	}

	if err := r.reindex(ctx); err != nil {
		return "", err
	}

	r.mu.Lock()
	path, ok = r.paths[id]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown item %q", id)
	}
	return path, nil
}

// reindex rebuilds the id-to-path map by scanning item frontmatter.
func (r *ItemRegistry) reindex(ctx context.Context) error {
	root := filepath.Join(r.store.Root(), r.dir)

	paths := make(map[string]string)
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		// Items directory does not exist yet; an empty index is fine.
		r.mu.Lock()
		r.paths = paths
		r.mu.Unlock()
		return nil
	}

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}

		rel, err := filepath.Rel(r.store.Root(), path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		content, err := r.store.Read(ctx, rel)
		if err != nil {
			r.logger.Warn("skipping unreadable item file", "path", rel, "error", err)
			return nil
		}
		doc, err := ParseDocument(content)
		if err != nil {
			r.logger.Warn("skipping item file with invalid frontmatter", "path", rel, "error", err)
			return nil
		}
		if id := doc.StringField("id"); id != "" {
			paths[id] = rel
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index items: %w", err)
	}

	r.mu.Lock()
	r.paths = paths
	r.mu.Unlock()
	return nil
}

// slugify turns a title into a filesystem-friendly filename fragment.
func slugify(title string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteRune('-')
				lastDash = true
			}
		}
	}
	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		return "item"
	}
	if len(slug) > 48 {
		slug = strings.TrimSuffix(slug[:48], "-")
	}
	return slug
}

var _ engine.ItemWriter = (*ItemRegistry)(nil)
