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
)

// FileStore is the filesystem-backed document store for a vault directory.
// All paths are interpreted relative to the vault root and may not escape
// it.
type FileStore struct {
	root   string
	logger *slog.Logger
}

// NewFileStore creates a document store rooted at the given vault
// directory, creating it if needed.
func NewFileStore(root string, logger *slog.Logger) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("vault root cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault root: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vault root: %w", err)
	}

	return &FileStore{
		root:   absRoot,
		logger: logger.With("component", "vault.store"),
	}, nil
}

// Root returns the absolute vault root directory.
func (s *FileStore) Root() string { return s.root }

// Create writes a new note. It fails when the path already exists so a rule
// that fires twice does not silently overwrite the first note.
func (s *FileStore) Create(ctx context.Context, path, content string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create note directory: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("note %q already exists", path)
		}
		return fmt.Errorf("failed to create note %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write note %q: %w", path, err)
	}

	s.logger.Debug("note created", "path", path)
	return nil
}

// Modify replaces the content of an existing note. It fails when the note
// does not exist.
func (s *FileStore) Modify(ctx context.Context, path, content string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("note %q does not exist", path)
		}
		return fmt.Errorf("failed to stat note %q: %w", path, err)
	}

	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to modify note %q: %w", path, err)
	}

	s.logger.Debug("note modified", "path", path)
	return nil
}

// Read returns the content of a note.
func (s *FileStore) Read(ctx context.Context, path string) (string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("note %q does not exist", path)
		}
		return "", fmt.Errorf("failed to read note %q: %w", path, err)
	}
	return string(data), nil
}

// resolve maps a vault-relative path to an absolute one, rejecting paths
// that would land outside the vault root.
func (s *FileStore) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("note path cannot be empty")
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("note path %q must be relative to the vault root", path)
	}

	full := filepath.Join(s.root, filepath.FromSlash(path))
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("note path %q escapes the vault root", path)
	}
	return full, nil
}
