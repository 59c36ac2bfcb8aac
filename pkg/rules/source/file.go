package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"taskdown-hq/loom/pkg/rules/engine"
)

// LoadError indicates a rule file could not be read or parsed.
type LoadError struct {
	FilePath string
	Message  string
	Cause    error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rule file %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("rule file %q: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ruleDocument is the schema of one YAML rule file.
type ruleDocument struct {
	Rules []engine.Rule `yaml:"rules"`
}

// FileSource loads rule definitions from YAML files in a directory.
// Configuration errors degrade per file and per rule: a malformed file or
// rule is logged and skipped, and loading of the remaining definitions
// continues.
type FileSource struct {
	dir    string
	logger *slog.Logger
}

// NewFileSource creates a file source over the given directory.
func NewFileSource(dir string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		dir:    dir,
		logger: logger.With("component", "rules.source"),
	}
}

// Dir returns the watched directory.
func (s *FileSource) Dir() string {
	return s.dir
}

// Load walks the directory for .yaml/.yml files and collects every valid
// rule. A missing directory yields an empty rule set, not an error, so a
// vault without a rules folder works out of the box.
func (s *FileSource) Load(ctx context.Context) ([]engine.Rule, error) {
	if _, err := os.Stat(s.dir); err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("rules directory does not exist", "dir", s.dir)
			return nil, nil
		}
		return nil, &LoadError{FilePath: s.dir, Message: "failed to access rules directory", Cause: err}
	}

	var rules []engine.Rule
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !isRuleFile(path) {
			return nil
		}

		fileRules, err := s.loadFile(path)
		if err != nil {
			// Skip the file, keep loading siblings.
			s.logger.Warn("skipping malformed rule file", "path", path, "error", err)
			return nil
		}
		rules = append(rules, fileRules...)
		return nil
	})
	if err != nil {
		return nil, &LoadError{FilePath: s.dir, Message: "failed to walk rules directory", Cause: err}
	}

	s.logger.Info("rules loaded", "dir", s.dir, "count", len(rules))
	return rules, nil
}

// loadFile parses one rule file, returning its valid rules. Invalid rules
// within a valid file are skipped individually.
func (s *FileSource) loadFile(path string) ([]engine.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}

	var doc ruleDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{FilePath: path, Message: "YAML parsing failed", Cause: err}
	}

	rules := make([]engine.Rule, 0, len(doc.Rules))
	for _, rule := range doc.Rules {
		if err := rule.Validate(); err != nil {
			s.logger.Warn("skipping invalid rule definition",
				"path", path,
				"rule_id", rule.ID,
				"error", err,
			)
			continue
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

func isRuleFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return false
	}
	return !strings.HasPrefix(filepath.Base(path), ".")
}
