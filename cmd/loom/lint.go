package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"taskdown-hq/loom/pkg/cli"
	"taskdown-hq/loom/pkg/rules/engine"
)

var lintFlags struct {
	dir    string
	file   string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate rule files",
	Long: `Validate automation rule files without running them.

Unlike the daemon, which skips broken files and keeps going, lint reports
every problem it finds and exits non-zero if any rule is invalid.

Examples:
  # Lint a rules directory
  loom lint --dir ./rules

  # Lint a single file, JSON output
  loom lint --file rules/alerts.yaml --format json`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVar(&lintFlags.dir, "dir", "", "rules directory to lint")
	lintCmd.Flags().StringVar(&lintFlags.file, "file", "", "single rule file to lint")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format (text, json)")
}

// lintFinding is one problem in one rule file.
type lintFinding struct {
	File    string `json:"file"`
	RuleID  string `json:"rule_id,omitempty"`
	Problem string `json:"problem"`
}

func runLint(cmd *cobra.Command, args []string) error {
	var paths []string
	switch {
	case lintFlags.file != "":
		paths = []string{lintFlags.file}
	case lintFlags.dir != "":
		err := filepath.WalkDir(lintFlags.dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isYAMLFile(path) {
				return nil
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return cli.NewCommandError("lint", err)
		}
	default:
		return cli.NewConfigError("lint", "either --dir or --file is required")
	}

	var findings []lintFinding
	ruleCount := 0
	for _, path := range paths {
		fileFindings, count := lintFile(path)
		findings = append(findings, fileFindings...)
		ruleCount += count
	}

	if lintFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		if err := formatter.FormatTo(os.Stdout, findings); err != nil {
			return cli.NewCommandError("lint", err)
		}
	} else {
		for _, finding := range findings {
			if finding.RuleID != "" {
				fmt.Printf("%s: rule %q: %s\n", finding.File, finding.RuleID, finding.Problem)
			} else {
				fmt.Printf("%s: %s\n", finding.File, finding.Problem)
			}
		}
		fmt.Printf("\n%d file(s), %d rule(s), %d problem(s)\n", len(paths), ruleCount, len(findings))
	}

	if len(findings) > 0 {
		return cli.NewCommandError("lint", fmt.Errorf("%d problem(s) found", len(findings)))
	}
	return nil
}

// lintFile checks one rule file and returns its findings and how many rules
// it declares.
func lintFile(path string) ([]lintFinding, int) {
	data, err := os.ReadFile(path)
	if err != nil {
		return []lintFinding{{File: path, Problem: fmt.Sprintf("failed to read: %v", err)}}, 0
	}

	var doc struct {
		Rules []engine.Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []lintFinding{{File: path, Problem: fmt.Sprintf("YAML parsing failed: %v", err)}}, 0
	}

	var findings []lintFinding
	if len(doc.Rules) == 0 {
		findings = append(findings, lintFinding{File: path, Problem: "file declares no rules"})
	}

	seen := make(map[string]bool)
	for _, rule := range doc.Rules {
		if err := rule.Validate(); err != nil {
			findings = append(findings, lintFinding{File: path, RuleID: rule.ID, Problem: err.Error()})
		}
		if rule.ID != "" {
			if seen[rule.ID] {
				findings = append(findings, lintFinding{File: path, RuleID: rule.ID, Problem: "duplicate rule id within file"})
			}
			seen[rule.ID] = true
		}
	}

	return findings, len(doc.Rules)
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return false
	}
	return !strings.HasPrefix(filepath.Base(path), ".")
}
