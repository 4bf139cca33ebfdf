package harness

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// CaseFile is the file name that marks a case directory.
const CaseFile = "test.yaml"

// Default file names for given.dsl_file and given.repo_file.
const (
	DefaultDSLFile  = "dsl.json"
	DefaultRepoFile = "repo.json"
)

// Case modes.
const (
	ModeOperation        = "operation"
	ModeUpdateConditions = "update_conditions"
)

// Case is one data-driven test case.
type Case struct {
	// Desc describes what the case checks.
	Desc string `yaml:"desc"`

	// Given names the input files.
	Given Given `yaml:"given"`

	// Then holds the expectations. Values are kept as decoded YAML and
	// converted to ir values when checked.
	Then map[string]any `yaml:"then"`

	// Name identifies the case: its directory relative to the cases root,
	// with forward slashes. Set by the loader.
	Name string `yaml:"-"`

	// Dir is the case directory. Set by the loader.
	Dir string `yaml:"-"`
}

// Given names the inputs of a case.
type Given struct {
	DSLFile  string `yaml:"dsl_file,omitempty"`
	RepoFile string `yaml:"repo_file,omitempty"`

	// Mode selects what runs: "operation" (default) handles the request
	// against the space; "update_conditions" rewrites conditions only.
	Mode string `yaml:"mode,omitempty"`
}

// DSLPath returns the path of the DSL file.
func (c *Case) DSLPath() string {
	name := c.Given.DSLFile
	if name == "" {
		name = DefaultDSLFile
	}
	return filepath.Join(c.Dir, name)
}

// RepoPath returns the path of the repo file.
func (c *Case) RepoPath() string {
	name := c.Given.RepoFile
	if name == "" {
		name = DefaultRepoFile
	}
	return filepath.Join(c.Dir, name)
}

// LoadCase reads and parses a test.yaml file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}

	// Strict field validation catches typos like "gven:" vs "given:".
	var c Case
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	c.Dir = filepath.Dir(path)
	c.Name = filepath.ToSlash(filepath.Base(c.Dir))

	if err := validateCase(&c); err != nil {
		return nil, fmt.Errorf("invalid case: %w", err)
	}
	return &c, nil
}

// validateCase checks that required fields are present and valid.
func validateCase(c *Case) error {
	if c.Desc == "" {
		return fmt.Errorf("desc is required")
	}
	if len(c.Then) == 0 {
		return fmt.Errorf("then is required and must be non-empty")
	}

	switch c.Given.Mode {
	case "", ModeOperation, ModeUpdateConditions:
	default:
		return fmt.Errorf("given.mode: unknown mode %q", c.Given.Mode)
	}

	if _, err := os.Stat(c.DSLPath()); err != nil {
		return fmt.Errorf("dsl file not found: %s", c.DSLPath())
	}
	if c.Given.Mode != ModeUpdateConditions {
		if _, err := os.Stat(c.RepoPath()); err != nil {
			return fmt.Errorf("repo file not found: %s", c.RepoPath())
		}
	}

	if raw, ok := c.Then[KeyRuleMatch]; ok {
		if _, err := parseRules(raw); err != nil {
			return fmt.Errorf("then.ruleMatch: %w", err)
		}
	}
	return nil
}

// FindCases loads every case below root in lexical order of case name.
// filter, when set, is a doublestar pattern matched against case names
// (for example "update/**" or "*batch*").
func FindCases(root, filter string) ([]*Case, error) {
	if filter != "" && !doublestar.ValidatePattern(filter) {
		return nil, fmt.Errorf("invalid filter pattern %q", filter)
	}

	var cases []*Case
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != CaseFile {
			return nil
		}

		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		if filter != "" {
			matched, err := doublestar.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern %q: %w", filter, err)
			}
			if !matched {
				return nil
			}
		}

		c, err := LoadCase(path)
		if err != nil {
			return fmt.Errorf("case %s: %w", name, err)
		}
		c.Name = name
		cases = append(cases, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(cases, func(a, b *Case) int {
		return strings.Compare(a.Name, b.Name)
	})
	return cases, nil
}
