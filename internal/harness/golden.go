package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/kspace/internal/ir"
)

// GoldenSuffix is the extension of golden snapshot files.
const GoldenSuffix = ".golden"

// Snapshot renders the outcome of a case as canonical JSON followed by a
// newline. The space is included only when the operation changed it.
func Snapshot(c *Case, r *Result) ([]byte, error) {
	snap := ir.IRObject{
		"case": ir.IRString(c.Name),
		"desc": ir.IRString(c.Desc),
	}
	if r.Value != nil {
		snap["result"] = r.Value
	}
	if r.ErrorMessage != "" {
		snap["error"] = ir.IRString(r.Code)
	}
	if r.Changed {
		snap["space"] = r.Space
	}

	data, err := ir.MarshalCanonical(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", c.Name, err)
	}
	return append(data, '\n'), nil
}

// GoldenPath returns the golden file of a case below goldenDir.
func GoldenPath(goldenDir string, c *Case) string {
	return filepath.Join(goldenDir, filepath.FromSlash(c.Name)+GoldenSuffix)
}

// WriteGolden stores a snapshot as the case's golden file.
func WriteGolden(goldenDir string, c *Case, snapshot []byte) error {
	path := GoldenPath(goldenDir, c)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, snapshot, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether snapshot matches the case's golden file.
// A missing golden file is reported with exists=false and no error.
func CompareGolden(goldenDir string, c *Case, snapshot []byte) (match, exists bool, err error) {
	data, err := os.ReadFile(GoldenPath(goldenDir, c))
	if os.IsNotExist(err) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(data, snapshot), true, nil
}

// AssertGolden compares a snapshot against testdata/golden/<case name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, c *Case, snapshot []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(GoldenSuffix),
	)
	g.Assert(t, c.Name, snapshot)
}
