package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/kspace/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // case filter (doublestar pattern)
	GoldenDir string // golden snapshot directory
}

// CaseResult holds the result of a single case execution.
type CaseResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Cases  []CaseResult `json:"cases"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Total  int          `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <cases-dir>",
		Short: "Run data-driven request cases",
		Long: `Run every case below a directory. A case is a directory holding test.yaml,
the request file and the space file it runs against.

Each case passes when its then checks hold and its outcome matches the
golden snapshot, if one exists. Golden files live in --golden-dir, which
defaults to a "golden" directory next to the cases directory.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed
  2 - Command error (invalid paths, etc.)

Examples:
  kspace test ./testdata/cases
  kspace test ./testdata/cases --filter "update-*"
  kspace test ./testdata/cases --update
  kspace test ./testdata/cases --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter cases by doublestar pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "golden file directory (default <cases-dir>/../golden)")

	return cmd
}

// defaultGoldenDir pairs testdata/cases with testdata/golden.
func defaultGoldenDir(casesDir string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(casesDir)), "golden")
}

func runTests(ctx context.Context, opts *TestOptions, casesDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if info, err := os.Stat(casesDir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("cases directory not found: %s", casesDir))
	}

	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = defaultGoldenDir(casesDir)
	}

	cases, err := harness.FindCases(casesDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load cases", err)
	}

	if len(cases) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Cases: []CaseResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No cases found.")
		return nil
	}

	h := harness.New(harness.WithLogger(opts.Logger(cmd.ErrOrStderr())))
	result := TestResult{
		Cases: make([]CaseResult, 0, len(cases)),
		Total: len(cases),
	}

	for _, c := range cases {
		caseResult := runCase(ctx, h, c, goldenDir, opts)
		if opts.Format != "json" {
			printCaseResult(cmd, caseResult, opts.Update)
		}
		result.Cases = append(result.Cases, caseResult)

		if caseResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	// Output results
	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// runCase executes a single case and checks or rewrites its golden file.
func runCase(ctx context.Context, h *harness.Harness, c *harness.Case, goldenDir string, opts *TestOptions) CaseResult {
	fail := func(format string, args ...any) CaseResult {
		return CaseResult{Name: c.Name, Errors: []string{fmt.Sprintf(format, args...)}}
	}

	result, err := h.Run(ctx, c)
	if err != nil {
		return fail("execution failed: %v", err)
	}

	snapshot, err := harness.Snapshot(c, result)
	if err != nil {
		return fail("snapshot failed: %v", err)
	}

	if opts.Update {
		if err := harness.WriteGolden(goldenDir, c, snapshot); err != nil {
			return fail("failed to update golden file: %v", err)
		}
	} else {
		match, exists, err := harness.CompareGolden(goldenDir, c, snapshot)
		if err != nil {
			return fail("golden comparison failed: %v", err)
		}
		if exists && !match {
			result.AddError("outcome does not match golden file (run with --update to regenerate)")
		}
	}

	return CaseResult{Name: c.Name, Pass: result.Pass, Errors: result.Errors}
}

func printCaseResult(cmd *cobra.Command, r CaseResult, updated bool) {
	w := cmd.OutOrStdout()
	if !r.Pass {
		fmt.Fprintf(w, "\u2717 %s\n", r.Name)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	if updated {
		fmt.Fprintf(w, "\u2713 %s (golden updated)\n", r.Name)
		return
	}
	fmt.Fprintf(w, "\u2713 %s\n", r.Name)
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d case(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "\u2713 All cases passed")
	return nil
}
