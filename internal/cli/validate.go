package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kspace/internal/queryir"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict bool
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Action   string   `json:"action"`
	Warnings []string `json:"warnings"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <dsl-file>",
		Short: "Check a DSL request without running it",
		Long: `Decode a DSL request and report suspicious constructs without touching
any space.

Decode errors (unknown action, missing create method, malformed batch)
fail with exit code 1. Warnings such as an unknown operator, which matches
every item, are printed and only fail under --strict.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat warnings as failures")

	return cmd
}

func runValidate(opts *ValidateOptions, dslPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	obj, err := readRequest(dslPath)
	if err != nil {
		return requestFailure(formatter, dslPath, err)
	}
	req, err := queryir.Decode(obj)
	if err != nil {
		return requestFailure(formatter, dslPath, err)
	}

	validation := queryir.Validate(req)
	result := ValidationResult{
		Valid:    validation.Clean,
		Action:   actionName(req),
		Warnings: validation.Warnings,
	}

	if opts.Format == "json" {
		if opts.Strict && !validation.Clean {
			if err := formatter.Error(ErrCodeWarnings, fmt.Sprintf("%d warning(s)", len(validation.Warnings)), result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "validation warnings")
		}
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	for _, warning := range validation.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	if validation.Clean {
		fmt.Fprintf(w, "%s request is valid\n", result.Action)
		return nil
	}
	fmt.Fprintf(w, "%s request decoded with %d warning(s)\n", result.Action, len(validation.Warnings))
	if opts.Strict {
		return NewExitError(ExitFailure, "validation warnings")
	}
	return nil
}
