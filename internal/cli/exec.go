package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kspace/internal/engine"
	"github.com/roach88/kspace/internal/queryir"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Space   string
	DB      string
	Name    string
	BaseDir string
	DryRun  bool
	Strict  bool

	// Clock and OperationIDs override the engine defaults (for testing).
	Clock        engine.Clock
	OperationIDs engine.OperationIDGenerator
}

// ExecResult is the JSON data of a successful exec.
type ExecResult struct {
	Action   string   `json:"action"`
	Result   any      `json:"result"`
	Saved    bool     `json:"saved"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	return newExecCommand(&ExecOptions{RootOptions: rootOpts})
}

func newExecCommand(opts *ExecOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <dsl-file>",
		Short: "Run a DSL request against a space",
		Long: `Run one DSL request (GET, CREATE, UPDATE or a batch of GETs) against a
knowledge space and print the result.

The request file may wrap the request in a "dslQuery" object. CREATE and
UPDATE write the space back to where it was loaded from unless --dry-run
is set. Relative config paths and content_ref files resolve against
--base-dir, which defaults to the request file's directory.

Exit codes:
  0 - Request succeeded
  1 - Request failed, or produced warnings under --strict
  2 - Command error (unreadable files, database errors)

Examples:
  kspace exec query.json --space space.json
  kspace exec update.yaml --space space.yaml --dry-run
  kspace exec query.json --db kspace.db --name notes --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Space, "space", "", "space file (JSON or YAML); defaults to $"+EnvSpace)
	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite archive instead of a space file; defaults to $"+EnvDB)
	cmd.Flags().StringVar(&opts.Name, "name", DefaultArchiveName, "archived space name (with --db)")
	cmd.Flags().StringVar(&opts.BaseDir, "base-dir", "", "directory relative paths resolve against")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "do not write the space back")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "refuse requests with validation warnings")

	return cmd
}

func (o *ExecOptions) source() SpaceSource {
	src := SpaceSource{File: o.Space, DB: o.DB, Name: o.Name}
	if src.File == "" && src.DB == "" {
		src.File = envDefault("", EnvSpace)
		if src.File == "" {
			src.DB = envDefault("", EnvDB)
		}
	}
	return src
}

func runExec(ctx context.Context, opts *ExecOptions, dslPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	src := opts.source()
	if err := src.Check(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	obj, err := readRequest(dslPath)
	if err != nil {
		return requestFailure(formatter, dslPath, err)
	}
	req, err := queryir.Decode(obj)
	if err != nil {
		return requestFailure(formatter, dslPath, err)
	}

	validation := queryir.Validate(req)
	for _, w := range validation.Warnings {
		formatter.VerboseLog("warning: %s", w)
	}
	if opts.Strict && !validation.Clean {
		return formatter.Fail(ExitFailure, ErrCodeWarnings,
			fmt.Sprintf("request has %d warning(s): %s", len(validation.Warnings), strings.Join(validation.Warnings, "; ")), nil)
	}

	sp, err := src.Load(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("cannot load space %s", src), err)
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(dslPath)
	}
	ids := opts.OperationIDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}

	opID := ids.Generate()
	formatter.TraceID = opID
	ctx = engine.WithOperationID(ctx, opID)

	eng := engine.New(
		engine.WithLogger(opts.Logger(cmd.ErrOrStderr())),
		engine.WithClock(clock),
		engine.WithBaseDir(baseDir),
		engine.WithContentLoader(engine.FileLoader{BaseDir: baseDir}),
	)

	result, err := eng.Handle(ctx, req, sp)
	if err != nil {
		return formatter.Fail(ExitFailure, string(engine.CodeOf(err)), err.Error(), nil)
	}

	saved := false
	if mutates(req) && !opts.DryRun {
		if err := src.Save(ctx, sp, clock.Now()); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("cannot save space %s", src), err)
		}
		saved = true
		formatter.VerboseLog("saved %d item(s) to %s", sp.Len(), src)
	}

	if opts.Format == "json" {
		return formatter.Success(ExecResult{
			Action:   actionName(req),
			Result:   result,
			Saved:    saved,
			Warnings: validation.Warnings,
		})
	}
	return formatter.Success(result)
}

func mutates(req queryir.Request) bool {
	switch req.(type) {
	case *queryir.Create, *queryir.Update:
		return true
	}
	return false
}

func actionName(req queryir.Request) string {
	switch req.(type) {
	case *queryir.Get:
		return string(queryir.ActionGet)
	case *queryir.Create:
		return string(queryir.ActionCreate)
	case *queryir.Update:
		return string(queryir.ActionUpdate)
	case *queryir.Batch:
		return "BATCH"
	}
	return ""
}
