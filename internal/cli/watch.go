package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/kspace/internal/engine"
	"github.com/roach88/kspace/internal/queryir"
)

// DefaultDebounce is the quiet period after the last file event before a
// rerun.
const DefaultDebounce = 200 * time.Millisecond

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Space    string
	Debounce time.Duration

	// Ready, when set, is closed once the watcher is registered (for testing).
	Ready chan struct{}
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return newWatchCommand(&WatchOptions{RootOptions: rootOpts})
}

func newWatchCommand(opts *WatchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dsl-file>",
		Short: "Rerun a GET whenever the request or space file changes",
		Long: `Run a GET (or batch of GETs) against a space file and rerun it every
time either file is saved. The space is only read. Stop with Ctrl-C.

Example:
  kspace watch query.json --space space.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Space, "space", "", "space file (JSON or YAML); defaults to $"+EnvSpace)
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", DefaultDebounce, "quiet period before a rerun")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, dslPath string, cmd *cobra.Command) error {
	spacePath := envDefault(opts.Space, EnvSpace)
	if spacePath == "" {
		return NewExitError(ExitCommandError, fmt.Sprintf("a space file is required: set --space or %s", EnvSpace))
	}
	logger := opts.Logger(cmd.ErrOrStderr())

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create file watcher", err)
	}
	defer watcher.Close()

	// Parent directories are watched so saves by rename are seen.
	watched := map[string]bool{}
	for _, p := range []string{dslPath, spacePath} {
		abs, err := filepath.Abs(p)
		if err != nil {
			return WrapExitError(ExitCommandError, "cannot resolve "+p, err)
		}
		watched[abs] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return WrapExitError(ExitCommandError, "failed to watch "+p, err)
		}
	}
	if opts.Ready != nil {
		close(opts.Ready)
	}

	run := func() {
		fmt.Fprintf(cmd.OutOrStdout(), "--- %s\n", time.Now().Format(time.TimeOnly))
		if err := watchOnce(ctx, opts, dslPath, spacePath, cmd); err != nil {
			logger.Debug("watch run failed", "error", err)
		}
	}
	run()

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, watched) {
				continue
			}
			logger.Debug("file changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		case <-timer.C:
			run()
		}
	}
}

func relevant(event fsnotify.Event, watched map[string]bool) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return watched[abs]
}

// watchOnce runs the request read-only and prints the result or the error.
func watchOnce(ctx context.Context, opts *WatchOptions, dslPath, spacePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	obj, err := readRequest(dslPath)
	if err != nil {
		return requestFailure(formatter, dslPath, err)
	}
	req, err := queryir.Decode(obj)
	if err != nil {
		return requestFailure(formatter, dslPath, err)
	}
	if mutates(req) {
		return formatter.Fail(ExitFailure, ErrCodeNotQuery, "watch only runs GET requests and batches", nil)
	}

	src := SpaceSource{File: spacePath}
	sp, err := src.Load(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("cannot load space %s", spacePath), err)
	}

	baseDir := filepath.Dir(dslPath)
	eng := engine.New(
		engine.WithLogger(opts.Logger(cmd.ErrOrStderr())),
		engine.WithBaseDir(baseDir),
		engine.WithContentLoader(engine.FileLoader{BaseDir: baseDir}),
	)
	result, err := eng.Handle(ctx, req, sp)
	if err != nil {
		return formatter.Fail(ExitFailure, string(engine.CodeOf(err)), err.Error(), nil)
	}
	return formatter.Success(result)
}
