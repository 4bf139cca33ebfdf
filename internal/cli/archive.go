package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kspace/internal/space"
	"github.com/roach88/kspace/internal/store"
)

// ArchiveOptions holds flags shared by the archive subcommands.
type ArchiveOptions struct {
	*RootOptions
	DB    string
	Name  string
	Space string

	// Now overrides the saved_at timestamp (for testing).
	Now func() time.Time
}

// ArchivedSpace is one row of archive list output.
type ArchivedSpace struct {
	Name      string `json:"name"`
	SavedAt   string `json:"saved_at"`
	ItemCount int    `json:"item_count"`
}

// NewArchiveCommand creates the archive command and its subcommands.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	return newArchiveCommand(&ArchiveOptions{RootOptions: rootOpts})
}

func newArchiveCommand(opts *ArchiveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Move spaces between files and a SQLite archive",
		Long: `Save space files into a SQLite archive under a name, load them back,
list what the archive holds and delete archived spaces.

Examples:
  kspace archive save --db kspace.db --name notes --space notes.yaml
  kspace archive load --db kspace.db --name notes --space restored.json
  kspace archive list --db kspace.db`,
	}

	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite archive; defaults to $"+EnvDB)
	cmd.PersistentFlags().StringVar(&opts.Name, "name", DefaultArchiveName, "archived space name")

	save := &cobra.Command{
		Use:           "save",
		Short:         "Archive a space file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveSave(cmd.Context(), opts, cmd)
		},
	}
	save.Flags().StringVar(&opts.Space, "space", "", "space file to archive; defaults to $"+EnvSpace)

	load := &cobra.Command{
		Use:           "load",
		Short:         "Write an archived space to a file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveLoad(cmd.Context(), opts, cmd)
		},
	}
	load.Flags().StringVar(&opts.Space, "space", "", "file to write (JSON or YAML by extension)")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List archived spaces",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveList(cmd.Context(), opts, cmd)
		},
	}

	del := &cobra.Command{
		Use:           "delete",
		Short:         "Delete an archived space",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveDelete(cmd.Context(), opts, cmd)
		},
	}

	cmd.AddCommand(save, load, list, del)
	return cmd
}

// openArchive opens the archive named by --db or $KSPACE_DB.
func openArchive(opts *ArchiveOptions, f *OutputFormatter) (*store.Store, error) {
	db := envDefault(opts.DB, EnvDB)
	if db == "" {
		return nil, f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("an archive is required: set --db or %s", EnvDB), nil)
	}
	st, err := store.Open(db)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("cannot open archive %s", db), err)
	}
	return st, nil
}

func (o *ArchiveOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func runArchiveSave(ctx context.Context, opts *ArchiveOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	path := envDefault(opts.Space, EnvSpace)
	if path == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("a space file is required: set --space or %s", EnvSpace), nil)
	}
	sp, err := space.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("space file not found: %s", path), nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("cannot load space %s", path), err)
	}

	st, err := openArchive(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveSpace(ctx, opts.Name, sp, opts.now()); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("cannot archive space %q", opts.Name), err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{"name": opts.Name, "item_count": sp.Len()})
	}
	return formatter.Success(fmt.Sprintf("archived %d item(s) as %q", sp.Len(), opts.Name))
}

func runArchiveLoad(ctx context.Context, opts *ArchiveOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openArchive(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	sp, err := st.LoadSpace(ctx, opts.Name)
	if errors.Is(err, store.ErrSpaceNotFound) {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no archived space named %q", opts.Name), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("cannot load archived space %q", opts.Name), err)
	}

	// Without --space the document goes to stdout.
	if opts.Space == "" {
		return formatter.Success(sp.Value())
	}
	if err := space.Save(opts.Space, sp); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("cannot write %s", opts.Space), err)
	}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{"name": opts.Name, "item_count": sp.Len(), "file": opts.Space})
	}
	return formatter.Success(fmt.Sprintf("wrote %d item(s) to %s", sp.Len(), opts.Space))
}

func runArchiveList(ctx context.Context, opts *ArchiveOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openArchive(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	infos, err := st.ListSpaces(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "cannot list archived spaces", err)
	}

	spaces := make([]ArchivedSpace, len(infos))
	for i, info := range infos {
		spaces[i] = ArchivedSpace{Name: info.Name, SavedAt: info.SavedAt, ItemCount: info.ItemCount}
	}
	if opts.Format == "json" {
		return formatter.Success(spaces)
	}

	w := cmd.OutOrStdout()
	if len(spaces) == 0 {
		fmt.Fprintln(w, "No archived spaces.")
		return nil
	}
	for _, s := range spaces {
		fmt.Fprintf(w, "%s\t%d item(s)\tsaved %s\n", s.Name, s.ItemCount, s.SavedAt)
	}
	return nil
}

func runArchiveDelete(ctx context.Context, opts *ArchiveOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openArchive(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteSpace(ctx, opts.Name); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("cannot delete archived space %q", opts.Name), err)
	}
	return formatter.Success(fmt.Sprintf("deleted %q", opts.Name))
}
