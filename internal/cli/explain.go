package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/queryir"
	"github.com/roach88/kspace/internal/querysql"
	"github.com/roach88/kspace/internal/store"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Name string
	DB   string
}

// ExplainedQuery is the SQL form of one GET.
type ExplainedQuery struct {
	Alias  string `json:"alias,omitempty"`
	SQL    string `json:"sql"`
	Params []any  `json:"params"`

	// Items holds the matching item bodies when --db is given.
	Items []ir.IRValue `json:"items,omitempty"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <dsl-file>",
		Short: "Print the SQL a GET compiles to",
		Long: `Compile a GET (or every GET of a batch) to the parameterized SQLite query
that runs it against an archived space. With --db the queries also run
against the archive and the matching items are printed.

Examples:
  kspace explain query.json --name notes
  kspace explain query.json --db kspace.db --name notes`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", DefaultArchiveName, "archived space name the query is scoped to")
	cmd.Flags().StringVar(&opts.DB, "db", "", "run the queries against this SQLite archive")

	return cmd
}

func runExplain(ctx context.Context, opts *ExplainOptions, dslPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	obj, err := readRequest(dslPath)
	if err != nil {
		return requestFailure(formatter, dslPath, err)
	}
	req, err := queryir.Decode(obj)
	if err != nil {
		return requestFailure(formatter, dslPath, err)
	}

	var gets []*queryir.Get
	switch r := req.(type) {
	case *queryir.Get:
		gets = []*queryir.Get{r}
	case *queryir.Batch:
		gets = r.Queries
	default:
		return formatter.Fail(ExitFailure, ErrCodeNotQuery,
			fmt.Sprintf("only GET requests and batches compile to SQL, got %s", actionName(req)), nil)
	}

	compiler := querysql.NewSQLCompiler(opts.Name)
	explained := make([]ExplainedQuery, 0, len(gets))
	for i, get := range gets {
		sql, params, err := compiler.Compile(get)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeCompile, fmt.Sprintf("query %d cannot be compiled", i), err)
		}
		explained = append(explained, ExplainedQuery{Alias: get.Alias, SQL: sql, Params: params})
	}

	if opts.DB != "" {
		st, err := store.Open(opts.DB)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("cannot open archive %s", opts.DB), err)
		}
		defer st.Close()

		for i, get := range gets {
			items, err := st.Find(ctx, opts.Name, get)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("query %d failed", i), err)
			}
			explained[i].Items = make([]ir.IRValue, len(items))
			for j, it := range items {
				explained[i].Items[j] = it.Value()
			}
		}
	}

	if opts.Format == "json" {
		return formatter.Success(explained)
	}

	w := cmd.OutOrStdout()
	for i, q := range explained {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if q.Alias != "" {
			fmt.Fprintf(w, "-- %s\n", q.Alias)
		}
		fmt.Fprintln(w, q.SQL)
		fmt.Fprintf(w, "-- params: %v\n", q.Params)
		if opts.DB != "" {
			fmt.Fprintf(w, "-- %d item(s)\n", len(q.Items))
			for _, item := range q.Items {
				data, err := ir.MarshalCanonical(item)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, string(data))
			}
		}
	}
	return nil
}
