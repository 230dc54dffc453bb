package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/viewq/internal/fixture"
	"github.com/roach88/viewq/internal/query"
)

// QueryOptions holds the flags selecting a store and a query.
type QueryOptions struct {
	*RootOptions
	Session   SessionOptions
	QueryPath string
	Expr      string
}

func addQueryFlags(cmd *cobra.Command, opts *QueryOptions) {
	cmd.Flags().StringVar(&opts.Session.StorePath, "store", "", "fixture file holding the store")
	cmd.Flags().StringVar(&opts.Session.JournalPath, "journal", "", "SQLite journal (overrides journal.path)")
	cmd.Flags().StringVar(&opts.QueryPath, "query", "", "fixture file holding the query")
	cmd.Flags().StringVarP(&opts.Expr, "expr", "e", "", "inline JSON query")
}

// resolveQuery returns the query named by the flags: --expr, then --query,
// then the query of the --store fixture.
func (o *QueryOptions) resolveQuery() (query.Query, error) {
	switch {
	case o.Expr != "":
		q, err := query.Parse([]byte(o.Expr))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --expr", err)
		}
		return q, nil
	case o.QueryPath != "":
		q, err := fixture.LoadQuery(o.QueryPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load query", err)
		}
		return q, nil
	case o.Session.StorePath != "":
		f, err := fixture.Load(o.Session.StorePath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load query", err)
		}
		if !f.HasQuery {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s holds no query; pass --query or --expr", o.Session.StorePath))
		}
		return f.Query, nil
	default:
		return nil, NewExitError(ExitCommandError, "a query is required: pass --query, --expr or a --store fixture with a query")
	}
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Run a local pass",
		Long: `Resolve a query against the store and print the result tree.

Keys absent from the store are omitted from the result.

Examples:
  viewq read --store dashboard.yaml --query widgets.yaml
  viewq read --store dashboard.yaml -e '["app/route", {"app/current-user": ["login"]}]'
  viewq read --journal viewq.db -e '["app/subpage"]' --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(opts, cmd)
		},
	}
	addQueryFlags(cmd, opts)
	return cmd
}

func runRead(opts *QueryOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	q, err := opts.resolveQuery()
	if err != nil {
		return err
	}
	s, err := openSession(cmd.Context(), opts.RootOptions, opts.Session)
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := s.parser.Local(cmd.Context(), q)
	if err != nil {
		return reportParseError(f, "local pass failed", err)
	}
	return f.Canonical(out, "")
}
