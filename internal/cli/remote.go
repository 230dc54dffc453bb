package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRemoteCommand creates the remote command.
func NewRemoteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Run a remote pass",
		Long: `Rewrite a query into the query to send to the backend.

Prints the forwarded query and the same query with query roots lifted to
the top level. With a journal, a non-empty forwarded query is recorded.

Exit codes:
  0 - Pass completed (possibly forwarding nothing)
  1 - Pass failed (a key has no remote policy, malformed ident)
  2 - Command error

Examples:
  viewq remote --store dashboard.yaml
  viewq remote --store dashboard.yaml -e '[{"app/route-data": [{"organization": ["name"]}]}]'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemote(opts, cmd)
		},
	}
	addQueryFlags(cmd, opts)
	return cmd
}

func runRemote(opts *QueryOptions, cmd *cobra.Command) error {
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

	rq, err := s.parser.Remote(cmd.Context(), q)
	if err != nil {
		return reportParseError(f, "remote pass failed", err)
	}
	f.VerboseLog("pass %s seq %d forwarded %d key(s)", rq.PassID, rq.Seq, len(rq.Nodes))

	if rq.Empty() && f.Format != "json" {
		fmt.Fprintln(f.Writer, "Nothing to send.")
		return nil
	}
	return f.Canonical(map[string]any{
		"query": rq.Query.ToAny(),
		"roots": rq.Roots.ToAny(),
	}, rq.PassID)
}
