package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/viewq/internal/ir"
)

// MutateOptions holds flags for the mutate command.
type MutateOptions struct {
	*RootOptions
	Session SessionOptions
	Params  string // JSON object
}

// NewMutateCommand creates the mutate command.
func NewMutateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mutate <name>",
		Short: "Apply a mutation",
		Long: `Apply the named mutation and print the resulting store.

With a journal the mutation, its snapshot and any analytics event it
emits are recorded, and the next command resumes from that snapshot.
Mutations without a handler change nothing.

Examples:
  viewq mutate route/set-data --store dashboard.yaml \
    --params '{"subpage": "settings", "routeData": {"organization": {"vcsType": "github", "name": "globex"}}}'
  viewq mutate remote/merge --journal viewq.db --params '{"data": {"widgetById": {"7": {"title": "table"}}}}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session.StorePath, "store", "", "fixture file holding the store")
	cmd.Flags().StringVar(&opts.Session.JournalPath, "journal", "", "SQLite journal (overrides journal.path)")
	cmd.Flags().StringVar(&opts.Params, "params", "{}", "mutation params as a JSON object")

	return cmd
}

func runMutate(opts *MutateOptions, name string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	params, err := parseParams(opts.Params)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --params", err)
	}

	s, err := openSession(cmd.Context(), opts.RootOptions, opts.Session)
	if err != nil {
		return err
	}
	defer s.Close()
	if s.resumed {
		f.VerboseLog("resuming from journal at seq %d", s.parser.Clock().Current())
	}

	after, err := s.parser.Transact(cmd.Context(), name, params)
	if err != nil {
		return reportParseError(f, "mutation failed", err)
	}
	return f.Canonical(after.Data(), "")
}

func parseParams(raw string) (ir.Object, error) {
	v, err := ir.UnmarshalValue([]byte(raw))
	if err != nil {
		return nil, err
	}
	params, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("must be a JSON object, got %T", v)
	}
	return params, nil
}
