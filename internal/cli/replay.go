package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/viewq/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Show     bool // print the latest snapshot
}

// ReplayResult summarizes a journal.
type ReplayResult struct {
	Mutations     int      `json:"mutations"`
	RemoteQueries int      `json:"remote_queries"`
	Events        int      `json:"events"`
	LastMutation  string   `json:"last_mutation,omitempty"`
	LastSeq       int64    `json:"last_seq"`
	SnapshotHash  string   `json:"snapshot_hash,omitempty"`
	Corrupt       []string `json:"corrupt"`
	Intact        bool     `json:"intact"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Summarize a journal and verify its snapshots",
		Long: `Read the journal, report where a resumed session would start and
recompute the content hash of every stored snapshot.

Exit codes:
  0 - All snapshots match their hashes
  1 - One or more snapshots are corrupt
  2 - Command error (database not found, etc.)

Examples:
  viewq replay --db ./viewq.db
  viewq replay --db ./viewq.db --show
  viewq replay --db ./viewq.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.Show, "show", false, "print the latest snapshot")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result, latest, err := summarize(ctx, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if opts.Format == "json" {
		if err := outputReplayJSON(cmd, result); err != nil {
			return err
		}
	} else if err := outputReplayText(cmd, result); err != nil {
		return err
	}

	if opts.Show && latest != nil {
		f := opts.formatter(cmd)
		if err := f.Canonical(latest.Snapshot, ""); err != nil {
			return err
		}
	}

	if !result.Intact {
		return NewExitError(ExitFailure, fmt.Sprintf("%d corrupt snapshot(s)", len(result.Corrupt)))
	}
	return nil
}

func summarize(ctx context.Context, st *store.Store) (ReplayResult, *store.ReplayState, error) {
	var result ReplayResult

	mutations, err := st.ReadMutations(ctx)
	if err != nil {
		return result, nil, err
	}
	remotes, err := st.ReadRemoteQueries(ctx)
	if err != nil {
		return result, nil, err
	}
	events, err := st.ReadEvents(ctx)
	if err != nil {
		return result, nil, err
	}
	result.Mutations = len(mutations)
	result.RemoteQueries = len(remotes)
	result.Events = len(events)

	if result.LastSeq, err = st.LastSeq(ctx); err != nil {
		return result, nil, err
	}

	latest, ok, err := st.LatestSnapshot(ctx)
	if err != nil {
		return result, nil, err
	}
	var latestPtr *store.ReplayState
	if ok {
		result.LastMutation = latest.LastMutation
		result.SnapshotHash = latest.SnapshotHash
		latestPtr = &latest
	}

	if result.Corrupt, err = st.VerifySnapshots(ctx); err != nil {
		return result, nil, err
	}
	result.Intact = len(result.Corrupt) == 0
	return result, latestPtr, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: statusOf(result.Intact),
		Data:   result,
	}
	if !result.Intact {
		response.Error = &CLIError{
			Code:    "E_CORRUPT_SNAPSHOT",
			Message: "snapshot verification failed",
			Details: result.Corrupt,
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	if result.Mutations == 0 && result.RemoteQueries == 0 {
		fmt.Fprintln(w, "Journal is empty.")
		return nil
	}

	fmt.Fprintf(w, "Journal Summary: %d mutation(s), %d remote quer(ies), %d event(s)\n",
		result.Mutations, result.RemoteQueries, result.Events)
	if result.LastMutation != "" {
		fmt.Fprintf(w, "  Last mutation: %s\n", result.LastMutation)
		fmt.Fprintf(w, "  Snapshot: %s\n", result.SnapshotHash)
	}
	fmt.Fprintf(w, "  Resume at seq: %d\n", result.LastSeq+1)
	fmt.Fprintln(w)

	if result.Intact {
		fmt.Fprintln(w, "✓ All snapshots verified")
		return nil
	}
	for _, h := range result.Corrupt {
		fmt.Fprintf(w, "✗ Corrupt snapshot: %s\n", h)
	}
	return nil
}
