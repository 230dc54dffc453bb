package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/viewq/internal/app"
	"github.com/roach88/viewq/internal/fixture"
	"github.com/roach88/viewq/internal/query"
)

// ValidationResult holds validation results for every checked query.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Queries []QueryValidation `json:"queries"`
}

// QueryValidation holds the findings for one query.
type QueryValidation struct {
	Source        string   `json:"source"`
	Warnings      []string `json:"warnings,omitempty"`
	MissingRemote []string `json:"missing_remote,omitempty"`
}

func (q QueryValidation) clean() bool {
	return len(q.Warnings) == 0 && len(q.MissingRemote) == 0
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Expr string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [query-file...]",
		Short: "Check queries without resolving them",
		Long: `Check queries for suspicious shapes and for top-level keys that would
fail a remote pass for lack of a remote policy.

Each file is a query fixture (.yaml, .yml, .json or .cue). No store is
read.

Exit codes:
  0 - All queries are clean
  1 - Warnings or missing remote policies
  2 - Command error (unreadable file, malformed query)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.Expr, "expr", "e", "", "inline JSON query")

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if len(paths) == 0 && opts.Expr == "" {
		return NewExitError(ExitCommandError, "nothing to validate: pass query files or --expr")
	}

	reg, err := app.NewRegistry(nil)
	if err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}

	type source struct {
		name string
		q    query.Query
	}
	var sources []source
	if opts.Expr != "" {
		q, err := query.Parse([]byte(opts.Expr))
		if err != nil {
			return outputValidateError(formatter, "E_QUERY", err)
		}
		sources = append(sources, source{name: "--expr", q: q})
	}
	for _, p := range paths {
		q, err := fixture.LoadQuery(p)
		if err != nil {
			code := "E_QUERY"
			var le *fixture.LoadError
			if errors.As(err, &le) {
				code = le.Code
			}
			return outputValidateError(formatter, code, err)
		}
		sources = append(sources, source{name: p, q: q})
	}

	result := ValidationResult{Valid: true, Queries: make([]QueryValidation, 0, len(sources))}
	for _, s := range sources {
		formatter.VerboseLog("Validating %s", s.name)
		qv := QueryValidation{Source: s.name, Warnings: query.Validate(s.q).Warnings}
		for _, k := range reg.MissingRemote(s.q) {
			qv.MissingRemote = append(qv.MissingRemote, k.String())
		}
		if !qv.clean() {
			result.Valid = false
		}
		result.Queries = append(result.Queries, qv)
	}

	if err := outputValidation(formatter, result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func outputValidation(f *OutputFormatter, result ValidationResult) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: statusOf(result.Valid), Data: result})
	}

	for _, q := range result.Queries {
		if q.clean() {
			fmt.Fprintf(f.Writer, "✓ %s\n", q.Source)
			continue
		}
		fmt.Fprintf(f.Writer, "✗ %s\n", q.Source)
		for _, w := range q.Warnings {
			fmt.Fprintf(f.Writer, "  warning: %s\n", w)
		}
		for _, k := range q.MissingRemote {
			fmt.Fprintf(f.Writer, "  no remote policy: %s\n", k)
		}
	}
	return nil
}

func outputValidateError(f *OutputFormatter, code string, err error) error {
	if outErr := f.Error(code, err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "failed to load query", err)
}

func statusOf(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
