package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/viewq/internal/app"
)

// KeysResult lists the registered handlers.
type KeysResult struct {
	Reads     []string `json:"reads"`
	Mutations []string `json:"mutations"`
}

// NewKeysCommand creates the keys command.
func NewKeysCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "keys",
		Short:         "List keys and mutations with registered handlers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := app.NewRegistry(nil)
			if err != nil {
				return err
			}
			reads, mutations := reg.Keys()
			result := KeysResult{Reads: reads, Mutations: mutations}

			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(result)
			}
			fmt.Fprintln(f.Writer, "Reads:")
			for _, k := range reads {
				fmt.Fprintf(f.Writer, "  %s\n", k)
			}
			fmt.Fprintln(f.Writer, "Mutations:")
			for _, m := range mutations {
				fmt.Fprintf(f.Writer, "  %s\n", m)
			}
			return nil
		},
	}
}
