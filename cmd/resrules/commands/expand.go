package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/resrules/pkg/rules"
)

func newExpandTimeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expand-time <expr>...",
		Short: "Convert interval expressions to seconds",
		Long: `Convert interval and timeout expressions, as used in agent metadata, to
seconds. Suffixes s, m, h, d, w and y are accepted in either case; a bare
number is already in seconds. Values that are zero, negative or not numbers
convert to 0.`,
		Example: `  resrules expand-time 30s 2m 1d`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := make(map[string]int, len(args))
			for _, arg := range args {
				out[arg] = rules.ExpandTime(arg)
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			for _, arg := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", arg, out[arg])
			}
			return nil
		},
	}

	return cmd
}
