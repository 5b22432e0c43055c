package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/resrules/pkg/rules"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "Scan and describe every resource rule",
		Long: `Scan the agent directory and describe every resource rule found, in
case-insensitive order of type name: version, instance limit, agent, attributes,
actions and explicitly defined child types.`,
		Example: `  # Describe all rules from the configured directory
  resrules list

  # Dump all rules as JSON
  resrules list --json ./agents`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, args)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			reg := rules.NewRegistry()
			defer reg.DestroyAll()

			if _, err := s.scanner().Scan(ctx, s.cfg.AgentDir, reg); err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), reg.Rules())
			}
			return rules.WriteRegistry(cmd.OutOrStdout(), reg)
		},
	}

	return cmd
}

func newShowCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "show <type>",
		Short: "Scan and describe one resource rule",
		Long: `Scan the agent directory and describe the rule for one resource type.

The type name must match exactly, including case.`,
		Example: `  # Describe the fs resource type
  resrules show fs

  # Describe a type from a specific directory
  resrules show vm --dir ./agents`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var dirArgs []string
			if dir != "" {
				dirArgs = []string{dir}
			}
			s, err := openSession(ctx, dirArgs)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			reg := rules.NewRegistry()
			defer reg.DestroyAll()

			if _, err := s.scanner().Scan(ctx, s.cfg.AgentDir, reg); err != nil {
				return err
			}

			rule, ok := reg.FindByType(args[0])
			if !ok {
				return fmt.Errorf("no rule for resource type %q", args[0])
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), rule)
			}
			return rules.WriteRule(cmd.OutOrStdout(), rule)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "agent directory (default from config)")

	return cmd
}
