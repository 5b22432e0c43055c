package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/openfroyo/resrules/pkg/loader"
	"github.com/openfroyo/resrules/pkg/rules"
)

func newScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Probe every resource agent in a directory",
		Long: `Probe every executable in the agent directory with the meta-data argument
and build resource rules from the answers.

Backup files (ending in ~), directories and files without an execute bit are
ignored. Executables that print nothing are not resource agents and are
skipped. Agents that print malformed metadata, rules that reuse the reserved
type name "action", duplicate type names and rules with conflicting attribute
markers are reported and skipped; the scan carries on with the rest.`,
		Example: `  # Scan the configured agent directory
  resrules scan

  # Scan a specific directory and print the report as JSON
  resrules scan --json ./agents

  # Record the scan in a journal
  resrules scan --journal /var/lib/resrules/journal.db`,
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

			report, err := s.scanner().Scan(ctx, s.cfg.AgentDir, reg)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			writeScanSummary(cmd.OutOrStdout(), report, reg)
			return nil
		},
	}

	return cmd
}

// writeScanSummary prints a short human-readable scan report.
func writeScanSummary(w io.Writer, report *loader.ScanReport, reg *rules.Registry) {
	fmt.Fprintf(w, "Scanned %s: %d candidates, %d ignored\n", report.Dir, len(report.Candidates), report.Ignored)
	fmt.Fprintf(w, "Rules stored: %d, rejected: %d\n", report.RulesStored, report.Rejected())

	for _, cand := range report.Candidates {
		switch cand.Status {
		case loader.StatusFailed:
			fmt.Fprintf(w, "  skipped %s: %s\n", cand.Path, cand.Code)
		case loader.StatusAgent:
			for _, o := range cand.Rules {
				if !o.Stored {
					fmt.Fprintf(w, "  rejected %s from %s: %s\n", o.Type, cand.Path, o.Code)
				}
			}
		}
	}

	for _, name := range reg.TypeNames() {
		fmt.Fprintf(w, "  %s\n", name)
	}
}
