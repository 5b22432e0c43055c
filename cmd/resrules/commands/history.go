package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		scanID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded scans from the journal",
		Long: `Show scans recorded in the scan journal, newest first, or the candidate
outcomes of one scan with --scan.`,
		Example: `  # Show the last 10 scans
  resrules history --journal ./journal.db --limit 10

  # Show what one scan found
  resrules history --journal ./journal.db --scan 0f8c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, nil)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			if s.journal == nil {
				return fmt.Errorf("no journal configured (use --journal or journal.path)")
			}

			w := cmd.OutOrStdout()
			if scanID != "" {
				cands, err := s.journal.Candidates(ctx, scanID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(w, cands)
				}
				for _, c := range cands {
					fmt.Fprintf(w, "%s\t%s\t%s\n", c.Path, c.Status, c.Code)
					for _, o := range c.Rules {
						status := "stored"
						if !o.Stored {
							status = "rejected " + o.Code
						}
						fmt.Fprintf(w, "  %s\t%s\n", o.Type, status)
					}
				}
				return nil
			}

			scans, err := s.journal.ListScans(ctx, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(w, scans)
			}
			for _, sc := range scans {
				fmt.Fprintf(w, "%s\t%s\t%s\tcandidates=%d stored=%d rejected=%d\n",
					sc.ID, sc.StartedAt.Format(time.RFC3339), sc.Dir, sc.Candidates, sc.RulesStored, sc.Rejected)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of scans to show")
	cmd.Flags().StringVar(&scanID, "scan", "", "show the candidates of one scan")

	return cmd
}
