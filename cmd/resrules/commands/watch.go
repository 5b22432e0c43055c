package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/resrules/pkg/loader"
)

func newWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Keep the rule catalog in sync with the agent directory",
		Long: `Scan the agent directory, then scan it again whenever agents are added,
changed or removed. Each scan builds a fresh registry that replaces the
previous one in a single step, so readers never see a partially built catalog.

With --metrics-addr the scan, probe and rule counters are served for
Prometheus at /metrics.`,
		Example: `  # Watch the configured directory
  resrules watch

  # Watch and expose metrics
  resrules watch --metrics-addr :9090 ./agents`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, args)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			if s.cfg.Telemetry.Metrics.Enabled {
				srv := s.tel.Metrics.NewMetricsServer()
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error().Err(err).Msg("Metrics server failed")
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			catalog := loader.NewCatalog()
			w := loader.NewWatcher(s.scanner(), catalog, s.cfg.AgentDir)
			w.SetDebounce(debounce)
			w.OnReload = func(report *loader.ScanReport) {
				log.Info().
					Str("scan_id", report.ID).
					Int("rules", catalog.Registry().Len()).
					Int("rejected", report.Rejected()).
					Msg("Rule catalog updated")
			}

			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().DurationVar(&debounce, "debounce", loader.DefaultDebounce, "wait this long for changes to settle")

	return cmd
}
