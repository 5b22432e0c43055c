package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/resrules/pkg/config"
	"github.com/openfroyo/resrules/pkg/loader"
	"github.com/openfroyo/resrules/pkg/stores"
	"github.com/openfroyo/resrules/pkg/telemetry"
)

var (
	// Global flags
	configPath   string
	verbose      bool
	jsonOutput   bool
	journalPath  string
	probeTimeout string

	// metricsAddr is set by commands that serve metrics.
	metricsAddr string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "resrules",
		Short: "Discover and inspect cluster resource agent rules",
		Long: `resrules probes the resource agents installed for the cluster resource
manager, asks each one for its metadata and turns the answers into resource
rules: the attributes, actions and allowed child types of every resource type.

Rules are always listed in case-insensitive order of their type names, so the
output is reproducible whatever order the agents are found in.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal", "", "record scans in this SQLite journal")
	rootCmd.PersistentFlags().StringVar(&probeTimeout, "probe-timeout", "", "bound each agent probe (e.g. 10s)")

	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newExpandTimeCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// session holds what a command needs to scan: configuration, telemetry and
// the optional journal.
type session struct {
	cfg     *config.Config
	tel     *telemetry.Telemetry
	journal *stores.Journal
}

// openSession loads configuration, applies global flags and the optional
// directory argument, and starts telemetry.
func openSession(ctx context.Context, args []string) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.AgentDir = args[0]
	}
	if journalPath != "" {
		cfg.Journal.Path = journalPath
	}
	if probeTimeout != "" {
		d, err := time.ParseDuration(probeTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --probe-timeout: %w", err)
		}
		cfg.ProbeTimeout = d
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if metricsAddr != "" {
		cfg.Telemetry.Metrics.Enabled = true
		cfg.Telemetry.Metrics.ListenAddress = metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	s := &session{cfg: cfg, tel: tel}

	if cfg.Journal.Path != "" {
		j, err := stores.Open(ctx, stores.Config{Path: cfg.Journal.Path, Retain: cfg.Journal.Retain})
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, fmt.Errorf("failed to open scan journal: %w", err)
		}
		s.journal = j
	}

	return s, nil
}

// scanner builds a scanner wired to the session's telemetry and journal.
func (s *session) scanner() *loader.Scanner {
	opts := []loader.Option{
		loader.WithTelemetry(s.tel),
		loader.WithProbeTimeout(s.cfg.ProbeTimeout),
	}
	if s.journal != nil {
		opts = append(opts, loader.WithJournal(s.journal))
	}
	return loader.NewScanner(opts...)
}

func (s *session) close(ctx context.Context) {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close scan journal")
		}
	}
	if err := s.tel.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down telemetry")
	}
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
