package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openfroyo/resrules/pkg/agent"
	"github.com/openfroyo/resrules/pkg/rules"
	"github.com/openfroyo/resrules/pkg/telemetry"
)

// Candidate statuses.
const (
	StatusAgent    = "agent"
	StatusNotAgent = "not_agent"
	StatusFailed   = "failed"
)

// backupSuffix marks editor backup files, which are never probed.
const backupSuffix = "~"

// CandidateReport describes the processing of one executable.
type CandidateReport struct {
	Path   string        `json:"path"`
	Status string        `json:"status"`
	Code   string        `json:"code,omitempty"`
	Reason string        `json:"reason,omitempty"`
	Rules  []RuleOutcome `json:"rules,omitempty"`
}

// ScanReport summarizes one directory scan.
type ScanReport struct {
	ID          string            `json:"id"`
	Dir         string            `json:"dir"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Ignored     int               `json:"ignored"`
	RulesStored int               `json:"rules_stored"`
	Candidates  []CandidateReport `json:"candidates"`
}

// Rejected counts rules that were found but not stored.
func (r *ScanReport) Rejected() int {
	n := 0
	for _, c := range r.Candidates {
		for _, o := range c.Rules {
			if !o.Stored {
				n++
			}
		}
	}
	return n
}

// Journal records finished scans.
type Journal interface {
	RecordScan(ctx context.Context, report *ScanReport) error
}

// Scanner discovers resource agents in a directory.
type Scanner struct {
	timeout time.Duration
	tel     *telemetry.Telemetry
	logger  *telemetry.Logger
	journal Journal
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithProbeTimeout bounds every agent invocation. Zero means no bound.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.timeout = d
	}
}

// WithTelemetry sets the telemetry used for logs, spans and metrics.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(s *Scanner) {
		s.tel = tel
	}
}

// WithJournal records every finished scan in j.
func WithJournal(j Journal) Option {
	return func(s *Scanner) {
		s.journal = j
	}
}

// NewScanner creates a Scanner.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{}
	for _, opt := range opts {
		opt(s)
	}
	if s.tel == nil {
		s.tel = telemetry.Nop()
	}
	s.logger = s.tel.Logger.NewComponentLogger("scanner")
	return s
}

// Scan probes every executable regular file in dir and stores the resulting
// rules in reg. Candidates are processed one at a time. Only a directory that
// cannot be read fails the scan; every other problem is reported and skipped.
func (s *Scanner) Scan(ctx context.Context, dir string, reg *rules.Registry) (*ScanReport, error) {
	report := &ScanReport{
		ID:        uuid.New().String(),
		Dir:       dir,
		StartedAt: time.Now(),
	}

	ctx, span := s.tel.Tracer.StartScanSpan(ctx, report.ID, dir)
	defer span.End()

	scanLog := s.logger.WithScanID(report.ID).WithField("dir", dir)
	logger := scanLog.Zerolog()

	entries, err := os.ReadDir(dir)
	if err != nil {
		err = rules.NewFatalError(rules.ErrCodeDirectoryUnreadable, "cannot open agent directory", err)
		telemetry.RecordError(span, err)
		s.tel.Metrics.RecordScan("failed", time.Since(report.StartedAt))
		return nil, err
	}

	prober := agent.NewProber(agent.WithTimeout(s.timeout), agent.WithLogger(logger))
	defer prober.Close()

	builder := NewBuilder(logger, s.tel.Metrics)

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !isCandidate(path, entry.Name()) {
			logger.Trace().Str("path", path).Msg("Ignoring directory entry")
			report.Ignored++
			continue
		}

		cand := s.scanCandidate(ctx, scanLog.WithAgent(path), prober, builder, path, reg)
		for _, o := range cand.Rules {
			if o.Stored {
				report.RulesStored++
			}
		}
		report.Candidates = append(report.Candidates, cand)
	}

	report.FinishedAt = time.Now()
	span.SetAttributes(telemetry.AttrRuleCount.Int(report.RulesStored))
	telemetry.RecordSuccess(span)
	s.tel.Metrics.RecordScan("ok", report.FinishedAt.Sub(report.StartedAt))
	s.tel.Metrics.SetRegistrySize(reg.Len())

	logger.Info().
		Int("candidates", len(report.Candidates)).
		Int("rules_stored", report.RulesStored).
		Int("rules_rejected", report.Rejected()).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Agent directory scanned")

	if s.journal != nil {
		if err := s.journal.RecordScan(ctx, report); err != nil {
			logger.Warn().Err(err).Msg("Failed to record scan in journal")
		}
	}

	return report, nil
}

// scanCandidate probes one executable and builds its rules. agentLog carries
// the scan and agent fields.
func (s *Scanner) scanCandidate(ctx context.Context, agentLog *telemetry.Logger, prober *agent.Prober, builder *Builder, path string, reg *rules.Registry) CandidateReport {
	ctx, span := s.tel.Tracer.StartProbeSpan(ctx, path)
	defer span.End()

	logger := agentLog.Zerolog()

	cand := CandidateReport{Path: path}
	start := time.Now()

	doc, err := prober.Probe(ctx, path)
	switch {
	case err != nil:
		s.tel.Metrics.RecordProbe(telemetry.OutcomeFailed, time.Since(start))
		telemetry.RecordError(span, err)
		span.SetAttributes(telemetry.AttrErrorCode.String(rules.CodeOf(err)))
		logger.Warn().Err(err).Str("reason", rules.CodeOf(err)).Msg("Skipping agent")
		cand.Status = StatusFailed
		cand.Code = rules.CodeOf(err)
		cand.Reason = err.Error()
		return cand

	case doc == nil:
		s.tel.Metrics.RecordProbe(telemetry.OutcomeNotAgent, time.Since(start))
		logger.Debug().Msg("Executable printed no metadata")
		cand.Status = StatusNotAgent
		return cand
	}

	s.tel.Metrics.RecordProbe(telemetry.OutcomeAgent, time.Since(start))
	cand.Status = StatusAgent
	cand.Rules = builder.Build(ctx, doc, path, reg)
	telemetry.RecordSuccess(span)
	return cand
}

// isCandidate reports whether the entry at path should be probed: not a
// backup file, stat-able, a regular file and executable by someone.
func isCandidate(path, name string) bool {
	if name == "" || strings.HasSuffix(name, backupSuffix) {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() || !info.Mode().IsRegular() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
