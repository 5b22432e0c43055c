package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/openfroyo/resrules/pkg/loader"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config holds scan journal configuration.
type Config struct {
	// Path is the database file, or ":memory:".
	Path string

	// Retain is the number of most recent scans kept. Zero keeps everything.
	Retain int
}

// ScanSummary is one row of the scan history.
type ScanSummary struct {
	ID          string    `json:"id"`
	Dir         string    `json:"dir"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Ignored     int       `json:"ignored"`
	Candidates  int       `json:"candidates"`
	RulesStored int       `json:"rules_stored"`
	Rejected    int       `json:"rejected"`
}

// Journal implements loader.Journal on top of SQLite.
type Journal struct {
	db     *sql.DB
	path   string
	retain int
}

var _ loader.Journal = (*Journal)(nil)

// NewJournal creates a journal. Call Init and Migrate before use.
func NewJournal(cfg Config) (*Journal, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.Retain < 0 {
		return nil, fmt.Errorf("retain must not be negative, got %d", cfg.Retain)
	}
	return &Journal{
		path:   cfg.Path,
		retain: cfg.Retain,
	}, nil
}

// Open creates, initializes and migrates a journal in one step.
func Open(ctx context.Context, cfg Config) (*Journal, error) {
	j, err := NewJournal(cfg)
	if err != nil {
		return nil, err
	}
	if err := j.Init(ctx); err != nil {
		return nil, err
	}
	if err := j.Migrate(ctx); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

// Init opens the database connection.
func (j *Journal) Init(ctx context.Context) error {
	dsn := j.path
	if dsn != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", j.path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	j.db = db
	return nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (j *Journal) Migrate(_ context.Context) error {
	if j.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(j.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// RecordScan stores a finished scan and its candidate outcomes.
func (j *Journal) RecordScan(ctx context.Context, report *loader.ScanReport) error {
	if j.db == nil {
		return fmt.Errorf("database not initialized")
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scans (id, dir, started_at, finished_at, ignored, rules_stored)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		report.ID,
		report.Dir,
		report.StartedAt.UnixNano(),
		report.FinishedAt.UnixNano(),
		report.Ignored,
		report.RulesStored,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	for seq, cand := range report.Candidates {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scan_candidates (scan_id, seq, path, status, code, reason)
			VALUES (?, ?, ?, ?, ?, ?)
		`, report.ID, seq, cand.Path, cand.Status, nullString(cand.Code), nullString(cand.Reason))
		if err != nil {
			return fmt.Errorf("failed to insert candidate %s: %w", cand.Path, err)
		}

		for ruleSeq, o := range cand.Rules {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO scan_rules (scan_id, seq, rule_seq, rule_type, stored, code, reason)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, report.ID, seq, ruleSeq, o.Type, o.Stored, nullString(o.Code), nullString(o.Reason))
			if err != nil {
				return fmt.Errorf("failed to insert rule outcome %s: %w", o.Type, err)
			}
		}
	}

	if j.retain > 0 {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM scans WHERE id NOT IN (
				SELECT id FROM scans ORDER BY started_at DESC LIMIT ?
			)
		`, j.retain)
		if err != nil {
			return fmt.Errorf("failed to prune scans: %w", err)
		}
	}

	return tx.Commit()
}

// ListScans returns the most recent scans, newest first.
func (j *Journal) ListScans(ctx context.Context, limit int) ([]*ScanSummary, error) {
	if j.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT s.id, s.dir, s.started_at, s.finished_at, s.ignored, s.rules_stored,
		       (SELECT COUNT(*) FROM scan_candidates c WHERE c.scan_id = s.id),
		       (SELECT COUNT(*) FROM scan_rules r WHERE r.scan_id = s.id AND r.stored = 0)
		FROM scans s
		ORDER BY s.started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var out []*ScanSummary
	for rows.Next() {
		var (
			s                 ScanSummary
			started, finished int64
		)
		if err := rows.Scan(&s.ID, &s.Dir, &started, &finished, &s.Ignored, &s.RulesStored, &s.Candidates, &s.Rejected); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		s.StartedAt = time.Unix(0, started)
		s.FinishedAt = time.Unix(0, finished)
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scans: %w", err)
	}

	return out, nil
}

// Candidates returns the candidate outcomes recorded for one scan, in scan order.
func (j *Journal) Candidates(ctx context.Context, scanID string) ([]loader.CandidateReport, error) {
	if j.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT c.seq, c.path, c.status, COALESCE(c.code, ''), COALESCE(c.reason, ''),
		       r.rule_type, r.stored, COALESCE(r.code, ''), COALESCE(r.reason, '')
		FROM scan_candidates c
		LEFT JOIN scan_rules r ON r.scan_id = c.scan_id AND r.seq = c.seq
		WHERE c.scan_id = ?
		ORDER BY c.seq, r.rule_seq
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var out []loader.CandidateReport
	last := -1
	for rows.Next() {
		var (
			seq                         int
			cand                        loader.CandidateReport
			ruleType, ruleCode, ruleMsg sql.NullString
			stored                      sql.NullBool
		)
		if err := rows.Scan(&seq, &cand.Path, &cand.Status, &cand.Code, &cand.Reason,
			&ruleType, &stored, &ruleCode, &ruleMsg); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if seq != last {
			out = append(out, cand)
			last = seq
		}
		if ruleType.Valid {
			cur := &out[len(out)-1]
			cur.Rules = append(cur.Rules, loader.RuleOutcome{
				Type:   ruleType.String,
				Stored: stored.Bool,
				Code:   ruleCode.String,
				Reason: ruleMsg.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
