package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements ResultStore on a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewSQLiteStore opens (creating if needed) the history database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath, now: time.Now}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// SaveRun implements ResultStore.
func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRecord) (string, error) {
	run.ComparisonID = ""
	prepareRun(&run, s.now)
	if err := insertRun(ctx, s.db, run); err != nil {
		return "", err
	}
	return run.ID, nil
}

// SaveComparison implements ResultStore.
func (s *SQLiteStore) SaveComparison(ctx context.Context, c ComparisonRecord, runs []RunRecord) (string, error) {
	prepareComparison(&c, s.now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO comparisons (id, seed, size, dirt_probability, step_budget, trials, parallelism, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, formatSeed(c.Seed), c.Size, c.DirtProbability, c.StepBudget, c.Trials, c.Parallelism, formatTime(c.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("failed to insert comparison %s: %w", c.ID, err)
	}

	for i, sum := range c.Summaries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO policy_summaries (comparison_id, position, policy, trials, mean_moves, mean_cleaned,
				mean_efficiency, mean_initial_dirt, convergence_rate)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, i, sum.Policy, sum.Trials, sum.MeanMoves, sum.MeanCleaned,
			sum.MeanEfficiency, sum.MeanInitialDirt, sum.ConvergenceRate)
		if err != nil {
			return "", fmt.Errorf("failed to insert %s summary: %w", sum.Policy, err)
		}
	}

	for _, run := range runs {
		run.ComparisonID = c.ID
		run.ID = ""
		run.CreatedAt = c.CreatedAt
		prepareRun(&run, s.now)
		if err := insertRun(ctx, tx, run); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit comparison: %w", err)
	}
	return c.ID, nil
}

// GetComparison implements ResultStore.
func (s *SQLiteStore) GetComparison(ctx context.Context, id string) (*ComparisonRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seed, size, dirt_probability, step_budget, trials, parallelism, created_at
		FROM comparisons WHERE id = ?`, id)
	c, err := scanComparison(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comparison %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadSummaries(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComparisons implements ResultStore.
func (s *SQLiteStore) ListComparisons(ctx context.Context, limit int) ([]ComparisonRecord, error) {
	query := `
		SELECT id, seed, size, dirt_probability, step_budget, trials, parallelism, created_at
		FROM comparisons ORDER BY rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparisons: %w", err)
	}
	var out []ComparisonRecord
	for rows.Next() {
		c, err := scanComparison(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate comparisons: %w", err)
	}
	rows.Close()

	// Summaries are loaded after the cursor is closed; the pool holds one connection.
	for i := range out {
		if err := s.loadSummaries(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListRuns implements ResultStore.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	var where []string
	var args []any
	if filter.ComparisonID == "" {
		where = append(where, "comparison_id IS NULL")
	} else {
		where = append(where, "comparison_id = ?")
		args = append(args, filter.ComparisonID)
	}
	if filter.Policy != "" {
		where = append(where, "policy = ?")
		args = append(args, filter.Policy)
	}

	query := `
		SELECT id, comparison_id, policy, seed, size, dirt_probability, step_budget, moves, cleaned,
			efficiency, initial_dirt, remaining_dirt, steps, outcome, created_at
		FROM runs WHERE ` + strings.Join(where, " AND ") + ` ORDER BY rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r            RunRecord
			comparisonID sql.NullString
			seed         string
			createdAt    string
		)
		if err := rows.Scan(&r.ID, &comparisonID, &r.Policy, &seed, &r.Size, &r.DirtProbability,
			&r.StepBudget, &r.Moves, &r.Cleaned, &r.Efficiency, &r.InitialDirt, &r.RemainingDirt,
			&r.Steps, &r.Outcome, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.ComparisonID = comparisonID.String
		if r.Seed, err = parseSeed(seed); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) loadSummaries(ctx context.Context, c *ComparisonRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT policy, trials, mean_moves, mean_cleaned, mean_efficiency, mean_initial_dirt, convergence_rate
		FROM policy_summaries WHERE comparison_id = ? ORDER BY position`, c.ID)
	if err != nil {
		return fmt.Errorf("failed to query summaries for %s: %w", c.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var sum SummaryRecord
		if err := rows.Scan(&sum.Policy, &sum.Trials, &sum.MeanMoves, &sum.MeanCleaned,
			&sum.MeanEfficiency, &sum.MeanInitialDirt, &sum.ConvergenceRate); err != nil {
			return fmt.Errorf("failed to scan summary: %w", err)
		}
		c.Summaries = append(c.Summaries, sum)
	}
	return rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRun(ctx context.Context, db execer, r RunRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO runs (id, comparison_id, policy, seed, size, dirt_probability, step_budget, moves, cleaned,
			efficiency, initial_dirt, remaining_dirt, steps, outcome, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, nullString(r.ComparisonID), r.Policy, formatSeed(r.Seed), r.Size, r.DirtProbability, r.StepBudget,
		r.Moves, r.Cleaned, r.Efficiency, r.InitialDirt, r.RemainingDirt, r.Steps, r.Outcome, formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComparison(row rowScanner) (ComparisonRecord, error) {
	var (
		c         ComparisonRecord
		seed      string
		createdAt string
	)
	if err := row.Scan(&c.ID, &seed, &c.Size, &c.DirtProbability, &c.StepBudget, &c.Trials,
		&c.Parallelism, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("failed to scan comparison: %w", err)
	}
	var err error
	if c.Seed, err = parseSeed(seed); err != nil {
		return c, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return c, err
	}
	return c, nil
}

// Seeds span the full uint64 range, which SQLite integers cannot hold.
func formatSeed(seed uint64) string {
	return strconv.FormatUint(seed, 10)
}

func parseSeed(s string) (uint64, error) {
	seed, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stored seed %q: %w", s, err)
	}
	return seed, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
