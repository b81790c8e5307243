package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/models"
)

// SQLiteRunStore implements RunStore on a single SQLite file.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore opens (creating if needed) the run log at dbPath.
func NewSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create run log directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string { return s.dbPath }

// SaveRun stores the run summary, node states and lineage in one transaction.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := rec.Run
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	params, err := json.Marshal(run.Parameters)
	if err != nil {
		return "", fmt.Errorf("marshal parameters: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, seed, parameters, map_file, network_file, sample_file,
			empty_score, score, node_count, jumps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), int64(run.Parameters.Seed), string(params),
		nullString(run.MapFile), nullString(run.NetworkFile), nullString(run.SampleFile),
		nullFloat(run.EmptyScore), nullFloat(run.Score), len(rec.States), run.Jumps)
	if err != nil {
		return "", fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	stateStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO node_states (run_id, position, node_id, x, y, weight_sum, connectivity,
			y_obs, n_obs, p_obs, n_sim, y_sim, p_sim, total_intro, mean_intro, var_intro,
			mean_first_age, var_first_age, mean_last_age, var_last_age, likelihood, max_likelihood, score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare node state insert: %w", err)
	}
	defer stateStmt.Close()

	for i, n := range rec.States {
		_, err := stateStmt.ExecContext(ctx, run.ID, i, n.ID, n.X, n.Y, n.WeightSum, n.Connectivity,
			n.YObs, n.NObs, n.PObs, n.NSim, n.YSim, n.PSim, n.TotalIntroductions,
			nullFloat(n.MeanIntroductions), nullFloat(n.VarIntroductions),
			nullFloat(n.MeanFirstAge), nullFloat(n.VarFirstAge), nullFloat(n.MeanLastAge), nullFloat(n.VarLastAge),
			nullFloat(n.Likelihood), nullFloat(n.MaxLikelihood), nullFloat(n.Score))
		if err != nil {
			return "", fmt.Errorf("failed to insert node %d: %w", n.ID, err)
		}
	}

	lineageStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lineage (run_id, seq, repetition, start_id, end_id, hops, euclidean, iteration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare lineage insert: %w", err)
	}
	defer lineageStmt.Close()

	for i, e := range rec.Lineage {
		if _, err := lineageStmt.ExecContext(ctx, run.ID, i, e.Repetition, e.StartID, e.EndID, e.Hops, e.Euclidean, e.Iteration); err != nil {
			return "", fmt.Errorf("failed to insert lineage event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

const runColumns = `id, started_at, finished_at, parameters, map_file, network_file, sample_file,
	empty_score, score, node_count, jumps`

// GetRun returns the summary row of a run.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// NodeStates returns the saved node rows of a run.
func (s *SQLiteRunStore) NodeStates(ctx context.Context, id string) ([]graph.NodeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireRun(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, x, y, weight_sum, connectivity, y_obs, n_obs, p_obs, n_sim, y_sim, p_sim,
			total_intro, mean_intro, var_intro, mean_first_age, var_first_age, mean_last_age, var_last_age,
			likelihood, max_likelihood, score
		FROM node_states WHERE run_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query node states: %w", err)
	}
	defer rows.Close()

	var out []graph.NodeState
	for rows.Next() {
		var n graph.NodeState
		var meanIntro, varIntro, meanFirst, varFirst, meanLast, varLast, lik, maxLik, score sql.NullFloat64
		if err := rows.Scan(&n.ID, &n.X, &n.Y, &n.WeightSum, &n.Connectivity, &n.YObs, &n.NObs, &n.PObs,
			&n.NSim, &n.YSim, &n.PSim, &n.TotalIntroductions, &meanIntro, &varIntro,
			&meanFirst, &varFirst, &meanLast, &varLast, &lik, &maxLik, &score); err != nil {
			return nil, fmt.Errorf("failed to scan node state: %w", err)
		}
		n.MeanIntroductions, n.VarIntroductions = floatOrNaN(meanIntro), floatOrNaN(varIntro)
		n.MeanFirstAge, n.VarFirstAge = floatOrNaN(meanFirst), floatOrNaN(varFirst)
		n.MeanLastAge, n.VarLastAge = floatOrNaN(meanLast), floatOrNaN(varLast)
		n.Likelihood, n.MaxLikelihood, n.Score = floatOrNaN(lik), floatOrNaN(maxLik), floatOrNaN(score)
		out = append(out, n)
	}
	return out, rows.Err()
}

// Lineage returns the saved lineage events of a run.
func (s *SQLiteRunStore) Lineage(ctx context.Context, id string) ([]models.LineageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireRun(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT repetition, start_id, end_id, hops, euclidean, iteration
		FROM lineage WHERE run_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query lineage: %w", err)
	}
	defer rows.Close()

	var out []models.LineageEvent
	for rows.Next() {
		var e models.LineageEvent
		if err := rows.Scan(&e.Repetition, &e.StartID, &e.EndID, &e.Hops, &e.Euclidean, &e.Iteration); err != nil {
			return nil, fmt.Errorf("failed to scan lineage event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteRun removes a run. Node states and lineage cascade.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteRunStore) requireRun(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up run %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run                              Run
		startedAt, finishedAt, params    string
		mapFile, networkFile, sampleFile sql.NullString
		emptyScore, score                sql.NullFloat64
	)
	err := row.Scan(&run.ID, &startedAt, &finishedAt, &params, &mapFile, &networkFile, &sampleFile,
		&emptyScore, &score, &run.Nodes, &run.Jumps)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &run.Parameters); err != nil {
		return Run{}, fmt.Errorf("run %s: unmarshal parameters: %w", run.ID, err)
	}
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	run.MapFile, run.NetworkFile, run.SampleFile = mapFile.String, networkFile.String, sampleFile.String
	run.EmptyScore, run.Score = floatOrNaN(emptyScore), floatOrNaN(score)
	return run, nil
}

// timeLayout has fixed width so that text order is chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullFloat stores NaN as NULL; SQLite has no NaN.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
