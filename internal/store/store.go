// Package store is the sqlite-backed audit store. Every certification
// artifact (baseline, per-tick snapshot, checkpoint, gate cycle, lock
// result, verdict) is persisted as a structured record so a run can be
// replayed and audited after the fact.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"vigil/internal/gate"
	"vigil/internal/lock"
	"vigil/internal/soak"
)

// ErrNotFound means the requested record does not exist.
var ErrNotFound = errors.New("record not found")

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set audit db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set audit db busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize audit schema: %w", err)
	}

	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS baselines (
	run_id INTEGER PRIMARY KEY,
	captured_at TEXT NOT NULL,
	record_json TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots (
	run_id INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	taken_at TEXT NOT NULL,
	all_healthy INTEGER NOT NULL,
	record_json TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS checkpoints (
	run_id INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	taken_at TEXT NOT NULL,
	record_json TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS markers (
	run_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	at TEXT NOT NULL,
	record_json TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS gate_cycles (
	run_id INTEGER NOT NULL,
	cycle INTEGER NOT NULL,
	record_json TEXT NOT NULL,
	PRIMARY KEY (run_id, cycle)
);
CREATE TABLE IF NOT EXISTS lock_results (
	run_id INTEGER NOT NULL,
	recorded_at TEXT NOT NULL,
	record_json TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS verdicts (
	run_id INTEGER PRIMARY KEY,
	rendered_at TEXT NOT NULL,
	record_json TEXT NOT NULL
);`

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateRun registers a new certification run and returns its id.
func (s *Store) CreateRun(ctx context.Context, startedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO runs (started_at) VALUES (?)`,
		startedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read run id: %w", err)
	}
	return id, nil
}

// LatestRun returns the most recent run id.
func (s *Store) LatestRun(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query latest run: %w", err)
	}
	return id, nil
}

// SaveBaseline persists the one baseline record of a run.
func (s *Store) SaveBaseline(ctx context.Context, runID int64, base soak.Baseline) error {
	payload, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO baselines (run_id, captured_at, record_json) VALUES (?, ?, ?)`,
		runID, base.CapturedAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("save baseline: %w", err)
	}
	return nil
}

// Baseline loads the baseline of a run.
func (s *Store) Baseline(ctx context.Context, runID int64) (soak.Baseline, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT record_json FROM baselines WHERE run_id = ?`, runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return soak.Baseline{}, ErrNotFound
	}
	if err != nil {
		return soak.Baseline{}, fmt.Errorf("query baseline: %w", err)
	}
	var base soak.Baseline
	if err := json.Unmarshal([]byte(raw), &base); err != nil {
		return soak.Baseline{}, fmt.Errorf("unmarshal baseline: %w", err)
	}
	return base, nil
}

// SaveGateCycles persists every cycle of a gate run.
func (s *Store) SaveGateCycles(ctx context.Context, runID int64, res gate.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin gate transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range res.Cycles {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal gate cycle %d: %w", c.Cycle, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gate_cycles (run_id, cycle, record_json) VALUES (?, ?, ?)`,
			runID, c.Cycle, string(payload)); err != nil {
			return fmt.Errorf("save gate cycle %d: %w", c.Cycle, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit gate cycles: %w", err)
	}
	return nil
}

// GateCycles loads the recorded cycles of a run ordered by cycle index.
func (s *Store) GateCycles(ctx context.Context, runID int64) ([]gate.CycleResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM gate_cycles WHERE run_id = ? ORDER BY cycle`, runID)
	if err != nil {
		return nil, fmt.Errorf("query gate cycles: %w", err)
	}
	defer rows.Close()

	var out []gate.CycleResult
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan gate cycle row: %w", err)
		}
		var c gate.CycleResult
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("unmarshal gate cycle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gate cycle rows: %w", err)
	}
	return out, nil
}

// SaveLockResult persists a determinism lock outcome.
func (s *Store) SaveLockResult(ctx context.Context, runID int64, res lock.Result, at time.Time) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal lock result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lock_results (run_id, recorded_at, record_json) VALUES (?, ?, ?)`,
		runID, at.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("save lock result: %w", err)
	}
	return nil
}

// LockResults loads the determinism lock outcomes of a run in recording order.
func (s *Store) LockResults(ctx context.Context, runID int64) ([]lock.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM lock_results WHERE run_id = ? ORDER BY recorded_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("query lock results: %w", err)
	}
	defer rows.Close()

	var out []lock.Result
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan lock result row: %w", err)
		}
		var r lock.Result
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("unmarshal lock result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lock result rows: %w", err)
	}
	return out, nil
}

// SaveVerdict persists the finalization verdict of a run.
func (s *Store) SaveVerdict(ctx context.Context, runID int64, v soak.Verdict) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verdicts (run_id, rendered_at, record_json) VALUES (?, ?, ?)`,
		runID, v.RenderedAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("save verdict: %w", err)
	}
	return nil
}

// Verdict loads the verdict of a run.
func (s *Store) Verdict(ctx context.Context, runID int64) (soak.Verdict, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT record_json FROM verdicts WHERE run_id = ?`, runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return soak.Verdict{}, ErrNotFound
	}
	if err != nil {
		return soak.Verdict{}, fmt.Errorf("query verdict: %w", err)
	}
	var v soak.Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return soak.Verdict{}, fmt.Errorf("unmarshal verdict: %w", err)
	}
	return v, nil
}
