package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vigil/internal/soak"
)

var _ soak.History = (*RunHistory)(nil)

// RunHistory is the append-only snapshot/checkpoint series of one run.
// The soak controller is its only writer.
type RunHistory struct {
	store *Store
	runID int64
}

// History binds the store to one run's history.
func (s *Store) History(runID int64) *RunHistory {
	return &RunHistory{store: s, runID: runID}
}

func (h *RunHistory) AppendSnapshot(ctx context.Context, snap soak.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %d: %w", snap.Seq, err)
	}
	healthy := 0
	if snap.AllHealthy {
		healthy = 1
	}
	_, err = h.store.db.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, seq, taken_at, all_healthy, record_json) VALUES (?, ?, ?, ?, ?)`,
		h.runID, snap.Seq, snap.TakenAt.UTC().Format(time.RFC3339Nano), healthy, string(payload))
	if err != nil {
		return fmt.Errorf("append snapshot %d: %w", snap.Seq, err)
	}
	return nil
}

func (h *RunHistory) AppendCheckpoint(ctx context.Context, cp soak.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint %d: %w", cp.Seq, err)
	}
	_, err = h.store.db.ExecContext(ctx,
		`INSERT INTO checkpoints (run_id, seq, taken_at, record_json) VALUES (?, ?, ?, ?)`,
		h.runID, cp.Seq, cp.TakenAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("append checkpoint %d: %w", cp.Seq, err)
	}
	return nil
}

func (h *RunHistory) AppendMarker(ctx context.Context, m soak.Marker) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal marker: %w", err)
	}
	_, err = h.store.db.ExecContext(ctx,
		`INSERT INTO markers (run_id, kind, at, record_json) VALUES (?, ?, ?, ?)`,
		h.runID, m.Kind, m.At.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("append marker: %w", err)
	}
	return nil
}

// Snapshots returns the full series ordered by sequence.
func (h *RunHistory) Snapshots(ctx context.Context) ([]soak.Snapshot, error) {
	rows, err := h.store.db.QueryContext(ctx,
		`SELECT record_json FROM snapshots WHERE run_id = ? ORDER BY seq`, h.runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []soak.Snapshot
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		var snap soak.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return out, nil
}

// Checkpoints returns the checkpoint series ordered by sequence.
func (h *RunHistory) Checkpoints(ctx context.Context) ([]soak.Checkpoint, error) {
	rows, err := h.store.db.QueryContext(ctx,
		`SELECT record_json FROM checkpoints WHERE run_id = ? ORDER BY seq`, h.runID)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	var out []soak.Checkpoint
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		var cp soak.Checkpoint
		if err := json.Unmarshal([]byte(raw), &cp); err != nil {
			return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoint rows: %w", err)
	}
	return out, nil
}

// Markers returns the advisory markers of the run in insertion order.
func (h *RunHistory) Markers(ctx context.Context) ([]soak.Marker, error) {
	rows, err := h.store.db.QueryContext(ctx,
		`SELECT record_json FROM markers WHERE run_id = ? ORDER BY at`, h.runID)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	defer rows.Close()

	var out []soak.Marker
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan marker row: %w", err)
		}
		var m soak.Marker
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("unmarshal marker: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate marker rows: %w", err)
	}
	return out, nil
}
