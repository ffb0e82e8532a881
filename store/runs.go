package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fleetview/protocol"
)

// RunSummary is a persisted SIMULATION_SUMMARY.
type RunSummary struct {
	ID         int64            `json:"id"`
	Summary    protocol.Summary `json:"summary"`
	ReceivedAt time.Time        `json:"received_at"`
}

func (db *DB) SaveRunSummary(sum *protocol.Summary) (int64, error) {
	var stats any
	if len(sum.Statistics) > 0 {
		data, err := json.Marshal(sum.Statistics)
		if err != nil {
			return 0, fmt.Errorf("encode statistics: %w", err)
		}
		stats = string(data)
	}
	return db.insert(`INSERT INTO run_summaries (started_at, finished_at, duration, delivered_orders, fuel_consumed, planning_time, statistics) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sum.StartedAt, sum.FinishedAt, sum.Duration, sum.DeliveredOrders, sum.FuelConsumed, sum.PlanningTime, stats)
}

const runSummaryColumns = `id, started_at, finished_at, duration, delivered_orders, fuel_consumed, planning_time, statistics, received_at`

func scanRunSummary(row interface{ Scan(...any) error }) (*RunSummary, error) {
	var r RunSummary
	var stats []byte
	var receivedAt any
	s := &r.Summary
	if err := row.Scan(&r.ID, &s.StartedAt, &s.FinishedAt, &s.Duration, &s.DeliveredOrders, &s.FuelConsumed, &s.PlanningTime, &stats, &receivedAt); err != nil {
		return nil, err
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &s.Statistics); err != nil {
			return nil, fmt.Errorf("decode statistics of run %d: %w", r.ID, err)
		}
	}
	r.ReceivedAt = parseTime(receivedAt)
	return &r, nil
}

func (db *DB) GetRunSummary(id int64) (*RunSummary, error) {
	row := db.QueryRow(db.Q(`SELECT `+runSummaryColumns+` FROM run_summaries WHERE id=?`), id)
	return scanRunSummary(row)
}

// ListRunSummaries returns the newest runs first.
func (db *DB) ListRunSummaries(limit int) ([]*RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(db.Q(`SELECT `+runSummaryColumns+` FROM run_summaries ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []*RunSummary
	for rows.Next() {
		r, err := scanRunSummary(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ErrNoRows is returned by GetRunSummary for an unknown id.
var ErrNoRows = sql.ErrNoRows
