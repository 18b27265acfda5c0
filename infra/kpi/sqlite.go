// Package kpi persists the daily savings aggregates.
package kpi

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/cogen/core/metrics/savings"
)

// SQLiteStore persists daily savings records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS daily_savings (
        day INTEGER PRIMARY KEY,
        runs INTEGER,
        optimal_runs INTEGER,
        cost REAL,
        baseline REAL,
        savings REAL
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Add merges the record into the aggregate of its day.
func (s *SQLiteStore) Add(r savings.Record) error {
	d := savings.Day(r.Date)
	_, err := s.db.Exec(`INSERT INTO daily_savings (day, runs, optimal_runs, cost, baseline, savings)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(day) DO UPDATE SET
            runs = runs + excluded.runs,
            optimal_runs = optimal_runs + excluded.optimal_runs,
            cost = cost + excluded.cost,
            baseline = baseline + excluded.baseline,
            savings = savings + excluded.savings`,
		d.Unix(), r.Runs, r.OptimalRuns, r.Cost, r.Baseline, r.Savings)
	return err
}

// Query returns the daily records in the range [start,end].
func (s *SQLiteStore) Query(start, end time.Time) ([]savings.Record, error) {
	start = savings.Day(start)
	end = savings.Day(end)
	rows, err := s.db.Query(`SELECT day, runs, optimal_runs, cost, baseline, savings
        FROM daily_savings WHERE day >= ? AND day <= ? ORDER BY day`,
		start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []savings.Record
	for rows.Next() {
		var (
			ts  int64
			rec savings.Record
		)
		if err := rows.Scan(&ts, &rec.Runs, &rec.OptimalRuns, &rec.Cost, &rec.Baseline, &rec.Savings); err != nil {
			return nil, err
		}
		rec.Date = time.Unix(ts, 0).UTC()
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
