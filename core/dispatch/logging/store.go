package logging

import (
	"context"
	"time"

	"github.com/kilianp07/cogen/core/model"
)

// LogRecord captures one optimization run. Status, Period and Hour are
// copied out of the result so stores can index them.
type LogRecord struct {
	Timestamp time.Time    `json:"timestamp"`
	RunID     string       `json:"run_id"`
	Status    string       `json:"status"`
	Period    model.Period `json:"period"`
	Hour      int          `json:"hour"`
	Result    model.Result `json:"result"`
}

// NewLogRecord builds the journal entry of a result.
func NewLogRecord(res model.Result) LogRecord {
	return LogRecord{
		Timestamp: res.Timestamp,
		RunID:     res.RunID,
		Status:    res.Solution.Status.String(),
		Period:    res.Solution.Period,
		Hour:      res.Solution.Hour,
		Result:    res,
	}
}

// LogQuery defines filters for retrieving records. Zero fields match
// everything.
type LogQuery struct {
	Start  time.Time
	End    time.Time
	RunID  string
	Status string
	// Limit keeps the most recent records only.
	Limit int
}

// Match reports whether r passes every filter of q except Limit.
func (q LogQuery) Match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	return true
}

func (q LogQuery) limit(res []LogRecord) []LogRecord {
	if q.Limit > 0 && len(res) > q.Limit {
		return res[len(res)-q.Limit:]
	}
	return res
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}
