// Package freesteam provides the free steam data sources and caches used in
// production: a CSV export of the sulfur recovery units, an InfluxDB query
// source and a Redis memo cache.
package freesteam

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kilianp07/cogen/core/factory"
	core "github.com/kilianp07/cogen/core/freesteam"
)

// CSVConfig configures a CSV source.
type CSVConfig struct {
	Path       string `json:"path"`
	TimeColumn string `json:"time_column"`
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02",
}

// CSVSource serves records from a CSV file loaded in memory. Rows keep their
// file order; Latest returns the last one.
type CSVSource struct {
	records []core.Record
}

// NewCSVSource loads path. The time column defaults to "Date".
func NewCSVSource(cfg CSVConfig) (*CSVSource, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDataUnavailable, err)
	}
	defer f.Close()
	return ReadCSV(f, cfg.TimeColumn)
}

// ReadCSV parses a sulfur recovery export. Rows with an unparsable time keep
// a zero Time and can only be reached through Latest.
func ReadCSV(r io.Reader, timeColumn string) (*CSVSource, error) {
	if timeColumn == "" {
		timeColumn = "Date"
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", core.ErrDataUnavailable, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	src := &CSVSource{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrDataUnavailable, err)
		}
		rec := core.Record{Values: make(map[string]string, len(header))}
		for i, col := range header {
			if i >= len(row) {
				break
			}
			if col == timeColumn {
				rec.Time = parseTime(row[i])
				continue
			}
			rec.Values[col] = row[i]
		}
		src.records = append(src.records, rec)
	}
	return src, nil
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Len returns the number of rows.
func (s *CSVSource) Len() int { return len(s.records) }

// Latest returns the last row of the file.
func (s *CSVSource) Latest(context.Context) (core.Record, error) {
	if len(s.records) == 0 {
		return core.Record{}, fmt.Errorf("%w: empty dataset", core.ErrDataUnavailable)
	}
	return s.records[len(s.records)-1], nil
}

// At returns the first row stamped ts.
func (s *CSVSource) At(_ context.Context, ts time.Time) (core.Record, error) {
	for _, r := range s.records {
		if !r.Time.IsZero() && r.Time.Equal(ts) {
			return r, nil
		}
	}
	return core.Record{}, fmt.Errorf("%w at %s", core.ErrNoMatchingRecord, ts.Format(time.RFC3339))
}

func init() {
	_ = core.RegisterSource("csv", func(conf map[string]any) (core.Source, error) {
		var c CSVConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewCSVSource(c)
	})
}
