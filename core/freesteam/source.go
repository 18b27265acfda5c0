// Package freesteam estimates the steam recovered from the sulfuric acid
// units, available to the dispatch at near-zero marginal cost.
package freesteam

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/cogen/core/factory"
)

var (
	// ErrNoMatchingRecord is returned when a timestamped lookup finds no row.
	ErrNoMatchingRecord = errors.New("no matching free steam record")
	// ErrDataUnavailable is returned by sources that cannot be read.
	ErrDataUnavailable = errors.New("free steam data unavailable")
)

// Record is one row of the sulfur recovery dataset. Values are kept as the
// raw cell text.
type Record struct {
	Time   time.Time
	Values map[string]string
}

// Source gives access to the sulfur recovery dataset.
type Source interface {
	// Latest returns the most recent record.
	Latest(ctx context.Context) (Record, error)
	// At returns the record stamped ts, or ErrNoMatchingRecord.
	At(ctx context.Context, ts time.Time) (Record, error)
}

var sourceRegistry = factory.NewRegistry[Source]()

// RegisterSource adds a source factory identified by name.
func RegisterSource(name string, f factory.Factory[Source]) error {
	return sourceRegistry.Register(name, f)
}

// SourceTypes lists the registered source types.
func SourceTypes() []string { return sourceRegistry.Types() }

// NewSource creates a Source from configuration. An empty type or "none"
// yields a nil Source, which makes the estimator use its fallback.
func NewSource(cfg factory.ModuleConfig) (Source, error) {
	if cfg.Type == "" || cfg.Type == "none" {
		return nil, nil
	}
	return sourceRegistry.Create(cfg)
}

var sulfurMarkers = []string{"soufre", "sulfur", "sulphur"}

// IsSulfurColumn reports whether a column carries a sulfur unit steam flow.
func IsSulfurColumn(name string) bool {
	n := strings.ToLower(name)
	for _, m := range sulfurMarkers {
		if strings.Contains(n, m) {
			return true
		}
	}
	return false
}

// ParseFlow converts a cell to a flow. Placeholders such as "Configure",
// empty cells and unparsable text count as zero.
func ParseFlow(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// SulfurFlow sums every sulfur column of a record, in T/h.
func SulfurFlow(r Record) float64 {
	var total float64
	for col, cell := range r.Values {
		if IsSulfurColumn(col) {
			total += ParseFlow(cell)
		}
	}
	return total
}
