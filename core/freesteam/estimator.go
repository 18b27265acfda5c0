package freesteam

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/kilianp07/cogen/core/logger"
)

// Estimate is the free steam available for one dispatch interval.
type Estimate struct {
	Flow     float64   `json:"flow"` // T/h
	Fallback bool      `json:"fallback"`
	Time     time.Time `json:"time,omitempty"` // record time, zero on fallback
}

// Provider returns the free steam available at a given time, or now when at is nil.
type Provider interface {
	Estimate(ctx context.Context, at *time.Time) (Estimate, error)
}

// Estimator turns sulfur unit flows into available steam.
type Estimator struct {
	src      Source
	fallback float64
	ratio    float64
	log      logger.Logger
}

// NewEstimator returns an estimator reading src. A nil src always yields the
// fallback flow.
func NewEstimator(src Source, fallback, steamRatio float64, log logger.Logger) *Estimator {
	if steamRatio <= 0 {
		steamRatio = 1
	}
	return &Estimator{src: src, fallback: fallback, ratio: steamRatio, log: log}
}

// Estimate implements Provider. ErrNoMatchingRecord is returned as is; any
// other source failure is logged and replaced by the fallback flow.
func (e *Estimator) Estimate(ctx context.Context, at *time.Time) (Estimate, error) {
	if e.src == nil {
		return Estimate{Flow: e.fallback, Fallback: true}, nil
	}
	var (
		rec Record
		err error
	)
	if at == nil {
		rec, err = e.src.Latest(ctx)
	} else {
		rec, err = e.src.At(ctx, *at)
	}
	if err != nil {
		if errors.Is(err, ErrNoMatchingRecord) {
			return Estimate{}, err
		}
		if e.log != nil {
			e.log.Warnw("free steam source unavailable, using fallback", map[string]any{
				"error":    err.Error(),
				"fallback": e.fallback,
			})
		}
		return Estimate{Flow: e.fallback, Fallback: true}, nil
	}
	flow := math.Max(0, SulfurFlow(rec)) * e.ratio
	return Estimate{Flow: flow, Time: rec.Time}, nil
}
