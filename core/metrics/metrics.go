package metrics

import (
	"math"
	"time"

	"github.com/kilianp07/cogen/core/model"
)

// DispatchEvent summarises one optimization run.
type DispatchEvent struct {
	RunID              string
	Status             model.Status
	Period             model.Period
	Hour               int
	GridPrice          float64
	ElectricityDemand  float64
	SteamDemand        float64
	GeneratorPower     map[model.GeneratorID]float64
	GeneratorAdmission map[model.GeneratorID]float64
	GridImport         float64
	BoilerOutput       float64
	FreeSteam          float64
	FreeSteamFallback  bool
	// Costs are NaN when the run is not optimal.
	TotalCost    float64
	BaselineCost float64
	Savings      float64
	SolveTime    time.Duration
	Time         time.Time
}

// Optimal reports whether the run produced an optimal dispatch.
func (e DispatchEvent) Optimal() bool { return e.Status == model.StatusOptimal }

// NewDispatchEvent flattens a result into a DispatchEvent.
func NewDispatchEvent(res model.Result) DispatchEvent {
	s := res.Solution
	ev := DispatchEvent{
		RunID:              res.RunID,
		Status:             s.Status,
		Period:             s.Period,
		Hour:               s.Hour,
		GridPrice:          s.GridPrice,
		ElectricityDemand:  res.Request.ElectricityDemand,
		SteamDemand:        res.Request.SteamDemand,
		GeneratorPower:     make(map[model.GeneratorID]float64, len(s.Generators)),
		GeneratorAdmission: make(map[model.GeneratorID]float64, len(s.Generators)),
		GridImport:         s.GridImport,
		BoilerOutput:       s.BoilerOutput,
		FreeSteam:          s.FreeSteam,
		FreeSteamFallback:  s.FreeSteamFallback,
		TotalCost:          math.NaN(),
		BaselineCost:       math.NaN(),
		Savings:            math.NaN(),
		SolveTime:          s.Elapsed,
		Time:               res.Timestamp,
	}
	for _, g := range s.Generators {
		ev.GeneratorPower[g.ID] = g.Power
		ev.GeneratorAdmission[g.ID] = g.Admission
	}
	if s.Optimal() {
		ev.TotalCost = s.TotalCost
		ev.BaselineCost = s.BaselineCost
		ev.Savings = s.Savings
	}
	return ev
}

// MetricsSink records solved dispatches for observability purposes.
type MetricsSink interface {
	RecordDispatch(ev DispatchEvent) error
}

// RecommendationEvent is one emitted recommendation.
type RecommendationEvent struct {
	RunID    string
	Code     string
	Category model.Category
	Priority model.Priority
	Time     time.Time
}

// RecommendationRecorder records emitted recommendations.
type RecommendationRecorder interface {
	RecordRecommendations(evs []RecommendationEvent) error
}

// NewRecommendationEvents lists the recommendations of a result.
func NewRecommendationEvents(res model.Result) []RecommendationEvent {
	evs := make([]RecommendationEvent, len(res.Recommendations))
	for i, r := range res.Recommendations {
		evs[i] = RecommendationEvent{RunID: res.RunID, Code: r.Code, Category: r.Category, Priority: r.Priority, Time: res.Timestamp}
	}
	return evs
}

// FreeSteamEvent captures one free steam estimate. RecordTime is the time of
// the source record, zero when the fallback was used.
type FreeSteamEvent struct {
	Flow       float64
	Fallback   bool
	RecordTime time.Time
	Time       time.Time
}

// RecordAge is how old the source record was when the run used it.
func (e FreeSteamEvent) RecordAge() (time.Duration, bool) {
	if e.RecordTime.IsZero() {
		return 0, false
	}
	return e.Time.Sub(e.RecordTime), true
}

// FreeSteamRecorder records free steam estimates.
type FreeSteamRecorder interface {
	RecordFreeSteam(ev FreeSteamEvent) error
}

// PublishEvent captures the delivery of a result to an external publisher.
type PublishEvent struct {
	Publisher string
	RunID     string
	Error     string
	Latency   time.Duration
	Time      time.Time
}

// PublishRecorder records result deliveries.
type PublishRecorder interface {
	RecordPublish(ev PublishEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatch(DispatchEvent) error                { return nil }
func (NopSink) RecordRecommendations([]RecommendationEvent) error { return nil }
func (NopSink) RecordFreeSteam(FreeSteamEvent) error              { return nil }
func (NopSink) RecordPublish(PublishEvent) error                  { return nil }
