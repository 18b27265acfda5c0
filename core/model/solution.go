package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Status is the outcome reported by the solver.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusTimedOut
	StatusOther
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "other"
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{StatusOptimal, StatusInfeasible, StatusUnbounded, StatusTimedOut, StatusOther} {
		if st.String() == s {
			return st, nil
		}
	}
	return StatusOther, fmt.Errorf("unknown solver status %q", s)
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Period is a time-of-day tariff band.
type Period string

const (
	PeriodPeak     Period = "peak"
	PeriodStandard Period = "standard"
	PeriodOffPeak  Period = "off_peak"
)

// CostBreakdown splits an hourly cost by source, DH/h.
type CostBreakdown struct {
	Grid          float64 `json:"grid"`
	Boiler        float64 `json:"boiler"`
	FreeSteam     float64 `json:"sulfur"`
	GeneratorFuel float64 `json:"gta_fuel"`
}

// Total sums every component.
func (c CostBreakdown) Total() float64 {
	return c.Grid + c.Boiler + c.FreeSteam + c.GeneratorFuel
}

// Baseline is the cost of the fixed reference policy for the same demand.
type Baseline struct {
	LoadFraction float64             `json:"gta_load_fraction"`
	Generators   []GeneratorSetpoint `json:"gtas"`
	Power        float64             `json:"gta_power"`
	GridImport   float64             `json:"grid_import"`
	BoilerOutput float64             `json:"boiler_output"`
	FreeSteam    float64             `json:"sulfur_steam"`
	Cost         CostBreakdown       `json:"cost_breakdown"`
	TotalCost    float64             `json:"total_cost"`
}

// Solution is the dispatch produced by one optimization call.
type Solution struct {
	Status             Status              `json:"status"`
	Generators         []GeneratorSetpoint `json:"gtas"`
	GridImport         float64             `json:"grid_import"`   // MW
	BoilerOutput       float64             `json:"boiler_output"` // T/h
	FreeSteam          float64             `json:"sulfur_steam"`  // T/h
	FreeSteamAvailable float64             `json:"sulfur_steam_available"`
	FreeSteamFallback  bool                `json:"sulfur_steam_fallback"`
	// FreeSteamTime is the time of the source record, nil on fallback.
	FreeSteamTime      *time.Time          `json:"sulfur_record_time,omitempty"`
	TotalCost          float64             `json:"total_cost"` // +Inf unless optimal
	Cost               CostBreakdown       `json:"cost_breakdown"`
	Baseline           Baseline            `json:"baseline"`
	BaselineCost       float64             `json:"baseline_cost"`
	Savings            float64             `json:"savings"`
	Hour               int                 `json:"hour"`
	Period             Period              `json:"period"`
	GridPrice          float64             `json:"grid_price"` // DH/kWh
	Elapsed            time.Duration       `json:"solve_time_ns"`
}

// Optimal reports whether the solver found an optimal dispatch.
func (s Solution) Optimal() bool { return s.Status == StatusOptimal }

// GeneratedPower sums the predicted output of every generator.
func (s Solution) GeneratedPower() float64 {
	var p float64
	for _, g := range s.Generators {
		p += g.Power
	}
	return p
}

// ExtractedSteam sums the extraction of every generator.
func (s Solution) ExtractedSteam() float64 {
	var st float64
	for _, g := range s.Generators {
		st += g.Extraction
	}
	return st
}

// TotalSteam sums every steam source.
func (s Solution) TotalSteam() float64 {
	return s.ExtractedSteam() + s.BoilerOutput + s.FreeSteam
}

// Setpoint returns the setpoint of a generator.
func (s Solution) Setpoint(id GeneratorID) (GeneratorSetpoint, bool) {
	for _, g := range s.Generators {
		if g.ID == id {
			return g, true
		}
	}
	return GeneratorSetpoint{}, false
}

// MarshalJSON encodes a non-finite total cost as null.
func (s Solution) MarshalJSON() ([]byte, error) {
	type alias Solution
	out := struct {
		alias
		TotalCost *float64 `json:"total_cost"`
	}{alias: alias(s)}
	if !math.IsInf(s.TotalCost, 0) && !math.IsNaN(s.TotalCost) {
		v := s.TotalCost
		out.TotalCost = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null total cost as +Inf.
func (s *Solution) UnmarshalJSON(b []byte) error {
	type alias Solution
	aux := struct {
		*alias
		TotalCost *float64 `json:"total_cost"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.TotalCost == nil {
		s.TotalCost = math.Inf(1)
	} else {
		s.TotalCost = *aux.TotalCost
	}
	return nil
}
