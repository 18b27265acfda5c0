package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidInput is returned when a request is rejected before the linear
// program is built.
var ErrInvalidInput = errors.New("invalid input")

// Request is one dispatch interval to optimize.
type Request struct {
	ElectricityDemand float64     `json:"elec_demand"`  // MW
	SteamDemand       float64     `json:"steam_demand"` // T/h
	Constraints       Constraints `json:"constraints"`
	// Hour selects the tariff band (0-23). Nil means the current hour.
	Hour *int `json:"hour,omitempty"`
	// At selects the free-steam record to use. Nil means the most recent one.
	At *time.Time `json:"at,omitempty"`
}

// Validate fails fast on out-of-range demands, hour or constraint values.
func (r Request) Validate() error {
	if err := nonNegative("elec_demand", r.ElectricityDemand); err != nil {
		return err
	}
	if err := nonNegative("steam_demand", r.SteamDemand); err != nil {
		return err
	}
	if r.Hour != nil && (*r.Hour < 0 || *r.Hour > 23) {
		return fmt.Errorf("%w: hour must be within 0..23, got %d", ErrInvalidInput, *r.Hour)
	}
	return r.Constraints.Validate()
}

func nonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %s must be a finite non-negative number, got %v", ErrInvalidInput, name, v)
	}
	return nil
}
