package advisor

import (
	"fmt"
	"reflect"
)

// Thresholds parameterise the rules. Zero values are replaced by the
// defaults in SetDefaults.
type Thresholds struct {
	MinSavings       float64 `json:"min_savings"`        // DH/h
	HoursPerYear     float64 `json:"hours_per_year"`     // annualisation factor
	GeneratorPower   float64 `json:"generator_power"`    // MW, below which a generator gets no guidance
	HighAdmission    float64 `json:"high_admission"`     // T/h, near-capacity guidance
	MinAdmission     float64 `json:"min_admission"`      // T/h, setpoint guidance
	BoilerBaseline   float64 `json:"boiler_baseline"`    // T/h of baseline boiler worth shutting down
	BoilerIdle       float64 `json:"boiler_idle"`        // T/h under which the boiler counts as off
	BoilerHigh       float64 `json:"boiler_high"`        // T/h of boiler flagged as expensive
	PeakGrid         float64 `json:"peak_grid"`          // MW of import flagged at peak
	GridReduction    float64 `json:"grid_reduction"`     // MW of import reduction praised
	GridCeilingRatio float64 `json:"grid_ceiling_ratio"` // share of the import limit flagged
	BasePressure     float64 `json:"base_pressure"`      // bar
	PressureGain     float64 `json:"pressure_gain"`      // bar per unit of supply/demand ratio
	MinPressure      float64 `json:"min_pressure"`       // bar, MP header minimum
	FreeSteamHigh    float64 `json:"free_steam_high"`    // T/h of free steam praised
	RunningPower     float64 `json:"running_power"`      // MW above which a generator counts as running
}

// DefaultThresholds returns the plant operating thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSavings:       100,
		HoursPerYear:     8760,
		GeneratorPower:   0.1,
		HighAdmission:    175,
		MinAdmission:     1,
		BoilerBaseline:   10,
		BoilerIdle:       1,
		BoilerHigh:       10,
		PeakGrid:         10,
		GridReduction:    5,
		GridCeilingRatio: 0.9,
		BasePressure:     7,
		PressureGain:     2,
		MinPressure:      8.5,
		FreeSteamHigh:    70,
		RunningPower:     1,
	}
}

// SetDefaults replaces every zero threshold by its default.
func (t *Thresholds) SetDefaults() {
	d := reflect.ValueOf(DefaultThresholds())
	v := reflect.ValueOf(t).Elem()
	for i := 0; i < v.NumField(); i++ {
		if v.Field(i).Float() == 0 {
			v.Field(i).SetFloat(d.Field(i).Float())
		}
	}
}

// Validate rejects negative thresholds.
func (t Thresholds) Validate() error {
	v := reflect.ValueOf(t)
	for i := 0; i < v.NumField(); i++ {
		if v.Field(i).Float() < 0 {
			return fmt.Errorf("advisor.%s must not be negative", v.Type().Field(i).Tag.Get("json"))
		}
	}
	if t.GridCeilingRatio > 1 {
		return fmt.Errorf("advisor.grid_ceiling_ratio must not exceed 1")
	}
	return nil
}
