// Package plant holds the physical and economic description of the
// cogeneration site and the empirical power model of its turbo-generators.
package plant

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/cogen/core/model"
)

// ErrInvalidPlant is returned when coefficients, bounds or limits are malformed.
var ErrInvalidPlant = errors.New("invalid plant description")

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Clamp returns v limited to the range.
func (r Range) Clamp(v float64) float64 { return math.Min(math.Max(v, r.Min), r.Max) }

// GeneratorSpec is the regression model and bounds of one turbo-generator.
type GeneratorSpec struct {
	ID                    model.GeneratorID `json:"id"`
	AdmissionCoefficient  float64           `json:"admission_coefficient"`  // MW per T/h
	ExtractionCoefficient float64           `json:"extraction_coefficient"` // MW per T/h
	Intercept             float64           `json:"intercept"`              // MW
	Admission             Range             `json:"admission"`
	Extraction            Range             `json:"extraction"`
}

// Limits are the plant-wide capacities and safety margins.
type Limits struct {
	MaxTotalSteam     float64 `json:"max_total_steam"` // T/h
	MaxTotalPower     float64 `json:"max_total_power"` // MW
	MaxGridImport     float64 `json:"max_grid_import"` // MW
	MaxBoiler         float64 `json:"max_boiler"`      // T/h
	SteamSafetyMargin float64 `json:"steam_safety_margin"`
	PowerSafetyMargin float64 `json:"power_safety_margin"`
	FreeSteamFallback float64 `json:"free_steam_fallback"` // T/h
}

// Costs are the unit costs of every energy source.
type Costs struct {
	Boiler             float64 `json:"boiler"`               // DH per T
	FreeSteam          float64 `json:"free_steam"`           // DH per T
	GeneratorFuel      float64 `json:"generator_fuel"`       // DH per T of admission, before scaling
	GeneratorFuelScale float64 `json:"generator_fuel_scale"` // applied to GeneratorFuel
	GridScale          float64 `json:"grid_scale"`           // kWh per MWh
}

// AdmissionCost is the cost of one T/h of admission.
func (c Costs) AdmissionCost() float64 { return c.GeneratorFuel * c.GeneratorFuelScale }

// GridCost is the cost of one MW of import at the given price in DH/kWh.
func (c Costs) GridCost(price float64) float64 { return price * c.GridScale }

// Plant is the immutable description of the site.
type Plant struct {
	Generators []GeneratorSpec `json:"generators"`
	Limits     Limits          `json:"limits"`
	Costs      Costs           `json:"costs"`
}

// Default returns the reference site: three GTAs, a 200 T/h boiler and a
// 100 MW grid connection.
func Default() Plant {
	return Plant{
		Generators: []GeneratorSpec{
			{ID: 1, AdmissionCoefficient: 0.2761, ExtractionCoefficient: -0.1805, Intercept: -2.72,
				Admission: Range{0, 190}, Extraction: Range{0, 100}},
			{ID: 2, AdmissionCoefficient: 0.2560, ExtractionCoefficient: -0.1782, Intercept: -0.02,
				Admission: Range{0, 190}, Extraction: Range{0, 100}},
			{ID: 3, AdmissionCoefficient: 0.2573, ExtractionCoefficient: -0.1723, Intercept: 0.06,
				Admission: Range{0, 190}, Extraction: Range{0, 100}},
		},
		Limits: Limits{
			MaxTotalSteam:     600,
			MaxTotalPower:     111,
			MaxGridImport:     100,
			MaxBoiler:         200,
			SteamSafetyMargin: 1.05,
			PowerSafetyMargin: 1.03,
			FreeSteamFallback: 50,
		},
		Costs: Costs{
			Boiler:             284,
			FreeSteam:          20,
			GeneratorFuel:      0.65,
			GeneratorFuelScale: 100,
			GridScale:          1000,
		},
	}
}

// SetDefaults fills an empty plant with Default.
func (p *Plant) SetDefaults() {
	d := Default()
	if len(p.Generators) == 0 {
		p.Generators = d.Generators
	}
	if p.Limits == (Limits{}) {
		p.Limits = d.Limits
	}
	if p.Costs == (Costs{}) {
		p.Costs = d.Costs
	}
}

// Validate checks coefficients, bounds and limits.
func (p Plant) Validate() error {
	if len(p.Generators) != model.GeneratorCount {
		return fmt.Errorf("%w: expected %d generators, got %d", ErrInvalidPlant, model.GeneratorCount, len(p.Generators))
	}
	for i, g := range p.Generators {
		if g.ID != model.GeneratorID(i+1) {
			return fmt.Errorf("%w: generator %d listed at position %d", ErrInvalidPlant, int(g.ID), i+1)
		}
		for _, v := range []float64{g.AdmissionCoefficient, g.ExtractionCoefficient, g.Intercept,
			g.Admission.Min, g.Admission.Max, g.Extraction.Min, g.Extraction.Max} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s has a non-finite parameter", ErrInvalidPlant, g.ID)
			}
		}
		if g.Admission.Min < 0 || g.Admission.Min > g.Admission.Max {
			return fmt.Errorf("%w: %s admission range [%v, %v]", ErrInvalidPlant, g.ID, g.Admission.Min, g.Admission.Max)
		}
		if g.Extraction.Min < 0 || g.Extraction.Min > g.Extraction.Max {
			return fmt.Errorf("%w: %s extraction range [%v, %v]", ErrInvalidPlant, g.ID, g.Extraction.Min, g.Extraction.Max)
		}
	}
	l := p.Limits
	if l.MaxGridImport < 0 || l.MaxBoiler < 0 || l.MaxTotalPower <= 0 || l.MaxTotalSteam <= 0 {
		return fmt.Errorf("%w: capacities must be positive", ErrInvalidPlant)
	}
	if l.SteamSafetyMargin < 1 || l.PowerSafetyMargin < 1 {
		return fmt.Errorf("%w: safety margins must be at least 1", ErrInvalidPlant)
	}
	if l.FreeSteamFallback < 0 {
		return fmt.Errorf("%w: free steam fallback must not be negative", ErrInvalidPlant)
	}
	c := p.Costs
	if c.Boiler < 0 || c.FreeSteam < 0 || c.GeneratorFuel < 0 || c.GeneratorFuelScale <= 0 || c.GridScale <= 0 {
		return fmt.Errorf("%w: unit costs must not be negative", ErrInvalidPlant)
	}
	return nil
}

// Generator returns the spec of a generator.
func (p Plant) Generator(id model.GeneratorID) (GeneratorSpec, error) {
	for _, g := range p.Generators {
		if g.ID == id {
			return g, nil
		}
	}
	return GeneratorSpec{}, fmt.Errorf("%w: %d", ErrInvalidGeneratorIndex, int(id))
}
