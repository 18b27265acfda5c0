// Package baseline prices the fixed reference policy used to quantify the
// savings of an optimized dispatch.
package baseline

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/cogen/core/model"
	"github.com/kilianp07/cogen/core/plant"
)

const (
	// LoadFraction is the share of maximum admission every generator runs at.
	LoadFraction = 0.5
	// ExtractionFraction is the share of admission assumed extracted.
	ExtractionFraction = 0.3
)

// Input is the demand the reference policy has to serve.
type Input struct {
	ElectricityDemand float64 // MW, without safety margin
	SteamDemand       float64 // T/h, without safety margin
	FreeSteam         float64 // available free steam, T/h
	GridPrice         float64 // DH/kWh
}

// Estimate prices the reference policy: each generator at LoadFraction of
// its maximum admission with ExtractionFraction extracted, the grid covering
// any power shortfall and the boiler any steam shortfall. All available free
// steam is charged.
func Estimate(p plant.Plant, in Input) model.Baseline {
	n := len(p.Generators)
	adm := make([]float64, n)
	extr := make([]float64, n)
	pow := make([]float64, n)
	gens := make([]model.GeneratorSetpoint, n)
	for i, g := range p.Generators {
		adm[i] = g.Admission.Max * LoadFraction
		extr[i] = adm[i] * ExtractionFraction
		pow[i] = g.Power(adm[i], extr[i])
		gens[i] = model.GeneratorSetpoint{ID: g.ID, Admission: adm[i], Extraction: extr[i], Power: pow[i]}
	}
	power := floats.Sum(pow)
	grid := math.Max(0, in.ElectricityDemand-power)
	boiler := math.Max(0, in.SteamDemand-in.FreeSteam-floats.Sum(extr))

	cost := model.CostBreakdown{
		Grid:          grid * p.Costs.GridCost(in.GridPrice),
		Boiler:        boiler * p.Costs.Boiler,
		FreeSteam:     in.FreeSteam * p.Costs.FreeSteam,
		GeneratorFuel: floats.Sum(adm) * p.Costs.AdmissionCost(),
	}
	return model.Baseline{
		LoadFraction: LoadFraction,
		Generators:   gens,
		Power:        power,
		GridImport:   grid,
		BoilerOutput: boiler,
		FreeSteam:    in.FreeSteam,
		Cost:         cost,
		TotalCost:    cost.Total(),
	}
}
