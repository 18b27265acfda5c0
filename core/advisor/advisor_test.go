package advisor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogen/core/model"
	"github.com/kilianp07/cogen/core/plant"
)

func codes(recs []model.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Code
	}
	return out
}

func optimal() model.Solution {
	return model.Solution{
		Status: model.StatusOptimal,
		Generators: []model.GeneratorSetpoint{
			{ID: 1, Admission: 0.5},
			{ID: 2, Admission: 120, Extraction: 60, Power: 20},
			{ID: 3, Admission: 180, Extraction: 90, Power: 30},
		},
		GridImport:   8,
		BoilerOutput: 0,
		FreeSteam:    50,
		GridPrice:    0.85,
		Period:       model.PeriodStandard,
		Hour:         10,
		TotalCost:    40000,
		Cost:         model.CostBreakdown{Grid: 6800},
		Baseline:     model.Baseline{GridImport: 8, BoilerOutput: 0},
		Savings:      50,
	}
}

func TestNew_Defaults(t *testing.T) {
	e := New(plant.Default(), Thresholds{MinPressure: 9})
	assert.Equal(t, 9.0, e.Thresholds().MinPressure)
	assert.Equal(t, 100.0, e.Thresholds().MinSavings)
	assert.Len(t, e.Rules(), 2+2*model.GeneratorCount+13)
}

func TestAdvise_GeneratorGuidance(t *testing.T) {
	e := New(plant.Default(), DefaultThresholds())
	recs := e.Advise(optimal(), model.Request{ElectricityDemand: 50, SteamDemand: 150})
	got := codes(recs)

	assert.NotContains(t, got, CodeGeneratorSetpoint(1))
	assert.NotContains(t, got, CodeGeneratorCapacity(1))
	assert.Contains(t, got, CodeGeneratorSetpoint(2))
	assert.Contains(t, got, CodeGeneratorCapacity(3))
	assert.NotContains(t, got, CodeGeneratorSetpoint(3))

	for _, r := range recs {
		switch r.Code {
		case CodeGeneratorCapacity(3):
			assert.Equal(t, "Push GTA 3 to Capacity", r.Title)
			assert.Contains(t, r.Instruction, "180.0 T/h")
			assert.Equal(t, "30.0 MW generation", r.Impact)
			assert.Equal(t, model.PriorityHigh, r.Priority)
		case CodeGeneratorSetpoint(2):
			assert.Equal(t, "Set Admission to 120.0 T/h and Extraction to 60.0 T/h. Monitor ramp rate.", r.Instruction)
			assert.Equal(t, model.PriorityMedium, r.Priority)
		}
	}
}

func TestAdvise_Savings(t *testing.T) {
	e := New(plant.Default(), DefaultThresholds())
	sol := optimal()
	sol.Savings = 12345
	recs := e.Advise(sol, model.Request{ElectricityDemand: 50, SteamDemand: 150})
	require.NotEmpty(t, recs)
	assert.Equal(t, CodeSavings, recs[0].Code)
	assert.Equal(t, "Total potential savings: 12,345 DH/hr (108,142,200 DH/year) vs baseline operation.", recs[0].Instruction)
	assert.Equal(t, "+12,345 DH/hr", recs[0].Impact)

	sol.Savings = 100
	assert.NotContains(t, codes(e.Advise(sol, model.Request{SteamDemand: 150})), CodeSavings)
}

func TestAdvise_Boiler(t *testing.T) {
	e := New(plant.Default(), DefaultThresholds())
	req := model.Request{ElectricityDemand: 50, SteamDemand: 150}

	sol := optimal()
	sol.Baseline.BoilerOutput = 40
	got := codes(e.Advise(sol, req))
	assert.Contains(t, got, CodeBoilerShutdown)
	assert.NotContains(t, got, CodeBoilerExpensive)

	sol.BoilerOutput = 25
	recs := e.Advise(sol, req)
	got = codes(recs)
	assert.NotContains(t, got, CodeBoilerShutdown)
	assert.Contains(t, got, CodeBoilerExpensive)
	for _, r := range recs {
		if r.Code == CodeBoilerExpensive {
			assert.Equal(t, "7,100 DH/hr cost (284 DH/T)", r.Impact)
		}
	}
}

func TestAdvise_Peak(t *testing.T) {
	e := New(plant.Default(), DefaultThresholds())
	req := model.Request{ElectricityDemand: 70, SteamDemand: 150}
	sol := optimal()
	sol.Period = model.PeriodPeak
	sol.GridPrice = 1.2
	sol.GridImport = 25

	recs := e.Advise(sol, req)
	got := codes(recs)
	assert.Contains(t, got, CodePeakAlert)
	assert.NotContains(t, got, CodePeakShaving)
	for _, r := range recs {
		if r.Code == CodePeakAlert {
			assert.Equal(t, "Peak Tariff Alert (1.200 DH/kWh)", r.Title)
		}
	}

	sol.GridImport = 10
	got = codes(e.Advise(sol, req))
	assert.Contains(t, got, CodePeakShaving)
	assert.NotContains(t, got, CodePeakAlert)
}

func TestAdvise_Grid(t *testing.T) {
	e := New(plant.Default(), DefaultThresholds())
	req := model.Request{ElectricityDemand: 50, SteamDemand: 150}

	sol := optimal()
	sol.Baseline.GridImport = 30
	sol.GridImport = 10
	recs := e.Advise(sol, req)
	assert.Contains(t, codes(recs), CodeGridOptimized)
	for _, r := range recs {
		if r.Code == CodeGridOptimized {
			assert.Equal(t, "Reduced grid dependency by 20.0 MW through optimal GTA dispatch.", r.Instruction)
			assert.Equal(t, "17,000 DH/hr savings", r.Impact)
		}
	}

	sol.Baseline.GridImport = 95
	sol.GridImport = 95
	got := codes(e.Advise(sol, req))
	assert.Contains(t, got, CodeGridCapacity)
	assert.NotContains(t, got, CodeGridOptimized)
}

func TestAdvise_Pressure(t *testing.T) {
	e := New(plant.Default(), DefaultThresholds())
	sol := optimal()

	// supply 150+0+50 = 200 for a demand of 400: 7 + 2*0.5 = 8 bar
	got := codes(e.Advise(sol, model.Request{SteamDemand: 400}))
	assert.Contains(t, got, CodePressureRisk)
	assert.NotContains(t, got, CodePressureStable)

	// supply 300 for 400: exactly 8.5 bar counts as stable
	sol.FreeSteam = 150
	got = codes(e.Advise(sol, model.Request{SteamDemand: 400}))
	assert.Contains(t, got, CodePressureStable)

	c := e.Context(sol, model.Request{})
	assert.InDelta(t, 9.0, c.Pressure(), 1e-9)
}

func TestAdvise_FreeSteamAndNoGenerators(t *testing.T) {
	e := New(plant.Default(), DefaultThresholds())
	sol := optimal()
	sol.FreeSteam = 80
	for i := range sol.Generators {
		sol.Generators[i].Power = 0.5
	}
	got := codes(e.Advise(sol, model.Request{SteamDemand: 150}))
	assert.Contains(t, got, CodeFreeSteam)
	assert.Contains(t, got, CodeNoActiveGTA)
}

func TestAdvise_NonOptimal(t *testing.T) {
	e := New(plant.Default(), DefaultThresholds())
	sol := model.Solution{
		Status:     model.StatusInfeasible,
		Generators: []model.GeneratorSetpoint{{ID: 1}, {ID: 2}, {ID: 3}},
		FreeSteam:  50,
		TotalCost:  math.Inf(1),
		Period:     model.PeriodOffPeak,
		GridPrice:  0.55,
	}
	recs := e.Advise(sol, model.Request{ElectricityDemand: 500, SteamDemand: 700})
	assert.Equal(t, []string{CodeSolverStatus, CodePowerCapacity, CodeSteamCapacity, CodeOffPeak}, codes(recs))
	assert.Contains(t, recs[0].Instruction, "infeasible")
	assert.Equal(t, "Electrical demand 500 MW exceeds maximum capacity 111 MW. Implement load shedding of 389 MW.", recs[1].Instruction)
	assert.Equal(t, "Grid electricity at 0.550 DH/kWh (cheapest rate). Optimal time for energy-intensive operations.", recs[3].Instruction)
}

func TestAdvise_CapacityAlertWhenOptimal(t *testing.T) {
	e := New(plant.Default(), DefaultThresholds())
	sol := optimal()
	sol.GridImport = 60
	recs := e.Advise(sol, model.Request{ElectricityDemand: 150, SteamDemand: 150})
	got := codes(recs)
	require.Contains(t, got, CodePowerCapacity)
	assert.NotContains(t, got, CodeSolverStatus)
	for _, r := range recs {
		if r.Code == CodePowerCapacity {
			assert.Equal(t, model.PriorityHigh, r.Priority)
			assert.Contains(t, r.Instruction, "load shedding of 39 MW")
		}
	}

	got = codes(e.Advise(sol, model.Request{ElectricityDemand: 111, SteamDemand: 150}))
	assert.NotContains(t, got, CodePowerCapacity)
}

func TestThresholds_Validate(t *testing.T) {
	th := DefaultThresholds()
	require.NoError(t, th.Validate())
	th.GridCeilingRatio = 1.5
	assert.Error(t, th.Validate())
	th = DefaultThresholds()
	th.MinPressure = -1
	assert.ErrorContains(t, th.Validate(), "min_pressure")
}
