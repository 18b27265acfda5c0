// Package advisor turns a solved dispatch into ordered operator instructions.
package advisor

import (
	"github.com/kilianp07/cogen/core/model"
	"github.com/kilianp07/cogen/core/plant"
)

// Context is the immutable input every rule is evaluated against.
type Context struct {
	Solution          model.Solution
	ElectricityDemand float64
	SteamDemand       float64
	Hour              int
	Period            model.Period
	Limits            plant.Limits
	Costs             plant.Costs
	Thresholds        Thresholds
}

// Optimal reports whether the dispatch is optimal.
func (c Context) Optimal() bool { return c.Solution.Optimal() }

// Pressure is a linear estimate of the MP header pressure from the ratio of
// steam supplied to steam demanded.
func (c Context) Pressure() float64 {
	ratio := 1.0
	if c.SteamDemand > 0 {
		ratio = c.Solution.TotalSteam() / c.SteamDemand
	}
	return c.Thresholds.BasePressure + c.Thresholds.PressureGain*ratio
}

// Rule emits one recommendation when Match holds.
type Rule struct {
	Name  string
	Match func(Context) bool
	Build func(Context) model.Recommendation
}

// Engine evaluates an ordered list of rules. Every matching rule emits, in
// list order.
type Engine struct {
	plant      plant.Plant
	thresholds Thresholds
	rules      []Rule
}

// New returns an engine with the built-in rules.
func New(p plant.Plant, th Thresholds) *Engine {
	th.SetDefaults()
	return &Engine{plant: p, thresholds: th, rules: defaultRules(p)}
}

// Rules returns the rules in evaluation order.
func (e *Engine) Rules() []Rule { return append([]Rule(nil), e.rules...) }

// Thresholds returns the thresholds in use.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// Context builds the rule context of a solved request.
func (e *Engine) Context(sol model.Solution, req model.Request) Context {
	return Context{
		Solution:          sol,
		ElectricityDemand: req.ElectricityDemand,
		SteamDemand:       req.SteamDemand,
		Hour:              sol.Hour,
		Period:            sol.Period,
		Limits:            e.plant.Limits,
		Costs:             e.plant.Costs,
		Thresholds:        e.thresholds,
	}
}

// Advise returns the recommendations for a solved request.
func (e *Engine) Advise(sol model.Solution, req model.Request) []model.Recommendation {
	return e.Evaluate(e.Context(sol, req))
}

// Evaluate runs every rule against c.
func (e *Engine) Evaluate(c Context) []model.Recommendation {
	recs := make([]model.Recommendation, 0, 8)
	for _, r := range e.rules {
		if r.Match(c) {
			recs = append(recs, r.Build(c))
		}
	}
	return recs
}
