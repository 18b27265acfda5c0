package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/cogen/core/baseline"
	"github.com/kilianp07/cogen/core/freesteam"
	"github.com/kilianp07/cogen/core/logger"
	"github.com/kilianp07/cogen/core/model"
	"github.com/kilianp07/cogen/core/plant"
	"github.com/kilianp07/cogen/core/tariff"
)

// Optimizer computes the least-cost dispatch of the plant for one interval.
// It holds read-only data only and is safe for concurrent use.
type Optimizer struct {
	plant  plant.Plant
	tariff *tariff.Schedule
	steam  freesteam.Provider
	cfg    Config
	log    logger.Logger
	now    func() time.Time
}

// NewOptimizer validates the plant and returns an optimizer. A nil schedule
// selects the three-band tariff and a nil provider always yields the plant
// free steam fallback.
func NewOptimizer(p plant.Plant, sched *tariff.Schedule, steam freesteam.Provider, cfg Config, log logger.Logger) (*Optimizer, error) {
	if log == nil {
		return nil, fmt.Errorf("dispatch: nil logger provided to NewOptimizer")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if sched == nil {
		sched = tariff.Default()
	}
	if steam == nil {
		steam = freesteam.NewEstimator(nil, p.Limits.FreeSteamFallback, 1, log)
	}
	cfg.SetDefaults()
	return &Optimizer{plant: p, tariff: sched, steam: steam, cfg: cfg, log: log, now: time.Now}, nil
}

// Plant returns the plant description.
func (o *Optimizer) Plant() plant.Plant { return o.plant }

// Tariff returns the tariff schedule.
func (o *Optimizer) Tariff() *tariff.Schedule { return o.tariff }

// Hour resolves the tariff hour of a request.
func (o *Optimizer) Hour(req model.Request) int {
	if req.Hour != nil {
		return *req.Hour
	}
	return o.now().Hour()
}

// Optimize solves the dispatch LP for the request. Invalid input and free
// steam lookups without a matching record are returned as errors before the
// LP is built. Infeasible, unbounded and timed out solves are reported through
// the solution status. Solver faults are returned as ErrSolverFault.
func (o *Optimizer) Optimize(ctx context.Context, req model.Request) (model.Solution, error) {
	if err := req.Validate(); err != nil {
		return model.Solution{}, err
	}
	hour := o.Hour(req)
	price := o.tariff.PriceAt(hour)

	est, err := o.steam.Estimate(ctx, req.At)
	if err != nil {
		return model.Solution{}, fmt.Errorf("free steam: %w", err)
	}
	if req.Constraints.MinGTACount != nil {
		o.log.Warnw("min_gta_count is not enforced by the linear model", map[string]any{"min_gta_count": *req.Constraints.MinGTACount})
	}

	prob := buildProblem(o.plant, req, est.Flow, price)
	start := time.Now()
	x, status, err := o.solve(ctx, prob)
	elapsed := time.Since(start)
	if err != nil {
		return model.Solution{}, err
	}

	var sol model.Solution
	if status == model.StatusOptimal {
		sol = o.extract(x, req, est.Flow, price)
	} else {
		sol = o.emptySolution(est.Flow)
	}
	sol.Status = status
	sol.Hour = hour
	sol.Period = o.tariff.PeriodAt(hour)
	sol.GridPrice = price
	sol.FreeSteamAvailable = round2(est.Flow)
	sol.FreeSteamFallback = est.Fallback
	if !est.Time.IsZero() {
		t := est.Time
		sol.FreeSteamTime = &t
	}
	sol.Elapsed = elapsed

	o.log.Debugw("dispatch solved", map[string]any{
		"elec_demand":  req.ElectricityDemand,
		"steam_demand": req.SteamDemand,
		"hour":         hour,
		"price":        price,
		"status":       status.String(),
		"elapsed_ms":   elapsed.Milliseconds(),
	})
	return sol, nil
}

// solve runs the LP under the solve budget. A panic inside the solver is
// reported as ErrSolverFault.
func (o *Optimizer) solve(ctx context.Context, prob *problem) ([]float64, model.Status, error) {
	type outcome struct {
		x   []float64
		err error
	}
	budget, cancel := context.WithTimeout(ctx, o.cfg.SolveTimeout())
	defer cancel()

	g, h := prob.general()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrSolverFault, r)}
			}
		}()
		x, err := lpSolve(prob.c, g, h, o.cfg.tolerance())
		done <- outcome{x: x, err: err}
	}()

	select {
	case out := <-done:
		if out.err == nil && len(out.x) != numVars {
			return nil, model.StatusOther, fmt.Errorf("%w: %d values for %d variables", ErrSolverFault, len(out.x), numVars)
		}
		status, err := statusOf(out.err)
		return out.x, status, err
	case <-budget.Done():
		if ctx.Err() != nil {
			return nil, model.StatusOther, ctx.Err()
		}
		if errors.Is(budget.Err(), context.DeadlineExceeded) {
			return nil, model.StatusTimedOut, nil
		}
		return nil, model.StatusOther, budget.Err()
	}
}

// extract clamps the solved values to their bounds, recomputes generator
// output with the power model and prices each cost term.
func (o *Optimizer) extract(x []float64, req model.Request, freeSteam, price float64) model.Solution {
	pl := o.plant
	costs := pl.Costs
	sol := model.Solution{Generators: make([]model.GeneratorSetpoint, len(pl.Generators))}
	var admission float64
	for i, g := range pl.Generators {
		a := g.Admission.Clamp(x[varAdmission(i)])
		s := math.Min(g.Extraction.Clamp(x[varExtraction(i)]), a)
		admission += a
		power := g.Power(a, s)
		if req.Constraints.Status(g.ID) == model.StatusOff {
			power = 0
		}
		sol.Generators[i] = model.GeneratorSetpoint{
			ID:         g.ID,
			Admission:  round2(a),
			Extraction: round2(s),
			Power:      round2(power),
		}
	}
	boiler := clamp(x[varBoiler], 0, pl.Limits.MaxBoiler)
	grid := math.Max(0, x[varGrid])
	free := math.Max(0, x[varFree])

	cost := model.CostBreakdown{
		Grid:          grid * costs.GridCost(price),
		Boiler:        boiler * costs.Boiler,
		FreeSteam:     free * costs.FreeSteam,
		GeneratorFuel: admission * costs.AdmissionCost(),
	}
	total := cost.Total()
	base := baseline.Estimate(pl, baseline.Input{
		ElectricityDemand: req.ElectricityDemand,
		SteamDemand:       req.SteamDemand,
		FreeSteam:         freeSteam,
		GridPrice:         price,
	})

	sol.GridImport = round2(grid)
	sol.BoilerOutput = round2(boiler)
	sol.FreeSteam = round2(free)
	sol.Cost = model.CostBreakdown{
		Grid:          round2(cost.Grid),
		Boiler:        round2(cost.Boiler),
		FreeSteam:     round2(cost.FreeSteam),
		GeneratorFuel: round2(cost.GeneratorFuel),
	}
	sol.TotalCost = round2(total)
	sol.Baseline = roundBaseline(base)
	sol.BaselineCost = round2(base.TotalCost)
	sol.Savings = round2(base.TotalCost - total)
	return sol
}

// emptySolution is returned for non-optimal solves.
func (o *Optimizer) emptySolution(freeSteam float64) model.Solution {
	gens := make([]model.GeneratorSetpoint, len(o.plant.Generators))
	for i, g := range o.plant.Generators {
		gens[i] = model.GeneratorSetpoint{ID: g.ID}
	}
	return model.Solution{
		Generators: gens,
		FreeSteam:  round2(freeSteam),
		TotalCost:  math.Inf(1),
	}
}

func roundBaseline(b model.Baseline) model.Baseline {
	out := b
	out.Generators = make([]model.GeneratorSetpoint, len(b.Generators))
	for i, g := range b.Generators {
		out.Generators[i] = model.GeneratorSetpoint{ID: g.ID, Admission: round2(g.Admission), Extraction: round2(g.Extraction), Power: round2(g.Power)}
	}
	out.Power = round2(b.Power)
	out.GridImport = round2(b.GridImport)
	out.BoilerOutput = round2(b.BoilerOutput)
	out.FreeSteam = round2(b.FreeSteam)
	out.Cost = model.CostBreakdown{
		Grid:          round2(b.Cost.Grid),
		Boiler:        round2(b.Cost.Boiler),
		FreeSteam:     round2(b.Cost.FreeSteam),
		GeneratorFuel: round2(b.Cost.GeneratorFuel),
	}
	out.TotalCost = round2(b.TotalCost)
	return out
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func clamp(v, lo, hi float64) float64 { return math.Min(math.Max(v, lo), hi) }
