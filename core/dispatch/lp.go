package dispatch

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/cogen/core/model"
	"github.com/kilianp07/cogen/core/plant"
)

// ErrSolverFault indicates the solver crashed or returned a malformed
// solution. It is an internal fault, never reported as infeasibility.
var ErrSolverFault = errors.New("lp solver fault")

// Variable layout: admission and extraction of generator i at 2i and 2i+1,
// followed by boiler, grid import and free steam.
const (
	varBoiler = 2 * model.GeneratorCount
	varGrid   = varBoiler + 1
	varFree   = varBoiler + 2
	numVars   = varBoiler + 3
)

func varAdmission(i int) int  { return 2 * i }
func varExtraction(i int) int { return 2*i + 1 }

// problem is a general form LP: minimize c·x subject to G·x <= h and
// lb <= x <= ub.
type problem struct {
	c      []float64
	rows   [][]float64
	h      []float64
	lb, ub []float64
	names  []string
}

func newProblem() *problem {
	return &problem{
		c:  make([]float64, numVars),
		lb: make([]float64, numVars),
		ub: make([]float64, numVars),
	}
}

// le adds the row coef·x <= rhs.
func (p *problem) le(name string, coef map[int]float64, rhs float64) {
	row := make([]float64, numVars)
	for j, v := range coef {
		row[j] = v
	}
	p.rows = append(p.rows, row)
	p.h = append(p.h, rhs)
	p.names = append(p.names, name)
}

// ge adds the row coef·x >= rhs.
func (p *problem) ge(name string, coef map[int]float64, rhs float64) {
	neg := make(map[int]float64, len(coef))
	for j, v := range coef {
		neg[j] = -v
	}
	p.le(name, neg, -rhs)
}

// general returns G and h with the variable bounds appended as rows.
func (p *problem) general() (*mat.Dense, []float64) {
	n := len(p.rows) + 2*numVars
	g := mat.NewDense(n, numVars, nil)
	h := make([]float64, 0, n)
	for i, row := range p.rows {
		g.SetRow(i, row)
	}
	h = append(h, p.h...)
	r := len(p.rows)
	for j := 0; j < numVars; j++ {
		g.Set(r, j, -1)
		h = append(h, -p.lb[j])
		g.Set(r+1, j, 1)
		h = append(h, p.ub[j])
		r += 2
	}
	return g, h
}

// buildProblem translates a request into the dispatch LP.
func buildProblem(pl plant.Plant, req model.Request, freeSteam, price float64) *problem {
	p := newProblem()
	lim := pl.Limits
	cons := req.Constraints
	power := map[int]float64{varGrid: 1}
	steam := map[int]float64{varBoiler: 1, varFree: 1}
	var intercepts float64

	for i, g := range pl.Generators {
		a, s := varAdmission(i), varExtraction(i)
		p.lb[a], p.ub[a] = g.Admission.Min, g.Admission.Max
		p.lb[s], p.ub[s] = g.Extraction.Min, g.Extraction.Max
		switch cons.Status(g.ID) {
		case model.StatusOff:
			p.le(fmt.Sprintf("gta%d_off_admission", g.ID), map[int]float64{a: 1}, 0)
			p.le(fmt.Sprintf("gta%d_off_extraction", g.ID), map[int]float64{s: 1}, 0)
		case model.StatusMaintenance:
			p.le(fmt.Sprintf("gta%d_maintenance", g.ID), map[int]float64{a: 1}, 0.5*g.Admission.Max)
		}
		p.le(fmt.Sprintf("gta%d_extraction_limit", g.ID), map[int]float64{s: 1, a: -1}, 0)

		power[a] = g.AdmissionCoefficient
		power[s] = g.ExtractionCoefficient
		if cons.Status(g.ID) != model.StatusOff {
			intercepts += g.Intercept
		}
		steam[s] = 1
		p.c[a] = pl.Costs.AdmissionCost()
	}

	p.ub[varBoiler] = lim.MaxBoiler
	p.ub[varGrid] = lim.MaxGridImport
	if cons.MaxGridImport != nil {
		p.ub[varGrid] = *cons.MaxGridImport
	}
	// sulfur_max caps the measured availability, it cannot add steam.
	p.ub[varFree] = freeSteam
	if cons.SulfurMax != nil {
		p.ub[varFree] = math.Min(freeSteam, *cons.SulfurMax)
	}

	p.ge("electricity_demand", power, req.ElectricityDemand*lim.PowerSafetyMargin-intercepts)
	p.ge("steam_demand", steam, req.SteamDemand*lim.SteamSafetyMargin)
	if cons.CapSteam != nil {
		p.ge("cap_steam", steam, *cons.CapSteam)
	}

	p.c[varBoiler] = pl.Costs.Boiler
	p.c[varGrid] = pl.Costs.GridCost(price)
	p.c[varFree] = pl.Costs.FreeSteam
	return p
}

// solveLP converts the general form problem to standard form and runs the
// simplex algorithm. It returns the values of the original variables.
func solveLP(c []float64, g *mat.Dense, h []float64, tol float64) ([]float64, error) {
	cStd, aStd, bStd := lp.Convert(c, g, h, nil, nil)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, tol, nil)
	if err != nil {
		return nil, err
	}
	n := len(c)
	if len(sol) < 2*n {
		return nil, fmt.Errorf("%w: %d values for %d variables", ErrSolverFault, len(sol), n)
	}
	x := make([]float64, n)
	for i := range x {
		x[i] = sol[i] - sol[i+n]
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) {
			return nil, fmt.Errorf("%w: non-finite value for variable %d", ErrSolverFault, i)
		}
	}
	return x, nil
}

// lpSolve points to the function used to solve the LP. It can be overridden in
// tests to simulate solver failures.
var lpSolve = solveLP

// statusOf maps a solver error to a status. Faults are returned as errors.
func statusOf(err error) (model.Status, error) {
	switch {
	case err == nil:
		return model.StatusOptimal, nil
	case errors.Is(err, ErrSolverFault):
		return model.StatusOther, err
	case errors.Is(err, lp.ErrInfeasible):
		return model.StatusInfeasible, nil
	case errors.Is(err, lp.ErrUnbounded):
		return model.StatusUnbounded, nil
	default:
		return model.StatusOther, nil
	}
}
