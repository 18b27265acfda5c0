package savings

import "time"

// Record aggregates the dispatch outcomes of one day.
type Record struct {
	Date        time.Time `json:"date"`
	Runs        int       `json:"runs"`
	OptimalRuns int       `json:"optimal_runs"`
	Cost        float64   `json:"cost"`     // DH, summed over optimal runs
	Baseline    float64   `json:"baseline"` // DH, summed over optimal runs
	Savings     float64   `json:"savings"`  // DH, summed over optimal runs
}

// OptimalRatio returns the share of runs that reached an optimal dispatch.
func (r Record) OptimalRatio() float64 {
	if r.Runs == 0 {
		return 0
	}
	return float64(r.OptimalRuns) / float64(r.Runs)
}

// SavingsRate returns savings as a fraction of the baseline cost.
func (r Record) SavingsRate() float64 {
	if r.Baseline == 0 {
		return 0
	}
	return r.Savings / r.Baseline
}
