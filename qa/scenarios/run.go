package scenarios

import (
	"context"
	"fmt"

	"github.com/kilianp07/cogen/core/model"
)

// Runner executes a request and returns the merged result.
// *dispatch.Manager satisfies it.
type Runner interface {
	Run(ctx context.Context, req model.Request) (model.Result, error)
}

// Outcome is the checked result of one scenario.
type Outcome struct {
	Scenario Scenario
	Result   model.Result
	Err      error
	Failures []string
}

// Passed reports whether the run succeeded and met every expectation.
func (o Outcome) Passed() bool { return o.Err == nil && len(o.Failures) == 0 }

// Run executes sc and checks its expectations.
func Run(ctx context.Context, r Runner, sc Scenario) Outcome {
	out := Outcome{Scenario: sc}
	req, err := sc.Params.Request()
	if err != nil {
		out.Err = err
		return out
	}
	res, err := r.Run(ctx, req)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = res
	out.Failures = Check(sc.Expected, res)
	return out
}

// RunAll executes every scenario in order. It stops early only when the
// context is canceled.
func RunAll(ctx context.Context, r Runner, scs []Scenario) []Outcome {
	outs := make([]Outcome, 0, len(scs))
	for _, sc := range scs {
		if ctx.Err() != nil {
			break
		}
		outs = append(outs, Run(ctx, r, sc))
	}
	return outs
}

// Check compares a result with the expectations.
func Check(exp Expected, res model.Result) []string {
	var failures []string
	sol := res.Solution
	if exp.Status != "" && sol.Status.String() != exp.Status {
		failures = append(failures, fmt.Sprintf("status %s, expected %s", sol.Status, exp.Status))
	}
	if exp.MinSavings != nil && (!sol.Optimal() || sol.Savings < *exp.MinSavings) {
		failures = append(failures, fmt.Sprintf("savings %.2f below %.2f", sol.Savings, *exp.MinSavings))
	}
	for _, code := range exp.Recommendations {
		if !res.HasRecommendation(code) {
			failures = append(failures, fmt.Sprintf("missing recommendation %s", code))
		}
	}
	return failures
}
