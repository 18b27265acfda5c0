package model

import "time"

// Result merges the solved dispatch and its advice for one run.
type Result struct {
	RunID           string           `json:"run_id"`
	Timestamp       time.Time        `json:"timestamp"`
	Request         Request          `json:"request"`
	Solution        Solution         `json:"solution"`
	Recommendations []Recommendation `json:"recommendations"`
}

// HasRecommendation reports whether a recommendation with the given code was emitted.
func (r Result) HasRecommendation(code string) bool {
	for _, rec := range r.Recommendations {
		if rec.Code == code {
			return true
		}
	}
	return false
}
