package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/cogen/core/metrics"
	"github.com/kilianp07/cogen/core/metrics/savings"
)

// SavingsSink aggregates dispatch runs into daily savings records.
type SavingsSink struct {
	store   savings.Store
	savings *prometheus.GaugeVec
	rate    *prometheus.GaugeVec
	optimal *prometheus.GaugeVec
}

// NewSavingsSink creates a sink with Prometheus gauges registered on reg.
func NewSavingsSink(store savings.Store, reg prometheus.Registerer) (*SavingsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &SavingsSink{
		store: store,
		savings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "daily_savings_dh",
			Help: "Summed hourly savings of the optimal runs of a day",
		}, []string{"day"}),
		rate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "daily_savings_rate",
			Help: "Daily savings as a fraction of the baseline cost",
		}, []string{"day"}),
		optimal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "daily_optimal_ratio",
			Help: "Share of the runs of a day that reached an optimal dispatch",
		}, []string{"day"}),
	}
	var err error
	if s.savings, err = register(reg, s.savings); err != nil {
		return nil, err
	}
	if s.rate, err = register(reg, s.rate); err != nil {
		return nil, err
	}
	if s.optimal, err = register(reg, s.optimal); err != nil {
		return nil, err
	}
	return s, nil
}

// Store returns the underlying daily store.
func (s *SavingsSink) Store() savings.Store { return s.store }

// RecordDispatch adds the run to its day and refreshes the gauges.
func (s *SavingsSink) RecordDispatch(ev coremetrics.DispatchEvent) error {
	rec := savings.Record{Date: ev.Time, Runs: 1}
	if ev.Optimal() {
		rec.OptimalRuns = 1
		rec.Cost = ev.TotalCost
		rec.Baseline = ev.BaselineCost
		rec.Savings = ev.Savings
	}
	if err := s.store.Add(rec); err != nil {
		return err
	}
	records, err := s.store.Query(ev.Time, ev.Time)
	if err != nil || len(records) == 0 {
		return err
	}
	day := records[0]
	label := savings.Day(ev.Time).Format("2006-01-02")
	s.savings.WithLabelValues(label).Set(day.Savings)
	s.rate.WithLabelValues(label).Set(day.SavingsRate())
	s.optimal.WithLabelValues(label).Set(day.OptimalRatio())
	return nil
}
