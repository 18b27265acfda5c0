package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/cogen/core/metrics"
)

// PromSink records dispatch runs in Prometheus metrics.
type PromSink struct {
	runs            *prometheus.CounterVec
	generatorPower  *prometheus.GaugeVec
	generatorSteam  *prometheus.GaugeVec
	sources         *prometheus.GaugeVec
	cost            *prometheus.GaugeVec
	savings         prometheus.Counter
	recommendations *prometheus.CounterVec
	freeSteam       prometheus.Gauge
	publishLatency  *prometheus.HistogramVec
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The metrics are served by the API router or StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered under the same name are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_runs_total",
			Help: "Total number of dispatch runs",
		}, []string{"status", "period"}),
		generatorPower: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatch_generator_power_mw",
			Help: "Predicted power of each turbo-generator in the last run",
		}, []string{"gta"}),
		generatorSteam: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatch_generator_admission_tph",
			Help: "Admission setpoint of each turbo-generator in the last run",
		}, []string{"gta"}),
		sources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatch_source_output",
			Help: "Grid import (MW), boiler and free steam (T/h) in the last run",
		}, []string{"source"}),
		cost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatch_cost_dh_per_hour",
			Help: "Optimized and baseline hourly cost of the last optimal run",
		}, []string{"kind"}),
		savings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_savings_dh_total",
			Help: "Cumulated hourly savings of optimal runs",
		}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_recommendations_total",
			Help: "Number of recommendations emitted",
		}, []string{"code", "priority"}),
		freeSteam: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "free_steam_available_tph",
			Help: "Free steam available for the last run",
		}),
		publishLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "result_publish_latency_seconds",
			Help:    "Time to deliver a result to a publisher",
			Buckets: prometheus.DefBuckets,
		}, []string{"publisher", "outcome"}),
	}
	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.generatorPower, err = register(reg, s.generatorPower); err != nil {
		return nil, err
	}
	if s.generatorSteam, err = register(reg, s.generatorSteam); err != nil {
		return nil, err
	}
	if s.sources, err = register(reg, s.sources); err != nil {
		return nil, err
	}
	if s.cost, err = register(reg, s.cost); err != nil {
		return nil, err
	}
	if s.savings, err = register(reg, s.savings); err != nil {
		return nil, err
	}
	if s.recommendations, err = register(reg, s.recommendations); err != nil {
		return nil, err
	}
	if s.freeSteam, err = register(reg, s.freeSteam); err != nil {
		return nil, err
	}
	if s.publishLatency, err = register(reg, s.publishLatency); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the collector already registered under the same
// descriptor, if any.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDispatch updates the run counters and the last-run gauges.
func (s *PromSink) RecordDispatch(ev coremetrics.DispatchEvent) error {
	s.runs.WithLabelValues(ev.Status.String(), string(ev.Period)).Inc()
	for id, p := range ev.GeneratorPower {
		s.generatorPower.WithLabelValues(strconv.Itoa(int(id))).Set(p)
	}
	for id, a := range ev.GeneratorAdmission {
		s.generatorSteam.WithLabelValues(strconv.Itoa(int(id))).Set(a)
	}
	s.sources.WithLabelValues("grid").Set(ev.GridImport)
	s.sources.WithLabelValues("boiler").Set(ev.BoilerOutput)
	s.sources.WithLabelValues("free_steam").Set(ev.FreeSteam)
	if ev.Optimal() {
		s.cost.WithLabelValues("optimized").Set(ev.TotalCost)
		s.cost.WithLabelValues("baseline").Set(ev.BaselineCost)
		if ev.Savings > 0 {
			s.savings.Add(ev.Savings)
		}
	}
	return nil
}

// RecordRecommendations counts emitted recommendations.
func (s *PromSink) RecordRecommendations(evs []coremetrics.RecommendationEvent) error {
	for _, ev := range evs {
		s.recommendations.WithLabelValues(ev.Code, string(ev.Priority)).Inc()
	}
	return nil
}

// RecordFreeSteam sets the free steam gauge.
func (s *PromSink) RecordFreeSteam(ev coremetrics.FreeSteamEvent) error {
	s.freeSteam.Set(ev.Flow)
	return nil
}

// RecordPublish observes the delivery latency.
func (s *PromSink) RecordPublish(ev coremetrics.PublishEvent) error {
	outcome := "success"
	if ev.Error != "" {
		outcome = "failure"
	}
	s.publishLatency.WithLabelValues(ev.Publisher, outcome).Observe(ev.Latency.Seconds())
	return nil
}
