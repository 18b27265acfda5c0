package metrics

import (
	"github.com/kilianp07/cogen/core/factory"
	coremetrics "github.com/kilianp07/cogen/core/metrics"
	"github.com/kilianp07/cogen/core/metrics/savings"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSink()
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})

	_ = coremetrics.RegisterMetricsSink("memory", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewMemorySink(), nil
	})

	_ = coremetrics.RegisterMetricsSink("savings", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewSavingsSink(savings.NewMemoryStore(), nil)
	})
}
