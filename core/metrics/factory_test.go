package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogen/core/factory"
	metrics "github.com/kilianp07/cogen/core/metrics"
	_ "github.com/kilianp07/cogen/infra/metrics"
)

type closingSink struct {
	metrics.NopSink
	closed bool
}

func (s *closingSink) Close() { s.closed = true }

func TestSinkTypes(t *testing.T) {
	assert.Subset(t, metrics.SinkTypes(), []string{"nop", "prometheus", "influx", "memory", "savings"})
}

func TestNewMetricsSink(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
}

func TestNewMetricsSink_ClosesOnFailure(t *testing.T) {
	name := "closing-" + t.Name()
	created := &closingSink{}
	require.NoError(t, metrics.RegisterMetricsSink(name, func(map[string]any) (metrics.MetricsSink, error) {
		return created, nil
	}))

	_, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: name}, {Type: "missing"}})
	require.Error(t, err)
	assert.True(t, created.closed)
}

func TestClose_Nested(t *testing.T) {
	a, b := &closingSink{}, &closingSink{}
	metrics.Close(metrics.NewMultiSink(a, metrics.NewMultiSink(b), metrics.NopSink{}))
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
