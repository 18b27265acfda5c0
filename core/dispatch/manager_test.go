package dispatch

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/cogen/core/advisor"
	"github.com/kilianp07/cogen/core/dispatch/logging"
	"github.com/kilianp07/cogen/core/factory"
	"github.com/kilianp07/cogen/core/freesteam"
	"github.com/kilianp07/cogen/core/metrics"
	"github.com/kilianp07/cogen/core/model"
	coremon "github.com/kilianp07/cogen/core/monitoring"
	"github.com/kilianp07/cogen/core/plant"
	"github.com/kilianp07/cogen/infra/logger"
	"github.com/kilianp07/cogen/internal/eventbus"
)

type recordSink struct {
	mu       sync.Mutex
	dispatch []metrics.DispatchEvent
	recs     []metrics.RecommendationEvent
	steam    []metrics.FreeSteamEvent
	publish  []metrics.PublishEvent
}

func (s *recordSink) RecordDispatch(ev metrics.DispatchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch = append(s.dispatch, ev)
	return nil
}

func (s *recordSink) RecordRecommendations(evs []metrics.RecommendationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, evs...)
	return nil
}

func (s *recordSink) RecordFreeSteam(ev metrics.FreeSteamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steam = append(s.steam, ev)
	return nil
}

func (s *recordSink) RecordPublish(ev metrics.PublishEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish = append(s.publish, ev)
	return nil
}

type mockPublisher struct {
	name   string
	fail   bool
	mu     sync.Mutex
	got    []model.Result
	closed bool
}

func (p *mockPublisher) Name() string { return p.name }

func (p *mockPublisher) Publish(_ context.Context, res model.Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unreachable")
	}
	p.got = append(p.got, res)
	return nil
}

func (p *mockPublisher) Close() error {
	p.closed = true
	return nil
}

type recordMonitor struct {
	mu   sync.Mutex
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) CapturePanic(any, map[string]string) {}
func (r *recordMonitor) Flush(time.Duration) {}

func newTestManager(t *testing.T, sink metrics.MetricsSink, bus *eventbus.TypedBus[model.Result]) *Manager {
	t.Helper()
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	reg := prometheus.NewRegistry()
	MustRegisterMetrics(reg)

	opt := newTestOptimizer(t, Config{})
	mgr, err := NewManager(opt, advisor.New(plant.Default(), advisor.Thresholds{}), sink, bus, logger.NopLogger{})
	require.NoError(t, err)
	return mgr
}

func TestManager_Run(t *testing.T) {
	sink := &recordSink{}
	bus := eventbus.NewTyped[model.Result](0)
	sub := bus.Subscribe()
	mgr := newTestManager(t, sink, bus)
	mgr.newID = func() string { return "run-1" }

	store, err := logging.NewJSONLStore(filepath.Join(t.TempDir(), "journal.jsonl"))
	require.NoError(t, err)
	mgr.SetLogStore(store)
	ok, bad := &mockPublisher{name: "mqtt"}, &mockPublisher{name: "kafka", fail: true}
	mgr.SetPublishers([]Publisher{ok, bad}, time.Second)

	req := model.Request{ElectricityDemand: 60, SteamDemand: 400, Hour: hour(2)}
	res, err := mgr.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.True(t, res.Solution.Optimal())
	assert.NotEmpty(t, res.Recommendations)
	assert.True(t, res.HasRecommendation(advisor.CodeOffPeak))
	assert.Equal(t, req, res.Request)

	select {
	case got := <-sub:
		assert.Equal(t, "run-1", got.RunID)
	case <-time.After(time.Second):
		t.Fatal("result not published on the bus")
	}

	recs, err := store.Query(context.Background(), logging.LogQuery{RunID: "run-1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "optimal", recs[0].Status)

	require.Len(t, sink.dispatch, 1)
	assert.Equal(t, res.Solution.TotalCost, sink.dispatch[0].TotalCost)
	assert.Len(t, sink.recs, len(res.Recommendations))
	require.Len(t, sink.steam, 1)
	assert.Equal(t, 50.0, sink.steam[0].Flow)
	assert.Len(t, sink.publish, 2)

	assert.Len(t, ok.got, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(solvesTotal.WithLabelValues("optimal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(publishTotal.WithLabelValues("mqtt", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(publishTotal.WithLabelValues("kafka", "failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(solveDuration))

	require.NoError(t, mgr.Close())
	assert.True(t, ok.closed)
	assert.True(t, bad.closed)
}

func TestManager_FreeSteamRecordTime(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	recorded := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	opt, err := NewOptimizer(plant.Default(), nil, fixedSteam{est: freesteam.Estimate{Flow: 40, Time: recorded}}, Config{}, logger.NopLogger{})
	require.NoError(t, err)
	sink := &recordSink{}
	mgr, err := NewManager(opt, advisor.New(plant.Default(), advisor.Thresholds{}), sink, nil, logger.NopLogger{})
	require.NoError(t, err)
	mgr.now = func() time.Time { return recorded.Add(2 * time.Minute) }

	res, err := mgr.Run(context.Background(), model.Request{ElectricityDemand: 50, SteamDemand: 300, Hour: hour(2)})
	require.NoError(t, err)
	require.NotNil(t, res.Solution.FreeSteamTime)
	assert.Equal(t, recorded, *res.Solution.FreeSteamTime)

	require.Len(t, sink.steam, 1)
	age, ok := sink.steam[0].RecordAge()
	require.True(t, ok)
	assert.Equal(t, 2*time.Minute, age)

	// the fallback has no record behind it
	mgr = newTestManager(t, sink, nil)
	res, err = mgr.Run(context.Background(), model.Request{ElectricityDemand: 50, SteamDemand: 300, Hour: hour(2)})
	require.NoError(t, err)
	assert.Nil(t, res.Solution.FreeSteamTime)
	_, ok = sink.steam[1].RecordAge()
	assert.False(t, ok)
}

func TestManager_NonOptimalStillAdvised(t *testing.T) {
	mgr := newTestManager(t, nil, nil)
	res, err := mgr.Run(context.Background(), model.Request{ElectricityDemand: 500, SteamDemand: 300, Hour: hour(12)})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInfeasible, res.Solution.Status)
	assert.True(t, res.HasRecommendation(advisor.CodeSolverStatus))
	assert.True(t, res.HasRecommendation(advisor.CodePowerCapacity))
	assert.Equal(t, 1.0, testutil.ToFloat64(solvesTotal.WithLabelValues("infeasible")))
}

func TestManager_CapacityAlertOnFeasibleRun(t *testing.T) {
	mgr := newTestManager(t, nil, nil)
	res, err := mgr.Run(context.Background(), model.Request{ElectricityDemand: 150, SteamDemand: 300, Hour: hour(2)})
	require.NoError(t, err)
	require.True(t, res.Solution.Optimal())
	assert.Greater(t, res.Solution.GridImport, 0.0)
	assert.True(t, res.HasRecommendation(advisor.CodePowerCapacity))
	assert.False(t, res.HasRecommendation(advisor.CodeSolverStatus))
}

func TestManager_InvalidInputNotJournaled(t *testing.T) {
	mgr := newTestManager(t, nil, nil)
	store, err := logging.NewJSONLStore(filepath.Join(t.TempDir(), "journal.jsonl"))
	require.NoError(t, err)
	mgr.SetLogStore(store)

	_, err = mgr.Run(context.Background(), model.Request{ElectricityDemand: -5})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	recs, err := store.Query(context.Background(), logging.LogQuery{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestManager_SolverFaultCaptured(t *testing.T) {
	mon := &recordMonitor{}
	coremon.Init(mon)
	t.Cleanup(func() { coremon.Init(nil) })
	stubSolve(t, func([]float64, *mat.Dense, []float64, float64) ([]float64, error) {
		panic("simplex exploded")
	})
	mgr := newTestManager(t, nil, nil)
	mgr.newID = func() string { return "run-fault" }

	_, err := mgr.Run(context.Background(), model.Request{ElectricityDemand: 40, SteamDemand: 200, Hour: hour(4)})
	require.ErrorIs(t, err, ErrSolverFault)
	mon.mu.Lock()
	defer mon.mu.Unlock()
	assert.ErrorIs(t, mon.err, ErrSolverFault)
	assert.Equal(t, "run-fault", mon.tags["run_id"])
	assert.Equal(t, 1.0, testutil.ToFloat64(solvesTotal.WithLabelValues("fault")))
}

func TestNewManager_NilParams(t *testing.T) {
	_, err := NewManager(nil, nil, nil, nil, logger.NopLogger{})
	assert.Error(t, err)
}

func TestNewPublishers(t *testing.T) {
	name := "test-" + t.Name()
	created := &mockPublisher{name: name}
	require.NoError(t, RegisterPublisher(name, func(map[string]any) (Publisher, error) { return created, nil }))
	assert.Contains(t, PublisherTypes(), name)

	pubs, err := NewPublishers([]factory.ModuleConfig{{Type: name}})
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, name, pubs[0].Name())

	_, err = NewPublishers([]factory.ModuleConfig{{Type: name}, {Type: "missing"}})
	assert.Error(t, err)
	assert.True(t, created.closed, "publishers created before a failure are closed")
}

func TestMetricsRegistration(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	reg := prometheus.NewRegistry()
	MustRegisterMetrics(reg)
	solvesTotal.WithLabelValues("optimal").Inc()
	solveDuration.Observe(0.01)
	freeSteamFallback.Inc()
	publishTotal.WithLabelValues("mqtt", "success").Inc()
	journalFailures.Inc()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, n := range []string{
		"optimizer_solves_total",
		"optimizer_solve_duration_seconds",
		"free_steam_fallback_total",
		"result_publish_total",
		"journal_append_failure_total",
	} {
		assert.True(t, names[n], "metric %s not registered", n)
	}
}
