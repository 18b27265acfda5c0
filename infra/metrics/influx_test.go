package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/cogen/core/metrics"
	"github.com/kilianp07/cogen/core/model"
)

type lineCapture struct {
	mu    sync.Mutex
	lines []string
}

func (c *lineCapture) handler(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	for _, l := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if l != "" {
			c.lines = append(c.lines, l)
		}
	}
	c.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (c *lineCapture) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func newCaptureSink(t *testing.T) (*InfluxSink, *lineCapture) {
	t.Helper()
	c := &lineCapture{}
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	t.Cleanup(srv.Close)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	t.Cleanup(sink.Close)
	return sink, c
}

func dispatchEvent(status model.Status) coremetrics.DispatchEvent {
	res := model.Result{
		RunID:     "run-7",
		Timestamp: time.Date(2024, 6, 3, 19, 0, 0, 0, time.UTC),
		Request:   model.Request{ElectricityDemand: 70, SteamDemand: 450},
		Solution: model.Solution{
			Status:       status,
			Generators:   []model.GeneratorSetpoint{{ID: 1, Admission: 120, Power: 20.1234}},
			GridImport:   12.5,
			BoilerOutput: 30,
			FreeSteam:    50,
			TotalCost:    67000,
			BaselineCost: 125000,
			Savings:      58000,
			Hour:         19,
			Period:       model.PeriodPeak,
			GridPrice:    1.271,
		},
	}
	return coremetrics.NewDispatchEvent(res)
}

func TestInfluxSink_RecordDispatch(t *testing.T) {
	sink, c := newCaptureSink(t)
	require.NoError(t, sink.RecordDispatch(dispatchEvent(model.StatusOptimal)))

	lines := c.all()
	require.Len(t, lines, 1)
	line := lines[0]
	assert.True(t, strings.HasPrefix(line, "dispatch_run,"))
	assert.Contains(t, line, "period=peak")
	assert.Contains(t, line, "status=optimal")
	assert.Contains(t, line, "gta1_power=20.123")
	assert.Contains(t, line, "total_cost=67000")
	assert.Contains(t, line, "savings=58000")
	assert.Contains(t, line, `run_id="run-7"`)
}

func TestInfluxSink_NonOptimalSkipsCosts(t *testing.T) {
	sink, c := newCaptureSink(t)
	require.NoError(t, sink.RecordDispatch(dispatchEvent(model.StatusInfeasible)))

	lines := c.all()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "status=infeasible")
	assert.NotContains(t, lines[0], "total_cost")
	assert.NotContains(t, lines[0], "NaN")
}

func TestInfluxSink_RecordFreeSteam(t *testing.T) {
	sink, c := newCaptureSink(t)
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, sink.RecordFreeSteam(coremetrics.FreeSteamEvent{Flow: 48.5, Time: now}))

	p := write.NewPointWithMeasurement("free_steam_estimate").
		AddTag("fallback", "false").
		AddField("flow", 48.5).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	require.Len(t, c.all(), 1)
	assert.Equal(t, expected, c.all()[0])

	ev := coremetrics.FreeSteamEvent{Flow: 30, RecordTime: now.Add(-90 * time.Second), Time: now}
	require.NoError(t, sink.RecordFreeSteam(ev))
	require.Len(t, c.all(), 2)
	assert.Contains(t, c.all()[1], "record_age_s=90")
}

func TestInfluxSink_RecommendationsAndPublish(t *testing.T) {
	sink, c := newCaptureSink(t)
	now := time.Now()
	require.NoError(t, sink.RecordRecommendations([]coremetrics.RecommendationEvent{
		{RunID: "r", Code: "peak_alert", Category: model.CategoryTariff, Priority: model.PriorityHigh, Time: now},
		{RunID: "r", Code: "off_peak", Category: model.CategoryTariff, Priority: model.PriorityLow, Time: now},
	}))
	require.NoError(t, sink.RecordPublish(coremetrics.PublishEvent{Publisher: "mqtt", RunID: "r", Latency: 3 * time.Millisecond, Time: now}))

	lines := c.all()
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "code=peak_alert")
	assert.Contains(t, lines[1], "code=off_peak")
	assert.True(t, strings.HasPrefix(lines[2], "result_publish,"))
	assert.Contains(t, lines[2], "success=true")
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	_, isInflux := sink.(*InfluxSink)
	assert.False(t, isInflux, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 1.235, round3(1.23456))
	assert.Equal(t, -0.5, round3(-0.5))
}
