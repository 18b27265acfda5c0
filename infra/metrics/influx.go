package metrics

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/cogen/core/metrics"
	"github.com/kilianp07/cogen/infra/logger"
)

// InfluxConfig locates an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes dispatch runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDispatch writes one dispatch_run point. Cost fields are only written
// for optimal runs.
func (s *InfluxSink) RecordDispatch(ev coremetrics.DispatchEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_run").
		AddTag("status", ev.Status.String()).
		AddTag("period", string(ev.Period)).
		AddTag("component", "optimizer").
		AddField("run_id", ev.RunID).
		AddField("hour", ev.Hour).
		AddField("grid_price", round3(ev.GridPrice)).
		AddField("elec_demand", round3(ev.ElectricityDemand)).
		AddField("steam_demand", round3(ev.SteamDemand)).
		AddField("grid_import", round3(ev.GridImport)).
		AddField("boiler_output", round3(ev.BoilerOutput)).
		AddField("sulfur_steam", round3(ev.FreeSteam)).
		AddField("sulfur_fallback", ev.FreeSteamFallback).
		AddField("solve_ms", round3(float64(ev.SolveTime)/float64(time.Millisecond)))
	for id, pw := range ev.GeneratorPower {
		p = p.AddField(fmt.Sprintf("gta%d_power", int(id)), round3(pw))
	}
	for id, a := range ev.GeneratorAdmission {
		p = p.AddField(fmt.Sprintf("gta%d_admission", int(id)), round3(a))
	}
	if ev.Optimal() {
		p = p.AddField("total_cost", round3(ev.TotalCost)).
			AddField("baseline_cost", round3(ev.BaselineCost)).
			AddField("savings", round3(ev.Savings))
	}
	return s.writeAPI.WritePoint(ctx, p.SetTime(ev.Time))
}

// RecordRecommendations writes one point per recommendation.
func (s *InfluxSink) RecordRecommendations(evs []coremetrics.RecommendationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("recommendation").
			AddTag("code", ev.Code).
			AddTag("category", string(ev.Category)).
			AddTag("priority", string(ev.Priority)).
			AddField("run_id", ev.RunID).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordFreeSteam writes the free steam estimate of a run.
func (s *InfluxSink) RecordFreeSteam(ev coremetrics.FreeSteamEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("free_steam_estimate").
		AddTag("fallback", strconv.FormatBool(ev.Fallback)).
		AddField("flow", round3(ev.Flow)).
		SetTime(ev.Time)
	if age, ok := ev.RecordAge(); ok {
		p.AddField("record_age_s", round3(age.Seconds()))
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPublish writes the delivery outcome of a result.
func (s *InfluxSink) RecordPublish(ev coremetrics.PublishEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("result_publish").
		AddTag("publisher", ev.Publisher).
		AddTag("success", strconv.FormatBool(ev.Error == "")).
		AddField("run_id", ev.RunID).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		AddField("errors", ev.Error).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
