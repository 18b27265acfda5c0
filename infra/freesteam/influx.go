package freesteam

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/kilianp07/cogen/core/factory"
	core "github.com/kilianp07/cogen/core/freesteam"
)

// InfluxConfig configures a source querying sulfur unit flows from InfluxDB.
type InfluxConfig struct {
	URL         string `json:"url"`
	Token       string `json:"token"`
	Org         string `json:"org"`
	Bucket      string `json:"bucket"`
	Measurement string `json:"measurement"`
	// Lookback bounds the Latest query, e.g. "-1h".
	Lookback string `json:"lookback"`
}

func (c *InfluxConfig) setDefaults() {
	if c.Measurement == "" {
		c.Measurement = "sulfur_recovery"
	}
	if c.Lookback == "" {
		c.Lookback = "-24h"
	}
}

// InfluxSource reads pivoted sulfur flow rows with Flux queries.
type InfluxSource struct {
	cfg    InfluxConfig
	client influxdb2.Client
	query  api.QueryAPI
}

// NewInfluxSource creates a source for cfg.
func NewInfluxSource(cfg InfluxConfig) *InfluxSource {
	cfg.setDefaults()
	c := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSource{cfg: cfg, client: c, query: c.QueryAPI(cfg.Org)}
}

// Close releases the client.
func (s *InfluxSource) Close() { s.client.Close() }

// Latest returns the last value of every field within the lookback window,
// stamped with the newest of their times. Fields written at different times
// pivot into partial rows, which are folded back into one record.
func (s *InfluxSource) Latest(ctx context.Context) (core.Record, error) {
	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s)
  |> filter(fn: (r) => r._measurement == %q)
  |> last()
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")`,
		s.cfg.Bucket, s.cfg.Lookback, s.cfg.Measurement)
	recs, err := s.run(ctx, flux)
	if err != nil {
		return core.Record{}, err
	}
	if len(recs) == 0 {
		return core.Record{}, fmt.Errorf("%w: no rows in %s", core.ErrDataUnavailable, s.cfg.Lookback)
	}
	return fold(recs), nil
}

func fold(recs []core.Record) core.Record {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Time.Before(recs[j].Time) })
	out := core.Record{Values: map[string]string{}}
	for _, r := range recs {
		out.Time = r.Time
		for k, v := range r.Values {
			out.Values[k] = v
		}
	}
	return out
}

// At returns the row stamped ts.
func (s *InfluxSource) At(ctx context.Context, ts time.Time) (core.Record, error) {
	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")`,
		s.cfg.Bucket, ts.UTC().Format(time.RFC3339Nano), ts.Add(time.Second).UTC().Format(time.RFC3339Nano), s.cfg.Measurement)
	recs, err := s.run(ctx, flux)
	if err != nil {
		return core.Record{}, err
	}
	for _, r := range recs {
		if r.Time.Equal(ts) {
			return r, nil
		}
	}
	return core.Record{}, fmt.Errorf("%w at %s", core.ErrNoMatchingRecord, ts.Format(time.RFC3339))
}

func (s *InfluxSource) run(ctx context.Context, flux string) ([]core.Record, error) {
	res, err := s.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDataUnavailable, err)
	}
	defer res.Close()
	var out []core.Record
	for res.Next() {
		r := res.Record()
		rec := core.Record{Time: r.Time(), Values: map[string]string{}}
		for k, v := range r.Values() {
			if strings.HasPrefix(k, "_") || k == "result" || k == "table" || v == nil {
				continue
			}
			rec.Values[k] = fmt.Sprint(v)
		}
		out = append(out, rec)
	}
	if res.Err() != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDataUnavailable, res.Err())
	}
	return out, nil
}

func init() {
	_ = core.RegisterSource("influx", func(conf map[string]any) (core.Source, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSource(c), nil
	})
}
