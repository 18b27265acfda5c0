// Package simulator produces synthetic sulfur recovery readings, either
// published live over MQTT or written as a CSV dataset.
package simulator

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker   string
	ClientID string
	// Prefix of the topics, readings go to <prefix>/<unit>/state.
	Prefix string
	Units  []string
	// Nominal flow of each unit, T/h.
	Nominal float64
	// Jitter is the standard deviation of one step of the random walk, T/h.
	Jitter   float64
	Interval time.Duration
	Seed     int64
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if len(c.Units) == 0 {
		return fmt.Errorf("at least one unit is required")
	}
	if c.Nominal < 0 || c.Jitter < 0 {
		return fmt.Errorf("nominal and jitter must not be negative")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	return nil
}

// Reading is one unit sample.
type Reading struct {
	Unit string
	Time time.Time
	Flow float64
}

// Plant simulates the sulfur units as bounded random walks around the
// nominal flow. A unit trips to zero flow with a small probability.
type Plant struct {
	cfg   Config
	rng   *rand.Rand
	flows []float64
}

// NewPlant creates a simulator starting every unit at the nominal flow.
func NewPlant(cfg Config) *Plant {
	flows := make([]float64, len(cfg.Units))
	for i := range flows {
		flows[i] = cfg.Nominal
	}
	return &Plant{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed)), flows: flows}
}

const tripRate = 0.01

// Step advances every unit by one interval and returns the new readings.
func (p *Plant) Step(ts time.Time) []Reading {
	out := make([]Reading, len(p.flows))
	for i, f := range p.flows {
		switch {
		case f == 0:
			f = p.cfg.Nominal / 2
		case p.rng.Float64() < tripRate:
			f = 0
		default:
			f += p.rng.NormFloat64() * p.cfg.Jitter
			f = math.Min(math.Max(f, 0), 2*p.cfg.Nominal)
		}
		p.flows[i] = f
		out[i] = Reading{Unit: p.cfg.Units[i], Time: ts, Flow: math.Round(f*100) / 100}
	}
	return out
}

// WriteCSV writes rows readings starting at start, one row per interval.
// The header names every unit as a sulfur flow column.
func (p *Plant) WriteCSV(w io.Writer, start time.Time, rows int) error {
	cw := csv.NewWriter(w)
	header := []string{"Date"}
	for _, u := range p.cfg.Units {
		header = append(header, "Debit soufre "+u)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for r := 0; r < rows; r++ {
		ts := start.Add(time.Duration(r) * p.cfg.Interval)
		row := []string{ts.Format("2006-01-02 15:04:05")}
		for _, rd := range p.Step(ts) {
			row = append(row, strconv.FormatFloat(rd.Flow, 'f', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Publisher is the subset of paho.Client used to send readings.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Topic returns the topic of a unit.
func (p *Plant) Topic(unit string) string {
	return strings.TrimSuffix(p.cfg.Prefix, "/") + "/" + unit + "/state"
}

// Run publishes one reading per unit every interval until ctx is done.
func (p *Plant) Run(ctx context.Context, pub Publisher) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		if err := p.publish(pub, time.Now()); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Plant) publish(pub Publisher, now time.Time) error {
	ts := now.Unix()
	for _, rd := range p.Step(now) {
		payload, err := json.Marshal(map[string]any{"ts": ts, "flow": rd.Flow})
		if err != nil {
			return err
		}
		if token := pub.Publish(p.Topic(rd.Unit), 0, false, payload); token.Wait() && token.Error() != nil {
			return fmt.Errorf("publish %s: %w", rd.Unit, token.Error())
		}
	}
	return nil
}

// Connect opens an MQTT connection to the configured broker.
func Connect(cfg Config) (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}
