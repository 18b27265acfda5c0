// Package telemetry receives live sulfur recovery readings over MQTT and
// serves them as a free steam source.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/cogen/core/factory"
	"github.com/kilianp07/cogen/core/freesteam"
	"github.com/kilianp07/cogen/infra/logger"
	infmqtt "github.com/kilianp07/cogen/infra/mqtt"
)

const (
	defaultTopic   = "sulfur/+/state"
	defaultHistory = 1440
)

// Config configures the MQTT subscription.
type Config struct {
	MQTT infmqtt.Config `json:"mqtt"`
	// Topic may hold wildcards. The last level names the unit when a
	// message carries a single flow.
	Topic string `json:"topic"`
	QoS   byte   `json:"qos"`
	// History bounds the number of timestamps kept in memory.
	History int `json:"history"`
}

type subscriber interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var (
	messagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "free_steam_telemetry_messages_total",
		Help: "Sulfur unit telemetry messages by outcome",
	}, []string{"outcome"})
	lastReading = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "free_steam_telemetry_last_reading_timestamp_seconds",
		Help: "Unix timestamp of the most recent sulfur unit reading",
	})
)

func init() {
	prometheus.MustRegister(messagesTotal, lastReading)
	_ = freesteam.RegisterSource("mqtt", func(conf map[string]any) (freesteam.Source, error) {
		var cfg Config
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewSource(cfg)
	})
}

// Source keeps the recent sulfur unit readings pushed on an MQTT topic.
// Readings sharing a timestamp are merged into one record.
type Source struct {
	cli     subscriber
	topic   string
	history int
	log     logger.Logger

	mu      sync.RWMutex
	records []freesteam.Record
}

var newSubscriber = func(opts *paho.ClientOptions) subscriber {
	return paho.NewClient(opts)
}

// NewSource connects to the broker and subscribes to the configured topic.
func NewSource(cfg Config) (*Source, error) {
	opts, err := infmqtt.NewClientOptions(cfg.MQTT)
	if err != nil {
		return nil, err
	}
	id := cfg.MQTT.ClientID
	if id != "" {
		id += "-telemetry"
	} else {
		id = "telemetry-" + uuid.NewString()
	}
	opts.SetClientID(id)

	// The broker keeps the subscription across reconnects.
	opts.SetCleanSession(false)

	s := newSource(cfg)
	cli := newSubscriber(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("%w: %v", freesteam.ErrDataUnavailable, token.Error())
	}
	if token := cli.Subscribe(s.topic, cfg.QoS, s.onMessage); token.Wait() && token.Error() != nil {
		cli.Disconnect(250)
		return nil, fmt.Errorf("%w: subscribe %s: %v", freesteam.ErrDataUnavailable, s.topic, token.Error())
	}
	s.cli = cli
	return s, nil
}

func newSource(cfg Config) *Source {
	s := &Source{topic: cfg.Topic, history: cfg.History, log: logger.New("free-steam-telemetry")}
	if s.topic == "" {
		s.topic = defaultTopic
	}
	if s.history <= 0 {
		s.history = defaultHistory
	}
	return s
}

func (s *Source) onMessage(_ paho.Client, msg paho.Message) {
	if err := s.Ingest(msg.Topic(), msg.Payload()); err != nil {
		messagesTotal.WithLabelValues("rejected").Inc()
		s.log.Warnf("telemetry %s: %v", msg.Topic(), err)
		return
	}
	messagesTotal.WithLabelValues("accepted").Inc()
}

// reading is either a set of named column values or a single flow of the
// unit named by the topic.
type reading struct {
	TS     *int64         `json:"ts"`
	Values map[string]any `json:"values"`
	Flow   *float64       `json:"flow"`
}

// Ingest decodes one reading and merges it into the history.
func (s *Source) Ingest(topic string, payload []byte) error {
	var r reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return err
	}
	values := make(map[string]string, len(r.Values)+1)
	for k, v := range r.Values {
		values[k] = fmt.Sprint(v)
	}
	if r.Flow != nil {
		unit := extractID(topic)
		if unit == "" {
			return fmt.Errorf("flow without unit name")
		}
		values["soufre "+unit] = strconv.FormatFloat(*r.Flow, 'f', -1, 64)
	}
	if len(values) == 0 {
		return fmt.Errorf("empty reading")
	}
	ts := time.Now().UTC().Truncate(time.Second)
	if r.TS != nil {
		ts = time.Unix(*r.TS, 0).UTC()
	}
	s.merge(ts, values)
	return nil
}

func (s *Source) merge(ts time.Time, values map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := sort.Search(len(s.records), func(i int) bool { return !s.records[i].Time.Before(ts) })
	if i < len(s.records) && s.records[i].Time.Equal(ts) {
		for k, v := range values {
			s.records[i].Values[k] = v
		}
		return
	}
	s.records = append(s.records, freesteam.Record{})
	copy(s.records[i+1:], s.records[i:])
	s.records[i] = freesteam.Record{Time: ts, Values: values}
	if over := len(s.records) - s.history; over > 0 {
		s.records = append(s.records[:0], s.records[over:]...)
	}
	lastReading.Set(float64(s.records[len(s.records)-1].Time.Unix()))
}

// extractID returns the unit level of topics shaped like prefix/<unit> or
// prefix/<unit>/state.
func extractID(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	n := len(parts)
	if n < 2 {
		return ""
	}
	if parts[n-1] == "state" {
		return parts[n-2]
	}
	return parts[n-1]
}

// Len returns the number of records held.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Latest implements freesteam.Source. Units report on their own clock, so
// each column carries its last value forward into the newest record.
func (s *Source) Latest(context.Context) (freesteam.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return freesteam.Record{}, fmt.Errorf("%w: no telemetry received on %s", freesteam.ErrDataUnavailable, s.topic)
	}
	return s.snapshot(len(s.records) - 1), nil
}

// At implements freesteam.Source.
func (s *Source) At(_ context.Context, ts time.Time) (freesteam.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := sort.Search(len(s.records), func(i int) bool { return !s.records[i].Time.Before(ts) })
	if i < len(s.records) && s.records[i].Time.Equal(ts) {
		return s.snapshot(i), nil
	}
	return freesteam.Record{}, fmt.Errorf("%w: %s", freesteam.ErrNoMatchingRecord, ts.Format(time.RFC3339))
}

// snapshot folds records[0..i] oldest first into a copy stamped with the
// time of records[i]. Callers hold s.mu.
func (s *Source) snapshot(i int) freesteam.Record {
	v := make(map[string]string)
	for _, r := range s.records[:i+1] {
		for k, x := range r.Values {
			v[k] = x
		}
	}
	return freesteam.Record{Time: s.records[i].Time, Values: v}
}

// Close disconnects from the broker.
func (s *Source) Close() error {
	if s.cli != nil && s.cli.IsConnected() {
		s.cli.Disconnect(250)
	}
	return nil
}
