// Package kafka publishes solved dispatch results to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kilianp07/cogen/core/dispatch"
	"github.com/kilianp07/cogen/core/factory"
	"github.com/kilianp07/cogen/core/model"
)

// Config defines the Kafka publisher settings.
type Config struct {
	Brokers      []string `json:"brokers"`
	Topic        string   `json:"topic"`
	BatchTimeout int      `json:"batch_timeout_ms"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per result, keyed by run id.
type Publisher struct {
	w     messageWriter
	topic string
}

// NewPublisher creates a synchronous writer for cfg.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = "cogen.dispatch.results"
	}
	bt := 10 * time.Millisecond
	if cfg.BatchTimeout > 0 {
		bt = time.Duration(cfg.BatchTimeout) * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: bt,
		Async:        false,
	}
	return &Publisher{w: w, topic: cfg.Topic}, nil
}

// Name implements dispatch.Publisher.
func (p *Publisher) Name() string { return "kafka" }

// Publish implements dispatch.Publisher.
func (p *Publisher) Publish(ctx context.Context, res model.Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(res.RunID),
		Value: b,
		Time:  res.Timestamp,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(res.Solution.Status.String())},
			{Key: "period", Value: []byte(res.Solution.Period)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error { return p.w.Close() }

func init() {
	_ = dispatch.RegisterPublisher("kafka", func(conf map[string]any) (dispatch.Publisher, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPublisher(c)
	})
}
