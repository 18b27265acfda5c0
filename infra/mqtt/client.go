// Package mqtt publishes solved dispatch results to an MQTT broker.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/cogen/core/dispatch"
	"github.com/kilianp07/cogen/core/factory"
	"github.com/kilianp07/cogen/core/model"
	coremon "github.com/kilianp07/cogen/core/monitoring"
	"github.com/kilianp07/cogen/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	TopicPrefix string          `json:"topic_prefix"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	Retain      bool            `json:"retain"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher sends each result as three message kinds: the full result, one
// setpoint per generator and the recommendation list.
type Publisher struct {
	cli        pahoClient
	prefix     string
	qos        map[string]byte
	retain     bool
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPublisher connects to the MQTT broker.
func NewPublisher(cfg Config) (*Publisher, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_publisher")
	p := &Publisher{
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	if p.prefix == "" {
		p.prefix = "cogen"
	}
	if p.maxRetries <= 0 {
		p.maxRetries = 3
	}
	if p.backoff <= 0 {
		p.backoff = 100 * time.Millisecond
	}

	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

// Name implements dispatch.Publisher.
func (p *Publisher) Name() string { return "mqtt" }

type setpointMessage struct {
	RunID string `json:"run_id"`
	model.GeneratorSetpoint
	Timestamp int64 `json:"timestamp"`
}

type recommendationsMessage struct {
	RunID           string                 `json:"run_id"`
	Status          model.Status           `json:"status"`
	Recommendations []model.Recommendation `json:"recommendations"`
	Timestamp       int64                  `json:"timestamp"`
}

// Topics returns the topics a result is published on, in publishing order.
func (p *Publisher) Topics(res model.Result) []string {
	topics := []string{p.prefix + "/result"}
	for _, g := range res.Solution.Generators {
		topics = append(topics, fmt.Sprintf("%s/gta/%d/setpoint", p.prefix, int(g.ID)))
	}
	return append(topics, p.prefix+"/recommendations")
}

// Publish implements dispatch.Publisher. Setpoints are only sent for optimal
// solutions.
func (p *Publisher) Publish(ctx context.Context, res model.Result) error {
	if err := p.send(ctx, res.RunID, p.prefix+"/result", p.qosFor("result"), res); err != nil {
		return err
	}
	ts := res.Timestamp.UnixMilli()
	if res.Solution.Optimal() {
		for _, g := range res.Solution.Generators {
			topic := fmt.Sprintf("%s/gta/%d/setpoint", p.prefix, int(g.ID))
			msg := setpointMessage{RunID: res.RunID, GeneratorSetpoint: g, Timestamp: ts}
			if err := p.send(ctx, res.RunID, topic, p.qosFor("setpoint"), msg); err != nil {
				return err
			}
		}
	}
	msg := recommendationsMessage{RunID: res.RunID, Status: res.Solution.Status, Recommendations: res.Recommendations, Timestamp: ts}
	return p.send(ctx, res.RunID, p.prefix+"/recommendations", p.qosFor("recommendations"), msg)
}

func (p *Publisher) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

// send publishes v as JSON, retrying with exponential backoff until the
// context ends.
func (p *Publisher) send(ctx context.Context, runID, topic string, qos byte, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; ; attempt++ {
		token := p.cli.Publish(topic, qos, p.retain, payload)
		select {
		case <-token.Done():
			publishErr = token.Error()
		case <-ctx.Done():
			publishErr = ctx.Err()
		}
		if publishErr == nil {
			p.logger.Debugf("published run %s to %s", runID, topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt >= p.maxRetries || ctx.Err() != nil {
			break
		}
		select {
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			publishErr = ctx.Err()
			break
		}
	}
	coremon.CaptureException(publishErr, coremon.RunTags(runID, "publish", "module", "mqtt", "topic", topic))
	return fmt.Errorf("mqtt publish %s: %w", topic, publishErr)
}

// Close gracefully closes the MQTT connection.
func (p *Publisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}

func init() {
	_ = dispatch.RegisterPublisher("mqtt", func(conf map[string]any) (dispatch.Publisher, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPublisher(c)
	})
}
