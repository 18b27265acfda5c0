package e2e

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/cogen/app"
	"github.com/kilianp07/cogen/config"
	"github.com/kilianp07/cogen/core/factory"
	"github.com/kilianp07/cogen/core/model"
)

const (
	influxOrg    = "e2e_org"
	influxBucket = "e2e_bucket"
	influxToken  = "e2e-token"
)

// junitReport is a minimal representation of a JUnit XML report so CI
// systems can display the results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// startInflux starts an initialised InfluxDB 2.7 container and returns its
// base URL.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	return cont, fmt.Sprintf("http://%s:%s", host, port.Port())
}

// startMosquitto spins up a basic Mosquitto broker for tests.
func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:1.6",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "1883")
	return cont, fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func subscribe(t *testing.T, broker, topic string) <-chan []byte {
	t.Helper()
	ch := make(chan []byte, 4)
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-observer")
	cli := paho.NewClient(opts)
	token := cli.Connect()
	require.True(t, token.WaitTimeout(10*time.Second))
	require.NoError(t, token.Error())
	token = cli.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) { ch <- msg.Payload() })
	require.True(t, token.WaitTimeout(10*time.Second))
	require.NoError(t, token.Error())
	t.Cleanup(func() { cli.Disconnect(250) })
	return ch
}

// Test_E2E_DispatchRun reads free steam from InfluxDB, solves one interval,
// and checks that the result reaches both InfluxDB and the MQTT broker.
func Test_E2E_DispatchRun(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") == "" {
		t.Skip("DOCKER_AVAILABLE not set")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	start := time.Now()

	influxCont, influxURL := startInflux(ctx, t)
	defer influxCont.Terminate(ctx) //nolint:errcheck
	mqttCont, mqttURL := startMosquitto(ctx, t)
	defer mqttCont.Terminate(ctx) //nolint:errcheck

	influx := NewInfluxClient(influxURL, influxOrg, influxBucket, influxToken)
	defer influx.Close()
	require.NoError(t, influx.SetupBucket(ctx))
	require.NoError(t, influx.WriteSulfurReading(ctx, "sulfur_recovery",
		map[string]float64{"Debit soufre L1": 25, "Debit soufre L2": 17}, time.Now().Add(-time.Minute)))

	influxConf := map[string]any{"url": influxURL, "token": influxToken, "org": influxOrg, "bucket": influxBucket}
	cfg := config.Default()
	cfg.FreeSteam.Source = factory.ModuleConfig{Type: "influx", Conf: influxConf}
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "influx", Conf: influxConf}}
	cfg.Publishers.Sinks = []factory.ModuleConfig{{Type: "mqtt", Conf: map[string]any{
		"broker": mqttURL, "client_id": "e2e-cogen", "topic_prefix": "e2e",
	}}}
	cfg.Journal = config.JournalConfig{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "journal.db")}
	require.NoError(t, cfg.Validate())

	results := subscribe(t, mqttURL, "e2e/result")
	svc, err := app.New(cfg)
	require.NoError(t, err)
	defer svc.Close()

	h := 19
	res, err := svc.Manager.Run(ctx, model.Request{ElectricityDemand: 70, SteamDemand: 450, Hour: &h})
	require.NoError(t, err)
	require.True(t, res.Solution.Optimal())
	assert.Equal(t, 42.0, res.Solution.FreeSteamAvailable)
	assert.False(t, res.Solution.FreeSteamFallback)

	select {
	case payload := <-results:
		var got model.Result
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, res.RunID, got.RunID)
	case <-time.After(10 * time.Second):
		t.Fatal("no result published on MQTT")
	}
	n, err := influx.CountRun(ctx, "dispatch_run", res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dir := t.TempDir()
	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{Name: t.Name(), Time: time.Since(start).Seconds()}}}
	if err := writeJUnit(filepath.Join(dir, "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
