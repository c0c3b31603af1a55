package server

import (
	"context"
	"testing"
	"time"

	"github.com/storeops/opsrelay/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelapi "go.opentelemetry.io/otel/metric"
)

func testConfig() *config.Config {
	cfg := config.New()

	cfg.Metrics.ListenAddress = "127.0.0.1:6785"

	cfg.Relay.BackendTimeout = time.Second
	cfg.Relay.ClientIdleConnectionTimeout = time.Minute
	cfg.Relay.ListenAddress = "127.0.0.1:5000"
	cfg.Relay.MaxResponseSizeMb = 1

	cfg.Sidecar.Host = "localhost"
	cfg.Sidecar.HTTPPort = config.DefaultSidecarHTTPPort
	cfg.Sidecar.OrdersApp = "storeapp"
	cfg.Sidecar.OrdersMethod = "store"
	cfg.Sidecar.QueueApp = "httpapi"
	cfg.Sidecar.QueueMethod = "Data"

	return cfg
}

type recordingObserver struct {
	otelapi.Observer

	values []int64
}

func (o *recordingObserver) ObserveInt64(_ otelapi.Int64Observable, value int64, _ ...otelapi.ObserveOption) {
	o.values = append(o.values, value)
}

func TestNew(t *testing.T) {
	s, err := New(testConfig())
	require.NoError(t, err)

	assert.NotNil(t, s.relay)
	assert.Equal(t, "127.0.0.1:6785", s.metrics.Addr)

	o := &recordingObserver{}
	require.NoError(t, s.observe(context.Background(), o))

	// no open connections, sidecar assumed healthy without healthcheck
	assert.Equal(t, []int64{0, 1}, o.values)
}

func TestNewFailsOnMissingTLSCertificate(t *testing.T) {
	cfg := testConfig()
	cfg.Relay.TLSCertificate = "/nonexistent/relay.crt"
	cfg.Relay.TLSKey = "/nonexistent/relay.key"

	_, err := New(cfg)
	assert.Error(t, err)
}
