package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := New()

	cfg.Log.Level = "info"
	cfg.Log.Mode = "prod"

	cfg.Metrics.ListenAddress = DefaultMetricsListenAddress

	cfg.Relay.BackendTimeout = 10 * time.Second
	cfg.Relay.ClientIdleConnectionTimeout = time.Minute
	cfg.Relay.ListenAddress = "0.0.0.0:5000"
	cfg.Relay.MaxResponseSizeMb = 16

	cfg.Sidecar.Host = "localhost"
	cfg.Sidecar.HTTPPort = DefaultSidecarHTTPPort
	cfg.Sidecar.OrdersApp = "storeapp"
	cfg.Sidecar.OrdersMethod = "store"
	cfg.Sidecar.QueueApp = "httpapi"
	cfg.Sidecar.QueueMethod = "Data"

	cfg.Healthcheck.Interval = 5 * time.Second
	cfg.Healthcheck.Path = "/v1.0/healthz"
	cfg.Healthcheck.ThresholdHealthy = 2
	cfg.Healthcheck.ThresholdUnhealthy = 3

	return cfg
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("collects errors of all sections", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.Mode = "loud"
		cfg.Relay.BackendTimeout = 0
		cfg.Sidecar.HTTPPort = 0

		err := cfg.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, errLogInvalidMode)
		assert.ErrorIs(t, err, errRelayInvalidBackendTimeout)
		assert.ErrorIs(t, err, errSidecarInvalidPort)
	})

	t.Run("disabled sections are not validated", func(t *testing.T) {
		cfg := validConfig()
		cfg.Healthcheck = &Healthcheck{}
		cfg.Chaos = &Chaos{InjectedHttpErrorProbability: 250}

		assert.NoError(t, cfg.Validate())
	})

	t.Run("nil sections are skipped", func(t *testing.T) {
		cfg := validConfig()
		cfg.Chaos = nil

		assert.NoError(t, cfg.Validate())
	})
}

func TestRelayValidate(t *testing.T) {
	{
		cfg := validConfig().Relay
		cfg.BackendTimeout = 6 * time.Minute
		assert.ErrorIs(t, cfg.Validate(), errRelayInvalidBackendTimeout)
	}

	{
		cfg := validConfig().Relay
		cfg.ListenAddress = "0.0.0.0:http-ish"
		assert.ErrorIs(t, cfg.Validate(), errRelayInvalidListenAddress)
	}

	{
		cfg := validConfig().Relay
		cfg.MaxResponseSizeMb = 0
		assert.ErrorIs(t, cfg.Validate(), errRelayInvalidMaxResponseSize)
	}

	{
		cfg := validConfig().Relay
		cfg.TLSCertificate = "/tmp/relay.crt"
		assert.ErrorIs(t, cfg.Validate(), errRelayInvalidTLSConfig)
		assert.False(t, cfg.TLSEnabled())
	}
}

func TestHealthcheckValidate(t *testing.T) {
	cfg := validConfig().Healthcheck
	cfg.Enabled = true
	assert.NoError(t, cfg.Validate())

	cfg.Interval = 100 * time.Millisecond
	cfg.Path = "v1.0/healthz"
	cfg.ThresholdHealthy = 0
	cfg.ThresholdUnhealthy = 11

	err := cfg.Validate()
	assert.ErrorIs(t, err, errHealthcheckInvalidInterval)
	assert.ErrorIs(t, err, errHealthcheckInvalidPath)
	assert.ErrorIs(t, err, errHealthcheckInvalidThresholdHealthy)
	assert.ErrorIs(t, err, errHealthcheckInvalidThresholdUnhealthy)
}

func TestChaosValidate(t *testing.T) {
	{
		cfg := &Chaos{Enabled: true, MinInjectedLatency: 50 * time.Millisecond}
		assert.NoError(t, cfg.Validate())
		assert.Equal(t, 50*time.Millisecond, cfg.MaxInjectedLatency)
	}

	{
		cfg := &Chaos{Enabled: true, MinInjectedLatency: time.Second, MaxInjectedLatency: time.Millisecond}
		assert.ErrorIs(t, cfg.Validate(), errChaosInvalidMaxInjectedLatency)
	}

	{
		cfg := &Chaos{Enabled: true, InjectedHttpErrorProbability: -1}
		assert.ErrorIs(t, cfg.Validate(), errChaosInvalidInjectedHttpErrorProbability)
	}
}

func TestLogValidate(t *testing.T) {
	assert.NoError(t, (&Log{Level: "debug", Mode: "DEV"}).Validate())
	assert.ErrorIs(t, (&Log{Level: "chatty", Mode: "dev"}).Validate(), errLogInvalidLevel)
}

func TestMetricsValidate(t *testing.T) {
	assert.NoError(t, (&Metrics{ListenAddress: DefaultMetricsListenAddress}).Validate())
	assert.ErrorIs(t, (&Metrics{ListenAddress: "localhost"}).Validate(), errMetricsInvalidListenAddress)
	assert.ErrorIs(t, (&Metrics{ListenAddress: "0.0.0.0:0"}).Validate(), errMetricsInvalidListenAddress)
}
