package main

import (
	"os"
	"testing"
	"time"

	"github.com/storeops/opsrelay/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// parse runs the serve command with its action stubbed out.
func parse(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	cfg := config.New()
	cfg.Log.Level = "info"
	cfg.Log.Mode = "prod"

	cmd := CommandServe(cfg)
	cmd.Action = func(_ *cli.Context) error { return nil }

	app := &cli.App{
		Name:     appName,
		Commands: []*cli.Command{cmd},
	}

	err := app.Run(append([]string{appName, "serve"}, args...))
	return cfg, err
}

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()

	for _, key := range keys {
		t.Setenv(key, "") // restores the original value on cleanup
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestServeDefaults(t *testing.T) {
	unsetenv(t, "DAPR_HTTP_PORT", "TARGET_APP", "OPSRELAY_SIDECAR_HTTP_PORT", "OPSRELAY_ORDERS_APP")

	cfg, err := parse(t)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.Relay.ListenAddress)
	assert.Equal(t, 10*time.Second, cfg.Relay.BackendTimeout)
	assert.False(t, cfg.Relay.ForwardStatus)
	assert.Equal(t, "http://localhost:3603/v1.0/invoke/storeapp/method/store", cfg.Sidecar.OrdersURL())
	assert.Equal(t, "http://localhost:3603/v1.0/invoke/httpapi/method/Data", cfg.Sidecar.QueueURL())
	assert.False(t, cfg.Healthcheck.Enabled)
	assert.False(t, cfg.Chaos.Enabled)
}

func TestServeLegacyEnvironment(t *testing.T) {
	unsetenv(t, "OPSRELAY_SIDECAR_HTTP_PORT", "OPSRELAY_ORDERS_APP")
	t.Setenv("DAPR_HTTP_PORT", "3600")
	t.Setenv("TARGET_APP", "storeapp")

	cfg, err := parse(t)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3600/v1.0/invoke/storeapp/method/store", cfg.Sidecar.OrdersURL())
	assert.Equal(t, "http://localhost:3600/v1.0/invoke/httpapi/method/Data", cfg.Sidecar.QueueURL())
}

func TestServeFlagsOverride(t *testing.T) {
	t.Setenv("DAPR_HTTP_PORT", "3600")

	cfg, err := parse(t,
		"--sidecar-http-port", "3500",
		"--orders-app", "orders",
		"--queue-method", "queue/length",
		"--relay-forward-status",
		"--relay-backend-timeout", "2s",
	)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3500/v1.0/invoke/orders/method/store", cfg.Sidecar.OrdersURL())
	assert.Equal(t, "http://localhost:3500/v1.0/invoke/httpapi/method/queue/length", cfg.Sidecar.QueueURL())
	assert.True(t, cfg.Relay.ForwardStatus)
	assert.Equal(t, 2*time.Second, cfg.Relay.BackendTimeout)
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	_, err := parse(t, "--sidecar-http-port", "0")
	assert.ErrorContains(t, err, "invalid sidecar http port")
}
