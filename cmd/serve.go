package main

import (
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/storeops/opsrelay/config"
	"github.com/storeops/opsrelay/server"
)

const (
	categoryChaos       = "chaos"
	categoryHealthcheck = "healthcheck"
	categoryMetrics     = "metrics"
	categoryRelay       = "relay"
	categorySidecar     = "sidecar"
)

func CommandServe(cfg *config.Config) *cli.Command {
	relayFlags := []cli.Flag{
		&cli.StringFlag{
			Category:    strings.ToUpper(categoryRelay),
			Destination: &cfg.Relay.ListenAddress,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryRelay) + "_LISTEN_ADDRESS"},
			Name:        categoryRelay + "-listen-address",
			Usage:       "`host:port` for the relay to listen on",
			Value:       "0.0.0.0:5000",
		},

		&cli.DurationFlag{
			Category:    strings.ToUpper(categoryRelay),
			Destination: &cfg.Relay.BackendTimeout,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryRelay) + "_BACKEND_TIMEOUT"},
			Name:        categoryRelay + "-backend-timeout",
			Usage:       "max `duration` to wait for the sidecar to respond",
			Value:       10 * time.Second,
		},

		&cli.DurationFlag{
			Category:    strings.ToUpper(categoryRelay),
			Destination: &cfg.Relay.ClientIdleConnectionTimeout,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryRelay) + "_CLIENT_IDLE_CONNECTION_TIMEOUT"},
			Name:        categoryRelay + "-client-idle-connection-timeout",
			Usage:       "`duration` to keep idle client connections open",
			Value:       30 * time.Second,
		},

		&cli.BoolFlag{
			Category:    strings.ToUpper(categoryRelay),
			Destination: &cfg.Relay.ForwardStatus,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryRelay) + "_FORWARD_STATUS"},
			Name:        categoryRelay + "-forward-status",
			Usage:       "reply with the sidecar's status code instead of always 200",
		},

		&cli.BoolFlag{
			Category:    strings.ToUpper(categoryRelay),
			Destination: &cfg.Relay.LogResponses,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryRelay) + "_LOG_RESPONSES"},
			Name:        categoryRelay + "-log-responses",
			Usage:       "whether to log relayed responses",
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryRelay),
			Destination: &cfg.Relay.LogResponsesMaxSize,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryRelay) + "_LOG_RESPONSES_MAX_SIZE"},
			Name:        categoryRelay + "-log-responses-max-size",
			Usage:       "do not log responses larger than `bytes`",
			Value:       4096,
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryRelay),
			Destination: &cfg.Relay.MaxClientConnectionsPerIP,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryRelay) + "_MAX_CLIENT_CONNECTIONS_PER_IP"},
			Name:        categoryRelay + "-max-client-connections-per-ip",
			Usage:       "max `count` of connections per client ip (0 means no limit)",
			Value:       0,
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryRelay),
			Destination: &cfg.Relay.MaxResponseSizeMb,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryRelay) + "_MAX_RESPONSE_SIZE"},
			Name:        categoryRelay + "-max-response-size",
			Usage:       "max size of the sidecar response in `megabytes`",
			Value:       16,
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categoryRelay),
			Destination: &cfg.Relay.TLSCertificate,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryRelay) + "_TLS_CRT"},
			Name:        categoryRelay + "-tls-crt",
			Usage:       "`path` to tls certificate (plain or base64-encoded pem)",
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categoryRelay),
			Destination: &cfg.Relay.TLSKey,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryRelay) + "_TLS_KEY"},
			Name:        categoryRelay + "-tls-key",
			Usage:       "`path` to tls key (plain or base64-encoded pem)",
		},
	}

	sidecarFlags := []cli.Flag{
		&cli.StringFlag{
			Category:    strings.ToUpper(categorySidecar),
			Destination: &cfg.Sidecar.Host,
			EnvVars:     []string{envPrefix + strings.ToUpper(categorySidecar) + "_HOST"},
			Name:        categorySidecar + "-host",
			Usage:       "`host` of the sidecar's http endpoint",
			Value:       "localhost",
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categorySidecar),
			Destination: &cfg.Sidecar.HTTPPort,
			EnvVars: []string{
				envPrefix + strings.ToUpper(categorySidecar) + "_HTTP_PORT",
				"DAPR_HTTP_PORT",
			},
			Name:  categorySidecar + "-http-port",
			Usage: "`port` of the sidecar's http endpoint",
			Value: config.DefaultSidecarHTTPPort,
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categorySidecar),
			Destination: &cfg.Sidecar.OrdersApp,
			EnvVars: []string{
				envPrefix + "ORDERS_APP",
				"TARGET_APP",
			},
			Name:  "orders-app",
			Usage: "`app-id` that serves the orders (relayed by /orders)",
			Value: "storeapp",
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categorySidecar),
			Destination: &cfg.Sidecar.OrdersMethod,
			EnvVars:     []string{envPrefix + "ORDERS_METHOD"},
			Name:        "orders-method",
			Usage:       "`method` of the orders app to invoke",
			Value:       "store",
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categorySidecar),
			Destination: &cfg.Sidecar.QueueApp,
			EnvVars:     []string{envPrefix + "QUEUE_APP"},
			Name:        "queue-app",
			Usage:       "`app-id` that reports the queue (relayed by /queue)",
			Value:       "httpapi",
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categorySidecar),
			Destination: &cfg.Sidecar.QueueMethod,
			EnvVars:     []string{envPrefix + "QUEUE_METHOD"},
			Name:        "queue-method",
			Usage:       "`method` of the queue app to invoke",
			Value:       "Data",
		},
	}

	healthcheckFlags := []cli.Flag{
		&cli.BoolFlag{
			Category:    strings.ToUpper(categoryHealthcheck),
			Destination: &cfg.Healthcheck.Enabled,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryHealthcheck) + "_ENABLED"},
			Name:        categoryHealthcheck + "-enabled",
			Usage:       "whether to healthcheck the sidecar",
		},

		&cli.DurationFlag{
			Category:    strings.ToUpper(categoryHealthcheck),
			Destination: &cfg.Healthcheck.Interval,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryHealthcheck) + "_INTERVAL"},
			Name:        categoryHealthcheck + "-interval",
			Usage:       "`interval` between sidecar healthchecks",
			Value:       5 * time.Second,
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categoryHealthcheck),
			Destination: &cfg.Healthcheck.Path,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryHealthcheck) + "_PATH"},
			Name:        categoryHealthcheck + "-path",
			Usage:       "`path` of the sidecar's healthcheck endpoint",
			Value:       "/v1.0/healthz",
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryHealthcheck),
			Destination: &cfg.Healthcheck.ThresholdHealthy,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryHealthcheck) + "_THRESHOLD_HEALTHY"},
			Name:        categoryHealthcheck + "-threshold-healthy",
			Usage:       "`count` of consecutive successes to consider the sidecar healthy",
			Value:       2,
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryHealthcheck),
			Destination: &cfg.Healthcheck.ThresholdUnhealthy,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryHealthcheck) + "_THRESHOLD_UNHEALTHY"},
			Name:        categoryHealthcheck + "-threshold-unhealthy",
			Usage:       "`count` of consecutive failures to consider the sidecar unhealthy",
			Value:       3,
		},
	}

	chaosFlags := []cli.Flag{
		&cli.BoolFlag{
			Category:    strings.ToUpper(categoryChaos),
			Destination: &cfg.Chaos.Enabled,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryChaos) + "_ENABLED"},
			Name:        categoryChaos + "-enabled",
			Usage:       "whether to inject chaos into relayed requests",
		},

		&cli.Float64Flag{
			Category:    strings.ToUpper(categoryChaos),
			Destination: &cfg.Chaos.InjectedHttpErrorProbability,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryChaos) + "_INJECTED_HTTP_ERROR_PROBABILITY"},
			Name:        categoryChaos + "-injected-http-error-probability",
			Usage:       "`probability` in percent of answering with 500 instead of relaying",
		},

		&cli.DurationFlag{
			Category:    strings.ToUpper(categoryChaos),
			Destination: &cfg.Chaos.MinInjectedLatency,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryChaos) + "_MIN_INJECTED_LATENCY"},
			Name:        categoryChaos + "-min-injected-latency",
			Usage:       "min `latency` to enforce on every response",
		},

		&cli.DurationFlag{
			Category:    strings.ToUpper(categoryChaos),
			Destination: &cfg.Chaos.MaxInjectedLatency,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryChaos) + "_MAX_INJECTED_LATENCY"},
			Name:        categoryChaos + "-max-injected-latency",
			Usage:       "max `latency` to randomly enforce on every response",
		},
	}

	metricsFlags := []cli.Flag{
		&cli.StringFlag{
			Category:    strings.ToUpper(categoryMetrics),
			Destination: &cfg.Metrics.ListenAddress,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryMetrics) + "_LISTEN_ADDRESS"},
			Name:        categoryMetrics + "-listen-address",
			Usage:       "`host:port` for metrics server",
			Value:       config.DefaultMetricsListenAddress,
		},
	}

	flags := slices.Concat(
		relayFlags,
		sidecarFlags,
		healthcheckFlags,
		chaosFlags,
		metricsFlags,
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "run opsrelay server",
		Flags: flags,

		Before: func(_ *cli.Context) error {
			return cfg.Validate()
		},

		Action: func(_ *cli.Context) error {
			s, err := server.New(cfg)
			if err != nil {
				return err
			}
			return s.Run()
		},
	}
}
