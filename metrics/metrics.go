package metrics

import (
	"context"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelapi "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	metricsNamespace = "opsrelay"
)

var (
	meter otelapi.Meter
)

// Setup replaces the no-op instruments with real ones exported via the
// default prometheus registry.
func Setup(
	ctx context.Context,
	observe func(ctx context.Context, o otelapi.Observer) error,
) error {
	return setup(ctx, promclient.DefaultRegisterer, observe)
}

func setup(
	ctx context.Context,
	registerer promclient.Registerer,
	observe func(ctx context.Context, o otelapi.Observer) error,
) error {
	if err := setupMeter(ctx, registerer); err != nil {
		return err
	}

	for _, setupInstrument := range []func(context.Context) error{
		setupRelaySuccessCount,
		setupRelayFailureCount,
		setupChaosCount,
		setupLatencyBackend,
		setupLatencyTotal,
		setupResponseSize,
		setupFrontendConnectionsCount,
		setupSidecarHealthy,
	} {
		if err := setupInstrument(ctx); err != nil {
			return err
		}
	}

	_, err := meter.RegisterCallback(observe,
		FrontendConnectionsCount,
		SidecarHealthy,
	)
	if err != nil {
		return err
	}

	return nil
}

func setupMeter(ctx context.Context, registerer promclient.Registerer) error {
	res, err := resource.New(ctx)
	if err != nil {
		return err
	}

	exporter, err := prometheus.New(
		prometheus.WithNamespace(metricsNamespace),
		prometheus.WithRegisterer(registerer),
		prometheus.WithoutScopeInfo(),
	)
	if err != nil {
		return err
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)

	meter = provider.Meter(metricsNamespace)

	return nil
}

func setupRelaySuccessCount(ctx context.Context) error {
	m, err := meter.Int64Counter("relay_success_count",
		otelapi.WithDescription("count of requests relayed to the sidecar"),
	)
	if err != nil {
		return err
	}
	RelaySuccessCount = m
	return nil
}

func setupRelayFailureCount(ctx context.Context) error {
	m, err := meter.Int64Counter("relay_failure_count",
		otelapi.WithDescription("count of failures to relay the request to the sidecar"),
	)
	if err != nil {
		return err
	}
	RelayFailureCount = m
	return nil
}

func setupChaosCount(ctx context.Context) error {
	m, err := meter.Int64Counter("chaos_count",
		otelapi.WithDescription("count of requests answered with chaos-injected error"),
	)
	if err != nil {
		return err
	}
	ChaosCount = m
	return nil
}

func setupLatencyBackend(ctx context.Context) error {
	m, err := meter.Int64Histogram("latency_backend",
		otelapi.WithDescription("latency of the sidecar round-trip"),
		otelapi.WithUnit("ms"),
		otelapi.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	)
	if err != nil {
		return err
	}
	LatencyBackend = m
	return nil
}

func setupLatencyTotal(ctx context.Context) error {
	m, err := meter.Int64Histogram("latency_total",
		otelapi.WithDescription("total latency of the relayed request"),
		otelapi.WithUnit("ms"),
		otelapi.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	)
	if err != nil {
		return err
	}
	LatencyTotal = m
	return nil
}

func setupResponseSize(ctx context.Context) error {
	m, err := meter.Int64Histogram("response_size",
		otelapi.WithDescription("size of the relayed responses"),
		otelapi.WithUnit("By"),
		otelapi.WithExplicitBucketBoundaries(64, 256, 1024, 4096, 16384, 65536, 262144, 1048576),
	)
	if err != nil {
		return err
	}
	ResponseSize = m
	return nil
}

func setupFrontendConnectionsCount(ctx context.Context) error {
	m, err := meter.Int64ObservableGauge("frontend_connections_count",
		otelapi.WithDescription("count of open frontend connections"),
	)
	if err != nil {
		return err
	}
	FrontendConnectionsCount = m
	return nil
}

func setupSidecarHealthy(ctx context.Context) error {
	m, err := meter.Int64ObservableGauge("sidecar_healthy",
		otelapi.WithDescription("1 if the sidecar passes healthchecks (or they are disabled), 0 otherwise"),
	)
	if err != nil {
		return err
	}
	SidecarHealthy = m
	return nil
}
