package metrics

import (
	otelapi "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Instruments are no-ops until Setup replaces them.
var (
	RelaySuccessCount otelapi.Int64Counter = noop.Int64Counter{}
	RelayFailureCount otelapi.Int64Counter = noop.Int64Counter{}
	ChaosCount        otelapi.Int64Counter = noop.Int64Counter{}

	LatencyBackend otelapi.Int64Histogram = noop.Int64Histogram{}
	LatencyTotal   otelapi.Int64Histogram = noop.Int64Histogram{}
	ResponseSize   otelapi.Int64Histogram = noop.Int64Histogram{}

	FrontendConnectionsCount otelapi.Int64ObservableGauge = noop.Int64ObservableGauge{}
	SidecarHealthy           otelapi.Int64ObservableGauge = noop.Int64ObservableGauge{}
)
