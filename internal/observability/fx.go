package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/tradeledger/internal/observability/logger"
	"github.com/smallbiznis/tradeledger/internal/observability/metrics"
	"github.com/smallbiznis/tradeledger/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		// /metrics serves the Go runtime collectors alongside ours.
		func() (prometheus.Registerer, prometheus.Gatherer) {
			return prometheus.DefaultRegisterer, prometheus.DefaultGatherer
		},
	),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
