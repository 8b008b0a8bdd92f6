package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes domain-level instruments.
type Metrics struct {
	clientsCreated   metric.Int64Counter
	suppliersCreated metric.Int64Counter
	invoicesCreated  metric.Int64Counter
	invoiceFailures  metric.Int64Counter
	debtsRecorded    metric.Int64Counter
	invoiceAmount    metric.Float64Histogram
	overdueDebts     metric.Int64Gauge
	overdueAmount    metric.Float64Gauge
	jobDuration      metric.Float64Histogram
	jobErrors        metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "tradeledger"
	}
	meter := provider.Meter(name)

	clientsCreated, err := meter.Int64Counter("tradeledger_clients_created_total")
	if err != nil {
		return nil, err
	}
	suppliersCreated, err := meter.Int64Counter("tradeledger_suppliers_created_total")
	if err != nil {
		return nil, err
	}
	invoicesCreated, err := meter.Int64Counter("tradeledger_invoices_created_total")
	if err != nil {
		return nil, err
	}
	invoiceFailures, err := meter.Int64Counter("tradeledger_invoice_failures_total")
	if err != nil {
		return nil, err
	}
	debtsRecorded, err := meter.Int64Counter("tradeledger_debts_recorded_total")
	if err != nil {
		return nil, err
	}
	invoiceAmount, err := meter.Float64Histogram("tradeledger_invoice_amount",
		metric.WithDescription("Invoice total with markup."),
	)
	if err != nil {
		return nil, err
	}

	overdueDebts, err := meter.Int64Gauge("tradeledger_overdue_debts",
		metric.WithDescription("Unpaid debts past their due date."),
	)
	if err != nil {
		return nil, err
	}
	overdueAmount, err := meter.Float64Gauge("tradeledger_overdue_debt_amount")
	if err != nil {
		return nil, err
	}
	jobDuration, err := meter.Float64Histogram("tradeledger_scheduler_job_duration_seconds")
	if err != nil {
		return nil, err
	}
	jobErrors, err := meter.Int64Counter("tradeledger_scheduler_job_errors_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		clientsCreated:   clientsCreated,
		suppliersCreated: suppliersCreated,
		invoicesCreated:  invoicesCreated,
		invoiceFailures:  invoiceFailures,
		debtsRecorded:    debtsRecorded,
		invoiceAmount:    invoiceAmount,
		overdueDebts:     overdueDebts,
		overdueAmount:    overdueAmount,
		jobDuration:      jobDuration,
		jobErrors:        jobErrors,
	}, nil
}

func (m *Metrics) RecordClientCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.clientsCreated.Add(ctx, 1)
}

func (m *Metrics) RecordSupplierCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.suppliersCreated.Add(ctx, 1)
}

// RecordInvoiceCreated counts an invoice and observes its grand total.
func (m *Metrics) RecordInvoiceCreated(ctx context.Context, totalWithMarkup float64) {
	if m == nil {
		return
	}
	m.invoicesCreated.Add(ctx, 1)
	m.invoiceAmount.Record(ctx, totalWithMarkup)
}

// RecordInvoiceFailure counts rejected invoice creations by reason.
func (m *Metrics) RecordInvoiceFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.invoiceFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordDebt(ctx context.Context, debtType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("debt_type", strings.TrimSpace(debtType)))
	m.debtsRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOverdueDebts reports the current overdue position for one debt type.
func (m *Metrics) RecordOverdueDebts(ctx context.Context, debtType string, count int64, amount float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("debt_type", strings.TrimSpace(debtType)))...)
	m.overdueDebts.Record(ctx, count, attrs)
	m.overdueAmount.Record(ctx, amount, attrs)
}

func (m *Metrics) RecordJob(ctx context.Context, job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("job", job))...)
	m.jobDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.jobErrors.Add(ctx, 1, attrs)
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"reason":      {},
	"debt_type":   {},
	"status_code": {},
	"job":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
