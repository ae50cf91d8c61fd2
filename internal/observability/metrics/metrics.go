// Package metrics exposes application-level OpenTelemetry instruments.
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

// Metrics exposes counters for the accounting command surface.
type Metrics struct {
	chargesRecorded   metric.Int64Counter
	paymentsRecorded  metric.Int64Counter
	invoicesGenerated metric.Int64Counter
	invoicesVoided    metric.Int64Counter
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
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported metrics protocol %q", protocol)
	}
}

// New builds the application instruments.
func New(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("rideledger")

	charges, err := meter.Int64Counter("rideledger.charges.recorded",
		metric.WithDescription("Ride charges recorded"))
	if err != nil {
		return nil, err
	}
	payments, err := meter.Int64Counter("rideledger.payments.recorded",
		metric.WithDescription("Customer payments recorded"))
	if err != nil {
		return nil, err
	}
	generated, err := meter.Int64Counter("rideledger.invoices.generated",
		metric.WithDescription("Invoices generated"))
	if err != nil {
		return nil, err
	}
	voided, err := meter.Int64Counter("rideledger.invoices.voided",
		metric.WithDescription("Invoices voided"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		chargesRecorded:   charges,
		paymentsRecorded:  payments,
		invoicesGenerated: generated,
		invoicesVoided:    voided,
	}, nil
}

// RecordCharge counts a recorded ride charge.
func (m *Metrics) RecordCharge(ctx context.Context, tenantID string) {
	if m == nil {
		return
	}
	m.chargesRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant_id", tenantID)))
}

// RecordPayment counts a recorded customer payment.
func (m *Metrics) RecordPayment(ctx context.Context, tenantID string) {
	if m == nil {
		return
	}
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant_id", tenantID)))
}

// RecordInvoiceGenerated counts a generated invoice.
func (m *Metrics) RecordInvoiceGenerated(ctx context.Context, tenantID string) {
	if m == nil {
		return
	}
	m.invoicesGenerated.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant_id", tenantID)))
}

// RecordInvoiceVoided counts a voided invoice.
func (m *Metrics) RecordInvoiceVoided(ctx context.Context, tenantID string) {
	if m == nil {
		return
	}
	m.invoicesVoided.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant_id", tenantID)))
}
