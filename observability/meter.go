package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/broadband/logger"
)

const meterName = "github.com/kbukum/broadband/stream"

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Fan-out operation statuses.
const (
	StatusOK        = "ok"
	StatusFault     = "fault"
	StatusCancelled = "cancelled"
)

// FanoutMetrics holds the instruments recorded by fan-out executors.
type FanoutMetrics struct {
	active     metric.Int64UpDownCounter
	operations metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewFanoutMetrics creates fan-out instruments on the given meter.
func NewFanoutMetrics(meter metric.Meter) (*FanoutMetrics, error) {
	active, err := meter.Int64UpDownCounter("fanout.active",
		metric.WithDescription("Number of fan-out operations currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fanout.active gauge: %w", err)
	}

	operations, err := meter.Int64Counter("fanout.operations",
		metric.WithDescription("Completed fan-out operations by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fanout.operations counter: %w", err)
	}

	duration, err := meter.Float64Histogram("fanout.duration",
		metric.WithDescription("Duration of fan-out operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fanout.duration histogram: %w", err)
	}

	return &FanoutMetrics{
		active:     active,
		operations: operations,
		duration:   duration,
	}, nil
}

// OperationStarted increments the running operation count.
func (m *FanoutMetrics) OperationStarted(ctx context.Context) {
	m.active.Add(context.WithoutCancel(ctx), 1)
}

// OperationFinished decrements the running count and records the outcome.
func (m *FanoutMetrics) OperationFinished(ctx context.Context, status string, d time.Duration) {
	ctx = context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(attribute.String(AttrStatus, status))
	m.active.Add(ctx, -1)
	m.operations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}

var (
	fanoutOnce    sync.Once
	fanoutMetrics *FanoutMetrics
)

// Fanout returns the process-wide fan-out instruments, created on first use
// from the global meter provider. Instruments created before InitMeter are
// forwarded to the provider it installs.
func Fanout() *FanoutMetrics {
	fanoutOnce.Do(func() {
		m, err := NewFanoutMetrics(Meter(meterName))
		if err != nil {
			logger.Warn("fan-out metrics disabled", logger.ErrorFields("init", err))
			m, _ = NewFanoutMetrics(noop.NewMeterProvider().Meter(meterName))
		}
		fanoutMetrics = m
	})
	return fanoutMetrics
}
