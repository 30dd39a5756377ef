// Package telemetry wires OpenTelemetry metrics for sharecast.
//
// Without an OTLP endpoint the global no-op meter provider stays in place and
// every instrument is free to call.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"go.klb.dev/sharecast/internal/share"
)

const meterName = "go.klb.dev/sharecast"

// Config controls metric export.
type Config struct {
	// Endpoint is the OTLP/HTTP collector host:port. Empty disables export.
	Endpoint string
	Insecure bool
	Interval time.Duration
	Service  string
	Version  string
}

// Provider owns the meter provider installed by Init.
type Provider struct {
	mp *sdkmetric.MeterProvider
}

// Init installs a global meter provider exporting to cfg.Endpoint. It is a
// no-op when the endpoint is empty.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Endpoint == "" {
		return &Provider{}, nil
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.Service),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(cfg.Interval),
		)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return &Provider{mp: mp}, nil
}

// Shutdown flushes and stops the exporter, if one was started.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.mp == nil {
		return nil
	}
	return p.mp.Shutdown(ctx)
}

// Metrics are the counters recorded along the share pipeline.
type Metrics struct {
	shares  metric.Int64Counter
	items   metric.Int64Counter
	dropped metric.Int64Counter
	pushes  metric.Int64Counter
}

// NewMetrics creates the instruments from mp, or from the global provider
// when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(meterName)

	var (
		out Metrics
		err error
	)
	if out.shares, err = m.Int64Counter("sharecast.shares",
		metric.WithDescription("Share events ingested")); err != nil {
		return nil, err
	}
	if out.items, err = m.Int64Counter("sharecast.items",
		metric.WithDescription("Items in ingested batches")); err != nil {
		return nil, err
	}
	if out.dropped, err = m.Int64Counter("sharecast.handles.dropped",
		metric.WithDescription("Content handles that could not be resolved")); err != nil {
		return nil, err
	}
	if out.pushes, err = m.Int64Counter("sharecast.pushes",
		metric.WithDescription("Batches delivered to stream subscribers")); err != nil {
		return nil, err
	}
	return &out, nil
}

func channelAttr(ch share.Channel) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("channel", ch.String()))
}

// Ingested records one ingested batch.
func (m *Metrics) Ingested(ctx context.Context, ch share.Channel, items int) {
	if m == nil {
		return
	}
	m.shares.Add(ctx, 1, channelAttr(ch))
	m.items.Add(ctx, int64(items), channelAttr(ch))
}

// Dropped records one unresolved content handle.
func (m *Metrics) Dropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.dropped.Add(ctx, 1)
}

// Pushed records one batch delivered to a subscriber.
func (m *Metrics) Pushed(ctx context.Context, ch share.Channel) {
	if m == nil {
		return
	}
	m.pushes.Add(ctx, 1, channelAttr(ch))
}
