// Package telemetry configures the OpenTelemetry metrics pipeline for venuelink.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	apimetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/quantfold/venuelink/internal/observability"
)

// Config selects the OTLP destination for engine metrics.
type Config struct {
	OTLPEndpoint string
	ServiceName  string
}

// Init configures the OpenTelemetry meter provider based on cfg. An empty
// endpoint installs noop providers so instrumented code paths stay cheap.
func Init(ctx context.Context, cfg Config) (apimetric.MeterProvider, func(context.Context) error, error) {
	endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "venuelink"
	}

	if endpoint == "" {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, func(context.Context) error { return nil }, nil
	}

	host, insecure, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, nil, err
	}

	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(host)}
	if insecure {
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create metric exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(service)))
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(15*time.Second))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	return mp, mp.Shutdown, nil
}

func parseEndpoint(raw string) (string, bool, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse otlp endpoint: %w", err)
	}
	host := parsed.Host
	if host == "" {
		host = raw
	}
	insecure := parsed.Scheme != "https"
	return host, insecure, nil
}

// Collector bridges the observability.Metrics interface onto an otel meter.
type Collector struct {
	counters   map[string]apimetric.Float64Counter
	histograms map[string]apimetric.Float64Histogram
	gauges     map[string]apimetric.Float64Gauge
}

// NewCollector pre-registers the engine's instruments on the provider's meter.
func NewCollector(provider apimetric.MeterProvider) (*Collector, error) {
	meter := provider.Meter("github.com/quantfold/venuelink")
	c := &Collector{
		counters:   make(map[string]apimetric.Float64Counter),
		histograms: make(map[string]apimetric.Float64Histogram),
		gauges:     make(map[string]apimetric.Float64Gauge),
	}
	counterNames := []string{
		observability.MetricFramesReceived,
		observability.MetricReconnects,
		observability.MetricUpdatesDispatch,
		observability.MetricProtocolErrors,
		observability.MetricRESTRequests,
	}
	for _, name := range counterNames {
		counter, err := meter.Float64Counter(name)
		if err != nil {
			return nil, fmt.Errorf("register counter %s: %w", name, err)
		}
		c.counters[name] = counter
	}
	histogram, err := meter.Float64Histogram(observability.MetricRESTThrottleWait)
	if err != nil {
		return nil, fmt.Errorf("register histogram: %w", err)
	}
	c.histograms[observability.MetricRESTThrottleWait] = histogram
	return c, nil
}

// IncCounter adds value to the named counter.
func (c *Collector) IncCounter(name string, value float64, labels map[string]string) {
	counter, ok := c.counters[name]
	if !ok {
		return
	}
	counter.Add(context.Background(), value, apimetric.WithAttributes(attrs(labels)...))
}

// ObserveHistogram records value on the named histogram.
func (c *Collector) ObserveHistogram(name string, value float64, labels map[string]string) {
	histogram, ok := c.histograms[name]
	if !ok {
		return
	}
	histogram.Record(context.Background(), value, apimetric.WithAttributes(attrs(labels)...))
}

// SetGauge records value on the named gauge instrument.
func (c *Collector) SetGauge(name string, value float64, labels map[string]string) {
	gauge, ok := c.gauges[name]
	if !ok {
		return
	}
	gauge.Record(context.Background(), value, apimetric.WithAttributes(attrs(labels)...))
}

func attrs(labels map[string]string) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		out = append(out, attribute.String(k, v))
	}
	return out
}
