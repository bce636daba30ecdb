package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the OpenTelemetry meter and tracer providers for the server
// and hands out the metrics recorder built on top of them.
type Provider struct {
	config             Config
	meterProvider      *metric.MeterProvider
	tracerProvider     *sdktrace.TracerProvider
	metrics            *Metrics
	prometheusExporter *prometheus.Exporter
	enabled            bool
}

// NewProvider creates an OpenTelemetry provider from the given configuration.
// With Enabled=false it returns a provider whose metrics recorder is a no-op,
// so callers never have to branch on instrumentation being off.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if !config.Enabled {
		return &Provider{
			config:  config,
			enabled: false,
			metrics: &Metrics{},
		}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(resourceAttributes(config)...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Provider{
		config:  config,
		enabled: true,
	}

	if err := p.initMeterProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	if err := p.initTracerProvider(ctx, res); err != nil {
		// The meter provider is already running; tear it down again.
		if shutdownErr := p.meterProvider.Shutdown(ctx); shutdownErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to shutdown meter provider during cleanup: %w", shutdownErr))
		}
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	otel.SetMeterProvider(p.meterProvider)
	otel.SetTracerProvider(p.tracerProvider)

	meter := p.meterProvider.Meter(config.ServiceName)
	p.metrics, err = NewMetrics(meter, config.DetailedLabels)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
	}

	return p, nil
}

// resourceAttributes builds the OTel resource attribute set: service identity
// plus Kubernetes metadata when running in a cluster.
func resourceAttributes(config Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	}

	switch {
	case config.ServiceInstanceID != "":
		attrs = append(attrs, semconv.ServiceInstanceID(config.ServiceInstanceID))
	default:
		if hostname, err := os.Hostname(); err == nil {
			attrs = append(attrs, semconv.ServiceInstanceID(hostname))
		}
	}

	if config.K8sNamespace != "" {
		attrs = append(attrs, semconv.K8SNamespaceName(config.K8sNamespace))
	}
	if config.K8sPodName != "" {
		attrs = append(attrs, semconv.K8SPodName(config.K8sPodName))
	}

	return attrs
}

// initMeterProvider wires the configured metrics exporter into a meter provider.
func (p *Provider) initMeterProvider(ctx context.Context, res *resource.Resource) error {
	reader, err := p.newMetricReader(ctx)
	if err != nil {
		return err
	}

	p.meterProvider = metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(reader),
	)
	return nil
}

// newMetricReader builds the metric reader for the configured exporter. For
// the prometheus exporter the reader doubles as the scrape handler and is
// kept on the provider.
func (p *Provider) newMetricReader(ctx context.Context) (metric.Reader, error) {
	switch p.config.MetricsExporter {
	case ExporterPrometheus:
		promExporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		p.prometheusExporter = promExporter
		return promExporter, nil

	case ExporterOTLP:
		if p.config.OTLPEndpoint == "" {
			return nil, fmt.Errorf("OTLP endpoint is required for OTLP metrics exporter; set OTEL_EXPORTER_OTLP_ENDPOINT or use 'prometheus' exporter")
		}

		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(p.config.OTLPEndpoint),
		}
		if p.config.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}

		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		return metric.NewPeriodicReader(exporter), nil

	case ExporterStdout:
		slog.Warn("stdout metrics exporter enabled - for development/debugging only, not for production",
			"component", "instrumentation",
			"exporter", ExporterStdout,
		)
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
		return metric.NewPeriodicReader(exporter), nil

	default:
		return nil, fmt.Errorf("unsupported metrics exporter: %s", p.config.MetricsExporter)
	}
}

// initTracerProvider wires the configured trace exporter into a tracer
// provider. The "none" exporter installs a never-sampling provider so span
// helpers stay callable.
func (p *Provider) initTracerProvider(ctx context.Context, res *resource.Resource) error {
	if p.config.TracingExporter == ExporterNone {
		p.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.NeverSample()),
		)
		return nil
	}

	exporter, err := p.newSpanExporter(ctx)
	if err != nil {
		return err
	}

	sampler := sdktrace.ParentBased(
		sdktrace.TraceIDRatioBased(p.config.TraceSamplingRate),
	)

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler),
	)
	return nil
}

// newSpanExporter builds the span exporter for the configured backend.
func (p *Provider) newSpanExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	switch p.config.TracingExporter {
	case ExporterOTLP:
		if p.config.OTLPEndpoint == "" {
			return nil, fmt.Errorf("OTLP endpoint is required for OTLP tracing exporter")
		}

		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(p.config.OTLPEndpoint),
		}
		if p.config.OTLPInsecure {
			// Traces carry request metadata; plaintext export is for local
			// development against an unencrypted collector only.
			slog.Warn("OTLP insecure transport enabled - traces may contain sensitive metadata, use only for development",
				"component", "instrumentation",
				"exporter", ExporterOTLP,
				"endpoint", p.config.OTLPEndpoint,
			)
			opts = append(opts, otlptracehttp.WithInsecure())
		}

		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		return exporter, nil

	case ExporterStdout:
		slog.Warn("stdout traces exporter enabled - for development/debugging only, not for production",
			"component", "instrumentation",
			"exporter", ExporterStdout,
		)
		exporter, err := stdouttrace.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		return exporter, nil

	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", p.config.TracingExporter)
	}
}

// Metrics returns the metrics recorder. Never nil, even when disabled.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Tracer returns a tracer for creating spans. When the provider is disabled
// it returns a no-op tracer.
func (p *Provider) Tracer(name string) trace.Tracer {
	if !p.enabled || p.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.tracerProvider.Tracer(name)
}

// PrometheusHandler returns the Prometheus scrape handler, or nil when the
// prometheus exporter is not configured.
func (p *Provider) PrometheusHandler() interface{} {
	if p.prometheusExporter == nil {
		return nil
	}
	return p.prometheusExporter
}

// Shutdown flushes pending telemetry and shuts both providers down.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.enabled {
		return nil
	}

	var errs []error

	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}

	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Enabled reports whether instrumentation is active.
func (p *Provider) Enabled() bool {
	return p.enabled
}
