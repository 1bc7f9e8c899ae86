// Package otel exports the daemon's traces and metrics over OTLP/HTTP.
//
// With no endpoint configured Init leaves the global no-op providers in
// place, so spans started from otel.Tracer and the instruments in Metrics
// cost nothing. The endpoint comes from otel_endpoint,
// EMOTITLE_OTEL_ENDPOINT or OTEL_EXPORTER_OTLP_ENDPOINT; headers from
// otel_headers, EMOTITLE_OTEL_HEADERS or OTEL_EXPORTER_OTLP_HEADERS.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	serviceName    = "emotitle"
	exportInterval = 15 * time.Second
)

// Version is reported as service.version.
var Version = "dev"

// Options configures Init.
type Options struct {
	Endpoint    string // OTLP base URL, e.g. "http://localhost:4318"
	Headers     string // key=value,key2=value2
	Multiplexer string // reported as emotitle.multiplexer
}

// Telemetry owns the exporting providers, if any.
type Telemetry struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	Metrics *Metrics
}

// target is where the exporters send data.
type target struct {
	host     string
	path     string
	insecure bool
}

// parseEndpoint splits an OTLP base URL. Its path is kept as a prefix for
// the /v1/traces and /v1/metrics signal paths.
func parseEndpoint(raw string) (target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return target{}, fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return target{}, fmt.Errorf("invalid endpoint %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return target{}, fmt.Errorf("invalid endpoint %q: missing host", raw)
	}
	return target{
		host:     u.Host,
		path:     strings.TrimRight(u.Path, "/"),
		insecure: u.Scheme == "http",
	}, nil
}

// parseHeaders reads OTEL_EXPORTER_OTLP_HEADERS syntax. Values may be
// percent-encoded; pairs without a key are skipped.
func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		val = strings.TrimSpace(val)
		if decoded, err := url.PathUnescape(val); err == nil {
			val = decoded
		}
		headers[key] = val
	}
	return headers
}

// Init builds the metric instruments and, when an endpoint is set, installs
// OTLP/HTTP trace and metric providers globally.
func Init(ctx context.Context, opts Options) (*Telemetry, error) {
	t := &Telemetry{}

	if opts.Endpoint != "" {
		dst, err := parseEndpoint(opts.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("otel: %w", err)
		}
		attrs := []attribute.KeyValue{
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(Version),
		}
		if opts.Multiplexer != "" {
			attrs = append(attrs, attribute.String("emotitle.multiplexer", opts.Multiplexer))
		}
		res, err := resource.New(ctx, resource.WithAttributes(attrs...), resource.WithHost())
		if err != nil {
			return nil, fmt.Errorf("otel resource: %w", err)
		}
		if err := t.install(ctx, dst, parseHeaders(opts.Headers), res); err != nil {
			return nil, err
		}
	}

	metrics, err := NewMetrics()
	if err != nil {
		t.Shutdown(ctx)
		return nil, fmt.Errorf("otel metrics: %w", err)
	}
	t.Metrics = metrics
	return t, nil
}

func (t *Telemetry) install(ctx context.Context, dst target, headers map[string]string, res *resource.Resource) error {
	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(dst.host),
		otlptracehttp.WithURLPath(dst.path + "/v1/traces"),
		otlptracehttp.WithHeaders(headers),
	}
	metricOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(dst.host),
		otlpmetrichttp.WithURLPath(dst.path + "/v1/metrics"),
		otlpmetrichttp.WithHeaders(headers),
	}
	if dst.insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	traceExp, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return fmt.Errorf("otel trace exporter: %w", err)
	}
	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		_ = traceExp.Shutdown(ctx)
		return fmt.Errorf("otel metric exporter: %w", err)
	}

	t.tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp), sdktrace.WithResource(res))
	t.mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(exportInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetTracerProvider(t.tp)
	otel.SetMeterProvider(t.mp)
	return nil
}

// Shutdown flushes pending spans and metrics.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
	}
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
