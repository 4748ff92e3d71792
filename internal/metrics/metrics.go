// Package metrics wires the OpenTelemetry metric SDK to a Prometheus
// exporter and exposes the blog's instruments.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	export "go.opentelemetry.io/otel/sdk/export/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregator/histogram"
	controller "go.opentelemetry.io/otel/sdk/metric/controller/basic"
	processor "go.opentelemetry.io/otel/sdk/metric/processor/basic"
	selector "go.opentelemetry.io/otel/sdk/metric/selector/simple"
)

const InstrumentationName = "blog"

// NewExporter installs a Prometheus-backed meter provider as the global
// provider. The exporter is an http.Handler serving the scrape endpoint.
func NewExporter() (*prometheus.Exporter, error) {
	config := prometheus.Config{}
	c := controller.New(
		processor.New(
			selector.NewWithHistogramDistribution(
				histogram.WithExplicitBoundaries(config.DefaultHistogramBoundaries),
			),
			export.CumulativeExportKindSelector(),
			processor.WithMemory(true),
		),
	)
	exporter, err := prometheus.New(config, c)
	if err != nil {
		return nil, err
	}
	global.SetMeterProvider(exporter.MeterProvider())

	return exporter, nil
}

type Metrics struct {
	httpRequests  metric.Int64Counter
	notionCalls   metric.Int64Counter
	notionLatency metric.Float64ValueRecorder
	postsCached   metric.Int64Counter
	postsSkipped  metric.Int64Counter
}

// New creates the instruments on the global meter.
func New() *Metrics {
	meter := metric.Must(global.Meter(InstrumentationName))

	return &Metrics{
		httpRequests: meter.NewInt64Counter(
			"http/server/completed_count",
			metric.WithDescription("Count of completed requests, by route and response status"),
		),
		notionCalls: meter.NewInt64Counter(
			"notion/client/completed_count",
			metric.WithDescription("Count of Notion API calls, by endpoint and response status"),
		),
		notionLatency: meter.NewFloat64ValueRecorder(
			"notion/client/latency_ms",
			metric.WithDescription("Notion API call latency in milliseconds"),
		),
		postsCached: meter.NewInt64Counter(
			"posts/resolved_count",
			metric.WithDescription("Count of posts resolved from Notion"),
		),
		postsSkipped: meter.NewInt64Counter(
			"posts/skipped_count",
			metric.WithDescription("Count of published records that produced no post, by reason"),
		),
	}
}

// ObserveRequest records one Notion round trip.
func (m *Metrics) ObserveRequest(ctx context.Context, endpoint string, status int, elapsed time.Duration) {
	labels := []attribute.KeyValue{
		attribute.String("endpoint", endpoint),
		attribute.String("status", strconv.Itoa(status)),
	}
	m.notionCalls.Add(ctx, 1, labels...)
	m.notionLatency.Record(ctx, float64(elapsed)/float64(time.Millisecond), labels[:1]...)
}

// RecordBuild records the outcome of resolving the published set.
func (m *Metrics) RecordBuild(ctx context.Context, cached, malformed, failed int) {
	m.postsCached.Add(ctx, int64(cached))
	m.postsSkipped.Add(ctx, int64(malformed), attribute.String("reason", "malformed"))
	m.postsSkipped.Add(ctx, int64(failed), attribute.String("reason", "fetch"))
}

// Middleware counts completed requests by chi route pattern and status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.httpRequests.Add(r.Context(), 1,
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(ww.Status())),
		)
	})
}
