package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const apiScopeName = "github.com/officetracker/oit/api"

// instrumentedTransport wraps an http.RoundTripper with OTel tracing and
// metrics. Every backend request gets a client span and is counted in the
// oit.api.* metrics.
type instrumentedTransport struct {
	inner  http.RoundTripper
	tracer trace.Tracer
	reqs   metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// Transport returns rt decorated with OTel instrumentation.
// When telemetry is disabled, rt is returned as-is with zero overhead.
func Transport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	if !Enabled() {
		return rt
	}
	m := Meter(apiScopeName)
	reqs, _ := m.Int64Counter("oit.api.requests",
		metric.WithDescription("Total backend requests issued"),
	)
	dur, _ := m.Float64Histogram("oit.api.request.duration",
		metric.WithDescription("Backend request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("oit.api.errors",
		metric.WithDescription("Backend requests that failed or returned a non-2xx status"),
	)
	return &instrumentedTransport{
		inner:  rt,
		tracer: Tracer(apiScopeName),
		reqs:   reqs,
		dur:    dur,
		errs:   errs,
	}
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.URL.Path),
	}
	ctx, span := t.tracer.Start(req.Context(), "api "+req.Method+" "+req.URL.Path,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()
	t.reqs.Add(ctx, 1, metric.WithAttributes(attrs...))
	start := time.Now()

	resp, err := t.inner.RoundTrip(req.WithContext(ctx))
	t.done(ctx, span, start, resp, err, attrs)
	return resp, err
}

func (t *instrumentedTransport) done(ctx context.Context, span trace.Span, start time.Time, resp *http.Response, err error, attrs []attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	t.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
		return
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, strconv.Itoa(resp.StatusCode))
		t.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// Counter returns an Int64Counter from the oit meter. Failures to create the
// instrument fall back to the no-op implementation of the global provider.
func Counter(scope, name, description string) metric.Int64Counter {
	c, _ := Meter(scope).Int64Counter(name, metric.WithDescription(description))
	return c
}
