package observability

import (
	"context"
	"time"

	"github.com/felixgeelhaar/querykit/domain/telemetry"
	"github.com/felixgeelhaar/querykit/domain/transport"
)

// tracingTransport records every round trip as a client span.
type tracingTransport struct {
	inner  transport.Transport
	tracer telemetry.Tracer
}

// TracingTransport decorates a transport so each request becomes a span
// carrying the method, path, and outcome.
func TracingTransport(inner transport.Transport, tracer telemetry.Tracer) transport.Transport {
	return &tracingTransport{inner: inner, tracer: tracer}
}

// Request implements transport.Transport.
func (t *tracingTransport) Request(ctx context.Context, method, path string, opts transport.Options) ([]byte, error) {
	ctx, span := t.tracer.StartSpan(ctx, "querykit.request",
		telemetry.WithAttributes(
			telemetry.String("http.method", method),
			telemetry.String("http.path", path),
		),
		telemetry.WithSpanKind(telemetry.SpanKindClient),
	)
	defer span.End()

	body, err := t.inner.Request(ctx, method, path, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(telemetry.StatusCodeError, err.Error())
		span.SetAttributes(telemetry.String("querykit.failure", failureClass(err)))
		if code := transport.StatusCode(err); code != 0 {
			span.SetAttributes(telemetry.Int("http.status_code", code))
		}
		return nil, err
	}

	span.SetStatus(telemetry.StatusCodeOK, "")
	span.SetAttributes(telemetry.Int("http.response_size", len(body)))
	return body, nil
}

var _ transport.Transport = (*tracingTransport)(nil)

// metricsTransport records request counts and latency per endpoint.
type metricsTransport struct {
	inner    transport.Transport
	requests telemetry.Counter
	failures telemetry.Counter
	duration telemetry.Histogram
}

// MetricsTransport decorates a transport with request metrics: total
// round trips, failures by class, and latency.
func MetricsTransport(inner transport.Transport, meter telemetry.Meter) transport.Transport {
	return &metricsTransport{
		inner: inner,
		requests: meter.Counter("querykit.transport.requests_total",
			telemetry.WithDescription("Total transport round trips"),
			telemetry.WithUnit("{request}"),
		),
		failures: meter.Counter("querykit.transport.failures_total",
			telemetry.WithDescription("Transport failures by class"),
			telemetry.WithUnit("{failure}"),
		),
		duration: meter.Histogram("querykit.transport.duration_seconds",
			telemetry.WithDescription("Transport round trip latency"),
			telemetry.WithUnit("s"),
		),
	}
}

// Request implements transport.Transport.
func (t *metricsTransport) Request(ctx context.Context, method, path string, opts transport.Options) ([]byte, error) {
	start := time.Now()
	body, err := t.inner.Request(ctx, method, path, opts)
	elapsed := time.Since(start).Seconds()

	attrs := []telemetry.Attribute{
		telemetry.String("method", method),
		telemetry.String("path", path),
	}
	if err != nil {
		t.failures.Add(ctx, 1, append(attrs, telemetry.String("class", failureClass(err)))...)
		attrs = append(attrs, telemetry.String("status", "error"))
	} else {
		attrs = append(attrs, telemetry.String("status", "success"))
	}
	t.requests.Add(ctx, 1, attrs...)
	t.duration.Record(ctx, elapsed, attrs...)

	return body, err
}

var _ transport.Transport = (*metricsTransport)(nil)

// Instrument wraps a transport with both tracing and metrics, tracing
// outermost so span duration covers metric recording.
func Instrument(inner transport.Transport, tracer telemetry.Tracer, meter telemetry.Meter) transport.Transport {
	return TracingTransport(MetricsTransport(inner, meter), tracer)
}

// failureClass names the transport failure taxonomy class for telemetry.
func failureClass(err error) string {
	switch {
	case transport.IsNetwork(err):
		return "network"
	case transport.IsRequest(err):
		return "request"
	case transport.IsSerialization(err):
		return "serialization"
	default:
		return "unknown"
	}
}
