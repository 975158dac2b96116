package observe

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// statusRecorder wraps [http.ResponseWriter] to capture the status code
// written by the downstream handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code and delegates to the wrapped writer.
func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// annotations collects request attributes added by handlers.
type annotations struct {
	mu    sync.Mutex
	attrs []attribute.KeyValue
}

type annotationsKey struct{}

// Annotate attaches attrs to the request being served under ctx. They are
// added to the request span, the request duration metric and the completion
// log line, so they must have low cardinality, e.g. the language or whether
// the request was a batch. Outside [Middleware] it does nothing.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	a, ok := ctx.Value(annotationsKey{}).(*annotations)
	if !ok {
		return
	}
	a.mu.Lock()
	a.attrs = append(a.attrs, attrs...)
	a.mu.Unlock()
}

func (a *annotations) snapshot() []attribute.KeyValue {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]attribute.KeyValue(nil), a.attrs...)
}

// route returns the mux pattern r matched, or "unmatched".
func route(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

// Middleware returns an [http.Handler] that:
//
//  1. Extracts W3C Trace Context from incoming request headers (or starts a
//     new trace).
//  2. Starts a server span for the request.
//  3. Sets the X-Correlation-ID response header from the trace ID.
//  4. Records request duration to [Metrics.HTTPRequestDuration], labelled
//     with the matched route pattern rather than the raw path, plus any
//     attributes the handler added through [Annotate].
//  5. Logs completion through logger, at warn level for 4xx and error
//     level for 5xx responses.
//
// A nil logger means slog.Default().
func Middleware(m *Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := StartSpan(ctx, "HTTP "+r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			cid := CorrelationID(ctx)
			if cid != "" {
				w.Header().Set("X-Correlation-ID", cid)
			}
			prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			ann := &annotations{}
			ctx = context.WithValue(ctx, annotationsKey{}, ann)
			r = r.WithContext(ctx)
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			extra := ann.snapshot()
			attrs := append([]attribute.KeyValue{
				attribute.String("method", r.Method),
				attribute.String("route", route(r)),
				attribute.Int("status", rec.statusCode),
			}, extra...)
			m.HTTPRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
			span.SetAttributes(semconv.HTTPRoute(route(r)), semconv.HTTPResponseStatusCode(rec.statusCode))
			span.SetAttributes(extra...)

			level := slog.LevelInfo
			switch {
			case rec.statusCode >= 500:
				level = slog.LevelError
			case rec.statusCode >= 400:
				level = slog.LevelWarn
			}
			logAttrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Duration("duration", duration),
			}
			for _, kv := range extra {
				logAttrs = append(logAttrs, slog.Any(string(kv.Key), kv.Value.AsInterface()))
			}
			Logger(ctx, logger).LogAttrs(ctx, level, "request completed", logAttrs...)
		})
	}
}
