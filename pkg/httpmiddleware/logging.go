package httpmiddleware

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// statusRecorder captures the response status code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// InjectLogger stores lg in every request context so handlers can retrieve
// it with zctx.From.
func InjectLogger(lg *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := zctx.Base(r.Context(), lg)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LogRequests logs one line per request with method, path, status, duration,
// and request ID.
func LogRequests() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			}
			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
			}
			zctx.From(r.Context()).Info("Request", fields...)
		})
	}
}

// Instrument records a request counter and duration histogram using the
// given meter. Route cardinality is bounded by recording only the method and
// status code, not the raw path.
func Instrument(service string, meter metric.Meter) Middleware {
	requests, _ := meter.Int64Counter("http.server.requests")
	duration, _ := meter.Float64Histogram("http.server.duration",
		metric.WithUnit("ms"),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			attrs := metric.WithAttributes(
				attribute.String("service", service),
				attribute.String("method", r.Method),
				attribute.Int("status", rec.status),
			)
			requests.Add(r.Context(), 1, attrs)
			duration.Record(r.Context(), float64(time.Since(start).Milliseconds()), attrs)
		})
	}
}
