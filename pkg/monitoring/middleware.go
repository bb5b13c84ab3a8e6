package monitoring

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vaidhya/pos-api/pkg/logger"
)

// MonitoringMiddleware combines metrics, tracing, and request logging
type MonitoringMiddleware struct {
	metrics *MetricsCollector
	tracing *TracingManager
	logger  *logger.Logger
}

// NewMonitoringMiddleware creates a new monitoring middleware. metrics and
// tracing may be nil.
func NewMonitoringMiddleware(metrics *MetricsCollector, tracing *TracingManager, log *logger.Logger) *MonitoringMiddleware {
	return &MonitoringMiddleware{
		metrics: metrics,
		tracing: tracing,
		logger:  log,
	}
}

// HTTPMiddleware records every request. It must run after the request ID
// middleware so the ID is on the context.
func (mm *MonitoringMiddleware) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		route := RouteTemplate(r)

		var span trace.Span
		if mm.tracing != nil {
			ctx = mm.tracing.Extract(ctx, r.Header)
			ctx, span = mm.tracing.StartHTTPSpan(ctx, r.Method, route)
			defer span.End()

			span.SetAttributes(
				attribute.String("http.user_agent", r.UserAgent()),
				requestIDAttr(logger.RequestIDFromContext(ctx)),
			)
			mm.tracing.Inject(ctx, w.Header())
		}

		wrapper := &monitoringResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r.WithContext(ctx))
		duration := time.Since(start)

		if span != nil {
			span.SetAttributes(
				semconv.HTTPStatusCode(wrapper.statusCode),
				attribute.Int64("http.response_size", wrapper.bytesWritten),
			)
			if wrapper.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", wrapper.statusCode))
			}
		}

		if mm.metrics != nil {
			mm.metrics.RecordHTTPRequest(r.Method, route, wrapper.statusCode, duration)
		}

		mm.logger.HTTPRequest(ctx, r.Method, r.URL.Path, r.UserAgent(), clientIP(r), wrapper.statusCode, duration)
	})
}

// RouteTemplate returns the matched mux route template, or the raw path
// when no route matched
func RouteTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

// monitoringResponseWriter wraps http.ResponseWriter to capture metrics
type monitoringResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (mrw *monitoringResponseWriter) WriteHeader(code int) {
	mrw.statusCode = code
	mrw.ResponseWriter.WriteHeader(code)
}

func (mrw *monitoringResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.bytesWritten += int64(n)
	return n, err
}
