package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"svario/internal/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "reqid"

// RequestIDFrom returns the id set by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id)))
		})
	}
}

func Recover(log logger.Sugared) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Errorw("panic", "err", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
					writeJSONError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logging logs one line per request. The query string is left out because
// OAuth callbacks carry the code and signature there.
func Logging(log logger.Sugared) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			log.Infow("handled request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", RequestIDFrom(r.Context()),
			)
		})
	}
}

// Tracing installs an OTLP trace exporter when endpoint is set and returns
// the otelhttp middleware plus a shutdown func. With no endpoint, or if the
// exporter cannot be built, the middleware is a pass-through.
func Tracing(ctx context.Context, endpoint string, log logger.Sugared) (func(http.Handler) http.Handler, func(context.Context) error) {
	passthrough := func(next http.Handler) http.Handler { return next }
	noop := func(context.Context) error { return nil }

	if endpoint == "" {
		return passthrough, noop
	}

	var opts []otlptracehttp.Option
	if strings.HasPrefix(strings.ToLower(endpoint), "http://") {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		log.Warnw("tracing disabled: exporter init failed", "err", err)
		return passthrough, noop
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName("svario-relay")))
	if err != nil {
		log.Warnw("tracing disabled: resource init failed", "err", err)
		return passthrough, noop
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	log.Infow("tracing enabled", "endpoint", endpoint)

	return func(next http.Handler) http.Handler { return otelhttp.NewHandler(next, "http") }, tp.Shutdown
}
