// Package httpapi is the HTTP surface of smbupload: the upload trigger,
// liveness and Prometheus metrics.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"

	"github.com/absfs/smbupload/internal/logger"
	"github.com/absfs/smbupload/internal/telemetry"
)

// RouterConfig holds the optional parts of the router.
type RouterConfig struct {
	// RequestTimeout bounds each request. Zero means 90s. Keep it above the
	// writer's OpTimeout: a write still running at this deadline answers 500
	// and the timeout middleware's 504 is then dropped as superfluous.
	RequestTimeout time.Duration

	// Metrics, when set, is served on MetricsPath.
	Metrics     http.Handler
	MetricsPath string
}

// NewRouter creates the chi router with middleware and routes.
//
// Middleware, in order: request id, real IP, request logging (which also
// opens the request span), panic recovery, request timeout.
//
// Routes:
//   - GET /smb/upload - write the configured payload to the share
//   - GET /health - liveness probe
//   - GET <MetricsPath> - Prometheus metrics, when configured
func NewRouter(upload *UploadHandler, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	health := NewHealthHandler()
	r.Get("/health", health.Liveness)

	r.Get("/smb/upload", upload.Upload)

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, cfg.MetricsPath, cfg.Metrics)
	}

	return r
}

// requestLogger logs each request, starts its span and attaches the request
// id and client address to the context for downstream logging.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ctx, span := telemetry.StartSpan(r.Context(), "HTTP "+r.Method+" "+r.URL.Path,
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
			attribute.String("client.address", r.RemoteAddr),
		)
		defer span.End()

		ctx = logger.WithContext(ctx, &logger.LogContext{
			RequestID: requestID,
			TraceID:   telemetry.TraceID(ctx),
			ClientIP:  r.RemoteAddr,
		})
		r = r.WithContext(ctx)

		logger.Debug("HTTP request started",
			logger.KeyRequestID, requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		span.SetAttributes(attribute.Int("http.response.status_code", ww.Status()))

		logArgs := []any{
			logger.KeyRequestID, requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		}

		// Probes and scrapes are noisy at INFO.
		if r.URL.Path == "/smb/upload" {
			logger.Info("HTTP request completed", logArgs...)
		} else {
			logger.Debug("HTTP request completed", logArgs...)
		}
	})
}
