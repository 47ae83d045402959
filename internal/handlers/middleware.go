package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/skyscope/skyscope/internal/logging"
)

const RequestIDHeader = "X-Request-ID"

var tracer = otel.Tracer("github.com/skyscope/skyscope/internal/handlers")

// HTTPRecorder receives one observation per served request
type HTTPRecorder interface {
	ObserveHTTP(route, method string, code int, elapsed time.Duration)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Instrument tags the request with an ID, opens a span, logs the access line
// and records metrics. rec may be nil.
func Instrument(route string, rec HTTPRecorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := logging.WithRequestID(r.Context(), id)
		ctx, span := tracer.Start(ctx, "HTTP "+r.Method+" "+route)
		defer span.End()

		sw := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(sw, r.WithContext(ctx))
		if sw.status == 0 {
			sw.status = http.StatusOK
		}

		elapsed := time.Since(start)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.String("http.method", r.Method),
			attribute.Int("http.status_code", sw.status),
		)
		if sw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(sw.status))
		}
		if rec != nil {
			rec.ObserveHTTP(route, r.Method, sw.status, elapsed)
		}
		slog.InfoContext(ctx, "Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"elapsed", elapsed)
	})
}
