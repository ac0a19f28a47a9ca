// internal/transport/httpapi/middleware.go
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"origination-intake/internal/common/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLogger logs every request and feeds the prometheus and otel
// instruments.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}

		metrics.RequestDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
		if s.obs != nil {
			status := strconv.Itoa(rec.status)
			s.obs.RecordRequest(r.Context(), status)
			s.obs.RecordDuration(r.Context(), elapsed, status)
		}

		s.logger.Info("request handled", map[string]interface{}{
			"method":   r.Method,
			"route":    route,
			"status":   rec.status,
			"duration": elapsed.String(),
		})
	})
}
