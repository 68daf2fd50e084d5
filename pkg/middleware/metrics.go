// Package middleware holds the HTTP middleware wrapped around every route:
// request ids, CORS, per-client rate limits, Prometheus request metrics and
// per-request timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/metrics"
)

// routes are the paths recorded under their own label. Anything else is
// counted as "other" so stray URLs cannot grow the series count.
var routes = map[string]bool{
	"/api/v1/search":           true,
	"/api/v1/search/body":      true,
	"/api/v1/search/title":     true,
	"/api/v1/search/anchor":    true,
	"/api/v1/pagerank":         true,
	"/api/v1/pageviews":        true,
	"/api/v1/analytics":        true,
	"/api/v1/cache/stats":      true,
	"/api/v1/cache/invalidate": true,
	"/health":                  true,
	"/health/live":             true,
	"/health/ready":            true,
}

// Metrics records request count and latency per method, route and status,
// plus the number of requests in flight.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route := routeLabel(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.code())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

func routeLabel(path string) string {
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if routes[path] {
		return path
	}
	return "other"
}
