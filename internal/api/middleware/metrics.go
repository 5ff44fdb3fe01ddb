package middleware

import (
	"net/http"
	"time"
)

// unmatchedRoute labels requests no registered pattern matched, keeping label cardinality
// bounded no matter which paths clients probe.
const unmatchedRoute = "unmatched"

// RequestObserver receives one observation per served request. metrics.Recorder implements it.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Metrics creates a middleware that reports method, matched route pattern, status and latency.
// The route is read from http.Request.Pattern after the mux has served the request.
func Metrics(observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := r.Pattern
			if route == "" {
				route = unmatchedRoute
			}

			observer.ObserveRequest(r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
