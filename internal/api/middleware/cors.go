package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig supplies CORS settings. It is satisfied by api.ServerConfig through
// api.(*ServerConfig).ToCORSConfig, keeping this package free of an api import.
type CORSConfig interface {
	GetAllowedOrigins() []string
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
	GetExposedHeaders() []string
	GetMaxAge() int
}

// CORS creates a middleware that handles Cross-Origin Resource Sharing (CORS).
//
// Preflight requests (OPTIONS with Access-Control-Request-Method) are answered with 204 and
// never reach the handler. Exposed headers let browser clients read Content-Disposition on
// CSV downloads and the correlation ID.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			setCORSOriginHeader(w, r, config.GetAllowedOrigins())
			setListHeader(w, "Access-Control-Expose-Headers", config.GetExposedHeaders())

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				setListHeader(w, "Access-Control-Allow-Methods", config.GetAllowedMethods())
				setListHeader(w, "Access-Control-Allow-Headers", config.GetAllowedHeaders())

				if maxAge := config.GetMaxAge(); maxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
				}

				w.WriteHeader(http.StatusNoContent)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setCORSOriginHeader sets Access-Control-Allow-Origin for a wildcard or a listed origin.
// A listed origin varies the response, so Vary: Origin is added for caches.
func setCORSOriginHeader(w http.ResponseWriter, r *http.Request, allowedOrigins []string) {
	if len(allowedOrigins) == 0 {
		return
	}

	if slices.Contains(allowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		return
	}

	w.Header().Add("Vary", "Origin")

	origin := r.Header.Get("Origin")
	if origin != "" && slices.Contains(allowedOrigins, origin) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
}

func setListHeader(w http.ResponseWriter, name string, values []string) {
	if len(values) > 0 {
		w.Header().Set(name, strings.Join(values, ", "))
	}
}
