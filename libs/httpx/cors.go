package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy configures the browser-facing CORS headers. An empty origin
// list disables the middleware entirely.
type CORSPolicy struct {
	AllowedOrigins []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

// WithCORS answers preflights and stamps allow headers for matching origins.
// Methods are not configurable: the public API only serves GET and POST.
func WithCORS(policy CORSPolicy) Middleware {
	allowAll := false
	origins := map[string]bool{}
	for _, o := range policy.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		} else if o != "" {
			origins[o] = true
		}
	}
	if !allowAll && len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	headers := strings.Join(policy.AllowedHeaders, ", ")
	if headers == "" {
		headers = "Authorization, Content-Type, Idempotency-Key, X-Request-Id"
	}
	maxAge := int(policy.MaxAge / time.Second)
	if maxAge <= 0 {
		maxAge = 600
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")
			if origin == "" || (!allowAll && !origins[origin]) {
				next.ServeHTTP(w, r)
				return
			}

			allowed := origin
			if allowAll {
				allowed = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", headers)
			w.Header().Set("Access-Control-Max-Age", strconv.Itoa(maxAge))

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
