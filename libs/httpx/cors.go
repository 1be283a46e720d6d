package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// WithCORS lets the public site call the booking API from the browser.
// If AllowedOrigins is empty, it is a no-op. Methods default to GET, POST and OPTIONS.
func WithCORS(cfg CORSPolicy) Middleware {
	if len(cfg.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}

	allowedOrigins := normalizeList(cfg.AllowedOrigins)
	static := http.Header{}
	if methods := normalizeList(cfg.AllowedMethods); len(methods) > 0 {
		static.Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
	}
	if headers := normalizeList(cfg.AllowedHeaders); len(headers) > 0 {
		static.Set("Access-Control-Allow-Headers", strings.Join(headers, ", "))
	}
	if secs := int(cfg.MaxAge.Seconds()); secs > 0 {
		static.Set("Access-Control-Max-Age", strconv.Itoa(secs))
	}
	if cfg.AllowCredentials {
		static.Set("Access-Control-Allow-Credentials", "true")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowOrigin, ok := matchOrigin(origin, allowedOrigins, cfg.AllowCredentials)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			for k, v := range static {
				h[k] = v
			}
			h.Add("Vary", "Origin, Access-Control-Request-Method, Access-Control-Request-Headers")

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if preflight {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

// matchOrigin accepts exact origins, "*" and single-label wildcards such as
// "https://*.example.dev", which matches "https://blog.example.dev" but not the apex.
func matchOrigin(origin string, allowed []string, allowCredentials bool) (string, bool) {
	for _, candidate := range allowed {
		switch {
		case candidate == "*":
			if allowCredentials {
				return origin, true
			}
			return "*", true
		case strings.EqualFold(candidate, origin):
			return origin, true
		case wildcardMatch(strings.ToLower(candidate), strings.ToLower(origin)):
			return origin, true
		}
	}
	return "", false
}

func wildcardMatch(pattern, origin string) bool {
	i := strings.Index(pattern, "://*.")
	if i < 0 {
		return false
	}
	scheme, suffix := pattern[:i+3], pattern[i+4:]
	if !strings.HasPrefix(origin, scheme) || !strings.HasSuffix(origin, suffix) {
		return false
	}
	label := strings.TrimSuffix(strings.TrimPrefix(origin, scheme), suffix)
	return label != "" && !strings.ContainsAny(label, "./:")
}
