package httpx

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// limitDecision is the outcome of one fixed-window check.
type limitDecision struct {
	allowed   bool
	remaining int
	resetIn   time.Duration
}

// probePaths never count against a client's budget.
var probePaths = map[string]bool{"/healthz": true, "/readyz": true}

func writeLimitHeaders(w http.ResponseWriter, limit int, d limitDecision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(d.remaining, 0)))
	if !d.allowed {
		h.Set("Retry-After", strconv.Itoa(int(math.Ceil(d.resetIn.Seconds()))))
	}
}

func writeLimitError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// RateLimiter is a per-client fixed-window limiter for a single instance.
type RateLimiter struct {
	limit    int
	window   time.Duration
	now      func() time.Time
	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	count     int
	resetTime time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		visitors: map[string]*visitor{},
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			d := rl.allow(clientKey(r))
			writeLimitHeaders(w, rl.limit, d)
			if !d.allowed {
				writeLimitError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(key string) limitDecision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.visitors) > maxTrackedVisitors {
		rl.pruneLocked(now)
	}
	v := rl.visitors[key]
	if v == nil || now.After(v.resetTime) {
		v = &visitor{resetTime: now.Add(rl.window)}
		rl.visitors[key] = v
	}
	resetIn := v.resetTime.Sub(now)
	if v.count >= rl.limit {
		return limitDecision{allowed: false, resetIn: resetIn}
	}
	v.count++
	return limitDecision{allowed: true, remaining: rl.limit - v.count, resetIn: resetIn}
}

const maxTrackedVisitors = 10000

// pruneLocked drops visitors whose window has elapsed. Caller holds rl.mu.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	for k, v := range rl.visitors {
		if now.After(v.resetTime) {
			delete(rl.visitors, k)
		}
	}
}

// clientKey prefers the first X-Forwarded-For hop, then X-Real-Ip, then the peer address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
