package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"selfeval/internal/platform/cache"
	"selfeval/internal/transport/http/api"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// Limiter is a fixed-window budget per key. Counts live in a cache.Counter so
// several server instances sharing Redis share one budget.
type Limiter struct {
	counter cache.Counter
	name    string
	limit   int
	window  time.Duration
	key     KeyFunc
}

func NewLimiter(counter cache.Counter, name string, limit int, window time.Duration, key KeyFunc) *Limiter {
	if counter == nil {
		counter = cache.NewMemory()
	}
	if key == nil {
		key = ActorKey
	}
	return &Limiter{counter: counter, name: name, limit: limit, window: window, key: key}
}

// RateLimit applies one budget to every request, keyed by actor or client IP.
func RateLimit(counter cache.Counter, limit int, window time.Duration) func(http.Handler) http.Handler {
	l := NewLimiter(counter, "all", limit, window, ActorKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.allow(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

type routeScope int

const (
	scopeNone routeScope = iota
	scopeLogin
	scopePrivileged
)

// sensitiveRoutes are path.Match patterns relative to /api/v1.
var sensitiveRoutes = []struct {
	pattern string
	scope   routeScope
}{
	{"/auth/login", scopeLogin},
	{"/auth/google", scopeLogin},
	{"/catalog/seed", scopePrivileged},
	{"/catalog/questions", scopePrivileged},
	{"/catalog/questions/*", scopePrivileged},
	{"/review/batch-approve", scopePrivileged},
	{"/review/users/*/responses/*/status", scopePrivileged},
	{"/review/users/*/responses/*/articles", scopePrivileged},
	{"/users/*/roles", scopePrivileged},
}

// SensitiveMutationRateLimit adds tighter budgets on logins (a quarter of base,
// per IP and per submitted email) and on privileged writes (half of base, per actor).
func SensitiveMutationRateLimit(counter cache.Counter, base int, window time.Duration) func(http.Handler) http.Handler {
	loginByIP := NewLimiter(counter, "login-ip", max(base/4, 1), window, ClientIP)
	loginByEmail := NewLimiter(counter, "login-email", max(base/4, 1), window, emailKey)
	privileged := NewLimiter(counter, "privileged", max(base/2, 1), window, ActorKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch scopeOf(r) {
			case scopeLogin:
				if !loginByIP.allow(w, r) || !loginByEmail.allow(w, r) {
					return
				}
			case scopePrivileged:
				if !privileged.allow(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func scopeOf(r *http.Request) routeScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return scopeNone
	}
	p := strings.TrimPrefix(path.Clean(r.URL.Path), "/api/v1")
	for _, route := range sensitiveRoutes {
		if ok, _ := path.Match(route.pattern, p); ok {
			return route.scope
		}
	}
	return scopeNone
}

// ActorKey counts authenticated requests per user and anonymous ones per IP.
func ActorKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok {
		return "user:" + user.Email
	}
	return ClientIP(r)
}

// ClientIP is the host part of RemoteAddr. Put chi's RealIP in front when
// running behind a proxy.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return "ip:" + host
	}
	return "ip:" + r.RemoteAddr
}

// emailKey buckets login attempts by the submitted email, falling back to IP.
func emailKey(r *http.Request) string {
	if !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") || r.Body == nil {
		return ClientIP(r)
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ClientIP(r)
	}
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &body) != nil || strings.TrimSpace(body.Email) == "" {
		return ClientIP(r)
	}
	return "email:" + strings.ToLower(strings.TrimSpace(body.Email))
}

func (l *Limiter) allow(w http.ResponseWriter, r *http.Request) bool {
	if l.limit <= 0 {
		return true
	}
	key := l.key(r)
	count, left, err := l.counter.Incr(r.Context(), "rl:"+l.name+":"+key, l.window)
	if err != nil {
		slog.Warn("rate limit counter failed, allowing request", "limiter", l.name, "err", err)
		return true
	}

	resetIn := int(left.Round(time.Second) / time.Second)
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(l.limit-int(count), 0)))
	h.Set("X-RateLimit-Reset", strconv.Itoa(resetIn))
	if int(count) <= l.limit {
		return true
	}

	h.Set("Retry-After", strconv.Itoa(max(resetIn, 1)))
	slog.Warn("rate limit exceeded", "limiter", l.name, "key", key, "method", r.Method, "path", r.URL.Path)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}
