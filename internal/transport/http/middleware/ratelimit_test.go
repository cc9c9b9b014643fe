package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"selfeval/internal/domain/auth"
	"selfeval/internal/platform/cache"
)

var noContent = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func send(ctx context.Context, h http.Handler, method, target, remote, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body)).WithContext(ctx)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitKeysByUserAcrossAddresses(t *testing.T) {
	h := RateLimit(cache.NewMemory(), 1, time.Minute)(noContent)
	ctx := WithUser(context.Background(), auth.Actor{Email: "jan@uni.edu"})

	if rec := send(ctx, h, http.MethodGet, "/api/v1/form/Publikacje", "198.51.100.11:2222", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("first request: %d", rec.Code)
	}
	if rec := send(ctx, h, http.MethodGet, "/api/v1/form/Publikacje", "198.51.100.12:3333", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected user budget to apply on a new address, got %d", rec.Code)
	}
}

func TestRateLimitAnonymousByIP(t *testing.T) {
	h := RateLimit(cache.NewMemory(), 1, time.Minute)(noContent)
	ctx := context.Background()

	send(ctx, h, http.MethodGet, "/api/v1/catalog/categories", "203.0.113.10:4444", "")
	if rec := send(ctx, h, http.MethodGet, "/api/v1/catalog/categories", "203.0.113.10:5555", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected same host to be throttled, got %d", rec.Code)
	}
	if rec := send(ctx, h, http.MethodGet, "/api/v1/catalog/categories", "203.0.113.99:5555", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected other host to pass, got %d", rec.Code)
	}
}

func TestRateLimitWindowResetAndHeaders(t *testing.T) {
	h := RateLimit(cache.NewMemory(), 1, 40*time.Millisecond)(noContent)
	ctx := context.Background()

	send(ctx, h, http.MethodGet, "/api/v1/me", "192.0.2.20:1111", "")
	rec := send(ctx, h, http.MethodGet, "/api/v1/me", "192.0.2.20:1111", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected throttled, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After of at least one second, got %q", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected remaining %q", rec.Header().Get("X-RateLimit-Remaining"))
	}

	time.Sleep(50 * time.Millisecond)
	if rec := send(ctx, h, http.MethodGet, "/api/v1/me", "192.0.2.20:1111", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass after window reset, got %d", rec.Code)
	}
}

func TestSensitiveLoginBudgetPerEmail(t *testing.T) {
	// base 4 gives logins a budget of 1
	h := SensitiveMutationRateLimit(cache.NewMemory(), 4, time.Minute)(noContent)
	ctx := context.Background()

	if rec := send(ctx, h, http.MethodPost, "/api/v1/auth/login", "192.0.2.1:1", `{"email":"A@uni.edu"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("first login: %d", rec.Code)
	}
	if rec := send(ctx, h, http.MethodPost, "/api/v1/auth/login", "192.0.2.2:1", `{"email":"a@uni.edu"}`); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected email budget to span addresses, got %d", rec.Code)
	}
}

func TestSensitiveMutationScopes(t *testing.T) {
	h := SensitiveMutationRateLimit(cache.NewMemory(), 4, time.Minute)(noContent)

	for i := 0; i < 6; i++ {
		if rec := send(context.Background(), h, http.MethodGet, "/api/v1/reports/library", "198.51.100.40:8888", ""); rec.Code != http.StatusNoContent {
			t.Fatalf("read request %d should bypass sensitive limits, got %d", i+1, rec.Code)
		}
	}

	ctx := WithUser(context.Background(), auth.Actor{Email: "dean@uni.edu", Roles: []string{auth.RoleDean}})
	targets := []string{
		"/api/v1/review/users/jan@uni.edu/responses/r1/status",
		"/api/v1/review/batch-approve",
		"/api/v1/users/jan@uni.edu/roles",
	}
	for i, target := range targets {
		rec := send(ctx, h, http.MethodPost, target, "198.51.100.41:9999", "")
		want := http.StatusNoContent
		if i == 2 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", target, want, rec.Code)
		}
	}
}

func TestScopeOfIgnoresUnlistedWrites(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/form/Publikacje/save", nil)
	if scopeOf(req) != scopeNone {
		t.Fatal("form saves are not sensitive")
	}
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/catalog/questions/q1", nil)
	if scopeOf(req) != scopePrivileged {
		t.Fatal("catalog deletes are privileged")
	}
}
