package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestMemoryExpiresEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err := m.Get(ctx, "k"); err != nil || string(got) != "v" {
		t.Fatalf("expected hit, got %q err=%v", got, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}

func TestJSONHelpersAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	type view struct {
		Count int `json:"count"`
	}
	if err := SetJSON(ctx, m, "v", view{Count: 3}, 0); err != nil {
		t.Fatalf("set json: %v", err)
	}
	var got view
	if err := GetJSON(ctx, m, "v", &got); err != nil || got.Count != 3 {
		t.Fatalf("unexpected %+v err=%v", got, err)
	}
	if err := m.Delete(ctx, "v", "other"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := GetJSON(ctx, m, "v", &got); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	r := NewRedis(addr, "", 0)
	t.Cleanup(func() { _ = r.Close() })

	if err := r.Set(ctx, "test:key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := r.Get(ctx, "test:key")
	if err != nil || string(got) != "value" {
		t.Fatalf("unexpected %q err=%v", got, err)
	}
	if err := r.Delete(ctx, "test:key"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.Get(ctx, "test:key"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCounterWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		n, left, err := m.Incr(ctx, "rl:a", time.Minute)
		if err != nil || n != want {
			t.Fatalf("incr %d: got %d err=%v", want, n, err)
		}
		if left != time.Minute {
			t.Fatalf("expected full window left, got %s", left)
		}
	}

	now = now.Add(61 * time.Second)
	n, _, _ := m.Incr(ctx, "rl:a", time.Minute)
	if n != 1 {
		t.Fatalf("expected counter reset after window, got %d", n)
	}
	if n, _, _ := m.Incr(ctx, "rl:b", time.Minute); n != 1 {
		t.Fatalf("keys must count independently, got %d", n)
	}
}

func TestMemoryCounterDropsExpiredWindows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for _, key := range []string{"rl:ip:1", "rl:ip:2", "rl:email:a"} {
		m.Incr(ctx, key, time.Minute)
	}
	now = now.Add(2 * time.Minute)
	m.Incr(ctx, "rl:ip:3", time.Minute)

	if len(m.counters) != 1 {
		t.Fatalf("expected expired windows to be dropped, %d counters left", len(m.counters))
	}
}

func TestRedisCounter(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	r := NewRedis(addr, "", 0)
	t.Cleanup(func() { _ = r.Delete(ctx, "test:counter"); _ = r.Close() })

	first, left, err := r.Incr(ctx, "test:counter", time.Minute)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	second, _, err := r.Incr(ctx, "test:counter", time.Minute)
	if err != nil || second != first+1 {
		t.Fatalf("expected %d, got %d err=%v", first+1, second, err)
	}
	if left <= 0 || left > time.Minute {
		t.Fatalf("unexpected window %s", left)
	}
}
