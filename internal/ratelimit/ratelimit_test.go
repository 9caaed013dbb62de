package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBucketKey(t *testing.T) {
	k1 := BucketKey("widget_demo", "203.0.113.9")
	k2 := BucketKey("widget_demo", "203.0.113.9")
	k3 := BucketKey("other", "203.0.113.9")

	if k1 != k2 {
		t.Fatalf("key must be deterministic: %q vs %q", k1, k2)
	}
	if k1 == k3 {
		t.Fatalf("namespaces must not collide")
	}
	if !strings.HasPrefix(k1, "rl:") {
		t.Fatalf("expected rl: prefix, got %q", k1)
	}
	if len(k1) != len("rl:")+32 {
		t.Fatalf("unexpected key length %d", len(k1))
	}
}

func TestClientIdentity(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/public/widget/demo", nil)
	r.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	if got := ClientIdentity(r); got != "203.0.113.9" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}

	r = httptest.NewRequest(http.MethodPost, "/public/widget/demo", nil)
	r.Header.Set("X-Real-IP", "198.51.100.7")
	if got := ClientIdentity(r); got != "198.51.100.7" {
		t.Fatalf("expected real ip fallback, got %q", got)
	}

	r = httptest.NewRequest(http.MethodPost, "/public/widget/demo", nil)
	if got := ClientIdentity(r); got != "unknown" {
		t.Fatalf("expected sentinel, got %q", got)
	}
}

func TestMemoryStore_EnforcesLimit(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewMemoryStore()
	s.clock = func() time.Time { return now }
	ctx := context.Background()

	const limit = 30
	for i := 1; i <= limit; i++ {
		res, err := s.Check(ctx, "widget_demo", "203.0.113.9", limit, time.Minute)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if res.Remaining != limit-i {
			t.Fatalf("request %d: remaining %d, want %d", i, res.Remaining, limit-i)
		}
	}

	res, err := s.Check(ctx, "widget_demo", "203.0.113.9", limit, time.Minute)
	if err != nil {
		t.Fatalf("check over limit: %v", err)
	}
	if res.Allowed {
		t.Fatalf("request %d should be denied", limit+1)
	}
	if res.RetryAfterSeconds < 1 {
		t.Fatalf("retry-after must be at least 1, got %d", res.RetryAfterSeconds)
	}

	// Other identities are unaffected.
	other, err := s.Check(ctx, "widget_demo", "198.51.100.7", limit, time.Minute)
	if err != nil || !other.Allowed {
		t.Fatalf("independent identity should be allowed: %+v err=%v", other, err)
	}
}

func TestMemoryStore_WindowResetsToOne(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewMemoryStore()
	s.clock = func() time.Time { return now }
	ctx := context.Background()

	const limit = 3
	for i := 0; i < limit+5; i++ {
		_, _ = s.Check(ctx, "ns", "id", limit, time.Minute)
	}

	now = now.Add(time.Minute)
	res, err := s.Check(ctx, "ns", "id", limit, time.Minute)
	if err != nil {
		t.Fatalf("check after reset: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("first request of new window should be allowed")
	}
	// Reset lands on count=1, not 0: the request itself is counted.
	if res.Remaining != limit-1 {
		t.Fatalf("remaining %d, want %d", res.Remaining, limit-1)
	}
}

func TestMemoryStore_RejectsInvalidArguments(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Check(ctx, "ns", "id", 0, time.Minute); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := s.Check(ctx, "ns", "id", -1, time.Minute); err == nil {
		t.Fatalf("expected error for negative limit")
	}
	if _, err := s.Check(ctx, "ns", "id", 10, 0); err == nil {
		t.Fatalf("expected error for zero window")
	}
}

func TestMemoryStore_DeniedRequestsDoNotExtendWindow(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewMemoryStore()
	s.clock = func() time.Time { return now }
	ctx := context.Background()

	const limit = 2
	resetAt := time.Time{}
	for i := 0; i < limit; i++ {
		res, _ := s.Check(ctx, "ns", "id", limit, time.Minute)
		resetAt = res.ResetAt
	}

	// A sustained flood past the limit must not move the reset point.
	for i := 0; i < 100; i++ {
		res, _ := s.Check(ctx, "ns", "id", limit, time.Minute)
		if res.Allowed {
			t.Fatalf("flood request %d should be denied", i)
		}
		if !res.ResetAt.Equal(resetAt) {
			t.Fatalf("reset point moved: %v vs %v", res.ResetAt, resetAt)
		}
	}
}
