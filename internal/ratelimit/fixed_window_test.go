package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	limiter, err := NewFixedWindowLimiter(mr.Addr(), "", "", limit, window)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	return limiter, mr
}

func TestAllowWithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)
	for i := 0; i < 3; i++ {
		if !limiter.Allow("owner-1") {
			t.Fatalf("request %d should be within quota", i+1)
		}
	}
	if limiter.Allow("owner-1") {
		t.Fatalf("request over the limit should be denied")
	}
}

func TestAllowSeparateKeys(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	if !limiter.Allow("owner-1") {
		t.Fatalf("first key should be allowed")
	}
	if !limiter.Allow("owner-2") {
		t.Fatalf("quota must be tracked per key")
	}
	if limiter.Allow("owner-1") {
		t.Fatalf("first key exhausted its quota")
	}
}

func TestAllowFailsClosedOnRedisOutage(t *testing.T) {
	limiter, mr := newTestLimiter(t, 10, time.Minute)
	mr.Close()
	if limiter.Allow("owner-1") {
		t.Fatalf("limiter must deny when redis is unreachable")
	}
}

func TestAllowBlankKeyBuckets(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	if !limiter.Allow("") {
		t.Fatalf("blank key gets the shared bucket's first slot")
	}
	if limiter.Allow("   ") {
		t.Fatalf("blank keys share one bucket")
	}
}

func TestNewFixedWindowLimiterValidation(t *testing.T) {
	if _, err := NewFixedWindowLimiter("127.0.0.1:6379", "", "", 0, time.Minute); err == nil {
		t.Fatalf("expected an error for a non-positive limit")
	}
	if _, err := NewFixedWindowLimiter("127.0.0.1:6379", "", "", 5, 0); err == nil {
		t.Fatalf("expected an error for a non-positive window")
	}
	if _, err := NewFixedWindowLimiter("", "", "", 5, time.Minute); err == nil {
		t.Fatalf("expected an error for a missing address")
	}
}
