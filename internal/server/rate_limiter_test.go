package server

import (
	"fmt"
	"testing"
	"time"
)

func TestRateLimiterEnforcesWindowBudget(t *testing.T) {
	limiter := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("fourth request in the window should be rejected")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("budgets are per key")
	}
	if limiter.Allow("") {
		t.Fatal("empty keys never pass")
	}
}

func TestRateLimiterPrunesLapsedWindows(t *testing.T) {
	limiter := newRateLimiter(1, time.Minute)

	stale := time.Now().UTC().Add(-2 * time.Minute)
	for i := 0; i < pruneThreshold+1; i++ {
		limiter.items[fmt.Sprintf("10.0.%d.%d", i/256, i%256)] = &rateLimitEntry{
			windowStart: stale,
			count:       1,
		}
	}

	if !limiter.Allow("10.1.0.1") {
		t.Fatal("fresh key should pass")
	}
	if len(limiter.items) != 1 {
		t.Fatalf("expected lapsed entries pruned, %d remain", len(limiter.items))
	}
}
