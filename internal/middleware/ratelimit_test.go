package middleware

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	if !rl.Allow("alice") || !rl.Allow("alice") {
		t.Fatal("first two requests must pass")
	}
	if rl.Allow("alice") {
		t.Fatal("third request must be limited")
	}
	if !rl.Allow("bob") {
		t.Fatal("limit is per key")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("alice") {
		t.Fatal("first request must pass")
	}
	now = now.Add(30 * time.Second)
	if rl.Allow("alice") {
		t.Fatal("request inside window must be limited")
	}
	now = now.Add(31 * time.Second)
	if !rl.Allow("alice") {
		t.Fatal("request after window must pass")
	}
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	defer rl.Close()

	if err := rl.Wait(context.Background(), "alice"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx, "alice"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want DeadlineExceeded, got %v", err)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	defer rl.Close()

	for i := 0; i < 100; i++ {
		if !rl.Allow("alice") {
			t.Fatal("limit 0 must disable limiting")
		}
	}
}
