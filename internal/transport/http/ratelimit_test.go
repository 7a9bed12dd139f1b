package http

import "testing"

func TestIPLimiterAllow(t *testing.T) {
	l := newIPLimiter(10)

	if !l.allow("1.2.3.4") {
		t.Error("first request should be allowed")
	}
	if !l.allow("5.6.7.8") {
		t.Error("different IP should be allowed")
	}
}

func TestIPLimiterBurst(t *testing.T) {
	l := newIPLimiter(5) // burst = 10

	allowed := 0
	for i := 0; i < 20; i++ {
		if l.allow("10.0.0.1") {
			allowed++
		}
	}

	if allowed < 5 {
		t.Errorf("expected at least 5 allowed in burst, got %d", allowed)
	}
	if allowed >= 20 {
		t.Error("limiter should have blocked some requests")
	}
}

func TestIPLimiterFractionalRate(t *testing.T) {
	l := newIPLimiter(0.5)

	if !l.allow("1.2.3.4") {
		t.Error("a sub-1 rate must still admit the first connection")
	}
}

func TestIPLimiterDisabled(t *testing.T) {
	l := newIPLimiter(0)

	for i := 0; i < 100; i++ {
		if !l.allow("10.0.0.1") {
			t.Fatal("disabled limiter must allow everything")
		}
	}
}
