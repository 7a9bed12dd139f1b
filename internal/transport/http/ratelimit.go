package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter rate-limits WebSocket upgrades per client IP. A zero rps
// disables limiting entirely.
type ipLimiter struct {
	mu       sync.Mutex
	rps      float64
	limiters map[string]*ipLimiterEntry
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(rps float64) *ipLimiter {
	l := &ipLimiter{
		rps:      rps,
		limiters: make(map[string]*ipLimiterEntry),
	}
	if rps > 0 {
		go l.cleanup()
	}
	return l
}

func (l *ipLimiter) allow(ip string) bool {
	if l.rps <= 0 {
		return true
	}

	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		// Fractional rates must still admit at least one connection.
		burst := int(l.rps) * 2
		if burst < 1 {
			burst = 1
		}
		entry = &ipLimiterEntry{
			limiter: rate.NewLimiter(rate.Limit(l.rps), burst),
		}
		l.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

func (l *ipLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for ip, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}
