package client

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func waitForTick(t *testing.T, ticks <-chan time.Duration, want time.Duration, tolerance time.Duration) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-ticks:
			if got >= want-tolerance && got <= want+tolerance {
				return
			}
		case <-deadline:
			t.Fatalf("no tick near %v observed", want)
		}
	}
}

func TestCountdownRemainingTracksAuthoritativeStart(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_000_000)}
	cd := newCountdown(time.Millisecond, clock.Now)

	startAt := clock.Now().Add(5 * time.Second)
	ticks := make(chan time.Duration, 256)
	fired := make(chan struct{}, 1)

	cd.Schedule(startAt, func(remaining time.Duration) {
		select {
		case ticks <- remaining:
		default:
		}
	}, func() { fired <- struct{}{} })

	waitForTick(t, ticks, 5*time.Second, 0)

	// The remaining time is derived from startAt, not from elapsed time
	// since receipt: at now+4000 it must read 1000.
	clock.Advance(4 * time.Second)
	waitForTick(t, ticks, time.Second, 0)

	select {
	case <-fired:
		t.Fatal("countdown fired before the start instant")
	default:
	}

	clock.Advance(time.Second)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not fire at the start instant")
	}
}

func TestCountdownFiresExactlyOnce(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_000_000)}
	cd := newCountdown(time.Millisecond, clock.Now)

	var fires atomic.Int32
	done := make(chan struct{})
	cd.Schedule(clock.Now().Add(10*time.Millisecond), nil, func() {
		fires.Add(1)
		close(done)
	})

	clock.Advance(time.Minute)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not fire")
	}

	time.Sleep(20 * time.Millisecond)
	if got := fires.Load(); got != 1 {
		t.Fatalf("fired %d times, want exactly 1", got)
	}
	if cd.Active() {
		t.Error("countdown should be idle after firing")
	}
}

func TestCountdownNewStartSupersedesInFlight(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_000_000)}
	cd := newCountdown(time.Millisecond, clock.Now)

	var firstFires, secondFires atomic.Int32
	cd.Schedule(clock.Now().Add(50*time.Millisecond), nil, func() { firstFires.Add(1) })

	done := make(chan struct{})
	cd.Schedule(clock.Now().Add(100*time.Millisecond), nil, func() {
		secondFires.Add(1)
		close(done)
	})

	// Pass both start instants; only the superseding schedule may fire.
	clock.Advance(time.Second)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("superseding countdown did not fire")
	}

	time.Sleep(20 * time.Millisecond)
	if got := firstFires.Load(); got != 0 {
		t.Errorf("superseded countdown fired %d times, want 0", got)
	}
	if got := secondFires.Load(); got != 1 {
		t.Errorf("superseding countdown fired %d times, want 1", got)
	}
}

func TestCountdownCancel(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_000_000)}
	cd := newCountdown(time.Millisecond, clock.Now)

	var fires atomic.Int32
	cd.Schedule(clock.Now().Add(10*time.Millisecond), nil, func() { fires.Add(1) })

	cd.Cancel()
	if cd.Active() {
		t.Error("Cancel should leave the countdown idle")
	}

	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	if got := fires.Load(); got != 0 {
		t.Errorf("cancelled countdown fired %d times", got)
	}
}

func TestCountdownElapsedStartFiresImmediately(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_000_000)}
	cd := newCountdown(time.Millisecond, clock.Now)

	done := make(chan struct{})
	cd.Schedule(clock.Now().Add(-time.Second), nil, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown with an elapsed start instant did not fire")
	}
}
