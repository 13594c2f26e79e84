package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCooldown(t *testing.T, maxClients int) (*Cooldown, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c, err := NewCooldown(5*time.Second, maxClients, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewCooldown: %v", err)
	}
	return c, clock
}

func TestAllow_FirstRequest(t *testing.T) {
	c, _ := newTestCooldown(t, 0)
	if !c.Allow("1.2.3.4") {
		t.Error("first request should be allowed")
	}
}

func TestAllow_WithinWindow(t *testing.T) {
	c, clock := newTestCooldown(t, 0)
	c.Allow("1.2.3.4")

	clock.Advance(4 * time.Second)
	if c.Allow("1.2.3.4") {
		t.Error("request 4s after previous should be rejected")
	}
}

func TestAllow_ExactlyAtWindowIsRejected(t *testing.T) {
	c, clock := newTestCooldown(t, 0)
	c.Allow("1.2.3.4")

	clock.Advance(5 * time.Second)
	if c.Allow("1.2.3.4") {
		t.Error("request exactly at the window boundary should be rejected")
	}
}

func TestAllow_AfterWindow(t *testing.T) {
	c, clock := newTestCooldown(t, 0)
	c.Allow("1.2.3.4")

	clock.Advance(6 * time.Second)
	if !c.Allow("1.2.3.4") {
		t.Error("request 6s after previous should be allowed")
	}
}

func TestAllow_RejectionDoesNotResetClock(t *testing.T) {
	c, clock := newTestCooldown(t, 0)
	c.Allow("k") // t=0

	clock.Advance(3 * time.Second)
	if c.Allow("k") {
		t.Fatal("t=3s should be rejected")
	}
	clock.Advance(3 * time.Second) // t=6s, 6s since last accepted
	if !c.Allow("k") {
		t.Error("t=6s should be allowed; rejected attempts must not extend the cooldown")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	c, _ := newTestCooldown(t, 0)
	if !c.Allow("a") || !c.Allow("b") {
		t.Fatal("distinct clients should both be allowed")
	}
	if c.Allow("a") {
		t.Error("a should be in cooldown")
	}
}

func TestAllow_BoundedCapacity(t *testing.T) {
	c, _ := newTestCooldown(t, 3)
	for i := 0; i < 10; i++ {
		c.Allow(fmt.Sprintf("client-%d", i))
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	// The oldest key was evicted and is treated as a new client.
	if !c.Allow("client-0") {
		t.Error("evicted client should be allowed")
	}
}

func TestAllow_ConcurrentSameKey(t *testing.T) {
	c, _ := newTestCooldown(t, 0)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Allow("same") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 1 {
		t.Errorf("allowed %d concurrent requests, want exactly 1", got)
	}
}

func TestNewCooldown_Defaults(t *testing.T) {
	c, err := NewCooldown(0, 0)
	if err != nil {
		t.Fatalf("NewCooldown: %v", err)
	}
	if c.Window() != DefaultWindow {
		t.Errorf("Window = %v, want %v", c.Window(), DefaultWindow)
	}
}
