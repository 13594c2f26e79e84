// Package ratelimit enforces a minimum interval between accepted requests
// from the same client.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Defaults applied when a Cooldown is built with zero values.
const (
	DefaultWindow     = 5 * time.Second
	DefaultMaxClients = 10000
)

// Cooldown tracks the last accepted request time per client key. A request is
// allowed only when strictly more than Window has passed since the previous
// accepted request for the same key. Rejected requests do not reset the clock.
//
// Keys are held in a bounded LRU so a flood of distinct clients cannot grow
// memory without limit; an evicted client is simply treated as new.
type Cooldown struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last *lru.Cache[string, time.Time]
}

// Option configures a Cooldown.
type Option func(*Cooldown)

// WithClock replaces the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cooldown) { c.now = now }
}

// NewCooldown creates a limiter with the given window and client capacity.
func NewCooldown(window time.Duration, maxClients int, opts ...Option) (*Cooldown, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	cache, err := lru.New[string, time.Time](maxClients)
	if err != nil {
		return nil, fmt.Errorf("create cooldown cache: %w", err)
	}
	c := &Cooldown{window: window, now: time.Now, last: cache}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Window returns the configured cooldown interval.
func (c *Cooldown) Window() time.Duration {
	return c.window
}

// Allow reports whether a request from key may proceed, and records it as
// accepted if so.
func (c *Cooldown) Allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if prev, ok := c.last.Get(key); ok && now.Sub(prev) <= c.window {
		return false
	}
	c.last.Add(key, now)
	return true
}

// Len returns the number of tracked clients.
func (c *Cooldown) Len() int {
	return c.last.Len()
}
