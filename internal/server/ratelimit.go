package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRatePerSecond = 10
	defaultRateBurst     = 20

	// limiterIdleTTL is how long a client may stay silent before its
	// bucket is eligible for eviction.
	limiterIdleTTL = 10 * time.Minute

	// limiterSweepLen triggers an idle sweep when a new client would grow
	// the map past this size, bounding memory to recently active clients.
	limiterSweepLen = 1024
)

type clientEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// clientLimiter holds one token bucket per client address. Idle entries
// are swept so the map does not grow with every address ever seen.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientEntry
	rps     rate.Limit
	burst   int
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if rps <= 0 {
		rps = defaultRatePerSecond
	}
	if burst <= 0 {
		burst = defaultRateBurst
	}
	return &clientLimiter{
		clients: make(map[string]*clientEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether the client may make another request now.
func (c *clientLimiter) Allow(client string) bool {
	now := time.Now()

	c.mu.Lock()
	e, ok := c.clients[client]
	if !ok {
		if len(c.clients) >= limiterSweepLen {
			c.sweep(now)
		}
		e = &clientEntry{lim: rate.NewLimiter(c.rps, c.burst)}
		c.clients[client] = e
	}
	e.lastSeen = now
	c.mu.Unlock()

	return e.lim.Allow()
}

// sweep drops entries idle past the TTL. Caller must hold the mutex.
func (c *clientLimiter) sweep(now time.Time) {
	for addr, e := range c.clients {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(c.clients, addr)
		}
	}
}
