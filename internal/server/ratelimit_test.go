package server

import (
	"fmt"
	"testing"
	"time"
)

func TestClientLimiterPerClientBuckets(t *testing.T) {
	c := newClientLimiter(0.01, 1)

	if !c.Allow("a") {
		t.Fatal("first request from a must pass")
	}
	if c.Allow("a") {
		t.Fatal("second request from a must be limited")
	}
	if !c.Allow("b") {
		t.Fatal("a's bucket must not affect b")
	}
}

func TestClientLimiterSweepDropsIdleOnly(t *testing.T) {
	c := newClientLimiter(1, 1)
	c.Allow("idle")
	c.Allow("fresh")

	c.mu.Lock()
	c.clients["idle"].lastSeen = time.Now().Add(-2 * limiterIdleTTL)
	c.sweep(time.Now())
	remaining := len(c.clients)
	_, freshKept := c.clients["fresh"]
	c.mu.Unlock()

	if remaining != 1 || !freshKept {
		t.Errorf("sweep must drop only idle entries, kept %d", remaining)
	}
}

func TestClientLimiterBoundsGrowth(t *testing.T) {
	c := newClientLimiter(1, 1)
	for i := 0; i < limiterSweepLen; i++ {
		c.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}

	c.mu.Lock()
	for _, e := range c.clients {
		e.lastSeen = time.Now().Add(-2 * limiterIdleTTL)
	}
	c.mu.Unlock()

	c.Allow("newcomer")

	c.mu.Lock()
	size := len(c.clients)
	c.mu.Unlock()
	if size != 1 {
		t.Errorf("insert at capacity must sweep idle entries, map has %d", size)
	}
}
