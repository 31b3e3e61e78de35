// Package ratelimit provides an in-memory token-bucket limiter keyed by
// client, used by the optional per-IP rate-limit middleware.
package ratelimit

import (
	"sync"
	"time"
)

// Bucket is a single token bucket.
type Bucket struct {
	mu         sync.Mutex
	rate       float64 // tokens refilled per second
	burst      float64 // maximum capacity
	tokens     float64
	lastRefill time.Time
}

// NewBucket creates a Bucket allowing ratePerSecond requests/s with the
// given burst capacity. A burst <= 0 defaults to ratePerSecond.
func NewBucket(ratePerSecond, burst float64) *Bucket {
	if burst <= 0 {
		burst = ratePerSecond
	}
	return &Bucket{
		rate:       ratePerSecond,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token and reports whether the request is permitted.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens--
		return true
	}
	return false
}

// PerClient maintains one Bucket per client key, all sharing the same
// rate and burst.
type PerClient struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket
	rate    float64
	burst   float64
}

// NewPerClient creates an empty per-key limiter set.
func NewPerClient(ratePerSecond, burst float64) *PerClient {
	return &PerClient{
		buckets: make(map[string]*Bucket),
		rate:    ratePerSecond,
		burst:   burst,
	}
}

// Allow checks the bucket for key, creating it on first use.
func (p *PerClient) Allow(key string) bool {
	p.mu.RLock()
	b, ok := p.buckets[key]
	p.mu.RUnlock()
	if ok {
		return b.Allow()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok = p.buckets[key]; ok {
		return b.Allow()
	}
	b = NewBucket(p.rate, p.burst)
	p.buckets[key] = b
	return b.Allow()
}
