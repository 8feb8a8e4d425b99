package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"
)

// tokenBucket refills at rate tokens per second up to burst.
type tokenBucket struct {
	tokens     float64
	burst      float64
	rate       float64
	lastRefill time.Time
}

func (b *tokenBucket) allow(now time.Time) bool {
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.rate
	b.lastRefill = now
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// RateLimiter throttles transaction submissions per client address.
type RateLimiter struct {
	rate        float64
	burst       float64
	idleTimeout time.Duration
	now         func() time.Time

	clients map[string]*tokenBucket
	mu      sync.Mutex
}

// NewRateLimiter allows each client rate submissions per second with bursts
// of up to burst.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:        rate,
		burst:       float64(burst),
		idleTimeout: 10 * time.Minute,
		now:         time.Now,
		clients:     make(map[string]*tokenBucket),
	}
}

// Allow reports whether client may submit now.
func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.clients[client]
	if !ok {
		b = &tokenBucket{tokens: l.burst, burst: l.burst, rate: l.rate, lastRefill: now}
		l.clients[client] = b
	}
	return b.allow(now)
}

// Clients returns the number of tracked clients.
func (l *RateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Run drops idle clients periodically until ctx is cancelled.
func (l *RateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *RateLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for client, b := range l.clients {
		if now.Sub(b.lastRefill) > l.idleTimeout {
			delete(l.clients, client)
		}
	}
}

func (l *RateLimiter) limit(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientAddr(r)) {
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		h.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
