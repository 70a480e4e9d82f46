package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a minimum interval between requests to the same host.
type Limiter struct {
	mu          sync.Mutex
	hosts       map[string]time.Time
	minInterval time.Duration
}

// New creates a limiter with the given minimum interval between
// requests per host.
func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		hosts:       make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow reports whether a request to host may proceed now. When it may,
// the host's timestamp is updated; when it may not, the timestamp is
// left alone so the original interval still applies.
func (l *Limiter) Allow(host string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	last, seen := l.hosts[host]
	if seen && now.Sub(last) < l.minInterval {
		return false
	}

	l.hosts[host] = now
	return true
}

// Wait blocks until a request to host is allowed, then claims the slot.
func (l *Limiter) Wait(host string) {
	l.mu.Lock()
	now := time.Now()
	last, seen := l.hosts[host]

	var delay time.Duration
	if seen {
		if elapsed := now.Sub(last); elapsed < l.minInterval {
			delay = l.minInterval - elapsed
		}
	}
	l.hosts[host] = now.Add(delay)
	l.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
}

// Reset clears the recorded timestamp for a host.
func (l *Limiter) Reset(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hosts, host)
}

// ResetAll clears all recorded timestamps.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hosts = make(map[string]time.Time)
}
