package auth

import (
	"sync"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultBlockWindow = 15 * time.Minute
)

// Guard counts failed admin attempts per IP in memory.
type Guard struct {
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	failures    map[string][]time.Time
	now         func() time.Time
}

// NewGuard blocks an IP after maxAttempts failures within window.
func NewGuard(maxAttempts int, window time.Duration) *Guard {
	return &Guard{
		maxAttempts: maxAttempts,
		window:      window,
		failures:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Fail records a failed attempt for ip.
func (g *Guard) Fail(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[ip] = append(g.recent(ip), g.now())
}

// Reset forgets ip's failures after a success.
func (g *Guard) Reset(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.failures, ip)
}

// Blocked returns true if ip has exceeded maxAttempts failures in the window.
func (g *Guard) Blocked(ip string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	recent := g.recent(ip)
	if len(recent) == 0 {
		delete(g.failures, ip)
		return false
	}
	g.failures[ip] = recent
	return len(recent) >= g.maxAttempts
}

// recent drops failures older than the window. Caller holds mu.
func (g *Guard) recent(ip string) []time.Time {
	cutoff := g.now().Add(-g.window)
	kept := g.failures[ip][:0]
	for _, t := range g.failures[ip] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
