// Package ratelimit bounds request throughput per (route, client) key using
// a sliding time window, with bounded memory for the tracked key set.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// maxKeys caps the number of distinct keys tracked.
	maxKeys = 10_000
	// sweepInterval is the minimum time between full sweeps.
	sweepInterval = time.Minute
	// sweepCeiling is the idle age beyond which a key is dropped by a sweep.
	// Generously above any window in use, so live windows are never cut short.
	sweepCeiling = 5 * time.Minute
)

// Info contains rate limit state for populating responses and headers.
type Info struct {
	Limit      int           // Maximum requests per window
	Remaining  int           // Requests left in the current window
	RetryAfter time.Duration // How long to wait (meaningful only when denied)
}

// Limiter is a sliding-window rate limiter. Each key's window is
// independent; no ordering is guaranteed across keys. Safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		hits: make(map[string][]time.Time),
		now:  time.Now,
	}
}

// Allow checks whether a request identified by key fits within max requests
// per window. An allowed request is recorded; a rejected one is not, so
// rejected attempts do not extend the window.
func (l *Limiter) Allow(key string, max int, window time.Duration) (bool, Info) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	if len(l.hits) >= maxKeys {
		if _, tracked := l.hits[key]; !tracked {
			l.evictOldest()
		}
	}

	cutoff := now.Add(-window)
	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.hits[key] = kept

	if len(kept) >= max {
		return false, Info{Limit: max, Remaining: 0, RetryAfter: window}
	}

	l.hits[key] = append(kept, now)
	return true, Info{Limit: max, Remaining: max - len(kept) - 1}
}

// Len reports the number of keys currently tracked, for tests.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// sweep removes keys whose most recent request is older than the ceiling.
// Runs at most once per sweepInterval. Caller must hold the lock.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now

	cutoff := now.Add(-sweepCeiling)
	for key, times := range l.hits {
		if len(times) == 0 || times[len(times)-1].Before(cutoff) {
			delete(l.hits, key)
		}
	}
}

// evictOldest removes the single least-recently-active key.
// Caller must hold the lock.
func (l *Limiter) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, times := range l.hits {
		var last time.Time
		if len(times) > 0 {
			last = times[len(times)-1]
		}
		if first || last.Before(oldest) {
			first = false
			oldest = last
			oldestKey = key
		}
	}
	if !first {
		delete(l.hits, oldestKey)
	}
}
