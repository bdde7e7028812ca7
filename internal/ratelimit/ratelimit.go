// Package ratelimit provides in-memory admission control per (user, action)
// pair over a fixed 60-second window.
//
// The window is evaluated against a rigid time bucket: requests admitted
// near the end of one window do not count against the next, so bursts at a
// window boundary can admit up to twice the nominal rate. This is known,
// intentional behavior, not a bug.
package ratelimit

import (
	"sync"
	"time"

	"relaybot/internal/engine"
)

// Window is the fixed admission window.
const Window = 60 * time.Second

// Per-action admission limits per window. Actions without an entry fall
// back to DefaultLimit.
var actionLimits = map[string]int{
	"message": 30,
	"command": 10,
	"export":  2,
}

// DefaultLimit applies to actions with no explicit limit.
const DefaultLimit = 10

// Limiter bounds request rate per (user, action). The zero value is not
// usable; construct with New. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]int64 // "userID:action" -> request times, ms since epoch, ascending
	clock   engine.Clock
}

// New creates a Limiter reading time from clock.
func New(clock engine.Clock) *Limiter {
	return &Limiter{
		windows: make(map[string][]int64),
		clock:   clock,
	}
}

// IsAllowed reports whether a request by userID for action is admitted.
// Entries older than the window are purged lazily on each check. When the
// request is admitted its timestamp is recorded; denied requests are not
// recorded and do not extend the window.
func (l *Limiter) IsAllowed(userID, action string) bool {
	limit, ok := actionLimits[action]
	if !ok {
		limit = DefaultLimit
	}

	now := l.clock.Now().UnixMilli()
	cutoff := now - Window.Milliseconds()
	key := userID + ":" + action

	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.windows[key]

	// Timestamps are appended in order, so the live suffix starts at the
	// first entry past the cutoff.
	start := 0
	for start < len(window) && window[start] <= cutoff {
		start++
	}
	window = window[start:]

	if len(window) >= limit {
		l.windows[key] = window
		return false
	}

	l.windows[key] = append(window, now)
	return true
}

// Cleanup removes window entries that have fully expired so the map does
// not grow without bound. Safe to run concurrently with IsAllowed.
func (l *Limiter) Cleanup() {
	cutoff := l.clock.Now().UnixMilli() - Window.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, window := range l.windows {
		i := len(window)
		for i > 0 && window[i-1] <= cutoff {
			i--
		}
		if i == 0 {
			delete(l.windows, key)
		}
	}
}

// Size returns the number of tracked (user, action) windows.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
