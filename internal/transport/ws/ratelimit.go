package ws

import (
	"sync"
	"time"
)

// quotas per event type, events per sliding minute. Events without a
// quota are unlimited.
var quotas = map[string]int{
	EvtJoin:          5,
	EvtStartGame:     3,
	EvtDrawCard:      30,
	EvtApproveAnswer: 60,
}

const quotaWindow = time.Minute

// rateLimiter is a per-connection sliding-window counter. Entries for a
// closed connection are released via Forget.
type rateLimiter struct {
	mu      sync.Mutex
	history map[string][]time.Time // connID+event -> recent timestamps
	now     func() time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records one occurrence of event on connID and reports whether
// it stays within the event's quota.
func (l *rateLimiter) Allow(connID, event string) bool {
	limit, ok := quotas[event]
	if !ok {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := connID + ":" + event
	cutoff := l.now().Add(-quotaWindow)

	recent := l.history[key][:0]
	for _, t := range l.history[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= limit {
		l.history[key] = recent
		return false
	}
	l.history[key] = append(recent, l.now())
	return true
}

// Forget drops all counters for a connection.
func (l *rateLimiter) Forget(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	prefix := connID + ":"
	for key := range l.history {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(l.history, key)
		}
	}
}
