package middleware

import (
	"sync"
	"time"
)

type clientInfo struct {
	start time.Time
	count int
}

// memoryLimiter is a per-process fixed-window counter, used when Redis is
// not configured.
type memoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	clients map[string]*clientInfo
}

func newMemoryLimiter(window time.Duration) *memoryLimiter {
	return &memoryLimiter{window: window, clients: make(map[string]*clientInfo)}
}

// incr counts a request for ident and returns the count in the current window.
func (l *memoryLimiter) incr(ident string, now time.Time) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	ci, ok := l.clients[ident]
	if !ok || now.Sub(ci.start) > l.window {
		if len(l.clients) > 10000 {
			l.sweep(now)
		}
		l.clients[ident] = &clientInfo{start: now, count: 1}
		return 1
	}
	ci.count++
	return int64(ci.count)
}

func (l *memoryLimiter) sweep(now time.Time) {
	for k, ci := range l.clients {
		if now.Sub(ci.start) > l.window {
			delete(l.clients, k)
		}
	}
}
