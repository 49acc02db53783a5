package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// SlidingWindowLimiter tracks request timestamps per client and rejects
// a client once its window is used up.
type SlidingWindowLimiter struct {
	mu     sync.Mutex
	seen   map[string][]time.Time
	limit  int
	window time.Duration
}

func NewSlidingWindowLimiter(limit int, window time.Duration) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		seen:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
	go l.sweep()
	return l
}

func (l *SlidingWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	kept := l.trim(l.seen[key], now)
	if len(kept) >= l.limit {
		l.seen[key] = kept
		return false
	}
	l.seen[key] = append(kept, now)
	return true
}

// trim drops timestamps that fell out of the window, reusing the slice.
func (l *SlidingWindowLimiter) trim(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// sweep evicts idle clients so the map does not grow without bound.
func (l *SlidingWindowLimiter) sweep() {
	tick := time.NewTicker(time.Minute)
	for range tick.C {
		l.mu.Lock()
		now := time.Now()
		for k, times := range l.seen {
			if kept := l.trim(times, now); len(kept) == 0 {
				delete(l.seen, k)
			} else {
				l.seen[k] = kept
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit throttles by client IP. The props board sits behind it, so
// the limit must leave room for a full dashboard poll cycle.
func RateLimit(l *SlidingWindowLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", strconv.Itoa(int(l.window/time.Second)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
