package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// SlidingWindowLimiter counts requests per key over a rolling window. Keys
// are client IPs for anonymous routes and user ids for authed ones.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	history map[string][]time.Time
	limit   int
	window  time.Duration
}

func NewSlidingWindowLimiter(limit int, window time.Duration) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		history: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
	}
	go l.evictLoop()
	return l
}

func (l *SlidingWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	kept := l.prune(l.history[key], now.Add(-l.window))
	if len(kept) >= l.limit {
		l.history[key] = kept
		return false
	}
	l.history[key] = append(kept, now)
	return true
}

func (l *SlidingWindowLimiter) prune(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

func (l *SlidingWindowLimiter) evictLoop() {
	tick := time.NewTicker(time.Minute)
	for range tick.C {
		l.mu.Lock()
		cutoff := time.Now().Add(-l.window)
		for k, times := range l.history {
			kept := l.prune(times, cutoff)
			if len(kept) == 0 {
				delete(l.history, k)
			} else {
				l.history[k] = kept
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit limits by client IP. Applied globally.
func RateLimit(limiter *SlidingWindowLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// RateLimitByUser limits by signed-in user. Used on the location ping route,
// where a misbehaving client can flood GPS updates. Must run after
// AuthRequired.
func RateLimitByUser(limiter *SlidingWindowLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !limiter.Allow(fmt.Sprintf("user:%d", userID)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many location updates"})
			return
		}
		c.Next()
	}
}
