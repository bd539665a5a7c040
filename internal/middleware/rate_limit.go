package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "civic-reports/pkg/errors"
	"civic-reports/pkg/response"
)

// RateLimiter - ковзне вікно запитів на IP клієнта.
type RateLimiter struct {
	requests map[string][]time.Time
	mutex    sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	// Очищення старих записей кожні 5 хвилин
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-rl.stop:
				return
			}
		}
	}()

	return rl
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			response.Error(c, apperrors.ErrRateLimit)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(clientIP string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	valid := recent(rl.requests[clientIP], now.Add(-rl.window))
	if len(valid) >= rl.limit {
		rl.requests[clientIP] = valid
		return false
	}

	rl.requests[clientIP] = append(valid, now)
	return true
}

func recent(requests []time.Time, cutoff time.Time) []time.Time {
	var valid []time.Time
	for _, reqTime := range requests {
		if reqTime.After(cutoff) {
			valid = append(valid, reqTime)
		}
	}
	return valid
}

func (rl *RateLimiter) cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for ip, requests := range rl.requests {
		if valid := recent(requests, cutoff); len(valid) == 0 {
			delete(rl.requests, ip)
		} else {
			rl.requests[ip] = valid
		}
	}
}
