package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig defines the configuration for rate limiting
type RateLimitConfig struct {
	// Requests is the maximum number of requests allowed within the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
	// KeyFunc returns the bucket a request counts against (defaults to CallerKey)
	KeyFunc func(c echo.Context) string
	Message string
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// RateLimiter is a fixed window limiter keyed per caller
type RateLimiter struct {
	config RateLimitConfig
	store  map[string]*rateLimitEntry
	mu     sync.Mutex
	now    func() time.Time
}

// CallerKey buckets authenticated requests by email and the rest by address
func CallerKey(c echo.Context) string {
	if caller := GetCaller(c); caller.Email != "" {
		return "caller:" + caller.Email
	}
	return "ip:" + c.RealIP()
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = CallerKey
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}
	return &RateLimiter{
		config: config,
		store:  make(map[string]*rateLimitEntry),
		now:    time.Now,
	}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rl.config.KeyFunc(c)
			now := rl.now()

			rl.mu.Lock()
			rl.sweep(now)
			entry, exists := rl.store[key]
			if !exists {
				rl.store[key] = &rateLimitEntry{count: 1, expiresAt: now.Add(rl.config.Window)}
				rl.mu.Unlock()
				return next(c)
			}

			if entry.count >= rl.config.Requests {
				retryAfter := int(math.Ceil(entry.expiresAt.Sub(now).Seconds()))
				rl.mu.Unlock()
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, rl.config.Message)
			}

			entry.count++
			rl.mu.Unlock()
			return next(c)
		}
	}
}

// sweep drops expired windows; callers hold mu
func (rl *RateLimiter) sweep(now time.Time) {
	for key, entry := range rl.store {
		if !now.Before(entry.expiresAt) {
			delete(rl.store, key)
		}
	}
}

// UploadRateLimiter limits attachment uploads to 30 per minute per caller
func UploadRateLimiter() *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		Requests: 30,
		Window:   time.Minute,
		Message:  "Too many uploads. Please wait a minute before trying again.",
	})
}
