package api

import (
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// idleBucketTTL is how long an untouched bucket is kept.
const idleBucketTTL = 10 * time.Minute

// IPRateLimiter implements per-IP rate limiting using token bucket algorithm
type IPRateLimiter struct {
	limits    map[string]*tokenBucket
	mu        sync.Mutex
	rate      time.Duration // Refill rate
	burst     int           // Burst capacity
	lastSweep time.Time
	now       func() time.Time
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

// newIPRateLimiter allows perMinute requests per IP on average with bursts
// of up to burst.
func newIPRateLimiter(perMinute, burst int) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 600
	}
	if burst <= 0 {
		burst = 60
	}
	return &IPRateLimiter{
		limits: make(map[string]*tokenBucket),
		rate:   time.Minute / time.Duration(perMinute),
		burst:  burst,
		now:    time.Now,
	}
}

// allow checks if a request is allowed for the given IP
func (l *IPRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	bucket, exists := l.limits[ip]
	if !exists {
		l.limits[ip] = &tokenBucket{
			tokens:     float64(l.burst) - 1,
			lastRefill: now,
			lastSeen:   now,
		}
		return true
	}
	bucket.lastSeen = now

	refills := now.Sub(bucket.lastRefill) / l.rate
	if refills > 0 {
		bucket.tokens = min(float64(l.burst), bucket.tokens+float64(refills))
		bucket.lastRefill = bucket.lastRefill.Add(refills * l.rate)
	}

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}
	return false
}

func (l *IPRateLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < idleBucketTTL {
		return
	}
	l.lastSweep = now
	for ip, b := range l.limits {
		if now.Sub(b.lastSeen) > idleBucketTTL {
			delete(l.limits, ip)
		}
	}
}

func (l *IPRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limits)
}

// rateLimitMiddleware creates a Gin middleware for rate limiting
func rateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error:   "rate limit exceeded",
				Message: "Too many requests. Please try again later.",
				Code:    http.StatusTooManyRequests,
			})
			return
		}
		c.Next()
	}
}

// bodyLimitMiddleware caps request bodies. Handlers see a *http.MaxBytesError
// from binding once the cap is crossed.
func bodyLimitMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return stderrors.As(err, &maxErr)
}
