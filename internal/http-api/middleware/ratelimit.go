package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitConfig describes a token bucket per client IP.
type RateLimitConfig struct {
	RPS    float64
	Burst  int
	Prefix string
}

// tokenBucketScript refills by whole intervals and takes one token.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
	tokens = math.min(capacity, tokens + intervals)
	last_refill = last_refill + intervals * interval_ms
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_after_ms }
`)

// RateLimit limits requests per client IP. With a redis client the bucket is
// shared across instances; otherwise it lives in process memory. Redis
// errors fail open.
func RateLimit(cfg RateLimitConfig, rdb *redis.Client, logger *slog.Logger) gin.HandlerFunc {
	if rdb != nil {
		return redisRateLimit(cfg, rdb, logger)
	}
	return memoryRateLimit(cfg)
}

func redisRateLimit(cfg RateLimitConfig, rdb *redis.Client, logger *slog.Logger) gin.HandlerFunc {
	interval := time.Duration(float64(time.Second) / cfg.RPS)
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ttl := int64(math.Ceil((interval * time.Duration(cfg.Burst+1)).Seconds()))

	return func(c *gin.Context) {
		key := rateLimitKey(cfg.Prefix, c.ClientIP())
		args := []any{time.Now().UnixMilli(), cfg.Burst, interval.Milliseconds(), ttl}

		vals, err := tokenBucketScript.Run(c.Request.Context(), rdb, []string{key}, args...).Int64Slice()
		if err != nil || len(vals) != 3 {
			logger.Warn("Rate limiter unavailable", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))
		if vals[0] != 1 {
			tooManyRequests(c, time.Duration(vals[2])*time.Millisecond)
			return
		}
		c.Next()
	}
}

// rateLimitKey builds "<prefix>:ip:<addr>"; a trailing colon on prefix is tolerated.
func rateLimitKey(prefix, ip string) string {
	return strings.TrimSuffix(prefix, ":") + ":ip:" + ip
}

// limiterCache holds one limiter per key with double-check locking.
type limiterCache struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func (lc *limiterCache) get(key string) *rate.Limiter {
	lc.mu.RLock()
	limiter, ok := lc.limiters[key]
	lc.mu.RUnlock()
	if ok {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if limiter, ok = lc.limiters[key]; ok {
		return limiter
	}
	// crude bound on memory; buckets simply start full again
	if len(lc.limiters) > 10000 {
		lc.limiters = make(map[string]*rate.Limiter)
	}
	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

func memoryRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	cache := &limiterCache{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(cfg.RPS),
		burst:    cfg.Burst,
	}
	return func(c *gin.Context) {
		limiter := cache.get(c.ClientIP())
		r := limiter.Reserve()
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			tooManyRequests(c, delay)
			return
		}
		c.Next()
	}
}

func tooManyRequests(c *gin.Context, retryAfter time.Duration) {
	secs := int(math.Ceil(retryAfter.Seconds()))
	c.Header("Retry-After", strconv.Itoa(secs))
	abort(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
}
