package middleware

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/metrics"
)

// RateLimiter enforces a per-caller request budget over a fixed window.
// With Redis the window is shared across instances (INCR per window
// bucket); without it each instance keeps its own token buckets.
type RateLimiter struct {
	client   *redis.Client
	prefix   string
	limit    int
	window   time.Duration
	limiters sync.Map // map[string]*rate.Limiter
	now      func() time.Time
}

// NewRateLimiter allows perWindow+burst requests per window for each caller
func NewRateLimiter(client *redis.Client, prefix string, perWindow, burst int, window time.Duration) *RateLimiter {
	if window < time.Second {
		window = time.Second
	}
	if perWindow < 1 {
		perWindow = 1
	}
	return &RateLimiter{
		client: client,
		prefix: prefix,
		limit:  perWindow + burst,
		window: window,
		now:    time.Now,
	}
}

// Middleware must run after authentication so callers are keyed by user
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := callerKey(c)

		allowed, limiter := l.allow(c, key)
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			metrics.RateLimitRejected.WithLabelValues(limiter).Inc()
			abortWithError(c, apperror.RateLimited())
			return
		}
		metrics.RateLimitAllowed.WithLabelValues(limiter).Inc()
		c.Next()
	}
}

func callerKey(c *gin.Context) string {
	if userID := UserID(c); userID != "" {
		return "user:" + userID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func (l *RateLimiter) allow(c *gin.Context, key string) (bool, string) {
	if l.client != nil {
		ok, err := l.allowRedis(c, key)
		if err == nil {
			return ok, "redis"
		}
		logrus.Warnf("Redis rate limit check failed, using local limiter: %v", err)
	}
	return l.localLimiter(key).Allow(), "memory"
}

func (l *RateLimiter) allowRedis(c *gin.Context, key string) (bool, error) {
	ctx := c.Request.Context()
	windowSeconds := int64(l.window.Seconds())
	bucket := l.now().Unix() / windowSeconds
	redisKey := fmt.Sprintf("rl:%s:%s:%d", l.prefix, key, bucket)

	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		_ = l.client.Expire(ctx, redisKey, l.window+time.Second).Err()
	}
	return cnt <= int64(l.limit), nil
}

func (l *RateLimiter) localLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	every := rate.Every(l.window / time.Duration(l.limit))
	lim, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(every, l.limit))
	return lim.(*rate.Limiter)
}
