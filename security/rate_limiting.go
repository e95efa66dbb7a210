package security

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter kept in Redis and shared by
// every server using that Redis.
type RateLimiter struct {
	redis  *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, prefix string, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow counts one request for id and reports whether it is within the limit.
func (r *RateLimiter) Allow(ctx context.Context, id string) (bool, error) {
	key := fmt.Sprintf("%s:%s", r.prefix, id)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.redis.Expire(ctx, key, r.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= r.limit, nil
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// Limit is route middleware keyed by client IP. A Redis failure lets the
// request through.
func (r *RateLimiter) Limit(e *core.RequestEvent) error {
	if r.limit <= 0 {
		return e.Next()
	}
	ip := clientIP(e.Request.RemoteAddr)
	allowed, err := r.Allow(e.Request.Context(), ip)
	if err != nil {
		slog.Warn("Rate limiter unavailable", "prefix", r.prefix, "ip", ip, "error", err)
		return e.Next()
	}
	if !allowed {
		return apis.NewTooManyRequestsError("Rate limit exceeded. Please try again later.", nil)
	}
	return e.Next()
}
