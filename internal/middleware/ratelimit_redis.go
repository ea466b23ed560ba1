package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/fathima-sithara/convert-service/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRateLimiter is a fixed-window counter shared by every replica.
type RedisRateLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	log    *zap.SugaredLogger
}

func NewRedisRateLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration, log *zap.SugaredLogger) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window, log: log}
}

// Allow counts one hit for key in the current window.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", r.prefix, key)

	count, err := r.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.rdb.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(r.limit), nil
}

// Handler lets requests through when redis is unreachable; conversions are
// not refused because the limiter's backend is down.
func (r *RedisRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := getIP(c)
		ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
		defer cancel()

		ok, err := r.Allow(ctx, ip)
		if err != nil {
			r.log.Warnw("rate limiter unavailable", "error", err)
			return c.Next()
		}
		if !ok {
			r.log.Warnw("rate limit exceeded", "ip", ip, "path", c.Path())
			return utils.TextError(c, fiber.StatusTooManyRequests, msgRateLimited)
		}
		return c.Next()
	}
}
