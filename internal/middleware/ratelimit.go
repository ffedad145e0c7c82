package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig defines rate limiting parameters.
type RateLimitConfig struct {
	RequestsPerMinute int
	Prefix            string // key namespace, e.g. "gen"
}

// RateLimit is a fixed one-minute window limiter keyed by profile id (or IP).
// Redis errors let the request through.
func RateLimit(client *redis.Client, cfg RateLimitConfig) fiber.Handler {
	window := time.Minute
	return func(c fiber.Ctx) error {
		clientID := GetProfileID(c)
		if clientID == "" {
			clientID = "ip:" + c.IP()
		}
		key := fmt.Sprintf("ratelimit:%s:%s", cfg.Prefix, clientID)

		count, err := incrWithExpire(c.Context(), client, key, window)
		if err != nil {
			slog.Warn("rate limiter unavailable", "error", err)
			return c.Next()
		}

		limit := cfg.RequestsPerMinute
		remaining := limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > limit {
			c.Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, slow down",
				"code":  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}

// incrWithExpire starts the window on the first hit of a key.
func incrWithExpire(ctx context.Context, client *redis.Client, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}
