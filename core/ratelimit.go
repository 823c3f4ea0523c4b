package core

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptKeyPrefix = "login_attempts:"

// LoginLimiter counts login attempts per source in a fixed redis window and
// refuses further attempts once the limit is hit. It slows down online
// password guessing; it is not an account lockout.
type LoginLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewLoginLimiter builds a limiter. A limit <= 0 disables limiting.
func NewLoginLimiter(client *redis.Client, limit int, window time.Duration) *LoginLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &LoginLimiter{client: client, limit: limit, window: window}
}

// Allow records one attempt for key and reports whether it may proceed.
// A redis failure fails open: losing the throttle is preferable to losing
// logins, and the event is logged for operators.
func (l *LoginLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true
	}

	redisKey := loginAttemptKeyPrefix + key
	n, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		log.Printf("login limiter: incr failed: %v", err)
		return true
	}
	if n == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			log.Printf("login limiter: expire failed: %v", err)
		}
	}
	return n <= int64(l.limit)
}
