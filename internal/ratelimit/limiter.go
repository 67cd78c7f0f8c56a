// Package ratelimit throttles logins with Redis fixed-window counters.
//
// Every attempt reserves a slot before the password is checked; a
// successful login clears the counter. The window starts at the first
// attempt and is not extended by later ones.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// hitScript increments the counter and sets the window TTL in one step.
// A counter left without a TTL gets one on its next hit.
const hitScript = `
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`

var hitLua = redis.NewScript(hitScript)

type Config struct {
	MaxAttempts int
	Window      time.Duration
}

type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(client redis.UniversalClient, cfg Config) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	return &Limiter{redis: client, config: cfg}
}

func loginKey(accountID string) string {
	return "login_attempts:" + accountID
}

// Hit reserves one login attempt for the account. It returns ErrRateLimited
// once more than MaxAttempts have been reserved in the current window.
func (l *Limiter) Hit(ctx context.Context, accountID string) error {
	n, err := hitLua.Run(ctx, l.redis, []string{loginKey(accountID)}, l.config.Window.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if n > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) Reset(ctx context.Context, accountID string) error {
	if err := l.redis.Del(ctx, loginKey(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) Ping(ctx context.Context) error {
	if err := l.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
