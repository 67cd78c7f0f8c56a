package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, cfg), mr
}

func TestLimiter_BlocksAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(t, Config{MaxAttempts: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Hit(ctx, "acc-1"))
	}
	assert.ErrorIs(t, l.Hit(ctx, "acc-1"), ErrRateLimited)

	// other accounts are unaffected
	assert.NoError(t, l.Hit(ctx, "acc-2"))
}

func TestLimiter_HitSetsWindowAtomically(t *testing.T) {
	t.Parallel()

	l, mr := newTestLimiter(t, Config{MaxAttempts: 5, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.Hit(ctx, "acc-1"))
	assert.Equal(t, time.Minute, mr.TTL(loginKey("acc-1")))

	mr.FastForward(30 * time.Second)
	require.NoError(t, l.Hit(ctx, "acc-1"))
	assert.Equal(t, 30*time.Second, mr.TTL(loginKey("acc-1")), "later hits keep the window")
}

func TestLimiter_HealsCounterWithoutTTL(t *testing.T) {
	t.Parallel()

	l, mr := newTestLimiter(t, Config{MaxAttempts: 5, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, mr.Set(loginKey("acc-1"), "2"))
	require.NoError(t, l.Hit(ctx, "acc-1"))

	got, err := mr.Get(loginKey("acc-1"))
	require.NoError(t, err)
	assert.Equal(t, "3", got)
	assert.Equal(t, time.Minute, mr.TTL(loginKey("acc-1")))
}

func TestLimiter_WindowExpires(t *testing.T) {
	t.Parallel()

	l, mr := newTestLimiter(t, Config{MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.Hit(ctx, "acc-1"))
	assert.ErrorIs(t, l.Hit(ctx, "acc-1"), ErrRateLimited)

	mr.FastForward(61 * time.Second)
	assert.NoError(t, l.Hit(ctx, "acc-1"))
}

func TestLimiter_Reset(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(t, Config{MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.Hit(ctx, "acc-1"))
	require.NoError(t, l.Reset(ctx, "acc-1"))
	assert.NoError(t, l.Hit(ctx, "acc-1"))
}

func TestLimiter_ConcurrentHitsNeverExceedMax(t *testing.T) {
	t.Parallel()

	const maxAttempts = 4
	l, _ := newTestLimiter(t, Config{MaxAttempts: maxAttempts, Window: time.Minute})
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Hit(ctx, "acc-1") == nil {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(maxAttempts), allowed.Load())
}

func TestLimiter_RedisDown(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	l := New(client, Config{})

	ctx := context.Background()
	assert.ErrorIs(t, l.Hit(ctx, "acc-1"), ErrRedisUnavailable)
	assert.ErrorIs(t, l.Reset(ctx, "acc-1"), ErrRedisUnavailable)
	assert.ErrorIs(t, l.Ping(ctx), ErrRedisUnavailable)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	l := New(nil, Config{})
	assert.Equal(t, 5, l.config.MaxAttempts)
	assert.Equal(t, 15*time.Minute, l.config.Window)
}
