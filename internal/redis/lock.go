package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrLockNotAcquired = errors.New("slot lock not acquired")

const releaseTimeout = 2 * time.Second

// SlotLocker serializes work on a single slot key across processes with a
// SETNX lease. The lease expires on its own if the holder dies.
type SlotLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewSlotLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SlotLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotLocker{client: client, ttl: ttl, logger: logger}
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:slot:%s", key)
}

// WithSlotLock runs fn while holding the lock for key. fn gets a context
// bounded by the lease so it cannot outlive the lock.
func (l *SlotLocker) WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	redisKey := lockKey(key)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		// The caller's context may already be done; the release must still run.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := l.release(relCtx, redisKey, token); err != nil {
			l.logger.Warn("release slot lock", zap.String("key", redisKey), zap.Error(err))
		}
	}()

	fnCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(fnCtx)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

// release deletes the key only if it still carries our token, so an expired
// lease taken over by someone else is left intact.
func (l *SlotLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}
