// Package lock serialises work across API replicas with Redis SET NX locks.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTimeout is returned when the lock could not be acquired within MaxWait.
var ErrTimeout = errors.New("lock: timed out waiting for lock")

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

var release = redis.NewScript(releaseScript)

// Locker provides a Redis-backed distributed lock.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
	// MaxWait bounds how long WithLock polls. Zero waits until ctx is done.
	MaxWait time.Duration
}

// Key builds a lock key from parts, e.g. Key("invoice-number", companyID).
func Key(parts ...string) string {
	key := "lock"
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// WithLock executes fn while holding the lock for key. The lock is released even when fn
// fails; a token guards against deleting a lock that expired and was taken by someone else.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	var deadline <-chan time.Time
	if l.MaxWait > 0 {
		t := time.NewTimer(l.MaxWait)
		defer t.Stop()
		deadline = t.C
	}

	token := uuid.NewString()
	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			defer l.release(key, token)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-deadline:
			timer.Stop()
			return ErrTimeout
		case <-timer.C:
		}
	}
}

func (l Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = release.Run(ctx, l.R, []string{key}, token).Err()
}
