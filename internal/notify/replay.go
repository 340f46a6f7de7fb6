package notify

import (
	"context"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-invoice/internal/tenant"
)

const defaultReplayPrefix = "webhook:sent"

// RedisReplayProtector claims invoice event deliveries in Redis so a redelivered
// task does not post the same event to an endpoint twice.
type RedisReplayProtector struct {
	Client *redis.Client
	Prefix string
}

func (r RedisReplayProtector) key(ctx context.Context, key string) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = defaultReplayPrefix
	}
	return tenant.Key(ctx, prefix+":"+key)
}

// Acquire reports whether the caller won the claim. The stored value is the
// claim time in unix seconds.
func (r RedisReplayProtector) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if r.Client == nil {
		return true, nil
	}
	err := r.Client.SetArgs(ctx, r.key(ctx, key), strconv.FormatInt(time.Now().Unix(), 10), redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return err == nil, err
}

// Release drops a claim after a failed send so the retry can post again.
func (r RedisReplayProtector) Release(ctx context.Context, key string) error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Del(ctx, r.key(ctx, key)).Err()
}
