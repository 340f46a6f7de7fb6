// Package ratelimit throttles API calls per client and per IP.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Checker counts one hit against key.
type Checker interface {
	Check(ctx context.Context, key string) (Decision, error)
}

// SlidingWindow is a sliding window limiter backed by Redis sorted sets. It guards the token
// endpoint where a fixed window would let a burst straddle the boundary.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
	Window time.Duration
	Max    int
}

// Check registers an event for key and reports whether it is within the limit.
func (l SlidingWindow) Check(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	d := Decision{Allowed: true, Limit: l.Max, Remaining: l.Max, Reset: now.Add(l.Window)}
	if l.Client == nil || l.Max <= 0 || l.Window <= 0 {
		return d, nil
	}

	redisKey := l.Prefix + key
	cutoff := float64(now.Add(-l.Window).UnixNano())
	member := fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldest := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.Expire(ctx, redisKey, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	current := int(countCmd.Val())
	d.Remaining = max(l.Max-current, 0)
	d.Allowed = current <= l.Max
	if first := oldest.Val(); len(first) == 1 {
		d.Reset = time.Unix(0, int64(first[0].Score)).Add(l.Window)
	}
	return d, nil
}
