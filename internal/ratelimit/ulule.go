package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// FixedWindow adapts an ulule limiter to Checker. It carries the general API quota.
type FixedWindow struct {
	Limiter *limiter.Limiter
}

// NewFixedWindow builds a limiter for a rate such as "300-M". A nil client keeps counters in
// process memory.
func NewFixedWindow(rdb *redis.Client, formatted string) (FixedWindow, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return FixedWindow{}, fmt.Errorf("ratelimit: parse rate %q: %w", formatted, err)
	}
	opts := limiter.StoreOptions{Prefix: "invoice:limiter", CleanUpInterval: limiter.DefaultCleanUpInterval}
	var store limiter.Store
	if rdb == nil {
		store = memory.NewStoreWithOptions(opts)
	} else {
		store, err = limiterredis.NewStoreWithOptions(rdb, opts)
		if err != nil {
			return FixedWindow{}, fmt.Errorf("ratelimit: redis store: %w", err)
		}
	}
	return FixedWindow{Limiter: limiter.New(store, rate)}, nil
}

// Check implements Checker.
func (f FixedWindow) Check(ctx context.Context, key string) (Decision, error) {
	lctx, err := f.Limiter.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !lctx.Reached,
		Limit:     int(lctx.Limit),
		Remaining: int(lctx.Remaining),
		Reset:     time.Unix(lctx.Reset, 0),
	}, nil
}
