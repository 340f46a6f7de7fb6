package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/resilience"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg resilience.BreakerConfig, target string) (*resilience.Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := resilience.NewBreaker(cfg, target)
	resilience.SetClock(b, clock.now)
	return b, clock
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBreaker(resilience.BreakerConfig{MinRequests: 2, FailureRatio: 0.5, OpenFor: time.Minute}, "hook")

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, resilience.Closed, b.State(), "below minimum requests")
	b.Report(ctx, false)
	require.Equal(t, resilience.Open, b.State())
	require.False(t, b.Allow(ctx))

	clock.advance(59 * time.Second)
	require.False(t, b.Allow(ctx))
	clock.advance(time.Second)
	require.True(t, b.Allow(ctx))
	require.Equal(t, resilience.HalfOpen, b.State())

	b.Report(ctx, true)
	require.Equal(t, resilience.Closed, b.State())
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBreaker(resilience.BreakerConfig{MinRequests: 1, OpenFor: time.Second}, "hook")
	b.Report(ctx, false)
	clock.advance(time.Second)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, resilience.Open, b.State())
	require.False(t, b.Allow(ctx))
}

func TestBreakerSuccessesKeepItClosed(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker(resilience.BreakerConfig{MinRequests: 4, FailureRatio: 0.5}, "hook")
	for i := 0; i < 20; i++ {
		b.Report(ctx, i%4 != 0)
	}
	require.Equal(t, resilience.Closed, b.State())
}

func TestBreakersOnePerKey(t *testing.T) {
	set := &resilience.Breakers{Prefix: "webhook", Config: resilience.BreakerConfig{MinRequests: 1}}
	a := set.For("ep-1")
	require.Same(t, a, set.For("ep-1"))
	require.NotSame(t, a, set.For("ep-2"))
	require.Equal(t, "webhook:ep-1", a.Target())

	a.Report(context.Background(), false)
	require.Equal(t, resilience.Open, a.State())
	require.Equal(t, resilience.Closed, set.For("ep-2").State())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "half_open", resilience.HalfOpen.String())
	require.Equal(t, "unknown", resilience.State(9).String())
}

func TestBackoffWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, base*4, resilience.Backoff(base, 3, 0))

	d := resilience.Backoff(base, 2, 0.2)
	require.GreaterOrEqual(t, d, base*2-(base*2/5))
	require.LessOrEqual(t, d, base*2+(base*2/5))
}

func TestCappedBackoff(t *testing.T) {
	require.Equal(t, time.Second, resilience.CappedBackoff(time.Second, time.Minute, 1, 0))
	require.Equal(t, time.Minute, resilience.CappedBackoff(time.Second, time.Minute, 20, 0))
	require.Equal(t, 8*time.Second, resilience.CappedBackoff(time.Second, 0, 4, 0))
}
