package resilience

import (
	"math/rand"
	"time"
)

// Backoff returns an exponential backoff duration for the provided attempt.
// Jitter is expressed as a fraction (e.g. 0.2 == 20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if attempt > 30 {
		attempt = 30
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if jitterPct <= 0 {
		return d
	}
	jitter := float64(d) * jitterPct
	delta := (rand.Float64()*2 - 1) * jitter
	return d + time.Duration(delta)
}

// CappedBackoff is Backoff limited to max. A non-positive max disables the cap.
func CappedBackoff(base, max time.Duration, attempt int, jitterPct float64) time.Duration {
	d := Backoff(base, attempt, jitterPct)
	if max > 0 && d > max {
		return max
	}
	return d
}
