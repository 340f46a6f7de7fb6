package resilience

import "time"

func SetClock(b *Breaker, now func() time.Time) { b.now = now }
