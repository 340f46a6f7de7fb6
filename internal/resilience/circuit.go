package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker state. The numeric value is exported as the state gauge.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

var stateNames = [...]string{Closed: "closed", Open: "open", HalfOpen: "half_open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// BreakerConfig sets when a breaker trips and how long it stays open.
type BreakerConfig struct {
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MinRequests <= 0 {
		c.MinRequests = 1
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = 0.5
	}
	c.FailureRatio = min(c.FailureRatio, 1)
	if c.OpenFor <= 0 {
		c.OpenFor = 30 * time.Second
	}
	return c
}

// Breaker is a failure-ratio circuit breaker guarding one downstream target.
// It opens once MinRequests outcomes have been seen and the failure ratio
// reaches FailureRatio, then lets a single trial call through after OpenFor.
type Breaker struct {
	cfg    BreakerConfig
	target string
	logger *zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	total    int
	openedAt time.Time
}

// NewBreaker returns a closed breaker labelled with target.
func NewBreaker(cfg BreakerConfig, target string) *Breaker {
	b := &Breaker{cfg: cfg.withDefaults(), target: strings.TrimSpace(target), now: time.Now}
	if b.target == "" {
		b.target = "default"
	}
	b.publishState()
	return b
}

// WithLogger sets the fallback logger for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.logger = &logger
	return b
}

// Allow reports whether a request may be sent now.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Open {
		return true
	}
	if b.now().Sub(b.openedAt) < b.cfg.OpenFor {
		return false
	}
	b.moveTo(ctx, HalfOpen)
	return true
}

// Report records the outcome of an allowed request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.moveTo(ctx, Closed)
		} else {
			b.moveTo(ctx, Open)
		}
		return
	}

	b.total++
	if !success {
		b.failures++
	}
	if b.total < b.cfg.MinRequests {
		return
	}
	if float64(b.failures)/float64(b.total) >= b.cfg.FailureRatio {
		b.moveTo(ctx, Open)
		return
	}
	// halve the window so old successes cannot mask a new outage forever
	if b.total > 2*b.cfg.MinRequests {
		b.total = (b.total + 1) / 2
		b.failures = (b.failures + 1) / 2
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Target returns the telemetry label of the breaker.
func (b *Breaker) Target() string { return b.target }

func (b *Breaker) moveTo(ctx context.Context, next State) {
	prev := b.state
	b.state = next
	b.failures, b.total = 0, 0
	switch next {
	case Open:
		b.openedAt = b.now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.publishState()
	if prev == next {
		return
	}
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(b.target, prev.String(), next.String()).Inc()
	}
	if next == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(b.target).Inc()
	}
	evt := b.loggerFor(ctx).Info().
		Str("target", b.target).
		Str("from_state", prev.String()).
		Str("to_state", next.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) publishState() {
	if BreakerState != nil {
		BreakerState.WithLabelValues(b.target).Set(float64(b.state))
	}
}

func (b *Breaker) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	if b.logger != nil {
		return b.logger
	}
	nop := zerolog.Nop()
	return &nop
}

// Breakers lazily creates one breaker per key, e.g. per webhook endpoint.
type Breakers struct {
	Config BreakerConfig
	Prefix string

	m sync.Map
}

// For returns the breaker for key, creating it on first use.
func (s *Breakers) For(key string) *Breaker {
	if b, ok := s.m.Load(key); ok {
		return b.(*Breaker)
	}
	target := key
	if s.Prefix != "" {
		target = s.Prefix + ":" + key
	}
	b, _ := s.m.LoadOrStore(key, NewBreaker(s.Config, target))
	return b.(*Breaker)
}
