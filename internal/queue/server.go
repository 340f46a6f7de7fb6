package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/resilience"
)

// Handler processes one task. Returning an error schedules a retry until the task's
// attempts are exhausted, after which asynq archives it.
type Handler func(context.Context, Task) error

// ErrSkipRetry archives the task without further attempts when wrapped by a handler error.
var ErrSkipRetry = asynq.SkipRetry

// Server consumes tasks and dispatches them by kind.
type Server struct {
	Redis       asynq.RedisConnOpt
	Queue       string
	Concurrency int
	RetryBase   time.Duration
	RetryMax    time.Duration
	RetryJitter float64
	Logger      zerolog.Logger

	mux      *asynq.ServeMux
	handlers map[string]Handler
}

// Handle registers h for tasks of the given kind.
func (s *Server) Handle(kind string, h Handler) {
	if s.handlers == nil {
		s.handlers = make(map[string]Handler)
		s.mux = asynq.NewServeMux()
	}
	kind = sanitizeKind(kind)
	if kind == "" || h == nil {
		panic("queue: invalid handler registration")
	}
	s.handlers[kind] = h
	s.mux.HandleFunc(kind, s.process(kind, h))
}

// Handler returns the asynq handler dispatching to the registered kinds.
func (s *Server) Handler() asynq.Handler {
	if s.mux == nil {
		s.mux = asynq.NewServeMux()
	}
	return s.mux
}

// Run starts the asynq server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.Redis == nil {
		return errors.New("queue: redis connection not configured")
	}
	if len(s.handlers) == 0 {
		return errors.New("queue: no handlers registered")
	}
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	queue := s.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	srv := asynq.NewServer(s.Redis, asynq.Config{
		Concurrency:    concurrency,
		Queues:         map[string]int{queue: 1},
		RetryDelayFunc: s.RetryDelay,
		Logger:         zerologAdapter{l: s.Logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			s.Logger.Warn().Err(err).Str("kind", task.Type()).Int("retried", retried).Int("max_retry", maxRetry).Msg("task_failed")
		}),
	})
	if err := srv.Start(s.Handler()); err != nil {
		return err
	}
	<-ctx.Done()
	srv.Shutdown()
	return nil
}

// RetryDelay computes the delay before retry n (0 based) using capped exponential backoff.
func (s *Server) RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	base := s.RetryBase
	if base <= 0 {
		base = 2 * time.Second
	}
	max := s.RetryMax
	if max <= 0 {
		max = 10 * time.Minute
	}
	return resilience.CappedBackoff(base, max, n+1, s.RetryJitter)
}

func (s *Server) process(kind string, h Handler) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		task := Task{Kind: kind, Payload: t.Payload(), Attempt: 1}
		if id, ok := asynq.GetTaskID(ctx); ok {
			task.IdempotencyKey = idempotencyKey(kind, id)
		}
		if retried, ok := asynq.GetRetryCount(ctx); ok {
			task.Attempt = retried + 1
		}
		if maxRetry, ok := asynq.GetMaxRetry(ctx); ok {
			task.MaxAttempts = maxRetry + 1
		}
		logger := s.Logger.With().Str("kind", kind).Int("attempt", task.Attempt).Logger()
		ctx = logger.WithContext(ctx)

		err := h(ctx, task)
		switch {
		case err == nil:
			obs.Inc(obs.JobsProcessedTotal, kind, "ok")
		case errors.Is(err, asynq.SkipRetry):
			obs.Inc(obs.JobsProcessedTotal, kind, "skipped")
		default:
			obs.Inc(obs.JobsProcessedTotal, kind, "error")
		}
		return err
	}
}

type zerologAdapter struct {
	l zerolog.Logger
}

func (a zerologAdapter) Debug(args ...any) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Info(args ...any)  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Warn(args ...any)  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Error(args ...any) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Fatal(args ...any) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
