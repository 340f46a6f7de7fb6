package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultQueue is the asynq queue every task is published to unless overridden.
const DefaultQueue = "default"

// Task represents a job to be processed asynchronously.
type Task struct {
	Kind           string
	Payload        []byte
	IdempotencyKey string
	MaxAttempts    int
	Delay          time.Duration
	// Attempt is set on the consumer side, starting at 1.
	Attempt int
}

// RedisOpt parses a redis:// URL into asynq connection options.
func RedisOpt(url string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("queue: parse redis url: %w", err)
	}
	return opt, nil
}

// Enqueuer publishes tasks to asynq.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
}

// NewEnqueuer returns an Enqueuer backed by a new asynq client.
func NewEnqueuer(opt asynq.RedisConnOpt) Enqueuer {
	return Enqueuer{Client: asynq.NewClient(opt), Queue: DefaultQueue}
}

// Enqueue publishes the task. If an idempotency key is supplied the task is only
// enqueued once while a task with the same kind and key is retained by asynq.
func (e Enqueuer) Enqueue(ctx context.Context, t Task) error {
	if e.Client == nil {
		return errors.New("queue: asynq client not configured")
	}
	kind := sanitizeKind(t.Kind)
	if kind == "" {
		return errors.New("queue: task kind is required")
	}
	maxAttempts := t.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	opts := []asynq.Option{
		asynq.Queue(e.queue()),
		asynq.MaxRetry(maxAttempts - 1),
	}
	if t.Delay > 0 {
		opts = append(opts, asynq.ProcessIn(t.Delay))
	}
	if key := strings.TrimSpace(t.IdempotencyKey); key != "" {
		opts = append(opts, asynq.TaskID(taskID(kind, key)), asynq.Retention(24*time.Hour))
	}
	_, err := e.Client.EnqueueContext(ctx, asynq.NewTask(kind, t.Payload), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Close releases the underlying client.
func (e Enqueuer) Close() error {
	if e.Client == nil {
		return nil
	}
	return e.Client.Close()
}

func (e Enqueuer) queue() string {
	if e.Queue == "" {
		return DefaultQueue
	}
	return e.Queue
}

func taskID(kind, key string) string {
	return kind + "|" + key
}

// idempotencyKey recovers the caller supplied key from an asynq task id.
func idempotencyKey(kind, id string) string {
	key, ok := strings.CutPrefix(id, kind+"|")
	if !ok {
		return ""
	}
	return key
}

func sanitizeKind(kind string) string {
	for i := 0; i < len(kind); i++ {
		c := kind[i]
		if c >= 'a' && c <= 'z' {
			continue
		}
		if c >= '0' && c <= '9' {
			continue
		}
		if c == '-' || c == '_' || c == ':' {
			continue
		}
		return ""
	}
	return kind
}
