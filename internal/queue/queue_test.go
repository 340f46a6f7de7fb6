package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/queue"
)

func newMiniredisOpt(t *testing.T) asynq.RedisClientOpt {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return asynq.RedisClientOpt{Addr: mr.Addr()}
}

func TestEnqueueDeduplicatesByIdempotencyKey(t *testing.T) {
	opt := newMiniredisOpt(t)
	enq := queue.NewEnqueuer(opt)
	t.Cleanup(func() { _ = enq.Close() })

	ctx := context.Background()
	task := queue.Task{Kind: "invoice:render", Payload: []byte(`{"id":"1"}`), IdempotencyKey: "inv-1"}
	require.NoError(t, enq.Enqueue(ctx, task))
	require.NoError(t, enq.Enqueue(ctx, task))
	require.NoError(t, enq.Enqueue(ctx, queue.Task{Kind: "invoice:render", Payload: []byte(`{"id":"2"}`), IdempotencyKey: "inv-2"}))

	inspector := asynq.NewInspector(opt)
	t.Cleanup(func() { _ = inspector.Close() })
	info, err := inspector.GetQueueInfo(queue.DefaultQueue)
	require.NoError(t, err)
	require.Equal(t, 2, info.Pending)
}

func TestEnqueueDelayedTaskIsScheduled(t *testing.T) {
	opt := newMiniredisOpt(t)
	enq := queue.NewEnqueuer(opt)
	t.Cleanup(func() { _ = enq.Close() })

	require.NoError(t, enq.Enqueue(context.Background(), queue.Task{Kind: "webhook:deliver", Payload: []byte("x"), Delay: time.Minute}))

	inspector := asynq.NewInspector(opt)
	t.Cleanup(func() { _ = inspector.Close() })
	info, err := inspector.GetQueueInfo(queue.DefaultQueue)
	require.NoError(t, err)
	require.Equal(t, 1, info.Scheduled)
	require.Equal(t, 0, info.Pending)
}

func TestEnqueueRejectsInvalidKind(t *testing.T) {
	enq := queue.Enqueuer{Client: asynq.NewClient(newMiniredisOpt(t))}
	t.Cleanup(func() { _ = enq.Close() })

	require.Error(t, enq.Enqueue(context.Background(), queue.Task{Kind: "Bad Kind"}))
	require.Error(t, enq.Enqueue(context.Background(), queue.Task{}))
	require.Error(t, queue.Enqueuer{}.Enqueue(context.Background(), queue.Task{Kind: "demo"}))
}

func TestServerDispatchesByKind(t *testing.T) {
	var srv queue.Server
	got := make(chan queue.Task, 1)
	srv.Handle("demo", func(ctx context.Context, task queue.Task) error {
		got <- task
		return nil
	})
	srv.Handle("broken", func(ctx context.Context, task queue.Task) error {
		return errors.New("boom")
	})

	h := srv.Handler()
	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask("demo", []byte("payload"))))
	task := <-got
	require.Equal(t, "demo", task.Kind)
	require.Equal(t, []byte("payload"), task.Payload)
	require.Equal(t, 1, task.Attempt)

	require.EqualError(t, h.ProcessTask(context.Background(), asynq.NewTask("broken", nil)), "boom")
	require.Error(t, h.ProcessTask(context.Background(), asynq.NewTask("unknown", nil)))
}

func TestRetryDelayIsCapped(t *testing.T) {
	srv := queue.Server{RetryBase: time.Second, RetryMax: 30 * time.Second}
	require.Equal(t, time.Second, srv.RetryDelay(0, nil, nil))
	require.Equal(t, 4*time.Second, srv.RetryDelay(2, nil, nil))
	require.Equal(t, 30*time.Second, srv.RetryDelay(12, nil, nil))
}

func TestRunRequiresHandlers(t *testing.T) {
	srv := queue.Server{Redis: newMiniredisOpt(t)}
	require.Error(t, srv.Run(context.Background()))
}
