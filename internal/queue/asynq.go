package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// AsynqClient implements Client using github.com/hibiken/asynq with Redis as
// the backing store. Tasks enqueued here survive process restarts.
type AsynqClient struct {
	client *asynq.Client
	policy RetryPolicy
}

// NewAsynqClient constructs a client from a redis:// URL and the retry policy
// applied to every enqueued task.
func NewAsynqClient(redisURL string, policy RetryPolicy) (*AsynqClient, error) {
	if redisURL == "" {
		return nil, errors.New("asynq: redis url is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	return &AsynqClient{client: asynq.NewClient(opt), policy: policy}, nil
}

var _ Client = (*AsynqClient)(nil)

// Enqueue submits the task with the configured MaxRetry. The returned id is
// asynq's task id, usable for inspection tooling.
func (a *AsynqClient) Enqueue(ctx context.Context, t Task) (string, error) {
	if t.Type == "" {
		return "", errors.New("asynq: task type is required")
	}
	info, err := a.client.EnqueueContext(ctx, asynq.NewTask(t.Type, t.Payload),
		asynq.MaxRetry(a.policy.MaxRetry),
	)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// Close releases the underlying Redis connections.
func (a *AsynqClient) Close() error {
	return a.client.Close()
}

// AsynqServer implements Server using asynq's worker pool. The retry policy's
// exponential backoff is installed as the server-wide RetryDelayFunc.
type AsynqServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// retryDelay adapts RetryPolicy.Backoff to asynq's RetryDelayFunc. asynq
// passes msg.Retried, which is 0 when computing the delay for the first
// retry, while Backoff counts attempts from 1.
func retryDelay(policy RetryPolicy) func(n int, err error, task *asynq.Task) time.Duration {
	return func(n int, err error, task *asynq.Task) time.Duration {
		return policy.Backoff(n + 1)
	}
}

// NewAsynqServer constructs a worker server consuming the default queue with
// the given concurrency and retry policy.
func NewAsynqServer(redisURL string, concurrency int, policy RetryPolicy) (*AsynqServer, error) {
	if redisURL == "" {
		return nil, errors.New("asynq: redis url is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency:    concurrency,
		RetryDelayFunc: retryDelay(policy),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error().
				Str("task_type", task.Type()).
				Err(err).
				Msg("task processing failed")
		}),
	})
	return &AsynqServer{server: srv, mux: asynq.NewServeMux()}, nil
}

var _ Server = (*AsynqServer)(nil)

// Register binds a handler to a task type.
func (s *AsynqServer) Register(taskType string, h Handler) {
	s.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		return h(ctx, Task{Type: t.Type(), Payload: t.Payload()})
	})
}

// Run starts the worker pool and blocks until ctx is canceled, then shuts
// down gracefully (in-flight tasks finish or are requeued).
func (s *AsynqServer) Run(ctx context.Context) error {
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	s.server.Shutdown()
	return nil
}
