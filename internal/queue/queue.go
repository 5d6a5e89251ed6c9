// Package queue defines the durable work queue that decouples message
// ingestion from AI completion. Services depend only on the interfaces in
// this file; the Redis-backed asynq adapter lives alongside in asynq.go.
//
// Delivery semantics: a task is delivered to at most one worker at a time,
// but may be redelivered after a processing failure until the retry policy
// is exhausted. Handlers must therefore be idempotent. The backing store is
// durable, so a crash between enqueue and processing does not drop work.
package queue

import (
	"context"
	"time"
)

// Task is a unit of background work: a stable type identifier plus an opaque
// payload. Payload encoding is up to the registering package.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes one delivery of a Task. Returning a non-nil error signals
// the queue to apply its retry policy; returning nil acknowledges the task.
type Handler func(ctx context.Context, task Task) error

// RetryPolicy is the configurable redelivery policy supplied to the adapter,
// independent of the underlying transport. Retry n (1-based) waits
// BaseDelay * 2^(n-1) before redelivery; after MaxRetry failed retries the
// task is terminally failed and parked for inspection.
type RetryPolicy struct {
	MaxRetry  int
	BaseDelay time.Duration
}

// Backoff returns the delay before retry attempt n (1-based, matching the
// retry counters queue backends expose).
func (p RetryPolicy) Backoff(n int) time.Duration {
	d := p.BaseDelay
	if d <= 0 {
		d = 2 * time.Second
	}
	for i := 1; i < n; i++ {
		d *= 2
	}
	return d
}

// Client enqueues tasks for background processing.
type Client interface {
	// Enqueue submits a task and returns the backend's task id.
	Enqueue(ctx context.Context, t Task) (id string, err error)
	Close() error
}

// Server runs background workers that consume tasks. Run blocks until the
// context is canceled, then shuts down gracefully.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
}
