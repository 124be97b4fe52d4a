package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
)

// TaskQueue is a thread-safe in-memory FIFO implementation of ports.TaskQueue.
type TaskQueue struct {
	mu    sync.Mutex
	tasks []domain.Task

	// EnqueueFn allows overriding Enqueue behavior.
	EnqueueFn func(ctx context.Context, task domain.Task) error
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

// Enqueue appends task, assigning an id and timestamp when missing.
func (q *TaskQueue) Enqueue(ctx context.Context, task domain.Task) error {
	if q.EnqueueFn != nil {
		return q.EnqueueFn(ctx, task)
	}

	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.tasks = append(q.tasks, task)

	return nil
}

// Dequeue pops the oldest task. It returns nil without waiting when the queue is empty.
func (q *TaskQueue) Dequeue(ctx context.Context, _ time.Duration) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, nil
	}

	task := q.tasks[0]
	q.tasks = q.tasks[1:]

	return &task, nil
}

// Helper methods for testing

// Tasks returns the queued tasks.
func (q *TaskQueue) Tasks() []domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]domain.Task(nil), q.tasks...)
}
