// Package taskqueue carries custom target list tasks over a redis list.
// Producers LPUSH JSON envelopes and consumers BRPOP them, so tasks are
// handled in FIFO order.
package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
)

// DefaultQueueName is the redis list used when none is configured.
const DefaultQueueName = "ctl_tasks"

// Config holds the redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// commands is the subset of the redis client the queue uses.
type commands interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Queue implements ports.TaskQueue.
type Queue struct {
	rdb   commands
	name  string
	close func() error
}

var _ ports.TaskQueue = (*Queue)(nil)

// New connects to redis.
func New(cfg Config) *Queue {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return newQueue(rdb, cfg.Queue, rdb.Close)
}

func newQueue(rdb commands, name string, closeFn func() error) *Queue {
	if name == "" {
		name = DefaultQueueName
	}

	if closeFn == nil {
		closeFn = func() error { return nil }
	}

	return &Queue{rdb: rdb, name: name, close: closeFn}
}

// Enqueue pushes task, assigning an id and timestamp when missing.
func (q *Queue) Enqueue(ctx context.Context, task domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	if err := q.rdb.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("enqueue task %s: %w", task.ID, err)
	}

	return nil
}

// Dequeue blocks up to timeout for the oldest task. It returns nil when the
// timeout passes without a task.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*domain.Task, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("dequeue task: %w", err)
	}

	// BRPOP replies with the key followed by the value.
	if len(res) != 2 {
		return nil, fmt.Errorf("dequeue task: unexpected reply of %d elements", len(res))
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}

	return &task, nil
}

// Len returns the number of waiting tasks.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}

	return n, nil
}

// Ping checks the redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// Close closes the redis connection.
func (q *Queue) Close() error {
	return q.close()
}
