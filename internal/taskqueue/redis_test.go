package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
)

// fakeRedis keeps one list per key with LPUSH/BRPOP semantics.
type fakeRedis struct {
	mu    sync.Mutex
	lists map[string][]string
	err   error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{lists: map[string][]string{}}
}

func (f *fakeRedis) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}

	for _, v := range values {
		f.lists[key] = append([]string{string(v.([]byte))}, f.lists[key]...)
	}

	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) BRPop(ctx context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := f.lists[keys[0]]
	if len(list) == 0 {
		return redis.NewStringSliceResult(nil, redis.Nil)
	}

	last := list[len(list)-1]
	f.lists[keys[0]] = list[:len(list)-1]

	return redis.NewStringSliceResult([]string{keys[0], last}, nil)
}

func (f *fakeRedis) LLen(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func TestQueueFIFO(t *testing.T) {
	fake := newFakeRedis()
	q := newQueue(fake, "", nil)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, domain.Task{Kind: domain.TaskMaterialize, SegmentID: 1, WithAudit: true}))
	require.NoError(t, q.Enqueue(ctx, domain.Task{Kind: domain.TaskVideoExclusion, SegmentID: 2}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	first, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int64(1), first.SegmentID)
	assert.True(t, first.WithAudit)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskVideoExclusion, second.Kind)

	none, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, none)

	assert.NoError(t, q.Ping(ctx))
	assert.NoError(t, q.Close())
}

func TestQueueEnvelope(t *testing.T) {
	fake := newFakeRedis()
	q := newQueue(fake, "tasks", nil)

	require.NoError(t, q.Enqueue(context.Background(), domain.Task{ID: "job-1", Kind: domain.TaskMaterialize, SegmentID: 9, RetryCount: 2}))

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(fake.lists["tasks"][0]), &envelope))

	assert.Equal(t, "job-1", envelope["job_id"])
	assert.Equal(t, "materialize", envelope["kind"])
	assert.Equal(t, float64(9), envelope["segment_id"])
	assert.Equal(t, float64(2), envelope["retry_count"])
}

func TestQueueErrors(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	q := newQueue(fake, "", nil)

	assert.Error(t, q.Enqueue(context.Background(), domain.Task{}))

	fake.lists[DefaultQueueName] = []string{"{not json"}

	_, err := q.Dequeue(context.Background(), time.Second)
	assert.Error(t, err)
}
