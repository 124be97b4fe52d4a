package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("id%03d", i)
	}

	return out
}

func TestPartition_RemainderDistribution(t *testing.T) {
	tests := []struct {
		n       int
		workers int
		sizes   []int
	}{
		{n: 10, workers: 3, sizes: []int{4, 3, 3}},
		{n: 9, workers: 3, sizes: []int{3, 3, 3}},
		{n: 11, workers: 4, sizes: []int{3, 3, 3, 2}},
		{n: 2, workers: 5, sizes: []int{1, 1}},
		{n: 5, workers: 0, sizes: []int{5}},
		{n: 0, workers: 3, sizes: nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.n, tt.workers), func(t *testing.T) {
			items := ids(tt.n)
			parts := Partition(items, tt.workers)

			var sizes []int

			var joined []string

			for _, p := range parts {
				sizes = append(sizes, len(p))
				joined = append(joined, p...)
			}

			assert.Equal(t, tt.sizes, sizes)

			if tt.n > 0 {
				assert.Equal(t, items, joined, "no loss, no duplication, order kept")
			}
		})
	}
}

func TestPartition_NeverLosesItems(t *testing.T) {
	for n := 0; n < 50; n++ {
		for workers := 1; workers < 12; workers++ {
			total := 0
			for _, p := range Partition(ids(n), workers) {
				assert.NotEmpty(t, p)
				total += len(p)
			}

			assert.Equal(t, n, total)
		}
	}
}

func TestRun_MergesOwnedResults(t *testing.T) {
	results, err := Run(context.Background(), ids(10), 3, func(_ context.Context, sub []string) ([]string, error) {
		out := make([]string, len(sub))
		for i, id := range sub {
			out[i] = "seen:" + id
		}

		return out, nil
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	var all []string
	for _, r := range results {
		all = append(all, r...)
	}

	sort.Strings(all)
	assert.Len(t, all, 10)
	assert.Equal(t, "seen:id000", all[0])
	assert.Equal(t, []string{"seen:id000", "seen:id001", "seen:id002", "seen:id003"}, results[0])
}

func TestRun_WorkerFailureFailsBatch(t *testing.T) {
	boom := errors.New("fetch failed")

	var cancelled atomic.Int32

	results, err := Run(context.Background(), ids(6), 3, func(ctx context.Context, sub []string) (int, error) {
		if sub[0] == "id000" {
			return 0, boom
		}

		<-ctx.Done()
		cancelled.Add(1)

		return len(sub), nil
	})

	require.Error(t, err)
	assert.Nil(t, results)
	assert.True(t, errors.Is(err, apperrors.ErrWorkerFailed))
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, int32(2), cancelled.Load())
}

func TestRun_EmptyBatch(t *testing.T) {
	called := false

	results, err := Run(context.Background(), nil, 4, func(context.Context, []string) (int, error) {
		called = true

		return 0, nil
	})

	require.NoError(t, err)
	assert.Nil(t, results)
	assert.False(t, called)
}

type fakeSource struct {
	batches [][]string
	pos     int
}

func (s *fakeSource) next(context.Context) ([]string, error) {
	if s.pos >= len(s.batches) {
		return nil, nil
	}

	b := s.batches[s.pos]
	s.pos++

	return b, nil
}

func TestMasterLoop_PersistsAfterJoinAndAdvances(t *testing.T) {
	src := &fakeSource{batches: [][]string{ids(5), ids(3)}}

	var persisted [][]int

	var advanced []int

	loop := &MasterLoop[int]{
		Name:    "test",
		Workers: 2,
		Next:    src.next,
		Work: func(_ context.Context, sub []string) (int, error) {
			return len(sub), nil
		},
		Persist: func(_ context.Context, _ []string, results []int) error {
			persisted = append(persisted, results)

			return nil
		},
		Advance: func(_ context.Context, batch []string) error {
			advanced = append(advanced, len(batch))

			return nil
		},
	}

	stats, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, LoopStats{Batches: 2, Items: 8}, stats)
	assert.Equal(t, [][]int{{3, 2}, {2, 1}}, persisted)
	assert.Equal(t, []int{5, 3}, advanced)
}

func TestMasterLoop_WorkerFailureSkipsPersistAndAdvance(t *testing.T) {
	src := &fakeSource{batches: [][]string{ids(4), ids(4)}}
	persisted := false
	advanced := false

	loop := &MasterLoop[int]{
		Name:    "test",
		Workers: 2,
		Next:    src.next,
		Work: func(context.Context, []string) (int, error) {
			return 0, errors.New("boom")
		},
		Persist: func(context.Context, []string, []int) error {
			persisted = true

			return nil
		},
		Advance: func(context.Context, []string) error {
			advanced = true

			return nil
		},
	}

	stats, err := loop.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrWorkerFailed))
	assert.Zero(t, stats.Batches)
	assert.False(t, persisted)
	assert.False(t, advanced)
}

func TestMasterLoop_MaxBatches(t *testing.T) {
	src := &fakeSource{batches: [][]string{ids(1), ids(1), ids(1)}}

	loop := &MasterLoop[int]{
		Name:       "test",
		Workers:    1,
		Next:       src.next,
		MaxBatches: 2,
		Work: func(context.Context, []string) (int, error) {
			return 1, nil
		},
	}

	stats, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Batches)
}
