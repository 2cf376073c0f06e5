package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelizeNCoversEveryItemOnce(t *testing.T) {
	for _, parts := range []int{1, 3, 4, 16, 200} {
		seen := make([]int32, 100)
		ParallelizeN(100, parts, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, c := range seen {
			require.Equal(t, int32(1), c, "parts=%d item=%d", parts, i)
		}
	}
}

func TestForEachBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	var mu sync.Mutex
	done := make([]bool, 20)

	err := ForEach(context.Background(), 20, 3, func(_ context.Context, i int) error {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		mu.Lock()
		done[i] = true
		mu.Unlock()
		atomic.AddInt32(&inFlight, -1)
		return nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak, int32(3))
	for i, d := range done {
		assert.True(t, d, "task %d not run", i)
	}
}

func TestForEachStopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	var ran int32
	err := ForEach(context.Background(), 50, 1, func(_ context.Context, i int) error {
		atomic.AddInt32(&ran, 1)
		if i == 2 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Less(t, atomic.LoadInt32(&ran), int32(50))
}

func TestForEachHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran int32
	err := ForEach(ctx, 10, 2, func(context.Context, int) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), ran)
}
