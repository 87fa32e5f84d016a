package pool

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireUpToCapacitySucceeds(t *testing.T) {
	p := NewJobPool(&Config{MaxConcurrentJobs: 2}, nil)
	ctx := context.Background()

	require.NoError(t, p.Acquire(ctx, "job-1"))
	require.NoError(t, p.Acquire(ctx, "job-2"))

	require.Equal(t, 2, p.Stats().InUse)
}

func TestAcquireBlocksBeyondCapacityUntilContextCancelled(t *testing.T) {
	p := NewJobPool(&Config{MaxConcurrentJobs: 1}, nil)
	ctx := context.Background()
	require.NoError(t, p.Acquire(ctx, "job-1"))

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	err := p.Acquire(cancelCtx, "job-2")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReleaseFreesSlotForNextAcquire(t *testing.T) {
	p := NewJobPool(&Config{MaxConcurrentJobs: 1}, nil)
	ctx := context.Background()
	require.NoError(t, p.Acquire(ctx, "job-1"))
	p.Release("job-1")

	require.NoError(t, p.Acquire(ctx, "job-2"))
	require.Equal(t, 1, p.Stats().InUse)
}

func TestTouchChunkIncrementsChunkRuns(t *testing.T) {
	p := NewJobPool(&Config{MaxConcurrentJobs: 1}, nil)
	ctx := context.Background()
	require.NoError(t, p.Acquire(ctx, "job-1"))

	p.TouchChunk("job-1")
	p.TouchChunk("job-1")

	require.Equal(t, int64(2), p.Stats().Jobs["job-1"].ChunkRuns)
}

func TestConcurrentAcquireReleaseNeverExceedsCapacity(t *testing.T) {
	p := NewJobPool(&Config{MaxConcurrentJobs: 3}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var maxObserved int
	var mu sync.Mutex

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			jobID := "job-" + strconv.Itoa(n)
			if err := p.Acquire(ctx, jobID); err != nil {
				return
			}
			mu.Lock()
			if inUse := p.Stats().InUse; inUse > maxObserved {
				maxObserved = inUse
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			p.Release(jobID)
		}(i)
	}
	wg.Wait()

	require.LessOrEqual(t, maxObserved, 3)
}

func TestDefaultConfigUsedWhenNilPassed(t *testing.T) {
	p := NewJobPool(nil, nil)
	require.Equal(t, 2, p.Stats().Capacity)
}
