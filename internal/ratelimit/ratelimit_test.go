package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBurstWithinBudgetNeverBlocks(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		err := r.Acquire(ctx, "steamspy", 5, time.Second)
		require.NoError(t, err)
	}
	require.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestExceedingBudgetBlocksUntilOldestExpires(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()
	period := 500 * time.Millisecond

	start := time.Now()
	require.NoError(t, r.Acquire(ctx, "steamstore", 2, period))
	require.NoError(t, r.Acquire(ctx, "steamstore", 2, period))
	require.Less(t, time.Since(start), 100*time.Millisecond)

	require.NoError(t, r.Acquire(ctx, "steamstore", 2, period))
	require.GreaterOrEqual(t, time.Since(start), 450*time.Millisecond)
}

func TestReconfigurationDropsOldWindow(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	require.NoError(t, r.Acquire(ctx, "gamalytic", 1, time.Hour))

	// a fresh budget must not inherit the hour-long timestamp above
	start := time.Now()
	require.NoError(t, r.Acquire(ctx, "gamalytic", 2, time.Second))
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Acquire(context.Background(), "steamcharts", 1, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := r.Acquire(ctx, "steamcharts", 1, time.Hour)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestConcurrentAcquiresShareOneBudget(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()
	period := 400 * time.Millisecond

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Acquire(ctx, "howlongtobeat", 2, period)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	// 4 admissions against a 2-per-period budget needs at least one
	// full window to pass
	require.GreaterOrEqual(t, time.Since(start), 350*time.Millisecond)
}

func TestSeparateOwnersDoNotContend(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	require.NoError(t, r.Acquire(ctx, "a", 1, time.Hour))

	start := time.Now()
	require.NoError(t, r.Acquire(ctx, "b", 1, time.Hour))
	require.Less(t, time.Since(start), 100*time.Millisecond)
}
