package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Run_AllSucceed(t *testing.T) {
	outcome := Run(context.Background(), []int{1, 2, 3}, 2, func(_ context.Context, n int) (int, error) {
		return n * 10, nil
	})

	assert.Equal(t, 3, outcome.Total)
	assert.Equal(t, 3, outcome.SuccessCount)
	assert.Equal(t, 0, outcome.ErrorCount)
	assert.ElementsMatch(t, []int{10, 20, 30}, outcome.Results)
	assert.Empty(t, outcome.Errors)
}

func Test_Run_PartialFailure(t *testing.T) {
	outcome := Run(context.Background(), []int{1, 2, 3, 4}, 2, func(_ context.Context, n int) (int, error) {
		if n == 3 {
			return 0, errors.New("duplicate name")
		}
		return n, nil
	})

	assert.Equal(t, 4, outcome.Total)
	assert.Equal(t, 3, outcome.SuccessCount)
	assert.Equal(t, 1, outcome.ErrorCount)
	assert.Equal(t, outcome.Total, outcome.SuccessCount+outcome.ErrorCount)

	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, 3, outcome.Errors[0].Input, "failure carries the original input")
	assert.Equal(t, "duplicate name", outcome.Errors[0].Reason)
	assert.ElementsMatch(t, []int{1, 2, 4}, outcome.Results)
}

func Test_Run_OneFailureDoesNotAbortOthers(t *testing.T) {
	var applied atomic.Int32
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	outcome := Run(context.Background(), items, 4, func(_ context.Context, n int) (int, error) {
		if n == 0 {
			return 0, errors.New("boom")
		}
		applied.Add(1)
		return n, nil
	})

	assert.Equal(t, 19, int(applied.Load()))
	assert.Equal(t, 19, outcome.SuccessCount)
	assert.Equal(t, 1, outcome.ErrorCount)
}

func Test_Run_EmptyInput(t *testing.T) {
	outcome := Run(context.Background(), []string{}, 4, func(_ context.Context, s string) (string, error) {
		t.Fatal("fn must not run for an empty batch")
		return s, nil
	})

	assert.Equal(t, 0, outcome.Total)
	assert.NotNil(t, outcome.Results, "empty slices serialize as [], not null")
	assert.NotNil(t, outcome.Errors)
}

func Test_Run_CanceledContextRecordsFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := Run(ctx, []int{1, 2, 3}, 1, func(_ context.Context, n int) (int, error) {
		t.Fatal("fn must not run once the context is canceled")
		return n, nil
	})

	assert.Equal(t, 3, outcome.Total)
	assert.Equal(t, 0, outcome.SuccessCount)
	assert.Equal(t, 3, outcome.ErrorCount)
	for _, failure := range outcome.Errors {
		assert.Equal(t, context.Canceled.Error(), failure.Reason)
	}
}

func Test_Run_RespectsWorkerLimit(t *testing.T) {
	var current, peak atomic.Int32

	items := make([]int, 16)
	outcome := Run(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		in := current.Add(1)
		for {
			p := peak.Load()
			if in <= p || peak.CompareAndSwap(p, in) {
				break
			}
		}
		defer current.Add(-1)
		return n, nil
	})

	assert.Equal(t, 16, outcome.SuccessCount)
	assert.LessOrEqual(t, int(peak.Load()), 2)
}

func Test_Run_FailureReasonsAreDistinct(t *testing.T) {
	outcome := Run(context.Background(), []int{1, 2}, 2, func(_ context.Context, n int) (int, error) {
		return 0, fmt.Errorf("item %d rejected", n)
	})

	reasons := []string{outcome.Errors[0].Reason, outcome.Errors[1].Reason}
	assert.ElementsMatch(t, []string{"item 1 rejected", "item 2 rejected"}, reasons)
}
