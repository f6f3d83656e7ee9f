package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingProgress struct{ n atomic.Int64 }

func (p *countingProgress) Advance(n int) { p.n.Add(int64(n)) }

// gauge records the high-water mark of concurrently active calls.
type gauge struct {
	mu     sync.Mutex
	active int
	peak   int
}

func (g *gauge) enter() {
	g.mu.Lock()
	g.active++
	if g.active > g.peak {
		g.peak = g.active
	}
	g.mu.Unlock()
}

func (g *gauge) leave() {
	g.mu.Lock()
	g.active--
	g.mu.Unlock()
}

func TestPlan(t *testing.T) {
	tests := []struct {
		n, limit int
		want     [][]int
	}{
		{0, 3, nil},
		{1, 8, [][]int{{0}}},
		{3, 2, [][]int{{0, 1}, {2}}},
		{4, 2, [][]int{{0, 1}, {2, 3}}},
		{3, 0, [][]int{{0}, {1}, {2}}},
		{3, -5, [][]int{{0}, {1}, {2}}},
		{2, 10, [][]int{{0, 1}}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d,limit=%d", tt.n, tt.limit), func(t *testing.T) {
			assert.Equal(t, tt.want, Plan(tt.n, tt.limit))
		})
	}
}

func TestRunPreservesOrderAndCountsProgress(t *testing.T) {
	for limit := 0; limit <= 5; limit++ {
		for n := 0; n <= 9; n++ {
			t.Run(fmt.Sprintf("limit=%d,n=%d", limit, n), func(t *testing.T) {
				items := make([]int, n)
				for i := range items {
					items[i] = i
				}
				progress := &countingProgress{}
				g := &gauge{}

				got, err := Run(context.Background(), Dispatcher{Limit: limit}, items,
					func(_ context.Context, item int) (string, error) {
						g.enter()
						defer g.leave()
						// Later items finish first within a batch.
						time.Sleep(time.Duration(n-item) * time.Millisecond)
						return fmt.Sprintf("summary-%d", item), nil
					}, progress)
				require.NoError(t, err)
				require.Len(t, got, n)
				for i, s := range got {
					assert.Equal(t, fmt.Sprintf("summary-%d", i), s)
				}
				assert.Equal(t, int64(n), progress.n.Load())

				effective := max(limit, 1)
				assert.LessOrEqual(t, g.peak, effective)
			})
		}
	}
}

func TestRunEmpty(t *testing.T) {
	calls := 0
	got, err := Run(context.Background(), Dispatcher{Limit: 4}, []string{},
		func(context.Context, string) (string, error) {
			calls++
			return "", nil
		}, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, calls)
}

func TestRunSurfacesFailureOfMiddleItem(t *testing.T) {
	errB := errors.New("backend said no")
	progress := &countingProgress{}
	var calls atomic.Int64

	_, err := Run(context.Background(), Dispatcher{Limit: 2}, []string{"A", "B", "C"},
		func(_ context.Context, item string) (string, error) {
			calls.Add(1)
			if item == "B" {
				return "", errB
			}
			return "ok " + item, nil
		}, progress)
	require.Error(t, err)

	var ie *ItemError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 1, ie.Index)
	assert.True(t, errors.Is(err, errB))
	assert.Equal(t, int64(3), progress.n.Load())
	assert.Equal(t, int64(3), calls.Load(), "later batches still run after a failure")
}

func TestRunReportsLowestIndexNotFirstInTime(t *testing.T) {
	errSlow := errors.New("slow failure")
	errFast := errors.New("fast failure")

	_, err := Run(context.Background(), Dispatcher{Limit: 3}, []int{0, 1, 2},
		func(_ context.Context, item int) (string, error) {
			switch item {
			case 0:
				time.Sleep(40 * time.Millisecond)
				return "", errSlow
			case 2:
				return "", errFast
			}
			return "fine", nil
		}, nil)
	require.Error(t, err)

	var ie *ItemError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 0, ie.Index)
	assert.True(t, errors.Is(err, errSlow))
	assert.False(t, errors.Is(err, errFast))
}

func TestRunDoesNotCancelSiblings(t *testing.T) {
	var finished atomic.Int64
	_, err := Run(context.Background(), Dispatcher{Limit: 4}, []int{0, 1, 2, 3},
		func(ctx context.Context, item int) (string, error) {
			if item == 0 {
				return "", errors.New("boom")
			}
			select {
			case <-time.After(20 * time.Millisecond):
				finished.Add(1)
				return "done", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}, nil)
	require.Error(t, err)
	assert.Equal(t, int64(3), finished.Load())
}

func TestRunBatchBarrier(t *testing.T) {
	var mu sync.Mutex
	var events []string
	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}

	_, err := Run(context.Background(), Dispatcher{Limit: 2}, []int{0, 1, 2},
		func(_ context.Context, item int) (string, error) {
			record(fmt.Sprintf("start-%d", item))
			if item == 1 {
				time.Sleep(30 * time.Millisecond)
			}
			record(fmt.Sprintf("end-%d", item))
			return "", nil
		}, nil)
	require.NoError(t, err)

	pos := map[string]int{}
	for i, e := range events {
		pos[e] = i
	}
	assert.Greater(t, pos["start-2"], pos["end-0"])
	assert.Greater(t, pos["start-2"], pos["end-1"])
}

func TestRunZeroLimitIsSequential(t *testing.T) {
	g := &gauge{}
	_, err := Run(context.Background(), Dispatcher{Limit: 0}, []int{0, 1, 2, 3},
		func(context.Context, int) (string, error) {
			g.enter()
			defer g.leave()
			time.Sleep(5 * time.Millisecond)
			return "", nil
		}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, g.peak)
}

func TestRunReachesLimit(t *testing.T) {
	g := &gauge{}
	start := make(chan struct{})
	var entered atomic.Int64

	go func() {
		for entered.Load() < 3 {
			time.Sleep(time.Millisecond)
		}
		close(start)
	}()

	_, err := Run(context.Background(), Dispatcher{Limit: 3}, []int{0, 1, 2},
		func(context.Context, int) (string, error) {
			g.enter()
			defer g.leave()
			entered.Add(1)
			<-start
			return "", nil
		}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, g.peak)
}
