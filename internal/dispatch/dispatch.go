// Package dispatch runs independent model calls in bounded batches and
// returns their results in submission order.
package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Progress is advanced once per attempted item, whatever its outcome.
// Implementations must be safe for concurrent use.
type Progress interface {
	Advance(n int)
}

// CallFunc performs the work for one item.
type CallFunc[T any] func(ctx context.Context, item T) (string, error)

// Outcome is the result of one item, keyed by its position in the submitted slice.
type Outcome struct {
	Index int
	Text  string
	Err   error
}

// ItemError is the failure surfaced for a dispatch: the lowest-index failed item.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Plan partitions n items into consecutive batches of at most limit items.
// A limit below one is treated as one.
func Plan(n, limit int) [][]int {
	if limit < 1 {
		limit = 1
	}
	if n <= 0 {
		return nil
	}

	batches := make([][]int, 0, (n+limit-1)/limit)
	for start := 0; start < n; start += limit {
		end := min(start+limit, n)
		batch := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, i)
		}
		batches = append(batches, batch)
	}
	return batches
}

// Dispatcher runs calls in batches. Batches run strictly one after another;
// the items of a batch run concurrently and all of them finish before the next
// batch starts, so at most Limit calls are ever in flight.
type Dispatcher struct {
	Limit  int
	Logger *zap.Logger
}

// Run executes call for every item and returns the texts in item order.
// A failing item never cancels its siblings. When any item fails, the error of
// the lowest-index failure is returned as an *ItemError once every batch is done.
func Run[T any](ctx context.Context, d Dispatcher, items []T, call CallFunc[T], progress Progress) ([]string, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(items) == 0 {
		return []string{}, nil
	}

	outcomes := collect(ctx, d.Limit, items, call, progress, logger)

	for _, o := range outcomes {
		if o.Err != nil {
			return nil, &ItemError{Index: o.Index, Err: o.Err}
		}
	}

	texts := make([]string, len(outcomes))
	for i, o := range outcomes {
		texts[i] = o.Text
	}
	return texts, nil
}

// collect runs every batch and returns one Outcome per item, indexed by position.
func collect[T any](ctx context.Context, limit int, items []T, call CallFunc[T], progress Progress, logger *zap.Logger) []Outcome {
	outcomes := make([]Outcome, len(items))
	batches := Plan(len(items), limit)

	for b, batch := range batches {
		logger.Debug("dispatching batch",
			zap.Int("batch", b+1),
			zap.Int("batches", len(batches)),
			zap.Int("size", len(batch)))

		var g errgroup.Group
		for _, idx := range batch {
			item := items[idx]
			g.Go(func() error {
				text, err := call(ctx, item)
				if progress != nil {
					progress.Advance(1)
				}
				if err != nil {
					logger.Debug("item failed", zap.Int("index", idx), zap.Error(err))
				}
				// Each worker owns exactly one slot.
				outcomes[idx] = Outcome{Index: idx, Text: text, Err: err}
				return nil
			})
		}
		_ = g.Wait()
	}
	return outcomes
}
