package ai

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hoanghonghuy/commitbot/internal/dispatch"
)

// SummarizeOptions controls the fan-out of per-file summary requests.
type SummarizeOptions struct {
	Branch        string
	TicketSummary string
	MaxConcurrent int
	Progress      dispatch.Progress
	Logger        *zap.Logger
}

// WorkItems builds one request per non-ignored file, keeping each file's index.
func WorkItems(files []FileChange, branch, ticketSummary string) []WorkItem {
	items := make([]WorkItem, 0, len(files))
	for i, f := range files {
		if f.Category == CategoryIgnored {
			continue
		}
		items = append(items, WorkItem{
			Index:         i,
			Branch:        branch,
			Path:          f.Path,
			Category:      f.Category,
			Diff:          f.Diff,
			TicketSummary: ticketSummary,
		})
	}
	return items
}

// SummarizeFiles asks p for a summary of every non-ignored file, at most
// opts.MaxConcurrent at a time, and returns a copy of files with Summary filled in.
// Ignored files are counted as done on the progress sink before any request starts.
// If any request fails, the failure of the earliest file is returned and no summaries are kept.
func SummarizeFiles(ctx context.Context, p Provider, files []FileChange, opts SummarizeOptions) ([]FileChange, error) {
	items := WorkItems(files, opts.Branch, opts.TicketSummary)
	if skipped := len(files) - len(items); skipped > 0 && opts.Progress != nil {
		opts.Progress.Advance(skipped)
	}

	d := dispatch.Dispatcher{Limit: opts.MaxConcurrent, Logger: opts.Logger}
	summaries, err := dispatch.Run(ctx, d, items, p.SummarizeFile, opts.Progress)
	if err != nil {
		var ie *dispatch.ItemError
		if errors.As(err, &ie) {
			return nil, fmt.Errorf("summarize %s: %w", items[ie.Index].Path, ie.Err)
		}
		return nil, err
	}

	out := make([]FileChange, len(files))
	copy(out, files)
	for i, item := range items {
		out[item.Index].Summary = summaries[i]
	}
	return out, nil
}
