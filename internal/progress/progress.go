// Package progress shows how many per-file summaries have been attempted.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// Counter is a silent, concurrency-safe progress sink.
type Counter struct {
	mu    sync.Mutex
	done  int
	total int
}

// NewCounter returns a Counter expecting total items.
func NewCounter(total int) *Counter {
	return &Counter{total: total}
}

// Advance records n more attempted items.
func (c *Counter) Advance(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	c.done += n
	c.mu.Unlock()
}

// Done returns the number of attempted items so far.
func (c *Counter) Done() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Total returns the expected number of items.
func (c *Counter) Total() int {
	return c.total
}

// Tracker is a Counter rendered as a terminal spinner.
type Tracker struct {
	Counter
	label string
	spin  *spinner.Spinner
}

// NewTracker creates a spinner on w labelled with label, e.g. "Summarizing files".
func NewTracker(w io.Writer, label string, total int) *Tracker {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	t := &Tracker{
		Counter: Counter{total: total},
		label:   label,
		spin:    s,
	}
	s.Suffix = t.suffix(0)
	return t
}

// Start begins rendering.
func (t *Tracker) Start() { t.spin.Start() }

// Stop clears the spinner line.
func (t *Tracker) Stop() { t.spin.Stop() }

// Advance records n attempted items and refreshes the spinner suffix.
func (t *Tracker) Advance(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	t.done += n
	done := t.done
	t.mu.Unlock()

	t.spin.Lock()
	t.spin.Suffix = t.suffix(done)
	t.spin.Unlock()
}

func (t *Tracker) suffix(done int) string {
	return fmt.Sprintf(" %s (%d/%d)...", t.label, done, t.total)
}

// Wait shows an indeterminate spinner with label until the returned stop function is called.
func Wait(w io.Writer, label string) (stop func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + label
	s.Start()
	var once sync.Once
	return func() { once.Do(s.Stop) }
}
