package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderSummary(t *testing.T) {
	ctx := context.Background()
	rec, err := NewRecorder()
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Shutdown(ctx) })

	rec.Metrics.Start(ctx, "openai", "buffered")(nil)
	rec.Metrics.Start(ctx, "openai", "buffered")(errors.New("boom"))
	done := rec.Metrics.Start(ctx, "ollama", "stream")

	sum, err := rec.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.Requests)
	assert.Equal(t, int64(1), sum.Errors)
	assert.Equal(t, int64(1), sum.InflightNow)
	assert.Equal(t, int64(2), sum.RequestsByMode["buffered"])

	done(nil)
	sum, err = rec.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Requests)
	assert.Equal(t, int64(0), sum.InflightNow)
	assert.Equal(t, int64(1), sum.RequestsByMode["stream"])
}

func TestDiscardDoesNotPanic(t *testing.T) {
	m := Discard()
	require.NotNil(t, m)
	m.Start(context.Background(), "openai", "buffered")(nil)
}
