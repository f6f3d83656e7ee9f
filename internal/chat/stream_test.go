package chat

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeTestLine understands a toy protocol: "+text" is a delta, "END" ends,
// lines starting with "#" are skipped and anything else is malformed.
func decodeTestLine(line string) (Frame, error) {
	switch {
	case line == "END":
		return EndFrame(), nil
	case strings.HasPrefix(line, "+"):
		return DeltaFrame(strings.TrimPrefix(line, "+")), nil
	case strings.HasPrefix(line, "#"):
		return SkipFrame(), nil
	default:
		return Frame{}, DecodeErrorf("unexpected line %q", line)
	}
}

func TestAccumulate(t *testing.T) {
	tests := []struct {
		name string
		wire string
		want string
		echo string
	}{
		{
			name: "deltas then end",
			wire: "+Hello\n+_world\nEND\n",
			want: "Hello_world",
			echo: "Hello_world",
		},
		{
			name: "blank lines and comments skipped",
			wire: "\n# keep-alive\n+a\n\n\n+b\nEND\n",
			want: "ab",
			echo: "ab",
		},
		{
			name: "eof without end",
			wire: "+partial\n+text",
			want: "partialtext",
			echo: "partialtext",
		},
		{
			name: "end discards buffered remainder",
			wire: "+kept\nEND\n+dropped\nnot even valid\n",
			want: "kept",
			echo: "kept",
		},
		{
			name: "empty stream",
			wire: "",
			want: "",
			echo: "",
		},
		{
			name: "crlf framing",
			wire: "+x\r\n+y\r\nEND\r\n",
			want: "xy",
			echo: "xy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sink bytes.Buffer
			got, err := Accumulate(strings.NewReader(tt.wire), decodeTestLine, &sink)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.echo, sink.String())
		})
	}
}

func TestAccumulateDecodeErrorDiscardsText(t *testing.T) {
	var sink bytes.Buffer
	got, err := Accumulate(strings.NewReader("+one\n+two\n{broken\n+three\n"), decodeTestLine, &sink)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
	assert.Empty(t, got)
	// Deltas before the failure were already echoed live.
	assert.Equal(t, "onetwo", sink.String())
}

func TestAccumulateIsRepeatable(t *testing.T) {
	wire := "+Fix\n+ bug\nEND\n"
	first, err := Accumulate(strings.NewReader(wire), decodeTestLine, nil)
	require.NoError(t, err)
	second, err := Accumulate(strings.NewReader(wire), decodeTestLine, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

type flushCounter struct {
	bytes.Buffer
	flushes int
}

func (f *flushCounter) Flush() error {
	f.flushes++
	return nil
}

func TestAccumulateFlushesAfterEachDelta(t *testing.T) {
	sink := &flushCounter{}
	_, err := Accumulate(strings.NewReader("+a\n# skip\n+b\n+c\nEND\n"), decodeTestLine, sink)
	require.NoError(t, err)
	assert.Equal(t, 3, sink.flushes)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("console gone") }

func TestAccumulateIgnoresSinkErrors(t *testing.T) {
	got, err := Accumulate(strings.NewReader("+still\n+works\n"), decodeTestLine, failingWriter{})
	require.NoError(t, err)
	assert.Equal(t, "stillworks", got)
}
