package chat

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// FrameKind classifies one decoded line of a streamed reply.
type FrameKind int

const (
	// Skip carries no content (blank line, comment, keep-alive, empty delta).
	Skip FrameKind = iota
	// Delta carries a fragment of generated text.
	Delta
	// End is the backend's end-of-stream sentinel.
	End
)

func (k FrameKind) String() string {
	switch k {
	case Delta:
		return "delta"
	case End:
		return "end"
	default:
		return "skip"
	}
}

// Frame is one decoded unit of a streamed reply.
type Frame struct {
	Kind FrameKind
	Text string
}

// SkipFrame, EndFrame and DeltaFrame build the three frame shapes.
func SkipFrame() Frame { return Frame{Kind: Skip} }
func EndFrame() Frame { return Frame{Kind: End} }
func DeltaFrame(text string) Frame { return Frame{Kind: Delta, Text: text} }

// DecodeFunc classifies a single non-empty line of wire input.
// A returned error aborts the stream.
type DecodeFunc func(line string) (Frame, error)

// maxLineSize bounds a single streamed line; long JSON frames are allowed.
const maxLineSize = 1024 * 1024

type flusher interface {
	Flush() error
}

// Accumulate reads r line by line, feeds each line to decode and returns the
// concatenation of all deltas. Every delta is also written to sink as soon as it
// arrives. Reading stops at the first End frame; EOF without End is an implicit end.
// On a decode or read error no partial text is returned.
func Accumulate(r io.Reader, decode DecodeFunc, sink io.Writer) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var acc strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		frame, err := decode(line)
		if err != nil {
			return "", err
		}

		switch frame.Kind {
		case End:
			return acc.String(), nil
		case Delta:
			acc.WriteString(frame.Text)
			echo(sink, frame.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	return acc.String(), nil
}

// echo is best effort: a broken console must not abort generation.
func echo(sink io.Writer, text string) {
	if sink == nil {
		return
	}
	if _, err := io.WriteString(sink, text); err != nil {
		return
	}
	if f, ok := sink.(flusher); ok {
		_ = f.Flush()
	}
}
