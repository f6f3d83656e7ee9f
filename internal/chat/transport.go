// Package chat sends chat-completion requests to a model backend and decodes
// buffered or streamed replies.
package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/hoanghonghuy/commitbot/internal/telemetry"
)

// DefaultTimeout is the ceiling for one backend call, streamed or not.
const DefaultTimeout = 90 * time.Second

// maxErrorBody is how much of a failed reply is kept for diagnostics.
const maxErrorBody = 4 << 10

// Options configures a Transport.
type Options struct {
	Backend string        // label used in errors, logs and metrics
	Timeout time.Duration // per-call ceiling, DefaultTimeout when zero
	Live    io.Writer     // receives streamed deltas as they arrive; nil discards them
	Logger  *zap.Logger
	Metrics *telemetry.Metrics

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Transport issues one HTTP request per call against a chat endpoint.
type Transport struct {
	backend string
	http    *http.Client
	live    io.Writer
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// NewTransport builds a Transport from opts.
func NewTransport(opts Options) *Transport {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.Discard()
	}
	return &Transport{
		backend: opts.Backend,
		http:    hc,
		live:    opts.Live,
		logger:  logger,
		metrics: metrics,
	}
}

// Request is one encoded call plus the codec needed to read its reply.
type Request struct {
	URL    string
	Header http.Header
	Body   []byte

	// DecodeBody extracts the message text from a complete buffered reply.
	DecodeBody func(body []byte) (string, error)
	// DecodeLine classifies one line of a streamed reply.
	DecodeLine DecodeFunc
}

// Send performs the call. In streaming mode deltas are echoed to the live
// writer while they are accumulated; the full text is returned either way.
func (t *Transport) Send(ctx context.Context, req Request, streaming bool) (string, error) {
	mode := "buffered"
	if streaming {
		mode = "stream"
	}
	done := t.metrics.Start(ctx, t.backend, mode)

	started := time.Now()
	text, err := t.send(ctx, req, streaming)
	done(err)

	if err != nil {
		t.logger.Debug("backend call failed",
			zap.String("backend", t.backend),
			zap.String("mode", mode),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return "", err
	}
	t.logger.Debug("backend call finished",
		zap.String("backend", t.backend),
		zap.String("mode", mode),
		zap.Duration("elapsed", time.Since(started)),
		zap.String("reply", humanize.Bytes(uint64(len(text)))))
	return text, nil
}

func (t *Transport) send(ctx context.Context, req Request, streaming bool) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	t.logger.Info("calling model backend",
		zap.String("backend", t.backend),
		zap.String("url", req.URL),
		zap.Bool("stream", streaming),
		zap.String("payload", humanize.Bytes(uint64(len(req.Body)))))

	resp, err := t.http.Do(httpReq)
	if err != nil {
		return "", &BackendError{Backend: t.backend, Err: fmt.Errorf("%w: %w", ErrTransport, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &BackendError{
			Backend: t.backend,
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(slurp)),
			Err:     ErrTransport,
		}
	}

	if streaming {
		text, err := Accumulate(resp.Body, req.DecodeLine, t.live)
		if err != nil {
			if !errors.Is(err, ErrDecode) {
				err = fmt.Errorf("%w: %w", ErrTransport, err)
			}
			return "", &BackendError{Backend: t.backend, Err: err}
		}
		return text, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &BackendError{Backend: t.backend, Err: fmt.Errorf("%w: read body: %w", ErrTransport, err)}
	}
	text, err := req.DecodeBody(body)
	if err != nil {
		return "", &BackendError{Backend: t.backend, Err: err}
	}
	return text, nil
}
