package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testReply struct {
	Text string `json:"text"`
}

func decodeTestBody(body []byte) (string, error) {
	var r testReply
	if err := json.Unmarshal(body, &r); err != nil {
		return "", DecodeErrorf("test reply: %v", err)
	}
	return r.Text, nil
}

func testRequest(url string) Request {
	return Request{
		URL:        url,
		Header:     http.Header{"Authorization": []string{"Bearer k"}},
		Body:       []byte(`{"q":1}`),
		DecodeBody: decodeTestBody,
		DecodeLine: decodeTestLine,
	}
}

func newTestTransport(live io.Writer, hc *http.Client) *Transport {
	return NewTransport(Options{Backend: "test", Live: live, HTTPClient: hc})
}

func TestSendBuffered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"q":1}`, string(b))
		_, _ = w.Write([]byte(`{"text":"summary"}`))
	}))
	defer srv.Close()

	var live bytes.Buffer
	tr := newTestTransport(&live, srv.Client())
	got, err := tr.Send(context.Background(), testRequest(srv.URL), false)
	require.NoError(t, err)
	assert.Equal(t, "summary", got)
	assert.Empty(t, live.String(), "buffered calls must not echo")
}

func TestSendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("  invalid api key \n"))
	}))
	defer srv.Close()

	tr := newTestTransport(nil, srv.Client())
	_, err := tr.Send(context.Background(), testRequest(srv.URL), false)
	require.Error(t, err)

	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "test", be.Backend)
	assert.Equal(t, http.StatusUnauthorized, be.Status)
	assert.Equal(t, "invalid api key", be.Body)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, "test API error: HTTP 401 - invalid api key", err.Error())
}

func TestSendBufferedDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	tr := newTestTransport(nil, srv.Client())
	_, err := tr.Send(context.Background(), testRequest(srv.URL), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))

	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Zero(t, be.Status)
}

func TestSendStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		for _, line := range []string{"+Fix", "+ bug", "END", "+ignored"} {
			fmt.Fprintln(w, line)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	defer srv.Close()

	var live bytes.Buffer
	tr := newTestTransport(&live, srv.Client())
	got, err := tr.Send(context.Background(), testRequest(srv.URL), true)
	require.NoError(t, err)
	assert.Equal(t, "Fix bug", got)
	assert.Equal(t, "Fix bug", live.String())
}

func TestSendStreamingDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "+partial")
		fmt.Fprintln(w, "garbage")
	}))
	defer srv.Close()

	tr := newTestTransport(nil, srv.Client())
	got, err := tr.Send(context.Background(), testRequest(srv.URL), true)
	require.Error(t, err)
	assert.Empty(t, got)
	assert.True(t, errors.Is(err, ErrDecode))
	assert.False(t, errors.Is(err, ErrTransport))
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	hc := srv.Client()
	hc.Timeout = 50 * time.Millisecond
	tr := newTestTransport(nil, hc)
	_, err := tr.Send(context.Background(), testRequest(srv.URL), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))

	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Zero(t, be.Status)
}

func TestSendConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr := newTestTransport(nil, nil)
	_, err := tr.Send(context.Background(), testRequest(url), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Contains(t, err.Error(), "test request failed")
}
