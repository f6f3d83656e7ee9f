package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks network failures, timeouts and non-2xx replies.
	ErrTransport = errors.New("transport error")
	// ErrDecode marks replies or stream frames that are not the expected JSON shape.
	ErrDecode = errors.New("decode error")
	// ErrConfig marks a missing or invalid setting detected before any request is sent.
	ErrConfig = errors.New("config error")
)

// BackendError describes a failed call to a model backend.
type BackendError struct {
	Backend string // "OpenAI" or "Ollama"
	Status  int    // HTTP status, 0 when no response was received
	Body    string // leading part of the error body returned by the backend
	Err     error
}

func (e *BackendError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("%s API error: HTTP %d - %s", e.Backend, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("%s API error: HTTP %d", e.Backend, e.Status)
	case errors.Is(e.Err, ErrDecode):
		return fmt.Sprintf("%s response invalid: %v", e.Backend, e.Err)
	default:
		return fmt.Sprintf("%s request failed: %v", e.Backend, e.Err)
	}
}

func (e *BackendError) Unwrap() error { return e.Err }

// DecodeErrorf formats a decode failure so that errors.Is(err, ErrDecode) holds.
func DecodeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
}
