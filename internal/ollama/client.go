// Package ollama talks to a local Ollama server through /api/chat.
package ollama

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/hoanghonghuy/commitbot/internal/ai"
	"github.com/hoanghonghuy/commitbot/internal/chat"
	"github.com/hoanghonghuy/commitbot/internal/prompt"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	backendName    = "Ollama"
)

// Config holds Ollama specific settings
type Config struct {
	BaseURL string // e.g. "http://localhost:11434"
	Model   string // e.g. "llama3"
	Stream  bool

	LogPrompts bool
}

// Client implements ai.Provider for Ollama
type Client struct {
	cfg       Config
	url       string
	transport *chat.Transport
	logger    *zap.Logger
}

var _ ai.Provider = (*Client)(nil)

func New(cfg Config, opts chat.Options) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	opts.Backend = backendName
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:       cfg,
		url:       base + "/api/chat",
		transport: chat.NewTransport(opts),
		logger:    logger,
	}
}

type chatRequest struct {
	Model    string           `json:"model"`
	Stream   bool             `json:"stream"`
	Messages []prompt.Message `json:"messages"`
}

type chatResponse struct {
	Message *prompt.Message `json:"message"`
	Done    bool            `json:"done"`
	Error   string          `json:"error,omitempty"`
}

func (c *Client) SummarizeFile(ctx context.Context, item ai.WorkItem) (string, error) {
	p := prompt.FileSummary(item)
	prompt.Log(c.logger, "summarize_file", p, 2000, c.cfg.LogPrompts)
	return c.chat(ctx, p, false)
}

func (c *Client) GenerateCommitMessage(ctx context.Context, branch string, files []ai.FileChange, ticketSummary string) (string, error) {
	p := prompt.CommitMessage(branch, files, ticketSummary)
	prompt.Log(c.logger, "commit_message", p, 3000, c.cfg.LogPrompts)
	return c.chat(ctx, p, c.cfg.Stream)
}

func (c *Client) GenerateCommitMessageSimple(ctx context.Context, branch, diff, ticketSummary string) (string, error) {
	p := prompt.CommitMessageSimple(branch, diff, ticketSummary)
	prompt.Log(c.logger, "commit_message_simple", p, 3000, c.cfg.LogPrompts)
	return c.chat(ctx, p, c.cfg.Stream)
}

func (c *Client) GeneratePRMessage(ctx context.Context, req ai.PRRequest) (string, error) {
	p := prompt.PRMessage(req)
	prompt.Log(c.logger, "pr_message", p, 3500, c.cfg.LogPrompts)
	return c.chat(ctx, p, c.cfg.Stream)
}

func (c *Client) chat(ctx context.Context, p prompt.Pair, stream bool) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.cfg.Model,
		Stream:   stream,
		Messages: p.Messages(),
	})
	if err != nil {
		return "", err
	}
	return c.transport.Send(ctx, chat.Request{
		URL:        c.url,
		Body:       body,
		DecodeBody: decodeBody,
		DecodeLine: decodeStreamLine,
	}, stream)
}

func decodeBody(body []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", chat.DecodeErrorf("decode chat response: %v", err)
	}
	if resp.Error != "" {
		return "", chat.DecodeErrorf("error reply: %s", resp.Error)
	}
	if resp.Message == nil {
		return "", chat.DecodeErrorf("reply has no message")
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// decodeStreamLine reads one NDJSON object. A done object ends the stream even if it carries text.
func decodeStreamLine(line string) (chat.Frame, error) {
	var resp chatResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return chat.Frame{}, chat.DecodeErrorf("decode stream chunk: %v", err)
	}
	if resp.Error != "" {
		return chat.Frame{}, chat.DecodeErrorf("stream error: %s", resp.Error)
	}
	if resp.Done {
		return chat.EndFrame(), nil
	}
	if resp.Message == nil || resp.Message.Content == "" {
		return chat.SkipFrame(), nil
	}
	return chat.DeltaFrame(resp.Message.Content), nil
}
