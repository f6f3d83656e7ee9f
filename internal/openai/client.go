// Package openai talks to OpenAI-compatible chat completion endpoints.
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/hoanghonghuy/commitbot/internal/ai"
	"github.com/hoanghonghuy/commitbot/internal/chat"
	"github.com/hoanghonghuy/commitbot/internal/prompt"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	backendName    = "OpenAI"
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Stream  bool

	// LogPrompts logs whole prompts instead of truncated ones.
	LogPrompts bool
}

// Client implements ai.Provider for the chat completions API.
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
		url:       base + "/v1/chat/completions",
		transport: chat.NewTransport(opts),
		logger:    logger,
	}
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []prompt.Message `json:"messages"`
	Stream   bool             `json:"stream"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *usage    `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
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
		Messages: p.Messages(),
		Stream:   stream,
	})
	if err != nil {
		return "", err
	}

	header := http.Header{}
	if strings.TrimSpace(c.cfg.APIKey) != "" {
		header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	return c.transport.Send(ctx, chat.Request{
		URL:        c.url,
		Header:     header,
		Body:       body,
		DecodeBody: c.decodeBody,
		DecodeLine: decodeStreamLine,
	}, stream)
}

func (c *Client) decodeBody(body []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", chat.DecodeErrorf("decode chat response: %v", err)
	}
	if resp.Error != nil {
		return "", chat.DecodeErrorf("error reply: %s (%s)", resp.Error.Message, resp.Error.Type)
	}
	if len(resp.Choices) == 0 {
		return "", chat.DecodeErrorf("no choices returned")
	}
	if u := resp.Usage; u != nil {
		c.logger.Warn("token usage",
			zap.String("prompt", humanize.Comma(u.PromptTokens)),
			zap.String("completion", humanize.Comma(u.CompletionTokens)),
			zap.String("total", humanize.Comma(u.TotalTokens)))
	}
	return resp.Choices[0].Message.Content, nil
}

const (
	dataPrefix = "data:"
	doneMarker = "[DONE]"
)

// decodeStreamLine reads one server-sent event line. Only data lines carry content.
func decodeStreamLine(line string) (chat.Frame, error) {
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return chat.SkipFrame(), nil
	}
	payload = strings.TrimSpace(payload)
	if payload == doneMarker {
		return chat.EndFrame(), nil
	}

	var ch chunk
	if err := json.Unmarshal([]byte(payload), &ch); err != nil {
		return chat.Frame{}, chat.DecodeErrorf("decode stream chunk: %v", err)
	}
	if ch.Error != nil {
		return chat.Frame{}, chat.DecodeErrorf("stream error: %s (%s)", ch.Error.Message, ch.Error.Type)
	}
	if len(ch.Choices) == 0 || ch.Choices[0].Delta.Content == "" {
		return chat.SkipFrame(), nil
	}
	return chat.DeltaFrame(ch.Choices[0].Delta.Content), nil
}
