package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/tradefinlabs/docpipeline/internal/llm"
)

// Config for the OpenAI-backed oracle.
type Config struct {
	APIKey      string
	BaseURL     string // optional (tests)
	Model       string // e.g. "gpt-4o-mini"
	Temperature float32
	Timeout     time.Duration // default per-call timeout
}

// Client implements llm.Oracle on the official OpenAI SDK.
type Client struct {
	cfg    Config
	client openai.Client
	logger *slog.Logger
}

var _ llm.Oracle = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		cfg:    cfg,
		client: openai.NewClient(opts...),
		logger: logger,
	}
}

// Generate returns the raw text completion.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	c.logger.Info("llm.chat.request",
		"req_id", rid,
		"model", c.cfg.Model,
		"prompt_len", len(req.Prompt),
		"timeout_s", timeout.Seconds(),
	)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.cfg.Model),
		Messages:    messages,
		Temperature: openai.Float(float64(c.cfg.Temperature)),
	})
	if err != nil {
		c.logger.Error("llm.chat.error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Info("llm.chat.response",
		"req_id", rid,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// GenerateJSON layers the recovery chain over Generate.
func (c *Client) GenerateJSON(ctx context.Context, req llm.Request) (map[string]any, error) {
	text, err := c.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return llm.RecoverJSON(text), nil
}
