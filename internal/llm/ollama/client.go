package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tradefinlabs/docpipeline/internal/llm"
)

// Config for the Ollama client.
type Config struct {
	APIURL      string // e.g. http://localhost:11434/api/generate
	Model       string // e.g. "llama3.2:3b"
	Temperature float32
	Timeout     time.Duration // default per-call timeout
}

// Client talks to a local Ollama instance over its generate endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ llm.Oracle = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = "http://localhost:11434/api/generate"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2:3b"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		// Per-request timeouts come from context deadlines; the transport
		// timeout is only a backstop.
		http:   &http.Client{},
		logger: logger,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate returns the raw text completion from Ollama.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body := generateRequest{
		Model:   c.cfg.Model,
		Prompt:  req.Prompt,
		System:  req.SystemPrompt,
		Stream:  false,
		Options: map[string]any{"temperature": c.cfg.Temperature},
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Info("llm.http.request",
		"req_id", rid,
		"url", c.cfg.APIURL,
		"model", c.cfg.Model,
		"prompt_len", len(req.Prompt),
		"timeout_s", timeout.Seconds(),
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("llm.http.send_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("llm.http.response_body_close_error", "req_id", rid, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("llm.http.response",
		"req_id", rid,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("ollama status %d: %s", resp.StatusCode, truncate(string(raw), 500))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return out.Response, nil
}

// GenerateJSON layers the recovery chain over Generate.
func (c *Client) GenerateJSON(ctx context.Context, req llm.Request) (map[string]any, error) {
	text, err := c.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return llm.RecoverJSON(text), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
