// Package gateway talks to the submission endpoint: it fetches operation
// schemas and submits assembled payloads.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tradefinlabs/docpipeline/constants"
)

// Operation is one submittable operation advertised by the endpoint.
type Operation struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// SubmitResult is the classified outcome of one submission attempt.
type SubmitResult struct {
	Outcome    constants.SubmissionOutcome `json:"outcome"`
	StatusCode int                         `json:"status_code,omitempty"`
	Body       string                      `json:"body,omitempty"`
	Err        string                      `json:"error,omitempty"`
}

// Config holds the endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is the submission-endpoint HTTP client.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// FetchOperations lists the operations the endpoint accepts, with their input
// schemas.
func (c *Client) FetchOperations(ctx context.Context) ([]Operation, error) {
	reqID := uuid.NewString()
	url := c.cfg.BaseURL + "/tools/list"
	c.logger.Info("gateway.list.request", "req_id", reqID, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read list response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list operations: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed struct {
		Tools []Operation `json:"tools"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse list response: %w", err)
	}

	c.logger.Info("gateway.list.response",
		"req_id", reqID,
		"operations", len(parsed.Tools),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return parsed.Tools, nil
}

// SchemaFor fetches the input schema of one named operation.
func (c *Client) SchemaFor(ctx context.Context, operation string) (map[string]any, error) {
	ops, err := c.FetchOperations(ctx)
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		if op.Name == operation {
			return op.InputSchema, nil
		}
	}
	return nil, fmt.Errorf("operation %s not advertised by endpoint", operation)
}

// Submit posts one payload to the named operation and classifies the outcome.
// Transport and HTTP failures land in the result, not the error return; only
// request construction can fail.
func (c *Client) Submit(ctx context.Context, operation string, payload map[string]any) (SubmitResult, error) {
	reqID := uuid.NewString()
	url := c.cfg.BaseURL + "/tools/" + operation

	body, err := json.Marshal(payload)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("build submit request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("gateway.submit.request",
		"req_id", reqID,
		"operation", operation,
		"payload_bytes", len(body),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		res := SubmitResult{Err: err.Error()}
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			res.Outcome = constants.SubmissionTimeout
		} else {
			res.Outcome = constants.SubmissionConnError
		}
		c.logger.Warn("gateway.submit.send_error",
			"req_id", reqID,
			"outcome", res.Outcome,
			"error", err,
		)
		return res, nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	res := SubmitResult{
		Outcome:    classifyStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
	}
	c.logger.Info("gateway.submit.response",
		"req_id", reqID,
		"operation", operation,
		"status", resp.StatusCode,
		"outcome", res.Outcome,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Accept", "application/json")
}

func classifyStatus(code int) constants.SubmissionOutcome {
	switch {
	case code >= 200 && code < 300:
		return constants.SubmissionSuccess
	case code >= 300 && code < 400:
		// A redirect that reached us unconsumed means the configured
		// endpoint is wrong, which is a caller-side problem.
		return constants.SubmissionClientError
	case code >= 400 && code < 500:
		return constants.SubmissionClientError
	default:
		return constants.SubmissionServerError
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
