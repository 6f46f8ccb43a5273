package llm

import (
	"context"
	"time"
)

// Request is a single oracle invocation. Timeout overrides the client default
// when set; segmentation analysis runs long, correction passes run short.
type Request struct {
	Prompt       string
	SystemPrompt string
	Timeout      time.Duration
}

// Oracle is the text-understanding service the pipeline depends on.
// Implementations make no guarantee about output shape; every caller
// validates independently.
type Oracle interface {
	// Generate returns the raw text completion.
	Generate(ctx context.Context, req Request) (string, error)

	// GenerateJSON layers the multi-strategy JSON recovery over Generate.
	// It never fails on malformed output; the recovery chain bottoms out in
	// a fixed fallback object. Transport errors are still returned.
	GenerateJSON(ctx context.Context, req Request) (map[string]any, error)
}
