// Package classify assigns a registry document type to recognized text.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/tradefinlabs/docpipeline/constants"
	"github.com/tradefinlabs/docpipeline/internal/llm"
	"github.com/tradefinlabs/docpipeline/internal/registry"
)

// Text beyond this adds little classification signal but a lot of tokens.
const classificationTextLimit = 3000

// Classification is the typing verdict for one logical document.
type Classification struct {
	DocumentType string  `json:"document_type"`
	Confidence   float64 `json:"document_confidence"`
	Reasoning    string  `json:"reasoning"`
}

// Classifier asks the oracle to pick one registry type for a document.
type Classifier struct {
	reg     *registry.Registry
	oracle  llm.Oracle
	timeout time.Duration
	logger  *slog.Logger

	systemPrompt string
}

func NewClassifier(reg *registry.Registry, oracle llm.Oracle, timeout time.Duration, logger *slog.Logger) *Classifier {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		reg:          reg,
		oracle:       oracle,
		timeout:      timeout,
		logger:       logger,
		systemPrompt: buildSystemPrompt(reg),
	}
}

// Classify types one document. It never fails: when the oracle is unusable the
// verdict is the zero-confidence "other" fallback.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	if len(text) > classificationTextLimit {
		text = text[:classificationTextLimit]
	}
	prompt := fmt.Sprintf("Classify this document:\n\nDOCUMENT TEXT:\n%s", text)

	raw, err := c.oracle.GenerateJSON(ctx, llm.Request{
		Prompt:       prompt,
		SystemPrompt: c.systemPrompt,
		Timeout:      c.timeout,
	})
	if err != nil {
		c.logger.Warn("classify.oracle_error", "error", err)
		return Classification{
			DocumentType: constants.DocTypeOther,
			Confidence:   0.0,
			Reasoning:    fmt.Sprintf("classification failed: %v", err),
		}
	}

	verdict := Classification{
		DocumentType: constants.DocTypeOther,
		Confidence:   0.0,
		Reasoning:    "no usable classification in oracle output",
	}
	if dt, ok := raw["document_type"].(string); ok && dt != "" {
		verdict.DocumentType = strings.ToLower(strings.TrimSpace(dt))
	}
	if conf, ok := raw["document_confidence"].(float64); ok {
		verdict.Confidence = conf
	}
	if r, ok := raw["reasoning"].(string); ok && r != "" {
		verdict.Reasoning = r
	}

	c.logger.Info("classify.verdict",
		"document_type", verdict.DocumentType,
		"confidence", verdict.Confidence,
	)
	return verdict
}

// buildSystemPrompt enumerates the registry vocabulary grouped by category, so
// adding a type to the registry automatically widens classification.
func buildSystemPrompt(reg *registry.Registry) string {
	var b strings.Builder
	b.WriteString("You are a trade finance document classifier.\n\n")
	b.WriteString("Classify the document into EXACTLY ONE of these types:\n\n")

	groups := reg.ByCategory()
	categories := make([]string, 0, len(groups))
	for cat := range groups {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	for _, cat := range categories {
		fmt.Fprintf(&b, "%s:\n", strings.ToUpper(cat))
		for _, doc := range groups[cat] {
			fmt.Fprintf(&b, "- %s: %s\n", doc.Type, doc.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Respond ONLY with JSON:
{
  "document_type": "<one of the types above>",
  "document_confidence": <0.0 to 1.0>,
  "reasoning": "<one sentence>"
}

Use "other" when no type fits.`)
	return b.String()
}
