package payload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradefinlabs/docpipeline/internal/llm"
	"github.com/tradefinlabs/docpipeline/internal/schema"
)

// Assembly is one assembled payload plus its validation verdict.
type Assembly struct {
	Operation  string           `json:"operation"`
	Payload    map[string]any   `json:"payload"`
	Validation ValidationResult `json:"validation"`
}

// Assembler merges extracted document fields with the operation sample into a
// payload conforming to the operation's schema.
type Assembler struct {
	resolver  *schema.Resolver
	validator *Validator
	oracle    llm.Oracle
	timeout   time.Duration
	logger    *slog.Logger
}

func NewAssembler(oracle llm.Oracle, timeout time.Duration, logger *slog.Logger) *Assembler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		resolver:  schema.NewResolver(logger),
		validator: NewValidator(logger),
		oracle:    oracle,
		timeout:   timeout,
		logger:    logger,
	}
}

// Assemble builds and validates the payload for one operation. It never
// fails: when the oracle is unusable the sample itself becomes the payload,
// with a warning recorded.
func (a *Assembler) Assemble(ctx context.Context, operation string, rawSchema, sample, extracted map[string]any) Assembly {
	resolved := a.resolver.Resolve(rawSchema)

	prompt, err := buildMappingPrompt(operation, resolved, sample, extracted)
	if err != nil {
		a.logger.Warn("payload.assemble.prompt_error", "operation", operation, "error", err)
		return a.fallback(operation, resolved, sample, extracted, fmt.Sprintf("prompt build failed: %v", err))
	}

	raw, err := a.oracle.GenerateJSON(ctx, llm.Request{
		Prompt:       prompt,
		SystemPrompt: mappingSystemPrompt,
		Timeout:      a.timeout,
	})
	if err != nil {
		a.logger.Warn("payload.assemble.oracle_error", "operation", operation, "error", err)
		return a.fallback(operation, resolved, sample, extracted, fmt.Sprintf("mapping failed: %v", err))
	}

	validation := a.validator.Validate(raw, resolved, extracted)
	a.logger.Info("payload.assemble.done",
		"operation", operation,
		"valid", validation.Valid,
		"from_document", len(validation.FieldsFromDocument),
	)
	return Assembly{Operation: operation, Payload: raw, Validation: validation}
}

// fallback submits the sample unchanged. Every field is sample-sourced, which
// the provenance walk reports on its own.
func (a *Assembler) fallback(operation string, resolved, sample, extracted map[string]any, reason string) Assembly {
	validation := a.validator.Validate(sample, resolved, extracted)
	validation.Warnings = append(validation.Warnings, reason)
	return Assembly{Operation: operation, Payload: sample, Validation: validation}
}

const mappingSystemPrompt = `You build API payloads for trade finance operations.

You will receive a JSON schema, a sample payload, and data extracted from a
real document. Produce ONE payload that:
1. Matches the schema exactly, preserving its nested shape.
2. Uses the extracted value for every field where one is present.
3. Falls back to the sample value for fields the extraction did not cover.
4. Respects declared scalar types (string, number, integer, boolean).
5. Contains no fields that are not in the schema.

Respond ONLY with the payload JSON, nothing else.`

func buildMappingPrompt(operation string, resolved, sample, extracted map[string]any) (string, error) {
	schemaJSON, err := json.MarshalIndent(resolved, "", "  ")
	if err != nil {
		return "", err
	}
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", err
	}
	extractedJSON, err := json.MarshalIndent(extracted, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`Operation: %s

SCHEMA:
%s

SAMPLE PAYLOAD (fallback values):
%s

EXTRACTED DOCUMENT DATA (preferred values):
%s

Build the payload.`, operation, schemaJSON, sampleJSON, extractedJSON), nil
}
