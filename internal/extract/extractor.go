// Package extract pulls typed fields out of classified document text, driven
// entirely by the registry entry for the document type.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tradefinlabs/docpipeline/constants"
	"github.com/tradefinlabs/docpipeline/internal/llm"
	"github.com/tradefinlabs/docpipeline/internal/registry"
)

// Longer documents get truncated; field values cluster near the top.
const extractionTextLimit = 4000

// Result is the outcome of one extraction. Fields always contains exactly the
// registered field names; absent or unusable values are nil.
type Result struct {
	DocumentType string         `json:"document_type"`
	Fields       map[string]any `json:"fields"`
	Warnings     []string       `json:"warnings,omitempty"`
}

// Extractor extracts the field set of one registered document type.
type Extractor struct {
	cfg     *registry.DocumentTypeConfig
	oracle  llm.Oracle
	timeout time.Duration
	logger  *slog.Logger
	schema  map[string]any
}

func New(cfg *registry.DocumentTypeConfig, oracle llm.Oracle, timeout time.Duration, logger *slog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		cfg:     cfg,
		oracle:  oracle,
		timeout: timeout,
		logger:  logger,
		schema:  fieldSchema(cfg),
	}
}

// Extract runs the type's prompt over the text and normalizes the answer.
// It never fails: when the oracle is unusable every field is nil.
func (e *Extractor) Extract(ctx context.Context, text string) Result {
	res := Result{
		DocumentType: e.cfg.Type,
		Fields:       emptyFields(e.cfg),
	}
	if len(text) > extractionTextLimit {
		text = text[:extractionTextLimit]
	}

	raw, err := e.oracle.GenerateJSON(ctx, llm.Request{
		Prompt:  strings.ReplaceAll(e.cfg.ExtractionPrompt, "{text}", text),
		Timeout: e.timeout,
	})
	if err != nil {
		e.logger.Warn("extract.oracle_error", "document_type", e.cfg.Type, "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("extraction failed: %v", err))
		return res
	}

	populated := 0
	for _, spec := range e.cfg.Fields {
		value, warn := coerce(spec, raw[spec.Name])
		if warn != "" {
			res.Warnings = append(res.Warnings, warn)
		}
		if value == nil && spec.Required {
			res.Warnings = append(res.Warnings, fmt.Sprintf("required field %s is missing", spec.Name))
		}
		if value != nil {
			populated++
		}
		res.Fields[spec.Name] = value
	}

	if err := e.checkSchema(res.Fields); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("schema check: %v", err))
	}

	e.logger.Info("extract.done",
		"document_type", e.cfg.Type,
		"fields_populated", populated,
		"fields_total", len(e.cfg.Fields),
		"warnings", len(res.Warnings),
	)
	return res
}

func (e *Extractor) checkSchema(fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return llm.ValidateAgainstSchema(e.schema, data)
}

// coerce normalizes one raw oracle value to the declared field type.
func coerce(spec registry.FieldSpec, raw any) (any, string) {
	if raw == nil {
		return nil, ""
	}
	if s, ok := raw.(string); ok {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" || strings.EqualFold(trimmed, "null") || trimmed == "None" || trimmed == "N/A" {
			return nil, ""
		}
		raw = trimmed
	}

	switch spec.Type {
	case constants.FieldTypeNumber, constants.FieldTypeCurrency:
		return coerceNumeric(spec.Name, raw)
	case constants.FieldTypeDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Sprintf("field %s: expected a date string, got %T", spec.Name, raw)
		}
		// Shorter than YYYYMMDD cannot be a complete date.
		if len(s) < 8 {
			return nil, fmt.Sprintf("field %s: %q is too short for a date", spec.Name, s)
		}
		return s, ""
	default:
		if s, ok := raw.(string); ok {
			return s, ""
		}
		return fmt.Sprintf("%v", raw), ""
	}
}

var currencyStripper = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "", "₹", "",
	"USD", "", "EUR", "", "GBP", "",
	",", "", " ", "",
)

func coerceNumeric(name string, raw any) (any, string) {
	switch v := raw.(type) {
	case float64:
		return v, ""
	case int:
		return float64(v), ""
	case string:
		cleaned := strings.TrimSpace(currencyStripper.Replace(v))
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil, fmt.Sprintf("field %s: cannot parse %q as a number", name, v)
		}
		return f, ""
	default:
		return nil, fmt.Sprintf("field %s: unexpected numeric value %T", name, raw)
	}
}

func emptyFields(cfg *registry.DocumentTypeConfig) map[string]any {
	out := make(map[string]any, len(cfg.Fields))
	for _, spec := range cfg.Fields {
		out[spec.Name] = nil
	}
	return out
}

// fieldSchema derives the per-type JSON Schema the coerced output must match.
// Every field is nullable; required only pins key presence, which coercion
// already guarantees.
func fieldSchema(cfg *registry.DocumentTypeConfig) map[string]any {
	props := make(map[string]any, len(cfg.Fields))
	required := make([]any, 0, len(cfg.Fields))
	for _, spec := range cfg.Fields {
		var jsType string
		switch spec.Type {
		case constants.FieldTypeNumber, constants.FieldTypeCurrency:
			jsType = "number"
		default:
			jsType = "string"
		}
		props[spec.Name] = map[string]any{"type": []any{jsType, "null"}}
		required = append(required, spec.Name)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}
