// Package payload assembles submission payloads from extracted document data
// plus operation samples, and validates them against the resolved schema.
package payload

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tradefinlabs/docpipeline/internal/schema"
)

// ValidationResult reports completeness, violations, and field provenance for
// one assembled payload.
type ValidationResult struct {
	Valid              bool     `json:"valid"`
	Errors             []string `json:"errors,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
	FieldsFromDocument []string `json:"fields_from_document,omitempty"`
	FieldsFromSample   []string `json:"fields_from_sample,omitempty"`
	TotalFields        int      `json:"total_fields"` // fields the schema declares, not the payload carries
}

// Validator checks an assembled payload against a resolved schema. The schema
// must contain no $ref nodes; resolve it first.
type Validator struct {
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate runs structural validation, provenance attribution, and the
// independent sanity checks. It never fails; violations land in the result.
func (v *Validator) Validate(payload, resolvedSchema, extracted map[string]any) ValidationResult {
	res := ValidationResult{}

	v.validateNode(resolvedSchema, payload, "", &res)
	v.attribute(payload, extracted, "", &res)
	v.sanityChecks(payload, "", &res)

	res.Valid = len(res.Errors) == 0
	res.TotalFields = len(schema.FieldPaths(resolvedSchema))
	sort.Strings(res.FieldsFromDocument)
	sort.Strings(res.FieldsFromSample)

	v.logger.Info("payload.validate.done",
		"valid", res.Valid,
		"errors", len(res.Errors),
		"warnings", len(res.Warnings),
		"from_document", len(res.FieldsFromDocument),
		"from_sample", len(res.FieldsFromSample),
	)
	return res
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func schemaType(node map[string]any) string {
	switch t := node["type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				return s
			}
		}
	}
	return ""
}

func (v *Validator) validateNode(node map[string]any, value any, path string, res *ValidationResult) {
	switch schemaType(node) {
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: expected object, got %s", displayPath(path), typeName(value)))
			return
		}
		props, _ := node["properties"].(map[string]any)
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			child, _ := props[name].(map[string]any)
			childPath := joinPath(path, name)
			got, present := obj[name]
			if !present || got == nil || got == "" {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: required field missing or empty", childPath))
				continue
			}
			v.validateNode(child, got, childPath, res)
		}
	case "array":
		list, ok := value.([]any)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: expected array, got %s", displayPath(path), typeName(value)))
			return
		}
		if len(list) == 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: array must not be empty", displayPath(path)))
			return
		}
		items, _ := node["items"].(map[string]any)
		if items == nil {
			return
		}
		for i, elem := range list {
			v.validateNode(items, elem, fmt.Sprintf("%s[%d]", path, i), res)
		}
	case "string":
		s, ok := value.(string)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: expected string, got %s", displayPath(path), typeName(value)))
			return
		}
		if format, _ := node["format"].(string); format == "date" {
			if _, err := time.Parse("2006-01-02", s); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %q is not a valid date (want YYYY-MM-DD)", displayPath(path), s))
			}
		}
	case "number":
		if !isNumber(value) {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: expected number, got %s", displayPath(path), typeName(value)))
		}
	case "integer":
		f, ok := value.(float64)
		if !ok || f != math.Trunc(f) {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: expected integer, got %s", displayPath(path), typeName(value)))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: expected boolean, got %s", displayPath(path), typeName(value)))
		}
	}
}

// attribute walks payload and extracted trees in parallel: a leaf is
// document-sourced when the extracted tree holds a truthy value at the same
// key, otherwise it came from the sample.
func (v *Validator) attribute(value any, extracted any, path string, res *ValidationResult) {
	switch val := value.(type) {
	case map[string]any:
		extMap, _ := extracted.(map[string]any)
		for name, child := range val {
			v.attribute(child, extMap[name], joinPath(path, name), res)
		}
	case []any:
		extList, _ := extracted.([]any)
		for i, elem := range val {
			var extElem any
			if i < len(extList) {
				extElem = extList[i]
			}
			v.attribute(elem, extElem, fmt.Sprintf("%s[%d]", path, i), res)
		}
	default:
		if truthy(extracted) {
			res.FieldsFromDocument = append(res.FieldsFromDocument, path)
		} else {
			res.FieldsFromSample = append(res.FieldsFromSample, path)
		}
	}
}

// sanityChecks applies domain plausibility rules independent of the schema.
func (v *Validator) sanityChecks(value any, path string, res *ValidationResult) {
	switch val := value.(type) {
	case map[string]any:
		for name, child := range val {
			childPath := joinPath(path, name)
			lower := strings.ToLower(name)
			if strings.Contains(lower, "amount") && isNumber(child) {
				amount := asFloat(child)
				if amount <= 0 {
					res.Errors = append(res.Errors, fmt.Sprintf("%s: amount must be positive, got %v", childPath, amount))
				} else if amount > 10_000_000 {
					res.Warnings = append(res.Warnings, fmt.Sprintf("%s: unusually large amount %v", childPath, amount))
				}
			}
			if strings.Contains(lower, "date") {
				if s, ok := child.(string); ok {
					if d, err := time.Parse("2006-01-02", s); err == nil && d.After(time.Now()) {
						res.Warnings = append(res.Warnings, fmt.Sprintf("%s: date %s is in the future", childPath, s))
					}
				}
			}
			v.sanityChecks(child, childPath, res)
		}
	case []any:
		for i, elem := range val {
			v.sanityChecks(elem, fmt.Sprintf("%s[%d]", path, i), res)
		}
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case bool:
		return t
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, int:
		return true
	}
	return false
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	}
	return 0
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, int:
		return "number"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}

func displayPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
