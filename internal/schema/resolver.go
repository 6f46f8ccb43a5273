// Package schema inlines $ref indirection in JSON-Schema trees and flattens
// resolved schemas into field paths for diagnostics.
package schema

import (
	"log/slog"
	"sort"
	"strings"
)

// Resolver rewrites a schema tree so that it contains no $ref nodes.
// Definitions are looked up under $defs (draft 2020-12) or definitions
// (older drafts). The definitions graph is assumed acyclic.
type Resolver struct {
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve returns a copy of schema with every $ref replaced by a deep copy of
// its named target, itself recursively resolved. A schema that already holds
// no references comes back structurally unchanged.
func (r *Resolver) Resolve(schema map[string]any) map[string]any {
	defs := definitionsTable(schema)
	r.logger.Debug("schema.resolve", "definitions", len(defs))
	resolved, _ := r.resolveNode(deepCopy(schema).(map[string]any), defs).(map[string]any)
	return resolved
}

func definitionsTable(schema map[string]any) map[string]any {
	if d, ok := schema["$defs"].(map[string]any); ok {
		return d
	}
	if d, ok := schema["definitions"].(map[string]any); ok {
		return d
	}
	return map[string]any{}
}

func (r *Resolver) resolveNode(node any, defs map[string]any) any {
	m, ok := node.(map[string]any)
	if !ok {
		return node
	}

	if ref, ok := m["$ref"].(string); ok {
		name := ref[strings.LastIndex(ref, "/")+1:]
		target, ok := defs[name].(map[string]any)
		if !ok {
			r.logger.Warn("schema.resolve.missing_definition", "ref", ref)
			return m
		}
		// Targets may themselves contain references.
		return r.resolveNode(deepCopy(target), defs)
	}

	if m["type"] == "object" {
		if props, ok := m["properties"].(map[string]any); ok {
			for name, prop := range props {
				props[name] = r.resolveNode(prop, defs)
			}
		}
	}
	if m["type"] == "array" {
		if items, ok := m["items"]; ok {
			m["items"] = r.resolveNode(items, defs)
		}
	}
	return m
}

// FieldPaths flattens a resolved schema into every field path it declares.
// Nesting is dot-separated, arrays get a [] suffix, and array-of-object items
// are expanded one level ("line_items[].quantity").
func FieldPaths(schema map[string]any) []string {
	return fieldPaths(schema, "")
}

func fieldPaths(schema map[string]any, prefix string) []string {
	var fields []string
	if schema["type"] != "object" {
		return fields
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return fields
	}
	for _, name := range sortedKeys(props) {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + name
		}
		switch prop["type"] {
		case "object":
			fields = append(fields, fieldPaths(prop, path+".")...)
		case "array":
			fields = append(fields, path+"[]")
			if items, ok := prop["items"].(map[string]any); ok {
				fields = append(fields, fieldPaths(items, path+"[].")...)
			}
		default:
			fields = append(fields, path)
		}
	}
	return fields
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
