// Package router dispatches classified documents to the extractor registered
// for their type.
package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/tradefinlabs/docpipeline/constants"
	"github.com/tradefinlabs/docpipeline/internal/extract"
	"github.com/tradefinlabs/docpipeline/internal/llm"
	"github.com/tradefinlabs/docpipeline/internal/registry"
)

// Router holds one extractor per extraction-enabled registry type, built once
// at construction so routing is a map lookup.
type Router struct {
	reg        *registry.Registry
	extractors map[string]*extract.Extractor
	logger     *slog.Logger
}

func New(reg *registry.Registry, oracle llm.Oracle, timeout time.Duration, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	extractors := make(map[string]*extract.Extractor)
	for _, typ := range reg.Types() {
		cfg := reg.Lookup(typ)
		if cfg != nil && cfg.Extract {
			extractors[typ] = extract.New(cfg, oracle, timeout, logger)
		}
	}
	logger.Info("router.ready", "extractors", len(extractors), "types", len(reg.Types()))
	return &Router{reg: reg, extractors: extractors, logger: logger}
}

// Normalize maps any classifier output onto the registry vocabulary.
// Unregistered types collapse to "other".
func (r *Router) Normalize(docType string) string {
	if r.reg.Has(docType) {
		return docType
	}
	r.logger.Warn("router.unknown_type", "document_type", docType)
	return constants.DocTypeOther
}

// ShouldExtract reports whether the (normalized) type has an extractor.
func (r *Router) ShouldExtract(docType string) bool {
	_, ok := r.extractors[docType]
	return ok
}

// Route runs extraction for the document when its type calls for it. A nil
// result with a nil error means the type needs no extraction.
func (r *Router) Route(ctx context.Context, docType, text string) *extract.Result {
	normalized := r.Normalize(docType)
	e, ok := r.extractors[normalized]
	if !ok {
		r.logger.Info("router.no_extraction", "document_type", normalized)
		return nil
	}
	res := e.Extract(ctx, text)
	return &res
}
