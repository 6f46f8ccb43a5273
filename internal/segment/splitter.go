// Package segment groups the pages of one source file into logical documents.
// A multi-page input may be one document spanning all pages or several
// concatenated documents; the splitter asks the oracle, then defends against
// every way the answer can be wrong.
package segment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/tradefinlabs/docpipeline/constants"
	"github.com/tradefinlabs/docpipeline/internal/llm"
	"github.com/tradefinlabs/docpipeline/internal/ocr"
)

// LogicalDocument is a contiguous run of source pages judged to represent one
// real-world document instance.
type LogicalDocument struct {
	ID          string
	Source      string
	Pages       []ocr.Page
	PageIndices []int
	PageRange   string // 1-indexed inclusive, "1" or "2-4"
	SplitMethod constants.SplitMethod
}

// Analysis is the structural verdict for one source file, with boundaries
// already sanitized.
type Analysis struct {
	IsSingleDocument bool
	DocumentType     string
	NumDocuments     int
	Boundaries       []int // 0-indexed page indices where documents start
	Reasoning        string
	Confidence       float64
}

// Config holds the segmentation thresholds.
type Config struct {
	MinContentLength int           // chars before a page counts as substantial
	SampleLength     int           // excerpt taken from each end of a page
	Timeout          time.Duration // long; structural analysis is expensive
}

// Splitter is the page segmentation engine.
type Splitter struct {
	cfg    Config
	oracle llm.Oracle
	engine ocr.Engine
	logger *slog.Logger
}

func NewSplitter(cfg Config, oracle llm.Oracle, engine ocr.Engine, logger *slog.Logger) *Splitter {
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = 50
	}
	if cfg.SampleLength <= 0 {
		cfg.SampleLength = 200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 4 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{cfg: cfg, oracle: oracle, engine: engine, logger: logger}
}

// Split partitions pages into one or more logical documents. The result is
// always a complete, non-overlapping partition of the input pages regardless
// of oracle output quality; Split never fails.
func (s *Splitter) Split(ctx context.Context, pages []ocr.Page, source string) []LogicalDocument {
	n := len(pages)
	s.logger.Info("segment.split.start", "source", source, "pages", n)

	if n <= 1 {
		return s.singleDocument(pages, source, constants.SplitMethodNone)
	}

	samples := s.samplePages(ctx, pages)

	withContent := 0
	for _, ps := range samples {
		if ps.HasContent {
			withContent++
		}
	}
	if withContent <= 1 {
		s.logger.Info("segment.split.sparse_content", "source", source, "pages_with_content", withContent)
		return s.singleDocument(pages, source, constants.SplitMethodNone)
	}

	analysis := s.analyzeStructure(ctx, samples)
	s.logger.Info("segment.split.analysis",
		"source", source,
		"is_single", analysis.IsSingleDocument,
		"boundaries", analysis.Boundaries,
		"confidence", analysis.Confidence,
		"reasoning", analysis.Reasoning,
	)

	if analysis.IsSingleDocument {
		return s.singleDocument(pages, source, constants.SplitMethodNone)
	}
	return s.groupPages(pages, analysis.Boundaries, source)
}

// PageSample is the per-page excerpt used for structural analysis.
type PageSample struct {
	Index      int
	TextLength int
	HasContent bool
	First      string
	Last       string
}

func (s *Splitter) samplePages(ctx context.Context, pages []ocr.Page) []PageSample {
	samples := make([]PageSample, 0, len(pages))
	for _, page := range pages {
		rec, err := s.engine.Recognize(ctx, page.ImagePath)
		if err != nil {
			// A page that cannot be read contributes an empty sample rather
			// than failing the whole source.
			s.logger.Warn("segment.sample.recognize_error", "page", page.Index, "error", err)
			samples = append(samples, PageSample{Index: page.Index})
			continue
		}
		text := strings.TrimSpace(rec.Text)
		ps := PageSample{
			Index:      page.Index,
			TextLength: len(text),
			HasContent: len(text) > s.cfg.MinContentLength,
			First:      head(text, s.cfg.SampleLength),
			Last:       tail(text, s.cfg.SampleLength),
		}
		samples = append(samples, ps)
	}
	return samples
}

// analyzeStructure asks the oracle for a structural verdict and sanitizes it.
// Any oracle failure yields the conservative single-document fallback.
func (s *Splitter) analyzeStructure(ctx context.Context, samples []PageSample) Analysis {
	raw, err := s.oracle.GenerateJSON(ctx, llm.Request{
		Prompt:       buildAnalysisPrompt(samples),
		SystemPrompt: analysisSystemPrompt,
		Timeout:      s.cfg.Timeout,
	})
	if err != nil {
		s.logger.Warn("segment.analyze.oracle_error", "error", err)
		return Analysis{
			IsSingleDocument: true,
			DocumentType:     "unknown",
			NumDocuments:     1,
			Boundaries:       []int{0},
			Reasoning:        fmt.Sprintf("oracle failed, conservative fallback: %v", err),
			Confidence:       0.5,
		}
	}

	isSingle := true
	if b, ok := raw["is_single_document"].(bool); ok {
		isSingle = b
	}
	boundaries := SanitizeBoundaries(raw["boundaries"], len(samples))
	if len(boundaries) == 1 {
		isSingle = true
	}

	analysis := Analysis{
		IsSingleDocument: isSingle,
		DocumentType:     "unknown",
		NumDocuments:     len(boundaries),
		Boundaries:       boundaries,
		Reasoning:        "oracle analysis completed",
		Confidence:       0.8,
	}
	if dt, ok := raw["document_type"].(string); ok && dt != "" {
		analysis.DocumentType = dt
	}
	if r, ok := raw["reasoning"].(string); ok && r != "" {
		analysis.Reasoning = r
	}
	if c, ok := raw["confidence"].(float64); ok {
		analysis.Confidence = c
	}
	return analysis
}

// SanitizeBoundaries turns an untrusted boundary list into a usable one.
// The order is load-bearing: the indexing convention is decided first at
// list level, then out-of-range values are dropped, index 0 is forced in,
// and the list is deduplicated and sorted. It decides which boundaries
// survive ambiguous or redundant oracle output.
func SanitizeBoundaries(raw any, numPages int) []int {
	var candidates []int
	zeroIndexed := false
	if list, ok := raw.([]any); ok {
		for _, v := range list {
			var b int
			switch t := v.(type) {
			case float64:
				b = int(t)
			case int:
				b = t
			default:
				continue
			}
			if b == 0 {
				zeroIndexed = true
			}
			candidates = append(candidates, b)
		}
	}
	// A list containing 0 already speaks 0-indexed, as the prompt asks for.
	// A list without 0 is taken as 1-indexed page numbers and shifted down,
	// which oracles answer with despite the prompt.
	if !zeroIndexed {
		for i := range candidates {
			candidates[i]--
		}
	}

	inRange := candidates[:0]
	for _, b := range candidates {
		if b >= 0 && b < numPages {
			inRange = append(inRange, b)
		}
	}

	seen := map[int]struct{}{0: {}}
	out := []int{0}
	for _, b := range inRange {
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

func (s *Splitter) singleDocument(pages []ocr.Page, source string, method constants.SplitMethod) []LogicalDocument {
	indices := make([]int, len(pages))
	for i := range pages {
		indices[i] = i
	}
	return []LogicalDocument{{
		ID:          fmt.Sprintf("%s_doc_%03d", source, 1),
		Source:      source,
		Pages:       pages,
		PageIndices: indices,
		PageRange:   pageRange(indices),
		SplitMethod: method,
	}}
}

// SingleImage wraps one standalone image as a one-page logical document.
func SingleImage(page ocr.Page, source string) []LogicalDocument {
	return []LogicalDocument{{
		ID:          fmt.Sprintf("%s_doc_%03d", source, 1),
		Source:      source,
		Pages:       []ocr.Page{page},
		PageIndices: []int{0},
		PageRange:   "1",
		SplitMethod: constants.SplitMethodSingleImage,
	}}
}

func (s *Splitter) groupPages(pages []ocr.Page, boundaries []int, source string) []LogicalDocument {
	docs := make([]LogicalDocument, 0, len(boundaries))
	for i, start := range boundaries {
		end := len(pages)
		if i < len(boundaries)-1 {
			end = boundaries[i+1]
		}
		indices := make([]int, 0, end-start)
		for p := start; p < end; p++ {
			indices = append(indices, p)
		}
		doc := LogicalDocument{
			ID:          fmt.Sprintf("%s_doc_%03d", source, i+1),
			Source:      source,
			Pages:       pages[start:end],
			PageIndices: indices,
			PageRange:   pageRange(indices),
			SplitMethod: constants.SplitMethodLLMBoundary,
		}
		docs = append(docs, doc)
		s.logger.Info("segment.split.document",
			"id", doc.ID,
			"page_range", doc.PageRange,
			"pages", len(indices),
		)
	}
	return docs
}

func pageRange(indices []int) string {
	if len(indices) == 0 {
		return ""
	}
	if len(indices) == 1 {
		return fmt.Sprintf("%d", indices[0]+1)
	}
	return fmt.Sprintf("%d-%d", indices[0]+1, indices[len(indices)-1]+1)
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func tail(s string, n int) string {
	if len(s) <= n {
		return ""
	}
	return s[len(s)-n:]
}
