// Package pipeline drives one source file end to end: render, segment,
// recognize, validate, classify, extract, assemble, submit. Every stage
// degrades rather than aborts, so one document's failure never takes its
// siblings down.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradefinlabs/docpipeline/constants"
	"github.com/tradefinlabs/docpipeline/internal/classify"
	"github.com/tradefinlabs/docpipeline/internal/extract"
	"github.com/tradefinlabs/docpipeline/internal/gateway"
	"github.com/tradefinlabs/docpipeline/internal/ocr"
	"github.com/tradefinlabs/docpipeline/internal/payload"
	"github.com/tradefinlabs/docpipeline/internal/router"
	"github.com/tradefinlabs/docpipeline/internal/segment"
	"github.com/tradefinlabs/docpipeline/internal/store"
)

// DocumentResult is the per-document outcome across all stages.
type DocumentResult struct {
	DocumentID       string                     `json:"document_id"`
	Source           string                     `json:"source"`
	PageRange        string                     `json:"page_range"`
	SplitMethod      constants.SplitMethod      `json:"split_method"`
	DocumentType     string                     `json:"document_type"`
	Confidence       float64                    `json:"document_confidence"`
	Reasoning        string                     `json:"reasoning,omitempty"`
	TextLength       int                        `json:"text_length"`
	ValidationStatus constants.ValidationStatus `json:"validation_status"`
	Extraction       *extract.Result            `json:"extraction,omitempty"`
	Assembly         *payload.Assembly          `json:"assembly,omitempty"`
	Submission       *gateway.SubmitResult      `json:"submission,omitempty"`
	Status           constants.JobStatus        `json:"status"`
	Error            string                     `json:"error,omitempty"`
}

// FileResult groups the document results of one source file.
type FileResult struct {
	Source    string           `json:"source"`
	Documents []DocumentResult `json:"documents"`
	Error     string           `json:"error,omitempty"`
	ElapsedMS int64            `json:"elapsed_ms"`
}

// PageSource renders a source file into ordered page images.
type PageSource interface {
	Pages(ctx context.Context, path string) ([]ocr.Page, error)
}

// Submitter is the downstream endpoint surface the pipeline needs.
type Submitter interface {
	SchemaFor(ctx context.Context, operation string) (map[string]any, error)
	Submit(ctx context.Context, operation string, payload map[string]any) (gateway.SubmitResult, error)
}

// Options carries the pipeline-level settings.
type Options struct {
	Operation      string // downstream operation name
	PostEnabled    bool   // submit assembled payloads
	PostValidation bool   // invalid payloads block submission
	SamplesDir     string
}

// Processor wires the stages together. All collaborators are injected.
type Processor struct {
	pages     PageSource
	engine    ocr.Engine
	splitter  *segment.Splitter
	validator *ocr.Validator
	class     *classify.Classifier
	router    *router.Router
	assembler *payload.Assembler
	submitter Submitter
	audit     *store.Store // optional
	opts      Options
	logger    *slog.Logger
}

func NewProcessor(
	pages PageSource,
	engine ocr.Engine,
	splitter *segment.Splitter,
	validator *ocr.Validator,
	class *classify.Classifier,
	rt *router.Router,
	assembler *payload.Assembler,
	submitter Submitter,
	audit *store.Store,
	opts Options,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		pages:     pages,
		engine:    engine,
		splitter:  splitter,
		validator: validator,
		class:     class,
		router:    rt,
		assembler: assembler,
		submitter: submitter,
		audit:     audit,
		opts:      opts,
		logger:    logger,
	}
}

// ProcessFile runs the whole pipeline for one source file. Only rendering
// failures abort; everything downstream degrades per document.
func (p *Processor) ProcessFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	source := filepath.Base(path)
	reqID := uuid.NewString()
	logger := p.logger.With("req_id", reqID, "source", source)
	logger.Info("pipeline.file.start")

	res := FileResult{Source: source}
	pages, err := p.pages.Pages(ctx, path)
	if err != nil {
		logger.Error("pipeline.file.render_error", "error", err)
		res.Error = err.Error()
		res.ElapsedMS = time.Since(start).Milliseconds()
		return res
	}

	var docs []segment.LogicalDocument
	if len(pages) == 1 && !strings.EqualFold(filepath.Ext(path), ".pdf") {
		docs = segment.SingleImage(pages[0], source)
	} else {
		docs = p.splitter.Split(ctx, pages, source)
	}

	for _, doc := range docs {
		res.Documents = append(res.Documents, p.processDocument(ctx, logger, doc))
	}
	res.ElapsedMS = time.Since(start).Milliseconds()
	logger.Info("pipeline.file.done",
		"documents", len(res.Documents),
		"elapsed_ms", res.ElapsedMS,
	)
	return res
}

func (p *Processor) processDocument(ctx context.Context, logger *slog.Logger, doc segment.LogicalDocument) DocumentResult {
	// Segmentation is already done by the time a logical document exists.
	res := DocumentResult{
		DocumentID:  doc.ID,
		Source:      doc.Source,
		PageRange:   doc.PageRange,
		SplitMethod: doc.SplitMethod,
		Status:      constants.JobStatusSplitOK,
	}
	logger = logger.With("document_id", doc.ID)

	jobID := ""
	if p.audit != nil {
		id, err := p.audit.Create(ctx, doc.Source, doc.ID)
		if err != nil {
			logger.Warn("pipeline.audit.create_error", "error", err)
		} else {
			jobID = id
			if err := p.audit.SetStatus(ctx, jobID, constants.JobStatusRunning, ""); err != nil {
				logger.Warn("pipeline.audit.status_error", "error", err)
			}
		}
	}

	text, confidence := p.recognize(ctx, logger, doc)
	if strings.TrimSpace(text) == "" {
		logger.Warn("pipeline.document.no_text")
		res.Status = constants.JobStatusFailed
		res.Error = "no text recognized on any page"
		p.recordAudit(ctx, logger, jobID, &res)
		return res
	}
	validation := p.validator.Validate(ctx, text, confidence)
	res.ValidationStatus = validation.Status
	res.TextLength = validation.TextLength

	verdict := p.class.Classify(ctx, validation.ValidatedText)
	res.DocumentType = p.router.Normalize(verdict.DocumentType)
	res.Confidence = verdict.Confidence
	res.Reasoning = verdict.Reasoning
	res.Status = constants.JobStatusOCROK

	res.Extraction = p.router.Route(ctx, res.DocumentType, validation.ValidatedText)
	if res.Extraction != nil {
		res.Status = constants.JobStatusExtracted
		p.submit(ctx, logger, &res)
	}

	p.recordAudit(ctx, logger, jobID, &res)
	logger.Info("pipeline.document.done",
		"document_type", res.DocumentType,
		"status", res.Status,
	)
	return res
}

// recognize concatenates per-page text; page failures contribute nothing
// rather than failing the document.
func (p *Processor) recognize(ctx context.Context, logger *slog.Logger, doc segment.LogicalDocument) (string, float32) {
	var b strings.Builder
	var confSum float32
	recognized := 0
	for _, page := range doc.Pages {
		rec, err := p.engine.Recognize(ctx, page.ImagePath)
		if err != nil {
			logger.Warn("pipeline.recognize.page_error", "page", page.Index, "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(rec.Text)
		confSum += rec.Confidence
		recognized++
	}
	if recognized == 0 {
		return "", 0
	}
	return b.String(), confSum / float32(recognized)
}

func (p *Processor) submit(ctx context.Context, logger *slog.Logger, res *DocumentResult) {
	if !p.opts.PostEnabled || p.submitter == nil {
		return
	}

	schema, err := p.submitter.SchemaFor(ctx, p.opts.Operation)
	if err != nil {
		logger.Warn("pipeline.submit.schema_error", "operation", p.opts.Operation, "error", err)
		res.Status = constants.JobStatusFailed
		res.Error = fmt.Sprintf("fetch schema: %v", err)
		return
	}

	sample, err := payload.LoadSample(p.opts.SamplesDir, p.opts.Operation)
	if err != nil {
		logger.Warn("pipeline.submit.sample_error", "operation", p.opts.Operation, "error", err)
		sample = map[string]any{}
	}

	asm := p.assembler.Assemble(ctx, p.opts.Operation, schema, sample, res.Extraction.Fields)
	res.Assembly = &asm

	if !asm.Validation.Valid && p.opts.PostValidation {
		logger.Warn("pipeline.submit.blocked_invalid",
			"operation", p.opts.Operation,
			"errors", len(asm.Validation.Errors),
		)
		return
	}

	submitRes, err := p.submitter.Submit(ctx, p.opts.Operation, asm.Payload)
	if err != nil {
		logger.Error("pipeline.submit.request_error", "error", err)
		res.Status = constants.JobStatusFailed
		res.Error = err.Error()
		return
	}
	res.Submission = &submitRes
	if submitRes.Outcome == constants.SubmissionSuccess {
		res.Status = constants.JobStatusSubmitted
	}
}

func (p *Processor) recordAudit(ctx context.Context, logger *slog.Logger, jobID string, res *DocumentResult) {
	if p.audit == nil || jobID == "" {
		return
	}
	rec := store.Record{
		ID:               jobID,
		DocumentType:     res.DocumentType,
		Confidence:       res.Confidence,
		Status:           res.Status,
		SplitMethod:      res.SplitMethod,
		PageRange:        res.PageRange,
		ValidationStatus: res.ValidationStatus,
		Error:            res.Error,
	}
	if res.Submission != nil {
		rec.SubmissionOutcome = res.Submission.Outcome
	}
	if err := p.audit.Update(ctx, rec); err != nil {
		logger.Warn("pipeline.audit.update_error", "error", err)
	}
}
