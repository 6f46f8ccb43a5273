package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradefinlabs/docpipeline/constants"
	"github.com/tradefinlabs/docpipeline/internal/classify"
	"github.com/tradefinlabs/docpipeline/internal/gateway"
	"github.com/tradefinlabs/docpipeline/internal/llm"
	"github.com/tradefinlabs/docpipeline/internal/ocr"
	"github.com/tradefinlabs/docpipeline/internal/payload"
	"github.com/tradefinlabs/docpipeline/internal/registry"
	"github.com/tradefinlabs/docpipeline/internal/router"
	"github.com/tradefinlabs/docpipeline/internal/segment"
)

type fakePages struct {
	pages []ocr.Page
	err   error
}

func (f *fakePages) Pages(context.Context, string) ([]ocr.Page, error) {
	return f.pages, f.err
}

type fakeEngine struct {
	texts map[string]string
	conf  float32
	err   error
}

func (f *fakeEngine) Recognize(_ context.Context, imagePath string) (ocr.Recognition, error) {
	if f.err != nil {
		return ocr.Recognition{}, f.err
	}
	return ocr.Recognition{Text: f.texts[imagePath], Confidence: f.conf}, nil
}

type stubSubmitter struct {
	schema    map[string]any
	schemaErr error
	result    gateway.SubmitResult
	submitted []map[string]any
}

func (s *stubSubmitter) SchemaFor(context.Context, string) (map[string]any, error) {
	return s.schema, s.schemaErr
}

func (s *stubSubmitter) Submit(_ context.Context, _ string, p map[string]any) (gateway.SubmitResult, error) {
	s.submitted = append(s.submitted, p)
	return s.result, nil
}

func invoiceText() string {
	return "COMMERCIAL INVOICE No INV-7\nSeller: Acme Exports Ltd\nBuyer: Global Imports GmbH\n" +
		"Date: 2026-03-15\nTotal: USD 1,200.50\nGoods: machine parts, 4 crates\nPayment under LC-2211"
}

func newProcessor(t *testing.T, oracle llm.Oracle, sub Submitter, opts Options) *Processor {
	t.Helper()
	reg := registry.Fallback()
	engine := &fakeEngine{texts: map[string]string{"scan.jpg": invoiceText()}, conf: 0.95}
	return NewProcessor(
		&fakePages{pages: []ocr.Page{{Index: 0, ImagePath: "scan.jpg"}}},
		engine,
		segment.NewSplitter(segment.Config{}, oracle, engine, nil),
		ocr.NewValidator(ocr.Config{Enabled: true, ConfidenceThreshold: 0.85, MinTextLength: 100}, oracle, nil),
		classify.NewClassifier(reg, oracle, time.Minute, nil),
		router.New(reg, oracle, time.Minute, nil),
		payload.NewAssembler(oracle, time.Minute, nil),
		sub,
		nil,
		opts,
		nil,
	)
}

func submitSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"invoice_number": map[string]any{"type": "string"},
			"total_amount":   map[string]any{"type": "number"},
		},
	}
}

func TestProcessFileEndToEnd(t *testing.T) {
	oracle := &llm.Mock{Responses: []string{
		`{"document_type": "commercial_invoice", "document_confidence": 0.93, "reasoning": "invoice header"}`,
		`{"invoice_number": "INV-7", "invoice_date": "2026-03-15", "seller_name": "Acme Exports Ltd",
		  "buyer_name": "Global Imports GmbH", "currency": "USD", "total_amount": "$1,200.50",
		  "description_of_goods": "machine parts", "lc_reference": "LC-2211"}`,
		`{"invoice_number": "INV-7", "total_amount": 1200.50}`,
	}}
	sub := &stubSubmitter{
		schema: submitSchema(),
		result: gateway.SubmitResult{Outcome: constants.SubmissionSuccess, StatusCode: 200},
	}
	p := newProcessor(t, oracle, sub, Options{
		Operation:      "setDocumentDetails",
		PostEnabled:    true,
		PostValidation: true,
		SamplesDir:     t.TempDir(),
	})

	res := p.ProcessFile(context.Background(), "/scans/scan.jpg")
	require.Empty(t, res.Error)
	require.Len(t, res.Documents, 1)

	doc := res.Documents[0]
	require.Equal(t, "scan.jpg_doc_001", doc.DocumentID)
	require.Equal(t, "1", doc.PageRange)
	require.Equal(t, constants.SplitMethodSingleImage, doc.SplitMethod)
	require.Equal(t, "commercial_invoice", doc.DocumentType)
	require.Equal(t, constants.ValidationSkippedHighConf, doc.ValidationStatus)
	require.NotNil(t, doc.Extraction)
	require.Equal(t, "INV-7", doc.Extraction.Fields["invoice_number"])
	require.NotNil(t, doc.Submission)
	require.Equal(t, constants.JobStatusSubmitted, doc.Status)

	require.Len(t, sub.submitted, 1)
	require.Equal(t, 1200.50, sub.submitted[0]["total_amount"])
}

func TestProcessFilePostDisabled(t *testing.T) {
	oracle := &llm.Mock{Responses: []string{
		`{"document_type": "commercial_invoice", "document_confidence": 0.93}`,
		`{"invoice_number": "INV-7", "total_amount": 1200.50}`,
	}}
	sub := &stubSubmitter{schema: submitSchema()}
	p := newProcessor(t, oracle, sub, Options{Operation: "setDocumentDetails"})

	res := p.ProcessFile(context.Background(), "/scans/scan.jpg")
	doc := res.Documents[0]
	require.Nil(t, doc.Submission)
	require.Nil(t, doc.Assembly)
	require.Equal(t, constants.JobStatusExtracted, doc.Status)
	require.Empty(t, sub.submitted)
}

func TestProcessFileInvalidPayloadBlocked(t *testing.T) {
	oracle := &llm.Mock{Responses: []string{
		`{"document_type": "commercial_invoice", "document_confidence": 0.93}`,
		`{"invoice_number": "INV-7"}`,
		`{"invoice_number": "", "total_amount": "not a number"}`,
	}}
	sub := &stubSubmitter{schema: submitSchema()}
	p := newProcessor(t, oracle, sub, Options{
		Operation:      "setDocumentDetails",
		PostEnabled:    true,
		PostValidation: true,
		SamplesDir:     t.TempDir(),
	})

	res := p.ProcessFile(context.Background(), "/scans/scan.jpg")
	doc := res.Documents[0]
	require.NotNil(t, doc.Assembly)
	require.False(t, doc.Assembly.Validation.Valid)
	require.Nil(t, doc.Submission)
	require.Empty(t, sub.submitted)
	require.Equal(t, constants.JobStatusExtracted, doc.Status)
}

func TestProcessFileNoExtractionType(t *testing.T) {
	oracle := &llm.Mock{Responses: []string{
		`{"document_type": "purchase_order", "document_confidence": 0.8}`,
	}}
	sub := &stubSubmitter{schema: submitSchema()}
	p := newProcessor(t, oracle, sub, Options{Operation: "setDocumentDetails", PostEnabled: true})

	res := p.ProcessFile(context.Background(), "/scans/scan.jpg")
	doc := res.Documents[0]
	require.Equal(t, "purchase_order", doc.DocumentType)
	require.Nil(t, doc.Extraction)
	require.Nil(t, doc.Submission)
	require.Empty(t, sub.submitted)
}

func TestProcessFileUnreadablePagesFail(t *testing.T) {
	oracle := &llm.Mock{}
	engine := &fakeEngine{err: errors.New("recognizer down")}
	reg := registry.Fallback()
	p := NewProcessor(
		&fakePages{pages: []ocr.Page{{Index: 0, ImagePath: "scan.jpg"}}},
		engine,
		segment.NewSplitter(segment.Config{}, oracle, engine, nil),
		ocr.NewValidator(ocr.Config{Enabled: true}, oracle, nil),
		classify.NewClassifier(reg, oracle, time.Minute, nil),
		router.New(reg, oracle, time.Minute, nil),
		payload.NewAssembler(oracle, time.Minute, nil),
		nil, nil, Options{}, nil,
	)

	res := p.ProcessFile(context.Background(), "/scans/scan.jpg")
	require.Empty(t, res.Error)
	require.Len(t, res.Documents, 1)

	doc := res.Documents[0]
	require.Equal(t, constants.JobStatusFailed, doc.Status)
	require.Contains(t, doc.Error, "no text recognized")
	require.Zero(t, oracle.CallCount())
}

func TestProcessFileSchemaFetchFails(t *testing.T) {
	oracle := &llm.Mock{Responses: []string{
		`{"document_type": "commercial_invoice", "document_confidence": 0.93}`,
		`{"invoice_number": "INV-7", "total_amount": 1200.50}`,
	}}
	sub := &stubSubmitter{schemaErr: errors.New("gateway unavailable")}
	p := newProcessor(t, oracle, sub, Options{
		Operation:   "setDocumentDetails",
		PostEnabled: true,
		SamplesDir:  t.TempDir(),
	})

	res := p.ProcessFile(context.Background(), "/scans/scan.jpg")
	doc := res.Documents[0]
	require.Equal(t, constants.JobStatusFailed, doc.Status)
	require.Contains(t, doc.Error, "fetch schema")
	require.Nil(t, doc.Submission)
	require.Empty(t, sub.submitted)
}

func TestProcessFileRenderError(t *testing.T) {
	p := NewProcessor(
		&fakePages{err: context.DeadlineExceeded},
		&fakeEngine{}, nil, nil, nil, nil, nil, nil, nil, Options{}, nil,
	)

	res := p.ProcessFile(context.Background(), "/scans/broken.pdf")
	require.NotEmpty(t, res.Error)
	require.Empty(t, res.Documents)
}
