package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tradefinlabs/docpipeline/constants"
	"github.com/tradefinlabs/docpipeline/internal/extract"
	"github.com/tradefinlabs/docpipeline/internal/pipeline"
)

func TestReportXLSX(t *testing.T) {
	results := []pipeline.FileResult{
		{
			Source: "batch.pdf",
			Documents: []pipeline.DocumentResult{
				{
					DocumentID:       "batch.pdf_doc_001",
					PageRange:        "1-2",
					SplitMethod:      constants.SplitMethodLLMBoundary,
					DocumentType:     "commercial_invoice",
					Confidence:       0.93,
					ValidationStatus: constants.ValidationCompleted,
					Extraction: &extract.Result{
						DocumentType: "commercial_invoice",
						Fields:       map[string]any{"invoice_number": "INV-7", "lc_reference": nil},
					},
					Status: constants.JobStatusSubmitted,
				},
				{
					DocumentID:   "batch.pdf_doc_002",
					PageRange:    "3",
					DocumentType: "other",
					Status:       constants.JobStatusOCROK,
				},
			},
		},
		{Source: "broken.pdf", Error: "render failed"},
	}

	data, err := ReportXLSX(results, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Documents")
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 2 documents + 1 failed file

	require.Equal(t, "Source File", rows[0][0])
	require.Equal(t, "batch.pdf_doc_001", rows[1][1])
	require.Equal(t, "1/2", rows[1][7])
	require.Equal(t, "SUBMITTED", rows[1][10])
	require.Equal(t, "other", rows[2][4])
	require.Equal(t, "broken.pdf", rows[3][0])
	require.Equal(t, "render failed", rows[3][11])
}
