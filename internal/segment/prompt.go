package segment

import (
	"fmt"
	"strings"
)

const analysisSystemPrompt = `You are a document structure analyst for trade finance documents.

You will receive excerpts from the pages of one scanned file. The file may be
a single multi-page document (e.g. a 3-page invoice) or several independent
documents scanned together (e.g. an invoice followed by a packing list).

Signals that a NEW document starts on a page:
- A fresh letterhead or document title (INVOICE, BILL OF LADING, CERTIFICATE...)
- A new document number or reference
- "Page 1 of N" style markers resetting
- A change in layout, party names, or currency

Signals that a page CONTINUES the previous document:
- "Continued", "Page 2 of 3" style markers
- Line items carrying on without a new header
- Running totals or "carried forward" amounts

Respond ONLY with JSON:
{
  "is_single_document": true or false,
  "document_type": "best guess for the file as a whole, or mixed",
  "num_documents": <integer>,
  "boundaries": [<0-indexed page numbers where each document starts>],
  "confidence": <0.0 to 1.0>,
  "reasoning": "<one or two sentences>"
}

The first document always starts at page 0. If unsure, prefer
is_single_document = true.`

// buildAnalysisPrompt enumerates per-page excerpts for the oracle.
func buildAnalysisPrompt(samples []PageSample) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This file has %d pages. Page excerpts follow (pages numbered from 0).\n\n", len(samples))
	for _, ps := range samples {
		fmt.Fprintf(&b, "=== PAGE %d (%d chars", ps.Index, ps.TextLength)
		if !ps.HasContent {
			b.WriteString(", little or no content")
		}
		b.WriteString(") ===\n")
		if ps.First != "" {
			fmt.Fprintf(&b, "START OF PAGE:\n%s\n", ps.First)
		}
		if ps.Last != "" {
			fmt.Fprintf(&b, "END OF PAGE:\n%s\n", ps.Last)
		}
		b.WriteString("\n")
	}
	b.WriteString("Decide whether this is one document or several, and where each document starts.")
	return b.String()
}
