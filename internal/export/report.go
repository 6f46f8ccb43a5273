// Package export produces the XLSX batch report: one row per logical
// document across all processed source files.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tradefinlabs/docpipeline/internal/pipeline"
)

// ReportXLSX renders the batch results as an XLSX workbook.
func ReportXLSX(results []pipeline.FileResult, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	defaultSheet, _ := f.GetSheetIndex("Sheet1")
	if defaultSheet != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Source File",
		"Document ID",
		"Pages",
		"Split Method",
		"Document Type",
		"Confidence",
		"Validation",
		"Fields Extracted",
		"Payload Valid",
		"Submission",
		"Status",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	docCount := 0
	for _, file := range results {
		if file.Error != "" && len(file.Documents) == 0 {
			write := cellWriter(f, sheet, row)
			write(1, file.Source)
			write(11, "FAILED")
			write(12, truncate(file.Error, 140))
			row++
			continue
		}
		for _, doc := range file.Documents {
			write := cellWriter(f, sheet, row)
			write(1, file.Source)
			write(2, doc.DocumentID)
			write(3, doc.PageRange)
			write(4, string(doc.SplitMethod))
			write(5, doc.DocumentType)
			write(6, fmt.Sprintf("%.2f", doc.Confidence))
			write(7, string(doc.ValidationStatus))
			if doc.Extraction != nil {
				populated := 0
				for _, v := range doc.Extraction.Fields {
					if v != nil {
						populated++
					}
				}
				write(8, fmt.Sprintf("%d/%d", populated, len(doc.Extraction.Fields)))
			} else {
				write(8, "—")
			}
			if doc.Assembly != nil {
				write(9, doc.Assembly.Validation.Valid)
			} else {
				write(9, "—")
			}
			if doc.Submission != nil {
				write(10, string(doc.Submission.Outcome))
			} else {
				write(10, "—")
			}
			write(11, string(doc.Status))
			write(12, truncate(doc.Error, 140))
			row++
			docCount++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "B", "B", 30)
	_ = f.SetColWidth(sheet, "C", "D", 12)
	_ = f.SetColWidth(sheet, "E", "E", 22)
	_ = f.SetColWidth(sheet, "F", "J", 14)
	_ = f.SetColWidth(sheet, "K", "K", 12)
	_ = f.SetColWidth(sheet, "L", "L", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("export.xlsx.ok",
		"files", len(results),
		"documents", docCount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func cellWriter(f *excelize.File, sheet string, row int) func(col int, v any) {
	return func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
