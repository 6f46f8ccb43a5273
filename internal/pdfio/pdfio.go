// Package pdfio turns source files into ordered page images. PDFs are
// rendered one page per image; standalone images pass through as a single
// page.
package pdfio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/tradefinlabs/docpipeline/constants"
	"github.com/tradefinlabs/docpipeline/internal/ocr"
)

// Renderer rasterizes source files into per-page images under an output
// directory.
type Renderer struct {
	outputDir string
	dpi       int
	logger    *slog.Logger
}

func NewRenderer(outputDir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{outputDir: outputDir, dpi: 300, logger: logger}
}

// PageCount reports the number of pages in a PDF.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	n, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("page count for %s: %w", path, err)
	}
	return n, nil
}

// Pages renders the source file into ordered page images. Image inputs yield
// a single page referencing the original file; PDFs are rasterized page by
// page with pdftoppm.
func (r *Renderer) Pages(ctx context.Context, path string) ([]ocr.Page, error) {
	format := constants.MapExtToFormat(filepath.Ext(path))
	switch format {
	case constants.IMAGE:
		return []ocr.Page{{Index: 0, ImagePath: path}}, nil
	case constants.PDF:
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	count, err := PageCount(path)
	if err != nil {
		return nil, err
	}
	r.logger.Info("pdfio.render.start", "path", path, "pages", count)

	pageDir := filepath.Join(r.outputDir, "pages", stem(path))
	if err := os.MkdirAll(pageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create page dir: %w", err)
	}

	type result struct {
		page int
		err  error
	}
	sem := make(chan struct{}, runtime.NumCPU())
	results := make(chan result, count)
	for page := 1; page <= count; page++ {
		sem <- struct{}{}
		go func(page int) {
			defer func() { <-sem }()
			results <- result{page: page, err: r.renderPage(ctx, path, pageDir, page)}
		}(page)
	}

	for i := 0; i < count; i++ {
		if res := <-results; res.err != nil {
			return nil, fmt.Errorf("render page %d of %s: %w", res.page, path, res.err)
		}
	}

	pages := make([]ocr.Page, count)
	for i := range pages {
		pages[i] = ocr.Page{
			Index:     i,
			ImagePath: filepath.Join(pageDir, fmt.Sprintf("page_%04d.png", i+1)),
		}
	}
	r.logger.Info("pdfio.render.done", "path", path, "pages", count)
	return pages, nil
}

// renderPage rasterizes one 1-indexed PDF page with pdftoppm (poppler-utils).
func (r *Renderer) renderPage(ctx context.Context, pdfPath, pageDir string, page int) error {
	prefix := filepath.Join(pageDir, fmt.Sprintf("page_%04d", page))
	pageStr := fmt.Sprintf("%d", page)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", r.dpi),
		"-singlefile",
		pdfPath,
		prefix,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pdftoppm: %w (output: %s)", err, string(output))
	}
	if _, err := os.Stat(prefix + ".png"); err != nil {
		return fmt.Errorf("pdftoppm produced no output: %w", err)
	}
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
