package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tradefinlabs/docpipeline/constants"
	"github.com/tradefinlabs/docpipeline/internal/classify"
	"github.com/tradefinlabs/docpipeline/internal/common"
	"github.com/tradefinlabs/docpipeline/internal/export"
	"github.com/tradefinlabs/docpipeline/internal/gateway"
	"github.com/tradefinlabs/docpipeline/internal/llm"
	"github.com/tradefinlabs/docpipeline/internal/llm/ollama"
	"github.com/tradefinlabs/docpipeline/internal/llm/openai"
	"github.com/tradefinlabs/docpipeline/internal/ocr"
	"github.com/tradefinlabs/docpipeline/internal/payload"
	"github.com/tradefinlabs/docpipeline/internal/pdfio"
	"github.com/tradefinlabs/docpipeline/internal/pipeline"
	"github.com/tradefinlabs/docpipeline/internal/registry"
	"github.com/tradefinlabs/docpipeline/internal/router"
	"github.com/tradefinlabs/docpipeline/internal/segment"
	"github.com/tradefinlabs/docpipeline/internal/store"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory of scanned documents to process (required)")
		out      = flag.String("out", "", "output XLSX report path (defaults to parent directory)")
		jsonOut  = flag.String("json", "", "output JSON results path (optional)")
		lang     = flag.String("lang", "eng", "tesseract language")
		noSubmit = flag.Bool("no-submit", false, "skip downstream submission even when POST_ENABLED is set")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "documents.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	oracle := buildOracle(cfg, logger)

	reg, err := registry.Load(cfg.Registry.Path, logger)
	if err != nil {
		logger.Warn("registry file unavailable, using built-in fallback",
			"path", cfg.Registry.Path, "error", err)
		reg = registry.Fallback()
	}

	audit, err := store.Open(cfg.Store.DSN, logger)
	if err != nil {
		logger.Error("failed to open audit store", "error", err)
		os.Exit(1)
	}
	defer audit.Close()

	engine := ocr.NewTesseract(*lang, logger)
	validator := ocr.NewValidator(ocr.Config{
		Enabled:             cfg.OCR.EnableValidation,
		ConfidenceThreshold: cfg.OCR.ConfidenceThreshold,
		MinTextLength:       cfg.OCR.MinTextLength,
		Timeout:             cfg.OCR.ValidationTimeout,
	}, oracle, logger)
	splitter := segment.NewSplitter(segment.Config{
		MinContentLength: cfg.Segment.MinContentLength,
		Timeout:          cfg.Segment.AnalysisTimeout,
	}, oracle, engine, logger)

	gw := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Gateway.BaseURL,
		Timeout: cfg.Gateway.Timeout,
	}, logger)

	processor := pipeline.NewProcessor(
		pdfio.NewRenderer(cfg.OutputDir, logger),
		engine,
		splitter,
		validator,
		classify.NewClassifier(reg, oracle, cfg.LLM.Timeout, logger),
		router.New(reg, oracle, cfg.LLM.Timeout, logger),
		payload.NewAssembler(oracle, cfg.LLM.Timeout, logger),
		gw,
		audit,
		pipeline.Options{
			Operation:      cfg.Gateway.Operation,
			PostEnabled:    cfg.Gateway.PostEnabled && !*noSubmit,
			PostValidation: cfg.Gateway.PostValidation,
			SamplesDir:     cfg.SamplesDir,
		},
		logger,
	)

	files, err := listSourceFiles(*dir)
	if err != nil {
		logger.Error("failed to scan input directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		printError("Error: no processable files in %s\n", *dir)
		os.Exit(1)
	}
	logger.Info("batch starting", "dir", *dir, "files", len(files))

	var results []pipeline.FileResult
	documents, failures := 0, 0
	for _, path := range files {
		res := processor.ProcessFile(ctx, path)
		if res.Error != "" {
			failures++
		}
		documents += len(res.Documents)
		results = append(results, res)
	}

	if *jsonOut != "" {
		data, err := json.MarshalIndent(results, "", "  ")
		if err == nil {
			err = os.WriteFile(*jsonOut, data, 0o644)
		}
		if err != nil {
			logger.Error("failed to write JSON results", "path", *jsonOut, "error", err)
			os.Exit(1)
		}
	}

	xlsxBytes, err := export.ReportXLSX(results, logger)
	if err != nil {
		logger.Error("failed to build XLSX report", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write report", "path", *out, "error", err)
		os.Exit(1)
	}

	logger.Info("batch complete",
		"files", len(files),
		"documents", documents,
		"failures", failures,
		"report", *out,
	)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files processed: %d\n", len(files))
	fmt.Printf("- Documents: %d\n", documents)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Report: %s\n", *out)
}

func buildOracle(cfg *common.Config, logger *slog.Logger) llm.Oracle {
	switch cfg.LLM.Provider {
	case "openai":
		logger.Info("using openai oracle", "model", cfg.LLM.Model)
		return openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
	default:
		logger.Info("using ollama oracle", "model", cfg.LLM.OllamaModel)
		return ollama.NewClient(ollama.Config{
			APIURL:      cfg.LLM.OllamaURL,
			Model:       cfg.LLM.OllamaModel,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
	}
}

// listSourceFiles returns the processable files directly under dir, sorted.
func listSourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := constants.NormalizeExt(strings.ToLower(filepath.Ext(entry.Name())))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}
