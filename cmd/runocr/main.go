package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/tradefinlabs/docpipeline/internal/common"
	"github.com/tradefinlabs/docpipeline/internal/llm/ollama"
	"github.com/tradefinlabs/docpipeline/internal/ocr"
)

// runocr recognizes a single page image and runs the correction pass over it.
// Useful for tuning OCR_CONFIDENCE_THRESHOLD against real scans.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: runocr <image_path>")
		os.Exit(2)
	}
	imagePath := os.Args[1]

	cfg := common.LoadConfig()
	ctx := context.Background()

	engine := ocr.NewTesseract("eng", logger)
	rec, err := engine.Recognize(ctx, imagePath)
	if err != nil {
		logger.Error("recognition failed", "path", imagePath, "error", err)
		os.Exit(1)
	}
	logger.Info("recognition complete",
		"path", imagePath,
		"confidence", rec.Confidence,
		"text_len", len(rec.Text),
	)

	oracle := ollama.NewClient(ollama.Config{
		APIURL:      cfg.LLM.OllamaURL,
		Model:       cfg.LLM.OllamaModel,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	validator := ocr.NewValidator(ocr.Config{
		Enabled:             cfg.OCR.EnableValidation,
		ConfidenceThreshold: cfg.OCR.ConfidenceThreshold,
		MinTextLength:       cfg.OCR.MinTextLength,
		Timeout:             cfg.OCR.ValidationTimeout,
	}, oracle, logger)

	res := validator.Validate(ctx, rec.Text, rec.Confidence)
	logger.Info("validation complete",
		"status", res.Status,
		"raw_len", len(res.RawText),
		"validated_len", res.TextLength,
	)

	fmt.Println(res.ValidatedText)
}
