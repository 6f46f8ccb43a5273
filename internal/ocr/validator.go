package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tradefinlabs/docpipeline/constants"
	"github.com/tradefinlabs/docpipeline/internal/llm"
)

// Correction-pass bounds.
const (
	correctionSampleLimit = 2000 // chars sent to the oracle
	minReadableRatio      = 0.5  // alnum-or-space share below which text is garbage
	minUsableTextLength   = 10   // below this, skip everything
)

// Config holds the correction-pass thresholds.
type Config struct {
	Enabled             bool
	ConfidenceThreshold float32       // correct only strictly below this
	MinTextLength       int           // correct only at or above this many chars
	Timeout             time.Duration // short; correction is a cheap pass
}

// Result reports one validation pass. ValidatedText always holds usable text:
// the corrected version when a correction was accepted, the raw text otherwise.
type Result struct {
	RawText       string
	ValidatedText string
	Confidence    float32
	TextLength    int
	Status        constants.ValidationStatus
}

// Validator decides whether a second-pass correction of recognized text is
// worth an oracle call, and bounds its effect.
type Validator struct {
	cfg    Config
	oracle llm.Oracle
	logger *slog.Logger
}

func NewValidator(cfg Config, oracle llm.Oracle, logger *slog.Logger) *Validator {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.85
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{cfg: cfg, oracle: oracle, logger: logger}
}

// Validate runs the gate and, when it fires, the bounded correction pass.
// Oracle failures never propagate; the raw text always survives.
func (v *Validator) Validate(ctx context.Context, rawText string, confidence float32) Result {
	res := Result{
		RawText:       rawText,
		ValidatedText: rawText,
		Confidence:    confidence,
		TextLength:    len(rawText),
	}

	if len(strings.TrimSpace(rawText)) < minUsableTextLength {
		res.Status = constants.ValidationSkippedShortText
		return res
	}
	if !v.cfg.Enabled {
		res.Status = constants.ValidationSkippedDisabled
		return res
	}

	// The gate: all three conditions must hold for a correction to be worth
	// an oracle call. Each miss is tagged with its own reason.
	if len(rawText) < v.cfg.MinTextLength {
		res.Status = constants.ValidationSkippedShortText
		return res
	}
	if confidence >= v.cfg.ConfidenceThreshold {
		res.Status = constants.ValidationSkippedHighConf
		return res
	}
	if readableRatio(rawText) < minReadableRatio {
		res.Status = constants.ValidationSkippedUnreadable
		return res
	}

	v.logger.Info("ocr.validate.start",
		"confidence", confidence,
		"threshold", v.cfg.ConfidenceThreshold,
		"text_len", len(rawText),
	)

	corrected, err := v.correct(ctx, rawText, confidence)
	if err != nil {
		reason := "oracle_error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		v.logger.Warn("ocr.validate.failed", "reason", reason, "error", err)
		res.Status = constants.FailedValidation(reason)
		return res
	}

	res.ValidatedText = corrected
	res.TextLength = len(corrected)
	res.Status = constants.ValidationCompleted
	if corrected != rawText {
		v.logger.Info("ocr.validate.corrected", "delta_chars", len(corrected)-len(rawText))
	}
	return res
}

func readableRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	readable := 0
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			readable++
		}
	}
	return float64(readable) / float64(len([]rune(text)))
}

const correctionSystemPrompt = `You are an OCR error correction specialist for trade finance documents.

Your task: Fix ONLY obvious OCR errors while preserving exact meaning and structure.

Common OCR errors to fix:
- Number confusion: O vs 0, I vs 1, S vs 5, B vs 8, Z vs 2
- Letter confusion: rn vs m, cl vs d, vv vs w
- Case errors: lowercase l vs uppercase I

CRITICAL RULES:
1. Fix ONLY obvious OCR errors
2. Do NOT add information that is not there
3. Do NOT remove information
4. Do NOT rephrase or rewrite
5. Preserve formatting (line breaks, spacing)
6. If uncertain, keep the original

Return ONLY the corrected text, nothing else.`

// correct sends a bounded sample to the oracle and applies the sanity bound:
// output shorter than 0.5x or longer than 2x the sample keeps the original.
func (v *Validator) correct(ctx context.Context, rawText string, confidence float32) (string, error) {
	sample := rawText
	remainder := ""
	if len(sample) > correctionSampleLimit {
		sample = rawText[:correctionSampleLimit]
		remainder = rawText[correctionSampleLimit:]
	}

	prompt := fmt.Sprintf(`Review this OCR output and fix obvious errors:

OCR CONFIDENCE: %.0f%%

TEXT:
%s

Return the corrected text (or the same text if no obvious errors).`, confidence*100, sample)

	corrected, err := v.oracle.Generate(ctx, llm.Request{
		Prompt:       prompt,
		SystemPrompt: correctionSystemPrompt,
		Timeout:      v.cfg.Timeout,
	})
	if err != nil {
		return "", err
	}
	corrected = strings.TrimSpace(corrected)

	if float64(len(corrected)) < 0.5*float64(len(sample)) || len(corrected) > 2*len(sample) {
		v.logger.Warn("ocr.validate.rejected_correction",
			"sample_len", len(sample),
			"corrected_len", len(corrected),
		)
		return rawText, nil
	}
	// Only the sampled prefix is corrected; the tail passes through.
	return corrected + remainder, nil
}
