package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		logger.Error("ocr.exec.failed",
			"cmd", name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
			"stderr", clip(errb.String(), 8<<10),
		)
	} else {
		logger.Debug("ocr.exec.ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", time.Since(start).Milliseconds(),
			"stdout_bytes", out.Len(),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

// Tesseract is the production Engine: it shells out to the tesseract binary
// in TSV mode, which yields both text and per-word confidences in one pass.
type Tesseract struct {
	lang   string
	runner Runner
	logger *slog.Logger
}

func NewTesseract(lang string, logger *slog.Logger) *Tesseract {
	if lang == "" {
		lang = "eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tesseract{lang: lang, runner: execRunner{}, logger: logger}
}

var _ Engine = (*Tesseract)(nil)

func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (Recognition, error) {
	stdout, stderr, err := t.runner.Run(ctx, "tesseract", t.logger,
		imagePath, "stdout", "-l", t.lang, "tsv",
	)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract %s: %w (stderr: %s)", imagePath, err, clip(string(stderr), 200))
	}
	text, conf := parseTSV(string(stdout))
	return Recognition{Text: text, Confidence: conf}, nil
}

// parseTSV reconstructs line-broken text from tesseract's TSV output and
// averages word confidences. Word rows are level 5; conf -1 marks layout rows.
func parseTSV(tsv string) (string, float32) {
	var b strings.Builder
	var confSum float64
	words := 0
	lastLine := ""

	for i, row := range strings.Split(tsv, "\n") {
		if i == 0 {
			continue // header
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}
		if cols[0] != "5" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}

		lineKey := cols[2] + ":" + cols[3] + ":" + cols[4] // block:par:line
		if b.Len() > 0 {
			if lineKey != lastLine {
				b.WriteString("\n")
			} else {
				b.WriteString(" ")
			}
		}
		lastLine = lineKey
		b.WriteString(word)
		confSum += conf
		words++
	}

	if words == 0 {
		return "", 0
	}
	return b.String(), float32(confSum/float64(words)) / 100
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
