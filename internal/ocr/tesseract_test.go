package ocr

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	stdout []byte
	err    error
}

func (s stubRunner) Run(context.Context, string, *slog.Logger, ...string) ([]byte, []byte, error) {
	return s.stdout, nil, s.err
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t96\tCOMMERCIAL\n" +
	"5\t1\t1\t1\t1\t2\t12\t0\t10\t10\t92\tINVOICE\n" +
	"5\t1\t1\t1\t2\t1\t0\t12\t10\t10\t88\tTotal\n" +
	"5\t1\t1\t1\t2\t2\t12\t12\t10\t10\t84\t500.00\n"

func TestParseTSV(t *testing.T) {
	text, conf := parseTSV(sampleTSV)
	require.Equal(t, "COMMERCIAL INVOICE\nTotal 500.00", text)
	require.InDelta(t, 0.90, conf, 1e-6)
}

func TestParseTSVEmpty(t *testing.T) {
	text, conf := parseTSV("level\tpage_num\n")
	require.Empty(t, text)
	require.Zero(t, conf)
}

func TestTesseractRecognize(t *testing.T) {
	engine := NewTesseract("eng", nil)
	engine.runner = stubRunner{stdout: []byte(sampleTSV)}

	rec, err := engine.Recognize(context.Background(), "page.png")
	require.NoError(t, err)
	require.Contains(t, rec.Text, "COMMERCIAL INVOICE")
	require.InDelta(t, 0.90, rec.Confidence, 1e-6)
}

func TestTesseractFailure(t *testing.T) {
	engine := NewTesseract("eng", nil)
	engine.runner = stubRunner{err: errors.New("exit status 1")}

	_, err := engine.Recognize(context.Background(), "page.png")
	require.ErrorContains(t, err, "tesseract page.png")
}
