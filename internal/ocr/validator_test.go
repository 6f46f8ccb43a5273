package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradefinlabs/docpipeline/constants"
	"github.com/tradefinlabs/docpipeline/internal/llm"
)

func testConfig() Config {
	return Config{
		Enabled:             true,
		ConfidenceThreshold: 0.85,
		MinTextLength:       100,
	}
}

func longText(n int) string {
	return strings.Repeat("INVOICE No 12345 total USD 500.00 ", n/34+1)[:n]
}

func TestValidateGate(t *testing.T) {
	t.Run("fires below threshold", func(t *testing.T) {
		oracle := &llm.Mock{Responses: []string{longText(200)}}
		v := NewValidator(testConfig(), oracle, nil)

		res := v.Validate(context.Background(), longText(200), 0.60)
		require.Equal(t, constants.ValidationCompleted, res.Status)
		require.Equal(t, 1, oracle.CallCount())
	})

	t.Run("confidence equal to threshold does not fire", func(t *testing.T) {
		oracle := &llm.Mock{}
		v := NewValidator(testConfig(), oracle, nil)

		res := v.Validate(context.Background(), longText(200), 0.85)
		require.Equal(t, constants.ValidationSkippedHighConf, res.Status)
		require.Zero(t, oracle.CallCount())
	})

	t.Run("short text does not fire", func(t *testing.T) {
		oracle := &llm.Mock{}
		v := NewValidator(testConfig(), oracle, nil)

		res := v.Validate(context.Background(), longText(99), 0.10)
		require.Equal(t, constants.ValidationSkippedShortText, res.Status)
		require.Zero(t, oracle.CallCount())
	})

	t.Run("garbage text does not fire", func(t *testing.T) {
		oracle := &llm.Mock{}
		v := NewValidator(testConfig(), oracle, nil)

		// Long enough and low confidence, but almost nothing readable: the
		// skip is tagged as unreadable, not as short text.
		garbage := strings.Repeat("@#$%^&*()!~", 20)
		res := v.Validate(context.Background(), garbage, 0.10)
		require.Equal(t, constants.ValidationSkippedUnreadable, res.Status)
		require.Equal(t, garbage, res.ValidatedText)
		require.Zero(t, oracle.CallCount())
	})

	t.Run("disabled skips", func(t *testing.T) {
		cfg := testConfig()
		cfg.Enabled = false
		oracle := &llm.Mock{}
		v := NewValidator(cfg, oracle, nil)

		res := v.Validate(context.Background(), longText(200), 0.10)
		require.Equal(t, constants.ValidationSkippedDisabled, res.Status)
		require.Zero(t, oracle.CallCount())
	})

	t.Run("near-empty input skips everything", func(t *testing.T) {
		oracle := &llm.Mock{}
		v := NewValidator(testConfig(), oracle, nil)

		res := v.Validate(context.Background(), "   ab  ", 0.10)
		require.Equal(t, constants.ValidationSkippedShortText, res.Status)
		require.Equal(t, "   ab  ", res.ValidatedText)
	})
}

func TestValidateCorrectionBounds(t *testing.T) {
	raw := longText(200)

	t.Run("accepted correction replaces text", func(t *testing.T) {
		corrected := strings.ReplaceAll(raw, "O", "0")
		oracle := &llm.Mock{Responses: []string{corrected}}
		v := NewValidator(testConfig(), oracle, nil)

		res := v.Validate(context.Background(), raw, 0.50)
		require.Equal(t, constants.ValidationCompleted, res.Status)
		require.Equal(t, corrected, res.ValidatedText)
		require.Equal(t, raw, res.RawText)
	})

	t.Run("too-short output keeps original", func(t *testing.T) {
		oracle := &llm.Mock{Responses: []string{raw[:50]}}
		v := NewValidator(testConfig(), oracle, nil)

		res := v.Validate(context.Background(), raw, 0.50)
		require.Equal(t, constants.ValidationCompleted, res.Status)
		require.Equal(t, raw, res.ValidatedText)
	})

	t.Run("too-long output keeps original", func(t *testing.T) {
		oracle := &llm.Mock{Responses: []string{longText(500)}}
		v := NewValidator(testConfig(), oracle, nil)

		res := v.Validate(context.Background(), raw, 0.50)
		require.Equal(t, constants.ValidationCompleted, res.Status)
		require.Equal(t, raw, res.ValidatedText)
	})

	t.Run("only sampled prefix is corrected", func(t *testing.T) {
		big := longText(3000)
		fixed := strings.ToLower(big[:correctionSampleLimit])
		oracle := &llm.Mock{Responses: []string{fixed}}
		v := NewValidator(testConfig(), oracle, nil)

		res := v.Validate(context.Background(), big, 0.50)
		require.Equal(t, constants.ValidationCompleted, res.Status)
		require.Equal(t, fixed+big[correctionSampleLimit:], res.ValidatedText)
	})
}

func TestValidateOracleFailure(t *testing.T) {
	oracle := &llm.Mock{Err: errors.New("connection refused")}
	v := NewValidator(testConfig(), oracle, nil)

	raw := longText(200)
	res := v.Validate(context.Background(), raw, 0.50)
	require.Equal(t, constants.FailedValidation("oracle_error"), res.Status)
	require.Equal(t, raw, res.ValidatedText)
}

func TestValidateTimeoutTagged(t *testing.T) {
	oracle := &llm.Mock{Err: context.DeadlineExceeded}
	v := NewValidator(testConfig(), oracle, nil)

	res := v.Validate(context.Background(), longText(200), 0.50)
	require.Equal(t, constants.FailedValidation("timeout"), res.Status)
}
