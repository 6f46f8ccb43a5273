package llm

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	reFencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	reFencedAny  = regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```")

	reDocType   = regexp.MustCompile(`"document_type"\s*:\s*"([^"]+)"`)
	reDocConf   = regexp.MustCompile(`"document_confidence"\s*:\s*([\d.]+)`)
	reReasoning = regexp.MustCompile(`"reasoning"\s*:\s*"([^"]+)"`)
)

// RecoverJSON extracts a JSON object from free-form oracle output.
// Strategies are tried in order, first success wins:
//  1. parse the trimmed response directly
//  2. parse a ```json fenced block
//  3. parse an untagged fenced block
//  4. balanced-brace scan from each '{' in turn
//  5. regex salvage of the known classification keys
//
// When everything fails it returns a fixed fallback object tagging the
// failure; it never returns an error.
func RecoverJSON(text string) map[string]any {
	if m := tryParse(strings.TrimSpace(text)); m != nil {
		return m
	}

	for _, re := range []*regexp.Regexp{reFencedJSON, reFencedAny} {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			if m := tryParse(match[1]); m != nil {
				return m
			}
		}
	}

	if m := scanBalanced(text); m != nil {
		return m
	}

	if m := salvageKnownKeys(text); m != nil {
		return m
	}

	return map[string]any{
		"document_type":       "other",
		"document_confidence": 0.0,
		"reasoning":           "failed to parse oracle response",
	}
}

func tryParse(s string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

// scanBalanced finds the first '{', walks to its matching brace, and parses
// the span. On parse failure it resumes scanning from the next '{'.
func scanBalanced(text string) map[string]any {
	for start := strings.IndexByte(text, '{'); start != -1; {
		depth := 0
		end := -1
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					end = i
				}
			}
			if end != -1 {
				break
			}
		}
		if end == -1 {
			return nil
		}
		if m := tryParse(text[start : end+1]); m != nil {
			return m
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next == -1 {
			return nil
		}
		start = start + 1 + next
	}
	return nil
}

func salvageKnownKeys(text string) map[string]any {
	dt := reDocType.FindStringSubmatch(text)
	if dt == nil {
		return nil
	}
	out := map[string]any{
		"document_type":       dt[1],
		"document_confidence": 0.0,
		"reasoning":           "extracted from partial response",
	}
	if cm := reDocConf.FindStringSubmatch(text); cm != nil {
		if f, err := strconv.ParseFloat(cm[1], 64); err == nil {
			out["document_confidence"] = f
		}
	}
	if rm := reReasoning.FindStringSubmatch(text); rm != nil {
		out["reasoning"] = rm[1]
	}
	return out
}
