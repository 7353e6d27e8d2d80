package synthesis

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSON = errors.New("no well-formed JSON found in response")

// cleanFencedBlock strips markdown code fences from an LLM response.
// Models often wrap JSON in ```json ... ``` blocks even when told not to.
func cleanFencedBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := text[:idx]
		// Skip a language identifier on the opening fence.
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// firstJSONArray extracts the first well-formed JSON array in text and
// unmarshals it into out.
func firstJSONArray(text string, out any) error {
	return firstJSONValue(cleanFencedBlock(text), '[', ']', out)
}

// firstJSONObject extracts the first well-formed JSON object in text and
// unmarshals it into out.
func firstJSONObject(text string, out any) error {
	return firstJSONValue(cleanFencedBlock(text), '{', '}', out)
}

func firstJSONValue(text string, open, closing byte, out any) error {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return errNoJSON
	}

	// Widest candidate first, then shrink from the right. Handles trailing
	// prose after the JSON value.
	for end := strings.LastIndexByte(text, closing); end > start; end = strings.LastIndexByte(text[:end], closing) {
		if json.Unmarshal([]byte(text[start:end+1]), out) == nil {
			return nil
		}
	}
	return errNoJSON
}

// parseAnswerList parses a model-answer response: a JSON array of either
// plain strings or {"answer": "..."} objects, possibly fenced.
func parseAnswerList(text string) ([]string, error) {
	var raw []json.RawMessage
	if err := firstJSONArray(text, &raw); err != nil {
		return nil, err
	}

	answers := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if json.Unmarshal(item, &s) == nil {
			answers = append(answers, s)
			continue
		}
		var obj struct {
			Answer string `json:"answer"`
		}
		if json.Unmarshal(item, &obj) == nil && obj.Answer != "" {
			answers = append(answers, obj.Answer)
			continue
		}
		return nil, errNoJSON
	}
	return answers, nil
}
