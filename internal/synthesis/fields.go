package synthesis

import (
	"fmt"
	"math"
	"strings"

	"github.com/prepwise/prepwise/internal/interview"
)

// Field defaults applied when extraction cannot infer a value. Role and
// techstack have no default; their absence fails the pipeline.
const (
	defaultLevel  = interview.LevelJunior
	defaultType   = interview.TypeTechnical
	defaultAmount = 5
	maxAmount     = 20
)

// Fields is the structured-extraction result for interview creation.
type Fields struct {
	Role      string   `json:"role"`
	Level     string   `json:"level"`
	Techstack []string `json:"-"`
	Type      string   `json:"type"`
	Amount    int      `json:"-"`
}

type rawFields struct {
	Role      string  `json:"role"`
	Level     string  `json:"level"`
	Techstack string  `json:"techstack"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
}

const extractionPrompt = `You are an expert at extracting structured data from conversations. Given the transcript of a conversation where a user is creating a mock interview, extract the following fields and return them as a JSON object:
- role (job role, e.g. Frontend Developer)
- level (junior, mid, or senior)
- techstack (comma separated, e.g. React, TypeScript)
- type (technical, behavioral, or mixed)
- amount (number of questions)

If a field is missing, make your best guess based on the context or use these defaults:
- level: junior
- type: technical
- amount: 5

**Examples:**

Transcript:
"""
I want to practice for a Frontend Developer job. I'm a junior. Let's focus on React and TypeScript. Make it technical. 7 questions please.
"""
JSON:
{"role": "Frontend Developer", "level": "junior", "techstack": "React, TypeScript", "type": "technical", "amount": 7}

Transcript:
"""
Can you make a mixed interview for a senior backend developer? Use Node.js, Express, and MongoDB. 10 questions.
"""
JSON:
{"role": "Backend Developer", "level": "senior", "techstack": "Node.js, Express, MongoDB", "type": "mixed", "amount": 10}

Now extract the fields from this transcript:
"""
%s
"""
Return only the JSON object.`

// parseFields validates an extraction response and applies defaults.
func parseFields(response string) (Fields, error) {
	var raw rawFields
	if err := firstJSONObject(response, &raw); err != nil {
		return Fields{}, failf(KindExtractionIncomplete, "parse extracted fields: %w", err)
	}

	raw.Role = strings.TrimSpace(raw.Role)
	if raw.Role == "" {
		return Fields{}, failf(KindExtractionIncomplete, "role missing from extracted fields")
	}
	if strings.TrimSpace(raw.Techstack) == "" {
		return Fields{}, failf(KindExtractionIncomplete, "techstack missing from extracted fields")
	}

	f := Fields{
		Role:  raw.Role,
		Level: strings.ToLower(strings.TrimSpace(raw.Level)),
		Type:  strings.ToLower(strings.TrimSpace(raw.Type)),
	}
	if f.Level == "" {
		f.Level = defaultLevel
	}
	if f.Type == "" {
		f.Type = defaultType
	}

	if raw.Amount == 0 {
		raw.Amount = defaultAmount
	}
	if raw.Amount != math.Trunc(raw.Amount) {
		return Fields{}, failf(KindInvalidFieldValue, "amount %v is not an integer", raw.Amount)
	}
	f.Amount = int(raw.Amount)
	if err := validateAmount(f.Amount); err != nil {
		return Fields{}, err
	}

	f.Techstack = SplitTechstack(raw.Techstack)
	if len(f.Techstack) == 0 {
		return Fields{}, failf(KindInvalidFieldValue, "techstack %q yields no tokens", raw.Techstack)
	}

	return f, nil
}

func validateAmount(amount int) error {
	if amount < 1 || amount > maxAmount {
		return failf(KindInvalidFieldValue, "amount %d out of range 1..%d", amount, maxAmount)
	}
	return nil
}

// SplitTechstack splits a comma-joined techstack into trimmed, non-empty
// tokens, preserving order.
func SplitTechstack(raw string) []string {
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		tokens = append(tokens, trimmed)
	}
	return tokens
}

func extractionRequest(userText string) string {
	return fmt.Sprintf(extractionPrompt, userText)
}
