package interview

import "strings"

// Speaker identifies who produced an utterance.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

// Utterance is one finalized speech turn. Transcripts are append-only and
// keep arrival order.
type Utterance struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// UserText returns the user-side of a transcript, newline-joined in
// arrival order. Used as the extraction input for interview synthesis.
func UserText(transcript []Utterance) string {
	lines := make([]string, 0, len(transcript))
	for _, u := range transcript {
		if u.Speaker != SpeakerUser {
			continue
		}
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

// Dialogue renders a transcript as a flat script, one "{speaker}: {text}"
// line per utterance.
func Dialogue(transcript []Utterance) string {
	var b strings.Builder
	for _, u := range transcript {
		b.WriteString(string(u.Speaker))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(u.Text))
		b.WriteString("\n")
	}
	return b.String()
}
