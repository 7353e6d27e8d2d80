// Package interview holds the persisted domain records: interviews and the
// feedback produced for them.
package interview

import (
	"fmt"
	"strings"
	"time"
)

// Interview type values.
const (
	TypeTechnical  = "technical"
	TypeBehavioral = "behavioral"
	TypeMixed      = "mixed"
)

// Experience level values.
const (
	LevelJunior = "junior"
	LevelMid    = "mid"
	LevelSenior = "senior"
)

// Rubric categories. Feedback scoring must cover exactly these five,
// no others.
const (
	CategoryCommunication  = "Communication Skills"
	CategoryTechnical      = "Technical Knowledge"
	CategoryProblemSolving = "Problem-Solving"
	CategoryCultureFit     = "Cultural & Role Fit"
	CategoryConfidence     = "Confidence & Clarity"
)

// Categories lists the rubric categories in report order.
var Categories = []string{
	CategoryCommunication,
	CategoryTechnical,
	CategoryProblemSolving,
	CategoryCultureFit,
	CategoryConfidence,
}

type Interview struct {
	ID            string    `json:"id" bson:"_id,omitempty"`
	UserID        string    `json:"user_id" bson:"user_id"`
	Role          string    `json:"role" bson:"role"`
	Level         string    `json:"level" bson:"level"`
	Techstack     []string  `json:"techstack" bson:"techstack"`
	Type          string    `json:"type" bson:"type"`
	QuestionCount int       `json:"question_count" bson:"question_count"`
	Questions     []string  `json:"questions" bson:"questions"`
	Finalized     bool      `json:"finalized" bson:"finalized"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

type Feedback struct {
	ID                  string         `json:"id" bson:"_id,omitempty"`
	InterviewID         string         `json:"interview_id" bson:"interview_id"`
	UserID              string         `json:"user_id" bson:"user_id"`
	TotalScore          int            `json:"total_score" bson:"total_score"`
	CategoryScores      map[string]int `json:"category_scores" bson:"category_scores"`
	Strengths           []string       `json:"strengths" bson:"strengths"`
	AreasForImprovement []string       `json:"areas_for_improvement" bson:"areas_for_improvement"`
	FinalAssessment     string         `json:"final_assessment" bson:"final_assessment"`
	ModelAnswers        []string       `json:"model_answers" bson:"model_answers"`
	CreatedAt           time.Time      `json:"created_at" bson:"created_at"`
}

// ValidateScores checks that the feedback covers exactly the five rubric
// categories and that every score is within 0..100.
func (f *Feedback) ValidateScores() error {
	if f.TotalScore < 0 || f.TotalScore > 100 {
		return fmt.Errorf("total score %d out of range", f.TotalScore)
	}
	if len(f.CategoryScores) != len(Categories) {
		return fmt.Errorf("expected %d category scores, got %d", len(Categories), len(f.CategoryScores))
	}
	for _, name := range Categories {
		score, ok := f.CategoryScores[name]
		if !ok {
			return fmt.Errorf("missing category %q", name)
		}
		if score < 0 || score > 100 {
			return fmt.Errorf("category %q score %d out of range", name, score)
		}
	}
	return nil
}

// FormatMarkdown renders the feedback as a plain markdown report, used for
// archival uploads.
func (f *Feedback) FormatMarkdown(iv *Interview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Interview Feedback — %s (%s)\n\n", iv.Role, iv.Level)
	fmt.Fprintf(&b, "Total score: **%d/100**\n\n", f.TotalScore)

	b.WriteString("## Category Scores\n\n")
	for _, name := range Categories {
		fmt.Fprintf(&b, "- %s: %d/100\n", name, f.CategoryScores[name])
	}

	if len(f.Strengths) > 0 {
		b.WriteString("\n## Strengths\n\n")
		for _, s := range f.Strengths {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if len(f.AreasForImprovement) > 0 {
		b.WriteString("\n## Areas for Improvement\n\n")
		for _, s := range f.AreasForImprovement {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	b.WriteString("\n## Final Assessment\n\n")
	b.WriteString(f.FinalAssessment)
	b.WriteString("\n")

	if len(f.ModelAnswers) > 0 {
		b.WriteString("\n## Model Answers\n\n")
		for i, answer := range f.ModelAnswers {
			question := ""
			if i < len(iv.Questions) {
				question = iv.Questions[i]
			}
			fmt.Fprintf(&b, "**Q%d. %s**\n\n%s\n\n", i+1, question, answer)
		}
	}

	return b.String()
}
