package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prepwise/prepwise/internal/interview"
	"github.com/prepwise/prepwise/internal/llm"
)

// FeedbackStore is the slice of the document store the feedback pipeline
// needs: the interview under review and the feedback write.
type FeedbackStore interface {
	GetInterview(ctx context.Context, id string) (interview.Interview, error)
	SetFeedback(ctx context.Context, fb *interview.Feedback) (string, error)
}

// FeedbackRequest identifies the finished interview call to score.
// FeedbackID, when set, re-scores an existing record in place.
type FeedbackRequest struct {
	InterviewID string
	UserID      string
	FeedbackID  string
	Transcript  []interview.Utterance
}

// FeedbackPipeline scores a completed interview transcript against the
// fixed rubric and persists the result. Model answers are generated
// best-effort alongside; the rubric scoring call is authoritative.
type FeedbackPipeline struct {
	client  llm.Client
	store   FeedbackStore
	timeout time.Duration
	now     func() time.Time
}

func NewFeedbackPipeline(client llm.Client, store FeedbackStore, timeout time.Duration) *FeedbackPipeline {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &FeedbackPipeline{
		client:  client,
		store:   store,
		timeout: timeout,
		now:     time.Now,
	}
}

const scoringSystem = "You are a professional interviewer analyzing a mock interview. Your task is to evaluate the candidate based on structured categories"

const scoringPrompt = `You are an AI interviewer analyzing a mock interview. Your task is to evaluate the candidate based on structured categories. Be thorough and detailed in your analysis. Don't be lenient with the candidate. If there are mistakes or areas for improvement, point them out.
Transcript:
%s

Please score the candidate from 0 to 100 in the following areas. Do not add categories other than the ones provided:
- **Communication Skills**: Clarity, articulation, structured responses.
- **Technical Knowledge**: Understanding of key concepts for the role.
- **Problem-Solving**: Ability to analyze problems and propose solutions.
- **Cultural & Role Fit**: Alignment with company values and job role.
- **Confidence & Clarity**: Confidence in responses, engagement, and clarity.

Return only a JSON object with this exact shape:
{"totalScore": 0, "categoryScores": {"Communication Skills": 0, "Technical Knowledge": 0, "Problem-Solving": 0, "Cultural & Role Fit": 0, "Confidence & Clarity": 0}, "strengths": [""], "areasForImprovement": [""], "finalAssessment": ""}`

const modelAnswersPrompt = `For each of the following interview questions, provide a model answer suitable for a %s at the %s level. Return the answers as a JSON array matching the order of the questions.
Questions: %s`

// Score runs the pipeline and returns the id of the written feedback
// record. Model answers and rubric scoring run concurrently; both join
// before the write.
func (p *FeedbackPipeline) Score(ctx context.Context, req FeedbackRequest) (string, error) {
	iv, err := p.store.GetInterview(ctx, req.InterviewID)
	if err != nil {
		return "", failf(KindPersistenceFailed, "load interview %s: %w", req.InterviewID, err)
	}

	var (
		answers []string
		fb      interview.Feedback
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		answers = p.modelAnswers(gctx, &iv)
		return nil
	})
	g.Go(func() error {
		scored, err := p.scoreRubric(gctx, req.Transcript)
		if err != nil {
			return err
		}
		fb = scored
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	fb.ID = req.FeedbackID
	fb.InterviewID = req.InterviewID
	fb.UserID = req.UserID
	fb.ModelAnswers = answers
	fb.CreatedAt = p.now().UTC()

	id, err := p.store.SetFeedback(ctx, &fb)
	if err != nil {
		return "", failf(KindPersistenceFailed, "write feedback: %w", err)
	}
	return id, nil
}

// modelAnswers is best-effort: any failure degrades to an empty list.
func (p *FeedbackPipeline) modelAnswers(ctx context.Context, iv *interview.Interview) []string {
	if len(iv.Questions) == 0 {
		return []string{}
	}

	encoded, err := json.Marshal(iv.Questions)
	if err != nil {
		slog.Warn("model answers: encode questions", "interview", iv.ID, "error", err)
		return []string{}
	}

	role := iv.Role
	if role == "" {
		role = "job"
	}
	level := iv.Level
	if level == "" {
		level = "relevant"
	}

	prompt := fmt.Sprintf(modelAnswersPrompt, role, level, string(encoded))
	response, err := completeWithTimeout(ctx, p.client, llm.Request{Prompt: prompt}, p.timeout, KindGenerationFailed)
	if err != nil {
		slog.Warn("model answers: generation failed", "interview", iv.ID, "error", err)
		return []string{}
	}

	answers, err := parseAnswerList(response)
	if err != nil {
		slog.Warn("model answers: unparseable response", "interview", iv.ID, "error", err)
		return []string{}
	}
	return answers
}

type rawScores struct {
	TotalScore          float64            `json:"totalScore"`
	CategoryScores      map[string]float64 `json:"categoryScores"`
	Strengths           []string           `json:"strengths"`
	AreasForImprovement []string           `json:"areasForImprovement"`
	FinalAssessment     string             `json:"finalAssessment"`
}

func (p *FeedbackPipeline) scoreRubric(ctx context.Context, transcript []interview.Utterance) (interview.Feedback, error) {
	prompt := fmt.Sprintf(scoringPrompt, interview.Dialogue(transcript))
	response, err := completeWithTimeout(ctx, p.client, llm.Request{System: scoringSystem, Prompt: prompt}, p.timeout, KindScoringFailed)
	if err != nil {
		return interview.Feedback{}, err
	}

	var raw rawScores
	if err := firstJSONObject(response, &raw); err != nil {
		return interview.Feedback{}, failf(KindScoringFailed, "parse scoring response: %w", err)
	}

	fb := interview.Feedback{
		TotalScore:          roundScore(raw.TotalScore),
		CategoryScores:      make(map[string]int, len(raw.CategoryScores)),
		Strengths:           raw.Strengths,
		AreasForImprovement: raw.AreasForImprovement,
		FinalAssessment:     raw.FinalAssessment,
	}
	for name, score := range raw.CategoryScores {
		fb.CategoryScores[name] = roundScore(score)
	}

	if err := fb.ValidateScores(); err != nil {
		return interview.Feedback{}, failf(KindScoringFailed, "invalid scoring result: %w", err)
	}
	return fb, nil
}

func roundScore(score float64) int {
	return int(math.Round(score))
}
