package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prepwise/prepwise/internal/interview"
	"github.com/prepwise/prepwise/internal/llm"
)

// DefaultCallTimeout bounds each external call made by a pipeline.
const DefaultCallTimeout = 45 * time.Second

// InterviewWriter is the slice of the document store the interview
// pipeline needs.
type InterviewWriter interface {
	CreateInterview(ctx context.Context, iv *interview.Interview) (string, error)
}

// InterviewPipeline turns a generation-call transcript into a persisted
// interview: extract fields, validate, generate questions, write.
// All-or-nothing; any step failure leaves the store untouched.
type InterviewPipeline struct {
	client  llm.Client
	store   InterviewWriter
	timeout time.Duration
	now     func() time.Time
}

func NewInterviewPipeline(client llm.Client, store InterviewWriter, timeout time.Duration) *InterviewPipeline {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &InterviewPipeline{
		client:  client,
		store:   store,
		timeout: timeout,
		now:     time.Now,
	}
}

const questionsPrompt = `Prepare questions for a job interview.
The job role is %s.
The job experience level is %s.
The tech stack used in the job is: %s.
The focus between behavioural and technical questions should lean towards: %s.
The amount of questions required is: %d.
Please return only the questions, without any additional text.
The questions are going to be read by a voice assistant so do not use "/" or "*" or any other special characters which might break the voice assistant.
Return the questions formatted like this:
["Question 1", "Question 2", "Question 3"]`

// Synthesize runs the pipeline for one finished generation call and
// returns the id of the created interview.
func (p *InterviewPipeline) Synthesize(ctx context.Context, transcript []interview.Utterance, userID string) (string, error) {
	userText := interview.UserText(transcript)
	if userText == "" {
		return "", failf(KindExtractionIncomplete, "transcript contains no user utterances")
	}

	response, err := p.complete(ctx, llm.Request{Prompt: extractionRequest(userText)})
	if err != nil {
		return "", err
	}

	fields, err := parseFields(response)
	if err != nil {
		return "", err
	}

	questions, err := p.generateQuestions(ctx, fields)
	if err != nil {
		return "", err
	}

	iv := &interview.Interview{
		UserID:        userID,
		Role:          fields.Role,
		Level:         fields.Level,
		Techstack:     fields.Techstack,
		Type:          fields.Type,
		QuestionCount: fields.Amount,
		Questions:     questions,
		Finalized:     true,
		CreatedAt:     p.now().UTC(),
	}

	id, err := p.store.CreateInterview(ctx, iv)
	if err != nil {
		return "", failf(KindPersistenceFailed, "create interview: %w", err)
	}
	return id, nil
}

// GenerateQuestions produces exactly fields.Amount questions for the given
// parameters. Exposed for the form-based creation path, which skips
// extraction.
func (p *InterviewPipeline) GenerateQuestions(ctx context.Context, fields Fields) ([]string, error) {
	if err := validateAmount(fields.Amount); err != nil {
		return nil, err
	}
	return p.generateQuestions(ctx, fields)
}

// CreateFromFields persists an interview for already-known parameters,
// generating the question list. Used by the manual form flow.
func (p *InterviewPipeline) CreateFromFields(ctx context.Context, fields Fields, userID string) (string, error) {
	if strings.TrimSpace(fields.Role) == "" {
		return "", failf(KindExtractionIncomplete, "role is required")
	}
	if len(fields.Techstack) == 0 {
		return "", failf(KindExtractionIncomplete, "techstack is required")
	}
	if fields.Level == "" {
		fields.Level = defaultLevel
	}
	if fields.Type == "" {
		fields.Type = defaultType
	}
	if fields.Amount == 0 {
		fields.Amount = defaultAmount
	}

	questions, err := p.GenerateQuestions(ctx, fields)
	if err != nil {
		return "", err
	}

	iv := &interview.Interview{
		UserID:        userID,
		Role:          fields.Role,
		Level:         fields.Level,
		Techstack:     fields.Techstack,
		Type:          fields.Type,
		QuestionCount: fields.Amount,
		Questions:     questions,
		Finalized:     true,
		CreatedAt:     p.now().UTC(),
	}

	id, err := p.store.CreateInterview(ctx, iv)
	if err != nil {
		return "", failf(KindPersistenceFailed, "create interview: %w", err)
	}
	return id, nil
}

func (p *InterviewPipeline) generateQuestions(ctx context.Context, fields Fields) ([]string, error) {
	prompt := fmt.Sprintf(questionsPrompt,
		fields.Role, fields.Level, strings.Join(fields.Techstack, ", "), fields.Type, fields.Amount)

	response, err := p.complete(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		return nil, err
	}

	var questions []string
	if err := firstJSONArray(response, &questions); err != nil {
		return nil, failf(KindGenerationFailed, "parse questions: %w", err)
	}
	if len(questions) != fields.Amount {
		return nil, failf(KindGenerationFailed, "expected %d questions, got %d", fields.Amount, len(questions))
	}
	return questions, nil
}

func (p *InterviewPipeline) complete(ctx context.Context, req llm.Request) (string, error) {
	return completeWithTimeout(ctx, p.client, req, p.timeout, KindGenerationFailed)
}

// completeWithTimeout runs one bounded generative call. Expiry surfaces as
// ServiceTimeout; any other failure as failKind. No retries.
func completeWithTimeout(ctx context.Context, client llm.Client, req llm.Request, timeout time.Duration, failKind Kind) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	response, err := client.Complete(callCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", failf(KindServiceTimeout, "generative call exceeded %s: %w", timeout, err)
		}
		return "", failf(failKind, "generative call: %w", err)
	}
	return response, nil
}
