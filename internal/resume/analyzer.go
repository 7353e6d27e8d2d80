// Package resume analyzes an uploaded resume, optionally against a job
// description, using the generative-text service.
package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prepwise/prepwise/internal/llm"
)

// MaxUploadSize bounds resume and job-description uploads.
const MaxUploadSize = 5 << 20

// ErrEmptyResume is returned when no usable text was supplied.
var ErrEmptyResume = errors.New("resume text is empty")

// Analysis is the standalone resume review.
type Analysis struct {
	Summary            string   `json:"summary"`
	Strengths          []string `json:"strengths"`
	Weaknesses         []string `json:"weaknesses"`
	SuggestedQuestions []string `json:"suggestedQuestions"`
	Recommendations    []string `json:"recommendations"`
}

// Match compares the resume against a job description.
type Match struct {
	MatchScore            int      `json:"matchScore"`
	MatchResult           string   `json:"matchResult"`
	MatchedSkills         []string `json:"matchedSkills"`
	MissingSkills         []string `json:"missingSkills"`
	MissingKeywords       []string `json:"missingKeywords"`
	ResumeImprovementTips []string `json:"resumeImprovementTips"`
	ATSScore              int      `json:"atsScore"`
	ATSSections           []string `json:"atsSections"`
	LanguageTone          string   `json:"languageTone"`
	GrammarSpelling       string   `json:"grammarSpelling"`
	JobSummary            string   `json:"jobDescriptionSummary"`
	TopJobRequirements    []string `json:"topJobRequirements"`
}

// Report is the full analyzer response. Match is nil when no job
// description was provided or matching failed.
type Report struct {
	Analysis Analysis `json:"analysis"`
	Match    *Match   `json:"match,omitempty"`
}

type Analyzer struct {
	client  llm.Client
	timeout time.Duration
}

func NewAnalyzer(client llm.Client, timeout time.Duration) *Analyzer {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Analyzer{client: client, timeout: timeout}
}

const analysisPrompt = `You are an expert resume analyzer and career coach. Analyze the following resume and provide a comprehensive analysis in JSON format.

Resume Content:
%s

Please provide your analysis in the following JSON structure:
{
  "summary": "A 2-3 sentence summary of the candidate's background and experience",
  "strengths": ["strength1", "strength2", "strength3", "strength4"],
  "weaknesses": ["weakness1", "weakness2", "weakness3"],
  "suggestedQuestions": ["question1", "question2", "question3", "question4", "question5"],
  "recommendations": ["recommendation1", "recommendation2", "recommendation3"]
}

Guidelines:
- Focus on technical skills, experience, and achievements
- Identify both strengths and areas for improvement
- Suggest relevant interview questions based on their background
- Provide actionable recommendations for improvement
- Keep each item concise but specific
- Make sure the response is valid JSON`

const matchPrompt = `You are an expert career coach and resume/job description matcher. Given the following resume and job description, do the following:
1. List the required skills from the job description that are present in the resume (matchedSkills).
2. List the required skills from the job description that are missing in the resume (missingSkills).
3. Give a numeric match score (0-100) representing how well the resume matches the job description (matchScore).
4. Provide a concise summary (3-5 sentences) of how well the resume matches the job description, highlighting key matches and gaps (matchResult).
5. Suggest actionable resume improvement tips to better match the job description (resumeImprovementTips).
6. List important keywords from the job description that are missing in the resume (missingKeywords).
7. Simulate an ATS (Applicant Tracking System) and provide an atsScore (0-100) for how well the resume would pass an ATS for this job, and list the atsSections (how the resume would be split: Experience, Education, Skills, Projects, etc.).
8. Analyze the language and tone of the resume for professionalism (languageTone), and provide grammar and spelling feedback (grammarSpelling).
9. Summarize the job description in plain language (jobDescriptionSummary) and list the top 5 requirements (topJobRequirements).

Return your answer as a JSON object with keys: matchedSkills (array), missingSkills (array), matchScore (number), matchResult (string), resumeImprovementTips (array), missingKeywords (array), atsScore (number), atsSections (array), languageTone (string), grammarSpelling (string), jobDescriptionSummary (string), topJobRequirements (array).

Resume:
%s

Job Description:
%s`

// Analyze reviews the resume text and, when jobDescription is non-empty,
// matches it against the job. The match step is best-effort; a failed
// match does not fail the report.
func (a *Analyzer) Analyze(ctx context.Context, resumeText, jobDescription string) (Report, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return Report{}, ErrEmptyResume
	}

	analysis, err := a.analyze(ctx, resumeText)
	if err != nil {
		return Report{}, err
	}
	report := Report{Analysis: analysis}

	jobDescription = strings.TrimSpace(jobDescription)
	if jobDescription != "" {
		if match, err := a.match(ctx, resumeText, jobDescription); err == nil {
			report.Match = &match
		}
	}

	return report, nil
}

func (a *Analyzer) analyze(ctx context.Context, resumeText string) (Analysis, error) {
	response, err := a.complete(ctx, fmt.Sprintf(analysisPrompt, resumeText))
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze resume: %w", err)
	}

	var analysis Analysis
	if err := unmarshalObject(response, &analysis); err != nil {
		return Analysis{}, fmt.Errorf("parse resume analysis: %w", err)
	}

	if analysis.Summary == "" {
		analysis.Summary = "Analysis completed successfully."
	}
	return analysis, nil
}

func (a *Analyzer) match(ctx context.Context, resumeText, jobDescription string) (Match, error) {
	response, err := a.complete(ctx, fmt.Sprintf(matchPrompt, resumeText, jobDescription))
	if err != nil {
		return Match{}, fmt.Errorf("match resume: %w", err)
	}

	var match Match
	if err := unmarshalObject(response, &match); err != nil {
		return Match{}, fmt.Errorf("parse resume match: %w", err)
	}
	return match, nil
}

func (a *Analyzer) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.client.Complete(callCtx, llm.Request{Prompt: prompt})
}

// unmarshalObject finds the outermost JSON object in an LLM response and
// decodes it. Models wrap JSON in fences or prose often enough that a
// plain unmarshal is not good enough.
func unmarshalObject(text string, out any) error {
	text = strings.TrimSpace(text)
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return errors.New("no JSON object in response")
	}
	return json.Unmarshal([]byte(text[start:end+1]), out)
}
