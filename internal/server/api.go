package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/prepwise/prepwise/internal/call"
	"github.com/prepwise/prepwise/internal/interview"
	"github.com/prepwise/prepwise/internal/resume"
	"github.com/prepwise/prepwise/internal/store"
	"github.com/prepwise/prepwise/internal/synthesis"
	"github.com/prepwise/prepwise/internal/voice"
)

const defaultLatestLimit = 20

// InterviewStore is the slice of the document store the API depends on.
type InterviewStore interface {
	GetInterview(ctx context.Context, id string) (interview.Interview, error)
	ListInterviewsByUser(ctx context.Context, userID string) ([]interview.Interview, error)
	ListFinalizedInterviews(ctx context.Context) ([]interview.Interview, error)
	DeleteInterview(ctx context.Context, id string) error
	GetFeedbackByInterview(ctx context.Context, interviewID, userID string) (interview.Feedback, error)
	ListFeedbackByUser(ctx context.Context, userID string) ([]interview.Feedback, error)
	DeleteFeedbackByInterview(ctx context.Context, interviewID string) error
}

// InterviewService covers both creation paths: post-call synthesis and
// direct creation from a submitted form.
type InterviewService interface {
	Synthesize(ctx context.Context, transcript []interview.Utterance, userID string) (string, error)
	CreateFromFields(ctx context.Context, fields synthesis.Fields, userID string) (string, error)
}

type FeedbackService interface {
	Score(ctx context.Context, req synthesis.FeedbackRequest) (string, error)
}

type ResumeService interface {
	Analyze(ctx context.Context, resumeText, jobDescription string) (resume.Report, error)
}

// Deps bundles everything the API routes need. Resume may be nil when no
// LLM provider is configured.
type Deps struct {
	Registry   *call.Registry
	Store      InterviewStore
	Hub        *Hub
	Sink       call.EventSink // session event sink; defaults to Hub when nil
	Interviews InterviewService
	Feedback   FeedbackService
	Resume     ResumeService
	Warnings   func() []string
}

type startSessionRequest struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	Intent      string `json:"intent"`
	InterviewID string `json:"interview_id"`
	FeedbackID  string `json:"feedback_id"`
}

type sessionEventRequest struct {
	Type    string `json:"type"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Error   string `json:"error"`
}

type createInterviewRequest struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Level     string `json:"level"`
	Type      string `json:"type"`
	Techstack string `json:"techstack"`
	Amount    int    `json:"amount"`
}

func registerAPIRoutes(mux *http.ServeMux, deps Deps) {
	sink := deps.Sink
	if sink == nil {
		sink = deps.Hub
	}

	mux.HandleFunc("POST /api/call/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req startSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
			return
		}
		if req.UserID == "" {
			writeJSONError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		var intent call.Intent
		switch req.Intent {
		case "generate", "":
			intent = call.GenerateInterview()
		case "conduct":
			if req.InterviewID == "" {
				writeJSONError(w, http.StatusBadRequest, "interview_id is required for a conduct session")
				return
			}
			iv, err := deps.Store.GetInterview(r.Context(), req.InterviewID)
			if err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, store.ErrNotFound) {
					status = http.StatusNotFound
				}
				writeJSONError(w, status, fmt.Sprintf("get interview: %v", err))
				return
			}
			intent = call.ConductInterview(iv.Questions)
		default:
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown intent %q", req.Intent))
			return
		}

		// Relay sessions carry no server-side voice service; the web
		// client owns the vendor call and reports events back here.
		sess := deps.Registry.Create(call.Params{
			UserID:      req.UserID,
			UserName:    req.UserName,
			Intent:      intent,
			InterviewID: req.InterviewID,
			FeedbackID:  req.FeedbackID,
		}, nil, deps.Interviews, deps.Feedback, sink)

		if err := sess.Start(r.Context()); err != nil {
			deps.Registry.Remove(sess.ID())
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("start session: %v", err))
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"session_id": sess.ID(),
			"status":     sess.Status().String(),
		})
	})

	mux.HandleFunc("GET /api/call/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Registry.Get(r.PathValue("id"))
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}

		payload := map[string]any{
			"session_id": sess.ID(),
			"status":     sess.Status().String(),
			"transcript": sess.Transcript(),
		}
		if result := sess.Result(); result != nil {
			payload["result"] = result
		}
		writeJSON(w, http.StatusOK, payload)
	})

	mux.HandleFunc("POST /api/call/sessions/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Registry.Get(r.PathValue("id"))
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}

		var req sessionEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
			return
		}

		ev, err := relayEvent(req)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		// Completion pipelines must outlive the reporting request.
		sess.HandleEvent(context.Background(), ev)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/call/sessions/{id}/disconnect", func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Registry.Get(r.PathValue("id"))
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}

		sess.RequestDisconnect(context.Background())
		writeJSON(w, http.StatusOK, map[string]string{"status": sess.Status().String()})
	})

	mux.HandleFunc("DELETE /api/call/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		deps.Registry.Remove(r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/interviews", func(w http.ResponseWriter, r *http.Request) {
		var req createInterviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
			return
		}
		if req.UserID == "" {
			writeJSONError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		fields := synthesis.Fields{
			Role:      req.Role,
			Level:     req.Level,
			Type:      req.Type,
			Techstack: synthesis.SplitTechstack(req.Techstack),
			Amount:    req.Amount,
		}

		id, err := deps.Interviews.CreateFromFields(r.Context(), fields, req.UserID)
		if err != nil {
			writeJSONError(w, synthesisStatus(err), fmt.Sprintf("create interview: %v", err))
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"interview_id": id})
	})

	mux.HandleFunc("GET /api/interviews", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeJSONError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		interviews, err := deps.Store.ListInterviewsByUser(r.Context(), userID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list interviews: %v", err))
			return
		}
		if interviews == nil {
			interviews = []interview.Interview{}
		}
		writeJSON(w, http.StatusOK, interviews)
	})

	mux.HandleFunc("GET /api/interviews/latest", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		limit := defaultLatestLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = parsed
		}

		interviews, err := deps.Store.ListFinalizedInterviews(r.Context())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list interviews: %v", err))
			return
		}

		// The latest feed offers interviews to take, so anything the
		// requester already has feedback for is filtered out.
		completed := make(map[string]bool)
		if userID != "" {
			feedback, err := deps.Store.ListFeedbackByUser(r.Context(), userID)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list feedback: %v", err))
				return
			}
			for _, fb := range feedback {
				completed[fb.InterviewID] = true
			}
		}

		available := make([]interview.Interview, 0, limit)
		for _, iv := range interviews {
			if completed[iv.ID] {
				continue
			}
			available = append(available, iv)
			if len(available) == limit {
				break
			}
		}
		writeJSON(w, http.StatusOK, available)
	})

	mux.HandleFunc("GET /api/interviews/{id}", func(w http.ResponseWriter, r *http.Request) {
		iv, err := deps.Store.GetInterview(r.Context(), r.PathValue("id"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeJSONError(w, status, fmt.Sprintf("get interview: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, iv)
	})

	mux.HandleFunc("DELETE /api/interviews/{id}", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeJSONError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		id := r.PathValue("id")
		iv, err := deps.Store.GetInterview(r.Context(), id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeJSONError(w, status, fmt.Sprintf("get interview: %v", err))
			return
		}
		if iv.UserID != userID {
			writeJSONError(w, http.StatusForbidden, "interview belongs to another user")
			return
		}

		if err := deps.Store.DeleteFeedbackByInterview(r.Context(), id); err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("delete feedback: %v", err))
			return
		}
		if err := deps.Store.DeleteInterview(r.Context(), id); err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("delete interview: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/interviews/{id}/feedback", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeJSONError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		fb, err := deps.Store.GetFeedbackByInterview(r.Context(), r.PathValue("id"), userID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeJSONError(w, status, fmt.Sprintf("get feedback: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, fb)
	})

	mux.HandleFunc("GET /api/feedback", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeJSONError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		feedback, err := deps.Store.ListFeedbackByUser(r.Context(), userID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list feedback: %v", err))
			return
		}
		if feedback == nil {
			feedback = []interview.Feedback{}
		}
		writeJSON(w, http.StatusOK, feedback)
	})

	mux.HandleFunc("POST /api/resume/analyze", func(w http.ResponseWriter, r *http.Request) {
		if deps.Resume == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "resume analysis is not configured")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, resume.MaxUploadSize)
		if err := r.ParseMultipartForm(resume.MaxUploadSize); err != nil {
			writeJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("parse upload: %v", err))
			return
		}

		file, _, err := r.FormFile("resume")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "resume file is required")
			return
		}
		defer func() { _ = file.Close() }()

		text, err := io.ReadAll(file)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("read upload: %v", err))
			return
		}

		report, err := deps.Resume.Analyze(r.Context(), string(text), r.FormValue("job_description"))
		if err != nil {
			if errors.Is(err, resume.ErrEmptyResume) {
				writeJSONError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeJSONError(w, synthesisStatus(err), fmt.Sprintf("analyze resume: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		var warnings []string
		if deps.Warnings != nil {
			warnings = deps.Warnings()
		}
		if warnings == nil {
			warnings = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sessions": deps.Registry.Len(),
			"warnings": warnings,
		})
	})
}

func relayEvent(req sessionEventRequest) (voice.Event, error) {
	ev := voice.Event{Type: voice.EventType(req.Type), Text: req.Text}

	switch ev.Type {
	case voice.EventCallStarted, voice.EventCallEnded,
		voice.EventSpeechStarted, voice.EventSpeechEnded:
	case voice.EventTranscriptFinal, voice.EventTranscriptPartial:
		switch speaker := interview.Speaker(req.Speaker); speaker {
		case interview.SpeakerUser, interview.SpeakerAssistant, interview.SpeakerSystem:
			ev.Speaker = speaker
		default:
			return voice.Event{}, fmt.Errorf("unknown speaker %q", req.Speaker)
		}
	case voice.EventError:
		ev.Err = errors.New(req.Error)
	default:
		return voice.Event{}, fmt.Errorf("unknown event type %q", req.Type)
	}
	return ev, nil
}

// synthesisStatus maps pipeline error kinds onto HTTP statuses.
func synthesisStatus(err error) int {
	switch synthesis.KindOf(err) {
	case synthesis.KindExtractionIncomplete, synthesis.KindInvalidFieldValue:
		return http.StatusUnprocessableEntity
	case synthesis.KindServiceTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
