// Package api serves the tutor over HTTP, WebSocket and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abhisek/aitutor/internal/adaptive"
	"github.com/abhisek/aitutor/internal/chat"
	"github.com/abhisek/aitutor/internal/curriculum"
	"github.com/abhisek/aitutor/internal/logger"
	"github.com/abhisek/aitutor/internal/metrics"
	"github.com/abhisek/aitutor/internal/tutor"
	"github.com/abhisek/aitutor/internal/voice"
)

const maxRequestBodySize = 1 << 20 // 1MB

// defaultDifficulty is used for practice without a lesson to take it from.
const defaultDifficulty = 0.5

// Deps holds what the handlers need. Store and Course are required; the
// rest may be nil.
type Deps struct {
	Store    *tutor.Store
	Course   *curriculum.Course
	Tutor    *chat.Tutor
	Narrator *voice.Narrator
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
}

func (d Deps) log() *logger.Logger {
	if d.Logger == nil {
		return logger.Nop()
	}
	return d.Logger
}

// NewHandler returns the HTTP API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(observe(deps.Metrics))
	}

	r.Get("/health", handleHealth)
	r.Get("/state", handleState(deps))
	r.Get("/recommendation", handleRecommendation(deps))
	r.Get("/context", handleContext(deps))
	r.Get("/lessons", handleLessons(deps))
	r.Post("/lessons/{id}/start", handleStartLesson(deps))
	r.Post("/lessons/{id}/step", handleAdvanceStep(deps))
	r.Post("/lessons/{id}/complete", handleCompleteLesson(deps))
	r.Post("/activity", handleActivity(deps))
	r.Post("/attempts", handleAttempt(deps))
	r.Post("/concepts/{id}/practice", handlePractice(deps))
	r.Get("/concepts/{id}/next-step", handleNextStep(deps))
	r.Post("/ask", handleAsk(deps))
	r.Post("/evaluate", handleEvaluate(deps))
	r.Get("/doubts", handleDoubts(deps))
	r.Patch("/profile", handleProfile(deps))
	r.Post("/reset", handleReset(deps))
	r.Post("/speak", handleSpeak(deps))
	r.Get("/ws", handleWS(deps))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return r
}

// observe records status and latency per route pattern.
func observe(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			m.ObserveHTTP(route, code, time.Since(start))
		})
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleState(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, NewStateView(deps.Store.Snapshot(), deps.Store.Now()))
	}
}

func handleRecommendation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Store.Recommendation())
	}
}

func handleContext(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, deps.Store.AdaptiveContext())
	}
}

func handleLessons(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Course)
	}
}

func handleStartLesson(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		deps.Store.StartLesson(r.Context(), id)
		writeJSON(w, http.StatusOK, NewStateView(deps.Store.Snapshot(), deps.Store.Now()))
	}
}

func handleAdvanceStep(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		step, ok := deps.Store.AdvanceStepIn(r.Context(), id)
		if !ok {
			httpError(w, http.StatusConflict, "lesson_not_current", "lesson %q is not the current lesson", id)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"lessonId": id, "step": step})
	}
}

type completeRequest struct {
	XP *int `json:"xp"`
}

func handleCompleteLesson(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req completeRequest
		if !decodeOptional(w, r, &req) {
			return
		}

		id := chi.URLParam(r, "id")
		xp := 0
		if l, ok := deps.Course.Lesson(id); ok {
			xp = l.XP
		}
		if req.XP != nil {
			xp = *req.XP
		}

		completed := deps.Store.CompleteLesson(r.Context(), id, xp)
		st := deps.Store.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"completed": completed,
			"xp":        st.XP,
			"level":     st.Level(),
		})
	}
}

func handleActivity(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Store.RecordActivity()
		w.WriteHeader(http.StatusNoContent)
	}
}

type attemptRequest struct {
	Success     bool     `json:"success"`
	ConceptID   string   `json:"conceptId"`
	ConceptName string   `json:"conceptName"`
	Difficulty  *float64 `json:"difficulty"`
}

type attemptResponse struct {
	Recommendation adaptive.Recommendation `json:"recommendation"`
	IsStruggling   bool                    `json:"isStruggling"`
	Concept        *ConceptView            `json:"concept,omitempty"`
}

func handleAttempt(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req attemptRequest
		if !decodeBody(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, recordAttempt(r.Context(), deps, req))
	}
}

// recordAttempt updates the streaks and, when a concept is named, its
// mastery.
func recordAttempt(ctx context.Context, deps Deps, req attemptRequest) attemptResponse {
	deps.Store.RecordChallengeAttempt(ctx, req.Success)

	var resp attemptResponse
	if req.ConceptID != "" {
		c := practice(ctx, deps, req.ConceptID, req.ConceptName, req.Difficulty, req.Success)
		resp.Concept = &c
	}
	resp.Recommendation = deps.Store.Recommendation()
	resp.IsStruggling = deps.Store.Snapshot().IsStruggling
	return resp
}

type practiceRequest struct {
	Success    bool     `json:"success"`
	Name       string   `json:"name"`
	Difficulty *float64 `json:"difficulty"`
}

func handlePractice(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req practiceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		c := practice(r.Context(), deps, chi.URLParam(r, "id"), req.Name, req.Difficulty, req.Success)
		writeJSON(w, http.StatusOK, c)
	}
}

func practice(ctx context.Context, deps Deps, id, name string, difficulty *float64, success bool) ConceptView {
	if name == "" {
		name = deps.Course.ConceptName(id)
	}
	d := currentDifficulty(deps)
	if difficulty != nil {
		d = *difficulty
	}
	c := deps.Store.UpdateConceptMastery(ctx, id, name, d, success)
	return newConceptView(c, deps.Store.Now())
}

// currentDifficulty is the current lesson's difficulty, or the default
// when no known lesson is in progress.
func currentDifficulty(deps Deps) float64 {
	if l, ok := deps.Course.Lesson(deps.Store.Snapshot().CurrentLessonID); ok {
		return l.Difficulty
	}
	return defaultDifficulty
}

func handleNextStep(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		d := currentDifficulty(deps)
		if q := r.URL.Query().Get("difficulty"); q != "" {
			if _, err := fmt.Sscanf(q, "%g", &d); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request", "invalid difficulty %q", q)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"conceptId": id,
			"mastery":   deps.Store.EffectiveMastery()[id],
			"nextStep":  deps.Store.NextStepFor(id, d),
		})
	}
}

type askRequest struct {
	Question string         `json:"question"`
	Topic    string         `json:"topic"`
	History  []historyEntry `json:"history"`
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request", "question is required")
			return
		}

		res, err := ask(r.Context(), deps, req)
		if err != nil {
			chatError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type evaluateRequest struct {
	Challenge  string   `json:"challenge"`
	Response   string   `json:"response"`
	ConceptID  string   `json:"conceptId"`
	Difficulty *float64 `json:"difficulty"`
}

type evaluateResponse struct {
	Verdict  string           `json:"verdict"`
	Feedback string           `json:"feedback"`
	Fallback bool             `json:"fallback"`
	Attempt  *attemptResponse `json:"attempt,omitempty"`
}

func handleEvaluate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req evaluateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Challenge == "" || req.Response == "" {
			httpError(w, http.StatusBadRequest, "invalid_request", "challenge and response are required")
			return
		}

		ev, err := evaluate(r.Context(), deps, req)
		if err != nil {
			chatError(w, err)
			return
		}

		resp := evaluateResponse{
			Verdict:  ev.Verdict.String(),
			Feedback: ev.Feedback,
			Fallback: ev.Fallback,
		}
		// Only a clear verdict counts as an attempt.
		if ev.Verdict != chat.VerdictUnknown {
			a := recordAttempt(r.Context(), deps, attemptRequest{
				Success:    ev.Verdict == chat.VerdictCorrect,
				ConceptID:  req.ConceptID,
				Difficulty: req.Difficulty,
			})
			resp.Attempt = &a
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleDoubts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doubts []tutor.DoubtEntry
		if lesson := r.URL.Query().Get("lesson"); lesson != "" {
			doubts = deps.Store.DoubtsForLesson(lesson)
		} else {
			doubts = deps.Store.SearchDoubts(r.URL.Query().Get("q"))
		}
		if doubts == nil {
			doubts = []tutor.DoubtEntry{}
		}
		writeJSON(w, http.StatusOK, doubts)
	}
}

func handleProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u tutor.ProfileUpdate
		if !decodeBody(w, r, &u) {
			return
		}
		if err := deps.Store.UpdateProfile(r.Context(), u); err != nil {
			if errors.Is(err, tutor.ErrInvalidProfile) {
				httpError(w, http.StatusBadRequest, "invalid_profile", "%v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "server_error", "update profile failed")
			return
		}
		writeJSON(w, http.StatusOK, deps.Store.Snapshot().Profile)
	}
}

type resetRequest struct {
	Confirm     bool `json:"confirm"`
	KeepProfile bool `json:"keepProfile"`
}

func handleReset(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if !req.Confirm {
			httpError(w, http.StatusBadRequest, "confirmation_required", `reset requires {"confirm":true}`)
			return
		}
		deps.Store.ResetProgress(r.Context(), req.KeepProfile)
		writeJSON(w, http.StatusOK, NewStateView(deps.Store.Snapshot(), deps.Store.Now()))
	}
}

type speakRequest struct {
	Text     string `json:"text"`
	LessonID string `json:"lessonId"`
	Step     *int   `json:"step"`
}

func handleSpeak(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req speakRequest
		if !decodeBody(w, r, &req) {
			return
		}

		text := req.Text
		if text == "" && req.LessonID != "" {
			text = stepNarration(deps, req.LessonID, req.Step)
		}
		if text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request", "text or a lesson step with narration is required")
			return
		}
		if deps.Narrator == nil || !deps.Narrator.Enabled() {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		audio, err := deps.Narrator.Narrate(r.Context(), text)
		if errors.Is(err, voice.ErrSuperseded) {
			httpError(w, http.StatusConflict, "superseded", "narration was superseded")
			return
		}
		if err != nil || audio == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", audio.MIMEType)
		w.Write(audio.Data)
	}
}

// stepNarration returns the narration of a lesson step. A nil step means
// the current step when the lesson is current, else the first.
func stepNarration(deps Deps, lessonID string, step *int) string {
	l, ok := deps.Course.Lesson(lessonID)
	if !ok {
		return ""
	}
	i := 0
	if step != nil {
		i = *step
	} else if st := deps.Store.Snapshot(); st.CurrentLessonID == lessonID {
		i = st.CurrentStep
	}
	if i < 0 || i >= len(l.Steps) {
		return ""
	}
	return l.Steps[i].Narration
}

func chatError(w http.ResponseWriter, err error) {
	if errors.Is(err, chat.ErrSuperseded) {
		httpError(w, http.StatusConflict, "superseded", "request was superseded by a newer one")
		return
	}
	httpError(w, http.StatusServiceUnavailable, "unavailable", "request cancelled")
}

// decodeBody decodes a required JSON body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request", "invalid request body: %v", err)
		return false
	}
	return true
}

// decodeOptional is decodeBody for endpoints where the body may be empty.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		httpError(w, http.StatusBadRequest, "invalid_request", "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
