package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/aitutor/internal/chat"
	"github.com/abhisek/aitutor/internal/curriculum"
	"github.com/abhisek/aitutor/internal/llm"
	"github.com/abhisek/aitutor/internal/metrics"
	"github.com/abhisek/aitutor/internal/tutor"
	"github.com/abhisek/aitutor/internal/voice"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestDeps(t *testing.T, replies ...llm.MockResponse) Deps {
	t.Helper()
	course, err := curriculum.Default()
	require.NoError(t, err)

	m := metrics.New()
	store := tutor.Open(context.Background(), tutor.Options{
		Clock:    fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		Recorder: m,
	})

	cfg := chat.DefaultConfig()
	cfg.CacheTTL = 0
	return Deps{
		Store:    store,
		Course:   course,
		Tutor:    chat.New(llm.NewMockProvider(replies...), cfg),
		Narrator: voice.NewNarrator(voice.NewMockSynthesizer(), voice.NarratorOptions{Voice: "Kore"}),
		Metrics:  m,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
}

func TestLessonFlow(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)

	rr := do(t, h, http.MethodPost, "/lessons/what-is-ml/start", "")
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[StateView](t, rr)
	assert.Equal(t, "what-is-ml", view.CurrentLessonID)
	assert.Equal(t, 0, view.CurrentStep)

	rr = do(t, h, http.MethodPost, "/lessons/what-is-ml/step", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rr)["step"])

	// XP comes from the course when the body is empty.
	rr = do(t, h, http.MethodPost, "/lessons/what-is-ml/complete", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[map[string]any](t, rr)
	assert.Equal(t, true, got["completed"])
	assert.EqualValues(t, 100, got["xp"])

	rr = do(t, h, http.MethodPost, "/lessons/what-is-ml/complete", `{"xp":999}`)
	got = decode[map[string]any](t, rr)
	assert.Equal(t, false, got["completed"])
	assert.EqualValues(t, 100, got["xp"])

	rr = do(t, h, http.MethodPost, "/lessons/custom/complete", `{"xp":450}`)
	got = decode[map[string]any](t, rr)
	assert.EqualValues(t, 550, got["xp"])
	assert.EqualValues(t, 2, got["level"])
}

func TestAdvanceStep_RequiresCurrentLesson(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodPost, "/lessons/linear-regression/step", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	do(t, h, http.MethodPost, "/lessons/linear-regression/start", "")
	do(t, h, http.MethodPost, "/lessons/gradient-descent/start", "")
	rr = do(t, h, http.MethodPost, "/lessons/linear-regression/step", "")
	assert.Equal(t, http.StatusConflict, rr.Code, "a replaced lesson cannot advance")

	rr = do(t, h, http.MethodPost, "/lessons/gradient-descent/step", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rr)["step"])
}

func TestAttempts_StrugglingThenRecovery(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	var resp attemptResponse
	for i := 0; i < 3; i++ {
		rr := do(t, h, http.MethodPost, "/attempts", `{"success":false}`)
		require.Equal(t, http.StatusOK, rr.Code)
		resp = decode[attemptResponse](t, rr)
	}
	assert.True(t, resp.IsStruggling)
	assert.Equal(t, "slow_down", string(resp.Recommendation.Action))
	assert.True(t, resp.Recommendation.Modifications.SimplifyLanguage)

	rr := do(t, h, http.MethodPost, "/attempts", `{"success":true,"conceptId":"gradients","difficulty":0.5}`)
	resp = decode[attemptResponse](t, rr)
	assert.False(t, resp.IsStruggling)
	assert.Equal(t, "maintain", string(resp.Recommendation.Action))
	require.NotNil(t, resp.Concept)
	assert.Equal(t, "Gradients", resp.Concept.Name)
	assert.InDelta(t, 10.0, resp.Concept.Level, 1e-9)
}

func TestPracticeAndNextStep(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodPost, "/concepts/loss-functions/practice", `{"success":true,"difficulty":0.5}`)
	require.Equal(t, http.StatusOK, rr.Code)
	c := decode[ConceptView](t, rr)
	assert.Equal(t, "Loss Functions", c.Name)
	assert.InDelta(t, 10.0, c.Level, 1e-9)
	assert.Equal(t, "Novice", c.Label)

	rr = do(t, h, http.MethodGet, "/concepts/loss-functions/next-step", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "review", decode[map[string]any](t, rr)["nextStep"])

	rr = do(t, h, http.MethodGet, "/concepts/loss-functions/next-step?difficulty=abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPractice_InvalidBody(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodPost, "/concepts/x/practice", `{"success":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAsk_RecordsDoubt(t *testing.T) {
	deps := newTestDeps(t, llm.MockResponse{Text: "The gradient points uphill."})
	h := NewHandler(deps)

	do(t, h, http.MethodPost, "/lessons/gradient-descent/start", "")
	rr := do(t, h, http.MethodPost, "/ask", `{"question":"Which way does the gradient point?"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[askResponse](t, rr)
	assert.Equal(t, "The gradient points uphill.", resp.Answer)
	assert.False(t, resp.Fallback)
	assert.NotEmpty(t, resp.DoubtID)

	rr = do(t, h, http.MethodGet, "/doubts?q=UPHILL", "")
	doubts := decode[[]tutor.DoubtEntry](t, rr)
	require.Len(t, doubts, 1)
	assert.Equal(t, "gradient-descent", doubts[0].LessonID)
	assert.Equal(t, "Gradient Descent", doubts[0].LessonTitle)

	rr = do(t, h, http.MethodGet, "/doubts?lesson=gradient-descent", "")
	assert.Len(t, decode[[]tutor.DoubtEntry](t, rr), 1)
}

func TestAsk_FallbackIsNotRecorded(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodPost, "/ask", `{"question":"What is a tensor?"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[askResponse](t, rr)
	assert.True(t, resp.Fallback)
	assert.Equal(t, chat.FallbackAnswer, resp.Answer)

	rr = do(t, h, http.MethodGet, "/doubts", "")
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestAsk_RequiresQuestion(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodPost, "/ask", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEvaluate(t *testing.T) {
	deps := newTestDeps(t,
		llm.MockResponse{Text: "**CORRECT** Nicely reasoned."},
		llm.MockResponse{Text: "Hard to say."},
	)
	h := NewHandler(deps)

	rr := do(t, h, http.MethodPost, "/evaluate", `{"challenge":"Define MSE","response":"mean of squared errors","conceptId":"loss-functions"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[evaluateResponse](t, rr)
	assert.Equal(t, "correct", resp.Verdict)
	assert.Equal(t, "Nicely reasoned.", resp.Feedback)
	require.NotNil(t, resp.Attempt)
	require.NotNil(t, resp.Attempt.Concept)
	assert.Equal(t, 1, deps.Store.Snapshot().ConsecutiveSuccesses)

	// Without a marker nothing is recorded.
	rr = do(t, h, http.MethodPost, "/evaluate", `{"challenge":"Define MSE","response":"no idea"}`)
	resp = decode[evaluateResponse](t, rr)
	assert.Equal(t, "unknown", resp.Verdict)
	assert.Nil(t, resp.Attempt)
	assert.Equal(t, 1, deps.Store.Snapshot().ConsecutiveSuccesses)
}

func TestProfile(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodPatch, "/profile", `{"pace":"sprint"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPatch, "/profile", `{"name":"Ada","mathComfort":"visual"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	p := decode[tutor.Profile](t, rr)
	assert.Equal(t, "Ada", p.Name)
	assert.Equal(t, tutor.MathVisual, p.MathComfort)
	assert.Equal(t, tutor.PaceNormal, p.Pace)
}

func TestReset(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)
	do(t, h, http.MethodPatch, "/profile", `{"name":"Ada"}`)
	do(t, h, http.MethodPost, "/lessons/what-is-ml/complete", "")

	rr := do(t, h, http.MethodPost, "/reset", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 100, deps.Store.Snapshot().XP)

	rr = do(t, h, http.MethodPost, "/reset", `{"confirm":true,"keepProfile":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[StateView](t, rr)
	assert.Equal(t, 0, view.XP)
	assert.Equal(t, 1, view.Level)
	assert.Equal(t, "Ada", view.Profile.Name)
}

func TestSpeak(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	do(t, h, http.MethodPost, "/lessons/linear-regression/start", "")
	rr := do(t, h, http.MethodPost, "/speak", `{"lessonId":"linear-regression"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
	assert.Equal(t, "Kore:Linear regression draws the straight line that best follows the data points.", rr.Body.String())

	rr = do(t, h, http.MethodPost, "/speak", `{"lessonId":"linear-regression","step":9}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSpeak_NoNarrator(t *testing.T) {
	deps := newTestDeps(t)
	deps.Narrator = voice.NewNarrator(nil, voice.NarratorOptions{})
	h := NewHandler(deps)

	rr := do(t, h, http.MethodPost, "/speak", `{"text":"hello"}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestStateAndContext(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)
	do(t, h, http.MethodPost, "/concepts/gradients/practice", `{"success":true,"difficulty":1}`)

	rr := do(t, h, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[StateView](t, rr)
	require.Len(t, view.Concepts, 1)
	assert.Equal(t, "gradients", view.Concepts[0].ID)
	assert.InDelta(t, 15.0, view.Concepts[0].Effective, 1e-9)
	require.NotNil(t, view.Concepts[0].LastPracticed)

	rr = do(t, h, http.MethodGet, "/context", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Learner: Learner")
	assert.Contains(t, rr.Body.String(), "Needs review: Gradients")

	rr = do(t, h, http.MethodGet, "/recommendation", "")
	assert.Equal(t, "maintain", decode[map[string]any](t, rr)["action"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewHandler(newTestDeps(t))
	do(t, h, http.MethodGet, "/health", "")
	do(t, h, http.MethodPost, "/lessons/what-is-ml/start", "")

	rr := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `aitutor_http_requests_total{code="200",route="/health"} 1`)
	assert.Contains(t, body, `route="/lessons/{id}/start"`)
	assert.Contains(t, body, `aitutor_state_mutations_total{op="start_lesson"} 1`)
}

func TestWebSocketStreamsState(t *testing.T) {
	deps := newTestDeps(t)
	srv := httptest.NewServer(NewHandler(deps))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first StateView
	require.NoError(t, conn.ReadJSON(&first))
	assert.Empty(t, first.CurrentLessonID)

	deps.Store.StartLesson(context.Background(), "what-is-ml")

	var next StateView
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "what-is-ml", next.CurrentLessonID)
}
