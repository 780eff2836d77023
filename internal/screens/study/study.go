package study

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/aitutor/internal/chat"
	"github.com/abhisek/aitutor/internal/curriculum"
	"github.com/abhisek/aitutor/internal/llm"
	"github.com/abhisek/aitutor/internal/logger"
	"github.com/abhisek/aitutor/internal/mastery"
	"github.com/abhisek/aitutor/internal/router"
	"github.com/abhisek/aitutor/internal/screen"
	"github.com/abhisek/aitutor/internal/tutor"
	"github.com/abhisek/aitutor/internal/ui/components"
	"github.com/abhisek/aitutor/internal/ui/layout"
	"github.com/abhisek/aitutor/internal/ui/theme"
	"github.com/abhisek/aitutor/internal/voice"
)

// stuckNudge is shown when the learner idles on a step.
const stuckNudge = "Stuck on this step? Ask a question below, or press Tab to move on."

// exchange is one question and its reply, as shown in the transcript.
type exchange struct {
	Question string
	Answer   string
	Fallback bool
}

// StudyScreen walks the learner through one lesson: narration per step,
// questions to the tutor, review quizzes and a stuck nudge.
type StudyScreen struct {
	deps   screen.Deps
	lesson curriculum.Lesson
	log    *logger.Logger

	step       int
	completed  bool
	transcript []exchange
	history    []llm.Message
	input      components.TextInput

	pending   bool // waiting for the tutor
	nudge     string
	narration string

	quiz     *chat.ReviewQuestion
	feedback string

	ctx     context.Context
	cancel  context.CancelFunc
	watch   *tutor.Watch
	nudges  chan tutor.StuckEvent
	narrate chan narrationMsg
}

var _ screen.Screen = (*StudyScreen)(nil)
var _ screen.KeyHintProvider = (*StudyScreen)(nil)
var _ screen.Closer = (*StudyScreen)(nil)

// New creates a StudyScreen for lesson.
func New(deps screen.Deps, lesson curriculum.Lesson) *StudyScreen {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &StudyScreen{
		deps:    deps,
		lesson:  lesson,
		log:     log.With("screen", "study", "lesson", lesson.ID),
		input:   components.NewTextInput("Ask the tutor anything about this step...", 500),
		nudges:  make(chan tutor.StuckEvent, 1),
		narrate: make(chan narrationMsg, 1),
	}
}

// Init resumes the lesson when it is already current, otherwise starts it
// at step 0, then starts the stuck watcher and the first narration.
func (s *StudyScreen) Init() tea.Cmd {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	st := s.deps.Store.Snapshot()
	if st.CurrentLessonID == s.lesson.ID {
		s.step = st.CurrentStep
	} else {
		s.deps.Store.StartLesson(s.ctx, s.lesson.ID)
		s.step = 0
	}
	s.completed = st.IsCompleted(s.lesson.ID)

	s.watch = s.deps.Store.StartWatch(s.ctx, s.deps.Watch, func(ev tutor.StuckEvent) {
		select {
		case s.nudges <- ev:
		default:
		}
	})

	return tea.Batch(
		s.input.Init(),
		waitFor(s.ctx, s.nudges, func(ev tutor.StuckEvent) tea.Msg { return stuckMsg(ev) }),
		waitFor(s.ctx, s.narrate, func(m narrationMsg) tea.Msg { return m }),
		s.startNarration(),
	)
}

// Close stops the watcher and abandons tutor calls and narration.
func (s *StudyScreen) Close() {
	if s.watch != nil {
		s.watch.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.deps.Tutor != nil {
		s.deps.Tutor.Cancel()
	}
	if s.deps.Narrator != nil {
		s.deps.Narrator.Stop()
	}
}

func (s *StudyScreen) Title() string {
	return s.lesson.Title
}

func (s *StudyScreen) KeyHints() []layout.KeyHint {
	next := "Next step"
	if s.onLastStep() {
		next = "Finish lesson"
	}
	hints := []layout.KeyHint{
		{Key: "Enter", Description: "Ask"},
		{Key: "Tab", Description: next},
		{Key: "Ctrl+R", Description: "Quiz me"},
		{Key: "Esc", Description: "Back"},
	}
	if s.quiz != nil {
		hints[0].Description = "Answer quiz"
	}
	return hints
}

func (s *StudyScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s.handleKey(msg)

	case answerMsg:
		return s.handleAnswer(msg)

	case reviewMsg:
		return s.handleReview(msg)

	case evalMsg:
		return s.handleEval(msg)

	case stuckMsg:
		if msg.Step == s.step && !s.pending {
			s.nudge = stuckNudge
		}
		return s, waitFor(s.ctx, s.nudges, func(ev tutor.StuckEvent) tea.Msg { return stuckMsg(ev) })

	case narrationMsg:
		if msg.Step == s.step {
			if msg.Audio != nil {
				s.narration = "narration ready"
			} else {
				s.narration = ""
			}
		}
		return s, waitFor(s.ctx, s.narrate, func(m narrationMsg) tea.Msg { return m })
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *StudyScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	// Any key counts as activity on the step.
	s.deps.Store.RecordActivity()
	s.nudge = ""

	switch msg.String() {
	case "esc":
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	case "tab":
		return s, s.advance()
	case "ctrl+r":
		return s, s.requestReview()
	case "enter":
		return s, s.submit()
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

// advance moves to the next step, or completes the lesson on the last one.
func (s *StudyScreen) advance() tea.Cmd {
	if s.onLastStep() {
		if !s.completed {
			s.deps.Store.CompleteLesson(s.ctx, s.lesson.ID, s.lesson.XP)
			s.completed = true
		}
		return func() tea.Msg { return router.PopScreenMsg{} }
	}
	s.step = s.deps.Store.AdvanceStep(s.ctx)
	s.feedback = ""
	return s.startNarration()
}

func (s *StudyScreen) onLastStep() bool {
	return s.step >= len(s.lesson.Steps)-1
}

// submit sends the input as a question, or as the answer to an open quiz.
func (s *StudyScreen) submit() tea.Cmd {
	text := s.input.Value()
	if text == "" || s.pending {
		return nil
	}
	s.input.Reset()
	s.pending = true

	if s.quiz != nil {
		return s.evaluate(*s.quiz, text)
	}
	return s.ask(text)
}

func (s *StudyScreen) ask(question string) tea.Cmd {
	if s.deps.Tutor == nil {
		return func() tea.Msg {
			return answerMsg{Question: question, Answer: chat.Answer{Text: chat.FallbackAnswer, Fallback: true}}
		}
	}
	req := chat.Request{
		History:         append([]llm.Message(nil), s.history...),
		Topic:           s.lesson.Title,
		Prompt:          question,
		AdaptiveContext: s.deps.Store.AdaptiveContext(),
	}
	t, ctx := s.deps.Tutor, s.ctx
	return func() tea.Msg {
		a, err := t.Ask(ctx, req)
		return answerMsg{Question: question, Answer: a, Err: err}
	}
}

func (s *StudyScreen) handleAnswer(msg answerMsg) (screen.Screen, tea.Cmd) {
	if errors.Is(msg.Err, chat.ErrSuperseded) {
		// A newer request owns the pending state.
		return s, nil
	}
	s.pending = false
	if msg.Err != nil {
		return s, nil
	}

	s.transcript = append(s.transcript, exchange{
		Question: msg.Question,
		Answer:   msg.Answer.Text,
		Fallback: msg.Answer.Fallback,
	})
	if !msg.Answer.Fallback {
		s.history = append(s.history,
			llm.Message{Role: llm.RoleUser, Content: msg.Question},
			llm.Message{Role: llm.RoleAssistant, Content: msg.Answer.Text},
		)
		s.deps.Store.AddDoubt(s.ctx, msg.Question, msg.Answer.Text, s.lesson.ID, s.lesson.Title)
	}
	return s, nil
}

// requestReview asks for a quiz on the lesson's weakest concept.
func (s *StudyScreen) requestReview() tea.Cmd {
	if s.pending || s.deps.Tutor == nil || len(s.lesson.Concepts) == 0 {
		return nil
	}
	c, level := s.weakestConcept()
	in := chat.ReviewInput{
		ConceptID:       c.ID,
		ConceptName:     c.Name,
		Mastery:         level,
		LessonTitle:     s.lesson.Title,
		AdaptiveContext: s.deps.Store.AdaptiveContext(),
	}
	s.pending = true
	t, ctx := s.deps.Tutor, s.ctx
	return func() tea.Msg {
		q, err := t.ReviewQuestion(ctx, in)
		return reviewMsg{ConceptID: c.ID, Question: q, Err: err}
	}
}

// weakestConcept returns the lesson concept with the lowest effective
// mastery. Ties keep course order.
func (s *StudyScreen) weakestConcept() (curriculum.Concept, float64) {
	levels := s.deps.Store.EffectiveMastery()
	best := s.lesson.Concepts[0]
	bestLevel := levels[best.ID]
	for _, c := range s.lesson.Concepts[1:] {
		if l := levels[c.ID]; l < bestLevel {
			best, bestLevel = c, l
		}
	}
	return best, bestLevel
}

func (s *StudyScreen) handleReview(msg reviewMsg) (screen.Screen, tea.Cmd) {
	s.pending = false
	if msg.Err != nil {
		s.log.Warn("review question failed", "concept", msg.ConceptID, "error", msg.Err)
		s.feedback = "Couldn't make a quiz right now. Try again in a moment."
		return s, nil
	}
	s.quiz = msg.Question
	s.feedback = ""
	return s, nil
}

func (s *StudyScreen) evaluate(q chat.ReviewQuestion, response string) tea.Cmd {
	req := chat.EvalRequest{
		Challenge:       q.Question + "\nExpected answer: " + q.Answer,
		Response:        response,
		Topic:           s.lesson.Title,
		AdaptiveContext: s.deps.Store.AdaptiveContext(),
	}
	t, ctx := s.deps.Tutor, s.ctx
	return func() tea.Msg {
		ev, err := t.Evaluate(ctx, req)
		return evalMsg{ConceptID: q.ConceptID, Evaluation: ev, Err: err}
	}
}

func (s *StudyScreen) handleEval(msg evalMsg) (screen.Screen, tea.Cmd) {
	if errors.Is(msg.Err, chat.ErrSuperseded) {
		return s, nil
	}
	s.pending = false
	if msg.Err != nil {
		return s, nil
	}

	ev := msg.Evaluation
	s.feedback = ev.Feedback
	if ev.Verdict == chat.VerdictUnknown {
		// Keep the quiz open so the learner can try again.
		return s, nil
	}

	success := ev.Verdict == chat.VerdictCorrect
	s.deps.Store.RecordChallengeAttempt(s.ctx, success)
	s.deps.Store.UpdateConceptMastery(s.ctx, msg.ConceptID, s.deps.Course.ConceptName(msg.ConceptID), s.lesson.Difficulty, success)
	s.quiz = nil
	return s, nil
}

// startNarration narrates the current step in the background.
func (s *StudyScreen) startNarration() tea.Cmd {
	if s.deps.Narrator == nil || !s.deps.Narrator.Enabled() || s.step >= len(s.lesson.Steps) {
		return nil
	}
	step := s.step
	s.narration = "narrating..."
	out := s.narrate
	s.deps.Narrator.Start(s.ctx, s.lesson.Steps[step].Narration, func(a *voice.Audio) {
		select {
		case out <- narrationMsg{Step: step, Audio: a}:
		default:
		}
	})
	return nil
}

func (s *StudyScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")

	if s.step < len(s.lesson.Steps) {
		st := s.lesson.Steps[s.step]
		bar := components.NewProgressBar(
			fmt.Sprintf("  Step %d/%d", s.step+1, len(s.lesson.Steps)),
			float64(s.step+1)/float64(len(s.lesson.Steps)), false, min(width-4, 50))
		b.WriteString(bar.View())
		b.WriteString("\n\n")
		b.WriteString(theme.Title.Render("  " + st.Title))
		b.WriteString("\n")
		b.WriteString(theme.Card.Width(min(width-4, 90)).Render(st.Narration))
		b.WriteString("\n")
	}
	if s.narration != "" {
		b.WriteString(theme.Hint.Render("  ♪ " + s.narration))
		b.WriteString("\n")
	}
	b.WriteString(s.renderConcepts())
	b.WriteString("\n")

	// Keep the latest exchanges that fit.
	start := max(len(s.transcript)-3, 0)
	for _, ex := range s.transcript[start:] {
		b.WriteString(theme.Selected.Render("  You: " + ex.Question))
		b.WriteString("\n")
		style := theme.Body
		if ex.Fallback {
			style = theme.Hint
		}
		b.WriteString(style.Width(min(width-4, 90)).Render("  Tutor: " + ex.Answer))
		b.WriteString("\n")
	}

	if s.quiz != nil {
		b.WriteString(theme.Subtitle.Render("  Quiz: " + s.quiz.Question))
		b.WriteString("\n")
		if s.quiz.Hint != "" {
			b.WriteString(theme.Hint.Render("  Hint: " + s.quiz.Hint))
			b.WriteString("\n")
		}
	}
	if s.feedback != "" {
		b.WriteString(theme.Body.Render("  " + s.feedback))
		b.WriteString("\n")
	}
	if s.nudge != "" {
		b.WriteString(theme.Nudge.Render("  " + s.nudge))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if s.pending {
		b.WriteString(theme.Hint.Render("  Thinking..."))
	} else {
		s.input.SetWidth(min(width-6, 90))
		b.WriteString("  " + s.input.View())
	}
	return b.String()
}

// renderConcepts lists the lesson's concepts with their mastery labels.
func (s *StudyScreen) renderConcepts() string {
	if len(s.lesson.Concepts) == 0 {
		return ""
	}
	levels := s.deps.Store.EffectiveMastery()
	parts := make([]string, 0, len(s.lesson.Concepts))
	for _, c := range s.lesson.Concepts {
		label := mastery.LabelFor(levels[c.ID])
		parts = append(parts, c.Name+" "+
			lipgloss.NewStyle().Foreground(theme.LabelColor(label)).Render(string(label)))
	}
	return theme.Hint.Render("  Concepts: ") + strings.Join(parts, "  ·  ")
}

// waitFor turns the next value on ch into a message. It returns nil once
// ctx is done.
func waitFor[T any](ctx context.Context, ch chan T, wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		select {
		case v := <-ch:
			return wrap(v)
		case <-ctx.Done():
			return nil
		}
	}
}
