// Package chat asks the LLM for tutoring answers, answer checks and review
// questions. A failed call never surfaces as an error: the learner gets
// FallbackAnswer and the lesson can move on.
package chat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/abhisek/aitutor/internal/llm"
	"github.com/abhisek/aitutor/internal/logger"
)

// ErrSuperseded is returned to a caller whose request was replaced by a
// newer one before it finished.
var ErrSuperseded = errors.New("chat: request superseded")

// Outcomes receives one signal per collaborator call.
type Outcomes interface {
	Collaborator(kind, outcome string)
}

// Request is one question to the tutor.
type Request struct {
	History         []llm.Message
	Topic           string
	Prompt          string
	AdaptiveContext string
}

// Answer is the tutor's reply. Fallback is set when the reply is
// FallbackAnswer or BlockedAnswer because the provider gave none.
type Answer struct {
	Text     string
	Fallback bool
	Cached   bool
}

// Tutor answers learner questions. Ask and Evaluate share one conversation:
// starting either cancels the one in flight, whose caller then gets
// ErrSuperseded.
type Tutor struct {
	provider llm.Provider
	cfg      Config
	review   ReviewConfig
	log      *logger.Logger
	outcomes Outcomes
	answers  *cache.Cache

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Option customises a Tutor.
type Option func(*Tutor)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(t *Tutor) { t.log = l }
}

// WithOutcomes reports every call outcome to o.
func WithOutcomes(o Outcomes) Option {
	return func(t *Tutor) { t.outcomes = o }
}

// WithReviewConfig overrides review question settings.
func WithReviewConfig(c ReviewConfig) Option {
	return func(t *Tutor) { t.review = c }
}

// New creates a Tutor. A nil provider is allowed: every answer is then
// FallbackAnswer.
func New(provider llm.Provider, cfg Config, opts ...Option) *Tutor {
	t := &Tutor{
		provider: provider,
		cfg:      cfg,
		review:   DefaultReviewConfig(),
		log:      logger.Nop(),
	}
	for _, o := range opts {
		o(t)
	}
	t.log = t.log.With("component", "chat")
	if cfg.CacheTTL > 0 {
		t.answers = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return t
}

// Available reports whether a provider is configured.
func (t *Tutor) Available() bool {
	return t.provider != nil
}

// Ask answers a learner question.
func (t *Tutor) Ask(ctx context.Context, req Request) (Answer, error) {
	key := cacheKey(req)
	if t.answers != nil {
		if text, ok := t.answers.Get(key); ok {
			// A cached answer is still the newest request.
			t.Cancel()
			t.report("answer", "cached")
			return Answer{Text: text.(string), Cached: true}, nil
		}
	}

	text, err := t.generate(ctx, llm.PurposeAnswer, llm.Request{
		System:      buildSystem(tutorSystemPrompt, req.Topic, req.AdaptiveContext),
		Messages:    t.conversation(req.History, req.Prompt),
		MaxTokens:   t.cfg.MaxTokens,
		Temperature: t.cfg.Temperature,
	})
	if err != nil {
		return t.fallback("answer", err)
	}

	if t.answers != nil {
		t.answers.Set(key, text, cache.DefaultExpiration)
	}
	t.report("answer", "ok")
	return Answer{Text: text}, nil
}

// Verdict is the outcome of an answer check.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictCorrect
	VerdictIncorrect
)

func (v Verdict) String() string {
	switch v {
	case VerdictCorrect:
		return "correct"
	case VerdictIncorrect:
		return "incorrect"
	default:
		return "unknown"
	}
}

// EvalRequest asks the tutor to check a learner's answer.
type EvalRequest struct {
	Challenge       string
	Response        string
	Topic           string
	AdaptiveContext string
}

// Evaluation is the checked answer. With Fallback set the verdict is
// VerdictUnknown and Feedback is FallbackAnswer.
type Evaluation struct {
	Verdict  Verdict
	Feedback string
	Fallback bool
}

// Evaluate checks a learner's answer.
func (t *Tutor) Evaluate(ctx context.Context, req EvalRequest) (Evaluation, error) {
	text, err := t.generate(ctx, llm.PurposeEvaluate, llm.Request{
		System: buildSystem(evaluateSystemPrompt, req.Topic, req.AdaptiveContext),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildEvaluateMessage(req.Challenge, req.Response)},
		},
		MaxTokens: t.cfg.MaxTokens,
	})
	if err != nil {
		a, err := t.fallback("evaluate", err)
		if err != nil {
			return Evaluation{}, err
		}
		return Evaluation{Feedback: a.Text, Fallback: true}, nil
	}

	v, feedback := ParseVerdict(text)
	t.report("evaluate", "ok")
	return Evaluation{Verdict: v, Feedback: feedback}, nil
}

// generate runs one superseding call and returns the reply text.
func (t *Tutor) generate(ctx context.Context, purpose string, req llm.Request) (string, error) {
	if t.provider == nil {
		return "", llm.ErrNotConfigured
	}

	callCtx, id, done := t.begin(ctx)
	defer done()
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, t.cfg.Timeout)
		defer cancel()
	}

	resp, err := t.provider.Generate(llm.WithPurpose(callCtx, purpose), req)
	if !t.current(id) {
		return "", ErrSuperseded
	}
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty reply")
	}
	return text, nil
}

// fallback turns a failed call into FallbackAnswer. Supersession and
// caller cancellation are returned as errors instead.
func (t *Tutor) fallback(kind string, err error) (Answer, error) {
	switch {
	case errors.Is(err, ErrSuperseded):
		t.report(kind, "superseded")
		return Answer{}, err
	case errors.Is(err, context.Canceled):
		return Answer{}, err
	}
	var blocked *llm.ErrBlocked
	if errors.As(err, &blocked) {
		t.log.Info("tutor reply blocked", "kind", kind, "reason", blocked.Reason)
		t.report(kind, "blocked")
		return Answer{Text: BlockedAnswer, Fallback: true}, nil
	}
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.log.Warn("tutor call failed, using fallback", "kind", kind, "error", err)
	}
	t.report(kind, "fallback")
	return Answer{Text: FallbackAnswer, Fallback: true}, nil
}

func (t *Tutor) begin(parent context.Context) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.seq++
	id := t.seq
	t.cancel = cancel
	t.mu.Unlock()

	return ctx, id, func() {
		t.mu.Lock()
		if t.seq == id {
			t.cancel = nil
		}
		t.mu.Unlock()
		cancel()
	}
}

func (t *Tutor) current(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq == id
}

// Cancel abandons the request in flight, if any.
func (t *Tutor) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.seq++
}

func (t *Tutor) conversation(history []llm.Message, prompt string) []llm.Message {
	if n := t.cfg.HistoryTurns; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: prompt})
}

func (t *Tutor) report(kind, outcome string) {
	if t.outcomes != nil {
		t.outcomes.Collaborator(kind, outcome)
	}
}

func cacheKey(req Request) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
