package tutor

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/abhisek/aitutor/internal/adaptive"
	"github.com/abhisek/aitutor/internal/logger"
	"github.com/abhisek/aitutor/internal/mastery"
	"github.com/abhisek/aitutor/internal/store"
)

// DefaultKeepSnapshots is how many snapshots survive pruning.
const DefaultKeepSnapshots = 20

// pruneEvery is how many saves happen between prunes.
const pruneEvery = 10

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Recorder receives operational signals from the store.
type Recorder interface {
	Mutation(op string)
	PersistFailure()
	ObserveState(s State)
}

// Options configures a Store. Every field is optional.
type Options struct {
	Snapshots     store.SnapshotRepo
	Events        store.EventRepo
	Logger        *logger.Logger
	Clock         Clock
	Recorder      Recorder
	AppVersion    string
	KeepSnapshots int
}

// Store owns the learner state. All mutations are serialized; readers get
// deep copies. Persistence after a mutation is best effort: failures are
// logged and never reach the caller.
type Store struct {
	mu    sync.Mutex
	state State

	snapshots  store.SnapshotRepo
	events     store.EventRepo
	log        *logger.Logger
	clock      Clock
	recorder   Recorder
	appVersion string
	keep       int

	saveSeq int64
	saves   int

	// stepGen changes whenever the learner lands on a new step, so a
	// stuck nudge fires at most once per step.
	stepGen uint64

	subs    map[int]chan State
	nextSub int
}

// Open builds a store and loads the most recent snapshot. A failed load
// falls back to a fresh state with a warning.
func Open(ctx context.Context, opts Options) *Store {
	s := &Store{
		state:      DefaultState(),
		snapshots:  opts.Snapshots,
		events:     opts.Events,
		log:        opts.Logger,
		clock:      opts.Clock,
		recorder:   opts.Recorder,
		appVersion: opts.AppVersion,
		keep:       opts.KeepSnapshots,
		subs:       make(map[int]chan State),
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With("component", "tutor")
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.keep <= 0 {
		s.keep = DefaultKeepSnapshots
	}

	s.load(ctx)
	now := s.clock.Now()
	s.state.StepStartedAt = now
	s.state.LastActivityAt = now
	return s
}

func (s *Store) load(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	snap, err := s.snapshots.Latest(ctx)
	if err != nil {
		s.log.Warn("load snapshot failed, starting fresh", "error", err)
		return
	}
	if snap == nil {
		return
	}
	s.saveSeq = snap.Sequence
	s.checkVersion(snap.Data.AppVersion)
	s.state = StateFromSnapshot(snap.Data.Tutor)
	s.log.Debug("state loaded", "sequence", snap.Sequence, "xp", s.state.XP)
}

// checkVersion warns when the snapshot was written by a newer build.
func (s *Store) checkVersion(written string) {
	cur := canonicalVersion(s.appVersion)
	prev := canonicalVersion(written)
	if cur == "" || prev == "" {
		return
	}
	if semver.Compare(prev, cur) > 0 {
		s.log.Warn("snapshot written by a newer version", "snapshot_version", written, "running_version", s.appVersion)
	}
}

func canonicalVersion(v string) string {
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// CompleteLesson marks a lesson completed and awards XP. Completing an
// already completed lesson is a no-op. Reports whether the lesson was
// newly completed.
func (s *Store) CompleteLesson(ctx context.Context, lessonID string, xpReward int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lessonID == "" || s.state.IsCompleted(lessonID) {
		return false
	}
	if xpReward < 0 {
		xpReward = 0
	}
	s.state.CompletedLessons = append(s.state.CompletedLessons, lessonID)
	s.state.XP += xpReward
	s.state.LastActivityAt = s.clock.Now()

	s.appendEvent(ctx, "lesson", func(ctx context.Context) error {
		return s.events.AppendLessonEvent(ctx, store.LessonEventData{
			LessonID:  lessonID,
			Action:    store.LessonCompleted,
			Step:      s.state.CurrentStep,
			XPAwarded: xpReward,
		})
	})
	s.commit(ctx, "complete_lesson")
	return true
}

// RecordActivity notes that the learner interacted with the current step.
// It is not persisted.
func (s *Store) RecordActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastActivityAt = s.clock.Now()
}

// TimeOnStep returns the time since the later of the step start and the
// last recorded activity. It is never negative.
func (s *Store) TimeOnStep() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeOnStepLocked(s.clock.Now())
}

func (s *Store) timeOnStepLocked(now time.Time) time.Duration {
	since := s.state.StepStartedAt
	if s.state.LastActivityAt.After(since) {
		since = s.state.LastActivityAt
	}
	if since.IsZero() {
		return 0
	}
	d := now.Sub(since)
	if d < 0 {
		return 0
	}
	return d
}

// IsIdle reports whether the learner has been on the current step without
// activity for at least threshold.
func (s *Store) IsIdle(threshold time.Duration) bool {
	return s.TimeOnStep() >= threshold
}

// RecordChallengeAttempt updates the success/failure streaks. Three
// consecutive failures mark the learner as struggling; any success clears
// the flag.
func (s *Store) RecordChallengeAttempt(ctx context.Context, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	if success {
		st.ConsecutiveSuccesses++
		st.ConsecutiveFailures = 0
		st.IsStruggling = false
	} else {
		st.ConsecutiveFailures++
		st.ConsecutiveSuccesses = 0
		if st.ConsecutiveFailures >= StruggleThreshold {
			st.IsStruggling = true
		}
	}
	st.LastActivityAt = s.clock.Now()

	s.appendEvent(ctx, "attempt", func(ctx context.Context) error {
		return s.events.AppendAttemptEvent(ctx, store.AttemptEventData{
			LessonID:             st.CurrentLessonID,
			Success:              success,
			ConsecutiveSuccesses: st.ConsecutiveSuccesses,
			ConsecutiveFailures:  st.ConsecutiveFailures,
			Struggling:           st.IsStruggling,
		})
	})
	s.commit(ctx, "challenge_attempt")
}

// UpdateConceptMastery applies a practice outcome to a concept, creating
// the concept at level 0 on first touch. The stored level is updated
// directly; decay only affects reads.
func (s *Store) UpdateConceptMastery(ctx context.Context, conceptID, conceptName string, difficulty float64, success bool) mastery.ConceptMastery {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	c, ok := s.state.ConceptMastery[conceptID]
	if !ok {
		c = mastery.ConceptMastery{ConceptID: conceptID, ConceptName: conceptName}
	}
	if conceptName != "" {
		c.ConceptName = conceptName
	}
	if c.ConceptName == "" {
		c.ConceptName = conceptID
	}

	from := c.Level
	c.Level = mastery.UpdateMastery(c.Level, success, difficulty)
	c.LastPracticed = now
	s.state.ConceptMastery[conceptID] = c
	s.state.LastActivityAt = now

	s.appendEvent(ctx, "mastery", func(ctx context.Context) error {
		return s.events.AppendMasteryEvent(ctx, store.MasteryEventData{
			ConceptID:  conceptID,
			FromLevel:  from,
			ToLevel:    c.Level,
			Difficulty: difficulty,
			Success:    success,
		})
	})
	s.commit(ctx, "concept_mastery")
	return c
}

// AddDoubt records a question and its answer.
func (s *Store) AddDoubt(ctx context.Context, question, answer, lessonID, lessonTitle string) DoubtEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := DoubtEntry{
		ID:          uuid.NewString(),
		Question:    question,
		Answer:      answer,
		LessonID:    lessonID,
		LessonTitle: lessonTitle,
		Timestamp:   s.clock.Now(),
	}
	s.state.Doubts = append(s.state.Doubts, d)
	s.state.LastActivityAt = d.Timestamp
	s.appendEvent(ctx, "doubt", func(ctx context.Context) error {
		return s.events.AppendDoubtEvent(ctx, store.DoubtEventData{
			DoubtID:       d.ID,
			LessonID:      lessonID,
			QuestionChars: utf8.RuneCountInString(question),
			AnswerChars:   utf8.RuneCountInString(answer),
		})
	})
	s.commit(ctx, "add_doubt")
	return d
}

// StartLesson makes lessonID current at step 0 and restarts the step timers.
func (s *Store) StartLesson(ctx context.Context, lessonID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CurrentLessonID = lessonID
	s.state.CurrentStep = 0
	s.resetStepTimersLocked()

	s.appendEvent(ctx, "lesson", func(ctx context.Context) error {
		return s.events.AppendLessonEvent(ctx, store.LessonEventData{
			LessonID: lessonID,
			Action:   store.LessonStarted,
		})
	})
	s.commit(ctx, "start_lesson")
}

// AdvanceStep moves to the next step of the current lesson and restarts
// the step timers. Returns the new step index.
func (s *Store) AdvanceStep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceStepLocked(ctx)
}

// AdvanceStepIn advances like AdvanceStep, but only while lessonID is the
// current lesson. It reports false, changing nothing, otherwise.
func (s *Store) AdvanceStepIn(ctx context.Context, lessonID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentLessonID != lessonID {
		return s.state.CurrentStep, false
	}
	return s.advanceStepLocked(ctx), true
}

func (s *Store) advanceStepLocked(ctx context.Context) int {
	s.state.CurrentStep++
	s.resetStepTimersLocked()
	step := s.state.CurrentStep
	lessonID := s.state.CurrentLessonID

	s.appendEvent(ctx, "lesson", func(ctx context.Context) error {
		return s.events.AppendLessonEvent(ctx, store.LessonEventData{
			LessonID: lessonID,
			Action:   store.LessonStepped,
			Step:     step,
		})
	})
	s.commit(ctx, "advance_step")
	return step
}

func (s *Store) resetStepTimersLocked() {
	now := s.clock.Now()
	s.state.StepStartedAt = now
	s.state.LastActivityAt = now
	s.stepGen++
}

// UpdateProfile applies a partial profile change. Invalid values are
// rejected with ErrInvalidProfile and leave the profile untouched.
func (s *Store) UpdateProfile(ctx context.Context, u ProfileUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.IsEmpty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Profile = u.apply(s.state.Profile)
	s.commit(ctx, "update_profile")
	return nil
}

// ResetProgress returns the learner to a fresh state. With keepProfile the
// profile preferences survive.
func (s *Store) ResetProgress(ctx context.Context, keepProfile bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.state.Profile
	s.state = DefaultState()
	if keepProfile {
		s.state.Profile = profile
	}
	s.resetStepTimersLocked()
	s.commit(ctx, "reset_progress")
}

// Restore replaces the whole state with a saved one, as when importing a
// backup. Step timers restart.
func (s *Store) Restore(ctx context.Context, d *store.TutorSnapshotData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateFromSnapshot(d)
	s.resetStepTimersLocked()
	s.commit(ctx, "restore")
}

// Recommendation runs the adaptive engine on the current state.
func (s *Store) Recommendation() adaptive.Recommendation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recommend(s.state)
}

func recommend(st State) adaptive.Recommendation {
	return adaptive.Recommend(adaptive.Input{
		IsStruggling:         st.IsStruggling,
		ConsecutiveSuccesses: st.ConsecutiveSuccesses,
		MathComfort:          string(st.Profile.MathComfort),
		CodingLevel:          string(st.Profile.CodingLevel),
	})
}

// NextStepFor recommends the next step for a concept from its decayed
// mastery. Unknown concepts read as level 0.
func (s *Store) NextStepFor(conceptID string, lessonDifficulty float64) adaptive.NextStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.state.ConceptMastery[conceptID]
	return adaptive.NextStepFor(mastery.ApplyDecay(c, s.clock.Now()), lessonDifficulty)
}

// EffectiveMastery returns every concept's level with decay applied.
func (s *Store) EffectiveMastery() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	out := make(map[string]float64, len(s.state.ConceptMastery))
	for id, c := range s.state.ConceptMastery {
		out[id] = mastery.ApplyDecay(c, now)
	}
	return out
}

// SearchDoubts returns doubts whose question, answer or lesson title
// contains query, case-insensitively, oldest first. An empty query
// returns every doubt.
func (s *Store) SearchDoubts(query string) []DoubtEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []DoubtEntry
	for _, d := range s.state.Doubts {
		if q == "" ||
			strings.Contains(strings.ToLower(d.Question), q) ||
			strings.Contains(strings.ToLower(d.Answer), q) ||
			strings.Contains(strings.ToLower(d.LessonTitle), q) {
			out = append(out, d)
		}
	}
	return out
}

// DoubtsForLesson returns the doubts raised during a lesson, oldest first.
func (s *Store) DoubtsForLesson(lessonID string) []DoubtEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []DoubtEntry
	for _, d := range s.state.Doubts {
		if d.LessonID == lessonID {
			out = append(out, d)
		}
	}
	return out
}

// Subscribe returns a channel that receives the state after every
// mutation and a function that cancels the subscription. A slow reader
// skips intermediate states but always sees the latest one. Received
// states are shared between subscribers and must not be modified.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// appendEvent records an audit event without failing the mutation.
func (s *Store) appendEvent(ctx context.Context, kind string, fn func(context.Context) error) {
	if s.events == nil {
		return
	}
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("append event failed", "kind", kind, "error", err)
	}
}

// commit persists and broadcasts the state after a mutation. Callers hold mu.
func (s *Store) commit(ctx context.Context, op string) {
	if s.recorder != nil {
		s.recorder.Mutation(op)
	}
	s.persistLocked(context.WithoutCancel(ctx), op)

	st := s.state.Clone()
	if s.recorder != nil {
		s.recorder.ObserveState(st)
	}
	for _, ch := range s.subs {
		select {
		case ch <- st:
		default:
			// Replace the stale pending state with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

func (s *Store) persistLocked(ctx context.Context, op string) {
	if s.snapshots == nil {
		return
	}
	s.saveSeq++
	err := s.snapshots.Save(ctx, &store.Snapshot{
		Sequence:  s.saveSeq,
		Timestamp: s.clock.Now().UTC(),
		Data: store.SnapshotData{
			Version:    store.CurrentSnapshotVersion,
			AppVersion: s.appVersion,
			Tutor:      s.state.ToSnapshot(),
		},
	})
	if err != nil {
		s.log.Error("persist state failed", "op", op, "error", err)
		if s.recorder != nil {
			s.recorder.PersistFailure()
		}
		return
	}

	s.saves++
	if s.saves%pruneEvery == 0 {
		if err := s.snapshots.Prune(ctx, s.keep); err != nil {
			s.log.Warn("prune snapshots failed", "error", err)
		}
	}
}
