package tutor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/aitutor/internal/adaptive"
	"github.com/abhisek/aitutor/internal/mastery"
	"github.com/abhisek/aitutor/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memSnapshots is an in-memory SnapshotRepo.
type memSnapshots struct {
	mu      sync.Mutex
	snaps   []store.Snapshot
	saveErr error
	loadErr error
}

func (m *memSnapshots) Save(_ context.Context, snap *store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snaps = append(m.snaps, *snap)
	return nil
}

func (m *memSnapshots) Latest(context.Context) (*store.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if len(m.snaps) == 0 {
		return nil, nil
	}
	s := m.snaps[len(m.snaps)-1]
	return &s, nil
}

func (m *memSnapshots) Prune(_ context.Context, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snaps) > keep {
		m.snaps = m.snaps[len(m.snaps)-keep:]
	}
	return nil
}

func (m *memSnapshots) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snaps)
}

func conceptAt(id string, level float64, practiced time.Time) mastery.ConceptMastery {
	return mastery.ConceptMastery{ConceptID: id, ConceptName: id, Level: level, LastPracticed: practiced}
}

func newTestStore(t *testing.T) (*Store, *fakeClock, *memSnapshots) {
	t.Helper()
	clock := newFakeClock()
	snaps := &memSnapshots{}
	s := Open(context.Background(), Options{Snapshots: snaps, Clock: clock})
	return s, clock, snaps
}

func TestOpen_DefaultState(t *testing.T) {
	s, _, _ := newTestStore(t)
	st := s.Snapshot()
	assert.Equal(t, DefaultProfile(), st.Profile)
	assert.Zero(t, st.XP)
	assert.Empty(t, st.CompletedLessons)
	assert.Empty(t, st.ConceptMastery)
	assert.False(t, st.IsStruggling)
	assert.Equal(t, 1, st.Level())
}

func TestCompleteLesson_Idempotent(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	assert.True(t, s.CompleteLesson(ctx, "intro", 100))
	assert.False(t, s.CompleteLesson(ctx, "intro", 100))

	st := s.Snapshot()
	assert.Equal(t, 100, st.XP)
	assert.Equal(t, []string{"intro"}, st.CompletedLessons)
}

func TestCompleteLesson_LevelDerivation(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	s.CompleteLesson(ctx, "a", 300)
	s.CompleteLesson(ctx, "b", 450)

	st := s.Snapshot()
	assert.Equal(t, 750, st.XP)
	assert.Equal(t, 2, st.Level())
	assert.InDelta(t, 0.5, st.LevelProgress(), 1e-9)
	assert.Equal(t, []string{"a", "b"}, st.CompletedLessons)
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		xp       int
		level    int
		progress float64
	}{
		{0, 1, 0},
		{499, 1, 0.998},
		{500, 2, 0},
		{1250, 3, 0.5},
		{-10, 1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelFor(tt.xp), "level for %d", tt.xp)
		assert.InDelta(t, tt.progress, LevelProgressFor(tt.xp), 1e-9, "progress for %d", tt.xp)
	}
}

func TestRecordChallengeAttempt_StruggleStreak(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	s.RecordChallengeAttempt(ctx, false)
	s.RecordChallengeAttempt(ctx, false)
	assert.False(t, s.Snapshot().IsStruggling)

	s.RecordChallengeAttempt(ctx, false)
	st := s.Snapshot()
	assert.True(t, st.IsStruggling)
	assert.Equal(t, 3, st.ConsecutiveFailures)
	assert.Equal(t, adaptive.ActionSlowDown, s.Recommendation().Action)

	s.RecordChallengeAttempt(ctx, true)
	st = s.Snapshot()
	assert.False(t, st.IsStruggling)
	assert.Equal(t, 1, st.ConsecutiveSuccesses)
	assert.Zero(t, st.ConsecutiveFailures)
}

func TestRecordChallengeAttempt_SpeedUp(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.RecordChallengeAttempt(ctx, true)
	}
	assert.Equal(t, adaptive.ActionSpeedUp, s.Recommendation().Action)

	s.RecordChallengeAttempt(ctx, false)
	assert.Zero(t, s.Snapshot().ConsecutiveSuccesses)
	assert.Equal(t, adaptive.ActionMaintain, s.Recommendation().Action)
}

func TestUpdateConceptMastery_Scenario(t *testing.T) {
	s, clock, _ := newTestStore(t)
	ctx := context.Background()

	// Seed to 50 through a direct state edit so the scenario starts there.
	s.mu.Lock()
	s.state.ConceptMastery["gradients"] = conceptAt("gradients", 50, clock.Now())
	s.mu.Unlock()

	c := s.UpdateConceptMastery(ctx, "gradients", "Gradients", 0.5, true)
	assert.InDelta(t, 57.5, c.Level, 1e-9)

	clock.Advance(24 * time.Hour)
	c = s.UpdateConceptMastery(ctx, "gradients", "", 0.5, false)
	// Updates use the stored level, not the decayed one.
	assert.InDelta(t, 55.0, c.Level, 1e-9)
	assert.Equal(t, "Gradients", c.ConceptName)
	assert.True(t, c.LastPracticed.Equal(clock.Now()))
}

func TestUpdateConceptMastery_CreatesAtZero(t *testing.T) {
	s, _, _ := newTestStore(t)
	c := s.UpdateConceptMastery(context.Background(), "new-concept", "", 1, true)
	assert.InDelta(t, 15, c.Level, 1e-9)
	assert.Equal(t, "new-concept", c.ConceptName)

	st := s.Snapshot()
	require.Contains(t, st.ConceptMastery, "new-concept")
}

func TestEffectiveMasteryAndNextStep(t *testing.T) {
	s, clock, _ := newTestStore(t)

	s.mu.Lock()
	s.state.ConceptMastery["x"] = conceptAt("x", 85, clock.Now())
	s.mu.Unlock()

	assert.Equal(t, adaptive.NextStepAdvance, s.NextStepFor("x", 0.5))

	clock.Advance(10 * 24 * time.Hour)
	assert.InDelta(t, 75, s.EffectiveMastery()["x"], 1e-9)
	assert.Equal(t, adaptive.NextStepPracticeMore, s.NextStepFor("x", 0.5))
	assert.Equal(t, adaptive.NextStepReview, s.NextStepFor("unknown", 0.5))

	// Stored level is untouched by reads.
	assert.InDelta(t, 85, s.Snapshot().ConceptMastery["x"].Level, 1e-9)
}

func TestTimeOnStep(t *testing.T) {
	s, clock, _ := newTestStore(t)
	ctx := context.Background()

	s.StartLesson(ctx, "intro")
	clock.Advance(30 * time.Second)
	assert.Equal(t, 30*time.Second, s.TimeOnStep())

	s.RecordActivity()
	clock.Advance(5 * time.Second)
	assert.Equal(t, 5*time.Second, s.TimeOnStep())
	assert.False(t, s.IsIdle(10*time.Second))

	clock.Advance(20 * time.Second)
	assert.True(t, s.IsIdle(10*time.Second))

	step := s.AdvanceStep(ctx)
	assert.Equal(t, 1, step)
	assert.Zero(t, s.TimeOnStep())
}

func TestStartLesson(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	s.StartLesson(ctx, "intro")
	s.AdvanceStep(ctx)
	s.AdvanceStep(ctx)
	assert.Equal(t, 2, s.Snapshot().CurrentStep)

	s.StartLesson(ctx, "vectors")
	st := s.Snapshot()
	assert.Equal(t, "vectors", st.CurrentLessonID)
	assert.Zero(t, st.CurrentStep)
}

func TestAdvanceStepIn_OnlyCurrentLesson(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	s.StartLesson(ctx, "intro")
	step, ok := s.AdvanceStepIn(ctx, "intro")
	assert.True(t, ok)
	assert.Equal(t, 1, step)

	s.StartLesson(ctx, "vectors")
	step, ok = s.AdvanceStepIn(ctx, "intro")
	assert.False(t, ok)
	assert.Zero(t, step)
	st := s.Snapshot()
	assert.Equal(t, "vectors", st.CurrentLessonID)
	assert.Zero(t, st.CurrentStep, "another lesson's step is untouched")
}

func TestAdvanceStepIn_ConcurrentStart(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	s.StartLesson(ctx, "intro")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			s.AdvanceStepIn(ctx, "intro")
		}
	}()
	go func() {
		defer wg.Done()
		s.StartLesson(ctx, "vectors")
	}()
	wg.Wait()

	// Once vectors is current, no intro advance may touch it.
	st := s.Snapshot()
	assert.Equal(t, "vectors", st.CurrentLessonID)
	assert.Zero(t, st.CurrentStep)
}

func TestAddDoubtAndSearch(t *testing.T) {
	s, clock, _ := newTestStore(t)
	ctx := context.Background()

	d1 := s.AddDoubt(ctx, "What is a gradient?", "A vector of partial derivatives.", "gd", "Gradient Descent")
	clock.Advance(time.Minute)
	d2 := s.AddDoubt(ctx, "Why square the error?", "It penalizes large misses.", "lr", "Linear Regression")

	assert.NotEmpty(t, d1.ID)
	assert.NotEqual(t, d1.ID, d2.ID)

	st := s.Snapshot()
	require.Len(t, st.Doubts, 2)
	assert.Equal(t, d1.ID, st.Doubts[0].ID)

	assert.Len(t, s.SearchDoubts("GRADIENT"), 1)
	assert.Len(t, s.SearchDoubts("linear"), 1)
	assert.Len(t, s.SearchDoubts(""), 2)
	assert.Empty(t, s.SearchDoubts("transformer"))
	assert.Len(t, s.DoubtsForLesson("gd"), 1)
}

func TestAddDoubt_RecordsEvent(t *testing.T) {
	db, err := store.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	s := Open(ctx, Options{Snapshots: &memSnapshots{}, Events: db.EventRepo(), Clock: newFakeClock()})
	s.AddDoubt(ctx, "What is a gradient?", "A vector of partial derivatives.", "gd", "Gradient Descent")

	stats, err := db.EventRepo().Activity(ctx, store.QueryOpts{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DoubtsSaved)
}

func TestUpdateProfile(t *testing.T) {
	s, _, snaps := newTestStore(t)
	ctx := context.Background()

	name := "Ada"
	visual := MathVisual
	require.NoError(t, s.UpdateProfile(ctx, ProfileUpdate{Name: &name, MathComfort: &visual}))

	p := s.Snapshot().Profile
	assert.Equal(t, "Ada", p.Name)
	assert.Equal(t, MathVisual, p.MathComfort)
	assert.Equal(t, CodingBeginner, p.CodingLevel)

	saves := snaps.count()
	bad := Pace("warp")
	err := s.UpdateProfile(ctx, ProfileUpdate{Name: &name, Pace: &bad})
	assert.ErrorIs(t, err, ErrInvalidProfile)
	assert.Equal(t, PaceNormal, s.Snapshot().Profile.Pace)
	assert.Equal(t, saves, snaps.count(), "rejected update must not persist")

	empty := "  "
	assert.ErrorIs(t, s.UpdateProfile(ctx, ProfileUpdate{Name: &empty}), ErrInvalidProfile)
}

func TestParseProfileEnums(t *testing.T) {
	m, err := ParseMathComfort(" Visual ")
	require.NoError(t, err)
	assert.Equal(t, MathVisual, m)

	_, err = ParseCodingLevel("expert")
	assert.ErrorIs(t, err, ErrInvalidProfile)

	p, err := ParsePace("FAST")
	require.NoError(t, err)
	assert.Equal(t, PaceFast, p)
}

func TestResetProgress(t *testing.T) {
	ctx := context.Background()

	for _, keep := range []bool{true, false} {
		t.Run(fmt.Sprintf("keepProfile=%v", keep), func(t *testing.T) {
			s, _, _ := newTestStore(t)
			name := "Ada"
			require.NoError(t, s.UpdateProfile(ctx, ProfileUpdate{Name: &name}))
			s.CompleteLesson(ctx, "intro", 100)
			s.UpdateConceptMastery(ctx, "x", "X", 0.5, true)
			s.AddDoubt(ctx, "q", "a", "intro", "Intro")

			s.ResetProgress(ctx, keep)
			st := s.Snapshot()
			assert.Zero(t, st.XP)
			assert.Empty(t, st.CompletedLessons)
			assert.Empty(t, st.ConceptMastery)
			assert.Empty(t, st.Doubts)
			if keep {
				assert.Equal(t, "Ada", st.Profile.Name)
			} else {
				assert.Equal(t, "Learner", st.Profile.Name)
			}
		})
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	clock := newFakeClock()
	snaps := &memSnapshots{}
	ctx := context.Background()

	s := Open(ctx, Options{Snapshots: snaps, Clock: clock, AppVersion: "v1.0.0"})
	name := "Grace"
	level := CodingAdvanced
	require.NoError(t, s.UpdateProfile(ctx, ProfileUpdate{Name: &name, CodingLevel: &level}))
	s.CompleteLesson(ctx, "intro", 120)
	s.StartLesson(ctx, "gd")
	s.AdvanceStep(ctx)
	s.UpdateConceptMastery(ctx, "gradients", "Gradients", 0.5, true)
	s.AddDoubt(ctx, "q?", "a.", "gd", "Gradient Descent")
	s.RecordChallengeAttempt(ctx, false)

	before := s.Snapshot()

	reloaded := Open(ctx, Options{Snapshots: snaps, Clock: clock, AppVersion: "v1.0.0"})
	after := reloaded.Snapshot()

	assert.Equal(t, before.Profile, after.Profile)
	assert.Equal(t, before.XP, after.XP)
	assert.Equal(t, before.CompletedLessons, after.CompletedLessons)
	assert.Equal(t, before.ConsecutiveFailures, after.ConsecutiveFailures)
	assert.Equal(t, before.CurrentLessonID, after.CurrentLessonID)
	assert.Equal(t, before.CurrentStep, after.CurrentStep)
	require.Len(t, after.Doubts, 1)
	assert.Equal(t, before.Doubts[0].ID, after.Doubts[0].ID)
	assert.True(t, before.Doubts[0].Timestamp.Equal(after.Doubts[0].Timestamp))
	g := after.ConceptMastery["gradients"]
	assert.InDelta(t, before.ConceptMastery["gradients"].Level, g.Level, 1e-9)
	assert.True(t, before.ConceptMastery["gradients"].LastPracticed.Equal(g.LastPracticed))
}

func TestPersistenceFailureDoesNotFailMutation(t *testing.T) {
	clock := newFakeClock()
	snaps := &memSnapshots{saveErr: errors.New("disk full")}
	rec := &countingRecorder{}
	s := Open(context.Background(), Options{Snapshots: snaps, Clock: clock, Recorder: rec})

	assert.True(t, s.CompleteLesson(context.Background(), "intro", 50))
	assert.Equal(t, 50, s.Snapshot().XP)
	assert.Equal(t, 1, rec.persistFailures)
	assert.Equal(t, []string{"complete_lesson"}, rec.ops)
}

func TestLoadFailureFallsBackToDefaults(t *testing.T) {
	snaps := &memSnapshots{loadErr: errors.New("corrupt")}
	s := Open(context.Background(), Options{Snapshots: snaps})
	assert.Equal(t, DefaultProfile(), s.Snapshot().Profile)
}

func TestCanonicalVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", canonicalVersion("1.2.3"))
	assert.Equal(t, "v1.2.3", canonicalVersion("v1.2.3"))
	assert.Equal(t, "", canonicalVersion("(devel)"))
	assert.Equal(t, "", canonicalVersion(""))
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	s.CompleteLesson(ctx, "intro", 10)
	s.UpdateConceptMastery(ctx, "x", "X", 0.5, true)

	st := s.Snapshot()
	st.CompletedLessons[0] = "mutated"
	delete(st.ConceptMastery, "x")

	fresh := s.Snapshot()
	assert.Equal(t, "intro", fresh.CompletedLessons[0])
	assert.Contains(t, fresh.ConceptMastery, "x")
}

func TestSubscribeReceivesLatest(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	ch, cancel := s.Subscribe()
	defer cancel()

	s.CompleteLesson(ctx, "a", 10)
	s.CompleteLesson(ctx, "b", 10)

	select {
	case st := <-ch:
		assert.Equal(t, 20, st.XP, "slow reader should see the latest state")
	case <-time.After(time.Second):
		t.Fatal("no state received")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel() // idempotent
}

func TestAdaptiveContext(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	name := "Ada"
	visual := MathVisual
	require.NoError(t, s.UpdateProfile(ctx, ProfileUpdate{Name: &name, MathComfort: &visual}))
	s.StartLesson(ctx, "gradient-descent")
	s.UpdateConceptMastery(ctx, "gradients", "Gradients", 0.2, true)
	for i := 0; i < 3; i++ {
		s.RecordChallengeAttempt(ctx, false)
	}
	s.AddDoubt(ctx, "What is a learning rate?", "The step size.", "gradient-descent", "Gradient Descent")

	text := s.AdaptiveContext()
	for _, want := range []string{
		"Learner: Ada",
		"Math comfort: visual",
		"Current lesson: gradient-descent, step 1",
		"struggling",
		"Pacing: slow_down",
		"diagrams",
		"Needs review: Gradients",
		"What is a learning rate?",
	} {
		assert.True(t, strings.Contains(text, want), "context missing %q:\n%s", want, text)
	}
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.CompleteLesson(ctx, fmt.Sprintf("l%d", i%25), 10)
			s.UpdateConceptMastery(ctx, "shared", "Shared", 0.5, i%2 == 0)
		}(i)
	}
	wg.Wait()

	st := s.Snapshot()
	assert.Len(t, st.CompletedLessons, 25)
	assert.Equal(t, 250, st.XP)
	lvl := st.ConceptMastery["shared"].Level
	assert.False(t, math.IsNaN(lvl))
	assert.GreaterOrEqual(t, lvl, 0.0)
	assert.LessOrEqual(t, lvl, 100.0)
}

type countingRecorder struct {
	mu              sync.Mutex
	ops             []string
	persistFailures int
	observed        int
}

func (r *countingRecorder) Mutation(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *countingRecorder) PersistFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistFailures++
}

func (r *countingRecorder) ObserveState(State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observed++
}

func TestRestoreReplacesState(t *testing.T) {
	s, clock, snaps := newTestStore(t)
	ctx := context.Background()
	s.CompleteLesson(ctx, "intro", 100)
	s.StartLesson(ctx, "gd")
	clock.Advance(5 * time.Minute)

	practiced := "2026-02-27T09:00:00Z"
	s.Restore(ctx, &store.TutorSnapshotData{
		Profile:          store.ProfileData{Name: "Ada", MathComfort: "visual", CodingLevel: "bogus", Pace: "fast"},
		XP:               1200,
		CompletedLessons: []string{"a", "b", "a"},
		ConceptMastery: map[string]store.ConceptMasteryData{
			"loss": {ConceptName: "Loss", MasteryLevel: 64, LastPracticed: &practiced},
		},
		CurrentLessonID: "nn",
		CurrentStep:     2,
	})

	st := s.Snapshot()
	assert.Equal(t, "Ada", st.Profile.Name)
	assert.Equal(t, MathVisual, st.Profile.MathComfort)
	assert.Equal(t, CodingBeginner, st.Profile.CodingLevel, "invalid enum falls back")
	assert.Equal(t, 1200, st.XP)
	assert.Equal(t, 3, st.Level())
	assert.Equal(t, []string{"a", "b"}, st.CompletedLessons)
	assert.Equal(t, "nn", st.CurrentLessonID)
	assert.Equal(t, time.Duration(0), s.TimeOnStep(), "timers restart")
	assert.InDelta(t, 62.0, s.EffectiveMastery()["loss"], 0.01)

	latest, err := snaps.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1200, latest.Data.Tutor.XP)
}
