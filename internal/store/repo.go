package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// CurrentSnapshotVersion is the layout version written by this build.
const CurrentSnapshotVersion = 1

// SnapshotData captures the full learner state at a point in time.
type SnapshotData struct {
	Version    int                `json:"version"`
	AppVersion string             `json:"appVersion,omitempty"`
	Tutor      *TutorSnapshotData `json:"tutor,omitempty"`
}

// TutorSnapshotData is the persisted layout of the tutor state aggregate.
// Field names match the browser front end's local-storage layout.
type TutorSnapshotData struct {
	Profile              ProfileData                   `json:"profile"`
	XP                   int                           `json:"xp"`
	CompletedLessons     []string                      `json:"completedLessons"`
	ConceptMastery       map[string]ConceptMasteryData `json:"conceptMastery"`
	Doubts               []DoubtData                   `json:"doubts"`
	ConsecutiveSuccesses int                           `json:"consecutiveSuccesses"`
	ConsecutiveFailures  int                           `json:"consecutiveFailures"`
	IsStruggling         bool                          `json:"isStruggling"`
	CurrentLessonID      string                        `json:"currentLessonId,omitempty"`
	CurrentStep          int                           `json:"currentStep"`
}

// ProfileData is the persisted learner profile.
type ProfileData struct {
	Name        string `json:"name"`
	MathComfort string `json:"mathComfort"`
	CodingLevel string `json:"codingLevel"`
	Pace        string `json:"pace"`
}

// ConceptMasteryData is the persisted per-concept mastery.
type ConceptMasteryData struct {
	ConceptName   string  `json:"conceptName"`
	MasteryLevel  float64 `json:"masteryLevel"`
	LastPracticed *string `json:"lastPracticed,omitempty"` // RFC3339
}

// DoubtData is a persisted doubt entry.
type DoubtData struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	LessonID    string `json:"lessonId"`
	LessonTitle string `json:"lessonTitle"`
	Timestamp   string `json:"timestamp"` // RFC3339
}

// Snapshot represents a point-in-time capture of learner state.
type Snapshot struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	Data      SnapshotData
}

// SnapshotRepo manages learner state snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot, or nil if none exist.
	Latest(ctx context.Context) (*Snapshot, error)

	// Prune deletes all but the N most recent snapshots.
	Prune(ctx context.Context, keep int) error
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates LLM calls by a grouping key.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// Lesson event actions.
const (
	LessonStarted   = "started"
	LessonStepped   = "step"
	LessonCompleted = "completed"
)

// LessonEventData records a lesson lifecycle change.
type LessonEventData struct {
	LessonID  string
	Action    string
	Step      int
	XPAwarded int
}

// AttemptEventData records a challenge attempt and the streak it produced.
type AttemptEventData struct {
	LessonID             string
	Success              bool
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
	Struggling           bool
}

// MasteryEventData records a concept mastery change.
type MasteryEventData struct {
	ConceptID  string
	FromLevel  float64
	ToLevel    float64
	Difficulty float64
	Success    bool
}

// DoubtEventData records a saved doubt. Only sizes are kept; the text
// lives in the learner state.
type DoubtEventData struct {
	DoubtID       string
	LessonID      string
	QuestionChars int
	AnswerChars   int
}

// ActivityStats summarizes recorded learning events.
type ActivityStats struct {
	LessonsStarted   int
	LessonsCompleted int
	Attempts         int
	SuccessfulTries  int
	MasteryUpdates   int
	DoubtsSaved      int
}

// EventRepo provides append and query access to domain events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// AppendLessonEvent records a lesson lifecycle change.
	AppendLessonEvent(ctx context.Context, data LessonEventData) error

	// AppendAttemptEvent records a challenge attempt.
	AppendAttemptEvent(ctx context.Context, data AttemptEventData) error

	// AppendMasteryEvent records a concept mastery update.
	AppendMasteryEvent(ctx context.Context, data MasteryEventData) error

	// AppendDoubtEvent records a saved doubt.
	AppendDoubtEvent(ctx context.Context, data DoubtEventData) error

	// QueryLLMEvents returns LLM events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns a single LLM event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	// LLMUsageByPurpose aggregates LLM calls per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// LLMUsageByModel aggregates LLM calls per model.
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)

	// RecentConceptAccuracy returns the success rate over the last N
	// mastery updates of a concept and the number of updates considered.
	RecentConceptAccuracy(ctx context.Context, conceptID string, lastN int) (float64, int, error)

	// Activity summarizes lesson, attempt, mastery and doubt events.
	Activity(ctx context.Context, opts QueryOpts) (ActivityStats, error)
}
