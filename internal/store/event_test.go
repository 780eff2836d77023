package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMEventsAppendQueryAndGet(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "chat",
		InputTokens: 100, OutputTokens: 40, LatencyMs: 300, Success: true,
		RequestBody: "[user]\nhi", ResponseBody: `"hello"`,
	}))
	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "review",
		InputTokens: 10, OutputTokens: 0, LatencyMs: 100, Success: false,
		ErrorMessage: "boom",
	}))

	events, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, "review", events[0].Purpose)
	assert.False(t, events[0].Success)
	assert.Equal(t, "boom", events[0].ErrorMessage)
	assert.Greater(t, events[0].Sequence, events[1].Sequence)

	got, err := repo.GetLLMEvent(ctx, events[1].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "[user]\nhi", got.RequestBody)
	assert.True(t, got.Success)

	missing, err := repo.GetLLMEvent(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLLMUsageAggregation(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for _, d := range []LLMRequestEventData{
		{Provider: "p", Model: "m1", Purpose: "chat", InputTokens: 10, OutputTokens: 5, LatencyMs: 100, Success: true},
		{Provider: "p", Model: "m1", Purpose: "chat", InputTokens: 20, OutputTokens: 5, LatencyMs: 300, Success: true},
		{Provider: "p", Model: "m2", Purpose: "evaluate", InputTokens: 1, OutputTokens: 1, LatencyMs: 50, Success: true},
	} {
		require.NoError(t, repo.AppendLLMRequest(ctx, d))
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, "chat", byPurpose[0].Purpose)
	assert.Equal(t, 2, byPurpose[0].Calls)
	assert.Equal(t, 30, byPurpose[0].InputTokens)
	assert.Equal(t, int64(200), byPurpose[0].AvgLatencyMs)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, "m2", byModel[1].Model)
	assert.Equal(t, 1, byModel[1].Calls)
}

func TestActivityAndConceptAccuracy(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, repo.AppendLessonEvent(ctx, LessonEventData{LessonID: "intro", Action: LessonStarted}))
	require.NoError(t, repo.AppendLessonEvent(ctx, LessonEventData{LessonID: "intro", Action: LessonStepped, Step: 1}))
	require.NoError(t, repo.AppendLessonEvent(ctx, LessonEventData{LessonID: "intro", Action: LessonCompleted, XPAwarded: 100}))
	require.NoError(t, repo.AppendAttemptEvent(ctx, AttemptEventData{LessonID: "intro", Success: true, ConsecutiveSuccesses: 1}))
	require.NoError(t, repo.AppendAttemptEvent(ctx, AttemptEventData{LessonID: "intro", Success: false, ConsecutiveFailures: 1}))

	for _, ok := range []bool{true, false, true, true} {
		require.NoError(t, repo.AppendMasteryEvent(ctx, MasteryEventData{ConceptID: "gradients", Success: ok, Difficulty: 0.5}))
	}

	require.NoError(t, repo.AppendDoubtEvent(ctx, DoubtEventData{
		DoubtID: "d-1", LessonID: "intro", QuestionChars: 24, AnswerChars: 180,
	}))

	stats, err := repo.Activity(ctx, QueryOpts{})
	require.NoError(t, err)
	assert.Equal(t, ActivityStats{
		LessonsStarted:   1,
		LessonsCompleted: 1,
		Attempts:         2,
		SuccessfulTries:  1,
		MasteryUpdates:   4,
		DoubtsSaved:      1,
	}, stats)

	future, err := repo.Activity(ctx, QueryOpts{From: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Zero(t, future.Attempts)

	acc, n, err := repo.RecentConceptAccuracy(ctx, "gradients", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1.0, acc)

	acc, n, err = repo.RecentConceptAccuracy(ctx, "unknown", 5)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, acc)
}

func TestRedisSnapshotRepo(t *testing.T) {
	url := os.Getenv("AITUTOR_TEST_REDIS_URL")
	if url == "" {
		t.Skip("AITUTOR_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	repo, err := OpenRedis(ctx, url, "aitutor-test-"+time.Now().Format("150405.000000"))
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.client.Del(ctx, repo.setKey(), repo.idKey())
		repo.Close()
	})

	snap, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Save(ctx, &Snapshot{
			Sequence:  int64(i + 1),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Data:      SnapshotData{Version: 1, Tutor: &TutorSnapshotData{XP: i * 100}},
		}))
	}

	require.NoError(t, repo.Prune(ctx, 2))
	n, err := repo.client.ZCard(ctx, repo.setKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	snap, err = repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(4), snap.Sequence)
	assert.Equal(t, 300, snap.Data.Tutor.XP)
}

func TestRedisMember_SameTimestampOrdersByID(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older, err := encodeRedisMember(redisSnapshot{ID: 9, Sequence: 9, Timestamp: ts})
	require.NoError(t, err)
	newer, err := encodeRedisMember(redisSnapshot{ID: 10, Sequence: 10, Timestamp: ts})
	require.NoError(t, err)

	// Redis ranks equal scores by member bytes.
	assert.Less(t, older, newer)

	rs, err := decodeRedisMember(newer)
	require.NoError(t, err)
	assert.Equal(t, 10, rs.ID)
	assert.Equal(t, int64(10), rs.Sequence)

	rs, err = decodeRedisMember(`{"id":3,"sequence":3}`)
	require.NoError(t, err)
	assert.Equal(t, 3, rs.ID)
}

func TestRedisSnapshotRepo_SameTimestamp(t *testing.T) {
	url := os.Getenv("AITUTOR_TEST_REDIS_URL")
	if url == "" {
		t.Skip("AITUTOR_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	repo, err := OpenRedis(ctx, url, "aitutor-test-tie-"+time.Now().Format("150405.000000"))
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.client.Del(ctx, repo.setKey(), repo.idKey())
		repo.Close()
	})

	ts := time.Now().UTC().Truncate(time.Second)
	for i := 1; i <= 12; i++ {
		require.NoError(t, repo.Save(ctx, &Snapshot{
			Sequence:  int64(i),
			Timestamp: ts,
			Data:      SnapshotData{Version: 1, Tutor: &TutorSnapshotData{XP: i}},
		}))
	}

	snap, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(12), snap.Sequence)

	require.NoError(t, repo.Prune(ctx, 3))
	snap, err = repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, snap.Data.Tutor.XP)
}
