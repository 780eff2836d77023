package store

import "context"

func (r *eventRepo) AppendAttemptEvent(ctx context.Context, data AttemptEventData) error {
	return r.appendEvent(ctx, "attempt_events",
		[]string{"lesson_id", "success", "consecutive_successes", "consecutive_failures", "struggling"},
		[]any{
			data.LessonID, boolInt(data.Success), data.ConsecutiveSuccesses,
			data.ConsecutiveFailures, boolInt(data.Struggling),
		},
	)
}
