package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

func (r *eventRepo) AppendLessonEvent(ctx context.Context, data LessonEventData) error {
	return r.appendEvent(ctx, "lesson_events",
		[]string{"lesson_id", "action", "step", "xp_awarded"},
		[]any{data.LessonID, data.Action, data.Step, data.XPAwarded},
	)
}

func (r *eventRepo) Activity(ctx context.Context, opts QueryOpts) (ActivityStats, error) {
	var stats ActivityStats
	var err error

	if stats.LessonsStarted, err = r.countWhere(ctx, "lesson_events", opts, entsql.EQ("action", LessonStarted)); err != nil {
		return stats, err
	}
	if stats.LessonsCompleted, err = r.countWhere(ctx, "lesson_events", opts, entsql.EQ("action", LessonCompleted)); err != nil {
		return stats, err
	}
	if stats.Attempts, err = r.countWhere(ctx, "attempt_events", opts, nil); err != nil {
		return stats, err
	}
	if stats.SuccessfulTries, err = r.countWhere(ctx, "attempt_events", opts, entsql.EQ("success", 1)); err != nil {
		return stats, err
	}
	if stats.MasteryUpdates, err = r.countWhere(ctx, "mastery_events", opts, nil); err != nil {
		return stats, err
	}
	if stats.DoubtsSaved, err = r.countWhere(ctx, "doubt_events", opts, nil); err != nil {
		return stats, err
	}
	return stats, nil
}

// countWhere counts rows of an event table matching opts and an optional predicate.
func (r *eventRepo) countWhere(ctx context.Context, table string, opts QueryOpts, pred *entsql.Predicate) (int, error) {
	b := builder()
	sel := b.Select(entsql.Count("*")).From(b.Table(table))
	if pred != nil {
		sel.Where(pred)
	}
	// Limit does not apply to a count.
	opts.Limit = 0
	query, args := applyQueryOpts(sel, opts).Query()

	var n sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return int(n.Int64), nil
}
