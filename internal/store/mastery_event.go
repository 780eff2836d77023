package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

func (r *eventRepo) AppendMasteryEvent(ctx context.Context, data MasteryEventData) error {
	return r.appendEvent(ctx, "mastery_events",
		[]string{"concept_id", "from_level", "to_level", "difficulty", "success"},
		[]any{data.ConceptID, data.FromLevel, data.ToLevel, data.Difficulty, boolInt(data.Success)},
	)
}

// RecentConceptAccuracy returns the success rate over the last N mastery
// updates of a concept, along with how many updates were considered.
func (r *eventRepo) RecentConceptAccuracy(ctx context.Context, conceptID string, lastN int) (float64, int, error) {
	b := builder()
	query, args := b.Select("success").
		From(b.Table("mastery_events")).
		Where(entsql.EQ("concept_id", conceptID)).
		OrderBy(entsql.Desc("sequence")).
		Limit(lastN).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, 0, fmt.Errorf("query concept updates: %w", err)
	}
	defer rows.Close()

	count, correct := 0, 0
	for rows.Next() {
		var success int
		if err := rows.Scan(&success); err != nil {
			return 0, 0, fmt.Errorf("scan concept update: %w", err)
		}
		count++
		correct += success
	}
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(correct) / float64(count), count, nil
}
