package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Every event table carries the shared columns: a row id, the global
// sequence number, and the wall-clock time in unix nanoseconds.
const eventColumns = `
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sequence INTEGER NOT NULL UNIQUE,
	ts INTEGER NOT NULL,`

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		ts INTEGER NOT NULL,
		data TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS snapshots_ts ON snapshots (ts)`,

	`CREATE TABLE IF NOT EXISTS llm_request_events (` + eventColumns + `
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS lesson_events (` + eventColumns + `
		lesson_id TEXT NOT NULL,
		action TEXT NOT NULL,
		step INTEGER NOT NULL DEFAULT 0,
		xp_awarded INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS lesson_events_lesson ON lesson_events (lesson_id)`,

	`CREATE TABLE IF NOT EXISTS attempt_events (` + eventColumns + `
		lesson_id TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL,
		consecutive_successes INTEGER NOT NULL,
		consecutive_failures INTEGER NOT NULL,
		struggling INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS mastery_events (` + eventColumns + `
		concept_id TEXT NOT NULL,
		from_level REAL NOT NULL,
		to_level REAL NOT NULL,
		difficulty REAL NOT NULL,
		success INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS mastery_events_concept ON mastery_events (concept_id)`,

	`CREATE TABLE IF NOT EXISTS doubt_events (` + eventColumns + `
		doubt_id TEXT NOT NULL,
		lesson_id TEXT NOT NULL DEFAULT '',
		question_chars INTEGER NOT NULL,
		answer_chars INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS doubt_events_lesson ON doubt_events (lesson_id)`,
}

// migrate creates all tables that do not exist yet.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}
