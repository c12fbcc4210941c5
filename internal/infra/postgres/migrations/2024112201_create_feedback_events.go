package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createFeedbackSQL = `
CREATE TABLE IF NOT EXISTS feedback_events (
	id         TEXT PRIMARY KEY,
	settings   JSONB NOT NULL,
	questions  JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS feedback_responses (
	event_id      TEXT NOT NULL REFERENCES feedback_events (id) ON DELETE CASCADE,
	respondent_id TEXT NOT NULL,
	ratings       JSONB NOT NULL DEFAULT '{}'::jsonb,
	text_answers  JSONB NOT NULL DEFAULT '{}'::jsonb,
	submitted_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (event_id, respondent_id)
);
`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createFeedbackSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS feedback_responses; DROP TABLE IF EXISTS feedback_events`)
			return err
		},
	)
}
