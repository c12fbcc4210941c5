package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS question_templates (
	event_type TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	questions  JSONB NOT NULL
)`)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS question_templates`)
			return err
		},
	)
}
