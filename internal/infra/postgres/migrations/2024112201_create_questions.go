package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createQuestionsSQL = `
CREATE TABLE IF NOT EXISTS questions (
	id             TEXT PRIMARY KEY,
	prompt         TEXT NOT NULL,
	options        JSONB NOT NULL DEFAULT '[]'::jsonb,
	correct_answer TEXT NOT NULL,
	difficulty     TEXT NOT NULL CHECK (difficulty IN ('easy', 'medium', 'hard')),
	category       TEXT NOT NULL DEFAULT '',
	points         INTEGER NOT NULL DEFAULT 1 CHECK (points > 0)
);
CREATE INDEX IF NOT EXISTS questions_difficulty_idx ON questions (difficulty);
`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createQuestionsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS questions`)
			return err
		},
	)
}
