package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 0001_create_schema.sql
var createSchemaSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createSchemaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
				DROP TABLE IF EXISTS quiz_attempts;
				DROP TABLE IF EXISTS questions;
				DROP TABLE IF EXISTS users;
				DROP TABLE IF EXISTS chapters;`)
			return err
		},
	)
}
