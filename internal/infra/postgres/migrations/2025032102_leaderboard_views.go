package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 0002_leaderboard_views.sql
var leaderboardViewsSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, leaderboardViewsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
				DROP VIEW IF EXISTS chapter_leaderboards;
				DROP VIEW IF EXISTS global_leaderboard;`)
			return err
		},
	)
}
