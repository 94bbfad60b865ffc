// Package migrations holds the bun migration registry with embedded SQL.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
