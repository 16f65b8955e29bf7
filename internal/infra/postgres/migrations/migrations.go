// Package migrations holds the bun migration set for the quiz host
// schema: quiz definitions stored as JSONB blobs and finalized game
// results keyed by session.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
