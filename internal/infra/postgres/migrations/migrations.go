// Package migrations holds the bun migrations for the Postgres feedback store.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
