package migrations

import "github.com/uptrace/bun/migrate"

// Migrations collects every schema change in this package; files register
// themselves from init and bun orders them by the numeric filename prefix.
var Migrations = migrate.NewMigrations()
