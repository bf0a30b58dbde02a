// Package migrations embeds the SQL migration files for mcqflow's
// relational store (C3), discovered by bun's migrate.Migrator at startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
