// Package migrations embeds the ledger schema migrations. Migrations are
// additive only; no down migrations are shipped.
package migrations

import "embed"

// FS holds the numbered *.up.sql files applied by golang-migrate.
//
//go:embed *.sql
var FS embed.FS
