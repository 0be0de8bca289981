// Package migrations embeds the goose SQL migrations that bootstrap the
// schema without touching existing data.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
