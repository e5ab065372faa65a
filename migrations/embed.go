// Package migrations embeds the goose SQL migrations for the local storage database.
package migrations

import "embed"

// FS holds every migration file shipped with the binary.
//
//go:embed *.sql
var FS embed.FS
