// Package migrations embeds the SQL schema files so the server can apply
// them at startup without shipping loose files alongside the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
